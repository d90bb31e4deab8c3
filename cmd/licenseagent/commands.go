package main

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"winsbygroup.com/licenseagent/internal/activation"
	"winsbygroup.com/licenseagent/internal/backup"
	"winsbygroup.com/licenseagent/internal/config"
	"winsbygroup.com/licenseagent/internal/license"
	"winsbygroup.com/licenseagent/internal/licensefile"
	"winsbygroup.com/licenseagent/internal/licensekey"
	"winsbygroup.com/licenseagent/internal/machine"
	"winsbygroup.com/licenseagent/internal/server"
)

type command struct {
	summary string
	run     func(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error
}

var commands = map[string]command{
	"activate":     {"activate a license key on this machine and store it", runActivate},
	"verify":       {"re-verify every stored license (exit 1 if any is unusable)", runVerify},
	"inspect":      {"decode and verify a license file offline", runInspect},
	"export":       {"write a stored license to a license file", runExport},
	"backup":       {"write a compressed SQL dump of the agent database", runBackup},
	"machine-code": {"print this machine's code", runMachineCode},
	"serve":        {"run the agent HTTP API", runServe},
	"routes":       {"print routes and exit", runRoutes},
}

var errUnusable = errors.New("one or more licenses are not usable")

func runActivate(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("activate", flag.ContinueOnError)
	key := fs.String("key", "", "license key (required)")
	machineCode := fs.String("machine-code", "", "machine code (default: configured, then derived)")
	friendlyName := fs.String("friendly-name", "", "name shown for this machine in the license dashboard")
	file := fs.String("out", "", "also write the license to this file")
	asJSON := fs.Bool("json", false, "print the activation result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *key == "" {
		return errors.New("-key is required")
	}

	srv, err := server.Build(cfg)
	if err != nil {
		return err
	}
	defer srv.Close()

	res, err := srv.Activation.Activate(ctx, &activation.Request{
		Key:          *key,
		MachineCode:  *machineCode,
		FriendlyName: *friendlyName,
	})
	if err != nil {
		return err
	}

	if *file != "" {
		if err := licensefile.Save(*file, res.License); err != nil {
			return err
		}
		log.Printf("License written to %s", *file)
	}

	if *asJSON {
		return printJSON(out, res)
	}
	return printStatuses(out, []license.Status{res.Status})
}

func runVerify(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print statuses as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pub, err := server.LoadPublicKey(cfg)
	if err != nil {
		return err
	}
	db, err := server.OpenDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	statuses, err := license.NewService(db).VerifyAll(ctx, pub)
	if err != nil {
		return err
	}
	if *asJSON {
		err = printJSON(out, statuses)
	} else {
		err = printStatuses(out, statuses)
	}
	if err != nil {
		return err
	}
	for _, st := range statuses {
		if !st.Usable() {
			return errUnusable
		}
	}
	return nil
}

func runInspect(_ context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	file := fs.String("file", "", "license file (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}

	k, err := licensefile.Load(*file)
	if err != nil {
		return err
	}
	if k == nil {
		return fmt.Errorf("%s: no such license file", *file)
	}

	var pub *rsa.PublicKey
	if _, err := cfg.PublicKeyXML(); err == nil {
		if pub, err = server.LoadPublicKey(cfg); err != nil {
			return err
		}
	}
	return describeLicense(out, k, pub, time.Now())
}

func runExport(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	key := fs.String("key", "", "license key (required)")
	productID := fs.Uint64("product", cfg.ProductID, "product id")
	file := fs.String("out", "", "output file (default: license directory)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *key == "" {
		return errors.New("-key is required")
	}
	if *file == "" {
		*file = filepath.Join(licensefile.DefaultDir(), licensefile.FileName(*productID))
	}

	db, err := server.OpenDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	rec, err := license.NewService(db).Get(ctx, *productID, *key)
	if err != nil {
		return err
	}
	if rec == nil {
		return license.ErrNotFound
	}
	k, err := rec.Decode()
	if err != nil {
		return err
	}
	if err := licensefile.Save(*file, k); err != nil {
		return err
	}

	fmt.Fprintln(out, *file)
	return nil
}

func runBackup(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	dir := fs.String("dir", "", "output directory (default: backups next to the database)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := server.OpenDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := backup.NewService(db, cfg.DBPath).Create(ctx, *dir)
	if err != nil {
		return err
	}
	log.Printf("Backup written (%d bytes)", res.Size)
	fmt.Fprintln(out, res.Path)
	return nil
}

func runMachineCode(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("machine-code", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.MachineCode != "" {
		fmt.Fprintln(out, cfg.MachineCode)
		return nil
	}

	db, err := server.OpenDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	host, err := machine.HostID()
	if err != nil {
		return err
	}
	code, err := machine.NewService(db).Code(ctx, host)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, code)
	return nil
}

func runRoutes(_ context.Context, cfg *config.Config, _ []string, out io.Writer) error {
	srv, err := server.Build(cfg)
	if err != nil {
		return err
	}
	defer srv.Close()

	routes := srv.Echo.Routes()
	sort.Slice(routes, func(i, j int) bool {
		return routes[i].Path < routes[j].Path
	})

	for _, r := range routes {
		fmt.Fprintf(out, "%-6s %s\n", r.Method, r.Path)
	}
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, _ []string, _ io.Writer) error {
	//
	// Build server (Echo, DB, services, etc.)
	//
	srv, err := server.Build(cfg)
	if err != nil {
		return err
	}
	defer srv.Close()

	errc := make(chan error, 1)
	go func() {
		if err := srv.Echo.StartServer(srv.HTTP); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	// Graceful shutdown
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Echo.Shutdown(shutdownCtx)
}

func printStatuses(out io.Writer, statuses []license.Status) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tKEY\tMACHINE\tVALID\tEXPIRES\tSTATE")
	for _, st := range statuses {
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\t%s\n",
			st.ProductID, st.Key, st.MachineCode, st.Valid, st.Expires.Format(time.DateOnly), state(st))
	}
	return w.Flush()
}

func state(st license.Status) string {
	switch {
	case st.Error != "":
		return st.Error
	case st.Blocked:
		return "blocked"
	case st.Expired:
		return "expired"
	}
	return "ok"
}

// describeLicense prints a license record. pub may be nil when no key is configured.
func describeLicense(out io.Writer, k *licensekey.LicenseKey, pub *rsa.PublicKey, now time.Time) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Product\t%d\n", k.ProductID)
	fmt.Fprintf(w, "Key\t%s\n", k.KeyString())
	fmt.Fprintf(w, "Created\t%s\n", k.Created.Time().Format(time.RFC3339))
	fmt.Fprintf(w, "Expires\t%s\n", k.Expires.Time().Format(time.RFC3339))
	fmt.Fprintf(w, "Signed\t%s\n", k.SignDate.Time().Format(time.RFC3339))

	var features []string
	for n := 1; n <= 8; n++ {
		if k.Feature(n) {
			features = append(features, fmt.Sprintf("F%d", n))
		}
	}
	fmt.Fprintf(w, "Features\t%s\n", strings.Join(features, " "))

	if k.MaxNoOfMachines != nil {
		limit := fmt.Sprint(*k.MaxNoOfMachines)
		if k.Unlimited() {
			limit = "unlimited"
		}
		fmt.Fprintf(w, "Machines\t%d of %s\n", len(k.ActivatedMachines), limit)
	}
	for _, m := range k.ActivatedMachines {
		fmt.Fprintf(w, "\t%s %s %s\n", m.Mid, m.IP, m.Time.Time().Format(time.RFC3339))
	}
	if k.Block {
		fmt.Fprintln(w, "Blocked\tyes")
	}
	if now.After(k.Expires.Time()) {
		fmt.Fprintln(w, "Expired\tyes")
	}

	switch {
	case pub == nil:
		fmt.Fprintln(w, "Signature\tnot checked (no public key configured)")
	default:
		ok, err := k.HasValidSignature(pub)
		switch {
		case err != nil:
			fmt.Fprintf(w, "Signature\t%v\n", err)
		case ok:
			fmt.Fprintln(w, "Signature\tvalid")
		default:
			fmt.Fprintln(w, "Signature\tINVALID")
		}
	}
	return w.Flush()
}

// printJSON writes v indented; used for machine-readable output.
func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
