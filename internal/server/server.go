package server

import (
	"crypto/rsa"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	mwecho "github.com/labstack/echo/v4/middleware"
	mwsvc "winsbygroup.com/licenseagent/internal/middleware"

	"winsbygroup.com/licenseagent/internal/activation"
	"winsbygroup.com/licenseagent/internal/config"
	"winsbygroup.com/licenseagent/internal/license"
	"winsbygroup.com/licenseagent/internal/licensekey"
	"winsbygroup.com/licenseagent/internal/machine"
	"winsbygroup.com/licenseagent/internal/metrics"
	"winsbygroup.com/licenseagent/internal/sqlite"

	agenthttp "winsbygroup.com/licenseagent/internal/http/agent"
)

type Server struct {
	Echo *echo.Echo
	HTTP *http.Server
	DB   *sqlx.DB

	Activation *activation.Service
	Licenses   *license.Service
	Machines   *machine.Service
	PublicKey  *rsa.PublicKey
	Metrics    *metrics.Prom
}

// OpenDB opens (creating if needed) and migrates the agent database.
func OpenDB(cfg *config.Config) (*sqlx.DB, error) {
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		log.Printf("Creating database '%s' (from %s setting)", cfg.DBPath, cfg.DBPathSource)
	} else {
		log.Printf("Opening database '%s' (from %s setting)", cfg.DBPath, cfg.DBPathSource)
	}
	db, err := sqlx.Connect("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, err
	}

	// WAL mode is only required once after creating the database, but
	// doesn't hurt to set it each time
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()
		return nil, err
	}
	// concurrent writers wait instead of failing with SQLITE_BUSY
	if _, err := db.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, err
	}

	if err := sqlite.RunMigrations(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// LoadPublicKey imports the configured RSAKeyValue document.
func LoadPublicKey(cfg *config.Config) (*rsa.PublicKey, error) {
	doc, err := cfg.PublicKeyXML()
	if err != nil {
		return nil, err
	}
	pub, err := licensekey.ParsePublicKeyXML(doc)
	if err != nil {
		return nil, fmt.Errorf("import public key: %w", err)
	}
	return pub, nil
}

// NewLimiter paces outbound activation calls. A zero rate means unlimited.
func NewLimiter(cfg *config.Config) *rate.Limiter {
	if cfg.ActivationRate <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(cfg.ActivationRate), cfg.ActivationBurst)
}

func Build(cfg *config.Config) (*Server, error) {
	//
	// Validate configuration
	//
	if err := cfg.ValidateActivation(); err != nil {
		return nil, err
	}
	pub, err := LoadPublicKey(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		log.Print("No api_key configured: agent API is unauthenticated")
	}

	//
	// Database
	//
	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}

	//
	// Domain services
	//
	prom := metrics.NewProm()
	licenseSvc := license.NewService(db)
	machineSvc := machine.NewService(db)

	client := activation.NewClient(
		cfg.Endpoint,
		cfg.AccessToken,
		&http.Client{Timeout: cfg.RequestTimeout},
		NewLimiter(cfg),
	)
	activationSvc := activation.NewService(client, licenseSvc, machineSvc, pub, prom)
	activationSvc.ProductID = cfg.ProductID
	activationSvc.MachineCode = cfg.MachineCode
	activationSvc.FriendlyName = cfg.FriendlyName

	//
	// Handlers
	//
	agentHandler := agenthttp.NewHandler(activationSvc, licenseSvc, pub, prom)

	//
	// Echo
	//
	e := echo.New()
	e.HideBanner = true

	// Health endpoints
	e.GET("/livez", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	e.GET("/readyz", func(c echo.Context) error {
		if err := db.Ping(); err != nil {
			return c.String(http.StatusServiceUnavailable, "DB not ready")
		}
		return c.String(http.StatusOK, "Ready")
	})

	e.GET("/metrics", echo.WrapHandler(prom.Handler()))

	// Middleware
	e.Use(mwecho.Logger())
	e.Use(mwecho.Recover())

	// Agent API
	agentGroup := e.Group("/api/v1")
	agenthttp.RegisterRoutes(agentGroup, agentHandler, mwsvc.APIKeyAuth(cfg.APIKey))

	//
	// HTTP server
	//
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      e,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		Echo:       e,
		HTTP:       srv,
		DB:         db,
		Activation: activationSvc,
		Licenses:   licenseSvc,
		Machines:   machineSvc,
		PublicKey:  pub,
		Metrics:    prom,
	}, nil
}

// Close releases the database.
func (s *Server) Close() error {
	return s.DB.Close()
}
