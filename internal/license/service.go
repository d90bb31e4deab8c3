package license

import (
	"context"
	"crypto/rsa"
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"winsbygroup.com/licenseagent/internal/licensekey"
)

// verifyWorkers bounds concurrent signature checks in VerifyAll.
const verifyWorkers = 4

type Service struct {
	repo Repository
	db   *sqlx.DB

	// Now is the clock used for expiry; callers that distrust the local
	// clock can substitute their own.
	Now func() time.Time
}

func NewService(db *sqlx.DB) *Service {
	return &Service{
		db:   db,
		repo: New(db),
		Now:  time.Now,
	}
}

func (s *Service) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Save stores k as activated on machineCode, replacing any earlier copy of
// the same key. Only records carrying signed bytes can be stored.
func (s *Service) Save(ctx context.Context, machineCode string, k *licensekey.LicenseKey) (*Record, error) {
	if !k.Signed() {
		return nil, licensekey.ErrUnsigned
	}
	if !storable(k.ProductID) {
		return nil, ErrProductIDRange
	}

	rec := &Record{
		ProductID:   k.ProductID,
		LicenseKey:  k.KeyString(),
		MachineCode: machineCode,
		Payload:     k.LicenseKeyBytes(),
		Signature:   k.SignatureBytes(),
		SignDate:    int64(k.SignDate),
		Expires:     int64(k.Expires),
		ActivatedAt: s.Now().Unix(),
	}
	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.repo.Upsert(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Get returns the stored record, or nil if the key was never saved.
func (s *Service) Get(ctx context.Context, productID uint64, key string) (*Record, error) {
	if !storable(productID) {
		return nil, nil
	}
	return s.repo.Get(ctx, productID, key)
}

func (s *Service) List(ctx context.Context) ([]Record, error) {
	return s.repo.List(ctx)
}

// Delete forgets a stored license. Returns ErrNotFound if nothing was stored.
func (s *Service) Delete(ctx context.Context, productID uint64, key string) error {
	if !storable(productID) {
		return ErrNotFound
	}
	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		found, err := s.repo.Delete(ctx, tx, productID, key)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}
		return nil
	})
}

// Verify re-checks the stored signature of one license against pub.
func (s *Service) Verify(ctx context.Context, productID uint64, key string, pub *rsa.PublicKey) (*Status, error) {
	rec, err := s.Get(ctx, productID, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	st := s.Check(rec, pub)
	return &st, nil
}

// storable reports whether id fits go-sqlite3's signed 64-bit binding;
// the driver rejects uint64 values with the high bit set.
func storable(id uint64) bool {
	return id <= math.MaxInt64
}

// VerifyAll re-checks every stored license. Results follow List order.
func (s *Service) VerifyAll(ctx context.Context, pub *rsa.PublicKey) ([]Status, error) {
	recs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Status, len(recs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(verifyWorkers)
	for i := range recs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = s.Check(&recs[i], pub)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Check verifies rec against pub. Failures are reported in the status,
// never returned, so one bad row cannot hide the others.
func (s *Service) Check(rec *Record, pub *rsa.PublicKey) Status {
	st := Status{
		ProductID:   rec.ProductID,
		Key:         rec.LicenseKey,
		MachineCode: rec.MachineCode,
		Expires:     time.Unix(rec.Expires, 0).UTC(),
		SignDate:    time.Unix(rec.SignDate, 0).UTC(),
	}

	k, err := rec.Decode()
	if err != nil {
		st.Error = err.Error()
		return st
	}

	ok, err := k.HasValidSignature(pub)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	if !ok {
		st.Error = "signature does not match"
		return st
	}

	// only trust fields from a payload that verified
	st.Valid = true
	st.Expires = k.Expires.Time()
	st.SignDate = k.SignDate.Time()
	st.Expired = s.Now().After(st.Expires)
	st.Blocked = k.Block
	return st
}
