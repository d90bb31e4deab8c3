package license

import (
	"errors"
	"time"

	"winsbygroup.com/licenseagent/internal/licensekey"
)

var (
	ErrNotFound = errors.New("license not found")

	// ErrProductIDRange is returned for product ids SQLite cannot store as a
	// signed 64-bit integer.
	ErrProductIDRange = errors.New("product id out of range")
)

// Record is a stored activation. Payload and Signature are the bytes the
// activation service signed; they are never re-serialised.
type Record struct {
	ProductID   uint64 `db:"product_id"`
	LicenseKey  string `db:"license_key"`
	MachineCode string `db:"machine_code"`
	Payload     []byte `db:"payload"`
	Signature   []byte `db:"signature"`
	SignDate    int64  `db:"sign_date"`
	Expires     int64  `db:"expires"`
	ActivatedAt int64  `db:"activated_at"`
}

// Decode rebuilds the license record from the stored signed payload.
func (r *Record) Decode() (*licensekey.LicenseKey, error) {
	return licensekey.FromSignedPayload(r.Payload, r.Signature)
}

// Status is the outcome of re-verifying a stored license.
type Status struct {
	ProductID   uint64    `json:"productId"`
	Key         string    `json:"key"`
	MachineCode string    `json:"machineCode"`
	Valid       bool      `json:"valid"`
	Expired     bool      `json:"expired"`
	Blocked     bool      `json:"blocked"`
	Expires     time.Time `json:"expires"`
	SignDate    time.Time `json:"signDate"`
	Error       string    `json:"error,omitempty"`
}

// Usable reports whether the license may be honoured right now.
func (s Status) Usable() bool {
	return s.Valid && !s.Expired && !s.Blocked
}
