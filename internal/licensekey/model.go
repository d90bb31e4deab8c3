package licensekey

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/netip"
	"strings"
	"time"
)

// Timestamp is a point in time as Unix epoch seconds.
type Timestamp int64

// legacyLayouts are the ISO-8601 forms older servers emit instead of epoch seconds.
var legacyLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		for _, layout := range legacyLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				*t = Timestamp(parsed.Unix())
				return nil
			}
		}
		return fmt.Errorf("invalid timestamp %q", s)
	}

	var secs int64
	if err := json.Unmarshal(data, &secs); err != nil {
		return err
	}
	*t = Timestamp(secs)
	return nil
}

// Time returns the timestamp in UTC.
func (t Timestamp) Time() time.Time { return time.Unix(int64(t), 0).UTC() }

// LicenseKey is a license record as issued by the activation service.
//
// Records decoded from a signed (base64) response also hold the exact bytes
// the server signed. Those bytes are set once, when the record is decoded,
// and are what HasValidSignature checks; the typed fields are never
// serialized again for verification.
type LicenseKey struct {
	ProductID         uint64             `json:"ProductId"`
	ID                *uint64            `json:"Id"`
	Key               *string            `json:"Key"`
	Created           Timestamp          `json:"Created"`
	Expires           Timestamp          `json:"Expires"`
	Period            uint64             `json:"Period"` // days
	Feature1          bool               `json:"F1"`
	Feature2          bool               `json:"F2"`
	Feature3          bool               `json:"F3"`
	Feature4          bool               `json:"F4"`
	Feature5          bool               `json:"F5"`
	Feature6          bool               `json:"F6"`
	Feature7          bool               `json:"F7"`
	Feature8          bool               `json:"F8"`
	Notes             *string            `json:"Notes"`
	Block             bool               `json:"Block"`
	GlobalID          *uint64            `json:"GlobalId"`
	Customer          *Customer          `json:"Customer"`
	ActivatedMachines []ActivatedMachine `json:"ActivatedMachines"`
	TrialActivation   bool               `json:"TrialActivation"`
	MaxNoOfMachines   *int64             `json:"MaxNoOfMachines"` // -1 means unlimited
	AllowedMachines   *string            `json:"AllowedMachines"`
	DataObjects       []DataObject       `json:"DataObjects"`
	SignDate          Timestamp          `json:"SignDate"`
	Signature         *string            `json:"Signature"` // legacy in-payload signature, not used for verification

	licenseKeyBytes []byte
	signatureBytes  []byte
}

func (k *LicenseKey) UnmarshalJSON(data []byte) error {
	return decodeAliased(data, k.aliases())
}

// Signed reports whether the record carries a signed payload.
func (k *LicenseKey) Signed() bool { return len(k.licenseKeyBytes) > 0 }

// LicenseKeyBytes returns a copy of the signed payload, or nil.
func (k *LicenseKey) LicenseKeyBytes() []byte { return bytes.Clone(k.licenseKeyBytes) }

// SignatureBytes returns a copy of the detached signature, or nil.
func (k *LicenseKey) SignatureBytes() []byte { return bytes.Clone(k.signatureBytes) }

// KeyString returns the license key string, or "" if the server omitted it.
func (k *LicenseKey) KeyString() string {
	if k.Key == nil {
		return ""
	}
	return *k.Key
}

// Feature returns feature flag n (1..8). Out-of-range n returns false.
func (k *LicenseKey) Feature(n int) bool {
	switch n {
	case 1:
		return k.Feature1
	case 2:
		return k.Feature2
	case 3:
		return k.Feature3
	case 4:
		return k.Feature4
	case 5:
		return k.Feature5
	case 6:
		return k.Feature6
	case 7:
		return k.Feature7
	case 8:
		return k.Feature8
	}
	return false
}

// Unlimited reports whether the key has no machine limit.
func (k *LicenseKey) Unlimited() bool {
	return k.MaxNoOfMachines != nil && *k.MaxNoOfMachines < 0
}

// AllowedMachineCodes splits AllowedMachines on newlines, dropping blanks.
func (k *LicenseKey) AllowedMachineCodes() []string {
	if k.AllowedMachines == nil {
		return nil
	}
	var codes []string
	for _, line := range strings.Split(*k.AllowedMachines, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			codes = append(codes, line)
		}
	}
	return codes
}

// HasMachine reports whether code is among the activated machines.
func (k *LicenseKey) HasMachine(code string) bool {
	for _, m := range k.ActivatedMachines {
		if m.Mid == code {
			return true
		}
	}
	return false
}

type Customer struct {
	ID          uint64    `json:"Id"`
	Name        string    `json:"Name"`
	Email       string    `json:"Email"`
	CompanyName string    `json:"CompanyName"`
	Created     Timestamp `json:"Created"`
}

func (c *Customer) UnmarshalJSON(data []byte) error {
	return decodeAliased(data, c.aliases())
}

type ActivatedMachine struct {
	Mid  string     `json:"Mid"`
	IP   netip.Addr `json:"IP"`
	Time Timestamp  `json:"Time"`
}

func (m *ActivatedMachine) UnmarshalJSON(data []byte) error {
	return decodeAliased(data, m.aliases())
}

type DataObject struct {
	ID          uint64 `json:"Id"`
	Name        string `json:"Name"`
	StringValue string `json:"StringValue"`
	IntValue    int64  `json:"IntValue"`
}

func (d *DataObject) UnmarshalJSON(data []byte) error {
	return decodeAliased(data, d.aliases())
}
