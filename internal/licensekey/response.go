package licensekey

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// ActivateResponse is the JSON envelope returned by Key/Activate.
type ActivateResponse struct {
	Result     int              `json:"result"`
	Message    string           `json:"message"`
	LicenseKey *licenseKeyField `json:"licenseKey"`
	Signature  *string          `json:"signature"`
}

// licensePayload is the resolved shape of the envelope's licenseKey member.
// Exactly two implementations exist: inlinePayload and encodedPayload.
type licensePayload interface {
	licenseKey(signature *string) (*LicenseKey, error)
}

// inlinePayload is a license record embedded as a JSON object. It has no
// signed bytes; records built from it cannot be verified.
type inlinePayload struct {
	raw json.RawMessage
}

func (p inlinePayload) licenseKey(*string) (*LicenseKey, error) {
	var k LicenseKey
	if err := json.Unmarshal(p.raw, &k); err != nil {
		return nil, decodeError("parse license key object", err)
	}
	return &k, nil
}

// encodedPayload is a license record as base64 of the exact JSON bytes the
// server signed.
type encodedPayload struct {
	encoded string
}

func (p encodedPayload) licenseKey(signature *string) (*LicenseKey, error) {
	licenseKeyBytes, err := base64.StdEncoding.DecodeString(p.encoded)
	if err != nil {
		return nil, decodeError("decode licenseKey base64", err)
	}

	var signatureBytes []byte
	if signature != nil {
		signatureBytes, err = base64.StdEncoding.DecodeString(*signature)
		if err != nil {
			return nil, decodeError("decode signature base64", err)
		}
	}

	return newSignedLicenseKey(licenseKeyBytes, signatureBytes)
}

// licenseKeyField sniffs the licenseKey member: an object is inline, a string
// is encoded. JSON null leaves the pointer nil.
type licenseKeyField struct {
	payload licensePayload
}

func (f *licenseKeyField) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return fmt.Errorf("empty licenseKey value")
	}

	switch trimmed[0] {
	case '{':
		f.payload = inlinePayload{raw: append(json.RawMessage(nil), trimmed...)}
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		f.payload = encodedPayload{encoded: s}
	default:
		return fmt.Errorf("licenseKey must be an object or a base64 string, got %.16s", trimmed)
	}
	return nil
}

// envelopeHead is the part of the envelope read before anything else, so a
// failure response never has its licenseKey member interpreted.
type envelopeHead struct {
	Result  int    `json:"result"`
	Message string `json:"message"`
}

func apiError(message string) error {
	return &Error{Kind: KindAPI, Message: message}
}

// Resolve turns the envelope into a record. A non-zero result is an API error carrying
// the server message; a success without a licenseKey is a decode error.
func (r *ActivateResponse) Resolve() (*LicenseKey, error) {
	if r.Result != 0 {
		return nil, apiError(r.Message)
	}
	if r.LicenseKey == nil || r.LicenseKey.payload == nil {
		return nil, decodeError("licenseKey field is required for success result", nil)
	}
	return r.LicenseKey.payload.licenseKey(r.Signature)
}

// ParseActivateResponse decodes a raw Key/Activate response body.
func ParseActivateResponse(body []byte) (*LicenseKey, error) {
	var head envelopeHead
	if err := json.Unmarshal(body, &head); err != nil {
		return nil, decodeError("parse activate response", err)
	}
	if head.Result != 0 {
		return nil, apiError(head.Message)
	}

	var resp ActivateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, decodeError("parse activate response", err)
	}
	return resp.Resolve()
}

// FromSignedPayload rebuilds a record from a previously captured signed
// payload and its detached signature.
func FromSignedPayload(licenseKeyBytes, signatureBytes []byte) (*LicenseKey, error) {
	if len(licenseKeyBytes) == 0 {
		return nil, decodeError("empty license key payload", nil)
	}
	return newSignedLicenseKey(bytes.Clone(licenseKeyBytes), bytes.Clone(signatureBytes))
}

// EncodeResponse renders k as a success envelope in the signed format. The
// output decodes back through ParseActivateResponse to an identical record.
func EncodeResponse(k *LicenseKey) ([]byte, error) {
	if !k.Signed() {
		return nil, ErrUnsigned
	}
	return json.Marshal(struct {
		Result     int    `json:"result"`
		Message    string `json:"message"`
		LicenseKey string `json:"licenseKey"`
		Signature  string `json:"signature"`
	}{
		LicenseKey: base64.StdEncoding.EncodeToString(k.licenseKeyBytes),
		Signature:  base64.StdEncoding.EncodeToString(k.signatureBytes),
	})
}

// newSignedLicenseKey takes ownership of both buffers.
func newSignedLicenseKey(licenseKeyBytes, signatureBytes []byte) (*LicenseKey, error) {
	var k LicenseKey
	if err := json.Unmarshal(licenseKeyBytes, &k); err != nil {
		return nil, decodeError("parse license key payload", err)
	}
	k.licenseKeyBytes = licenseKeyBytes
	k.signatureBytes = signatureBytes
	return &k, nil
}
