package testutil

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"testing"

	"winsbygroup.com/licenseagent/internal/licensekey"
)

// NewSigningKey returns a fresh 2048-bit key standing in for the license server.
func NewSigningKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return priv
}

// PublicKeyXML renders the public half of priv as an RSAKeyValue document.
func PublicKeyXML(t *testing.T, priv *rsa.PrivateKey) []byte {
	t.Helper()
	doc, err := licensekey.NewRSAKeyValue(&priv.PublicKey).XML()
	if err != nil {
		t.Fatalf("render public key: %v", err)
	}
	return doc
}

// SignedEnvelope builds a successful activation response carrying payload
// signed by priv.
func SignedEnvelope(t *testing.T, priv *rsa.PrivateKey, payload string) []byte {
	t.Helper()
	digest := sha256.Sum256([]byte(payload))
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	if err != nil {
		t.Fatalf("sign payload: %v", err)
	}

	body, err := json.Marshal(map[string]any{
		"result":     0,
		"message":    "",
		"licenseKey": base64.StdEncoding.EncodeToString([]byte(payload)),
		"signature":  base64.StdEncoding.EncodeToString(sig),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return body
}

// SignedLicense is SignedEnvelope parsed into a record.
func SignedLicense(t *testing.T, priv *rsa.PrivateKey, payload string) *licensekey.LicenseKey {
	t.Helper()
	k, err := licensekey.ParseActivateResponse(SignedEnvelope(t, priv, payload))
	if err != nil {
		t.Fatalf("parse envelope: %v", err)
	}
	return k
}
