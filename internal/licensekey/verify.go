package licensekey

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
)

// HasValidSignature checks the captured payload against the captured
// signature (RSA PKCS#1 v1.5 over SHA-256).
//
// A mismatch is (false, nil). An unusable key is a KindCrypto error, and a
// record decoded from an inline payload returns ErrUnsigned: that legacy
// response format cannot be authenticated.
func (k *LicenseKey) HasValidSignature(pub *rsa.PublicKey) (bool, error) {
	if !k.Signed() {
		return false, ErrUnsigned
	}
	if err := checkPublicKey(pub); err != nil {
		return false, err
	}

	digest := sha256.Sum256(k.licenseKeyBytes)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], k.signatureBytes); err != nil {
		return false, nil
	}
	return true, nil
}
