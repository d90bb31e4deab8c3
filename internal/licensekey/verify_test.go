package licensekey

import (
	"crypto/rsa"
	"errors"
	"math/big"
	"testing"
)

func TestHasValidSignature_KnownResponse(t *testing.T) {
	k, err := ParseActivateResponse(knownResponse())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	t.Run("issuing key verifies", func(t *testing.T) {
		ok, err := k.HasValidSignature(knownPublicKey(t))
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if !ok {
			t.Error("expected signature to be valid")
		}
	})

	t.Run("unrelated key rejects", func(t *testing.T) {
		other := generateKey(t)
		ok, err := k.HasValidSignature(&other.PublicKey)
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if ok {
			t.Error("expected signature to be rejected under an unrelated key")
		}
	})
}

func TestHasValidSignature_BitFlips(t *testing.T) {
	priv := generateKey(t)
	payload := `{"ProductId":1,"Key":"ABCD","Created":1,"Expires":2,"F3":true,"SignDate":3}`

	k, err := ParseActivateResponse(signedResponse(t, priv, payload))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ok, err := k.HasValidSignature(&priv.PublicKey); err != nil || !ok {
		t.Fatalf("expected untampered record to verify, got %v, %v", ok, err)
	}

	t.Run("payload", func(t *testing.T) {
		for i := 0; i < len(k.licenseKeyBytes)*8; i += 7 {
			tampered := *k
			tampered.licenseKeyBytes = k.LicenseKeyBytes()
			tampered.licenseKeyBytes[i/8] ^= 1 << (i % 8)

			ok, err := tampered.HasValidSignature(&priv.PublicKey)
			if err != nil {
				t.Fatalf("bit %d: unexpected error %v", i, err)
			}
			if ok {
				t.Fatalf("bit %d: tampered payload verified", i)
			}
		}
	})

	t.Run("signature", func(t *testing.T) {
		for i := 0; i < len(k.signatureBytes)*8; i += 13 {
			tampered := *k
			tampered.signatureBytes = k.SignatureBytes()
			tampered.signatureBytes[i/8] ^= 1 << (i % 8)

			ok, err := tampered.HasValidSignature(&priv.PublicKey)
			if err != nil {
				t.Fatalf("bit %d: unexpected error %v", i, err)
			}
			if ok {
				t.Fatalf("bit %d: tampered signature verified", i)
			}
		}
	})
}

func TestHasValidSignature_UsesCapturedBytes(t *testing.T) {
	// Same record, different formatting: only the captured bytes are signed,
	// so editing the typed fields has no bearing on the result.
	priv := generateKey(t)
	payload := "{ \"ProductId\" : 1,\n  \"Key\" : \"K\",\n  \"Expires\" : 100 }"

	k, err := ParseActivateResponse(signedResponse(t, priv, payload))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	k.Expires = 999999999
	ok, err := k.HasValidSignature(&priv.PublicKey)
	if err != nil || !ok {
		t.Fatalf("expected captured bytes to verify regardless of typed fields, got %v, %v", ok, err)
	}
}

func TestHasValidSignature_EmptySignature(t *testing.T) {
	body := []byte(`{"result":0,"licenseKey":"` + knownLicenseKey + `"}`)
	k, err := ParseActivateResponse(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	ok, err := k.HasValidSignature(knownPublicKey(t))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Error("expected missing signature to be rejected")
	}
}

func TestHasValidSignature_UnusableKey(t *testing.T) {
	k, err := ParseActivateResponse(knownResponse())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	good := knownPublicKey(t)

	tests := map[string]*rsa.PublicKey{
		"nil key":        nil,
		"nil modulus":    {E: 65537},
		"zero modulus":   {N: big.NewInt(0), E: 65537},
		"small modulus":  {N: big.NewInt(3233), E: 17},
		"even modulus":   {N: new(big.Int).Lsh(big.NewInt(1), 2047), E: 65537},
		"even exponent":  {N: good.N, E: 4},
		"exponent below": {N: good.N, E: 1},
	}

	for name, pub := range tests {
		t.Run(name, func(t *testing.T) {
			ok, err := k.HasValidSignature(pub)
			if ok {
				t.Error("expected false")
			}
			if !errors.Is(err, ErrCrypto) {
				t.Errorf("expected crypto error, got %v", err)
			}
		})
	}
}
