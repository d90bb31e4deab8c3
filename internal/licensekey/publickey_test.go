package licensekey

import (
	"crypto/rsa"
	"errors"
	"math/big"
	"strings"
	"testing"
)

func TestParsePublicKeyXML(t *testing.T) {
	t.Run("known key", func(t *testing.T) {
		pub := knownPublicKey(t)
		if pub.E != 65537 {
			t.Errorf("expected exponent 65537, got %d", pub.E)
		}
		if pub.N.BitLen() != 2048 {
			t.Errorf("expected 2048-bit modulus, got %d", pub.N.BitLen())
		}
	})

	t.Run("whitespace inside values", func(t *testing.T) {
		v, err := ParseRSAKeyValue([]byte(knownPublicKeyXML))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		wrapped := "<RSAKeyValue>\n  <Modulus>\n    " + v.Modulus[:40] + "\n    " + v.Modulus[40:] +
			"\n  </Modulus>\n  <Exponent> AQAB </Exponent>\n</RSAKeyValue>"

		pub, err := ParsePublicKeyXML([]byte(wrapped))
		if err != nil {
			t.Fatalf("parse wrapped: %v", err)
		}
		if pub.N.Cmp(knownPublicKey(t).N) != 0 {
			t.Error("modulus differs after whitespace removal")
		}
	})

	t.Run("round trip through descriptor", func(t *testing.T) {
		priv := generateKey(t)
		doc, err := NewRSAKeyValue(&priv.PublicKey).XML()
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		if !strings.HasPrefix(string(doc), "<RSAKeyValue><Modulus>") {
			t.Errorf("unexpected descriptor %s", doc)
		}

		pub, err := ParsePublicKeyXML(doc)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if !pub.Equal(&priv.PublicKey) {
			t.Error("imported key differs from original")
		}
	})
}

func TestParsePublicKeyXML_Errors(t *testing.T) {
	even, err := NewRSAKeyValue(&rsa.PublicKey{N: new(big.Int).Lsh(big.NewInt(1), 2047), E: 65537}).XML()
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"malformed xml", "<RSAKeyValue><Modulus>abc", ErrDecode},
		{"empty document", "", ErrDecode},
		{"bad modulus base64", "<RSAKeyValue><Modulus>!!!</Modulus><Exponent>AQAB</Exponent></RSAKeyValue>", ErrDecode},
		{"bad exponent base64", "<RSAKeyValue><Modulus>AQAB</Modulus><Exponent>@</Exponent></RSAKeyValue>", ErrDecode},
		{"zero modulus", "<RSAKeyValue><Modulus>AA==</Modulus><Exponent>AQAB</Exponent></RSAKeyValue>", ErrCrypto},
		{"missing modulus", "<RSAKeyValue><Exponent>AQAB</Exponent></RSAKeyValue>", ErrCrypto},
		{"huge exponent", "<RSAKeyValue><Modulus>AQAB</Modulus><Exponent>AQAAAAAAAAAAAQ==</Exponent></RSAKeyValue>", ErrCrypto},
		{"even modulus", string(even), ErrCrypto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub, err := ParsePublicKeyXML([]byte(tt.doc))
			if pub != nil {
				t.Error("expected no key")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
