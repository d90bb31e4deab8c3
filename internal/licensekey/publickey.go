package licensekey

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/xml"
	"math/big"
	"strings"
	"unicode"
)

// minModulusBits matches the smallest RSA key crypto/rsa will verify with.
const minModulusBits = 1024

// RSAKeyValue is the XML public key descriptor handed out by the license
// authority, e.g. <RSAKeyValue><Modulus>…</Modulus><Exponent>AQAB</Exponent></RSAKeyValue>.
// Both values are base64 big-endian unsigned integers.
type RSAKeyValue struct {
	XMLName  xml.Name `xml:"RSAKeyValue"`
	Modulus  string   `xml:"Modulus"`
	Exponent string   `xml:"Exponent"`
}

// ParseRSAKeyValue reads the descriptor from XML. The root element name is
// not enforced.
func ParseRSAKeyValue(doc []byte) (RSAKeyValue, error) {
	var v struct {
		Modulus  string `xml:"Modulus"`
		Exponent string `xml:"Exponent"`
	}
	if err := xml.Unmarshal(doc, &v); err != nil {
		return RSAKeyValue{}, decodeError("parse public key xml", err)
	}
	return RSAKeyValue{Modulus: v.Modulus, Exponent: v.Exponent}, nil
}

// NewRSAKeyValue describes pub in the XML descriptor format.
func NewRSAKeyValue(pub *rsa.PublicKey) RSAKeyValue {
	return RSAKeyValue{
		Modulus:  base64.StdEncoding.EncodeToString(pub.N.Bytes()),
		Exponent: base64.StdEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// XML renders the descriptor.
func (v RSAKeyValue) XML() ([]byte, error) {
	return xml.Marshal(v)
}

// PublicKey builds the RSA key. Bad base64 is a decode error; integers that
// cannot form a usable key are a crypto error.
func (v RSAKeyValue) PublicKey() (*rsa.PublicKey, error) {
	modulus, err := decodeBigInt(v.Modulus)
	if err != nil {
		return nil, decodeError("decode modulus base64", err)
	}
	exponent, err := decodeBigInt(v.Exponent)
	if err != nil {
		return nil, decodeError("decode exponent base64", err)
	}

	if !exponent.IsInt64() || exponent.Int64() > 1<<31-1 {
		return nil, cryptoError("public exponent out of range", nil)
	}
	pub := &rsa.PublicKey{N: modulus, E: int(exponent.Int64())}
	if err := checkPublicKey(pub); err != nil {
		return nil, err
	}
	return pub, nil
}

// ParsePublicKeyXML is ParseRSAKeyValue followed by PublicKey.
func ParsePublicKeyXML(doc []byte) (*rsa.PublicKey, error) {
	v, err := ParseRSAKeyValue(doc)
	if err != nil {
		return nil, err
	}
	return v.PublicKey()
}

// checkPublicKey rejects keys crypto/rsa cannot verify with.
func checkPublicKey(pub *rsa.PublicKey) error {
	switch {
	case pub == nil || pub.N == nil:
		return cryptoError("public key is missing", nil)
	case pub.N.Sign() <= 0:
		return cryptoError("public modulus must be positive", nil)
	case pub.N.BitLen() < minModulusBits:
		return cryptoError("public modulus too small", nil)
	case pub.N.Bit(0) == 0:
		return cryptoError("public modulus must be odd", nil)
	case pub.E < 2:
		return cryptoError("public exponent too small", nil)
	case pub.E%2 == 0:
		return cryptoError("public exponent must be odd", nil)
	}
	return nil
}

func decodeBigInt(s string) (*big.Int, error) {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(raw), nil
}
