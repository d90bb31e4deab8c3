package machine

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Fingerprint derives a machine code from host identifiers.
// Format: base64url(SHA256(UTF16LE(part1|part2|...))), unpadded.
func Fingerprint(parts ...string) (string, error) {
	joined := strings.Join(parts, "|")

	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	utf16Str, _, err := transform.String(enc, joined)
	if err != nil {
		return "", fmt.Errorf("encode UTF-16LE: %w", err)
	}

	sum := sha256.Sum256([]byte(utf16Str))
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}
