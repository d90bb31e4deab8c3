package licensekey

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide how to react to it.
type Kind int

const (
	KindTransport  Kind = iota + 1 // reaching the activation endpoint failed
	KindAPI                        // the server reported a logical failure
	KindDecode                     // base64, JSON or XML could not be decoded
	KindCrypto                     // key or verifier construction failed
	KindValidation                 // a required request field is missing
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAPI:
		return "api"
	case KindDecode:
		return "decode"
	case KindCrypto:
		return "crypto"
	case KindValidation:
		return "validation"
	}
	return "unknown"
}

// Error is the error type returned by every operation in this package.
// For KindAPI, Message is the server's message verbatim.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match against the kind sentinels (ErrAPI, ErrDecode, ...).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrTransport  = &Error{Kind: KindTransport}
	ErrAPI        = &Error{Kind: KindAPI}
	ErrDecode     = &Error{Kind: KindDecode}
	ErrCrypto     = &Error{Kind: KindCrypto}
	ErrValidation = &Error{Kind: KindValidation}
)

// ErrUnsigned is returned when signature verification is requested for a
// record that was decoded from an inline (direct-object) payload. Such records
// carry no signed bytes, so their authenticity cannot be established.
var ErrUnsigned = errors.New("license key has no signed payload")

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// TransportError wraps a failure from the layer that delivers the response.
func TransportError(msg string, err error) error {
	return &Error{Kind: KindTransport, Message: msg, Err: err}
}

func decodeError(msg string, err error) error {
	return &Error{Kind: KindDecode, Message: msg, Err: err}
}

func cryptoError(msg string, err error) error {
	return &Error{Kind: KindCrypto, Message: msg, Err: err}
}
