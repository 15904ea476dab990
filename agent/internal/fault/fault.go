package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide policy without
// matching on message text.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindTransport
	KindDecryption
	KindDispatch
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindDecryption:
		return "decryption"
	case KindDispatch:
		return "dispatch"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Error is a categorized failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failed", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Transport(op string, err error) error     { return New(KindTransport, op, err) }
func Decryption(op string, err error) error    { return New(KindDecryption, op, err) }
func Dispatch(op string, err error) error      { return New(KindDispatch, op, err) }
func Configuration(op string, err error) error { return New(KindConfiguration, op, err) }

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
