package orders

import "errors"

// Kind is a stable discriminator surfaced to API clients alongside the
// human-readable message.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindInsufficientStock Kind = "insufficient_stock"
	KindInvalidState      Kind = "invalid_state"
	KindInvalidAction     Kind = "invalid_action"
)

type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func Validation(msg string) error        { return &Error{Kind: KindValidation, Msg: msg} }
func NotFound(msg string) error          { return &Error{Kind: KindNotFound, Msg: msg} }
func Forbidden(msg string) error         { return &Error{Kind: KindForbidden, Msg: msg} }
func InsufficientStock(msg string) error { return &Error{Kind: KindInsufficientStock, Msg: msg} }
func InvalidState(msg string) error      { return &Error{Kind: KindInvalidState, Msg: msg} }
func InvalidAction(msg string) error     { return &Error{Kind: KindInvalidAction, Msg: msg} }

// KindOf returns the error's kind, or "" for errors outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
