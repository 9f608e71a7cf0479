package core

import "errors"

// Error is a validation failure with a stable wire name.
type Error struct {
	kind string
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Kind returns the wire name, e.g. "invalid-amount".
func (e *Error) Kind() string { return e.kind }

func newError(kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

var (
	ErrInvalidAmount       = newError("invalid-amount", "invalid amount")
	ErrMissingSource       = newError("missing-source", "missing income source")
	ErrInvalidCategory     = newError("invalid-category", "invalid expense category")
	ErrNoGoalProvided      = newError("no-goal-provided", "no goal provided")
	ErrInvalidImportFormat = newError("invalid-import-format", "invalid import format")
	ErrInvalidCurrency     = newError("invalid-currency", "invalid currency")
	ErrNothingToExport     = newError("nothing-to-export", "no transactions to export")
)

// ErrorKind extracts the wire name of a validation error anywhere in err's chain.
func ErrorKind(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.kind, true
	}
	return "", false
}
