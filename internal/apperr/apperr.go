// Package apperr defines the error taxonomy shared by both services.
// Every failure carries a machine-distinguishable Kind and a human-readable
// detail string; handlers map kinds to HTTP status codes in one place.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal    Kind = iota // catch-all, logged with full context
	KindNotFound                // referenced entity absent
	KindValidation              // malformed or out-of-range input
	KindConflict                // insufficient stock, invalid state change
	KindUnavailable             // peer service or broker unreachable
	KindTimeout                 // peer call exceeded its deadline
	KindBadUpstream             // malformed payload from the peer
	KindPersistence             // local database failure
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "upstream_unavailable"
	case KindTimeout:
		return "upstream_timeout"
	case KindBadUpstream:
		return "upstream_invalid_response"
	case KindPersistence:
		return "persistence"
	default:
		return "internal"
	}
}

type Error struct {
	Kind   Kind
	Detail string
	Err    error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// KindOf extracts the Kind of err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Detail extracts the human-readable detail of err.
func Detail(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail
	}
	return err.Error()
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// HTTPStatus maps an error to the response status the services agree on.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return 404
	case KindValidation:
		return 422
	case KindConflict:
		return 400
	case KindUnavailable:
		return 503
	case KindTimeout:
		return 504
	default:
		return 500
	}
}
