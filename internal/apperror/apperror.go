package apperror

import "errors"

// Kind is the semantic category of an error surfaced to callers.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidTimestamp
	KindInvalidDateFormat
	KindValidation
	KindUnauthorized
	KindStoreUnavailable
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindInvalidTimestamp:
		return "invalid_timestamp"
	case KindInvalidDateFormat:
		return "invalid_date_format"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindConfiguration:
		return "configuration"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}

func newError(kind Kind, message string, errs []error) *Error {
	return &Error{Kind: kind, Message: message, Err: errors.Join(errs...)}
}

func NewInvalidTimestamp(message string, err ...error) *Error {
	return newError(KindInvalidTimestamp, message, err)
}

func NewInvalidDateFormat(message string, err ...error) *Error {
	return newError(KindInvalidDateFormat, message, err)
}

func NewValidation(message string, err ...error) *Error {
	return newError(KindValidation, message, err)
}

func NewUnauthorized(message string, err ...error) *Error {
	return newError(KindUnauthorized, message, err)
}

func NewStoreUnavailable(message string, err ...error) *Error {
	return newError(KindStoreUnavailable, message, err)
}

func NewConfiguration(message string, err ...error) *Error {
	return newError(KindConfiguration, message, err)
}

func NewInternal(message string, err ...error) *Error {
	return newError(KindInternal, message, err)
}
