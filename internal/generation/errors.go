package generation

import "errors"

// Kind classifies pipeline failures so callers can react without
// string-matching messages.
type Kind string

const (
	KindConfigurationMissing Kind = "configuration_missing"
	KindSearchUnavailable    Kind = "search_unavailable"
	KindSearchError          Kind = "search_error"
	KindNoExtractableContent Kind = "no_extractable_content"
	KindSynthesisFailed      Kind = "synthesis_failed"
	KindValidation           Kind = "validation"
	KindNotFound             Kind = "not_found"
	KindNotReady             Kind = "not_ready"
	KindAlreadyRunning       Kind = "already_running"
	KindAlreadyPublished     Kind = "already_published"
)

// Error is a classified pipeline error. It survives fmt.Errorf("%w")
// wrapping, so errors.As finds it anywhere in a chain.
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

func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func WrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf extracts the classification from an error chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
