package compose

import "fmt"

// Kind is the stable error discriminant surfaced to callers.
type Kind string

const (
	// KindConfig marks malformed or missing request fields. Never retried,
	// always a client error.
	KindConfig Kind = "config_error"
	// KindFetch marks a remote asset that could not be retrieved.
	KindFetch Kind = "fetch_error"
	// KindConcat marks a failed segment encode or concatenation pass.
	KindConcat Kind = "concat_error"
	// KindEncode marks a failed engine invocation.
	KindEncode Kind = "encode_error"
)

// Error is a classified composition failure. Detail is a short, non-sensitive
// excerpt suitable for a response body; the full cause stays in Err for logs.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError builds a classified Error with a bounded detail excerpt.
func newError(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: excerpt(detail, maxDetailBytes), Err: err}
}

// maxDetailBytes bounds the diagnostic excerpt in responses; the raw engine
// log can be arbitrarily large.
const maxDetailBytes = 512

// excerpt keeps the tail of s, which for encoder logs is where the actual
// error message lives.
func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
