package rules

import "fmt"

// InvalidInputError is returned by the matcher when the match pattern cannot
// be used at all, i.e. when its matching part is empty.
type InvalidInputError struct {
	// Pattern is the original pattern text.
	Pattern string
}

// Error implements the error interface for *InvalidInputError.
func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid match pattern: %q", e.Pattern)
}

// FormatError is returned by the deserialization functions when the rule data
// misses a required field or a field has the wrong type.
type FormatError struct {
	msg string

	// Field is the name of the offending field, "p" or "s".
	Field string
}

// Error implements the error interface for *FormatError.  An empty Field
// means the whole rule document, not one of its fields, has the wrong shape.
func (e *FormatError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("bad rule data: %s", e.msg)
	}

	return fmt.Sprintf("bad rule data: field %q: %s", e.Field, e.msg)
}

// ParseError is returned when the serialized rule text is not valid JSON.
type ParseError struct {
	// Err is the underlying decoding error.
	Err error
}

// Error implements the error interface for *ParseError.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing rule: %s", e.Err)
}

// Unwrap returns the underlying decoding error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
