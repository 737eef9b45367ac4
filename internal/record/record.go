// Package record encodes key/value pairs as single text lines of the form
// "key,value". The encoding has no escaping, so neither field may contain
// the separator or a line terminator.
package record

import (
	"errors"
	"fmt"
	"strings"
)

// Separator splits the key from the value within a line.
const Separator = ","

// forbidden lists the characters a key or value may not contain.
const forbidden = ",\n\r"

var (
	// ErrInvalidField is returned when a key or value contains the
	// separator or a line terminator.
	ErrInvalidField = errors.New("field contains separator or line terminator")

	// ErrMalformed matches every *MalformedError.
	ErrMalformed = errors.New("malformed record")
)

// Record is one key/value pair as persisted in the log.
type Record struct {
	Key   string
	Value string
}

// MalformedError reports a line that does not split into exactly two fields.
type MalformedError struct {
	Line string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed record %q: want exactly one %q", e.Line, Separator)
}

func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

// Validate checks that key and value can be encoded without ambiguity.
func Validate(key, value string) error {
	if strings.ContainsAny(key, forbidden) {
		return fmt.Errorf("key %q: %w", key, ErrInvalidField)
	}
	if strings.ContainsAny(value, forbidden) {
		return fmt.Errorf("value %q: %w", value, ErrInvalidField)
	}
	return nil
}

// Encode returns the line for key and value, without a terminator.
func Encode(key, value string) (string, error) {
	if err := Validate(key, value); err != nil {
		return "", err
	}
	return key + Separator + value, nil
}

// Decode parses a line produced by Encode. The line must not include its
// terminator.
func Decode(line string) (Record, error) {
	key, value, ok := strings.Cut(line, Separator)
	if !ok || strings.Contains(value, Separator) {
		return Record{}, &MalformedError{Line: line}
	}
	return Record{Key: key, Value: value}, nil
}

// IsBlank reports whether line carries no record at all, such as the empty
// line produced by a trailing newline or by torn-tail repair.
func IsBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
