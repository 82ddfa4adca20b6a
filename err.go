package dagjson

import (
	"fmt"

	ipld "github.com/ipld/go-ipld-prime"
)

// A SyntaxError is returned when the decoder encounters input that is not
// well-formed JSON and no more specific error type applies.
type SyntaxError struct {
	Msg    string
	Offset uint64
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("dagjson: syntax error: %v (offset %v)", e.Msg, e.Offset)
}

// An UnexpectedEOFError is returned when the input ends in the middle of a
// value.
type UnexpectedEOFError struct {
	Offset uint64
}

func (e *UnexpectedEOFError) Error() string {
	return fmt.Sprintf("dagjson: unexpected end of input (offset %v)", e.Offset)
}

// A DuplicateKeyError is returned when a JSON object contains the same key
// twice. DAG-JSON maps have unique keys; a repeated key is an error, not a
// last-write-wins overwrite.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("dagjson: duplicate map key %q", e.Key)
}

// A TrailingDataError is returned when anything but JSON whitespace follows
// the single top-level value of a document.
type TrailingDataError struct {
	Offset uint64
}

func (e *TrailingDataError) Error() string {
	return fmt.Sprintf("dagjson: trailing data after top-level value (offset %v)", e.Offset)
}

// A NumberOutOfRangeError is returned when an integer in the input does not
// fit in an int64.
type NumberOutOfRangeError struct {
	Number string
}

func (e *NumberOutOfRangeError) Error() string {
	return fmt.Sprintf("dagjson: number out of range: %v", e.Number)
}

// An UnsupportedValueError is returned by the encoder for float values that
// JSON cannot represent: NaN and the infinities.
type UnsupportedValueError struct {
	Value float64
}

func (e *UnsupportedValueError) Error() string {
	return fmt.Sprintf("dagjson: unsupported value: %v", e.Value)
}

// An UnsupportedTypeError is returned by the encoder for data-model shapes
// that have no DAG-JSON representation, such as maps with non-string keys or
// link implementations that are not CID-backed.
type UnsupportedTypeError struct {
	Kind ipld.Kind
	Msg  string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("dagjson: unsupported %v: %v", e.Kind, e.Msg)
}

// An InvalidLinkError is returned when a link wrapper object carries a string
// that does not parse as a CID.
type InvalidLinkError struct {
	Str string
	Err error
}

func (e *InvalidLinkError) Error() string {
	return fmt.Sprintf("dagjson: invalid link %q: %v", e.Str, e.Err)
}

// An InvalidBytesError is returned when a bytes wrapper object does not carry
// a decodable base64 string.
type InvalidBytesError struct {
	Msg string
}

func (e *InvalidBytesError) Error() string {
	return fmt.Sprintf("dagjson: invalid bytes wrapper: %v", e.Msg)
}

// A DepthExceededError is returned when a value nests more deeply than the
// codec's recursion guard allows.
type DepthExceededError struct {
	Limit int
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("dagjson: nesting depth exceeds %v", e.Limit)
}
