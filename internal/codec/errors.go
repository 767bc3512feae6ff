package codec

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrUnterminatedQuote is returned when a quoted field is still open at end of input.
	ErrUnterminatedQuote = errors.New("unterminated quoted field")

	// ErrMalformedRecord indicates a data line has more fields than the header.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrEncoding indicates bytes that cannot be decoded, or text that cannot
	// be encoded, under the dialect's encoding.
	ErrEncoding = errors.New("encoding error")

	// ErrWriterClosed is returned by writes after Close.
	ErrWriterClosed = errors.New("writer is closed")

	// ErrUnrepresentable indicates a row the dialect cannot write so that it
	// reads back unchanged.
	ErrUnrepresentable = errors.New("record cannot be represented in dialect")
)

// ParseError carries the position of a syntax error in the input.
type ParseError struct {
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error on line %d, column %d: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// MalformedRecordError reports a data line wider than the field-name sequence.
// Short lines are not an error; their missing trailing fields read as empty.
type MalformedRecordError struct {
	Line     int // line on which the record starts
	Expected int // number of field names
	Got      int // number of fields on the line
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%s on line %d: %d fields, header has %d", ErrMalformedRecord, e.Line, e.Got, e.Expected)
}

func (e *MalformedRecordError) Unwrap() error {
	return ErrMalformedRecord
}

// EncodingError reports text that does not survive the dialect's encoding.
// Offset counts bytes of the validated stream: raw input bytes when
// reading, UTF-8 text bytes when writing.
type EncodingError struct {
	Encoding string
	Offset   int64
	Err      error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s) at byte %d: %v", ErrEncoding, e.Encoding, e.Offset, e.Err)
	}
	return fmt.Sprintf("%s (%s) at byte %d", ErrEncoding, e.Encoding, e.Offset)
}

func (e *EncodingError) Unwrap() error {
	return ErrEncoding
}

// sinkError marks failures of the destination itself, so they are not
// mistaken for encoder failures when they surface through the encoder.
type sinkError struct {
	err error
}

func (e *sinkError) Error() string { return e.err.Error() }
func (e *sinkError) Unwrap() error { return e.err }
