package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/JonMunkholm/ucsv/internal/dialect"
)

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithFieldNames fixes the field names; the first line is then read as data.
func WithFieldNames(names ...string) ReaderOption {
	return func(r *Reader) {
		r.fieldNames = append([]string(nil), names...)
		r.headerDone = true
	}
}

// WithFieldNameMapper transforms each field name, whether taken from the
// header line or given with WithFieldNames.
func WithFieldNameMapper(fn func(string) string) ReaderOption {
	return func(r *Reader) {
		r.mapName = fn
	}
}

// WithCounter counts raw source bytes, before decoding, into c.
func WithCounter(c *CountingReader) ReaderOption {
	return func(r *Reader) {
		r.counter = c
	}
}

// Reader decodes delimited text into tuples or records under a dialect.
//
// A Reader is single-pass and not safe for concurrent use.
type Reader struct {
	dialect dialect.Dialect
	src     *bufio.Reader

	delim       rune
	quote       rune
	escape      rune
	doubleQuote bool
	quoting     dialect.QuotingPolicy

	fieldNames []string
	mapName    func(string) string
	headerDone bool
	counter    *CountingReader

	line       int // current physical line, 1-based
	column     int // rune column on the current line
	recordLine int // line the last record started on
	field      strings.Builder
	err        error // sticky source error
}

// NewReader returns a Reader decoding src under d.
func NewReader(src io.Reader, d dialect.Dialect, opts ...ReaderOption) (*Reader, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	cs, err := dialect.LookupCharset(d.Encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", dialect.ErrInvalidDialect, err)
	}

	r := &Reader{
		dialect:     d,
		delim:       d.Delimiter,
		quote:       d.QuoteChar,
		escape:      d.EscapeChar,
		doubleQuote: d.DoubleQuote,
		quoting:     d.Quoting,
		line:        1,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.headerDone {
		r.applyMapper(r.fieldNames)
	}
	if r.counter != nil {
		r.counter.reader = src
		src = r.counter
	}
	r.src = bufio.NewReader(decodeStream(src, cs))
	return r, nil
}

// Records decodes src under d and iterates over its records.
func Records(src io.Reader, d dialect.Dialect, opts ...ReaderOption) iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		r, err := NewReader(src, d, opts...)
		if err != nil {
			yield(nil, err)
			return
		}
		r.Records()(yield)
	}
}

// Tuples decodes src under d and iterates over its non-blank lines.
func Tuples(src io.Reader, d dialect.Dialect, opts ...ReaderOption) iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		r, err := NewReader(src, d, opts...)
		if err != nil {
			yield(nil, err)
			return
		}
		r.Tuples()(yield)
	}
}

// ReadAll decodes every record of src under d.
func ReadAll(src io.Reader, d dialect.Dialect, opts ...ReaderOption) ([]*Record, error) {
	r, err := NewReader(src, d, opts...)
	if err != nil {
		return nil, err
	}
	return r.ReadAll()
}

func (r *Reader) applyMapper(names []string) {
	if r.mapName == nil {
		return
	}
	for i, name := range names {
		names[i] = r.mapName(name)
	}
}

// Dialect returns the dialect the Reader decodes.
func (r *Reader) Dialect() dialect.Dialect {
	return r.dialect
}

// Line returns the line on which the most recently read record started.
func (r *Reader) Line() int {
	return r.recordLine
}

// Header returns the field names, reading the header line if it has not been
// read yet. An input with no non-blank line returns io.EOF.
func (r *Reader) Header() ([]string, error) {
	if err := r.ensureHeader(); err != nil {
		return nil, err
	}
	return append([]string(nil), r.fieldNames...), nil
}

func (r *Reader) ensureHeader() error {
	if r.headerDone {
		return nil
	}
	for {
		fields, err := r.ReadTuple()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			continue
		}
		r.applyMapper(fields)
		r.fieldNames = fields
		r.headerDone = true
		return nil
	}
}

// Read returns the next record. Blank lines are skipped. A line with fewer
// fields than the header is padded with empty strings; one with more returns
// *MalformedRecordError. Read returns io.EOF at end of input.
func (r *Reader) Read() (*Record, error) {
	if err := r.ensureHeader(); err != nil {
		return nil, err
	}
	for {
		fields, err := r.ReadTuple()
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			continue
		}
		if len(fields) > len(r.fieldNames) {
			return nil, &MalformedRecordError{
				Line:     r.recordLine,
				Expected: len(r.fieldNames),
				Got:      len(fields),
			}
		}
		return RecordFromSlices(r.fieldNames, fields), nil
	}
}

// Records iterates over the remaining records. Iteration stops after the
// first error, which is yielded with a nil record.
func (r *Reader) Records() iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		for {
			rec, err := r.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Tuples iterates over the remaining lines as positional field lists,
// without header handling. Blank lines are skipped.
func (r *Reader) Tuples() iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		for {
			fields, err := r.ReadTuple()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if len(fields) == 0 {
				continue
			}
			if !yield(fields, nil) {
				return
			}
		}
	}
}

// ReadAll reads every remaining record.
func (r *Reader) ReadAll() ([]*Record, error) {
	var out []*Record
	for rec, err := range r.Records() {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

type parseState int

const (
	stateStartRecord parseState = iota
	stateStartField
	stateInField
	stateEscapeInField
	stateInQuoted
	stateEscapeInQuoted
	stateQuoteInQuoted
)

// ReadTuple returns the fields of the next line. A blank line yields an
// empty, non-nil slice. ReadTuple returns io.EOF at end of input.
//
// CR, LF and CRLF all end a record. Quote characters appearing inside an
// unquoted field, or after a closing quote, are kept literally.
func (r *Reader) ReadTuple() ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	var fields []string
	state := stateStartRecord
	r.recordLine = r.line
	r.field.Reset()

	saveField := func() {
		fields = append(fields, r.field.String())
		r.field.Reset()
	}

	for {
		c, _, err := r.src.ReadRune()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.err = err
				return nil, err
			}
			switch state {
			case stateStartRecord:
				return nil, io.EOF
			case stateInQuoted, stateEscapeInQuoted:
				return nil, &ParseError{Line: r.line, Column: r.column, Err: ErrUnterminatedQuote}
			case stateEscapeInField:
				r.field.WriteRune(r.escape)
			}
			saveField()
			return fields, nil
		}
		r.column++

		isEOL := c == '\n' || c == '\r'
		switch state {
		case stateStartRecord:
			if isEOL {
				r.endLine(c)
				return []string{}, nil
			}
			state = r.startField(c, saveField)

		case stateStartField:
			if isEOL {
				saveField()
				r.endLine(c)
				return fields, nil
			}
			state = r.startField(c, saveField)

		case stateInField:
			switch {
			case isEOL:
				saveField()
				r.endLine(c)
				return fields, nil
			case r.escape != 0 && c == r.escape:
				state = stateEscapeInField
			case c == r.delim:
				saveField()
				state = stateStartField
			default:
				r.field.WriteRune(c)
			}

		case stateEscapeInField:
			r.field.WriteRune(c)
			r.countEmbeddedLine(c)
			state = stateInField

		case stateInQuoted:
			switch {
			case r.escape != 0 && c == r.escape:
				state = stateEscapeInQuoted
			case c == r.quote:
				if r.doubleQuote {
					state = stateQuoteInQuoted
				} else {
					state = stateInField
				}
			default:
				r.field.WriteRune(c)
				r.countEmbeddedLine(c)
			}

		case stateEscapeInQuoted:
			r.field.WriteRune(c)
			r.countEmbeddedLine(c)
			state = stateInQuoted

		case stateQuoteInQuoted:
			switch {
			case c == r.quote:
				r.field.WriteRune(c)
				state = stateInQuoted
			case c == r.delim:
				saveField()
				state = stateStartField
			case isEOL:
				saveField()
				r.endLine(c)
				return fields, nil
			default:
				r.field.WriteRune(c)
				state = stateInField
			}
		}
	}
}

// startField handles the first rune of a field that is not a line break.
func (r *Reader) startField(c rune, saveField func()) parseState {
	switch {
	case c == r.quote && r.quoting != dialect.QuoteNone:
		return stateInQuoted
	case r.escape != 0 && c == r.escape:
		return stateEscapeInField
	case c == r.delim:
		saveField()
		return stateStartField
	default:
		r.field.WriteRune(c)
		return stateInField
	}
}

// endLine consumes the LF of a CRLF pair and advances the line counter.
func (r *Reader) endLine(c rune) {
	if c == '\r' {
		next, _, err := r.src.ReadRune()
		switch {
		case err == nil && next != '\n':
			_ = r.src.UnreadRune()
		case err != nil && !errors.Is(err, io.EOF):
			r.err = err
		}
	}
	r.line++
	r.column = 0
}

// countEmbeddedLine keeps line numbers right across line breaks inside quoted or escaped fields.
func (r *Reader) countEmbeddedLine(c rune) {
	if c == '\n' {
		r.line++
		r.column = 0
	}
}
