package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/JonMunkholm/ucsv/internal/dialect"
	"golang.org/x/text/transform"
)

// DefaultBufferSize is the number of bytes of formatted text buffered before
// they are encoded and written to the destination.
const DefaultBufferSize = 16 * 1024

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithHeaderFields fixes the column order. Without it, the keys of the first
// record written are used.
func WithHeaderFields(names ...string) WriterOption {
	return func(w *Writer) {
		w.fieldNames = append([]string(nil), names...)
	}
}

// WithHeader controls whether a header line is written. Default true.
func WithHeader(on bool) WriterOption {
	return func(w *Writer) {
		w.header = on
	}
}

// WithAppend marks the destination as an existing file being extended:
// no header line is written.
func WithAppend(on bool) WriterOption {
	return func(w *Writer) {
		w.append = on
	}
}

// WithBOM controls whether BOM-bearing encodings emit their byte order mark.
// Default true; pass false when appending to a non-empty file.
func WithBOM(on bool) WriterOption {
	return func(w *Writer) {
		w.bom = on
	}
}

// WithBufferSize sets the formatted-text buffer size.
func WithBufferSize(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.bufSize = n
		}
	}
}

// WithCloser gives the Writer ownership of c; Close closes it after flushing.
func WithCloser(c io.Closer) WriterOption {
	return func(w *Writer) {
		w.closer = c
	}
}

// WithRowHook calls fn after each data line is buffered. Header lines do not count.
func WithRowHook(fn func()) WriterOption {
	return func(w *Writer) {
		w.onRow = fn
	}
}

// Writer encodes records or tuples as delimited text under a dialect.
//
// Output is buffered. Call Close to flush, finish the encoding and release
// the destination if the Writer owns it. A Writer is not safe for concurrent use.
type Writer struct {
	dialect dialect.Dialect
	charset dialect.Charset
	dst     io.Writer
	buf     *bufio.Writer
	enc     *transform.Writer
	closer  io.Closer

	fieldNames []string
	header     bool
	append     bool
	bom        bool
	bufSize    int
	onRow      func()

	headerDone bool
	wroteAny   bool
	closed     bool
	err        error // sticky write error
	closeErr   error

	specials string // runes that force quoting or escaping
	line     strings.Builder
}

// NewWriter returns a Writer encoding into dst under d.
func NewWriter(dst io.Writer, d dialect.Dialect, opts ...WriterOption) (*Writer, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	cs, err := dialect.LookupCharset(d.Encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", dialect.ErrInvalidDialect, err)
	}

	w := &Writer{
		dialect: d,
		charset: cs,
		dst:     dst,
		header:  true,
		bom:     true,
		bufSize: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(w)
	}

	specials := []rune{d.Delimiter, '\r', '\n'}
	if d.QuoteChar != 0 {
		specials = append(specials, d.QuoteChar)
	}
	if d.HasEscape() {
		specials = append(specials, d.EscapeChar)
	}
	w.specials = string(specials) + d.LineTerminator

	w.enc = encodeStream(dst, cs, w.bom)
	w.buf = bufio.NewWriterSize(w.enc, w.bufSize)
	return w, nil
}

// Dialect returns the dialect the Writer encodes.
func (w *Writer) Dialect() dialect.Dialect {
	return w.dialect
}

// FieldNames returns the column order, or nil if it is not known yet.
func (w *Writer) FieldNames() []string {
	return append([]string(nil), w.fieldNames...)
}

// SetFieldNames fixes the column order of a Writer created without one. It
// fails once any line has been written.
func (w *Writer) SetFieldNames(names []string) error {
	if err := w.usable(); err != nil {
		return err
	}
	if w.wroteAny || w.headerDone {
		return errors.New("codec: field names set after first line")
	}
	w.fieldNames = append([]string{}, names...)
	return nil
}

// Write writes one record. Values are looked up by field name; missing names
// are written as empty fields and names outside the column order are ignored.
func (w *Writer) Write(rec *Record) error {
	if err := w.usable(); err != nil {
		return err
	}
	if w.fieldNames == nil {
		w.fieldNames = rec.Keys()
	}
	if err := w.writeHeader(); err != nil {
		return err
	}
	values := make([]string, len(w.fieldNames))
	for i, name := range w.fieldNames {
		values[i] = rec.Value(name)
	}
	return w.writeRow(values)
}

// WriteAll writes every record in seq, stopping at the first error.
func (w *Writer) WriteAll(seq iter.Seq[*Record]) error {
	for rec := range seq {
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// WriteRecords writes a slice of records.
func (w *Writer) WriteRecords(recs []*Record) error {
	for _, rec := range recs {
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// WriteTuple writes one positional line, bypassing field-name lookup. When
// field names were given with WithHeaderFields, the header line precedes the
// first line written.
func (w *Writer) WriteTuple(values []string) error {
	if err := w.usable(); err != nil {
		return err
	}
	if err := w.writeHeader(); err != nil {
		return err
	}
	return w.writeRow(values)
}

// WriteTuples writes every tuple in seq, stopping at the first error.
func (w *Writer) WriteTuples(seq iter.Seq[[]string]) error {
	for values := range seq {
		if err := w.WriteTuple(values); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes buffered text through the encoder to the destination.
func (w *Writer) Flush() error {
	if err := w.usable(); err != nil {
		return err
	}
	if err := w.buf.Flush(); err != nil {
		return w.fail(err)
	}
	return nil
}

// Close flushes buffered output, finishes the encoding and closes the
// destination if the Writer owns it. If field names are known and nothing
// was written, the header line is written first so the output is a valid,
// empty table. Close is idempotent; later calls return the first result.
func (w *Writer) Close() error {
	if w.closed {
		return w.closeErr
	}
	w.closed = true

	err := w.err
	if err == nil && !w.wroteAny && w.fieldNames != nil {
		err = w.writeHeader()
	}
	if err == nil {
		if ferr := w.buf.Flush(); ferr != nil {
			err = w.wrapErr(ferr)
		}
	}
	if err == nil {
		if cerr := w.enc.Close(); cerr != nil {
			err = w.wrapErr(cerr)
		}
	}
	if w.closer != nil {
		if cerr := w.closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	w.closeErr = err
	return err
}

func (w *Writer) usable() error {
	if w.closed {
		return ErrWriterClosed
	}
	return w.err
}

func (w *Writer) writeHeader() error {
	if w.headerDone || w.fieldNames == nil {
		return nil
	}
	w.headerDone = true
	if !w.header || w.append || len(w.fieldNames) == 0 {
		return nil
	}
	return w.writeLine(w.fieldNames)
}

func (w *Writer) writeRow(values []string) error {
	if err := w.writeLine(values); err != nil {
		return err
	}
	if w.onRow != nil {
		w.onRow()
	}
	return nil
}

func (w *Writer) writeLine(values []string) error {
	if w.dialect.Quoting == dialect.QuoteNone && len(values) == 1 && values[0] == "" {
		// Without quotes a lone empty field is a blank line, which readers skip.
		return fmt.Errorf("%w: single empty field must be quoted", ErrUnrepresentable)
	}
	w.line.Reset()
	for i, v := range values {
		if i > 0 {
			w.line.WriteRune(w.dialect.Delimiter)
		}
		w.formatField(v, len(values) == 1)
	}
	w.line.WriteString(w.dialect.LineTerminator)

	w.wroteAny = true
	if _, err := w.buf.WriteString(w.line.String()); err != nil {
		return w.fail(err)
	}
	return nil
}

func (w *Writer) formatField(v string, only bool) {
	d := w.dialect
	special := strings.ContainsAny(v, w.specials)

	var quoted bool
	switch d.Quoting {
	case dialect.QuoteAll:
		quoted = true
	case dialect.QuoteMinimal:
		// A lone empty field is quoted so the line does not read back as blank.
		quoted = special || (only && v == "")
	}

	if !special {
		if quoted {
			w.line.WriteRune(d.QuoteChar)
			w.line.WriteString(v)
			w.line.WriteRune(d.QuoteChar)
		} else {
			w.line.WriteString(v)
		}
		return
	}

	if quoted {
		w.line.WriteRune(d.QuoteChar)
	}
	for _, c := range v {
		switch {
		case quoted && c == d.QuoteChar:
			if d.DoubleQuote {
				w.line.WriteRune(c)
			} else {
				w.line.WriteRune(d.EscapeChar)
			}
		case d.HasEscape() && c == d.EscapeChar:
			w.line.WriteRune(d.EscapeChar)
		case !quoted && strings.ContainsRune(w.specials, c):
			w.line.WriteRune(d.EscapeChar)
		}
		w.line.WriteRune(c)
	}
	if quoted {
		w.line.WriteRune(d.QuoteChar)
	}
}

// fail records a write error so every later call reports it.
func (w *Writer) fail(err error) error {
	w.err = w.wrapErr(err)
	return w.err
}

// wrapErr keeps destination errors as they are and reports anything else
// coming out of the encoder as an *EncodingError.
func (w *Writer) wrapErr(err error) error {
	var sink *sinkError
	if errors.As(err, &sink) {
		return sink.err
	}
	var encErr *EncodingError
	if errors.As(err, &encErr) {
		return err
	}
	return &EncodingError{Encoding: w.charset.Name, Err: err}
}
