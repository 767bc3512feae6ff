package codec

// streaming.go holds the byte-level stages between a raw source or sink and
// the delimited-text parser and formatter:
//
//   - CountingReader: counts raw bytes consumed from the source
//   - utf8Validator: passes UTF-8 through, failing on the first invalid sequence
//   - utf16Validator: passes UTF-16 through, failing on unpaired surrogates
//   - BOMSkippingReader: removes a decoded byte order mark
//
// decodeStream and encodeStream assemble them for a charset.

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/JonMunkholm/ucsv/internal/dialect"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeStream returns r decoded to UTF-8 under cs, with any leading BOM removed.
// Malformed input surfaces as *EncodingError from Read.
func decodeStream(r io.Reader, cs dialect.Charset) io.Reader {
	var t transform.Transformer
	switch cs.Kind {
	case dialect.KindUTF8:
		t = newUTF8Validator(cs.Name)
	case dialect.KindUTF16:
		t = transform.Chain(newUTF16Validator(cs), cs.Encoding.NewDecoder())
	default:
		t = cs.Encoding.NewDecoder()
	}
	return NewBOMSkippingReader(transform.NewReader(r, t))
}

// encodeStream returns a writer that encodes UTF-8 text into w under cs.
// bom controls whether BOM-bearing charsets emit their mark; it is false when
// appending to a file that already has content.
func encodeStream(w io.Writer, cs dialect.Charset, bom bool) *transform.Writer {
	var t transform.Transformer = newUTF8Validator(cs.Name)
	switch cs.Kind {
	case dialect.KindUTF8:
		if cs.BOM && bom {
			t = transform.Chain(t, unicode.UTF8BOM.NewEncoder())
		}
	case dialect.KindUTF16:
		enc := cs.Encoding
		if cs.BOM && !bom {
			order := unicode.LittleEndian
			if cs.BigEndian {
				order = unicode.BigEndian
			}
			enc = unicode.UTF16(order, unicode.IgnoreBOM)
		}
		t = transform.Chain(t, enc.NewEncoder())
	default:
		t = transform.Chain(t, cs.Encoding.NewEncoder())
	}
	return transform.NewWriter(sinkWriter{w}, t)
}

// sinkWriter tags destination failures so the Writer can tell them apart
// from encoder failures.
type sinkWriter struct {
	w io.Writer
}

func (s sinkWriter) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if err != nil {
		return n, &sinkError{err: err}
	}
	return n, nil
}

// utf8Validator copies valid UTF-8 and stops at the first invalid or
// truncated sequence. Incomplete trailing sequences are held back until more
// input arrives.
type utf8Validator struct {
	encoding string
	offset   int64
}

func newUTF8Validator(name string) *utf8Validator {
	return &utf8Validator{encoding: name}
}

func (v *utf8Validator) Reset() { v.offset = 0 }

func (v *utf8Validator) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	// Most delimited text is ASCII.
	if len(src) <= len(dst) && isAllASCII(src) {
		n := copy(dst, src)
		v.offset += int64(n)
		return n, n, nil
	}

	for nSrc < len(src) {
		size := 1
		if src[nSrc] >= utf8.RuneSelf {
			if !atEOF && incompleteTrailingBytes(src[nSrc:]) == len(src)-nSrc {
				err = transform.ErrShortSrc
				break
			}
			r, sz := utf8.DecodeRune(src[nSrc:])
			if r == utf8.RuneError && sz <= 1 {
				v.offset += int64(nSrc)
				return nDst, nSrc, &EncodingError{
					Encoding: v.encoding,
					Offset:   v.offset,
					Err:      fmt.Errorf("invalid UTF-8 byte 0x%02x", src[nSrc]),
				}
			}
			size = sz
		}
		if nDst+size > len(dst) {
			err = transform.ErrShortDst
			break
		}
		nDst += copy(dst[nDst:], src[nSrc:nSrc+size])
		nSrc += size
	}
	v.offset += int64(nSrc)
	return nDst, nSrc, err
}

// isAllASCII returns true if all bytes are ASCII (< 128).
func isAllASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// incompleteTrailingBytes returns the number of bytes at the end of data
// that could be the start of an incomplete multi-byte UTF-8 sequence.
func incompleteTrailingBytes(data []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b >= 0xC0 {
			if i < runeLen(b) {
				return i
			}
			return 0
		}
		if b&0xC0 != 0x80 {
			return 0
		}
	}
	return 0
}

// runeLen returns the expected length of a UTF-8 sequence starting with byte b.
func runeLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0 // continuation byte
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	}
	return 4
}

// utf16Validator copies UTF-16 code units, failing on unpaired surrogates and
// on an odd trailing byte. When the charset honors a BOM, the first two bytes
// pick the byte order.
type utf16Validator struct {
	encoding     string
	defaultOrder bool // big endian
	bigEndian    bool
	detectBOM    bool
	started      bool
	offset       int64
}

func newUTF16Validator(cs dialect.Charset) *utf16Validator {
	return &utf16Validator{
		encoding:     cs.Name,
		defaultOrder: cs.BigEndian,
		bigEndian:    cs.BigEndian,
		detectBOM:    cs.BOM,
	}
}

func (v *utf16Validator) Reset() {
	v.bigEndian = v.defaultOrder
	v.started = false
	v.offset = 0
}

func (v *utf16Validator) unit(b []byte) uint16 {
	if v.bigEndian {
		return uint16(b[0])<<8 | uint16(b[1])
	}
	return uint16(b[1])<<8 | uint16(b[0])
}

func (v *utf16Validator) fail(nDst, nSrc int, msg string) (int, int, error) {
	v.offset += int64(nSrc)
	return nDst, nSrc, &EncodingError{Encoding: v.encoding, Offset: v.offset, Err: fmt.Errorf("%s", msg)}
}

func (v *utf16Validator) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	if !v.started {
		if len(src) < 2 && !atEOF {
			return 0, 0, transform.ErrShortSrc
		}
		if v.detectBOM && len(src) >= 2 {
			switch {
			case src[0] == 0xFE && src[1] == 0xFF:
				v.bigEndian = true
			case src[0] == 0xFF && src[1] == 0xFE:
				v.bigEndian = false
			}
		}
		v.started = true
	}

loop:
	for nSrc < len(src) {
		rest := len(src) - nSrc
		if rest < 2 {
			if !atEOF {
				err = transform.ErrShortSrc
				break
			}
			return v.fail(nDst, nSrc, "odd number of bytes")
		}

		size := 2
		u := v.unit(src[nSrc:])
		switch {
		case u >= 0xD800 && u < 0xDC00:
			if rest < 4 {
				if !atEOF {
					err = transform.ErrShortSrc
					break loop
				}
				return v.fail(nDst, nSrc, "unpaired high surrogate")
			}
			if lo := v.unit(src[nSrc+2:]); lo < 0xDC00 || lo > 0xDFFF {
				return v.fail(nDst, nSrc, "unpaired high surrogate")
			}
			size = 4
		case u >= 0xDC00 && u <= 0xDFFF:
			return v.fail(nDst, nSrc, "unpaired low surrogate")
		}

		if nDst+size > len(dst) {
			err = transform.ErrShortDst
			break
		}
		nDst += copy(dst[nDst:], src[nSrc:nSrc+size])
		nSrc += size
	}
	v.offset += int64(nSrc)
	return nDst, nSrc, err
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader wraps an io.Reader and skips a leading UTF-8 BOM.
// Placed after decoding, it removes the mark whatever the source encoding was.
type BOMSkippingReader struct {
	reader  io.Reader
	checked bool
	head    []byte
	err     error
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{reader: r}
}

// Read implements io.Reader. On the first read, it checks for and skips the BOM.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		var buf [3]byte
		n, err := io.ReadFull(r.reader, buf[:])
		if n == len(buf) && bytes.Equal(buf[:], utf8BOM) {
			n = 0
		}
		r.head = append(r.head, buf[:n]...)
		switch err {
		case nil:
		case io.ErrUnexpectedEOF:
			r.err = io.EOF
		default:
			r.err = err
		}
	}

	if len(r.head) > 0 {
		n := copy(p, r.head)
		r.head = r.head[n:]
		return n, nil
	}
	if r.err != nil {
		return 0, r.err
	}
	return r.reader.Read(p)
}

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Total     int64 // If known (0 if unknown)
}

// NewCountingReader creates a counting reader with optional total size.
// r may be nil when the reader is handed to WithCounter, which sets the source.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{
		reader: r,
		Total:  total,
	}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (r *CountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	return int(r.BytesRead * 100 / r.Total)
}
