package core

import (
	"context"
	"errors"
	"io/fs"

	"github.com/JonMunkholm/ucsv/internal/codec"
	"github.com/JonMunkholm/ucsv/internal/dialect"
)

// ErrSequenceConsumed is yielded when a record or tuple sequence is ranged over a second time.
var ErrSequenceConsumed = errors.New("sequence already consumed")

// Error kinds reported to observers and used by the web layer.
const (
	KindUnknownDialect = "unknown_dialect"
	KindInvalidDialect = "invalid_dialect"
	KindMalformed      = "malformed_record"
	KindParse          = "parse"
	KindEncoding       = "encoding"
	KindNotFound       = "not_found"
	KindCanceled       = "canceled"
	KindIO             = "io"
)

// ErrorKind classifies err into one of the Kind constants.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, dialect.ErrUnknownDialect):
		return KindUnknownDialect
	case errors.Is(err, dialect.ErrInvalidDialect):
		return KindInvalidDialect
	case errors.Is(err, codec.ErrMalformedRecord):
		return KindMalformed
	case errors.Is(err, codec.ErrUnterminatedQuote):
		return KindParse
	case errors.Is(err, codec.ErrEncoding):
		return KindEncoding
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindIO
	}
}
