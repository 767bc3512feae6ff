package core

import "github.com/JonMunkholm/ucsv/internal/dialect"

// Observer receives per-record and per-session events from Files.
// Implementations must be safe for concurrent use when one Files value
// serves several goroutines.
type Observer interface {
	RecordRead(d dialect.Dialect)
	RecordWritten(d dialect.Dialect)
	BytesRead(d dialect.Dialect, n int64)
	SessionError(op, kind string)
}

type nopObserver struct{}

func (nopObserver) RecordRead(dialect.Dialect)       {}
func (nopObserver) RecordWritten(dialect.Dialect)    {}
func (nopObserver) BytesRead(dialect.Dialect, int64) {}
func (nopObserver) SessionError(string, string)      {}
