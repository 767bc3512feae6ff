package core

import (
	"context"
	"log/slog"
	"os"

	"github.com/JonMunkholm/ucsv/internal/codec"
	"github.com/JonMunkholm/ucsv/internal/dialect"
	"github.com/JonMunkholm/ucsv/internal/logging"
	"github.com/google/uuid"
)

// session tracks one open file: its log context, counters and the handle
// to release. Stdio sessions have no handle.
type session struct {
	id       string
	op       string
	path     string
	dialect  dialect.Dialect
	logger   *slog.Logger
	observer Observer

	file    *os.File
	counter *codec.CountingReader
	records int64
	failed  bool
	closed  bool
}

func (f *Files) startSession(ctx context.Context, op, path string, d dialect.Dialect) *session {
	id := uuid.NewString()
	s := &session{
		id:       id,
		op:       op,
		path:     path,
		dialect:  d,
		observer: f.observer,
		logger: logging.WithFields(ctx,
			"session_id", id,
			"op", op,
			"path", path,
			"dialect", d.Name,
		),
	}
	s.logger.Debug("session opened", "encoding", d.Encoding)
	return s
}

func (s *session) recordRead() {
	s.records++
	s.observer.RecordRead(s.dialect)
}

func (s *session) recordWritten() {
	s.records++
	s.observer.RecordWritten(s.dialect)
}

// fail reports the first error of the session.
func (s *session) fail(err error) {
	if s.failed {
		return
	}
	s.failed = true
	kind := ErrorKind(err)
	s.observer.SessionError(s.op, kind)
	s.logger.Warn("session failed", "kind", kind, "records", s.records, "error", err)
}

// Close releases the file handle once and logs the session summary.
func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var bytesRead int64
	if s.counter != nil {
		bytesRead = s.counter.BytesRead
		s.observer.BytesRead(s.dialect, bytesRead)
	}

	var err error
	if s.file != nil {
		err = s.file.Close()
	}
	s.logger.Debug("session closed", "records", s.records, "bytes_read", bytesRead)
	return err
}
