package core

import (
	"context"
	"io"
	"iter"
	"os"
	"slices"
	"sync/atomic"

	"github.com/JonMunkholm/ucsv/internal/codec"
	"github.com/JonMunkholm/ucsv/internal/dialect"
)

// Files reads and writes delimited-text files by path, choosing the dialect
// from the path's extension. The path "-" means stdin for reads and stdout
// for writes; neither is ever closed.
type Files struct {
	registry   *dialect.Registry
	stdin      io.Reader
	stdout     io.Writer
	observer   Observer
	bufferSize int
}

// FilesOption configures Files.
type FilesOption func(*Files)

// WithStdio replaces os.Stdin and os.Stdout for the "-" path.
func WithStdio(in io.Reader, out io.Writer) FilesOption {
	return func(f *Files) {
		f.stdin = in
		f.stdout = out
	}
}

// WithObserver sets the receiver of record and session events.
func WithObserver(o Observer) FilesOption {
	return func(f *Files) {
		if o != nil {
			f.observer = o
		}
	}
}

// WithBufferSize sets the write buffer size of every writer opened.
func WithBufferSize(n int) FilesOption {
	return func(f *Files) {
		if n > 0 {
			f.bufferSize = n
		}
	}
}

// NewFiles returns Files resolving dialects through reg. A nil registry gets
// the default bindings.
func NewFiles(reg *dialect.Registry, opts ...FilesOption) *Files {
	if reg == nil {
		reg = dialect.NewRegistry()
	}
	f := &Files{
		registry:   reg,
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		observer:   nopObserver{},
		bufferSize: codec.DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Streams returns a copy of f whose "-" path reads in and writes out. The
// copy shares the registry and observer.
func (f *Files) Streams(in io.Reader, out io.Writer) *Files {
	c := *f
	c.stdin = in
	c.stdout = out
	return &c
}

// Registry returns the dialect registry.
func (f *Files) Registry() *dialect.Registry {
	return f.registry
}

// ResolveDialect returns the dialect for a file name or the "-" sentinel.
func (f *Files) ResolveDialect(name string) (dialect.Dialect, error) {
	return f.registry.Resolve(name)
}

// RegisterDialect binds an extension to a dialect.
func (f *Files) RegisterDialect(ext string, d dialect.Dialect) error {
	return f.registry.Register(ext, d)
}

func (f *Files) dialectFor(op, path string, o callOptions) (dialect.Dialect, error) {
	if o.dialect != nil {
		return *o.dialect, nil
	}
	d, err := f.registry.Resolve(path)
	if err != nil {
		f.observer.SessionError(op, ErrorKind(err))
		return dialect.Dialect{}, err
	}
	return d, nil
}

// OpenRecords returns the records of path as a lazy sequence. The file is
// opened when iteration starts and closed when it ends, including on early
// break. The sequence can be ranged over once; a second pass yields
// ErrSequenceConsumed.
func (f *Files) OpenRecords(ctx context.Context, path string, opts ...Option) iter.Seq2[*codec.Record, error] {
	o := newCallOptions(opts)
	return once(func(yield func(*codec.Record, error) bool) {
		r, s, err := f.openReader(ctx, "read", path, o)
		if err != nil {
			yield(nil, err)
			return
		}
		defer s.Close()

		for rec, err := range r.Records() {
			if err == nil {
				err = ctx.Err()
			}
			if err != nil {
				s.fail(err)
				yield(nil, err)
				return
			}
			s.recordRead()
			if !yield(rec, nil) {
				return
			}
		}
	})
}

// OpenTuples returns the non-blank lines of path as positional field lists,
// with the same lifetime rules as OpenRecords. No header handling is done.
func (f *Files) OpenTuples(ctx context.Context, path string, opts ...Option) iter.Seq2[[]string, error] {
	o := newCallOptions(opts)
	return once(func(yield func([]string, error) bool) {
		r, s, err := f.openReader(ctx, "read_tuples", path, o)
		if err != nil {
			yield(nil, err)
			return
		}
		defer s.Close()

		for fields, err := range r.Tuples() {
			if err == nil {
				err = ctx.Err()
			}
			if err != nil {
				s.fail(err)
				yield(nil, err)
				return
			}
			s.recordRead()
			if !yield(fields, nil) {
				return
			}
		}
	})
}

// ReadAll reads every record of path.
func (f *Files) ReadAll(ctx context.Context, path string, opts ...Option) ([]*codec.Record, error) {
	var out []*codec.Record
	for rec, err := range f.OpenRecords(ctx, path, opts...) {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadAllMany reads the records of each path in turn and concatenates them.
func (f *Files) ReadAllMany(ctx context.Context, paths []string, opts ...Option) ([]*codec.Record, error) {
	var out []*codec.Record
	for _, path := range paths {
		recs, err := f.ReadAll(ctx, path, opts...)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

// OpenWriter opens path for writing and returns a Writer that owns it.
// The caller must Close the Writer.
func (f *Files) OpenWriter(ctx context.Context, path string, opts ...Option) (*codec.Writer, error) {
	w, _, err := f.openWriter(ctx, "write", path, newCallOptions(opts))
	return w, err
}

// Export writes records to path. With InferFieldNames, every record is
// collected first and the sorted union of their names becomes the header.
func (f *Files) Export(ctx context.Context, path string, records iter.Seq[*codec.Record], opts ...Option) error {
	o := newCallOptions(opts)
	if o.inferNames {
		recs := slices.Collect(records)
		o.fieldNames = unionKeys(recs)
		records = slices.Values(recs)
	}

	w, s, err := f.openWriter(ctx, "export", path, o)
	if err != nil {
		return err
	}
	for rec := range records {
		if err = ctx.Err(); err != nil {
			break
		}
		if err = w.Write(rec); err != nil {
			break
		}
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.fail(err)
	}
	return err
}

// ExportTuples writes positional lines to path, preceded by header when it is non-empty.
func (f *Files) ExportTuples(ctx context.Context, path string, header []string, tuples iter.Seq[[]string], opts ...Option) error {
	o := newCallOptions(opts)
	o.fieldNames = nil
	if len(header) > 0 {
		o.fieldNames = header
	}

	w, s, err := f.openWriter(ctx, "export_tuples", path, o)
	if err != nil {
		return err
	}
	for values := range tuples {
		if err = ctx.Err(); err != nil {
			break
		}
		if err = w.WriteTuple(values); err != nil {
			break
		}
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.fail(err)
	}
	return err
}

// WriteFunc writes the records of seq to w and returns how many it wrote.
type WriteFunc func(seq iter.Seq2[*codec.Record, error], w *codec.Writer) (int, error)

// Pipe runs the records of seq through write into a Writer on dest and
// returns write's count. dest is opened only after seq has produced its
// first record or ended cleanly, so a source that cannot be opened or read
// leaves dest untouched. A nil write copies every record unchanged.
func (f *Files) Pipe(ctx context.Context, seq iter.Seq2[*codec.Record, error], dest string, write WriteFunc, opts ...Option) (n int, err error) {
	if write == nil {
		write = copyRecords
	}

	next, stop := iter.Pull2(seq)
	defer stop()

	first, err, ok := next()
	if err != nil {
		return 0, err
	}

	w, s, err := f.openWriter(ctx, "pipe", dest, newCallOptions(opts))
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			s.fail(err)
		}
	}()

	rest := func(yield func(*codec.Record, error) bool) {
		for rec, err, more := first, error(nil), ok; more; rec, err, more = next() {
			if err == nil {
				err = ctx.Err()
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
	return write(rest, w)
}

func copyRecords(seq iter.Seq2[*codec.Record, error], w *codec.Writer) (int, error) {
	n := 0
	for rec, err := range seq {
		if err != nil {
			return n, err
		}
		if err := w.Write(rec); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (f *Files) openReader(ctx context.Context, op, path string, o callOptions) (*codec.Reader, *session, error) {
	d, err := f.dialectFor(op, path, o)
	if err != nil {
		return nil, nil, err
	}
	s := f.startSession(ctx, op, path, d)

	var (
		src   io.Reader
		total int64
	)
	if path == dialect.StdStream {
		src = f.stdin
	} else {
		file, err := os.Open(path)
		if err != nil {
			s.fail(err)
			return nil, nil, err
		}
		if info, err := file.Stat(); err == nil {
			total = info.Size()
		}
		s.file = file
		src = file
	}

	s.counter = codec.NewCountingReader(nil, total)
	ropts := []codec.ReaderOption{codec.WithCounter(s.counter)}
	if o.fieldNames != nil {
		ropts = append(ropts, codec.WithFieldNames(o.fieldNames...))
	}
	if o.mapName != nil {
		ropts = append(ropts, codec.WithFieldNameMapper(o.mapName))
	}

	r, err := codec.NewReader(src, d, ropts...)
	if err != nil {
		s.fail(err)
		s.Close()
		return nil, nil, err
	}
	return r, s, nil
}

func (f *Files) openWriter(ctx context.Context, op, path string, o callOptions) (*codec.Writer, *session, error) {
	d, err := f.dialectFor(op, path, o)
	if err != nil {
		return nil, nil, err
	}
	s := f.startSession(ctx, op, path, d)

	dst := f.stdout
	bom := true
	if path != dialect.StdStream {
		flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if o.append {
			flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
		file, err := os.OpenFile(path, flags, 0o644)
		if err != nil {
			s.fail(err)
			return nil, nil, err
		}
		if o.append {
			if info, err := file.Stat(); err == nil && info.Size() > 0 {
				bom = false
			}
		}
		s.file = file
		dst = file
	}

	wopts := []codec.WriterOption{
		codec.WithHeader(o.header),
		codec.WithAppend(o.append),
		codec.WithBOM(bom),
		codec.WithBufferSize(f.bufferSize),
		codec.WithCloser(s),
		codec.WithRowHook(s.recordWritten),
	}
	if o.fieldNames != nil {
		wopts = append(wopts, codec.WithHeaderFields(o.fieldNames...))
	}

	w, err := codec.NewWriter(dst, d, wopts...)
	if err != nil {
		s.fail(err)
		s.Close()
		return nil, nil, err
	}
	return w, s, nil
}

// once makes seq single-use.
func once[T any](seq iter.Seq2[T, error]) iter.Seq2[T, error] {
	var used atomic.Bool
	return func(yield func(T, error) bool) {
		if used.Swap(true) {
			var zero T
			yield(zero, ErrSequenceConsumed)
			return
		}
		seq(yield)
	}
}

// unionKeys returns the sorted union of the field names of recs.
func unionKeys(recs []*codec.Record) []string {
	seen := make(map[string]struct{})
	for _, rec := range recs {
		for name := range rec.All() {
			seen[name] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for name := range seen {
		keys = append(keys, name)
	}
	slices.Sort(keys)
	return keys
}
