package web

import (
	"errors"
	"io"
	"iter"
	"mime"
	"net/http"
	"strings"

	"github.com/JonMunkholm/ucsv/internal/codec"
	"github.com/JonMunkholm/ucsv/internal/core"
	"github.com/JonMunkholm/ucsv/internal/dialect"
	"github.com/JonMunkholm/ucsv/internal/logging"
	"github.com/JonMunkholm/ucsv/internal/transform"
)

// errorTrailer carries the error code when a conversion fails after the
// response body has started.
const errorTrailer = "X-Ucsv-Error"

type dialectView struct {
	Name           string `json:"name"`
	Delimiter      string `json:"delimiter"`
	QuoteChar      string `json:"quotechar,omitempty"`
	Quoting        string `json:"quoting"`
	DoubleQuote    bool   `json:"doublequote"`
	EscapeChar     string `json:"escapechar,omitempty"`
	LineTerminator string `json:"lineterminator"`
	Encoding       string `json:"encoding"`
}

func viewOf(d dialect.Dialect) dialectView {
	v := dialectView{
		Name:           d.Name,
		Delimiter:      string(d.Delimiter),
		Quoting:        d.Quoting.String(),
		DoubleQuote:    d.DoubleQuote,
		LineTerminator: d.LineTerminator,
		Encoding:       d.Encoding,
	}
	if d.QuoteChar != 0 {
		v.QuoteChar = string(d.QuoteChar)
	}
	if d.HasEscape() {
		v.EscapeChar = string(d.EscapeChar)
	}
	return v
}

type dialectsResponse struct {
	Bindings map[string]dialectView `json:"bindings"`
	Builtin  []dialectView          `json:"builtin"`
	Stream   dialectView            `json:"stream"`
}

func (s *Server) handleDialects(w http.ResponseWriter, r *http.Request) {
	reg := s.files.Registry()
	resp := dialectsResponse{
		Bindings: make(map[string]dialectView),
		Stream:   viewOf(reg.StreamDialect()),
	}
	for ext, d := range reg.Snapshot() {
		resp.Bindings[ext] = viewOf(d)
	}
	for _, name := range dialect.BuiltinNames() {
		d, _ := dialect.Builtin(name)
		resp.Builtin = append(resp.Builtin, viewOf(d))
	}
	writeJSON(w, r, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]any{
		"status":  "ok",
		"limiter": s.limiter.Status(),
	})
}

// handleConvert re-encodes the body from one dialect to another.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	from, err := s.dialectParam(r, "from")
	if err != nil {
		respondError(w, r, err)
		return
	}
	to, err := s.dialectParam(r, "to")
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.stream(w, r, from, to, nil, func(seq iter.Seq2[*codec.Record, error], cw *codec.Writer) (int, error) {
		n := 0
		for rec, err := range seq {
			if err != nil {
				return n, err
			}
			if err := cw.Write(rec); err != nil {
				return n, err
			}
			n++
		}
		return n, nil
	})
}

// handleDedupe drops records whose key fields repeat an earlier record.
func (s *Server) handleDedupe(w http.ResponseWriter, r *http.Request) {
	in, out, err := s.formatParams(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	keys := listParam(r, "key")
	if len(keys) == 0 {
		respondError(w, r, missingParam("key"))
		return
	}

	s.stream(w, r, in, out, nil, func(seq iter.Seq2[*codec.Record, error], cw *codec.Writer) (int, error) {
		return transform.DedupeRecords(seq, cw, transform.KeyOf(keys...))
	})
}

// handleSlim keeps the listed fields and flattens line breaks in values.
func (s *Server) handleSlim(w http.ResponseWriter, r *http.Request) {
	in, out, err := s.formatParams(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	fields := listParam(r, "fields")
	if len(fields) == 0 {
		respondError(w, r, missingParam("fields"))
		return
	}

	opts := []core.Option{core.FieldNames(fields...)}
	s.stream(w, r, in, out, opts, func(seq iter.Seq2[*codec.Record, error], cw *codec.Writer) (int, error) {
		return transform.SlimRecords(seq, cw, fields)
	})
}

// stream decodes the request body under in and hands the records to fn
// together with a writer encoding the response under out. Errors before the
// first response byte become a JSON error; later ones end the body early
// and set the error trailer.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, in, out dialect.Dialect, opts []core.Option,
	fn func(iter.Seq2[*codec.Record, error], *codec.Writer) (int, error)) {
	ctx := r.Context()

	body, err := requestBody(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	sent := &sentWriter{w: w}
	files := s.files.Streams(body, sent)
	cw, err := files.OpenWriter(ctx, dialect.StdStream, append(opts, core.Dialect(out))...)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType(out))
	w.Header().Set("Trailer", errorTrailer)

	n, err := fn(files.OpenRecords(ctx, dialect.StdStream, core.Dialect(in)), cw)
	if err == nil {
		err = cw.Close()
	}
	if err != nil {
		if !sent.started {
			w.Header().Del("Trailer")
			respondError(w, r, err)
			return
		}
		msg := MapError(err)
		logging.FromContext(ctx).Error("conversion failed mid-stream",
			"path", r.URL.Path, "records", n, "code", msg.Code, "error", err)
		w.Header().Set(errorTrailer, msg.Code)
		return
	}

	logging.FromContext(ctx).Info("conversion complete",
		"path", r.URL.Path, "from", in.Name, "to", out.Name, "records", n)
}

// dialectParam resolves a query parameter naming a built-in dialect or a
// bound extension.
func (s *Server) dialectParam(r *http.Request, name string) (dialect.Dialect, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return dialect.Dialect{}, missingParam(name)
	}
	return s.files.Registry().Named(v)
}

// formatParams reads format and the optional to, which defaults to format.
func (s *Server) formatParams(r *http.Request) (in, out dialect.Dialect, err error) {
	in, err = s.dialectParam(r, "format")
	if err != nil {
		return in, out, err
	}
	if r.URL.Query().Get("to") == "" {
		return in, in, nil
	}
	out, err = s.dialectParam(r, "to")
	return in, out, err
}

func listParam(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// requestBody returns the raw body, or the "file" part of a multipart form
// without buffering it.
func requestBody(r *http.Request) (io.Reader, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "multipart/form-data" {
		return r.Body, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, &badRequestError{param: "file", reason: "not a valid multipart body"}
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, missingParam("file")
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" {
			return part, nil
		}
	}
}

func contentType(d dialect.Dialect) string {
	mt := "text/csv"
	if d.Delimiter == '\t' {
		mt = "text/tab-separated-values"
	}
	return mt + "; charset=" + d.Encoding
}

// sentWriter records whether any byte reached the client.
type sentWriter struct {
	w       io.Writer
	started bool
}

func (s *sentWriter) Write(p []byte) (int, error) {
	if len(p) > 0 {
		s.started = true
	}
	return s.w.Write(p)
}
