package dialect

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// StdStream is the resource name meaning standard input or standard output.
const StdStream = "-"

// Registry maps file extensions to dialects.
//
// A Registry is created with the built-in bindings and handed to whoever
// needs to resolve resource names; there is no process-wide instance. It is
// safe for concurrent use so a file watcher can reload bindings while a
// server resolves names.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]Dialect
	stream   Dialect

	// displaced holds, for each extension bound by the loaded dialect file,
	// the binding the file replaced.
	displaced map[string]displacedBinding
}

type displacedBinding struct {
	d     Dialect
	bound bool
}

// RegistryOption customizes a Registry at construction.
type RegistryOption func(*Registry)

// WithTextEncoding sets the encoding of the built-in .txt binding.
// The historical default is utf-16; some producers emit utf-8 instead.
func WithTextEncoding(enc string) RegistryOption {
	return func(r *Registry) {
		if enc == "" {
			return
		}
		r.bindings["txt"] = r.bindings["txt"].WithEncoding(enc)
	}
}

// WithStreamDialect replaces the dialect used for the standard-stream sentinel.
func WithStreamDialect(d Dialect) RegistryOption {
	return func(r *Registry) {
		r.stream = d
	}
}

// NewRegistry returns a Registry holding the built-in bindings:
// txt → excel-tab, csv → pet, tsv → excel-tsv.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		bindings: map[string]Dialect{
			"txt": ExcelTab,
			"csv": PET,
			"tsv": ExcelTSV,
		},
		stream:    Excel,
		displaced: make(map[string]displacedBinding),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds ext to d, replacing any existing binding.
// The previous Dialect value is left untouched.
func (r *Registry) Register(ext string, d Dialect) error {
	key := normalizeExt(ext)
	if key == "" {
		return ErrEmptyExtension
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("register %q: %w", key, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[key] = d
	delete(r.displaced, key)
	return nil
}

// Lookup returns the dialect bound to ext.
func (r *Registry) Lookup(ext string) (Dialect, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.bindings[normalizeExt(ext)]
	return d, ok
}

// Resolve returns the dialect for a resource name.
//
// The extension is matched case-insensitively. The standard-stream sentinel
// resolves to the stream dialect. Anything else without a binding yields an
// *UnknownDialectError.
func (r *Registry) Resolve(name string) (Dialect, error) {
	ext := normalizeExt(filepath.Ext(strings.ToLower(name)))

	r.mu.RLock()
	defer r.mu.RUnlock()

	if ext != "" {
		if d, ok := r.bindings[ext]; ok {
			return d, nil
		}
	}
	if name == StdStream {
		return r.stream, nil
	}
	return Dialect{}, &UnknownDialectError{Name: name, Extension: ext}
}

// Named returns the built-in dialect called name or, failing that, the
// dialect bound to name taken as an extension (".psv" and "psv" both work).
func (r *Registry) Named(name string) (Dialect, error) {
	if d, ok := Builtin(name); ok {
		return d, nil
	}
	if d, ok := r.Lookup(name); ok {
		return d, nil
	}
	return Dialect{}, &UnknownDialectError{Name: name, Extension: normalizeExt(name)}
}

// StreamDialect returns the dialect used for standard input and output.
func (r *Registry) StreamDialect() Dialect {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stream
}

// Extensions returns all bound extensions, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.bindings))
	for ext := range r.bindings {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Snapshot returns a copy of the current bindings.
func (r *Registry) Snapshot() map[string]Dialect {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Dialect, len(r.bindings))
	for ext, d := range r.bindings {
		out[ext] = d
	}
	return out
}

// replaceFileBindings validates every binding, then swaps them in for the
// bindings of the previously loaded file. Extensions that file bound and
// bindings omits get back whatever they displaced.
func (r *Registry) replaceFileBindings(bindings map[string]Dialect) error {
	next := make(map[string]Dialect, len(bindings))
	for ext, d := range bindings {
		key := normalizeExt(ext)
		if key == "" {
			return ErrEmptyExtension
		}
		if err := d.Validate(); err != nil {
			return fmt.Errorf("register %q: %w", ext, err)
		}
		next[key] = d
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for ext, prev := range r.displaced {
		if _, ok := next[ext]; ok {
			continue
		}
		if prev.bound {
			r.bindings[ext] = prev.d
		} else {
			delete(r.bindings, ext)
		}
		delete(r.displaced, ext)
	}
	for ext, d := range next {
		if _, ok := r.displaced[ext]; !ok {
			prev, bound := r.bindings[ext]
			r.displaced[ext] = displacedBinding{d: prev, bound: bound}
		}
		r.bindings[ext] = d
	}
	return nil
}

func normalizeExt(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}
