package dialect

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// fileDocument is the top-level shape of a dialect file:
//
//	dialects:
//	  - extension: psv
//	    base: excel
//	    delimiter: "|"
//	  - extension: dat
//	    base: mysql-tsv
//	    encoding: latin1
type fileDocument struct {
	Dialects []fileEntry `yaml:"dialects"`
}

// fileEntry overrides fields of an optional built-in base. Unset fields keep
// the base value; without a base the excel dialect is used.
type fileEntry struct {
	Extension      string  `yaml:"extension"`
	Base           string  `yaml:"base,omitempty"`
	Name           string  `yaml:"name"`
	Delimiter      *string `yaml:"delimiter"`
	QuoteChar      *string `yaml:"quote_char"`
	Quoting        *string `yaml:"quoting"`
	DoubleQuote    *bool   `yaml:"double_quote"`
	EscapeChar     *string `yaml:"escape_char"`
	LineTerminator *string `yaml:"line_terminator"`
	Encoding       *string `yaml:"encoding"`
}

// ParseFile decodes a YAML dialect file into extension bindings.
// Every dialect is validated; the first invalid entry fails the whole file.
func ParseFile(data []byte) (map[string]Dialect, error) {
	var doc fileDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse dialect file: %w", err)
	}

	out := make(map[string]Dialect, len(doc.Dialects))
	for i, entry := range doc.Dialects {
		d, err := entry.dialect()
		if err != nil {
			return nil, fmt.Errorf("dialect entry %d (%s): %w", i+1, entry.Extension, err)
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("dialect entry %d (%s): %w", i+1, entry.Extension, err)
		}
		ext := normalizeExt(entry.Extension)
		if ext == "" {
			return nil, fmt.Errorf("dialect entry %d: %w", i+1, ErrEmptyExtension)
		}
		out[ext] = d
	}
	return out, nil
}

// LoadFile reads a dialect file and registers its bindings in r, replacing
// those of the file loaded before it. An extension the earlier file bound and
// this one omits reverts to its binding from before that load, or becomes
// unbound. Nothing changes if any entry is invalid.
func (r *Registry) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read dialect file: %w", err)
	}
	bindings, err := ParseFile(data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	if err := r.replaceFileBindings(bindings); err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return len(bindings), nil
}

// MarshalFile encodes bindings as a dialect file with every field spelled
// out, in extension order. ParseFile reads the result back unchanged.
func MarshalFile(bindings map[string]Dialect) ([]byte, error) {
	var doc fileDocument
	for _, ext := range slices.Sorted(maps.Keys(bindings)) {
		doc.Dialects = append(doc.Dialects, entryOf(ext, bindings[ext]))
	}
	return yaml.Marshal(doc)
}

func entryOf(ext string, d Dialect) fileEntry {
	char := func(r rune) *string {
		s := ""
		if r != 0 {
			s = string(r)
		}
		return &s
	}
	quoting := d.Quoting.String()
	return fileEntry{
		Extension:      ext,
		Name:           d.Name,
		Delimiter:      char(d.Delimiter),
		QuoteChar:      char(d.QuoteChar),
		Quoting:        &quoting,
		DoubleQuote:    &d.DoubleQuote,
		EscapeChar:     char(d.EscapeChar),
		LineTerminator: &d.LineTerminator,
		Encoding:       &d.Encoding,
	}
}

func (e fileEntry) dialect() (Dialect, error) {
	d := Excel
	if e.Base != "" {
		base, ok := Builtin(e.Base)
		if !ok {
			return Dialect{}, fmt.Errorf("%w: unknown base %q", ErrInvalidDialect, e.Base)
		}
		d = base
	}
	d.Name = e.Name
	if d.Name == "" {
		d.Name = normalizeExt(e.Extension)
	}

	var err error
	if e.Delimiter != nil {
		if d.Delimiter, err = parseChar("delimiter", *e.Delimiter, false); err != nil {
			return Dialect{}, err
		}
	}
	if e.QuoteChar != nil {
		if d.QuoteChar, err = parseChar("quote_char", *e.QuoteChar, true); err != nil {
			return Dialect{}, err
		}
	}
	if e.EscapeChar != nil {
		if d.EscapeChar, err = parseChar("escape_char", *e.EscapeChar, true); err != nil {
			return Dialect{}, err
		}
	}
	if e.Quoting != nil {
		if d.Quoting, err = ParseQuoting(*e.Quoting); err != nil {
			return Dialect{}, err
		}
	}
	if e.DoubleQuote != nil {
		d.DoubleQuote = *e.DoubleQuote
	}
	if e.LineTerminator != nil {
		d.LineTerminator = *e.LineTerminator
	}
	if e.Encoding != nil {
		d.Encoding = *e.Encoding
	}
	return d, nil
}

// charNames lets dialect files spell awkward characters out.
var charNames = map[string]rune{
	"tab":       '\t',
	"comma":     ',',
	"semicolon": ';',
	"pipe":      '|',
	"space":     ' ',
	"backslash": '\\',
}

func parseChar(field, s string, allowEmpty bool) (rune, error) {
	if s == "" {
		if allowEmpty {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %s is empty", ErrInvalidDialect, field)
	}
	if r, ok := charNames[strings.ToLower(s)]; ok {
		return r, nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("%w: %s must be a single character, got %q", ErrInvalidDialect, field, s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
