package dialect

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestBuiltinsAreValid(t *testing.T) {
	for _, name := range BuiltinNames() {
		d, ok := Builtin(name)
		if !ok {
			t.Fatalf("Builtin(%q) not found", name)
		}
		if err := d.Validate(); err != nil {
			t.Errorf("Builtin(%q).Validate() = %v", name, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		wantErr string
	}{
		{
			name:    "delimiter equals quote",
			dialect: Excel.WithDelimiter('"'),
			wantErr: "delimiter and quote character",
		},
		{
			name:    "quote none without escape",
			dialect: Excel.WithQuoting(QuoteNone),
			wantErr: "requires an escape character",
		},
		{
			name:    "missing line terminator",
			dialect: Excel.WithLineTerminator(""),
			wantErr: "line terminator is required",
		},
		{
			name:    "unknown encoding",
			dialect: Excel.WithEncoding("klingon-8"),
			wantErr: "unsupported encoding",
		},
		{
			name:    "newline delimiter",
			dialect: Excel.WithDelimiter('\n'),
			wantErr: "line break",
		},
		{
			name:    "quote none with escape",
			dialect: Excel.WithQuoting(QuoteNone).WithEscape('\\'),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dialect.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidDialect) {
				t.Errorf("Validate() error %v is not ErrInvalidDialect", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestWithMethodsCopy(t *testing.T) {
	base := PET
	changed := base.WithEncoding("utf-16").WithDelimiter('|')

	if base.Encoding != "utf-8" || base.Delimiter != ';' {
		t.Errorf("base dialect mutated: %v", base)
	}
	if PET.Encoding != "utf-8" {
		t.Errorf("package PET mutated: %v", PET)
	}
	if changed.Encoding != "utf-16" || changed.Delimiter != '|' {
		t.Errorf("changed = %v", changed)
	}
}

func TestParseQuoting(t *testing.T) {
	tests := map[string]QuotingPolicy{
		"minimal":   QuoteMinimal,
		"ALL":       QuoteAll,
		"quote_all": QuoteAll,
		"none":      QuoteNone,
	}
	for in, want := range tests {
		got, err := ParseQuoting(in)
		if err != nil {
			t.Fatalf("ParseQuoting(%q) error = %v", in, err)
		}
		if got != want {
			t.Errorf("ParseQuoting(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseQuoting("sometimes"); err == nil {
		t.Error("ParseQuoting(sometimes) = nil error")
	}
}

func TestLookupCharset(t *testing.T) {
	tests := []struct {
		in   string
		name string
		kind CharsetKind
		bom  bool
	}{
		{"UTF-8", "utf-8", KindUTF8, false},
		{"utf8", "utf-8", KindUTF8, false},
		{"utf-8-sig", "utf-8-sig", KindUTF8, true},
		{"utf-16", "utf-16", KindUTF16, true},
		{"UTF_16LE", "utf-16le", KindUTF16, false},
		{"utf-16be", "utf-16be", KindUTF16, false},
		{"latin1", "latin1", KindOther, false},
		{"windows-1252", "windows-1252", KindOther, false},
	}
	for _, tt := range tests {
		cs, err := LookupCharset(tt.in)
		if err != nil {
			t.Fatalf("LookupCharset(%q) error = %v", tt.in, err)
		}
		if cs.Name != tt.name || cs.Kind != tt.kind || cs.BOM != tt.bom {
			t.Errorf("LookupCharset(%q) = {%s %v bom=%v}, want {%s %v bom=%v}",
				tt.in, cs.Name, cs.Kind, cs.BOM, tt.name, tt.kind, tt.bom)
		}
		if cs.Encoding == nil {
			t.Errorf("LookupCharset(%q).Encoding = nil", tt.in)
		}
	}
	if _, err := LookupCharset("no-such-charset"); err == nil {
		t.Error("LookupCharset(no-such-charset) = nil error")
	}
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name string
		want string
	}{
		{"report.csv", "pet"},
		{"REPORT.CSV", "pet"},
		{"/tmp/data.tsv", "excel-tsv"},
		{"export.txt", "excel-tab"},
		{"-", "excel"},
	}
	for _, tt := range tests {
		d, err := r.Resolve(tt.name)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", tt.name, err)
		}
		if d.Name != tt.want {
			t.Errorf("Resolve(%q) = %s, want %s", tt.name, d.Name, tt.want)
		}
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"notes.md", "README"} {
		_, err := r.Resolve(name)
		if !errors.Is(err, ErrUnknownDialect) {
			t.Fatalf("Resolve(%q) error = %v, want ErrUnknownDialect", name, err)
		}
		var ude *UnknownDialectError
		if !errors.As(err, &ude) {
			t.Fatalf("Resolve(%q) error is not *UnknownDialectError", name)
		}
		if ude.Name != name {
			t.Errorf("UnknownDialectError.Name = %q, want %q", ude.Name, name)
		}
	}
}

func TestRegistryNamed(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name string
		want string
	}{
		{"excel", "excel"},
		{" MySQL-TSV ", "mysql-tsv"},
		{"csv", "pet"},
		{".tsv", "excel-tsv"},
		{"TXT", "excel-tab"},
	}
	for _, tt := range tests {
		d, err := r.Named(tt.name)
		if err != nil {
			t.Fatalf("Named(%q) error = %v", tt.name, err)
		}
		if d.Name != tt.want {
			t.Errorf("Named(%q) = %s, want %s", tt.name, d.Name, tt.want)
		}
	}

	_, err := r.Named(".foo")
	var ude *UnknownDialectError
	if !errors.As(err, &ude) || ude.Extension != "foo" {
		t.Errorf("Named(.foo) error = %v, want UnknownDialectError for foo", err)
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	if err := r.Register("", Excel); !errors.Is(err, ErrEmptyExtension) {
		t.Errorf("Register(\"\") error = %v, want ErrEmptyExtension", err)
	}
	if err := r.Register("bad", Excel.WithQuoting(QuoteNone)); !errors.Is(err, ErrInvalidDialect) {
		t.Errorf("Register(invalid) error = %v, want ErrInvalidDialect", err)
	}

	pipe := Excel.WithName("pipe").WithDelimiter('|')
	if err := r.Register(".PSV", pipe); err != nil {
		t.Fatalf("Register(.PSV) error = %v", err)
	}
	d, err := r.Resolve("x.psv")
	if err != nil {
		t.Fatalf("Resolve(x.psv) error = %v", err)
	}
	if d.Delimiter != '|' {
		t.Errorf("Resolve(x.psv).Delimiter = %q, want '|'", d.Delimiter)
	}

	// Overwrite keeps the old value intact for anyone holding it.
	held, _ := r.Lookup("csv")
	if err := r.Register("csv", Excel); err != nil {
		t.Fatalf("Register(csv) error = %v", err)
	}
	if held.Name != "pet" {
		t.Errorf("held dialect changed to %s", held.Name)
	}
	if got, _ := r.Lookup("csv"); got.Name != "excel" {
		t.Errorf("Lookup(csv) = %s, want excel", got.Name)
	}

	want := []string{"csv", "psv", "tsv", "txt"}
	if got := r.Extensions(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Extensions() = %v, want %v", got, want)
	}
}

func TestWithTextEncoding(t *testing.T) {
	r := NewRegistry(WithTextEncoding("utf-8"))
	d, err := r.Resolve("a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if d.Encoding != "utf-8" {
		t.Errorf("txt encoding = %s, want utf-8", d.Encoding)
	}
	if ExcelTab.Encoding != "utf-16" {
		t.Errorf("ExcelTab mutated: %s", ExcelTab.Encoding)
	}
	if got := NewRegistry().Snapshot()["txt"].Encoding; got != "utf-16" {
		t.Errorf("default txt encoding = %s, want utf-16", got)
	}
}

func TestParseFile(t *testing.T) {
	data := []byte(`
dialects:
  - extension: .psv
    base: excel
    delimiter: pipe
    quoting: all
  - extension: dat
    base: mysql-tsv
    encoding: latin1
  - extension: ssv
    name: semis
    delimiter: ";"
    line_terminator: "\n"
`)
	got, err := ParseFile(data)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ParseFile() returned %d bindings, want 3", len(got))
	}

	psv := got["psv"]
	if psv.Delimiter != '|' || psv.Quoting != QuoteAll || psv.Name != "psv" {
		t.Errorf("psv = %v", psv)
	}
	dat := got["dat"]
	if dat.EscapeChar != '\\' || dat.Quoting != QuoteNone || dat.Encoding != "latin1" {
		t.Errorf("dat = %v", dat)
	}
	ssv := got["ssv"]
	if ssv.Name != "semis" || ssv.Delimiter != ';' || ssv.LineTerminator != "\n" {
		t.Errorf("ssv = %v", ssv)
	}
}

func TestParseFileErrors(t *testing.T) {
	tests := map[string]string{
		"unknown field":  "dialects:\n  - extension: a\n    colour: red\n",
		"unknown base":   "dialects:\n  - extension: a\n    base: lotus\n",
		"long delimiter": "dialects:\n  - extension: a\n    delimiter: ab\n",
		"invalid":        "dialects:\n  - extension: a\n    quoting: none\n",
		"no extension":   "dialects:\n  - delimiter: tab\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseFile([]byte(doc)); err == nil {
				t.Errorf("ParseFile() = nil error")
			}
		})
	}

	if got, err := ParseFile(nil); err != nil || len(got) != 0 {
		t.Errorf("ParseFile(nil) = %v, %v", got, err)
	}
}

func TestMarshalFileRoundTrip(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("dat", MySQLTSV.WithName("dat").WithEncoding("latin1")); err != nil {
		t.Fatal(err)
	}
	want := r.Snapshot()

	data, err := MarshalFile(want)
	if err != nil {
		t.Fatalf("MarshalFile() error = %v", err)
	}
	got, err := ParseFile(data)
	if err != nil {
		t.Fatalf("ParseFile() error = %v\n%s", err, data)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d bindings, want %d", len(got), len(want))
	}
	for ext, d := range want {
		if got[ext] != d {
			t.Errorf("binding %s = %+v, want %+v", ext, got[ext], d)
		}
	}
}

func TestLoadFileAllOrNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dialects.yaml")
	doc := "dialects:\n  - extension: psv\n    delimiter: pipe\n  - extension: bad\n    quoting: none\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	if _, err := r.LoadFile(path); err == nil {
		t.Fatal("LoadFile() = nil error")
	}
	if _, ok := r.Lookup("psv"); ok {
		t.Error("psv registered despite invalid file")
	}
}

func TestLoadFileReplacesPreviousLoad(t *testing.T) {
	const first = "dialects:\n  - extension: psv\n    delimiter: pipe\n  - extension: csv\n    base: excel\n  - extension: kept\n    delimiter: pipe\n"
	const second = "dialects:\n  - extension: dat\n    base: mysql-tsv\n"

	dir := t.TempDir()
	path := filepath.Join(dir, "dialects.yaml")
	write := func(doc string) {
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	r := NewRegistry()
	write(first)
	if _, err := r.LoadFile(path); err != nil {
		t.Fatalf("LoadFile(first) error = %v", err)
	}
	if err := r.Register("kept", ExcelTab); err != nil {
		t.Fatal(err)
	}
	write(second)
	if _, err := r.LoadFile(path); err != nil {
		t.Fatalf("LoadFile(second) error = %v", err)
	}

	tests := []struct {
		ext       string
		wantBound bool
		wantDelim rune
	}{
		{"psv", false, 0},
		{"csv", true, ';'},
		{"kept", true, '\t'},
		{"dat", true, '\t'},
		{"txt", true, '\t'},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			d, ok := r.Lookup(tt.ext)
			if ok != tt.wantBound {
				t.Fatalf("Lookup(%s) bound = %v, want %v", tt.ext, ok, tt.wantBound)
			}
			if ok && d.Delimiter != tt.wantDelim {
				t.Errorf("Lookup(%s).Delimiter = %q, want %q", tt.ext, d.Delimiter, tt.wantDelim)
			}
		})
	}
	if got, _ := r.Lookup("csv"); got != PET {
		t.Errorf("csv = %+v, want the built-in pet dialect", got)
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dialects.yaml")
	if err := os.WriteFile(path, []byte("dialects: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan error, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, r, nil, func(err error) { reloaded <- err })
	}()

	deadline := time.After(5 * time.Second)
	doc := []byte("dialects:\n  - extension: psv\n    delimiter: pipe\n")
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		if _, ok := r.Lookup("psv"); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("psv binding never appeared")
		case <-tick.C:
			// Rewrite until the watcher has registered the directory.
			if err := os.WriteFile(path, doc, 0o644); err != nil {
				t.Fatal(err)
			}
		case <-reloaded:
		}
	}

	// Dropping the entry unbinds the extension again.
	deadline = time.After(5 * time.Second)
	for {
		if _, ok := r.Lookup("psv"); !ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("psv binding never went away")
		case <-tick.C:
			if err := os.WriteFile(path, []byte("dialects: []\n"), 0o644); err != nil {
				t.Fatal(err)
			}
		case <-reloaded:
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Watch() did not stop after cancel")
	}
}
