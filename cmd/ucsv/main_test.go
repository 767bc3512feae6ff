package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/ucsv/internal/config"
	"github.com/JonMunkholm/ucsv/internal/dialect"
)

func run(t *testing.T, env map[string]string, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "in.csv", "\"a\";\"b\"\r\n\"1\";\"x\ty\"\r\n")

	tests := []struct {
		name string
		dest string
		args []string
		want string
	}{
		{"by extension", "out.tsv", nil, "\"a\"\t\"b\"\r\n\"1\"\t\"x\ty\"\r\n"},
		{"to override", "out.dat", []string{"--to", "excel"}, "a,b\r\n1,x\ty\r\n"},
		{"field order", "out2.csv", []string{"--fields", "b,a"}, "\"b\";\"a\"\r\n\"x\ty\";\"1\"\r\n"},
		{"no header", "out3.csv", []string{"--no-header"}, "\"1\";\"x\ty\"\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := filepath.Join(dir, tt.dest)
			args := append([]string{"convert", src, dest}, tt.args...)
			if _, err := run(t, nil, "", args...); err != nil {
				t.Fatalf("convert error = %v", err)
			}
			if got := readFile(t, dest); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConvertStdio(t *testing.T) {
	out, err := run(t, nil, "a,b\r\n1,2\r\n", "convert", "-", "-", "--to", "pet")
	if err != nil {
		t.Fatalf("convert error = %v", err)
	}
	if want := "\"a\";\"b\"\r\n\"1\";\"2\"\r\n"; out != want {
		t.Errorf("stdout = %q, want %q", out, want)
	}
}

func TestConvertAppend(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "in.csv", "\"a\"\r\n\"2\"\r\n")
	dest := writeFile(t, dir, "out.csv", "\"a\"\r\n\"1\"\r\n")

	if _, err := run(t, nil, "", "convert", src, dest, "--append"); err != nil {
		t.Fatal(err)
	}
	if got, want := readFile(t, dest), "\"a\"\r\n\"1\"\r\n\"2\"\r\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestConvertErrors(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "in.csv", "\"a\"\r\n\"1\"\r\n")
	dest := filepath.Join(dir, "out.csv")

	_, err := run(t, nil, "", "convert", filepath.Join(dir, "missing.csv"), dest)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing source error = %v, want not-exist", err)
	}
	if _, err := os.Stat(dest); !errors.Is(err, os.ErrNotExist) {
		t.Error("destination created for missing source")
	}

	_, err = run(t, nil, "", "convert", src, dest, "--from", "nope")
	if !errors.Is(err, dialect.ErrUnknownDialect) {
		t.Errorf("unknown --from error = %v, want ErrUnknownDialect", err)
	}

	_, err = run(t, nil, "", "convert", src, filepath.Join(dir, "out.md"))
	if !errors.Is(err, dialect.ErrUnknownDialect) {
		t.Errorf("unbound dest error = %v, want ErrUnknownDialect", err)
	}
}

func TestTransformCommands(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "\"id\";\"v\";\"note\"\r\n\"1\";\"x\";\"l1\nl2\"\r\n\"1\";\"x\";\"l1\nl2\"\r\n\"2\";\"y\";\"n\"\r\n")
	b := writeFile(t, dir, "b.csv", "\"id\";\"w\"\r\n\"3\";\"z\"\r\n")

	tests := []struct {
		name string
		args func(dest string) []string
		want string
	}{
		{
			name: "merge",
			args: func(dest string) []string { return []string{"merge", dest, a, b} },
			want: "\"id\"\r\n\"1\"\r\n\"1\"\r\n\"2\"\r\n\"3\"\r\n",
		},
		{
			name: "dedupe whole record",
			args: func(dest string) []string { return []string{"dedupe", a, dest} },
			want: "\"id\";\"v\";\"note\"\r\n\"1\";\"x\";\"l1\nl2\"\r\n\"2\";\"y\";\"n\"\r\n",
		},
		{
			name: "dedupe by key",
			args: func(dest string) []string { return []string{"dedupe", a, dest, "--key", "v"} },
			want: "\"id\";\"v\";\"note\"\r\n\"1\";\"x\";\"l1\nl2\"\r\n\"2\";\"y\";\"n\"\r\n",
		},
		{
			name: "slim",
			args: func(dest string) []string { return []string{"slim", a, dest, "--fields", "note"} },
			want: "\"note\"\r\n\"l1\\nl2\"\r\n\"l1\\nl2\"\r\n\"n\"\r\n",
		},
		{
			name: "grouped",
			args: func(dest string) []string { return []string{"grouped", a, dest, "--key", "id"} },
			want: "\"id\";\"note\";\"v\"\r\n\"1\";\"l1\nl2\";\"x\"\r\n\"2\";\"n\";\"y\"\r\n",
		},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := filepath.Join(dir, "out"+string(rune('a'+i))+".csv")
			if _, err := run(t, nil, "", tt.args(dest)...); err != nil {
				t.Fatalf("error = %v", err)
			}
			if got := readFile(t, dest); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSlimRequiresFields(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "in.csv", "\"a\"\r\n")
	if _, err := run(t, nil, "", "slim", src, filepath.Join(dir, "out.csv")); err == nil {
		t.Error("slim without --fields succeeded")
	}
}

func TestDialects(t *testing.T) {
	out, err := run(t, nil, "", "dialects")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"KEY", "pet", "excel-tsv", "excel-tab", "utf-16", "tab"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, map[string]string{"UCSV_TXT_ENCODING": "utf-8"}, "", "dialects", "--yaml")
	if err != nil {
		t.Fatal(err)
	}
	got, err := dialect.ParseFile([]byte(out))
	if err != nil {
		t.Fatalf("--yaml output does not parse: %v\n%s", err, out)
	}
	want := dialect.NewRegistry(dialect.WithTextEncoding("utf-8")).Snapshot()
	for ext, d := range want {
		if got[ext] != d {
			t.Errorf("binding %s = %+v, want %+v", ext, got[ext], d)
		}
	}

	out, err = run(t, nil, "", "dialects", "--builtin")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "mysql-tsv") {
		t.Errorf("--builtin missing mysql-tsv:\n%s", out)
	}
}

func TestDialectsFile(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "dialects.yaml", "dialects:\n  - extension: psv\n    base: excel\n    delimiter: pipe\n")
	src := writeFile(t, dir, "in.psv", "a|b\r\n1|2\r\n")
	env := map[string]string{"UCSV_DIALECTS_FILE": file}

	out, err := run(t, env, "", "convert", src, "-")
	if err != nil {
		t.Fatalf("convert error = %v", err)
	}
	if want := "a,b\r\n1,2\r\n"; out != want {
		t.Errorf("stdout = %q, want %q", out, want)
	}

	env["UCSV_DIALECTS_FILE"] = filepath.Join(dir, "missing.yaml")
	if _, err := run(t, env, "", "dialects"); err == nil {
		t.Error("missing dialect file accepted")
	}
}

func TestInvalidConfig(t *testing.T) {
	_, err := run(t, map[string]string{"UCSV_WRITE_BUFFER": "lots"}, "", "dialects")
	if err == nil || !strings.Contains(err.Error(), "UCSV_WRITE_BUFFER") {
		t.Errorf("error = %v, want mention of UCSV_WRITE_BUFFER", err)
	}
}

func TestLoadRequiresDatabase(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "in.csv", "\"a\"\r\n\"1\"\r\n")

	_, err := run(t, nil, "", "load", src, "t")
	if !errors.Is(err, config.ErrNoDatabase) {
		t.Errorf("load error = %v, want ErrNoDatabase", err)
	}

	_, err = run(t, nil, "", "dump", "-", "--query", "SELECT 1")
	if !errors.Is(err, config.ErrNoDatabase) {
		t.Errorf("dump error = %v, want ErrNoDatabase", err)
	}
}

func TestParseColumnTypes(t *testing.T) {
	got, err := parseColumnTypes([]string{"amount=numeric", " placed = date", "ok=boolean"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got["amount"].String() != "numeric" || got["placed"].String() != "date" || got["ok"].String() != "bool" {
		t.Errorf("parseColumnTypes() = %v", got)
	}

	for _, bad := range []string{"amount", "=numeric", "amount=money"} {
		if _, err := parseColumnTypes([]string{bad}); err == nil {
			t.Errorf("parseColumnTypes(%q) succeeded", bad)
		}
	}
}
