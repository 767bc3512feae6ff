// Package dialect describes how records map to delimited text.
//
// A [Dialect] is a plain value: delimiter, quoting rules, line terminator and
// text encoding. Values are copied wherever they travel, so a dialect handed
// to a reader or stored in a [Registry] can never be changed behind its
// owner's back. Derived dialects are built with the With* methods, which
// return modified copies.
//
// # Built-in Dialects
//
//	excel      comma,     quote-minimal, CRLF, utf-8   (standard streams)
//	excel-tab  tab,       quote-minimal, CRLF, utf-16  (.txt)
//	pet        semicolon, quote-all,     CRLF, utf-8   (.csv)
//	excel-tsv  tab,       quote-all,     CRLF, utf-8   (.tsv)
//	mysql-tsv  tab,       quote-none,    CRLF, utf-8, escape '\'
package dialect

import (
	"fmt"
	"sort"
	"strings"
)

// QuotingPolicy controls when field values are wrapped in the quote character.
type QuotingPolicy int

const (
	// QuoteMinimal quotes only fields that would otherwise be ambiguous.
	QuoteMinimal QuotingPolicy = iota
	// QuoteAll quotes every field.
	QuoteAll
	// QuoteNone never quotes; special characters are escaped instead.
	QuoteNone
)

// String returns the policy name used in dialect files.
func (q QuotingPolicy) String() string {
	switch q {
	case QuoteMinimal:
		return "minimal"
	case QuoteAll:
		return "all"
	case QuoteNone:
		return "none"
	default:
		return fmt.Sprintf("QuotingPolicy(%d)", int(q))
	}
}

// ParseQuoting converts a policy name ("minimal", "all", "none") to a QuotingPolicy.
func ParseQuoting(s string) (QuotingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal", "quote_minimal", "":
		return QuoteMinimal, nil
	case "all", "quote_all":
		return QuoteAll, nil
	case "none", "quote_none":
		return QuoteNone, nil
	default:
		return 0, fmt.Errorf("%w: unknown quoting policy %q", ErrInvalidDialect, s)
	}
}

// Dialect is an immutable bundle of delimiter, quoting, line-terminator and
// encoding rules.
type Dialect struct {
	Name           string
	Delimiter      rune
	QuoteChar      rune
	Quoting        QuotingPolicy
	DoubleQuote    bool
	EscapeChar     rune // 0 means no escape character
	LineTerminator string
	Encoding       string
}

// HasEscape reports whether an escape character is configured.
func (d Dialect) HasEscape() bool {
	return d.EscapeChar != 0
}

// Validate checks the dialect invariants and reports every violation at once.
func (d Dialect) Validate() error {
	var errs []string

	if d.Delimiter == 0 {
		errs = append(errs, "delimiter is required")
	}
	if d.Delimiter == '\r' || d.Delimiter == '\n' {
		errs = append(errs, "delimiter cannot be a line break")
	}
	if d.Quoting != QuoteNone || d.QuoteChar != 0 {
		if d.QuoteChar == 0 {
			errs = append(errs, "quote character is required unless quoting is none")
		}
		if d.QuoteChar == d.Delimiter && d.Delimiter != 0 {
			errs = append(errs, fmt.Sprintf("delimiter and quote character are both %q", d.Delimiter))
		}
		if d.QuoteChar == '\r' || d.QuoteChar == '\n' {
			errs = append(errs, "quote character cannot be a line break")
		}
	}
	if d.HasEscape() {
		if d.EscapeChar == d.Delimiter {
			errs = append(errs, "escape character cannot equal the delimiter")
		}
		if d.EscapeChar == '\r' || d.EscapeChar == '\n' {
			errs = append(errs, "escape character cannot be a line break")
		}
	}
	if d.Quoting == QuoteNone && !d.HasEscape() {
		errs = append(errs, "quoting none requires an escape character")
	}
	if d.Quoting != QuoteNone && !d.DoubleQuote && !d.HasEscape() {
		errs = append(errs, "double_quote=false requires an escape character")
	}
	if d.Quoting < QuoteMinimal || d.Quoting > QuoteNone {
		errs = append(errs, fmt.Sprintf("unknown quoting policy %d", int(d.Quoting)))
	}
	if d.LineTerminator == "" {
		errs = append(errs, "line terminator is required")
	}
	if _, err := LookupCharset(d.Encoding); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		name := d.Name
		if name == "" {
			name = "unnamed"
		}
		return fmt.Errorf("%w %s: %s", ErrInvalidDialect, name, strings.Join(errs, "; "))
	}
	return nil
}

// WithName returns a copy of d with a different name.
func (d Dialect) WithName(name string) Dialect {
	d.Name = name
	return d
}

// WithDelimiter returns a copy of d with a different delimiter.
func (d Dialect) WithDelimiter(r rune) Dialect {
	d.Delimiter = r
	return d
}

// WithQuoting returns a copy of d with a different quoting policy.
func (d Dialect) WithQuoting(q QuotingPolicy) Dialect {
	d.Quoting = q
	return d
}

// WithEscape returns a copy of d with a different escape character.
func (d Dialect) WithEscape(r rune) Dialect {
	d.EscapeChar = r
	return d
}

// WithLineTerminator returns a copy of d with a different line terminator.
func (d Dialect) WithLineTerminator(s string) Dialect {
	d.LineTerminator = s
	return d
}

// WithEncoding returns a copy of d with a different text encoding.
func (d Dialect) WithEncoding(enc string) Dialect {
	d.Encoding = enc
	return d
}

// String renders the dialect for logs.
func (d Dialect) String() string {
	return fmt.Sprintf("%s(delimiter=%q quote=%q quoting=%s encoding=%s)",
		d.Name, d.Delimiter, d.QuoteChar, d.Quoting, d.Encoding)
}

// Excel is the comma-separated, minimally quoted dialect used for standard streams.
var Excel = Dialect{
	Name:           "excel",
	Delimiter:      ',',
	QuoteChar:      '"',
	Quoting:        QuoteMinimal,
	DoubleQuote:    true,
	LineTerminator: "\r\n",
	Encoding:       "utf-8",
}

// ExcelTab is the tab-separated spreadsheet export dialect bound to .txt.
var ExcelTab = Dialect{
	Name:           "excel-tab",
	Delimiter:      '\t',
	QuoteChar:      '"',
	Quoting:        QuoteMinimal,
	DoubleQuote:    true,
	LineTerminator: "\r\n",
	Encoding:       "utf-16",
}

// PET is the semicolon-separated, fully quoted dialect bound to .csv.
var PET = Dialect{
	Name:           "pet",
	Delimiter:      ';',
	QuoteChar:      '"',
	Quoting:        QuoteAll,
	DoubleQuote:    true,
	LineTerminator: "\r\n",
	Encoding:       "utf-8",
}

// ExcelTSV is the tab-separated, fully quoted dialect bound to .tsv.
var ExcelTSV = Dialect{
	Name:           "excel-tsv",
	Delimiter:      '\t',
	QuoteChar:      '"',
	Quoting:        QuoteAll,
	DoubleQuote:    true,
	LineTerminator: "\r\n",
	Encoding:       "utf-8",
}

// MySQLTSV matches the output of SELECT ... INTO OUTFILE: no quoting, backslash escapes.
var MySQLTSV = Dialect{
	Name:           "mysql-tsv",
	Delimiter:      '\t',
	QuoteChar:      '"',
	Quoting:        QuoteNone,
	DoubleQuote:    true,
	EscapeChar:     '\\',
	LineTerminator: "\r\n",
	Encoding:       "utf-8",
}

var builtins = map[string]Dialect{
	Excel.Name:    Excel,
	ExcelTab.Name: ExcelTab,
	PET.Name:      PET,
	ExcelTSV.Name: ExcelTSV,
	MySQLTSV.Name: MySQLTSV,
}

// Builtin returns a named built-in dialect.
func Builtin(name string) (Dialect, bool) {
	d, ok := builtins[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// BuiltinNames returns the names of all built-in dialects, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
