package pgload

// convert.go turns record values into PostgreSQL parameters and query results
// back into field text.
//
// Spreadsheet exports are messy: dates come in US, EU and ISO layouts,
// numbers carry currency symbols and thousands separators, booleans are
// spelled several ways. The parse functions accept those forms and return an
// error for anything else; an empty value always becomes NULL.

import (
	"database/sql/driver"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ColumnType selects how a column's text is converted before COPY.
type ColumnType int

const (
	Text ColumnType = iota
	Numeric
	Date
	Bool
	UUID
)

func (t ColumnType) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case Date:
		return "date"
	case Bool:
		return "bool"
	case UUID:
		return "uuid"
	default:
		return "text"
	}
}

// ParseColumnType parses the names returned by ColumnType.String.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "":
		return Text, nil
	case "numeric", "number":
		return Numeric, nil
	case "date":
		return Date, nil
	case "bool", "boolean":
		return Bool, nil
	case "uuid":
		return UUID, nil
	}
	return Text, fmt.Errorf("unknown column type %q", s)
}

// ValueError reports a value that does not parse as its column's type.
type ValueError struct {
	Column string
	Value  string
	Type   ColumnType
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("column %s: %q is not a valid %s", e.Column, e.Value, e.Type)
}

// numericRegex matches integers, decimals and scientific notation after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot: two-digit years that would land more than this many
// years in the future are moved back a century.
var TwoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

// ParseText returns s, or NULL when s is blank.
func ParseText(s string) pgtype.Text {
	if strings.TrimSpace(s) == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ParseDate parses s with the supported layouts. Two-digit years use
// TwoDigitYearPivot.
func ParseDate(s string) (pgtype.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{}, true
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return pgtype.Date{Time: t, Valid: true}, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return pgtype.Date{Time: t, Valid: true}, true
		}
	}
	return pgtype.Date{}, false
}

// ParseNumeric parses s after stripping currency symbols and thousands
// separators. "(12.50)" is read as -12.50.
func ParseNumeric(s string) (pgtype.Numeric, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Numeric{}, true
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.NewReplacer("$", "", "€", "", "£", "", ",", "").Replace(s)
	s = strings.TrimSpace(s)
	if negative {
		s = "-" + s
	}
	if !numericRegex.MatchString(s) {
		return pgtype.Numeric{}, false
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{}, false
	}
	return n, true
}

// ParseBool accepts true/false, yes/no, t/f, y/n and 1/0 in any case.
func ParseBool(s string) (pgtype.Bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return pgtype.Bool{}, true
	case "true", "t", "yes", "y", "1":
		return pgtype.Bool{Bool: true, Valid: true}, true
	case "false", "f", "no", "n", "0":
		return pgtype.Bool{Bool: false, Valid: true}, true
	}
	return pgtype.Bool{}, false
}

// ParseUUID parses s in any form uuid.Parse accepts.
func ParseUUID(s string) (pgtype.UUID, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.UUID{}, true
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, false
	}
	return pgtype.UUID{Bytes: u, Valid: true}, true
}

// Convert returns the COPY parameter for value in a column of type t.
func Convert(column string, t ColumnType, value string) (any, error) {
	var (
		v  any
		ok = true
	)
	switch t {
	case Numeric:
		v, ok = ParseNumeric(value)
	case Date:
		v, ok = ParseDate(value)
	case Bool:
		v, ok = ParseBool(value)
	case UUID:
		v, ok = ParseUUID(value)
	default:
		v = ParseText(value)
	}
	if !ok {
		return nil, &ValueError{Column: column, Value: value, Type: t}
	}
	return v, nil
}

// FormatValue renders a value returned by pgx as field text. NULL and
// invalid pgtype values become the empty string; dates without a time part
// are written as YYYY-MM-DD.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return formatTime(v)
	case [16]byte:
		return uuid.UUID(v).String()
	case pgtype.UUID:
		if !v.Valid {
			return ""
		}
		return uuid.UUID(v.Bytes).String()
	case pgtype.Date:
		if !v.Valid {
			return ""
		}
		return v.Time.Format(time.DateOnly)
	case driver.Valuer:
		dv, err := v.Value()
		if err != nil {
			return ""
		}
		return FormatValue(dv)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(v)
}

func formatTime(t time.Time) string {
	if t.Location() == time.UTC && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339Nano)
}
