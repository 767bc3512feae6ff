// Package transform implements record-set operations built on the codec:
// merging several files, dropping duplicates, projecting columns and
// collapsing groups.
package transform

import (
	"slices"
	"strconv"
	"strings"

	"github.com/JonMunkholm/ucsv/internal/codec"
)

// KeySelector picks the output field names for a set of records.
type KeySelector func(rows []*codec.Record) []string

// KeyFunc derives a grouping or identity key from a record.
type KeyFunc func(rec *codec.Record) string

// CommonKeys returns, sorted, the field names present in every row, plus
// any name for which forceInclude reports true. forceInclude may be nil.
func CommonKeys(rows []*codec.Record, forceInclude func(string) bool) []string {
	counts := make(map[string]int)
	for _, row := range rows {
		for name := range row.All() {
			counts[name]++
		}
	}
	keys := make([]string, 0, len(counts))
	for name, n := range counts {
		if n == len(rows) || (forceInclude != nil && forceInclude(name)) {
			keys = append(keys, name)
		}
	}
	slices.Sort(keys)
	return keys
}

// AllKeys returns the sorted union of field names across rows.
func AllKeys(rows []*codec.Record) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for name := range row.All() {
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

// CommonKeysIncluding returns a selector for CommonKeys with forceInclude.
func CommonKeysIncluding(forceInclude func(string) bool) KeySelector {
	return func(rows []*codec.Record) []string {
		return CommonKeys(rows, forceInclude)
	}
}

// KeyOf returns a KeyFunc over the values of fields. Absent fields count as
// empty. Values are length-prefixed so distinct tuples never share a key.
func KeyOf(fields ...string) KeyFunc {
	return func(rec *codec.Record) string {
		var b strings.Builder
		for _, name := range fields {
			v := rec.Value(name)
			b.WriteString(strconv.Itoa(len(v)))
			b.WriteByte(':')
			b.WriteString(v)
		}
		return b.String()
	}
}

// WholeRecord keys a record by every field name and value, independent of
// field order.
func WholeRecord(rec *codec.Record) string {
	names := rec.Keys()
	slices.Sort(names)
	var b strings.Builder
	for _, name := range names {
		v := rec.Value(name)
		b.WriteString(strconv.Itoa(len(name)))
		b.WriteByte(':')
		b.WriteString(name)
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return b.String()
}
