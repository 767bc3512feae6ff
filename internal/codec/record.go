package codec

import (
	"iter"
	"strings"
)

// Record is one logical row: field names mapped to values, in insertion order.
type Record struct {
	names  []string
	values []string
	index  map[string]int
}

// NewRecord returns an empty record with room for n fields.
func NewRecord(n int) *Record {
	return &Record{
		names:  make([]string, 0, n),
		values: make([]string, 0, n),
		index:  make(map[string]int, n),
	}
}

// RecordFromPairs builds a record from alternating names and values.
// A trailing name without a value gets the empty string.
func RecordFromPairs(kv ...string) *Record {
	rec := NewRecord(len(kv) / 2)
	for i := 0; i < len(kv); i += 2 {
		v := ""
		if i+1 < len(kv) {
			v = kv[i+1]
		}
		rec.Set(kv[i], v)
	}
	return rec
}

// RecordFromSlices zips names with values positionally. Names beyond the end
// of values map to the empty string; extra values are ignored.
func RecordFromSlices(names, values []string) *Record {
	rec := NewRecord(len(names))
	for i, name := range names {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		rec.Set(name, v)
	}
	return rec
}

// Set assigns value to name. A new name is appended; an existing one keeps its position.
func (r *Record) Set(name, value string) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[name]; ok {
		r.values[i] = value
		return
	}
	r.index[name] = len(r.names)
	r.names = append(r.names, name)
	r.values = append(r.values, value)
}

// Get returns the value for name and whether it is present.
func (r *Record) Get(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	i, ok := r.index[name]
	if !ok {
		return "", false
	}
	return r.values[i], true
}

// Value returns the value for name, or "" when absent.
func (r *Record) Value(name string) string {
	v, _ := r.Get(name)
	return v
}

// Has reports whether name is present.
func (r *Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// Keys returns the field names in order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.names...)
}

// Values returns the field values in key order.
func (r *Record) Values() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.values...)
}

// All iterates over name/value pairs in order.
func (r *Record) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for i := 0; i < r.Len(); i++ {
			if !yield(r.names[i], r.values[i]) {
				return
			}
		}
	}
}

// Project returns a new record holding exactly names, in that order.
// Names missing from r map to the empty string.
func (r *Record) Project(names []string) *Record {
	out := NewRecord(len(names))
	for _, name := range names {
		out.Set(name, r.Value(name))
	}
	return out
}

// Clone returns an independent copy.
func (r *Record) Clone() *Record {
	out := NewRecord(r.Len())
	for name, v := range r.All() {
		out.Set(name, v)
	}
	return out
}

// Equal reports whether both records hold the same names, in the same order, with the same values.
func (r *Record) Equal(o *Record) bool {
	if r.Len() != o.Len() {
		return false
	}
	for i := 0; i < r.Len(); i++ {
		if r.names[i] != o.names[i] || r.values[i] != o.values[i] {
			return false
		}
	}
	return true
}

// Map returns the fields as an unordered map.
func (r *Record) Map() map[string]string {
	out := make(map[string]string, r.Len())
	for name, v := range r.All() {
		out[name] = v
	}
	return out
}

// String renders the record as {name:value, ...} for logs and test failures.
func (r *Record) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i := 0; i < r.Len(); i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(r.names[i])
		b.WriteByte(':')
		b.WriteString(r.values[i])
	}
	b.WriteByte('}')
	return b.String()
}
