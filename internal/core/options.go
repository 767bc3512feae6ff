package core

import "github.com/JonMunkholm/ucsv/internal/dialect"

// Option adjusts a single read or write call.
type Option func(*callOptions)

type callOptions struct {
	dialect    *dialect.Dialect
	fieldNames []string
	append     bool
	header     bool
	mapName    func(string) string
	inferNames bool
}

func newCallOptions(opts []Option) callOptions {
	o := callOptions{header: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Dialect overrides the dialect resolved from the path.
func Dialect(d dialect.Dialect) Option {
	return func(o *callOptions) {
		o.dialect = &d
	}
}

// FieldNames fixes the field names. For reads the first line becomes data;
// for writes it sets the column order.
func FieldNames(names ...string) Option {
	return func(o *callOptions) {
		o.fieldNames = append([]string(nil), names...)
	}
}

// Append opens the destination for appending; no header is written.
func Append(on bool) Option {
	return func(o *callOptions) {
		o.append = on
	}
}

// WriteHeader controls whether writers emit a header line. Default true.
func WriteHeader(on bool) Option {
	return func(o *callOptions) {
		o.header = on
	}
}

// MapFieldNames renames field names as they are read, including names given
// with FieldNames.
func MapFieldNames(fn func(string) string) Option {
	return func(o *callOptions) {
		o.mapName = fn
	}
}

// InferFieldNames makes Export collect every record first and use the
// sorted union of their field names as the column order.
func InferFieldNames() Option {
	return func(o *callOptions) {
		o.inferNames = true
	}
}
