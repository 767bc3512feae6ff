package transform

import (
	"context"
	"iter"
	"maps"
	"slices"
	"strings"

	"github.com/JonMunkholm/ucsv/internal/codec"
	"github.com/JonMunkholm/ucsv/internal/core"
)

// LineBreakPlaceholder replaces line breaks inside values written by Slim:
// a backslash followed by the letter n.
const LineBreakPlaceholder = `\n`

var lineBreaks = strings.NewReplacer(
	"\r\n", LineBreakPlaceholder,
	"\r", LineBreakPlaceholder,
	"\n", LineBreakPlaceholder,
)

// Merge concatenates the records of sources into dest. The output columns
// are chosen by selector from every source record; a nil selector keeps the
// names common to all of them. Records are written in source order.
func Merge(ctx context.Context, files *core.Files, sources []string, dest string, selector KeySelector) error {
	if selector == nil {
		selector = CommonKeysIncluding(nil)
	}

	var rows []*codec.Record
	for _, src := range sources {
		recs, err := files.ReadAll(ctx, src)
		if err != nil {
			return err
		}
		rows = append(rows, recs...)
	}

	w, err := files.OpenWriter(ctx, dest, core.FieldNames(selector(rows)...))
	if err != nil {
		return err
	}
	return closeWriter(w, w.WriteRecords(rows))
}

// Dedupe copies src to dest, keeping the first record for each key.
func Dedupe(ctx context.Context, files *core.Files, src, dest string, key KeyFunc) error {
	_, err := files.Pipe(ctx, files.OpenRecords(ctx, src), dest, func(seq iter.Seq2[*codec.Record, error], w *codec.Writer) (int, error) {
		return DedupeRecords(seq, w, key)
	})
	return err
}

// DedupeRecords writes the records of seq whose key has not been seen yet
// and returns how many were written.
func DedupeRecords(seq iter.Seq2[*codec.Record, error], w *codec.Writer, key KeyFunc) (int, error) {
	seen := make(map[string]struct{})
	written := 0
	for rec, err := range seq {
		if err != nil {
			return written, err
		}
		k := key(rec)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if err := w.Write(rec); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// Slim copies src to dest keeping only fieldnames, in that order, with line
// breaks inside values replaced by LineBreakPlaceholder.
func Slim(ctx context.Context, files *core.Files, src, dest string, fieldnames []string) error {
	_, err := files.Pipe(ctx, files.OpenRecords(ctx, src), dest, func(seq iter.Seq2[*codec.Record, error], w *codec.Writer) (int, error) {
		return SlimRecords(seq, w, fieldnames)
	}, core.FieldNames(fieldnames...))
	return err
}

// SlimRecords writes each record of seq projected onto fieldnames, with line
// breaks flattened, and returns how many were written.
func SlimRecords(seq iter.Seq2[*codec.Record, error], w *codec.Writer, fieldnames []string) (int, error) {
	written := 0
	for rec, err := range seq {
		if err != nil {
			return written, err
		}
		out := codec.NewRecord(len(fieldnames))
		for _, name := range fieldnames {
			out.Set(name, lineBreaks.Replace(rec.Value(name)))
		}
		if err := w.Write(out); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// Grouped writes one record per group of src to dest.
//
// This behavior is provisional. A field is stable for a group when every
// record of the group has it with the same value; the output columns are the
// fields stable in every group, sorted. Each group is represented by its
// first record, in first-seen order. Nothing is written when no field is
// stable everywhere.
func Grouped(ctx context.Context, files *core.Files, src, dest string, groupKey KeyFunc) error {
	_, err := files.Pipe(ctx, files.OpenRecords(ctx, src), dest, func(seq iter.Seq2[*codec.Record, error], w *codec.Writer) (int, error) {
		return GroupedRecords(seq, w, groupKey)
	})
	return err
}

// GroupedRecords collapses seq as Grouped does and returns the number of groups written.
func GroupedRecords(seq iter.Seq2[*codec.Record, error], w *codec.Writer, groupKey KeyFunc) (int, error) {
	type group struct {
		first    *codec.Record
		constant map[string]string
	}

	groups := make(map[string]*group)
	var order []string
	for rec, err := range seq {
		if err != nil {
			return 0, err
		}
		k := groupKey(rec)
		g, ok := groups[k]
		if !ok {
			groups[k] = &group{first: rec, constant: rec.Map()}
			order = append(order, k)
			continue
		}
		for name, v := range g.constant {
			if got, ok := rec.Get(name); !ok || got != v {
				delete(g.constant, name)
			}
		}
	}
	if len(order) == 0 {
		return 0, nil
	}

	stable := maps.Clone(groups[order[0]].constant)
	for _, k := range order[1:] {
		for name := range stable {
			if _, ok := groups[k].constant[name]; !ok {
				delete(stable, name)
			}
		}
	}
	names := slices.Sorted(maps.Keys(stable))
	if len(names) == 0 {
		return 0, nil
	}

	for i, k := range order {
		if err := w.Write(groups[k].first.Project(names)); err != nil {
			return i, err
		}
	}
	return len(order), nil
}

func closeWriter(w *codec.Writer, err error) error {
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return err
}
