package transform

import "iter"

// Chunk batches seq into slices of at most n records. The last batch may be
// shorter; an error ends the sequence after being yielded with a nil batch.
func Chunk[T any](n int, seq iter.Seq2[T, error]) iter.Seq2[[]T, error] {
	if n < 1 {
		n = 1
	}
	return func(yield func([]T, error) bool) {
		batch := make([]T, 0, n)
		for item, err := range seq {
			if err != nil {
				yield(nil, err)
				return
			}
			batch = append(batch, item)
			if len(batch) == n {
				if !yield(batch, nil) {
					return
				}
				batch = make([]T, 0, n)
			}
		}
		if len(batch) > 0 {
			yield(batch, nil)
		}
	}
}
