// Package iterate provides small helpers for building range-over-func
// sequences, used by [github.com/wasmlang/tscc/internal/ordered] to walk
// its entries without allocating intermediate slices.
package iterate

// Seq is a sequence of values of type V.
type Seq[V any] func(yield func(V) bool)

// Seq2 is a sequence of key-value pairs.
type Seq2[K, V any] func(yield func(K, V) bool)

// Done wraps yield and calls done when yield returns false.
func Done[V any](yield func(V) bool, done func()) func(V) bool {
	return func(v V) bool {
		if !yield(v) {
			done()
			return false
		}
		return true
	}
}

// Done2 wraps yield and calls done when yield returns false.
func Done2[K, V any](yield func(K, V) bool, done func()) func(K, V) bool {
	return func(k K, v V) bool {
		if !yield(k, v) {
			done()
			return false
		}
		return true
	}
}

// Once wraps yield to ensure each unique value is only yielded once.
func Once[V comparable](yield func(V) bool) func(V) bool {
	m := make(map[V]struct{})
	return func(v V) bool {
		if _, ok := m[v]; ok {
			return true
		}
		m[v] = struct{}{}
		return yield(v)
	}
}
