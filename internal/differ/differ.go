// Package differ computes the single splice that turns one sequence into
// another by trimming their common prefix and suffix.
//
// This is not an LCS diff. It runs in O(n), preserves order, and reports a
// reorder as a delete plus an insert.
package differ

// Splice deletes DeleteCount items at Start and inserts Inserted there.
// Inserted is nil when the splice is a pure deletion.
type Splice[T any] struct {
	Start       int
	DeleteCount int
	Inserted    []T
}

// Diff returns the splice that transforms old into new, or nil when equal
// considers the sequences identical.
func Diff[T any](old, new []T, equal func(a, b T) bool) *Splice[T] {
	prefix := 0
	for prefix < len(old) && prefix < len(new) && equal(old[prefix], new[prefix]) {
		prefix++
	}

	suffix := 0
	for suffix < len(old)-prefix && suffix < len(new)-prefix &&
		equal(old[len(old)-1-suffix], new[len(new)-1-suffix]) {
		suffix++
	}

	deleteCount := len(old) - suffix - prefix
	insertEnd := len(new) - suffix
	if deleteCount == 0 && insertEnd == prefix {
		return nil
	}

	s := &Splice[T]{Start: prefix, DeleteCount: deleteCount}
	if insertEnd > prefix {
		s.Inserted = make([]T, insertEnd-prefix)
		copy(s.Inserted, new[prefix:insertEnd])
	}
	return s
}

// Deleted returns the items of old the splice removes.
func (s *Splice[T]) Deleted(old []T) []T {
	return old[s.Start : s.Start+s.DeleteCount]
}

// Apply returns a new slice with the splice applied to old. old is not modified.
func (s *Splice[T]) Apply(old []T) []T {
	if s == nil {
		out := make([]T, len(old))
		copy(out, old)
		return out
	}
	out := make([]T, 0, len(old)-s.DeleteCount+len(s.Inserted))
	out = append(out, old[:s.Start]...)
	out = append(out, s.Inserted...)
	out = append(out, old[s.Start+s.DeleteCount:]...)
	return out
}
