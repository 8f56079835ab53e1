package testutil

import "fmt"

// Source is an in-memory ordered collection of keys.
type Source struct {
	keys []string
}

// NewSource returns a Source of n items keyed "item-<i>".
func NewSource(n int) *Source {
	s := &Source{keys: make([]string, n)}
	for i := range s.keys {
		s.keys[i] = fmt.Sprintf("item-%d", i)
	}
	return s
}

// Len returns the number of items.
func (s *Source) Len() int { return len(s.keys) }

// KeyAt returns the key at index.
func (s *Source) KeyAt(index int) string { return s.keys[index] }

// Keys returns a copy of all keys.
func (s *Source) Keys() []string { return append([]string(nil), s.keys...) }

// Insert adds keys before index at.
func (s *Source) Insert(at int, keys ...string) {
	s.keys = append(s.keys[:at], append(append([]string(nil), keys...), s.keys[at:]...)...)
}

// Remove deletes count keys starting at at.
func (s *Source) Remove(at, count int) {
	s.keys = append(s.keys[:at], s.keys[at+count:]...)
}

// Move relocates the key at from to index to.
func (s *Source) Move(from, to int) {
	k := s.keys[from]
	s.keys = append(s.keys[:from], s.keys[from+1:]...)
	s.keys = append(s.keys[:to], append([]string{k}, s.keys[to:]...)...)
}
