// Package store provides the keyed collection every ledger registry is built
// on: an insertion-ordered map with O(1) insert, lookup and delete.
package store

import "container/list"

// Ordered is a map that remembers insertion order. It is not safe for
// concurrent use; the owner serialises access.
type Ordered[K comparable, V any] struct {
	items map[K]*list.Element
	order *list.List
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// NewOrdered creates an empty store.
func NewOrdered[K comparable, V any]() *Ordered[K, V] {
	return &Ordered[K, V]{
		items: make(map[K]*list.Element),
		order: list.New(),
	}
}

// Put stores value under key. A new key is appended at the end; an existing
// key keeps its position and reports false.
func (s *Ordered[K, V]) Put(key K, value V) bool {
	if elem, exists := s.items[key]; exists {
		elem.Value.(*entry[K, V]).value = value
		return false
	}
	s.items[key] = s.order.PushBack(&entry[K, V]{key: key, value: value})
	return true
}

// Insert stores value only if key is absent and reports whether it did.
func (s *Ordered[K, V]) Insert(key K, value V) bool {
	if _, exists := s.items[key]; exists {
		return false
	}
	s.items[key] = s.order.PushBack(&entry[K, V]{key: key, value: value})
	return true
}

// Get retrieves the value stored under key.
func (s *Ordered[K, V]) Get(key K) (V, bool) {
	elem, exists := s.items[key]
	if !exists {
		var zero V
		return zero, false
	}
	return elem.Value.(*entry[K, V]).value, true
}

// Has reports whether key is present.
func (s *Ordered[K, V]) Has(key K) bool {
	_, exists := s.items[key]
	return exists
}

// Delete removes key and returns the removed value.
func (s *Ordered[K, V]) Delete(key K) (V, bool) {
	elem, exists := s.items[key]
	if !exists {
		var zero V
		return zero, false
	}
	delete(s.items, key)
	s.order.Remove(elem)
	return elem.Value.(*entry[K, V]).value, true
}

// Values returns a copy of all values in insertion order.
func (s *Ordered[K, V]) Values() []V {
	out := make([]V, 0, len(s.items))
	for elem := s.order.Front(); elem != nil; elem = elem.Next() {
		out = append(out, elem.Value.(*entry[K, V]).value)
	}
	return out
}

// Each calls fn for every entry in insertion order until fn returns false.
func (s *Ordered[K, V]) Each(fn func(K, V) bool) {
	for elem := s.order.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*entry[K, V])
		if !fn(e.key, e.value) {
			return
		}
	}
}

// Len returns the number of entries.
func (s *Ordered[K, V]) Len() int {
	return len(s.items)
}

// Clear removes every entry.
func (s *Ordered[K, V]) Clear() {
	s.items = make(map[K]*list.Element)
	s.order.Init()
}
