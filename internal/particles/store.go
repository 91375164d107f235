// Package particles provides ordered entity stores with stable identities and
// the channels that copy state between two stores.
//
// A [Store] keeps entities in insertion order. Every entity added gets a fresh
// [Key] from a process-wide sequence, so two stores never share an identity
// even when one holds value copies of the other's entities. [Ref] is the live
// handle returned by [Store.Add]; it is the canonical way to reference an
// entity held by a store.
//
// # Thread Safety
//
// Stores are NOT safe for concurrent use. The caller owns a store and all
// mutation happens from one goroutine at a time.
package particles

import (
	"errors"
	"fmt"
	"iter"
	"sync/atomic"
)

var (
	// ErrCorrespondence indicates two stores that cannot be paired position by position.
	ErrCorrespondence = errors.New("particles: stores do not correspond")

	// ErrUnmapped indicates a reference that has no counterpart across a mapping.
	ErrUnmapped = errors.New("particles: reference has no counterpart")
)

// Key is the identity of an entity within the process.
type Key uint64

var lastKey atomic.Uint64

func nextKey() Key { return Key(lastKey.Add(1)) }

// Store is an ordered collection of entities of one kind.
type Store[T any] struct {
	name  string
	keys  []Key
	items []*T
	index map[Key]int
}

func NewStore[T any](name string) *Store[T] {
	return &Store[T]{
		name:  name,
		keys:  make([]Key, 0),
		items: make([]*T, 0),
		index: make(map[Key]int),
	}
}

func (s *Store[T]) Name() string { return s.name }
func (s *Store[T]) Len() int     { return len(s.items) }

// Add stores a copy of e under a new identity and returns the live handle to
// the stored copy. Later changes to e are not seen by the store.
func (s *Store[T]) Add(e T) Ref[T] {
	k := nextKey()
	stored := new(T)
	*stored = e
	s.index[k] = len(s.items)
	s.keys = append(s.keys, k)
	s.items = append(s.items, stored)
	return Ref[T]{store: s, key: k}
}

// AddMany adds every entity in order and returns their handles.
func (s *Store[T]) AddMany(es []T) []Ref[T] {
	refs := make([]Ref[T], 0, len(es))
	for _, e := range es {
		refs = append(refs, s.Add(e))
	}
	return refs
}

// Get returns the live entity for k.
func (s *Store[T]) Get(k Key) (*T, bool) {
	i, ok := s.index[k]
	if !ok {
		return nil, false
	}
	return s.items[i], true
}

// At returns the handle of the i-th entity in insertion order.
func (s *Store[T]) At(i int) Ref[T] {
	return Ref[T]{store: s, key: s.keys[i]}
}

// IndexOf returns the insertion position of r, or false when r does not
// belong to s.
func (s *Store[T]) IndexOf(r Ref[T]) (int, bool) {
	if r.store != s {
		return 0, false
	}
	i, ok := s.index[r.key]
	return i, ok
}

// Contains reports whether r resolves to an entity of s.
func (s *Store[T]) Contains(r Ref[T]) bool {
	_, ok := s.IndexOf(r)
	return ok
}

// All iterates over the handles and live entities in insertion order.
func (s *Store[T]) All() iter.Seq2[Ref[T], *T] {
	return func(yield func(Ref[T], *T) bool) {
		for i, item := range s.items {
			if !yield(Ref[T]{store: s, key: s.keys[i]}, item) {
				return
			}
		}
	}
}

// Values returns value copies of all entities in insertion order.
func (s *Store[T]) Values() []T {
	out := make([]T, len(s.items))
	for i, item := range s.items {
		out[i] = *item
	}
	return out
}

func (s *Store[T]) String() string {
	return fmt.Sprintf("%s(%d)", s.name, len(s.items))
}

// Ref is a handle to an entity held by a store. The zero Ref references
// nothing.
type Ref[T any] struct {
	store *Store[T]
	key   Key
}

func (r Ref[T]) Key() Key            { return r.key }
func (r Ref[T]) Store() *Store[T]    { return r.store }
func (r Ref[T]) IsNil() bool         { return r.store == nil }
func (r Ref[T]) Equal(o Ref[T]) bool { return r.store == o.store && r.key == o.key }

// Get resolves the handle to the live entity, or nil when the handle does
// not resolve.
func (r Ref[T]) Get() *T {
	if r.store == nil {
		return nil
	}
	e, _ := r.store.Get(r.key)
	return e
}

func (r Ref[T]) String() string {
	if r.store == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s#%d", r.store.name, r.key)
}
