package particles

import "fmt"

// Mapping pairs entities of two stores position by position.
type Mapping[T any] struct {
	from, to *Store[T]
	src, dst []Key
	lookup   map[Key]int
}

func newMapping[T any](from, to *Store[T], src, dst []Key) *Mapping[T] {
	m := &Mapping[T]{from: from, to: to, src: src, dst: dst, lookup: make(map[Key]int, len(src))}
	for i, k := range src {
		m.lookup[k] = i
	}
	return m
}

// Match pairs the i-th entity of from with the i-th entity of to. The stores
// must hold the same number of entities.
func Match[T any](from, to *Store[T]) (*Mapping[T], error) {
	if from.Len() != to.Len() {
		return nil, fmt.Errorf("%w: %s has %d entities, %s has %d",
			ErrCorrespondence, from.name, from.Len(), to.name, to.Len())
	}
	src := make([]Key, from.Len())
	dst := make([]Key, to.Len())
	copy(src, from.keys)
	copy(dst, to.keys)
	return newMapping(from, to, src, dst), nil
}

// Mirror appends value copies of every entity of from to to and returns the
// mapping between the originals and their copies.
func Mirror[T any](to, from *Store[T]) *Mapping[T] {
	src := make([]Key, 0, from.Len())
	dst := make([]Key, 0, from.Len())
	for ref, e := range from.All() {
		src = append(src, ref.key)
		dst = append(dst, to.Add(*e).key)
	}
	return newMapping(from, to, src, dst)
}

func (m *Mapping[T]) Len() int        { return len(m.src) }
func (m *Mapping[T]) From() *Store[T] { return m.from }
func (m *Mapping[T]) To() *Store[T]   { return m.to }

// Translate returns the counterpart of r on the destination side.
func (m *Mapping[T]) Translate(r Ref[T]) (Ref[T], error) {
	if r.store != m.from {
		return Ref[T]{}, fmt.Errorf("%w: %s is not in %s", ErrUnmapped, r, m.from.name)
	}
	i, ok := m.lookup[r.key]
	if !ok {
		return Ref[T]{}, fmt.Errorf("%w: %s", ErrUnmapped, r)
	}
	return Ref[T]{store: m.to, key: m.dst[i]}, nil
}

// SyncFunc writes the attributes present on src onto dst.
type SyncFunc[T any] func(dst, src *T) error

// Channel copies entity state from a source store onto the corresponding
// entities of a destination store. The correspondence is fixed when the
// channel is created; entities added afterwards are not covered.
type Channel[T any] struct {
	*Mapping[T]
	sync SyncFunc[T]
}

// NewChannelTo binds s to dst position by position. dst must already hold
// one entity per entity of s, in the same order.
func (s *Store[T]) NewChannelTo(dst *Store[T], sync SyncFunc[T]) (*Channel[T], error) {
	m, err := Match(s, dst)
	if err != nil {
		return nil, err
	}
	return &Channel[T]{Mapping: m, sync: sync}, nil
}

// Copy overwrites every destination entity with the current attributes of
// its source entity. Calling Copy again without source changes leaves the
// destination as it is.
func (c *Channel[T]) Copy() error {
	for i, k := range c.src {
		src, ok := c.from.Get(k)
		if !ok {
			return fmt.Errorf("%w: source %s#%d", ErrUnmapped, c.from.name, k)
		}
		dst, ok := c.to.Get(c.dst[i])
		if !ok {
			return fmt.Errorf("%w: destination %s#%d", ErrUnmapped, c.to.name, c.dst[i])
		}
		if err := c.sync(dst, src); err != nil {
			return fmt.Errorf("copy %s -> %s at %d: %w", c.from.name, c.to.name, i, err)
		}
	}
	return nil
}
