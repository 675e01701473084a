package types

// DefaultMap is a generic map wrapper that creates missing entries on access
// using a user-defined function.
//
//	subs := NewDefaultMap[string](func() Set[*sub] { return NewSet[*sub]() })
//	subs.Get("id").Add(s) // creates the set for "id" on first use
type DefaultMap[K comparable, V any] struct {
	data        map[K]V
	defaultFunc func() V
}

// NewDefaultMap creates an empty DefaultMap with the given default function.
func NewDefaultMap[K comparable, V any](defaultFunc func() V) DefaultMap[K, V] {
	return DefaultMap[K, V]{
		data:        make(map[K]V),
		defaultFunc: defaultFunc,
	}
}

// Get returns the value for key, storing and returning a default value when
// the key is absent.
func (d *DefaultMap[K, V]) Get(key K) V {
	val, ok := d.data[key]
	if ok {
		return val
	}

	val = d.defaultFunc()
	d.data[key] = val
	return val
}

// Lookup returns the value for key without creating it.
func (d *DefaultMap[K, V]) Lookup(key K) (V, bool) {
	val, ok := d.data[key]
	return val, ok
}

// Set assigns a value to the given key.
func (d *DefaultMap[K, V]) Set(key K, val V) {
	d.data[key] = val
}

// Delete removes key from the map.
func (d *DefaultMap[K, V]) Delete(key K) {
	delete(d.data, key)
}

// Len returns the number of stored keys.
func (d *DefaultMap[K, V]) Len() int {
	return len(d.data)
}
