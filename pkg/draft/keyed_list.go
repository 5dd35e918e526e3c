package draft

import (
	"fmt"

	"github.com/google/uuid"
)

// Entry is a list item with its surrogate key.
type Entry[T any] struct {
	Key   string
	Value T
}

// KeyedList is an ordered list whose items are addressed by random surrogate
// keys, so an item keeps its identity while its fields are being edited.
// Keys stay on the client.
type KeyedList[T any] struct {
	keys  []string
	items map[string]T
}

// NewKeyedList creates a list holding items in order.
func NewKeyedList[T any](items ...T) *KeyedList[T] {
	l := &KeyedList[T]{items: make(map[string]T, len(items))}
	for _, it := range items {
		l.Add(it)
	}
	return l
}

// Add appends item and returns its key.
func (l *KeyedList[T]) Add(item T) string {
	key := uuid.NewString()
	l.keys = append(l.keys, key)
	l.items[key] = item
	return key
}

// Get returns the item under key.
func (l *KeyedList[T]) Get(key string) (T, bool) {
	it, ok := l.items[key]
	return it, ok
}

// Update applies fn to the item under key.
func (l *KeyedList[T]) Update(key string, fn func(*T)) error {
	it, ok := l.items[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	fn(&it)
	l.items[key] = it
	return nil
}

// Remove deletes the item under key.
func (l *KeyedList[T]) Remove(key string) error {
	if _, ok := l.items[key]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	delete(l.items, key)
	for i, k := range l.keys {
		if k == key {
			l.keys = append(l.keys[:i:i], l.keys[i+1:]...)
			break
		}
	}
	return nil
}

// Find returns the first entry matching pred.
func (l *KeyedList[T]) Find(pred func(T) bool) (Entry[T], bool) {
	for _, k := range l.keys {
		if it := l.items[k]; pred(it) {
			return Entry[T]{Key: k, Value: it}, true
		}
	}
	return Entry[T]{}, false
}

// Len returns the number of items.
func (l *KeyedList[T]) Len() int {
	return len(l.keys)
}

// Values returns the items in order.
func (l *KeyedList[T]) Values() []T {
	out := make([]T, 0, len(l.keys))
	for _, k := range l.keys {
		out = append(out, l.items[k])
	}
	return out
}

// Entries returns the items with their keys, in order.
func (l *KeyedList[T]) Entries() []Entry[T] {
	out := make([]Entry[T], 0, len(l.keys))
	for _, k := range l.keys {
		out = append(out, Entry[T]{Key: k, Value: l.items[k]})
	}
	return out
}
