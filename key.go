package argschema

import (
	"slices"
	"strings"
)

// keySeparator joins segments in the internal map identity of a Key. Field names may not contain it, which is
// verified when a schema is compiled.
const keySeparator = "\x1f"

// Key is the nesting-qualified identity of a field: an ordered list of segment names. The zero value is the root
// key. Keys are immutable; Push and Pop return new keys.
//
// Unlike a dotted string, a Key never has to be split, so a segment may legally contain a '.' character.
type Key struct {
	segments []string
}

// RootKey is the key of the top-level structure.
var RootKey = Key{}

// KeyOf returns a key made of the given segments.
func KeyOf(segments ...string) Key {
	return Key{segments: slices.Clone(segments)}
}

func (k Key) Push(segment string) Key {
	segments := make([]string, len(k.segments), len(k.segments)+1)
	copy(segments, k.segments)
	return Key{segments: append(segments, segment)}
}

// Pop returns the parent key and the last segment. Popping the root key returns the root key and "".
func (k Key) Pop() (Key, string) {
	if len(k.segments) == 0 {
		return k, ""
	}
	n := len(k.segments) - 1
	return Key{segments: k.segments[:n:n]}, k.segments[n]
}

func (k Key) First() string {
	if len(k.segments) == 0 {
		return ""
	}
	return k.segments[0]
}

// Rest returns the key without its first segment.
func (k Key) Rest() Key {
	if len(k.segments) == 0 {
		return k
	}
	return Key{segments: k.segments[1:len(k.segments):len(k.segments)]}
}

func (k Key) Last() string {
	if len(k.segments) == 0 {
		return ""
	}
	return k.segments[len(k.segments)-1]
}

func (k Key) Len() int {
	return len(k.segments)
}

func (k Key) IsRoot() bool {
	return len(k.segments) == 0
}

func (k Key) Segments() []string {
	return slices.Clone(k.segments)
}

func (k Key) Equal(o Key) bool {
	return slices.Equal(k.segments, o.segments)
}

// String renders the key as a dotted path, e.g. "a.b.c". The root key renders as an empty string.
func (k Key) String() string {
	return strings.Join(k.segments, ".")
}

// id is the map identity of the key. The root key and a key made of a single empty segment have distinct ids.
func (k Key) id() string {
	var b strings.Builder
	for _, s := range k.segments {
		b.WriteString(s)
		b.WriteString(keySeparator)
	}
	return b.String()
}

type keyEntry[V any] struct {
	key   Key
	value V
}

// KeyMap maps keys to values. The zero value is an empty map ready for use.
type KeyMap[V any] struct {
	entries map[string]keyEntry[V]
}

// FlatMap is the flat dest-to-value mapping produced by parsing: scalars, lists or the Unset sentinel.
type FlatMap = KeyMap[any]

// Selectors maps each structure prefix to the schema whose constructor owns it.
type Selectors = KeyMap[*Schema]

func (m *KeyMap[V]) Set(k Key, v V) {
	if m.entries == nil {
		m.entries = make(map[string]keyEntry[V])
	}
	m.entries[k.id()] = keyEntry[V]{key: k, value: v}
}

func (m KeyMap[V]) Get(k Key) (V, bool) {
	e, ok := m.entries[k.id()]
	return e.value, ok
}

func (m KeyMap[V]) Has(k Key) bool {
	_, ok := m.entries[k.id()]
	return ok
}

func (m *KeyMap[V]) Delete(k Key) {
	delete(m.entries, k.id())
}

func (m KeyMap[V]) Len() int {
	return len(m.entries)
}

// Keys returns all keys of the map, ordered segment by segment.
func (m KeyMap[V]) Keys() []Key {
	keys := make([]Key, 0, len(m.entries))
	for _, e := range m.entries {
		keys = append(keys, e.key)
	}
	slices.SortFunc(keys, func(a, b Key) int { return slices.Compare(a.segments, b.segments) })
	return keys
}

// Child returns the entries whose first segment equals the given segment, with that segment stripped.
func (m KeyMap[V]) Child(segment string) KeyMap[V] {
	var child KeyMap[V]
	for _, e := range m.entries {
		if e.key.Len() > 0 && e.key.First() == segment {
			child.Set(e.key.Rest(), e.value)
		}
	}
	return child
}

func (m KeyMap[V]) Clone() KeyMap[V] {
	var c KeyMap[V]
	for _, e := range m.entries {
		c.Set(e.key, e.value)
	}
	return c
}
