package entity

import "strings"

// Link is the value of one relation slot: a single key, null, or an ordered
// sequence of keys. The zero Link is a to-one null.
type Link struct {
	many bool
	keys []Key
}

// One returns a to-one link to k.
func One(k Key) Link {
	return Link{keys: []Key{k}}
}

// Null returns an empty to-one link.
func Null() Link {
	return Link{}
}

// Many returns a to-many link holding keys in order. Duplicates are dropped.
func Many(keys ...Key) Link {
	l := Link{many: true, keys: make([]Key, 0, len(keys))}
	for _, k := range keys {
		if !l.Contains(k) {
			l.keys = append(l.keys, k)
		}
	}
	return l
}

// Empty returns null for to-one slots and an empty sequence for to-many.
func Empty(many bool) Link {
	if many {
		return Many()
	}
	return Null()
}

// IsMany reports whether l is a to-many link.
func (l Link) IsMany() bool { return l.many }

// IsNull reports whether l is a to-one link with no target.
func (l Link) IsNull() bool { return !l.many && len(l.keys) == 0 }

// Len returns the number of keys in l.
func (l Link) Len() int { return len(l.keys) }

// Key returns the target of a to-one link.
func (l Link) Key() (Key, bool) {
	if l.many || len(l.keys) == 0 {
		return Key{}, false
	}
	return l.keys[0], true
}

// Keys returns a copy of the targets, in order.
func (l Link) Keys() []Key {
	out := make([]Key, len(l.keys))
	copy(out, l.keys)
	return out
}

// Contains reports whether k is a target of l.
func (l Link) Contains(k Key) bool {
	for _, x := range l.keys {
		if x == k {
			return true
		}
	}
	return false
}

// With returns l with k added: appended for to-many (no duplicates),
// replacing the target for to-one.
func (l Link) With(k Key) Link {
	if !l.many {
		return One(k)
	}
	if l.Contains(k) {
		return l
	}
	keys := make([]Key, len(l.keys), len(l.keys)+1)
	copy(keys, l.keys)
	return Link{many: true, keys: append(keys, k)}
}

// Without returns l with k removed. A to-one link pointing at k becomes null.
func (l Link) Without(k Key) Link {
	if !l.Contains(k) {
		return l
	}
	if !l.many {
		return Null()
	}
	keys := make([]Key, 0, len(l.keys)-1)
	for _, x := range l.keys {
		if x != k {
			keys = append(keys, x)
		}
	}
	return Link{many: true, keys: keys}
}

// Equal reports whether l and o have the same shape and targets in order.
func (l Link) Equal(o Link) bool {
	if l.many != o.many || len(l.keys) != len(o.keys) {
		return false
	}
	for i := range l.keys {
		if l.keys[i] != o.keys[i] {
			return false
		}
	}
	return true
}

func (l Link) String() string {
	if !l.many {
		if len(l.keys) == 0 {
			return "null"
		}
		return l.keys[0].String()
	}
	parts := make([]string, len(l.keys))
	for i, k := range l.keys {
		parts[i] = k.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
