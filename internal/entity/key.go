package entity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/normstore/internal/ir"
)

// Key identifies one entity: its type name plus the string form of its id.
type Key struct {
	Type string
	ID   string
}

// String returns the index form "Type|ID".
func (k Key) String() string {
	return k.Type + "|" + k.ID
}

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool {
	return k.Type == "" && k.ID == ""
}

// IDValue returns the id as a record value. Decimal ids come back as IRInt,
// everything else as IRString.
func (k Key) IDValue() ir.IRValue {
	if n, err := strconv.ParseInt(k.ID, 10, 64); err == nil && strconv.FormatInt(n, 10) == k.ID {
		return ir.IRInt(n)
	}
	return ir.IRString(k.ID)
}

// ParseKey parses the "Type|ID" form produced by Key.String.
func ParseKey(s string) (Key, error) {
	typ, id, ok := strings.Cut(s, "|")
	if !ok || typ == "" || id == "" {
		return Key{}, fmt.Errorf("invalid entity key %q", s)
	}
	return Key{Type: typ, ID: id}, nil
}

// IDString normalizes a record id. Non-empty strings and integers are ids;
// anything else is not.
func IDString(v ir.IRValue) (string, bool) {
	switch id := v.(type) {
	case ir.IRString:
		if id == "" {
			return "", false
		}
		return string(id), true
	case ir.IRInt:
		return strconv.FormatInt(int64(id), 10), true
	default:
		return "", false
	}
}

// KeyOf builds the key for an entity of typ with the given id.
func KeyOf(typ string, id ir.IRValue) (Key, error) {
	s, ok := IDString(id)
	if !ok {
		return Key{}, fmt.Errorf("%w: %s", ErrMissingID, typ)
	}
	return Key{Type: typ, ID: s}, nil
}
