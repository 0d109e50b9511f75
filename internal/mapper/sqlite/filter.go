package sqlite

import (
	"strings"

	"github.com/roach88/normstore/internal/ir"
)

// filter is a parameterized WHERE clause over records of one type.
// Values are always bound, never interpolated.
type filter struct {
	where  string
	params []any

	// residual holds options SQLite cannot compare exactly (arrays,
	// objects, awkward keys). They are matched with ir.Equal after decoding.
	residual ir.IRObject
}

// compileFilter turns equality options into a conjunction on the JSON body.
// json_type pins the stored kind so 1, "1" and true never match each other.
func compileFilter(typ string, opts ir.IRObject) filter {
	f := filter{
		where:    "entity_type = ?",
		params:   []any{typ},
		residual: ir.IRObject{},
	}
	for _, k := range opts.SortedKeys() {
		sql, params, ok := compileEquals(k, opts[k])
		if !ok {
			f.residual[k] = opts[k]
			continue
		}
		f.where += " AND " + sql
		f.params = append(f.params, params...)
	}
	return f
}

func compileEquals(field string, v ir.IRValue) (string, []any, bool) {
	if field == "" || strings.ContainsAny(field, "\"\\") {
		return "", nil, false
	}
	path := `$."` + field + `"`

	switch val := v.(type) {
	case ir.IRString:
		return "json_type(body, ?) = 'text' AND json_extract(body, ?) = ?", []any{path, path, string(val)}, true
	case ir.IRInt:
		return "json_type(body, ?) = 'integer' AND json_extract(body, ?) = ?", []any{path, path, int64(val)}, true
	case ir.IRBool:
		if val {
			return "json_type(body, ?) = 'true'", []any{path}, true
		}
		return "json_type(body, ?) = 'false'", []any{path}, true
	case nil, ir.IRNull:
		// A missing attribute equals null.
		return "coalesce(json_type(body, ?), 'null') = 'null'", []any{path}, true
	default:
		return "", nil, false
	}
}

// exact reports whether SQL alone decides the match.
func (f filter) exact() bool {
	return len(f.residual) == 0
}
