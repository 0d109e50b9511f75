package sqlite

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/normstore/internal/ir"
)

// marshalBody converts a record to canonical JSON TEXT for storage.
func marshalBody(rec ir.IRObject) (string, error) {
	data, err := ir.MarshalCanonical(rec)
	if err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}
	return string(data), nil
}

// unmarshalBody parses stored TEXT back into a record.
// ir.IRObject.UnmarshalJSON keeps integers exact beyond 2^53.
func unmarshalBody(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal body: %w", err)
	}
	return obj, nil
}
