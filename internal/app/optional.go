package app

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes a JSON field that was omitted from one that was set
// to null. Patch handlers rely on this: an omitted field is left untouched,
// an explicit null clears it.
type Optional[T any] struct {
	Set   bool // field was present in the payload
	Valid bool // field carried a non-null value
	Value T
}

// UnmarshalJSON is only invoked for fields present in the payload, so Set is
// always true here.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.Valid = false
		o.Value = zero
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}
