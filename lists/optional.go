package lists

import (
	"bytes"
	"encoding/json"
)

// Optional is a JSON field with three states: absent, explicit null, or a value.
type Optional[T any] struct {
	Set   bool // key was present in the payload
	Null  bool // value was JSON null
	Value T
}

// Some returns an Optional holding v
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null returns an Optional that is present with a null value
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// HasValue reports whether a non-null value was supplied
func (o Optional[T]) HasValue() bool {
	return o.Set && !o.Null
}

// IsZero reports an absent field, so `omitzero` drops it when encoding
func (o Optional[T]) IsZero() bool {
	return !o.Set
}

// UnmarshalJSON is only called when the key is present
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.Null = true
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// MarshalJSON encodes null for absent or null fields
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.HasValue() {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
