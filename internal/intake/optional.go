package intake

import (
	"bytes"
	"encoding/json"
)

// OptionalString tells an omitted JSON field apart from an explicit null.
// Set is false when the field was absent.
type OptionalString struct {
	Set   bool
	Value *string
}

// Some returns a set value.
func Some(v string) OptionalString {
	return OptionalString{Set: true, Value: &v}
}

// Null returns an explicit null.
func Null() OptionalString {
	return OptionalString{Set: true}
}

// UnmarshalJSON is only called when the field is present.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// MarshalJSON writes the value or null.
func (o OptionalString) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}
