package types

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
)

// NullableUUID separates an absent JSON key from an explicit null. Valid is
// set whenever the key was present; Value is nil for null.
type NullableUUID struct {
	Valid bool
	Value *uuid.UUID
}

func (n *NullableUUID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*n = NullableUUID{Valid: true}
		return nil
	}
	var parsed uuid.UUID
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return err
	}
	*n = NullableUUID{Valid: true, Value: &parsed}
	return nil
}

// IsNull reports an explicit null.
func (n NullableUUID) IsNull() bool {
	return n.Valid && n.Value == nil
}
