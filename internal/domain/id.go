package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FlexibleID holds an identifier that upstream may encode as a JSON number or string.
type FlexibleID string

// String returns the identifier text.
func (id FlexibleID) String() string {
	return string(id)
}

// UnmarshalJSON accepts numbers, strings and null.
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*id = FlexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*id = FlexibleID(n.String())
	return nil
}

// MarshalJSON renders the identifier as a string.
func (id FlexibleID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}
