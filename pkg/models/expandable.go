package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Expandable is a reference the API returns either as an ID string or, when
// requested through `expand`, as the full object. The expanded form is kept
// verbatim so it can be decoded into whatever type the caller needs.
type Expandable struct {
	ID     string
	Object json.RawMessage
}

func ExpandableID(id string) Expandable {
	return Expandable{ID: id}
}

func (e Expandable) IsExpanded() bool { return len(e.Object) > 0 }

// Decode unmarshals the expanded object into v.
func (e Expandable) Decode(v any) error {
	if !e.IsExpanded() {
		return fmt.Errorf("reference %q is not expanded", e.ID)
	}
	return json.Unmarshal(e.Object, v)
}

func (e Expandable) MarshalJSON() ([]byte, error) {
	if e.IsExpanded() {
		return e.Object, nil
	}
	return json.Marshal(e.ID)
}

func (e *Expandable) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		e.Object = nil
		return json.Unmarshal(data, &e.ID)
	}

	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("failed to decode expandable reference: %w", err)
	}
	e.ID = head.ID
	e.Object = append(json.RawMessage(nil), data...)
	return nil
}
