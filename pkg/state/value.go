package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Value is a field value: plain text, or a list for checkbox groups.
type Value struct {
	text  string
	items []string
	list  bool
}

// Text wraps a single string value.
func Text(s string) Value { return Value{text: s} }

// List wraps a multi-valued selection.
func List(items ...string) Value {
	return Value{items: append([]string{}, items...), list: true}
}

// IsList reports whether the value holds a list.
func (v Value) IsList() bool { return v.list }

// String returns the text, or list items joined by ", ".
func (v Value) String() string {
	if v.list {
		return strings.Join(v.items, ", ")
	}
	return v.text
}

// Items returns the list items. A non-empty text value yields one item.
func (v Value) Items() []string {
	if v.list {
		return append([]string{}, v.items...)
	}
	if v.text == "" {
		return nil
	}
	return []string{v.text}
}

// Blank reports whether the value has no non-whitespace content.
func (v Value) Blank() bool {
	if !v.list {
		return strings.TrimSpace(v.text) == ""
	}
	for _, item := range v.items {
		if strings.TrimSpace(item) != "" {
			return false
		}
	}
	return true
}

// Equal compares two values, including their shape.
func (v Value) Equal(other Value) bool {
	if v.list != other.list {
		return false
	}
	if !v.list {
		return v.text == other.text
	}
	if len(v.items) != len(other.items) {
		return false
	}
	for i := range v.items {
		if v.items[i] != other.items[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes text as a string and lists as an array.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.list {
		items := v.items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(v.text)
}

// UnmarshalJSON accepts strings, arrays, numbers, booleans and null.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*v = Text("")
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	case data[0] == '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		items := make([]string, 0, len(raw))
		for _, item := range raw {
			var inner Value
			if err := inner.UnmarshalJSON(item); err != nil {
				return err
			}
			items = append(items, inner.String())
		}
		*v = List(items...)
		return nil
	case data[0] == '{':
		return fmt.Errorf("state: object is not a field value")
	default:
		*v = Text(string(data))
		return nil
	}
}
