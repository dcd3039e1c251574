package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FieldType is one column of a dataset and its BI type (STRING, INTEGER, DATETIME, ...).
type FieldType struct {
	Name string
	Type string
}

// FieldTypes is an ordered field→type map. It marshals as a JSON object and
// keeps the object's key order when unmarshalled.
type FieldTypes []FieldType

// Lookup returns the type of a field and whether it is known.
func (f FieldTypes) Lookup(name string) (string, bool) {
	for _, ft := range f {
		if ft.Name == name {
			return ft.Type, true
		}
	}
	return "", false
}

// Names returns the field names in order.
func (f FieldTypes) Names() []string {
	out := make([]string, len(f))
	for i, ft := range f {
		out[i] = ft.Name
	}
	return out
}

// IsDateField reports whether the named field has a date-like type.
func (f FieldTypes) IsDateField(name string) bool {
	t, ok := f.Lookup(name)
	return ok && IsDateType(t)
}

// IsDateType reports whether a BI column type is date-like. The RLS engine
// cannot filter on these.
func IsDateType(t string) bool {
	switch strings.ToUpper(t) {
	case "DATE", "DATETIME", "TIMESTAMP":
		return true
	}
	return false
}

// MarshalJSON encodes the fields as an ordered JSON object.
func (f FieldTypes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ft := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(ft.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(ft.Type)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of string values, preserving key order.
func (f *FieldTypes) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("field types: expected JSON object")
	}
	out := FieldTypes{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var typ string
		if err := dec.Decode(&typ); err != nil {
			return fmt.Errorf("field types: value of %q: %w", name, err)
		}
		out = append(out, FieldType{Name: name, Type: typ})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*f = out
	return nil
}
