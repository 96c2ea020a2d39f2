// Package formdata models a report's open-ended form_data mapping as a
// tagged union of value kinds, validated against the template's field set
// at write time instead of trusted blindly.
package formdata

import (
	"encoding/json"
	"time"

	"github.com/pairworks/tpsflow/internal/pdfform"
	"github.com/pairworks/tpsflow/internal/types"
)

// Kind discriminates the value union.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindStringList
)

// Value is one form value: a string, a bool, or a list of strings.
type Value struct {
	Kind Kind
	Str  string
	Bool bool
	List []string
}

func String(s string) Value { return Value{Kind: KindString, Str: s} }
func Bool(b bool) Value     { return Value{Kind: KindBool, Bool: b} }
func List(l []string) Value { return Value{Kind: KindStringList, List: l} }

// MarshalJSON implements the json.Marshaler interface.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindBool:
		return json.Marshal(v.Bool)
	case KindStringList:
		if v.List == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(v.List)
	default:
		return json.Marshal(v.Str)
	}
}

// UnmarshalJSON implements the json.Unmarshaler interface. Anything other
// than a string, bool, or string array is rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = String(s)
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = Bool(b)
		return nil
	}
	var l []string
	if err := json.Unmarshal(data, &l); err == nil {
		*v = List(l)
		return nil
	}
	return types.Validation("form value must be a string, boolean, or string array, got %s", string(data))
}

// Map is the form_data mapping from field name to value.
type Map map[string]Value

// FromJSON decodes a persisted or submitted form_data document.
func FromJSON(b []byte) (Map, error) {
	if len(b) == 0 {
		return Map{}, nil
	}
	var m Map
	if err := json.Unmarshal(b, &m); err != nil {
		if types.IsValidation(err) {
			return nil, err
		}
		return nil, types.Validation("malformed form_data: %v", err)
	}
	if m == nil {
		m = Map{}
	}
	return m, nil
}

// JSON encodes the map for persistence.
func (m Map) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// Clone returns a deep copy.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		if v.Kind == KindStringList {
			v.List = append([]string(nil), v.List...)
		}
		out[k] = v
	}
	return out
}

// GetString returns the string form of a value, "" when absent.
func (m Map) GetString(name string) string {
	v, ok := m[name]
	if !ok {
		return ""
	}
	switch v.Kind {
	case KindString:
		return v.Str
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindStringList:
		if len(v.List) > 0 {
			return v.List[0]
		}
	}
	return ""
}

// Auxiliary keys the form carries beyond the PDF's own fields.
const (
	KeyDate           = "date"
	KeyNotes          = "notes"
	KeyEmotionalState = "emotional_state"
	KeyDisplayTitle   = "display_title"
)

var auxiliaryKeys = map[string]Kind{
	KeyDate:           KindString,
	KeyNotes:          KindString,
	KeyEmotionalState: KindString,
	KeyDisplayTitle:   KindString,
}

// Validate checks every entry against the template's field set plus the
// auxiliary allowlist. Unknown keys and kind mismatches are rejected, so a
// partial update can never smuggle arbitrary shapes into a persisted row.
func (m Map) Validate(fields map[string]pdfform.Field) error {
	for name, v := range m {
		if kind, ok := auxiliaryKeys[name]; ok {
			if v.Kind != kind {
				return types.Validation("field %q must be a string", name)
			}
			continue
		}

		f, ok := fields[name]
		if !ok {
			return types.Validation("unknown form field %q", name)
		}

		switch f.Type {
		case pdfform.FieldTypeText, pdfform.FieldTypeButton:
			if v.Kind != KindString {
				return types.Validation("field %q must be a string", name)
			}
			if f.MaxLen > 0 && len([]rune(v.Str)) > f.MaxLen {
				return types.Validation("field %q exceeds max length %d", name, f.MaxLen)
			}
		case pdfform.FieldTypeCheckbox:
			// Checked state travels as the export value, unchecked as "".
			if v.Kind == KindBool {
				continue
			}
			if v.Kind != KindString {
				return types.Validation("field %q must be a string or boolean", name)
			}
			if v.Str != "" && f.ExportValue != "" && v.Str != f.ExportValue {
				return types.Validation("field %q accepts only its export value %q", name, f.ExportValue)
			}
		case pdfform.FieldTypeChoice:
			switch v.Kind {
			case KindString:
				if v.Str != "" && !containsOption(f.Options, v.Str) {
					return types.Validation("field %q has no option %q", name, v.Str)
				}
			case KindStringList:
				for _, item := range v.List {
					if !containsOption(f.Options, item) {
						return types.Validation("field %q has no option %q", name, item)
					}
				}
			default:
				return types.Validation("field %q must be a string or string array", name)
			}
		default:
			return types.Validation("field %q has unsupported type %q and cannot be written", name, f.Type)
		}
	}
	return nil
}

// ResetForReplication clears the per-cycle state when a terminal report is
// replicated into a fresh draft: the date restarts at today and the
// receiver's emotional-state entry is dropped. All other content carries
// over untouched.
func (m Map) ResetForReplication(now time.Time) Map {
	out := m.Clone()
	delete(out, KeyEmotionalState)
	out[KeyDate] = String(now.Format("2006-01-02"))
	return out
}

func containsOption(options []string, s string) bool {
	for _, o := range options {
		if o == s {
			return true
		}
	}
	return false
}
