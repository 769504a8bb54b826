// Package rowvalue implements the closed tagged-variant boundary type
// between an LLM-extracted raw row and the canonical schema. Past the
// normalizer, no code should see a RowValue — the canonical row is a
// plain struct with typed fields.
package rowvalue

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind tags which alternative a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindNumber
)

// Value is a closed sum type: exactly one of Text | Number | Null, mirroring
// the dual-field-accessor style this codebase uses at its external
// boundaries (primary field, fallback field, never both unset silently).
type Value struct {
	kind Kind
	text string
	num  float64
}

// Null is the zero RowValue.
func Null() Value { return Value{kind: KindNull} }

// Text builds a text RowValue.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Number builds a numeric RowValue.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsNull() bool  { return v.kind == KindNull }
func (v Value) IsText() bool  { return v.kind == KindText }
func (v Value) IsNumber() bool { return v.kind == KindNumber }

// AsString returns the value's textual form regardless of kind: numbers are
// formatted without a trailing ".0" when integral, null is the empty string.
func (v Value) AsString() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		return ""
	}
}

// AsNumber attempts to coerce the value to a float64, parsing text that
// looks numeric (after stripping thousands separators). ok is false for
// null values or unparseable text.
func (v Value) AsNumber() (n float64, ok bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindText:
		cleaned := strings.TrimSpace(v.text)
		upper := strings.ToUpper(cleaned)
		if strings.HasSuffix(upper, "CR") || strings.HasSuffix(upper, "DR") {
			cleaned = strings.TrimSpace(cleaned[:len(cleaned)-2])
		}
		cleaned = strings.TrimPrefix(cleaned, "$")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		cleaned = strings.TrimSpace(cleaned)
		if cleaned == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// UnmarshalJSON accepts a JSON string, number, or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Null()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Text(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = Number(n)
		return nil
	}
	return fmt.Errorf("rowvalue: unsupported JSON token %s", string(data))
}

// MarshalJSON renders the value back to its natural JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindNumber:
		return json.Marshal(v.num)
	default:
		return []byte("null"), nil
	}
}

// Row is an opaque mapping from key to RowValue, exactly as produced by the
// LLM for one transaction line, ahead of key normalization. Keys are
// whitespace-cleaned only once normalize.CleanKeys has run.
type Row map[string]Value
