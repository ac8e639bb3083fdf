package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Document is a decoded JSON object whose fields are read through optional
// accessors. Missing keys, nulls and type mismatches all read as absent.
type Document map[string]any

// Decode parses body as a JSON object, keeping numbers as json.Number so that
// identifiers and epoch milliseconds survive without float rounding.
func Decode(body []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode webhook body: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("webhook body must be a JSON object, got %T", v)
	}
	return Document(obj), nil
}

// Object returns the nested object at key, or an empty document.
func (d Document) Object(key string) Document {
	if d == nil {
		return Document{}
	}
	if obj, ok := d[key].(map[string]any); ok {
		return Document(obj)
	}
	return Document{}
}

// Value returns the raw value at key when it is present, non-null and not an
// empty string.
func (d Document) Value(key string) (any, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d[key]
	if !ok || v == nil {
		return nil, false
	}
	if s, isString := v.(string); isString && s == "" {
		return nil, false
	}
	return v, true
}

// Text returns the string form of a scalar field, or "" when the field is
// absent or not a scalar.
func (d Document) Text(key string) string {
	v, ok := d.Value(key)
	if !ok {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}
