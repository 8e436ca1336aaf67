package criteria

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// wireCriteria accepts "text" as an alias for the free-text field.
type wireCriteria struct {
	FilterCriteria
	TextAlias *string `json:"text,omitempty"`
}

// Decode parses a serialized criteria object. Keys are matched without
// regard to case and unknown keys are ignored. ok is false for blank input,
// anything that is not a JSON object, or a known key holding the wrong type.
func Decode(raw []byte) (FilterCriteria, bool) {
	trimmedRaw := bytes.TrimSpace(raw)
	if len(trimmedRaw) == 0 {
		return FilterCriteria{}, false
	}
	if trimmedRaw[0] != '{' && !bytes.Equal(trimmedRaw, []byte("null")) {
		return FilterCriteria{}, false
	}

	var w wireCriteria
	if err := json.Unmarshal(trimmedRaw, &w); err != nil {
		return FilterCriteria{}, false
	}
	c := w.FilterCriteria
	if c.Text == nil && w.TextAlias != nil {
		c.Text = w.TextAlias
	}
	return c, true
}

// DecodeString is Decode for string payloads.
func DecodeString(raw string) (FilterCriteria, bool) {
	return Decode([]byte(raw))
}

// Encode renders c in canonical form: fields in declaration order, absent
// fields omitted and extra keys sorted.
func Encode(c FilterCriteria) []byte {
	out, err := json.Marshal(c)
	if err != nil {
		// Only reachable through a Value built outside this package with an invalid encoding.
		return []byte("{}")
	}
	return out
}

// EncodeString is Encode returning a string.
func EncodeString(c FilterCriteria) string {
	return string(Encode(c))
}

// Normalize decodes raw and re-encodes it canonically.
func Normalize(raw []byte) ([]byte, bool) {
	c, ok := Decode(raw)
	if !ok {
		return nil, false
	}
	return Encode(c), true
}

// NormalizeString is Normalize for string payloads.
func NormalizeString(raw string) (string, bool) {
	out, ok := Normalize([]byte(raw))
	if !ok {
		return "", false
	}
	return string(out), true
}

// ExtraKeys returns the keys of c.Extra in sorted order.
func (c FilterCriteria) ExtraKeys() []string {
	keys := make([]string, 0, len(c.Extra))
	for k := range c.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
