package criteria

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/big"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	// KindRaw holds any JSON value that is not one of the typed variants,
	// such as null or an object. It only ever compares by exact encoding.
	KindRaw Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	default:
		return "raw"
	}
}

var errEmptyValue = errors.New("criteria: empty value")

// Value is an extra-attribute value: a string, a number, a bool, or a list
// of such values. The compact JSON encoding is kept for every variant.
type Value struct {
	kind Kind
	str  string
	num  string
	b    bool
	list []Value
	raw  []byte
}

func String(s string) Value {
	raw, _ := json.Marshal(s)
	return Value{kind: KindString, str: s, raw: raw}
}

func Number(f float64) Value {
	lit := strconv.FormatFloat(f, 'f', -1, 64)
	return Value{kind: KindNumber, num: lit, raw: []byte(lit)}
}

func Bool(b bool) Value {
	return Value{kind: KindBool, b: b, raw: []byte(strconv.FormatBool(b))}
}

func List(items ...Value) Value {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, it := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(it.encoded())
	}
	buf.WriteByte(']')
	return Value{kind: KindList, list: items, raw: buf.Bytes()}
}

func (v Value) Kind() Kind { return v.kind }

// Str returns the string payload; ok is false for other kinds.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Float returns the numeric payload; ok is false for other kinds.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.num, 64)
	return f, err == nil
}

func (v Value) BoolValue() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) Items() []Value { return v.list }

func (v Value) encoded() []byte {
	if len(v.raw) == 0 {
		return []byte("null")
	}
	return v.raw
}

func (v Value) MarshalJSON() ([]byte, error) {
	return v.encoded(), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := parseValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func parseValue(data []byte) (Value, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return Value{}, err
	}
	raw := compact.Bytes()
	if len(raw) == 0 {
		return Value{}, errEmptyValue
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, err
		}
		return Value{kind: KindString, str: s, raw: raw}, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return Value{}, err
		}
		return Value{kind: KindBool, b: b, raw: raw}, nil
	case '[':
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil {
			return Value{}, err
		}
		items := make([]Value, 0, len(parts))
		for _, p := range parts {
			item, err := parseValue(p)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Value{kind: KindList, list: items, raw: raw}, nil
	case 'n', '{':
		return Value{kind: KindRaw, raw: raw}, nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return Value{}, err
		}
		return Value{kind: KindNumber, num: n.String(), raw: raw}, nil
	}
}

// Matches reports whether actual satisfies v as an expected value. A list
// expectation is satisfied by any of its entries. Strings compare without
// regard to case, numbers by exact decimal value, bools by equality; any
// other pairing compares the compact JSON encodings.
func (v Value) Matches(actual Value) bool {
	if v.kind == KindList {
		for _, allowed := range v.list {
			if allowed.Matches(actual) {
				return true
			}
		}
		return false
	}

	switch {
	case v.kind == KindString && actual.kind == KindString:
		return equalFold(v.str, actual.str)
	case v.kind == KindNumber && actual.kind == KindNumber:
		a, okA := new(big.Rat).SetString(actual.num)
		e, okE := new(big.Rat).SetString(v.num)
		if okA && okE {
			return a.Cmp(e) == 0
		}
	case v.kind == KindBool && actual.kind == KindBool:
		return v.b == actual.b
	}
	return bytes.Equal(actual.encoded(), v.encoded())
}
