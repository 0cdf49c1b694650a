package scraper

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Coerce flattens the shapes CTF APIs use for label-like fields into a plain
// string: a string, a number, a bool, or an object carrying one of name,
// value, title or slug. Anything else is "".
func Coerce(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return strings.TrimSpace(s)
		}
	case '{':
		var obj map[string]json.RawMessage
		if json.Unmarshal(raw, &obj) != nil {
			return ""
		}
		for _, key := range []string{"name", "value", "title", "slug"} {
			if v, ok := obj[key]; ok {
				if s := Coerce(v); s != "" {
					return s
				}
			}
		}
	case 't', 'f':
		return string(raw)
	case 'n', '[':
		return ""
	default:
		var n json.Number
		if json.Unmarshal(raw, &n) == nil {
			return n.String()
		}
	}
	return ""
}

// Text is a string field that tolerates any of the shapes Coerce accepts.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	*t = Text(Coerce(b))
	return nil
}

// TextList is a list of label-like values; a single value is accepted as a
// one element list and empty entries are dropped.
type TextList []string

func (l *TextList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '[' {
		if s := Coerce(b); s != "" {
			*l = TextList{s}
		} else {
			*l = nil
		}
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	out := make(TextList, 0, len(items))
	for _, item := range items {
		if s := Coerce(item); s != "" {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

// Score is a point or solve count. Platforms that hide it give Missing.
type Score struct {
	Value int
	Known bool
}

var Missing = Score{}

func Known(n int) Score { return Score{Value: n, Known: true} }

func (s Score) String() string {
	if !s.Known {
		return "N/A"
	}
	return strconv.Itoa(s.Value)
}

func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Known {
		return []byte(`"N/A"`), nil
	}
	return []byte(strconv.Itoa(s.Value)), nil
}

func (s *Score) UnmarshalJSON(b []byte) error {
	text := Coerce(b)
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		*s = Missing
		return nil
	}
	*s = Known(int(n))
	return nil
}

// Or returns s when known and fallback otherwise.
func (s Score) Or(fallback Score) Score {
	if s.Known {
		return s
	}
	return fallback
}
