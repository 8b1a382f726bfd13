package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// parseJSON decodes data keeping object key order. Objects become
// *Collection, arrays []any. Integers become int64, floats float64, and
// integers that do not fit in int64 stay as their decimal text.
func parseJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := parseValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("json: trailing data after top-level value")
	}
	return v, nil
}

func parseValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			c := NewCollection()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("json: object key is %T", keyTok)
				}
				v, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				c.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return c, nil
		case '[':
			items := []any{}
			for dec.More() {
				v, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				items = append(items, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return items, nil
		}
		return nil, fmt.Errorf("json: unexpected delimiter %q", t)
	case json.Number:
		return convertNumber(t), nil
	default:
		// string, bool, nil
		return t, nil
	}
}

func convertNumber(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		return s
	}
	f, err := n.Float64()
	if err != nil {
		return s
	}
	return f
}
