package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Collection is an ordered, key-preserving map. Keys keep the order they
// were first set in, which for decoded payloads is document order.
type Collection struct {
	keys   []string
	values map[string]any
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{values: make(map[string]any)}
}

// CollectionFrom builds a collection from m with keys in sorted order.
// Nested maps and slices are converted recursively.
func CollectionFrom(m map[string]any) *Collection {
	c := NewCollection()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c.Set(k, fromPlain(m[k]))
	}
	return c
}

// ListCollection wraps a list as a collection keyed "0", "1", ...
func ListCollection(items []any) *Collection {
	c := NewCollection()
	for i, v := range items {
		c.Set(strconv.Itoa(i), v)
	}
	return c
}

func fromPlain(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CollectionFrom(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = fromPlain(item)
		}
		return out
	default:
		return v
	}
}

// Set stores v under key, keeping the key's original position if it exists.
func (c *Collection) Set(key string, v any) {
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.values[key] = v
}

// Get returns the value at key.
func (c *Collection) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Value returns the value at key, or def.
func (c *Collection) Value(key string, def any) any {
	if v, ok := c.values[key]; ok {
		return v
	}
	return def
}

// Dig follows a dotted path through nested collections and lists.
//
//	c.Dig("data.items.0.id")
func (c *Collection) Dig(path string) (any, bool) {
	var cur any = c
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case *Collection:
			v, ok := node.Get(part)
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Has reports whether key is present.
func (c *Collection) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Delete removes key.
func (c *Collection) Delete(key string) {
	if _, ok := c.values[key]; !ok {
		return
	}
	delete(c.values, key)
	for i, k := range c.keys {
		if k == key {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in order.
func (c *Collection) Keys() []string {
	return append([]string(nil), c.keys...)
}

// Len returns the number of entries.
func (c *Collection) Len() int { return len(c.keys) }

// IsEmpty reports whether the collection has no entries.
func (c *Collection) IsEmpty() bool { return len(c.keys) == 0 }

// Each calls fn for every entry in order until fn returns false.
func (c *Collection) Each(fn func(key string, v any) bool) {
	for _, k := range c.keys {
		if !fn(k, c.values[k]) {
			return
		}
	}
}

// ToMap converts the collection, and every nested collection, to plain
// maps.
func (c *Collection) ToMap() map[string]any {
	m := make(map[string]any, len(c.keys))
	for _, k := range c.keys {
		m[k] = toPlain(c.values[k])
	}
	return m
}

func toPlain(v any) any {
	switch t := v.(type) {
	case *Collection:
		return t.ToMap()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = toPlain(item)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON encodes the collection as a JSON object in key order.
func (c *Collection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := EncodeJSON(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := EncodeJSON(c.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping document order.
func (c *Collection) UnmarshalJSON(data []byte) error {
	v, err := parseJSON(data)
	if err != nil {
		return err
	}
	parsed, ok := v.(*Collection)
	if !ok {
		return fmt.Errorf("collection: expected a JSON object, got %T", v)
	}
	*c = *parsed
	return nil
}

// EncodeJSON marshals v without HTML escaping and without a trailing
// newline, so non-ASCII text and <, >, & reach the wire unchanged.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(keepFloats(v)); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// keepFloats rewrites whole float64 values as "N.0" so they are not read
// back as integers.
func keepFloats(v any) any {
	switch t := v.(type) {
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e21 {
			return json.Number(strconv.FormatFloat(t, 'f', 1, 64))
		}
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = keepFloats(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = keepFloats(item)
		}
		return out
	}
	return v
}
