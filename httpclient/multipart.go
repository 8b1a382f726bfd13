package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"reflect"
	"sort"
)

// Part is one field of a multipart/form-data body. A part with a Filename
// is sent as a file.
type Part struct {
	Name        string
	Filename    string
	ContentType string
	// Content is the part body. Used when Reader is nil.
	Content []byte
	// Reader streams the part body.
	Reader io.Reader
}

// encodeMultipart builds the body and returns it with its Content-Type.
func encodeMultipart(parts []Part) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range parts {
		header := make(textproto.MIMEHeader)
		disposition := `form-data; name="` + escapeQuotes(p.Name) + `"`
		if p.Filename != "" {
			disposition += `; filename="` + escapeQuotes(p.Filename) + `"`
		}
		header.Set("Content-Disposition", disposition)
		switch {
		case p.ContentType != "":
			header.Set("Content-Type", p.ContentType)
		case p.Filename != "":
			header.Set("Content-Type", "application/octet-stream")
		}

		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if p.Reader != nil {
			if _, err := io.Copy(part, p.Reader); err != nil {
				return nil, "", fmt.Errorf("multipart %s: %w", p.Name, err)
			}
		} else if _, err := part.Write(p.Content); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// escapeQuotes replaces special characters in header values.
func escapeQuotes(s string) string {
	var buf bytes.Buffer
	for _, b := range []byte(s) {
		if b == '"' || b == '\\' {
			buf.WriteByte('\\')
		}
		buf.WriteByte(b)
	}
	return buf.String()
}

type field struct {
	name  string
	value string
}

// flattenFields turns nested maps and lists into bracketed field names,
// a[b] for map keys and a[0] for list indexes. Keys are sorted; nil values
// are skipped.
func flattenFields(values map[string]any) []field {
	var out []field
	for _, k := range sortedKeys(values) {
		out = flattenValue(k, values[k], out)
	}
	return out
}

func flattenValue(name string, v any, out []field) []field {
	switch t := v.(type) {
	case nil:
		return out
	case string:
		return append(out, field{name, t})
	case []byte:
		return append(out, field{name, string(t)})
	case bool:
		if t {
			return append(out, field{name, "1"})
		}
		return append(out, field{name, "0"})
	case map[string]any:
		for _, k := range sortedKeys(t) {
			out = flattenValue(name+"["+k+"]", t[k], out)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			out = flattenValue(fmt.Sprintf("%s[%d]", name, i), rv.Index(i).Interface(), out)
		}
		return out
	case reflect.Map:
		keys := make([]string, 0, rv.Len())
		byKey := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := fmt.Sprint(iter.Key().Interface())
			keys = append(keys, k)
			byKey[k] = iter.Value().Interface()
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = flattenValue(name+"["+k+"]", byKey[k], out)
		}
		return out
	}
	return append(out, field{name, fmt.Sprint(v)})
}

// encodeForm url-encodes fields keeping their order.
func encodeForm(fields []field) string {
	var buf bytes.Buffer
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte('&')
		}
		buf.WriteString(url.QueryEscape(f.name))
		buf.WriteByte('=')
		buf.WriteString(url.QueryEscape(f.value))
	}
	return buf.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
