package response

import (
	"fmt"
	"mime"
	"reflect"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/kbukum/foundation/errors"
)

// Decode converts env into format:
//
//   - raw: env itself
//   - string: the cleaned body text
//   - array: map[string]any ([]any for a top-level list); empty map when the
//     body cannot be parsed
//   - collection: *Collection; empty when the body cannot be parsed
//   - object: map[string]any, []any or a scalar; a decoding error when the
//     body cannot be parsed
//   - json: the parsed body re-encoded as a JSON string; a decoding error
//     when the body cannot be parsed
//
// Bodies are XML when the Content-Type mentions xml or the text starts with
// an XML marker, JSON otherwise. Before parsing, bodies in a declared
// non-UTF-8 charset are transcoded and control characters are removed.
func Decode(env *Envelope, format Format) (any, error) {
	switch format {
	case FormatRaw:
		return env.Rewind(), nil
	case FormatString:
		return Text(env), nil
	case FormatArray:
		v, err := parse(env)
		if err != nil {
			return map[string]any{}, nil
		}
		return asArray(v), nil
	case FormatCollection:
		v, err := parse(env)
		if err != nil {
			return NewCollection(), nil
		}
		return asCollection(v), nil
	case FormatObject:
		v, err := parse(env)
		if err != nil {
			return nil, errors.DecodeFailed(string(format), err)
		}
		return toPlain(v), nil
	case FormatJSON:
		v, err := parse(env)
		if err != nil {
			return nil, errors.DecodeFailed(string(format), err)
		}
		out, err := EncodeJSON(v)
		if err != nil {
			return nil, errors.DecodeFailed(string(format), err)
		}
		return string(out), nil
	}
	return nil, errors.UnsupportedFormat(string(format))
}

// DecodeAs parses the format name and decodes env with it.
func DecodeAs(env *Envelope, name string) (any, error) {
	format, err := ParseFormat(name)
	if err != nil {
		return nil, err
	}
	return Decode(env, format)
}

// Convert decodes values that did not come from the wire. Envelopes are
// decoded directly; strings and byte slices become a 200 text body; maps,
// slices, structs and collections are JSON encoded into a 200 JSON body.
func Convert(v any, format Format) (any, error) {
	switch t := v.(type) {
	case *Envelope:
		return Decode(t, format)
	case string:
		return Decode(New(200, nil, []byte(t)), format)
	case []byte:
		return Decode(New(200, nil, t), format)
	case nil:
		return nil, errors.InvalidInput("response", "cannot convert nil")
	}

	rv := reflect.Indirect(reflect.ValueOf(v))
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		data, err := EncodeJSON(v)
		if err != nil {
			return nil, errors.InvalidInput("response", err.Error())
		}
		env := New(200, nil, data)
		env.Header.Set("Content-Type", "application/json")
		return Decode(env, format)
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return Decode(New(200, nil, []byte(fmt.Sprint(rv.Interface()))), format)
	}
	return nil, errors.InvalidInput("response", fmt.Sprintf("unsupported response type %T", v))
}

// Text returns the body transcoded to UTF-8 with control characters
// removed.
func Text(env *Envelope) string {
	return stripControl(string(transcode(env.Bytes(), env.ContentType())))
}

// IsXML reports whether the body would be parsed as XML.
func IsXML(env *Envelope) bool {
	return isXML(env.ContentType(), Text(env))
}

func parse(env *Envelope) (any, error) {
	text := Text(env)
	if isXML(env.ContentType(), text) {
		return parseXML(text)
	}
	return parseJSON([]byte(text))
}

func isXML(contentType, text string) bool {
	if strings.Contains(strings.ToLower(contentType), "xml") {
		return true
	}
	head := strings.ToLower(strings.TrimLeft(text, " "))
	return strings.HasPrefix(head, "<xml") || strings.HasPrefix(head, "<?xml")
}

func asArray(v any) any {
	switch t := v.(type) {
	case *Collection:
		return t.ToMap()
	case []any:
		return toPlain(t)
	case nil:
		return map[string]any{}
	default:
		return []any{t}
	}
}

func asCollection(v any) *Collection {
	switch t := v.(type) {
	case *Collection:
		return t
	case []any:
		return ListCollection(t)
	case nil:
		return NewCollection()
	default:
		return ListCollection([]any{t})
	}
}

// transcode converts data to UTF-8 when the content type declares another
// charset the decoder knows. Unknown charsets are left alone.
func transcode(data []byte, contentType string) []byte {
	if contentType == "" {
		return data
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return data
	}
	charset := strings.ToLower(strings.TrimSpace(params["charset"]))
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return data
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return data
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return data
	}
	return out
}

// stripControl removes C0 (U+0000 to U+001F) and C1 (U+0080 to U+009F)
// control characters. Bytes that are not valid UTF-8 are kept as they are.
func stripControl(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			b.WriteByte(s[i])
			i++
			continue
		}
		if r > 0x1F && (r < 0x80 || r > 0x9F) {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}
