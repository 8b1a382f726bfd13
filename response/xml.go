package response

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Attributes of an element are collected under this key.
const xmlAttributesKey = "@attributes"

// Text of an element that also has attributes is stored under this key.
const xmlTextKey = "@text"

type xmlNode struct {
	name     string
	attrs    []xml.Attr
	children []*xmlNode
	text     strings.Builder
}

// parseXML decodes an XML document into a *Collection rooted at the
// document element's contents. Leaf elements become strings, repeated
// sibling elements become lists and attributes are grouped under
// "@attributes".
func parseXML(data string) (any, error) {
	dec := xml.NewDecoder(strings.NewReader(data))
	dec.Strict = false
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		// The body is already UTF-8 by the time it is parsed.
		return input, nil
	}

	var stack []*xmlNode
	var root *xmlNode
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &xmlNode{name: t.Name.Local, attrs: t.Attr}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("xml: unexpected end element %s", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("xml: no root element")
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("xml: unclosed element %s", stack[len(stack)-1].name)
	}
	v := root.value()
	if text, ok := v.(string); ok && text == "" {
		return NewCollection(), nil
	}
	return v, nil
}

func (n *xmlNode) value() any {
	text := strings.TrimSpace(n.text.String())
	if len(n.children) == 0 && len(n.attrs) == 0 {
		return text
	}

	c := NewCollection()
	if len(n.attrs) > 0 {
		attrs := NewCollection()
		for _, a := range n.attrs {
			attrs.Set(a.Name.Local, a.Value)
		}
		c.Set(xmlAttributesKey, attrs)
	}
	for _, child := range n.children {
		v := child.value()
		existing, ok := c.Get(child.name)
		if !ok {
			c.Set(child.name, v)
			continue
		}
		// A child's own value is never a list, so a list here was built
		// from earlier siblings.
		if list, isList := existing.([]any); isList {
			c.Set(child.name, append(list, v))
		} else {
			c.Set(child.name, []any{existing, v})
		}
	}
	if text != "" && len(n.children) == 0 {
		c.Set(xmlTextKey, text)
	}
	return c
}
