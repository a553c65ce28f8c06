package parser

import (
	"encoding/xml"
	"strings"
)

// element is a generic XML element tree. XCSP3 mixes fixed structure
// (<variables>, <constraints>) with free-form constraint bodies, so the
// whole document is decoded into this shape and walked by tag name.
type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Chardata string     `xml:",chardata"`
	Children []element  `xml:",any"`
}

// name returns the local element name.
func (e *element) name() string {
	return e.XMLName.Local
}

// text returns the element's character data with surrounding whitespace
// trimmed.
func (e *element) text() string {
	return strings.TrimSpace(e.Chardata)
}

// attr returns the named attribute value, or "" when absent.
func (e *element) attr(name string) string {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// child returns the first child with the given name, or nil.
func (e *element) child(name string) *element {
	for i := range e.Children {
		if e.Children[i].XMLName.Local == name {
			return &e.Children[i]
		}
	}
	return nil
}

// children returns all children with the given name, in document order.
func (e *element) children(name string) []*element {
	var out []*element
	for i := range e.Children {
		if e.Children[i].XMLName.Local == name {
			out = append(out, &e.Children[i])
		}
	}
	return out
}

// childText returns the text of the first child with the given name, or
// "" when the child is absent.
func (e *element) childText(name string) string {
	if c := e.child(name); c != nil {
		return c.text()
	}
	return ""
}
