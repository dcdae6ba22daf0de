package template

import (
	"strings"
)

// attribute is one attribute of an opening tag as it was written.
type attribute struct {
	lead     string // whitespace preceding the attribute
	name     string
	raw      string // everything after the name: '=', quotes and value
	value    string // unquoted value
	quote    byte   // '"', '\'' or 0 for unquoted or valueless
	hasValue bool
}

// tag is a parsed opening tag. Rendering it with no rule applying yields the
// original text.
type tag struct {
	name        string
	attrs       []attribute
	tail        string // whitespace before the closing '>' or '/>'
	selfClosing bool
	closed      bool // the tag ends with '>'
}

func (t *tag) custom() bool {
	return strings.Contains(t.name, "-")
}

func (t *tag) hasAttribute(name string) bool {
	for _, a := range t.attrs {
		if strings.EqualFold(a.name, name) {
			return true
		}
	}
	return false
}

// parseTag splits a raw opening tag such as `<div class="x" hidden>` into
// its name, attributes and tail.
func parseTag(raw string) *tag {
	t := &tag{}
	i := 1
	start := i
	for i < len(raw) && !isSpace(raw[i]) && raw[i] != '>' && raw[i] != '/' {
		i++
	}
	t.name = raw[start:i]

	for i < len(raw) {
		lead := i
		for i < len(raw) && isSpace(raw[i]) {
			i++
		}
		if i >= len(raw) {
			t.tail = raw[lead:]
			return t
		}
		switch {
		case raw[i] == '>':
			t.tail = raw[lead:i]
			t.closed = true
			return t
		case raw[i] == '/' && i+1 < len(raw) && raw[i+1] == '>':
			t.tail = raw[lead:i]
			t.selfClosing = true
			t.closed = true
			return t
		}

		a := attribute{lead: raw[lead:i]}
		nameStart := i
		for i < len(raw) && !isSpace(raw[i]) && raw[i] != '=' && raw[i] != '>' &&
			!(raw[i] == '/' && i+1 < len(raw) && raw[i+1] == '>') {
			i++
		}
		if i == nameStart {
			// a stray '/' not followed by '>'
			i++
		}
		a.name = raw[nameStart:i]

		valueStart := i
		j := i
		for j < len(raw) && isSpace(raw[j]) {
			j++
		}
		if j < len(raw) && raw[j] == '=' {
			j++
			for j < len(raw) && isSpace(raw[j]) {
				j++
			}
			a.hasValue = true
			if j < len(raw) && (raw[j] == '"' || raw[j] == '\'') {
				a.quote = raw[j]
				end := strings.IndexByte(raw[j+1:], a.quote)
				if end < 0 {
					a.value = raw[j+1:]
					j = len(raw)
				} else {
					a.value = raw[j+1 : j+1+end]
					j = j + 1 + end + 1
				}
			} else {
				vs := j
				for j < len(raw) && !isSpace(raw[j]) && raw[j] != '>' {
					j++
				}
				a.value = raw[vs:j]
			}
			i = j
		}
		a.raw = raw[valueStart:i]
		t.attrs = append(t.attrs, a)
	}
	return t
}

// render writes the tag back, applying the attribute rules and, for the root
// tag, inserting RootMarker.
func (t *tag) render(root bool) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(t.name)

	expand := t.selfClosing && t.custom()
	if root {
		b.WriteString(" ")
		b.WriteString(RootMarker)
	}

	custom := t.custom()
	for idx, a := range t.attrs {
		lead := a.lead
		if idx == 0 && expand && !root {
			lead = normalizeFirstSpace(lead)
		}
		b.WriteString(lead)
		b.WriteString(rewriteAttribute(a, custom))
	}

	tail := t.tail
	if len(t.attrs) == 0 && expand && !root {
		tail = normalizeFirstSpace(tail)
	}
	b.WriteString(tail)

	switch {
	case expand:
		b.WriteString("></")
		b.WriteString(t.name)
		b.WriteByte('>')
	case t.selfClosing:
		b.WriteString("/>")
	case t.closed:
		b.WriteByte('>')
	}
	return b.String()
}

// normalizeFirstSpace turns the whitespace character separating a
// self-closing tag name from its content into a single space.
func normalizeFirstSpace(s string) string {
	if s == "" || !isSpace(s[0]) {
		return s
	}
	return " " + s[1:]
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}
