// Package template compiles the unobtrusive markup dialect into the directive
// syntax understood by the host rendering engine.
//
// The dialect lets component authors write plain attributes with moustache
// expressions (title="{{ heading }}", onclick="{{ save() }}",
// render-if="{{ visible }}") and the compiler rewrites them into host
// directives (v-bind:title, @click, v-if, ...). Custom elements, recognised by
// a hyphen in their tag name, receive their attributes as props carrying the
// reserved PropPrefix so they never collide with names the host reserves.
//
// Compilation is a pure text transformation. It never fails: markup the
// scanner does not understand is copied through unchanged. A compiled
// template carries RootMarker on its root tag and compiling it again returns
// the input as is.
package template

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

const (
	// RootMarker is the attribute placed on the root tag of a compiled template.
	RootMarker = "data-component-root"

	// PropPrefix is prepended to every prop bound on a custom element.
	PropPrefix = "vue"

	// Version identifies the output of this compiler. It changes whenever a
	// rule changes what Compile produces for the same input.
	Version = "1"
)

// Option configures a compilation.
type Option func(*options)

type options struct {
	collapseWhitespace bool
}

// WithCollapseWhitespace removes whitespace following a tag end and preceding
// a tag start.
func WithCollapseWhitespace() Option {
	return func(o *options) {
		o.collapseWhitespace = true
	}
}

// token is one lexical unit of the template. Only opening tags are rewritten,
// everything else is kept byte for byte.
type token struct {
	raw  string
	kind html.TokenType
}

// Compile rewrites a dialect template into host directive syntax.
func Compile(src string, opts ...Option) string {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	tokens := tokenize(src)
	rootIdx := -1
	for i, tok := range tokens {
		if isOpeningTag(tok.kind) {
			rootIdx = i
			break
		}
	}
	if rootIdx < 0 {
		return src
	}

	root := parseTag(tokens[rootIdx].raw)
	if root.hasAttribute(RootMarker) {
		return src
	}

	for i := range tokens {
		if !isOpeningTag(tokens[i].kind) {
			continue
		}
		tag := root
		if i != rootIdx {
			tag = parseTag(tokens[i].raw)
		}
		tokens[i].raw = tag.render(i == rootIdx)
	}

	if o.collapseWhitespace {
		collapseWhitespace(tokens)
	}

	var b strings.Builder
	b.Grow(len(src) + len(src)/4)
	for _, tok := range tokens {
		b.WriteString(tok.raw)
	}
	return b.String()
}

// IsCompiled reports whether src already carries RootMarker on its root tag.
func IsCompiled(src string) bool {
	for _, tok := range tokenize(src) {
		if isOpeningTag(tok.kind) {
			return parseTag(tok.raw).hasAttribute(RootMarker)
		}
	}
	return false
}

// OriginalPropertyName strips PropPrefix from a bound prop name. Names no
// longer than the prefix yield "".
func OriginalPropertyName(prop string) string {
	if len(prop) <= len(PropPrefix) {
		return ""
	}
	return prop[len(PropPrefix):]
}

// PrefixedPropertyName returns the prop name a custom element binds for a
// component property.
func PrefixedPropertyName(name string) string {
	return PropPrefix + name
}

func isOpeningTag(tt html.TokenType) bool {
	return tt == html.StartTagToken || tt == html.SelfClosingTagToken
}

// tokenize splits src into tokens whose raw text concatenates back to src.
func tokenize(src string) []token {
	z := html.NewTokenizer(strings.NewReader(src))
	tokens := make([]token, 0, 32)
	consumed := 0
	for {
		tt := z.Next()
		raw := string(z.Raw())
		if tt == html.ErrorToken {
			// an unterminated tag at io.EOF is still buffered in raw
			if raw != "" && z.Err() == io.EOF {
				tokens = append(tokens, token{raw: raw, kind: html.TextToken})
				consumed += len(raw)
			}
			break
		}
		tokens = append(tokens, token{raw: raw, kind: tt})
		consumed += len(raw)
	}
	if consumed < len(src) {
		tokens = append(tokens, token{raw: src[consumed:], kind: html.TextToken})
	}
	return tokens
}

// collapseWhitespace trims text tokens next to tags.
func collapseWhitespace(tokens []token) {
	for i := range tokens {
		if tokens[i].kind != html.TextToken {
			continue
		}
		text := tokens[i].raw
		if i > 0 && tokens[i-1].kind != html.TextToken {
			text = strings.TrimLeft(text, asciiSpace)
		}
		if i+1 < len(tokens) && tokens[i+1].kind != html.TextToken {
			text = strings.TrimRight(text, asciiSpace)
		}
		tokens[i].raw = text
	}
}

const asciiSpace = " \t\n\r\f\v"
