// Package coerce turns values the host engine hands to components, usually
// attribute strings, into typed Go values.
package coerce

import (
	"math"
	"regexp"
	"strconv"

	"golang.org/x/text/cases"

	"github.com/conneroisu/unobtrusive/pkg/reactive"
)

// numericPattern matches signed decimals such as "3", "-2", "3.5" and ".5".
var numericPattern = regexp.MustCompile(`^-?\d*\.?\d*$`)

// Option configures coercion.
type Option func(*options)

type options struct {
	counter *reactive.Counter
}

// WithCounter makes promoted maps, slices and structs tick c on writes.
func WithCounter(c *reactive.Counter) Option {
	return func(o *options) {
		o.counter = c
	}
}

// Value coerces v:
//
//   - nil and "" are returned unchanged
//   - maps, slices, structs and reactive.Mirrorable values are promoted to a
//     *reactive.Observable
//   - "true" and "false" in any letter case become booleans
//   - signed decimal strings become float64
//
// Anything else is returned unchanged. Value never panics.
func Value(v any, opts ...Option) any {
	if v == nil {
		return nil
	}

	s, isString := v.(string)
	if !isString {
		if !reactive.Promotable(v) {
			return v
		}
		o := options{}
		for _, opt := range opts {
			opt(&o)
		}
		return reactive.Promote(v, o.counter)
	}

	if s == "" {
		return s
	}
	if b, ok := Bool(s); ok {
		return b
	}
	if f, ok := Number(s); ok {
		return f
	}
	return s
}

// Bool parses the literals "true" and "false" regardless of case.
func Bool(s string) (bool, bool) {
	if len(s) != 4 && len(s) != 5 {
		return false, false
	}
	switch cases.Fold().String(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// Number parses a signed decimal string into a finite float64.
func Number(s string) (float64, bool) {
	if s == "" || !numericPattern.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
