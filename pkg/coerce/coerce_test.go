package coerce

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/unobtrusive/pkg/reactive"
)

func TestValue(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name     string
		input    any
		expected any
	}{
		{"true literal", "true", true},
		{"upper-case false", "FALSE", false},
		{"mixed-case true", "TrUe", true},
		{"decimal", "3.5", 3.5},
		{"negative integer", "-2", -2.0},
		{"leading dot", ".5", 0.5},
		{"trailing dot", "5.", 5.0},
		{"plain text", "abc", "abc"},
		{"nil", nil, nil},
		{"empty string", "", ""},
		{"lone minus", "-", "-"},
		{"lone dot", ".", "."},
		{"padded number", " 3", " 3"},
		{"exponent", "1e3", "1e3"},
		{"truthy word", "yes", "yes"},
		{"int passes through", 7, 7},
		{"bool passes through", false, false},
		{"time passes through", now, now},
		{"huge number", "9" + strings.Repeat("9", 400), "9" + strings.Repeat("9", 400)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Value(tt.input))
		})
	}
}

func TestValue_PromotesCollections(t *testing.T) {
	counter := reactive.NewCounter()
	data := map[string]any{"count": 1}

	out := Value(data, WithCounter(counter))
	o, ok := out.(*reactive.Observable)
	require.True(t, ok)

	require.NoError(t, o.Set("count", 2))
	assert.Equal(t, 2, data["count"])
	assert.Equal(t, uint64(1), counter.Peek())

	list, ok := Value([]int{1, 2}).(*reactive.Observable)
	require.True(t, ok)
	assert.Equal(t, 2, list.Len())

	// already observable values are kept
	assert.Same(t, o, Value(o))
}

func TestBoolAndNumber(t *testing.T) {
	b, ok := Bool("False")
	assert.True(t, ok)
	assert.False(t, b)

	_, ok = Bool("truthy")
	assert.False(t, ok)

	n, ok := Number("-0.25")
	assert.True(t, ok)
	assert.Equal(t, -0.25, n)

	_, ok = Number("")
	assert.False(t, ok)
}
