package model

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeadingInt(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"abc", 0},
		{"120", 120},
		{" 45s", 45},
		{"-7", -7},
		{"+12kb", 12},
		{"9223372036854775807", math.MaxInt64},
		{"9223372036854775808", math.MaxInt64},
		{strings.Repeat("9", 40), math.MaxInt64},
		{"-" + strings.Repeat("9", 40), -math.MaxInt64},
	} {
		assert.Equal(t, tc.want, LeadingInt(tc.in), "input %q", tc.in)
	}
}

func TestAddSaturating(t *testing.T) {
	assert.Equal(t, int64(5), AddSaturating(2, 3))
	assert.Equal(t, int64(math.MaxInt64), AddSaturating(math.MaxInt64, 1))
	assert.Equal(t, int64(math.MaxInt64), AddSaturating(math.MaxInt64-1, math.MaxInt64))
	assert.Equal(t, int64(1), AddSaturating(3, -2))
}

func TestBytesValueHugeInput(t *testing.T) {
	e := LogEntry{KnownFields: KnownFields{Bytes: strings.Repeat("1", 30)}}
	assert.Equal(t, int64(math.MaxInt64), e.BytesValue())
}
