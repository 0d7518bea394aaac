package xray

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatValue(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
	}{
		{"123456", 123456},
		{"  123456\n", 123456},
		{"value: 789", 789},
		{"value:789", 789},
		{"value: 0", 0},
		{"", 0},
		{"   \n", 0},
	}
	for _, c := range cases {
		got, err := parseStatValue(c.in)
		require.NoError(t, err, "input %q", c.in)
		assert.Equal(t, c.want, got, "input %q", c.in)
	}
}

func TestParseStatValue_Garbage(t *testing.T) {
	for _, in := range []string{"abc", "value: xyz", "-5", "12.5"} {
		_, err := parseStatValue(in)
		assert.Error(t, err, "input %q", in)
	}
}
