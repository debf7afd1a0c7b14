package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_UnknownKey_TopLevel(t *testing.T) {
	path := writeTestConfig(t, `
unknown_section = "value"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
}

func TestLoad_UnknownKey_InSection(t *testing.T) {
	path := writeTestConfig(t, "[copy]\npoll_atempts = 4\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown config key "poll_atempts" in [copy]`)
	assert.Contains(t, err.Error(), `did you mean "poll_attempts"?`)
}

func TestLoad_UnknownKey_MisspelledSection(t *testing.T) {
	path := writeTestConfig(t, "[netwrk]\nmax_retries = 2\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did you mean [network]?")
}

func TestLoad_UnknownKey_NoSuggestion(t *testing.T) {
	path := writeTestConfig(t, `
[proxy]
completely_unrelated_key = true
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestLoad_UnknownKey_AllReported(t *testing.T) {
	path := writeTestConfig(t, "[server]\nlisten_addr = \":1\"\n[auth]\nclient = \"x\"\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen_addr")
	assert.Contains(t, err.Error(), `"client"`)
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"buffer_siz", "buffer_size", 1},
		{"poll_atempts", "poll_attempts", 1},
		{"max_retires", "max_retries", 2},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, editDistance(tt.a, tt.b), "editDistance(%q, %q)", tt.a, tt.b)
	}
}

func TestSuggest(t *testing.T) {
	s, ok := suggest("lisen", knownKeys["server"])
	assert.True(t, ok)
	assert.Equal(t, "listen", s)

	s, ok = suggest("shutdown_timout", knownKeys["server"])
	assert.True(t, ok)
	assert.Equal(t, "shutdown_timeout", s)

	_, ok = suggest("completely_unrelated", knownKeys["proxy"])
	assert.False(t, ok)
}
