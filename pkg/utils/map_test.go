package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetString(t *testing.T) {
	m := map[string]any{
		"a": "123",
	}
	assert.Equal(t, "123", GetString(m, "a", ""))
	// missing key -> default
	assert.Equal(t, "d", GetString(m, "missing", "d"))
	// wrong type -> default
	assert.Equal(t, "d", GetString(map[string]any{"x": 1}, "x", "d"))
	// nil map -> default
	assert.Equal(t, "d", GetString(nil, "x", "d"))
}

func TestGetStringList(t *testing.T) {
	assert.Equal(t, "a, b", GetStringList(map[string]any{"k": []any{"a", "b"}}, "k", ""))
	assert.Equal(t, "a, b", GetStringList(map[string]any{"k": []string{"a", "b"}}, "k", ""))
	assert.Equal(t, "solo", GetStringList(map[string]any{"k": "solo"}, "k", ""))
	// non-string entries are skipped
	assert.Equal(t, "a", GetStringList(map[string]any{"k": []any{"a", 1}}, "k", ""))
	assert.Equal(t, "d", GetStringList(map[string]any{"k": 42}, "k", "d"))
	assert.Equal(t, "d", GetStringList(nil, "k", "d"))
}

func TestMergeInto(t *testing.T) {
	dst := map[string]any{"a": 1, "b": 2}
	MergeInto(dst, map[string]any{"b": 3, "c": 4})
	assert.Equal(t, map[string]any{"a": 1, "b": 3, "c": 4}, dst)
}
