package utils

import "strings"

func GetString(m map[string]any, key string, defaultValue string) string {
	if m == nil {
		return defaultValue
	}
	v, ok := m[key]
	if !ok {
		return defaultValue
	}
	s, ok := v.(string)
	if !ok {
		return defaultValue
	}
	return s
}

// GetStringList reads a list value and joins it with ", ". A plain string
// value is returned as-is; anything else yields the default.
func GetStringList(m map[string]any, key string, defaultValue string) string {
	if m == nil {
		return defaultValue
	}
	v, ok := m[key]
	if !ok {
		return defaultValue
	}
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return defaultValue
	}
}

// MergeInto copies every entry of src into dst, overwriting existing keys.
func MergeInto(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}
