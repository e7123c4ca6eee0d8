package cascade

import (
	"maps"
	"regexp"
	"slices"
)

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}

func getOrDefault(s string, def string) string {
	if s == "" {
		return def
	}

	return s
}

var httpURLPattern = regexp.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`)

// IsHTTPURL reports whether s looks like an absolute http(s) URL.
func IsHTTPURL(s string) bool {
	return httpURLPattern.MatchString(s)
}
