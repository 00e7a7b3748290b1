package utils

import (
	"regexp"
	"strings"
)

var whitespaceRegexp = regexp.MustCompile(`\s+`)

// Slugify lowercases s and turns every whitespace run into a single hyphen.
func Slugify(s string) string {
	return whitespaceRegexp.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
}
