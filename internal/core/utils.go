package core

import (
	"regexp"
	"strings"
)

var (
	nonSlugChars = regexp.MustCompile("[^a-z0-9-]+")
	multiDash    = regexp.MustCompile("-+")
)

// Slugify converts a string to a URL-safe slug
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "-")
	s = nonSlugChars.ReplaceAllString(s, "")
	s = multiDash.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
