package services

import (
	"os"
	"regexp"
	"strings"
)

var placeholderRegex = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// RenderTemplate substitutes every {placeholder} in content with its value
// from data. Placeholders with no value render as empty string; a template
// referencing an unknown placeholder must never fail a broadcast.
// Substitution is a single literal pass, no nesting or conditionals.
func RenderTemplate(content string, data map[string]string) string {
	return placeholderRegex.ReplaceAllStringFunc(content, func(match string) string {
		key := match[1 : len(match)-1]
		return data[key]
	})
}

// PublicOffersLink builds the {enlace_web} value pointing at the public
// offers listing. Empty when PUBLIC_BASE_URL is not configured.
func PublicOffersLink() string {
	base := os.Getenv("PUBLIC_BASE_URL")
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/public/offers"
}
