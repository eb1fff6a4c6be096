// Package slug derives URL-safe slugs from display names.
package slug

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	disallowed = regexp.MustCompile(`[^a-z0-9-]`)
)

// Derive trims and lower-cases name, replaces each whitespace run with a
// single hyphen and strips every character outside [a-z0-9-]. The result may
// be empty.
func Derive(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = whitespace.ReplaceAllString(s, "-")
	return disallowed.ReplaceAllString(s, "")
}

// For trims name and derives its slug. It returns types.ErrInvalidName for a
// blank name and types.ErrInvalidSlug when nothing survives derivation.
func For(name string) (trimmed, slug string, err error) {
	trimmed = strings.TrimSpace(name)
	if trimmed == "" {
		return "", "", types.ErrInvalidName
	}
	slug = Derive(trimmed)
	if slug == "" {
		return trimmed, "", fmt.Errorf("%w: %q has no slug characters", types.ErrInvalidSlug, trimmed)
	}
	return trimmed, slug, nil
}
