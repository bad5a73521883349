package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips markup from provider-supplied text fields before they are
// persisted. Post text and profile fields come from an external API and are
// rendered by downstream clients, so anything tag-shaped is removed outright.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer creates a sanitizer with a strip-everything policy.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean removes all markup from the given text and trims whitespace.
func (s *Sanitizer) Clean(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(text))
}
