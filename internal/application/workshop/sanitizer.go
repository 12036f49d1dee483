package workshop

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

// TextSanitizer cleans free text typed by operators before it is stored
type TextSanitizer interface {
	Sanitize(s string) string
}

type strictSanitizer struct {
	policy *bluemonday.Policy
}

// NewStrictSanitizer strips every HTML element and normalizes to NFC.
// Entities are unescaped again since the result is stored as plain text.
func NewStrictSanitizer() TextSanitizer {
	return &strictSanitizer{policy: bluemonday.StrictPolicy()}
}

func (s *strictSanitizer) Sanitize(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(norm.NFC.String(text))))
}
