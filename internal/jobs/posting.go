// Package jobs holds job postings, their providers and resume-based ranking.
package jobs

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// previewLen caps description_preview, in runes.
const previewLen = 200

// Posting is one job listing as returned by a provider.
type Posting struct {
	Title              string    `json:"title" mapstructure:"title"`
	Company            string    `json:"company" mapstructure:"company"`
	Location           string    `json:"location" mapstructure:"location"`
	DescriptionPreview string    `json:"description_preview" mapstructure:"description_preview"`
	RequiredSkills     []string  `json:"required_skills" mapstructure:"required_skills"`
	URL                string    `json:"url" mapstructure:"url"`
	PostedDate         time.Time `json:"posted_date" mapstructure:"posted_date"`
}

// Provider searches an external job source. An empty result is not an error.
type Provider interface {
	Search(ctx context.Context, query string, skills []string) ([]Posting, error)
}

// key identifies a posting for de-duplication across providers.
func (p Posting) key() string {
	if p.URL != "" {
		return strings.ToLower(p.URL)
	}
	return strings.ToLower(p.Title + "|" + p.Company + "|" + p.Location)
}

// Preview shortens a description to previewLen runes on a word boundary.
func Preview(desc string) string {
	desc = strings.Join(strings.Fields(desc), " ")
	if utf8.RuneCountInString(desc) <= previewLen {
		return desc
	}
	runes := []rune(desc)
	cut := string(runes[:previewLen])
	if idx := strings.LastIndex(cut, " "); idx > previewLen/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}
