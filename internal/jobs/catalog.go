package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// CatalogProvider searches a fixed set of postings, typically loaded from a
// JSON file for offline use. A posting matches when any query word appears
// in its title, company, location, preview or skills.
type CatalogProvider struct {
	postings []Posting
}

// NewCatalogProvider serves the given postings.
func NewCatalogProvider(postings []Posting) *CatalogProvider {
	return &CatalogProvider{postings: postings}
}

// LoadCatalog reads postings from a JSON file in the same shapes accepted by
// HTTPProvider.
func LoadCatalog(path string) (*CatalogProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading job catalog: %w", err)
	}
	var body any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("parsing job catalog: %w", err)
	}
	postings, err := decodePostings(body)
	if err != nil {
		return nil, err
	}
	return NewCatalogProvider(postings), nil
}

func (c *CatalogProvider) Name() string { return "catalog" }

func (c *CatalogProvider) Search(_ context.Context, query string, _ []string) ([]Posting, error) {
	terms := strings.Fields(strings.ToLower(query))
	var out []Posting
	for _, p := range c.postings {
		if len(terms) == 0 || matchesAny(p, terms) {
			out = append(out, p)
		}
	}
	return out, nil
}

func matchesAny(p Posting, terms []string) bool {
	hay := strings.ToLower(strings.Join([]string{
		p.Title, p.Company, p.Location, p.DescriptionPreview, strings.Join(p.RequiredSkills, " "),
	}, " "))
	for _, t := range terms {
		if len(t) > 2 && strings.Contains(hay, t) {
			return true
		}
	}
	return false
}
