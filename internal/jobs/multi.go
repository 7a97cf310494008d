package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// NamedProvider is a Provider that can identify itself in logs.
type NamedProvider interface {
	Provider
	Name() string
}

// PartialError is returned together with the merged postings when some, but
// not all, providers failed.
type PartialError struct {
	Failed []string
	Err    error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%d job provider(s) failed: %v", len(e.Failed), e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// MultiProvider fans a search out to several providers concurrently and
// merges their postings, dropping duplicates by URL. When only some
// providers fail it returns the merged postings with a *PartialError.
type MultiProvider struct {
	providers []NamedProvider
}

// NewMultiProvider combines providers. The merge keeps the order of the
// providers slice.
func NewMultiProvider(providers ...NamedProvider) *MultiProvider {
	return &MultiProvider{providers: providers}
}

func (m *MultiProvider) Search(ctx context.Context, query string, skills []string) ([]Posting, error) {
	if len(m.providers) == 0 {
		return nil, errors.New("no job providers configured")
	}

	results := make([][]Posting, len(m.providers))
	errs := make([]error, len(m.providers))

	var g errgroup.Group
	g.SetLimit(4)
	for i, p := range m.providers {
		g.Go(func() error {
			postings, err := p.Search(ctx, query, skills)
			if err != nil {
				slog.Warn("job provider failed", "provider", p.Name(), "error", err)
				errs[i] = fmt.Errorf("%s: %w", p.Name(), err)
				return nil
			}
			results[i] = postings
			return nil
		})
	}
	g.Wait()

	var failed []string
	for i, err := range errs {
		if err != nil {
			failed = append(failed, m.providers[i].Name())
		}
	}
	if len(failed) == len(m.providers) {
		return nil, errors.Join(errs...)
	}

	seen := make(map[string]struct{})
	var merged []Posting
	for _, postings := range results {
		for _, p := range postings {
			k := p.key()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			merged = append(merged, p)
		}
	}
	if len(failed) > 0 {
		return merged, &PartialError{Failed: failed, Err: errors.Join(errs...)}
	}
	return merged, nil
}
