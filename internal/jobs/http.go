package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

const defaultHTTPTimeout = 15 * time.Second

// HTTPProvider queries a JSON job-search endpoint:
//
//	GET <base>?q=<query>&skills=<a,b>&limit=<n>
//
// The response is either a JSON array of postings or an object holding the
// array under "items", "results" or "jobs".
type HTTPProvider struct {
	name       string
	baseURL    string
	limit      int
	httpClient *http.Client
}

// NewHTTPProvider creates a provider for baseURL requesting at most limit
// postings per search.
func NewHTTPProvider(name, baseURL string, limit int) *HTTPProvider {
	return &HTTPProvider{
		name:       name,
		baseURL:    baseURL,
		limit:      limit,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

func (p *HTTPProvider) Name() string { return p.name }

func (p *HTTPProvider) Search(ctx context.Context, query string, skills []string) ([]Posting, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing provider url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	if len(skills) > 0 {
		q.Set("skills", strings.Join(skills, ","))
	}
	if p.limit > 0 {
		q.Set("limit", strconv.Itoa(p.limit))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("searching %s: unexpected status %d", p.name, resp.StatusCode)
	}

	var body any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", p.name, err)
	}
	return decodePostings(body)
}

// rawPosting accepts a full description in place of a preview.
type rawPosting struct {
	Posting     `mapstructure:",squash"`
	Description string `mapstructure:"description"`
}

func decodePostings(body any) ([]Posting, error) {
	items := body
	if m, ok := body.(map[string]any); ok {
		items = nil
		for _, key := range []string{"items", "results", "jobs"} {
			if v, ok := m[key]; ok {
				items = v
				break
			}
		}
	}
	if items == nil {
		return nil, nil
	}

	var raw []rawPosting
	cfg := &mapstructure.DecoderConfig{
		Result:           &raw,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			postedDateHook,
			mapstructure.StringToSliceHookFunc(","),
		),
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating decoder: %w", err)
	}
	if err := decoder.Decode(items); err != nil {
		return nil, fmt.Errorf("decoding postings: %w", err)
	}

	out := make([]Posting, 0, len(raw))
	for _, r := range raw {
		p := r.Posting
		if p.Title == "" {
			continue
		}
		if p.DescriptionPreview == "" {
			p.DescriptionPreview = r.Description
		}
		p.DescriptionPreview = Preview(p.DescriptionPreview)
		for i := range p.RequiredSkills {
			p.RequiredSkills[i] = strings.TrimSpace(p.RequiredSkills[i])
		}
		out = append(out, p)
	}
	return out, nil
}

var timeType = reflect.TypeOf(time.Time{})

// postedDateHook parses RFC 3339 or plain dates. Unparseable dates decode to
// the zero time so they sort last.
func postedDateHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != timeType {
		return data, nil
	}
	s := strings.TrimSpace(data.(string))
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, nil
}
