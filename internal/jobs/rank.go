package jobs

import (
	"math"
	"sort"
	"strings"
)

// Match is a posting scored against a resume.
type Match struct {
	Posting
	MatchScore     float64  `json:"match_score"`
	MatchingSkills []string `json:"matching_skills"`
	MissingSkills  []string `json:"missing_skills"`
}

// Score returns the share of required skills present in skills, scaled to
// 0-100 and rounded to one decimal. Comparison ignores case and surrounding
// space. A posting without required skills scores 0.
func Score(skills, required []string) (score float64, matching, missing []string) {
	have := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		have[normalizeSkill(s)] = struct{}{}
	}

	seen := make(map[string]struct{}, len(required))
	for _, r := range required {
		n := normalizeSkill(r)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		if _, ok := have[n]; ok {
			matching = append(matching, strings.TrimSpace(r))
		} else {
			missing = append(missing, strings.TrimSpace(r))
		}
	}
	if len(seen) == 0 {
		return 0, nil, nil
	}
	score = float64(len(matching)) / float64(len(seen)) * 100
	return math.Round(score*10) / 10, matching, missing
}

// Rank scores every posting and orders them by score descending, breaking
// ties by posted date with the most recent first. Equal keys keep the
// provider's order.
func Rank(postings []Posting, skills []string) []Match {
	matches := make([]Match, len(postings))
	for i, p := range postings {
		score, matching, missing := Score(skills, p.RequiredSkills)
		matches[i] = Match{Posting: p, MatchScore: score, MatchingSkills: matching, MissingSkills: missing}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].MatchScore != matches[j].MatchScore {
			return matches[i].MatchScore > matches[j].MatchScore
		}
		return matches[i].PostedDate.After(matches[j].PostedDate)
	})
	return matches
}

func normalizeSkill(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
