package resume

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Quality reports whether every section of an analysis was populated.
type Quality string

const (
	QualityComplete Quality = "complete"
	QualityPartial  Quality = "partial"
)

// Insights is the structured record derived from one uploaded resume.
// A new upload replaces it wholesale; it is never patched in place.
type Insights struct {
	CareerRecommendations []Recommendation `json:"career_recommendations" validate:"dive"`
	CurrentProfile        CurrentProfile   `json:"current_profile"`
	DevelopmentAreas      DevelopmentAreas `json:"development_areas"`
	CareerContext         CareerContext    `json:"career_context"`
	Metadata              Metadata         `json:"metadata"`
}

// Recommendation is one suggested role with its fit score.
type Recommendation struct {
	JobTitle       string   `json:"job_title" validate:"required"`
	MatchScore     float64  `json:"match_score" validate:"gte=0,lte=100"`
	RequiredSkills []string `json:"required_skills"`
}

type CurrentProfile struct {
	KeySkills         []string `json:"key_skills"`
	ExperienceSummary string   `json:"experience_summary"`
	EducationLevel    string   `json:"education_level"`
	Organizations     []string `json:"organizations"`
}

type DevelopmentAreas struct {
	ImprovementAreas []string `json:"improvement_areas"`
	ActionItems      []string `json:"action_items"`
}

type CareerContext struct {
	Objectives string   `json:"objectives"`
	Industries []string `json:"industries"`
}

type Metadata struct {
	AnalysisQuality Quality   `json:"analysis_quality" validate:"oneof=complete partial"`
	LastUpdated     time.Time `json:"last_updated" validate:"required"`
}

// ErrInvalid is returned when insights break a structural invariant.
var ErrInvalid = errors.New("invalid resume insights")

var validate = validator.New()

// Finalize normalizes set-valued fields, derives analysis_quality from the
// populated sections, stamps last_updated when unset and validates the result.
// It must be called before insights are handed to the session store.
func (in *Insights) Finalize(now time.Time) error {
	in.CurrentProfile.KeySkills = dedupe(in.CurrentProfile.KeySkills)
	in.CurrentProfile.Organizations = dedupe(in.CurrentProfile.Organizations)
	in.CareerContext.Industries = dedupe(in.CareerContext.Industries)
	for i := range in.CareerRecommendations {
		in.CareerRecommendations[i].RequiredSkills = dedupe(in.CareerRecommendations[i].RequiredSkills)
	}

	in.Metadata.AnalysisQuality = QualityPartial
	if in.complete() {
		in.Metadata.AnalysisQuality = QualityComplete
	}
	if in.Metadata.LastUpdated.IsZero() {
		in.Metadata.LastUpdated = now.UTC()
	}
	return in.Validate()
}

// Validate checks the invariants without modifying the receiver.
func (in *Insights) Validate() error {
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed %q", ErrInvalid, verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if in.Metadata.AnalysisQuality == QualityComplete && !in.complete() {
		return fmt.Errorf("%w: analysis_quality is complete but sections are missing", ErrInvalid)
	}
	return nil
}

func (in *Insights) complete() bool {
	return len(in.CareerRecommendations) > 0 &&
		(len(in.CurrentProfile.KeySkills) > 0 || in.CurrentProfile.ExperienceSummary != "") &&
		(len(in.DevelopmentAreas.ImprovementAreas) > 0 || len(in.DevelopmentAreas.ActionItems) > 0) &&
		(in.CareerContext.Objectives != "" || len(in.CareerContext.Industries) > 0)
}

// Skills returns the resume's key skills. Nil-safe.
func (in *Insights) Skills() []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in.CurrentProfile.KeySkills...)
}

// Clone returns a deep copy. Nil in, nil out.
func (in *Insights) Clone() *Insights {
	if in == nil {
		return nil
	}
	cp := *in
	cp.CurrentProfile.KeySkills = cloneStrings(in.CurrentProfile.KeySkills)
	cp.CurrentProfile.Organizations = cloneStrings(in.CurrentProfile.Organizations)
	cp.DevelopmentAreas.ImprovementAreas = cloneStrings(in.DevelopmentAreas.ImprovementAreas)
	cp.DevelopmentAreas.ActionItems = cloneStrings(in.DevelopmentAreas.ActionItems)
	cp.CareerContext.Industries = cloneStrings(in.CareerContext.Industries)
	if in.CareerRecommendations != nil {
		cp.CareerRecommendations = make([]Recommendation, len(in.CareerRecommendations))
		for i, r := range in.CareerRecommendations {
			r.RequiredSkills = cloneStrings(r.RequiredSkills)
			cp.CareerRecommendations[i] = r
		}
	}
	return &cp
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// dedupe trims entries and drops case-insensitive duplicates, keeping the
// first spelling seen.
func dedupe(in []string) []string {
	if in == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		k := strings.ToLower(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}
