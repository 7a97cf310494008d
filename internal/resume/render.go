package resume

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Section names accepted by Render as a focus.
const (
	SectionRecommendations = "recommendations"
	SectionProfile         = "profile"
	SectionDevelopment     = "development"
	SectionContext         = "context"
)

// Render formats the insights as plain text for a chat reply. A non-empty
// focus limits the output to one section; unknown focus values render all.
func Render(in *Insights, focus string) string {
	if in == nil {
		return "No resume analysis available."
	}

	var b strings.Builder
	sections := []struct {
		name  string
		write func(*strings.Builder, *Insights)
	}{
		{SectionRecommendations, writeRecommendations},
		{SectionProfile, writeProfile},
		{SectionDevelopment, writeDevelopment},
		{SectionContext, writeContext},
	}

	known := false
	for _, s := range sections {
		if s.name == focus {
			known = true
		}
	}

	for _, s := range sections {
		if known && s.name != focus {
			continue
		}
		s.write(&b, in)
	}
	if !known {
		fmt.Fprintf(&b, "Analysis quality: %s\n", in.Metadata.AnalysisQuality)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeRecommendations(b *strings.Builder, in *Insights) {
	if len(in.CareerRecommendations) == 0 {
		return
	}
	b.WriteString("Career recommendations:\n")
	for _, r := range in.CareerRecommendations {
		fmt.Fprintf(b, "- %s (%.0f%% match)", r.JobTitle, r.MatchScore)
		if len(r.RequiredSkills) > 0 {
			fmt.Fprintf(b, ", needs %s", strings.Join(r.RequiredSkills, ", "))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func writeProfile(b *strings.Builder, in *Insights) {
	p := in.CurrentProfile
	b.WriteString("Current profile:\n")
	if len(p.KeySkills) > 0 {
		fmt.Fprintf(b, "- Key skills: %s\n", strings.Join(p.KeySkills, ", "))
	}
	if p.ExperienceSummary != "" {
		fmt.Fprintf(b, "- Experience: %s\n", p.ExperienceSummary)
	}
	if p.EducationLevel != "" {
		fmt.Fprintf(b, "- Education: %s\n", p.EducationLevel)
	}
	if len(p.Organizations) > 0 {
		fmt.Fprintf(b, "- Organizations: %s\n", strings.Join(p.Organizations, ", "))
	}
	b.WriteString("\n")
}

func writeDevelopment(b *strings.Builder, in *Insights) {
	d := in.DevelopmentAreas
	if len(d.ImprovementAreas) == 0 && len(d.ActionItems) == 0 {
		return
	}
	b.WriteString("Development areas:\n")
	for _, a := range d.ImprovementAreas {
		fmt.Fprintf(b, "- %s\n", a)
	}
	if len(d.ActionItems) > 0 {
		b.WriteString("Action items:\n")
		for i, a := range d.ActionItems {
			fmt.Fprintf(b, "%d. %s\n", i+1, a)
		}
	}
	b.WriteString("\n")
}

func writeContext(b *strings.Builder, in *Insights) {
	c := in.CareerContext
	if c.Objectives == "" && len(c.Industries) == 0 {
		return
	}
	b.WriteString("Career context:\n")
	if c.Objectives != "" {
		fmt.Fprintf(b, "- Objectives: %s\n", c.Objectives)
	}
	if len(c.Industries) > 0 {
		fmt.Fprintf(b, "- Industries: %s\n", strings.Join(c.Industries, ", "))
	}
	b.WriteString("\n")
}

// maxSummaryChars keeps the prompt summary under roughly 500 tokens.
const maxSummaryChars = 2000

// Summary returns a compact single-paragraph description of the candidate
// for injection into an LLM prompt.
func Summary(in *Insights) string {
	if in == nil {
		return "No resume on file."
	}
	var parts []string
	p := in.CurrentProfile
	if p.ExperienceSummary != "" {
		parts = append(parts, p.ExperienceSummary)
	}
	if len(p.KeySkills) > 0 {
		parts = append(parts, fmt.Sprintf("Skills: %s.", strings.Join(p.KeySkills, ", ")))
	}
	if p.EducationLevel != "" {
		parts = append(parts, fmt.Sprintf("Education: %s.", p.EducationLevel))
	}
	if len(p.Organizations) > 0 {
		parts = append(parts, fmt.Sprintf("Worked with: %s.", strings.Join(p.Organizations, ", ")))
	}
	if in.CareerContext.Objectives != "" {
		parts = append(parts, fmt.Sprintf("Goals: %s.", in.CareerContext.Objectives))
	}

	summary := strings.Join(parts, " ")
	if len(summary) > maxSummaryChars {
		end := maxSummaryChars
		for end > 0 && !utf8.RuneStart(summary[end]) {
			end--
		}
		if idx := strings.LastIndex(summary[:end], " "); idx > 0 {
			summary = summary[:idx]
		} else {
			summary = summary[:end]
		}
	}
	return summary
}
