// Package coverletter drafts four-paragraph cover letters from resume
// insights with an LLM.
package coverletter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/jobpilot/internal/engine"
	"github.com/kalambet/jobpilot/internal/resume"
)

const writeTimeout = 90 * time.Second

const systemPrompt = `You write concise, specific cover letters. You receive the candidate's resume analysis as JSON and a job description. Your output must be ONLY a single valid JSON object with exactly these string fields:

- "opening": introduce the candidate and name the role (and company when given).
- "skills": connect the candidate's strongest skills and experience to the role's needs.
- "motivation": explain why the candidate wants this role, grounded in their stated objectives.
- "closing": thank the reader and invite a conversation.

Each field is one paragraph of plain text, two to four sentences. Never invent employers, degrees or achievements that are not in the analysis. Do not add greetings or signatures.`

// draft mirrors the schema requested from the engine.
type draft struct {
	Opening    string `json:"opening"`
	Skills     string `json:"skills"`
	Motivation string `json:"motivation"`
	Closing    string `json:"closing"`
}

func (d draft) paragraphs() []string {
	var out []string
	for _, p := range []string{d.Opening, d.Skills, d.Motivation, d.Closing} {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var draftSchema = &engine.Schema{
	Type: "object",
	Properties: map[string]engine.Schema{
		"opening":    {Type: "string", Description: "Introduction naming the role"},
		"skills":     {Type: "string", Description: "Relevant skills and experience"},
		"motivation": {Type: "string", Description: "Why this role"},
		"closing":    {Type: "string", Description: "Thanks and call to action"},
	},
	Required: []string{"opening", "skills", "motivation", "closing"},
}

// Writer implements agent.LetterWriter.
type Writer struct {
	engine engine.Engine
}

func New(e engine.Engine) *Writer {
	return &Writer{engine: e}
}

// Write returns the letter with paragraphs separated by blank lines.
func (w *Writer) Write(ctx context.Context, insights *resume.Insights, jobDescription string) (string, error) {
	if insights == nil {
		return "", fmt.Errorf("no resume insights")
	}
	analysis, err := json.Marshal(promptView(insights))
	if err != nil {
		return "", fmt.Errorf("encoding insights: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	msgs := []engine.Message{
		engine.System(systemPrompt),
		engine.User(fmt.Sprintf("Resume analysis:\n%s\n\nJob description:\n%s", analysis, strings.TrimSpace(jobDescription))),
	}

	var d draft
	if err := engine.ChatJSON(ctx, w.engine, msgs, draftSchema, &d); err != nil {
		return "", fmt.Errorf("drafting cover letter: %w", err)
	}
	paras := d.paragraphs()
	if len(paras) == 0 {
		return "", fmt.Errorf("%w: empty letter", engine.ErrInvalidOutput)
	}
	slog.Debug("cover letter drafted", "engine", w.engine.Name(), "paragraphs", len(paras))
	return strings.Join(paras, "\n\n"), nil
}

// promptView keeps the parts of the analysis that matter for a letter.
func promptView(in *resume.Insights) any {
	titles := make([]string, 0, len(in.CareerRecommendations))
	for _, r := range in.CareerRecommendations {
		titles = append(titles, r.JobTitle)
	}
	return struct {
		KeySkills         []string `json:"key_skills"`
		ExperienceSummary string   `json:"experience_summary,omitempty"`
		EducationLevel    string   `json:"education_level,omitempty"`
		Organizations     []string `json:"organizations,omitempty"`
		Objectives        string   `json:"objectives,omitempty"`
		Industries        []string `json:"industries,omitempty"`
		SuitedRoles       []string `json:"suited_roles,omitempty"`
	}{
		KeySkills:         in.CurrentProfile.KeySkills,
		ExperienceSummary: in.CurrentProfile.ExperienceSummary,
		EducationLevel:    in.CurrentProfile.EducationLevel,
		Organizations:     in.CurrentProfile.Organizations,
		Objectives:        in.CareerContext.Objectives,
		Industries:        in.CareerContext.Industries,
		SuitedRoles:       titles,
	}
}
