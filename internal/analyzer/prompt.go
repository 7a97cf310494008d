package analyzer

import (
	"unicode/utf8"

	"github.com/kalambet/jobpilot/internal/engine"
)

const systemPrompt = `You are a career analyst. Read the resume supplied by the user and produce a structured assessment. Your output must be ONLY a single valid JSON object that conforms to the provided schema. Do not include any other text, prose, or markdown.

Sections:
- "career_recommendations": up to five roles the candidate is suited for, best first. "match_score" is 0-100. "required_skills" lists the skills each role demands.
- "current_profile": the candidate's key skills, a two or three sentence experience summary, highest education level (for example "High School", "Bachelor's", "Master's", "PhD") and organizations they worked for or studied at.
- "development_areas": skills or experience gaps holding the candidate back, and concrete action items to close them.
- "career_context": the objectives the resume states or implies, and the industries the candidate has worked in.

Rules:
- Use only facts present in the resume; leave a list empty rather than inventing entries.
- Keep skill names short (for example "Python", "Kubernetes", "Stakeholder management").`

// maxResumeChars bounds the resume text sent to the model.
const maxResumeChars = 12000

// BuildPrompt constructs the chat messages for resume analysis.
func BuildPrompt(rawText string) []engine.Message {
	if utf8.RuneCountInString(rawText) > maxResumeChars {
		rawText = string([]rune(rawText)[:maxResumeChars])
	}
	return []engine.Message{
		engine.System(systemPrompt),
		engine.User("Resume:\n\n" + rawText),
	}
}

func stringList(desc string) engine.Schema {
	return engine.Schema{Type: "array", Description: desc, Items: &engine.Schema{Type: "string"}}
}

// insightsSchema describes every section of resume.Insights except the
// metadata, which is derived locally.
func insightsSchema() *engine.Schema {
	lo, hi := 0.0, 100.0
	return &engine.Schema{
		Type: "object",
		Properties: map[string]engine.Schema{
			"career_recommendations": {
				Type: "array",
				Items: &engine.Schema{
					Type: "object",
					Properties: map[string]engine.Schema{
						"job_title":       {Type: "string"},
						"match_score":     {Type: "number", Minimum: &lo, Maximum: &hi},
						"required_skills": stringList("Skills the role requires"),
					},
					Required: []string{"job_title", "match_score", "required_skills"},
				},
			},
			"current_profile": {
				Type: "object",
				Properties: map[string]engine.Schema{
					"key_skills":         stringList("Candidate's strongest skills"),
					"experience_summary": {Type: "string"},
					"education_level":    {Type: "string"},
					"organizations":      stringList("Employers and schools"),
				},
				Required: []string{"key_skills", "experience_summary", "education_level", "organizations"},
			},
			"development_areas": {
				Type: "object",
				Properties: map[string]engine.Schema{
					"improvement_areas": stringList("Gaps to address"),
					"action_items":      stringList("Concrete next steps"),
				},
				Required: []string{"improvement_areas", "action_items"},
			},
			"career_context": {
				Type: "object",
				Properties: map[string]engine.Schema{
					"objectives": {Type: "string"},
					"industries": stringList("Industries worked in"),
				},
				Required: []string{"objectives", "industries"},
			},
		},
		Required: []string{"career_recommendations", "current_profile", "development_areas", "career_context"},
	}
}
