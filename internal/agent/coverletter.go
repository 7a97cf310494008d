package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/kalambet/jobpilot/internal/intent"
	"github.com/kalambet/jobpilot/internal/resume"
)

// LetterWriter generates a cover letter from resume insights and a job
// description.
type LetterWriter interface {
	Write(ctx context.Context, insights *resume.Insights, jobDescription string) (string, error)
}

// Letter is the cover letter payload.
type Letter struct {
	Role       string   `json:"role,omitempty"`
	Company    string   `json:"company,omitempty"`
	Paragraphs []string `json:"paragraphs"`
	Text       string   `json:"text"`
}

// CoverLetter drafts a letter for the role described in the message.
type CoverLetter struct {
	writer LetterWriter
}

func NewCoverLetter(writer LetterWriter) *CoverLetter {
	return &CoverLetter{writer: writer}
}

func (h *CoverLetter) Name() string { return NameCoverLetter }

func (h *CoverLetter) Handle(ctx context.Context, req Request) (any, error) {
	if req.Resume == nil {
		return nil, fmt.Errorf("%w: a cover letter needs an analysed resume", ErrInvalidParameters)
	}
	role := req.Params[intent.ParamRole]
	company := req.Params[intent.ParamCompany]

	text, err := h.writer.Write(ctx, req.Resume.Clone(), jobDescription(req.Query, role, company))
	if err != nil {
		return nil, providerError("cover letter provider", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &UpstreamError{Provider: "cover letter provider", Err: fmt.Errorf("empty letter")}
	}
	return &Letter{Role: role, Company: company, Paragraphs: paragraphs(text), Text: text}, nil
}

func jobDescription(query, role, company string) string {
	var b strings.Builder
	if role != "" {
		fmt.Fprintf(&b, "Role: %s\n", role)
	}
	if company != "" {
		fmt.Fprintf(&b, "Company: %s\n", company)
	}
	b.WriteString(strings.TrimSpace(query))
	return b.String()
}

func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
