package supervisor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kalambet/jobpilot/internal/agent"
	"github.com/kalambet/jobpilot/internal/resume"
)

// format renders a handler payload as chat text.
func format(payload any, hasResume bool) string {
	switch p := payload.(type) {
	case *agent.JobMatches:
		return formatJobs(p, hasResume)
	case *agent.ResumeView:
		return resume.Render(p.Insights, p.Focus)
	case *agent.Letter:
		return formatLetter(p)
	case *agent.Research:
		return fmt.Sprintf("%s\n\n%s", p.Topic, p.Summary)
	case string:
		return p
	default:
		b, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return fmt.Sprint(p)
		}
		return string(b)
	}
}

func formatJobs(m *agent.JobMatches, hasResume bool) string {
	var b strings.Builder

	noun := "jobs"
	if m.Total == 1 {
		noun = "job"
	}
	fmt.Fprintf(&b, "Found %d %s for %q", m.Total, noun, m.Query)
	if len(m.Matches) < m.Total {
		fmt.Fprintf(&b, ". Top %d matches:\n", len(m.Matches))
	} else {
		b.WriteString(":\n")
	}

	for i, j := range m.Matches {
		fmt.Fprintf(&b, "\n%d. %s", i+1, j.Title)
		if j.Company != "" {
			fmt.Fprintf(&b, " at %s", j.Company)
		}
		if j.Location != "" {
			fmt.Fprintf(&b, " (%s)", j.Location)
		}
		if hasResume {
			fmt.Fprintf(&b, " - %.0f%% match", j.MatchScore)
		}
		b.WriteByte('\n')
		if hasResume && len(j.MatchingSkills) > 0 {
			fmt.Fprintf(&b, "   Matching skills: %s\n", strings.Join(j.MatchingSkills, ", "))
		}
		if hasResume && len(j.MissingSkills) > 0 {
			fmt.Fprintf(&b, "   Skills to develop: %s\n", strings.Join(j.MissingSkills, ", "))
		}
		if !j.PostedDate.IsZero() {
			fmt.Fprintf(&b, "   Posted: %s\n", j.PostedDate.Format("2006-01-02"))
		}
		if j.URL != "" {
			fmt.Fprintf(&b, "   %s\n", j.URL)
		}
	}

	if len(m.FailedSources) > 0 {
		fmt.Fprintf(&b, "\nResults may be incomplete: could not reach %s.\n", strings.Join(m.FailedSources, ", "))
	}
	if !hasResume {
		b.WriteString("\nUpload your resume to see how well you match each job.")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatLetter(l *agent.Letter) string {
	header := "Cover letter"
	switch {
	case l.Role != "" && l.Company != "":
		header = fmt.Sprintf("Cover letter for %s at %s", l.Role, l.Company)
	case l.Role != "":
		header = "Cover letter for " + l.Role
	case l.Company != "":
		header = "Cover letter for " + l.Company
	}
	return header + ":\n\n" + strings.Join(l.Paragraphs, "\n\n")
}
