package intent

// Vocabularies are matched against lower-cased word tokens. Multi-word
// entries must appear as a contiguous token sequence.
var vocabulary = map[Kind][]string{
	CoverLetter: {
		"cover letter", "cover letters", "covering letter", "motivation letter",
		"motivational letter", "application letter", "letter of application",
		"letter of recommendation", "recommendation letter",
	},
	JobSearch: {
		"job", "jobs", "position", "positions", "opening", "openings",
		"vacancy", "vacancies", "role", "roles", "opportunity", "opportunities",
		"career opportunities", "hiring", "internship", "internships",
		"looking for work", "job search", "employment",
	},
	ResumeAnalysis: {
		"resume", "resumes", "résumé", "cv", "skill", "skills", "skills gap",
		"skill gap", "improve", "improvement", "strengths", "weaknesses",
		"experience", "profile", "career path", "feedback on my",
		"analyze my", "analyse my", "review my",
	},
	WebResearch: {
		"research", "information", "learn", "find out", "details",
		"tell me about", "what is", "what are", "who is", "how does",
		"explain", "news", "trends", "overview",
	},
}

// fillers are stripped from the front of a role phrase such as
// "find me some python developer jobs".
var fillers = map[string]bool{
	"find": true, "search": true, "show": true, "me": true, "look": true,
	"looking": true, "for": true, "any": true, "some": true, "get": true,
	"list": true, "a": true, "an": true, "the": true, "i": true, "want": true,
	"need": true, "new": true, "open": true, "please": true, "can": true,
	"you": true, "are": true, "there": true, "recent": true, "latest": true,
	"good": true, "what": true, "which": true, "to": true, "all": true,
	"remote": true,
}

// questionWords mark a message as a question when it starts with one.
var questionWords = map[string]bool{
	"what": true, "who": true, "how": true, "why": true, "when": true,
	"where": true, "which": true, "is": true, "are": true, "does": true,
	"do": true, "can": true, "could": true,
}

// focusWords map resume-analysis wording to the section it asks about.
// Order matters: the first match wins.
var focusWords = []struct {
	phrase  string
	section string
}{
	{"skills gap", "development"},
	{"skill gap", "development"},
	{"improve", "development"},
	{"improvement", "development"},
	{"weaknesses", "development"},
	{"recommend", "recommendations"},
	{"recommendations", "recommendations"},
	{"career path", "recommendations"},
	{"suit", "recommendations"},
	{"objectives", "context"},
	{"goals", "context"},
	{"industries", "context"},
	{"strengths", "profile"},
	{"skills", "profile"},
	{"experience", "profile"},
	{"education", "profile"},
}
