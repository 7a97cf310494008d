package intent

// Kind is the closed set of routing outcomes for a chat message.
type Kind string

const (
	JobSearch      Kind = "JOB_SEARCH"
	ResumeAnalysis Kind = "RESUME_ANALYSIS"
	CoverLetter    Kind = "COVER_LETTER"
	WebResearch    Kind = "WEB_RESEARCH"
	Unknown        Kind = "UNKNOWN"
)

// priority lists routable kinds from strongest to weakest. When a message
// matches the vocabulary of several kinds, the first one here wins.
var priority = []Kind{CoverLetter, JobSearch, ResumeAnalysis, WebResearch}

// Kinds returns every routable kind in priority order.
func Kinds() []Kind {
	return append([]Kind(nil), priority...)
}

// RequiresResume reports whether handling k needs an analysed resume.
func (k Kind) RequiresResume() bool {
	return k == ResumeAnalysis || k == CoverLetter
}

// Parameter names set in Intent.Params.
const (
	ParamRole                = "role"
	ParamCompany             = "company"
	ParamLocation            = "location"
	ParamTopic               = "topic"
	ParamFocus               = "focus"
	ParamMissingPrecondition = "missing_precondition"
	ParamRequestedIntent     = "requested_intent"
)

// PreconditionResume is the missing_precondition value recorded when a
// resume-dependent request arrives before any resume was analysed.
const PreconditionResume = "resume_context"

// Intent is the classification of one message. It is never persisted.
type Intent struct {
	Kind       Kind
	Confidence float64
	Params     map[string]string
}
