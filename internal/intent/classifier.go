package intent

import (
	"math"
	"strings"
	"unicode"
)

const (
	// questionConfidence is reported for unmatched text that reads as a
	// question and therefore falls through to web research.
	questionConfidence = 0.3
	minConfidence      = 0.4
	maxConfidence      = 0.95
)

// Classifier maps raw user text to an Intent using keyword vocabularies.
// The zero value is ready to use and safe for concurrent use.
type Classifier struct{}

// NewClassifier returns a keyword classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify returns exactly one Intent for text. It never fails: text that
// matches nothing yields Unknown with confidence 0. Kinds that need an
// analysed resume are downgraded to Unknown when hasResume is false, with
// the missing precondition recorded in Params.
func (c *Classifier) Classify(text string, hasResume bool) Intent {
	words := splitWords(text)
	if len(words) == 0 {
		return Intent{Kind: Unknown, Params: map[string]string{}}
	}
	lower := make([]string, len(words))
	for i, w := range words {
		lower[i] = strings.ToLower(w)
	}

	matchable := withoutGeneralNouns(lower)
	scores := make(map[Kind]int, len(priority))
	for _, k := range priority {
		for _, phrase := range vocabulary[k] {
			pt := strings.Fields(phrase)
			if containsSeq(matchable, pt) {
				scores[k] += len(pt)
			}
		}
	}

	kind := Unknown
	for _, k := range priority {
		if scores[k] > 0 {
			kind = k
			break
		}
	}

	var confidence float64
	switch {
	case kind != Unknown:
		confidence = 0.5 + 0.1*float64(scores[kind])
		if len(scores) > 1 {
			confidence -= 0.1
		}
		confidence = math.Round(math.Min(maxConfidence, math.Max(minConfidence, confidence))*100) / 100
	case isQuestion(text, lower):
		kind = WebResearch
		confidence = questionConfidence
	}

	params := extractParams(kind, words, lower)

	if kind.RequiresResume() && !hasResume {
		params[ParamMissingPrecondition] = PreconditionResume
		params[ParamRequestedIntent] = string(kind)
		return Intent{Kind: Unknown, Confidence: 0, Params: params}
	}
	return Intent{Kind: kind, Confidence: confidence, Params: params}
}

// splitWords breaks text on whitespace and trims surrounding punctuation,
// keeping the original casing.
func splitWords(text string) []string {
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) && r != '+' && r != '#'
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// withoutGeneralNouns blanks job nouns followed by "of", which use the
// word in its general sense ("the role of AI", "the position of the sun").
func withoutGeneralNouns(lower []string) []string {
	out := make([]string, len(lower))
	copy(out, lower)
	for i := 0; i+1 < len(out); i++ {
		if jobNouns[out[i]] && out[i+1] == "of" {
			out[i] = ""
		}
	}
	return out
}

func containsSeq(tokens, seq []string) bool {
	return indexSeq(tokens, seq) >= 0
}

func indexSeq(tokens, seq []string) int {
	if len(seq) == 0 || len(seq) > len(tokens) {
		return -1
	}
outer:
	for i := 0; i+len(seq) <= len(tokens); i++ {
		for j := range seq {
			if tokens[i+j] != seq[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}

func isQuestion(text string, lower []string) bool {
	if strings.HasSuffix(strings.TrimSpace(text), "?") {
		return true
	}
	return questionWords[lower[0]] && len(lower) > 2
}
