package intent

import (
	"strings"
)

// jobNouns anchor role extraction: the words before the first of these
// usually name the role ("python developer jobs").
var jobNouns = map[string]bool{
	"job": true, "jobs": true, "position": true, "positions": true,
	"opening": true, "openings": true, "vacancy": true, "vacancies": true,
	"role": true, "roles": true, "opportunity": true, "opportunities": true,
	"internship": true, "internships": true,
}

// clauseMarkers start a prepositional clause; any of them also ends the
// clause before it.
var clauseMarkers = map[string]bool{
	"in": true, "at": true, "for": true, "as": true, "near": true,
	"about": true, "with": true, "that": true, "which": true, "on": true,
	"requiring": true, "using": true, "paying": true, "from": true,
}

var articles = map[string]bool{"the": true, "a": true, "an": true, "my": true}

// topicLead is stripped from the front of a research message to leave its
// subject ("what is kubernetes" -> "kubernetes").
var topicLead = map[string]bool{
	"research": true, "what": true, "is": true, "are": true, "who": true,
	"how": true, "does": true, "do": true, "explain": true, "tell": true,
	"me": true, "find": true, "out": true, "information": true, "on": true,
	"details": true, "learn": true, "about": true, "the": true, "a": true,
	"an": true, "can": true, "you": true, "please": true, "give": true,
	"some": true, "i": true, "want": true, "to": true, "was": true,
	"were": true, "news": true, "latest": true, "overview": true, "of": true,
}

func extractParams(kind Kind, words, lower []string) map[string]string {
	params := map[string]string{}
	cl := clauses(words, lower)

	if v := cl["at"]; v != "" {
		params[ParamCompany] = v
	}

	switch kind {
	case JobSearch:
		role := rolePrefix(words, lower)
		inUsed := false
		if role == "" {
			switch {
			case cl["as"] != "":
				role = cl["as"]
			case cl["for"] != "":
				role = cl["for"]
			case cl["in"] != "":
				role, inUsed = cl["in"], true
			}
		}
		if role != "" {
			params[ParamRole] = role
		}
		switch {
		case cl["in"] != "" && !inUsed:
			params[ParamLocation] = cl["in"]
		case cl["near"] != "":
			params[ParamLocation] = cl["near"]
		}
		if _, ok := params[ParamLocation]; !ok && containsSeq(lower, []string{"remote"}) {
			params[ParamLocation] = "remote"
		}
	case CoverLetter:
		switch {
		case cl["as"] != "":
			params[ParamRole] = cl["as"]
		case cl["for"] != "":
			params[ParamRole] = cl["for"]
		}
	case ResumeAnalysis:
		for _, f := range focusWords {
			if containsSeq(lower, strings.Fields(f.phrase)) {
				params[ParamFocus] = f.section
				break
			}
		}
	case WebResearch:
		topic := cl["about"]
		if topic == "" {
			i := 0
			for i < len(lower) && topicLead[lower[i]] {
				i++
			}
			topic = strings.Join(words[i:], " ")
		}
		if topic != "" {
			params[ParamTopic] = topic
		}
	}
	return params
}

// rolePrefix returns the words before the first job noun, minus leading
// filler and research lead-in words. Empty when nothing else is left.
func rolePrefix(words, lower []string) string {
	end := -1
	for i, w := range lower {
		if jobNouns[w] {
			end = i
			break
		}
	}
	if end <= 0 {
		return ""
	}
	start := 0
	for start < end && (fillers[lower[start]] || topicLead[lower[start]]) {
		start++
	}
	for end > start && articles[lower[end-1]] {
		end--
	}
	return strings.Join(words[start:end], " ")
}

// clauses returns the first phrase following each clause marker. Leading
// articles and trailing job nouns are dropped, so "for the data engineer
// position" yields for="data engineer".
func clauses(words, lower []string) map[string]string {
	out := make(map[string]string)
	for i := 0; i < len(lower); i++ {
		marker := lower[i]
		if !clauseMarkers[marker] {
			continue
		}
		if _, seen := out[marker]; seen {
			continue
		}
		j := i + 1
		for j < len(lower) && articles[lower[j]] {
			j++
		}
		k := j
		for k < len(lower) && !clauseMarkers[lower[k]] {
			k++
		}
		end := k
		for end > j && jobNouns[lower[end-1]] {
			end--
		}
		if end > j {
			out[marker] = strings.Join(words[j:end], " ")
		}
	}
	return out
}
