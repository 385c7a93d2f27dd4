// Package tone classifies the register of a user question with a fast local
// rule pass and a remote fallback for inconclusive input.
package tone

import (
	"regexp"
	"strings"
)

// Label is a coarse tone classification. Neutral doubles as the inconclusive
// signal of the local pass, which is what triggers remote escalation.
type Label string

const (
	Irritated Label = "irritated"
	Informal  Label = "informal"
	Formal    Label = "formal"
	Neutral   Label = "neutral"
)

// Instruction phrases the label as a register the answer should adopt.
func (l Label) Instruction() string {
	switch l {
	case Irritated:
		return "brief, calm, and straight to the point"
	case Informal:
		return "relaxed and informal"
	case Formal:
		return "formal and polite"
	default:
		return "objective"
	}
}

var irritationPattern = regexp.MustCompile(`!{2,}|[😡🤬🤯]`)

// Marker sets are curated from escalation-log mining; grow them with the
// minetone command output.
var (
	angerMarkers = []string{
		"absurd", "ridiculous", "outrageous", "scam", "rip-off", "rip off",
		"disgrace", "shameful", "disgusting", "lies", "liar", "robbery",
		"joke of a", "fed up", "sick of", "can't stand", "unacceptable",
		"disrespect", "furious",
	}

	informalMarkers = []string{
		"dude", "bro", "buddy", "mate", "gonna", "wanna", "kinda", "gotta",
		"lol", "lmao", "haha", "hehe", "omg", "btw", "yep", "nah", "sup",
		"my man", "no way", "for real", "cool cool",
	}

	formalMarkers = []string{
		"please", "kindly", "could you", "would you", "would it be possible",
		"i would appreciate", "thank you", "thanks in advance", "grateful",
		"dear", "best regards", "kind regards", "sincerely", "i wish to",
		"i look forward",
	}
)

// DetectLocal runs the rule pass, first match wins: irritation, then
// informality, then formality. Neutral means no rule matched.
func DetectLocal(message string) Label {
	lowered := strings.ToLower(message)

	if irritationPattern.MatchString(message) || containsAny(lowered, angerMarkers) {
		return Irritated
	}
	if containsAny(lowered, informalMarkers) {
		return Informal
	}
	if containsAny(lowered, formalMarkers) {
		return Formal
	}
	return Neutral
}

// ParseLabel maps free-text classifier output onto a label by substring
// containment, defaulting to Neutral for anything unrecognizable.
func ParseLabel(response string) Label {
	lowered := strings.ToLower(response)
	switch {
	case strings.Contains(lowered, string(Irritated)):
		return Irritated
	case strings.Contains(lowered, string(Informal)):
		return Informal
	case strings.Contains(lowered, string(Formal)):
		return Formal
	default:
		return Neutral
	}
}

func containsAny(text string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
