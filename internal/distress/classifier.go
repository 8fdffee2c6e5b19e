// Package distress flags transcribed speech that contains a call for help.
package distress

import "strings"

// Trigger is the machine-readable verdict attached to an analysis.
type Trigger string

const (
	TriggerVoiceHelp Trigger = "VOICE_HELP"
	TriggerNone      Trigger = "NONE"
)

// TriggerFor maps a classifier verdict to its trigger tag.
func TriggerFor(unsafe bool) Trigger {
	if unsafe {
		return TriggerVoiceHelp
	}
	return TriggerNone
}

// DefaultPhrases is the built-in distress vocabulary, in match order.
var DefaultPhrases = []string{
	"help",
	"save me",
	"i need help",
	"please help",
	"i am in danger",
	"someone is attacking me",
	"someone is following me",
	"i am scared",
	"call the police",
	"emergency",
	"Save",
	"Someone is chasing me",
}

// Classifier matches text against a fixed list of phrases. It is immutable
// after construction and safe for concurrent use.
type Classifier struct {
	phrases []string
}

// NewClassifier builds a classifier over phrases. Phrases are lowercased so
// matching is case-insensitive on both sides; empty phrases are dropped.
func NewClassifier(phrases []string) *Classifier {
	c := &Classifier{phrases: make([]string, 0, len(phrases))}
	for _, p := range phrases {
		p = strings.ToLower(p)
		if p == "" {
			continue
		}
		c.phrases = append(c.phrases, p)
	}
	return c
}

// Default is the classifier over DefaultPhrases.
var Default = NewClassifier(DefaultPhrases)

// IsUnsafe reports whether text contains any distress phrase.
func (c *Classifier) IsUnsafe(text string) bool {
	_, ok := c.Match(text)
	return ok
}

// Match returns the first phrase, in list order, found in text.
func (c *Classifier) Match(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, p := range c.phrases {
		if strings.Contains(lower, p) {
			return p, true
		}
	}
	return "", false
}

// Phrases returns a copy of the normalized phrase list.
func (c *Classifier) Phrases() []string {
	out := make([]string, len(c.phrases))
	copy(out, c.phrases)
	return out
}

// IsUnsafe classifies text with the Default classifier.
func IsUnsafe(text string) bool {
	return Default.IsUnsafe(text)
}
