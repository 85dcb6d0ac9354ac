// Package chatbot answers free-text questions about beat categories with an
// ordered list of keyword rules.
package chatbot

import (
	"fmt"
	"strings"
)

// FallbackID is reported when no rule matched.
const FallbackID = "fallback"

const fallbackAnswer = "I can answer questions about Normal, Supraventricular Ectopic, Ventricular Ectopic, Fusion and Unknown beats, or explain how the classifier works."

// Answer is the responder's reply.
type Answer struct {
	Text   string `json:"answer"`
	RuleID string `json:"rule_id"`
}

// Responder is stateless and safe for concurrent use.
type Responder struct {
	rules    []rule
	fallback string
}

// New returns a Responder with the built-in topic rules.
func New() *Responder {
	r, err := NewWithRules(ruleDefs())
	if err != nil {
		panic(fmt.Sprintf("chatbot: built-in rules: %v", err))
	}
	return r
}

// NewWithRules builds a Responder evaluating defs in order.
func NewWithRules(defs []Rule) (*Responder, error) {
	compiled, err := compileRules(defs)
	if err != nil {
		return nil, fmt.Errorf("compile rules: %w", err)
	}
	return &Responder{rules: compiled, fallback: fallbackAnswer}, nil
}

// Ask returns the answer of the first rule matching question.
func (r *Responder) Ask(question string) Answer {
	q := strings.TrimSpace(question)
	if q != "" {
		for _, rl := range r.rules {
			if rl.re.MatchString(q) {
				return Answer{Text: rl.Response, RuleID: rl.ID}
			}
		}
	}
	return Answer{Text: r.fallback, RuleID: FallbackID}
}

// Rules returns the rule table in evaluation order.
func (r *Responder) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	for i, rl := range r.rules {
		out[i] = rl.Rule
	}
	return out
}
