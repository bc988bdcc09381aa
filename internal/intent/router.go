// Package intent classifies inbound messages into the closed intent set
// that selects the pipeline branch.
package intent

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

type Intent string

const (
	CTA      Intent = "CTA"
	Operator Intent = "OPERATOR"
	RAG      Intent = "RAG"
)

var (
	phoneRe = regexp.MustCompile(`\+?\d[\d\-\s()]{8,}\d`)
	emailRe = regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`)
)

// Keyword lists mirror the lead-generation and talk-to-a-human phrasing
// the assistant is deployed against.
var (
	ctaKeywords      = []string{"коммерческ", "кп", "счет", "счёт", "прайс", "связ", "контакт", "менеджер"}
	operatorKeywords = []string{"оператор", "человек", "позвоните", "соедините"}
)

// Classifier is the optional learned fallback behind the rule cascade.
type Classifier interface {
	Predict(text string) (string, error)
}

// Router applies deterministic rules first and a learned classifier last.
// A nil classifier selects the rule-only variant. Route is pure and runs
// before any I/O, so it must stay allocation-light.
type Router struct {
	classifier Classifier
	log        *zap.Logger
}

func NewRouter(classifier Classifier, log *zap.Logger) *Router {
	return &Router{classifier: classifier, log: log}
}

// Route evaluates the precedence rules in order, first match wins:
// contact data → CTA, lead keywords → CTA, operator keywords → OPERATOR,
// classifier prediction, then RAG. Classifier failure degrades to RAG.
func (r *Router) Route(text string) Intent {
	t := strings.TrimSpace(text)
	if phoneRe.MatchString(t) || emailRe.MatchString(t) {
		return CTA
	}
	low := strings.ToLower(t)
	if containsAny(low, ctaKeywords) {
		return CTA
	}
	if containsAny(low, operatorKeywords) {
		return Operator
	}
	if r.classifier != nil {
		label, err := r.classifier.Predict(t)
		if err != nil {
			r.log.Debug("intent classifier failed, defaulting to RAG", zap.Error(err))
			return RAG
		}
		switch Intent(label) {
		case CTA, Operator, RAG:
			return Intent(label)
		}
		return RAG
	}
	return RAG
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
