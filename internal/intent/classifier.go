package intent

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// Model is a multinomial naive Bayes intent classifier trained offline and
// exported as a JSON artifact. All probabilities are stored as logs.
type Model struct {
	Classes     []string                      `json:"classes"`
	Priors      map[string]float64            `json:"priors"`
	Likelihoods map[string]map[string]float64 `json:"likelihoods"`
	// Unknown is the per-class log-likelihood assigned to out-of-vocabulary
	// tokens (the smoothing mass).
	Unknown map[string]float64 `json:"unknown"`
}

// LoadModel reads a classifier artifact from disk. Callers treat a missing
// file as "no classifier", not as a failure.
func LoadModel(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Model
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode intent model %s: %w", path, err)
	}
	if len(m.Classes) == 0 {
		return nil, fmt.Errorf("intent model %s has no classes", path)
	}
	return &m, nil
}

// Predict returns the most likely class for the text.
func (m *Model) Predict(text string) (string, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return "", fmt.Errorf("no tokens in input")
	}

	best := ""
	bestScore := 0.0
	for i, class := range m.Classes {
		score := m.Priors[class]
		likelihood := m.Likelihoods[class]
		for _, tok := range tokens {
			if lp, ok := likelihood[tok]; ok {
				score += lp
			} else {
				score += m.Unknown[class]
			}
		}
		if i == 0 || score > bestScore {
			best, bestScore = class, score
		}
	}
	return best, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
