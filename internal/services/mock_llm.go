package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"tenxcards-backend/internal/models"
)

const MockModelName = "mock_model"

// MockTextGenerator builds flashcards from the sentences of the input text
// without any network access. The same input always yields the same output.
// Short texts are cycled so at least MinCards cards come back.
type MockTextGenerator struct {
	MinCards int
	MaxCards int
}

func NewMockTextGenerator(minCards, maxCards int) *MockTextGenerator {
	return &MockTextGenerator{MinCards: minCards, MaxCards: maxCards}
}

func (m *MockTextGenerator) Model() string { return MockModelName }

func (m *MockTextGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	maxCards := m.MaxCards
	if maxCards <= 0 {
		maxCards = 10
	}

	sentences := splitSentences(extractPromptContent(prompt))
	if len(sentences) > maxCards {
		sentences = sentences[:maxCards]
	}
	if n := len(sentences); n > 0 && n < m.MinCards {
		for i := 0; len(sentences) < m.MinCards; i++ {
			sentences = append(sentences, sentences[i%n])
		}
	}

	cards := make([]cardPayload, 0, len(sentences))
	for i, s := range sentences {
		front := truncateRunes(fmt.Sprintf("Card %d: what does the text state about \"%s\"?", i+1, keyPhrase(s)), models.MaxFrontLength)
		back := truncateRunes(s, models.MaxBackLength)
		cards = append(cards, cardPayload{Front: &front, Back: &back})
	}

	out, err := json.Marshal(proposalPayload{Flashcards: &cards})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func splitSentences(text string) []string {
	var out []string
	for _, s := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	}) {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// keyPhrase keeps the first few words of a sentence.
func keyPhrase(sentence string) string {
	words := strings.FieldsFunc(sentence, func(r rune) bool {
		return unicode.IsSpace(r) || r == '"'
	})
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.Join(words, " ")
}
