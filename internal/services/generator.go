package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"tenxcards-backend/internal/config"
	"tenxcards-backend/internal/models"
)

// TextGenerator is the external text-generation capability. Complete returns
// the raw model output for a prompt.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}

// SystemInstruction is sent to backends that support a separate system prompt.
const SystemInstruction = `You are an expert educational content creator specializing in creating effective flashcards for learning.

Your task is to analyze the provided text and generate 5-10 high-quality flashcards that help students learn the key concepts.

Guidelines:
- Create clear, concise questions that test understanding of important concepts
- Provide complete, accurate answers with sufficient context
- Focus on fundamental concepts, definitions, facts, and relationships
- Avoid overly complex or ambiguous questions
- Each flashcard should be self-contained and understandable
- Use simple, direct language appropriate for the subject matter
- Ensure questions have definitive, factual answers`

const (
	contentStart = "---CONTENT---\n"
	contentEnd   = "\n---END---"
)

func buildGenerationPrompt(inputText string, minCards, maxCards int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Generate between %d and %d flashcards from the content below.\n\n", minCards, maxCards))
	b.WriteString("CRITICAL: Return ONLY a JSON object. No preamble, no markdown, no backticks.\n\n")
	b.WriteString(fmt.Sprintf(`Rules:
- "front" is a question or prompt of at most %d characters
- "back" is the answer of at most %d characters
- No two cards may test the same concept

JSON schema:
{"flashcards": [{"front": "string", "back": "string"}]}
`, models.MaxFrontLength, models.MaxBackLength))

	b.WriteString("\n")
	b.WriteString(contentStart)
	b.WriteString(inputText)
	b.WriteString(contentEnd)
	b.WriteString("\n")

	return b.String()
}

// extractPromptContent returns the input text embedded by buildGenerationPrompt.
func extractPromptContent(prompt string) string {
	_, rest, ok := strings.Cut(prompt, contentStart)
	if !ok {
		return prompt
	}
	i := strings.LastIndex(rest, contentEnd)
	if i < 0 {
		return rest
	}
	return rest[:i]
}

// ProposalGenerator turns input text into a bounded list of validated
// candidates. It performs no retries and no persistence.
type ProposalGenerator struct {
	backend  TextGenerator
	timeout  time.Duration
	minCards int
	maxCards int
	log      *zap.Logger
}

func NewProposalGenerator(backend TextGenerator, cfg config.GeneratorConfig, log *zap.Logger) (*ProposalGenerator, error) {
	if backend == nil {
		return nil, errors.New("text generator is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generator config: %w", err)
	}
	return &ProposalGenerator{
		backend:  backend,
		timeout:  cfg.Timeout,
		minCards: cfg.MinCards,
		maxCards: cfg.MaxCards,
		log:      log,
	}, nil
}

func (g *ProposalGenerator) Model() string { return g.backend.Model() }

func (g *ProposalGenerator) Generate(ctx context.Context, inputText string) ([]models.ProposalCandidate, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.backend.Complete(ctx, buildGenerationPrompt(inputText, g.minCards, g.maxCards))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &GenerationFailedError{
				Code:    CodeTimeout,
				Message: fmt.Sprintf("text generation exceeded %s", g.timeout),
				Err:     err,
			}
		}
		return nil, &GenerationFailedError{Code: CodeUpstreamError, Message: "text generation call failed", Err: err}
	}

	parsed, err := decodeProposals(raw)
	if err != nil {
		return nil, &GenerationFailedError{Code: CodeInvalidResponse, Message: "model output did not match the flashcard schema", Err: err}
	}

	candidates := make([]models.ProposalCandidate, 0, len(parsed))
	for i, c := range parsed {
		front, back, verr := validateCard(c.Front, c.Back)
		if verr != nil {
			g.log.Warn("dropping invalid flashcard proposal",
				zap.Int("index", i),
				zap.Any("fields", verr.Fields))
			continue
		}
		candidates = append(candidates, models.ProposalCandidate{Front: front, Back: back})
	}

	if len(candidates) == 0 {
		return nil, &GenerationFailedError{
			Code:    CodeEmptyResult,
			Message: fmt.Sprintf("no valid flashcards among %d returned", len(parsed)),
		}
	}
	if len(candidates) > g.maxCards {
		g.log.Warn("truncating flashcard proposals",
			zap.Int("returned", len(candidates)),
			zap.Int("max", g.maxCards))
		candidates = candidates[:g.maxCards]
	}
	if len(candidates) < g.minCards {
		return nil, &GenerationFailedError{
			Code:    CodeInsufficientResult,
			Message: fmt.Sprintf("only %d valid flashcards, need at least %d", len(candidates), g.minCards),
		}
	}

	return candidates, nil
}

type proposalPayload struct {
	Flashcards *[]cardPayload `json:"flashcards"`
}

type cardPayload struct {
	Front *string `json:"front"`
	Back  *string `json:"back"`
}

// decodeProposals parses model output into front/back pairs. Unknown fields,
// missing fields and trailing data are all rejected.
func decodeProposals(raw string) ([]models.ProposalCandidate, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return nil, errors.New("empty response")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.DisallowUnknownFields()

	var payload proposalPayload
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	if payload.Flashcards == nil {
		return nil, errors.New(`missing "flashcards"`)
	}

	out := make([]models.ProposalCandidate, 0, len(*payload.Flashcards))
	for i, c := range *payload.Flashcards {
		if c.Front == nil || c.Back == nil {
			return nil, fmt.Errorf("flashcard %d: front and back are required", i)
		}
		out = append(out, models.ProposalCandidate{Front: *c.Front, Back: *c.Back})
	}
	return out, nil
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
