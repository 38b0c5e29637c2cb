package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"tenxcards-backend/internal/config"
)

// GeminiTextGenerator calls the Gemini API in JSON response mode.
type GeminiTextGenerator struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
	log       *zap.Logger
}

func NewGeminiTextGenerator(ctx context.Context, cfg config.GeneratorConfig, log *zap.Logger) (*GeminiTextGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SystemInstruction)},
	}
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = flashcardResponseSchema()
	model.GenerationConfig.Temperature = genai.Ptr(float32(cfg.Temperature))
	model.GenerationConfig.MaxOutputTokens = genai.Ptr(int32(cfg.MaxOutputTokens))

	log.Info("Gemini client initialized",
		zap.String("model", cfg.Model),
		zap.Float64("temperature", cfg.Temperature),
		zap.Int("max_output_tokens", cfg.MaxOutputTokens))

	return &GeminiTextGenerator{
		client:    client,
		model:     model,
		modelName: cfg.Model,
		log:       log,
	}, nil
}

func flashcardResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"flashcards": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"front": {Type: genai.TypeString, Description: "The question or prompt on the front of the flashcard"},
						"back":  {Type: genai.TypeString, Description: "The answer or explanation on the back of the flashcard"},
					},
					Required: []string{"front", "back"},
				},
			},
		},
		Required: []string{"flashcards"},
	}
}

func (g *GeminiTextGenerator) Model() string { return g.modelName }

func (g *GeminiTextGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil {
			return "", fmt.Errorf("Gemini returned no candidates (block reason %v)", resp.PromptFeedback.BlockReason)
		}
		return "", errors.New("Gemini returned no candidates")
	}
	return extractText(resp), nil
}

func (g *GeminiTextGenerator) Close() error {
	return g.client.Close()
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
