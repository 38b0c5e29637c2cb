package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tenxcards-backend/internal/config"
)

// NewTextGenerator builds the backend selected by cfg.Provider. Callers
// should Close the result when it implements io.Closer.
func NewTextGenerator(ctx context.Context, cfg config.GeneratorConfig, log *zap.Logger) (TextGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generator config: %w", err)
	}
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiTextGenerator(ctx, cfg, log)
	default:
		return NewMockTextGenerator(cfg.MinCards, cfg.MaxCards), nil
	}
}
