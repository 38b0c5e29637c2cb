package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL   string
	MigrationsDir string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// Flashcard generation
	Generator            GeneratorConfig
	GenerationRateLimit  int
	GenerationRateWindow time.Duration

	// Frontend
	FrontendURL string
}

const (
	ProviderMock   = "mock"
	ProviderGemini = "gemini"
)

// GeneratorConfig configures the text-generation backend and the bounds the
// generator applies to its output.
type GeneratorConfig struct {
	Provider        string
	APIKey          string
	Model           string
	Temperature     float64
	MaxOutputTokens int
	Timeout         time.Duration
	MinCards        int
	MaxCards        int
}

func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Provider:        ProviderMock,
		Model:           "gemini-2.0-flash-001",
		Temperature:     0.7,
		MaxOutputTokens: 2048,
		Timeout:         30 * time.Second,
		MinCards:        5,
		MaxCards:        10,
	}
}

func (c GeneratorConfig) Validate() error {
	var errs []error
	switch c.Provider {
	case ProviderMock:
	case ProviderGemini:
		if c.APIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini provider"))
		}
		if c.Model == "" {
			errs = append(errs, errors.New("model name is required for the gemini provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM provider %q", c.Provider))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be between 0 and 2, got %v", c.Temperature))
	}
	if c.MaxOutputTokens <= 0 {
		errs = append(errs, fmt.Errorf("max output tokens must be positive, got %d", c.MaxOutputTokens))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("generation timeout must be positive, got %s", c.Timeout))
	}
	if c.MinCards < 1 || c.MaxCards < c.MinCards {
		errs = append(errs, fmt.Errorf("invalid card bounds %d..%d", c.MinCards, c.MaxCards))
	}
	return errors.Join(errs...)
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	gen := DefaultGeneratorConfig()
	gen.Provider = getEnvOrDefault("LLM_PROVIDER", gen.Provider)
	gen.APIKey = os.Getenv("GEMINI_API_KEY")
	gen.Model = getEnvOrDefault("GEMINI_MODEL", gen.Model)
	gen.Temperature = getEnvAsFloatOrDefault("GEMINI_TEMPERATURE", gen.Temperature)
	gen.MaxOutputTokens = getEnvAsIntOrDefault("GEMINI_MAX_OUTPUT_TOKENS", gen.MaxOutputTokens)
	gen.Timeout = getEnvAsDurationOrDefault("GENERATION_TIMEOUT", gen.Timeout)

	cfg := &Config{
		Port:          getEnvOrDefault("PORT", "8080"),
		Env:           getEnvOrDefault("ENV", "development"),
		DatabaseURL:   mustGetEnv("DATABASE_URL"),
		MigrationsDir: getEnvOrDefault("MIGRATIONS_DIR", "migrations"),
		RedisURL:      mustGetEnv("REDIS_URL"),
		JWTSecret:     mustGetEnv("JWT_SECRET"),
		Generator:     gen,
		FrontendURL:   getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),

		GenerationRateLimit:  getEnvAsIntOrDefault("GENERATION_RATE_LIMIT", 10),
		GenerationRateWindow: getEnvAsDurationOrDefault("GENERATION_RATE_WINDOW", time.Minute),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsFloatOrDefault(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

// getEnvAsDurationOrDefault accepts Go durations ("45s") or bare seconds ("45").
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}
