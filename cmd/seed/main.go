package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tenxcards-backend/internal/config"
	"tenxcards-backend/internal/database"
	"tenxcards-backend/internal/logger"
	"tenxcards-backend/internal/middleware"
	"tenxcards-backend/internal/models"
	"tenxcards-backend/internal/repository"
	"tenxcards-backend/internal/services"
)

const seedModel = "seed"

var (
	words     = []string{"osmosis", "entropy", "lattice", "vector", "axiom", "catalyst", "meridian", "isotope", "syntax", "tariff", "mitosis", "quorum"}
	places    = []string{"Portugal", "Kenya", "Chile", "Norway", "Vietnam", "Canada", "Egypt", "Peru"}
	cities    = []string{"Lisbon", "Nairobi", "Santiago", "Oslo", "Hanoi", "Ottawa", "Cairo", "Lima"}
	fragments = []string{
		"describes how a system changes over time",
		"is measured relative to a fixed reference",
		"was first documented by early observers",
		"depends on the surrounding conditions",
		"appears in most introductory courses",
		"is often confused with a related idea",
		"can be derived from simpler principles",
		"explains a wide range of everyday effects",
	}
)

type template struct {
	front func(r *rand.Rand) string
	back  func(r *rand.Rand) string
}

var templates = []template{
	{
		front: func(r *rand.Rand) string { return fmt.Sprintf("What does '%s' mean?", pick(r, words)) },
		back:  func(r *rand.Rand) string { return sentence(r, 2) },
	},
	{
		front: func(r *rand.Rand) string { return "Define: " + capitalize(pick(r, words)) },
		back:  func(r *rand.Rand) string { return sentence(r, 3) },
	},
	{
		front: func(r *rand.Rand) string { return fmt.Sprintf("When did the %s reform occur?", pick(r, words)) },
		back:  func(r *rand.Rand) string { return fmt.Sprintf("In %d, it %s.", 1700+r.IntN(320), pick(r, fragments)) },
	},
	{
		front: func(r *rand.Rand) string {
			i := r.IntN(len(places))
			return fmt.Sprintf("What is the capital of %s?", places[i])
		},
		back: func(r *rand.Rand) string { return pick(r, cities) },
	},
	{
		front: func(r *rand.Rand) string { return fmt.Sprintf("How do you calculate %s?", pick(r, words)) },
		back:  func(r *rand.Rand) string { return sentence(r, 4) },
	},
}

func main() {
	count := flag.Int("count", 10, "Number of flashcards to create")
	email := flag.String("email", "dev@10xcards.local", "Email of the user to seed")
	method := flag.String("creation-method", "mixed", "manual, ai_full, ai_edited or mixed")
	inputText := flag.String("input-text", "", "Source text for AI generation (required for ai_full)")
	reset := flag.Bool("reset", false, "Delete the user and all of their data first")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the printed access token")
	flag.Parse()

	cfg := config.Load()
	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := validateFlags(*count, *method, *inputText); err != nil {
		log.Fatal("invalid flags", zap.Error(err))
	}

	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("PostgreSQL connection failed", zap.Error(err))
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, cfg.MigrationsDir, log); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}

	userRepo := repository.NewUserRepo(pool)
	flashcardRepo := repository.NewFlashcardRepo(pool)
	generationRepo := repository.NewGenerationRepo(pool)

	userID := userIDForEmail(*email)
	if *reset {
		if err := userRepo.Delete(ctx, userID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			log.Fatal("reset user failed", zap.Error(err))
		}
		log.Info("user reset", zap.String("user_id", userID.String()))
	}
	if err := userRepo.Upsert(ctx, userID, *email); err != nil {
		log.Fatal("upsert user failed", zap.Error(err))
	}

	log.Info("seeding flashcards",
		zap.String("email", *email),
		zap.String("creation_method", *method),
		zap.Int("count", *count))

	var created int
	if *method == string(models.CreationAIFull) {
		created, err = seedFromGeneration(ctx, cfg, log, generationRepo, userID, *inputText, *count)
	} else {
		s := &seeder{cards: flashcardRepo, sessions: generationRepo, rng: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))}
		created, err = s.seedTemplates(ctx, userID, *method, *count)
	}
	if err != nil {
		log.Fatal("seeding failed", zap.Int("created", created), zap.Error(err))
	}
	log.Info("seeding complete", zap.Int("created", created))

	token, err := middleware.NewJWTAuth(cfg.JWTSecret).GenerateAccessToken(userID, *email, *tokenTTL)
	if err != nil {
		log.Fatal("token signing failed", zap.Error(err))
	}
	fmt.Printf("user_id=%s\naccess_token=%s\n", userID, token)
}

func validateFlags(count int, method, inputText string) error {
	if count <= 0 {
		return errors.New("count must be a positive integer")
	}
	switch method {
	case "mixed", string(models.CreationManual), string(models.CreationAIEdited):
	case string(models.CreationAIFull):
		if strings.TrimSpace(inputText) == "" {
			return errors.New("-input-text is required with -creation-method=ai_full")
		}
	default:
		return fmt.Errorf("unknown creation method %q", method)
	}
	return nil
}

// userIDForEmail keeps seeded users stable across runs.
func userIDForEmail(email string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+strings.ToLower(strings.TrimSpace(email))))
}

// seedFromGeneration runs the real workflow and accepts every proposal
// verbatim, so every card ends up ai_full and linked to its session.
func seedFromGeneration(ctx context.Context, cfg *config.Config, log *zap.Logger, repo *repository.GenerationRepo, userID uuid.UUID, inputText string, requested int) (int, error) {
	backend, err := services.NewTextGenerator(ctx, cfg.Generator, log)
	if err != nil {
		return 0, err
	}
	if c, ok := backend.(io.Closer); ok {
		defer c.Close()
	}

	generator, err := services.NewProposalGenerator(backend, cfg.Generator, log)
	if err != nil {
		return 0, err
	}
	tracker := services.NewTracker(repo, generator.Model(), log)
	generations := services.NewGenerationService(tracker, generator, repo, services.NopPublisher, log)
	reconciler := services.NewReconciler(repo, services.NopPublisher, log)

	result, err := generations.Generate(ctx, userID, inputText)
	if err != nil {
		return 0, fmt.Errorf("generation failed: %w", err)
	}
	log.Info("proposals generated",
		zap.Int64("session_id", result.SessionID),
		zap.Int("proposals", len(result.Proposals)),
		zap.Int("latency_ms", result.LatencyMs))

	var created int
	for _, p := range result.Proposals {
		if _, err := reconciler.Accept(ctx, userID, result.SessionID, p.ID, p.OriginalFront, p.OriginalBack); err != nil {
			return created, fmt.Errorf("accept proposal %d: %w", p.ID, err)
		}
		created++
	}

	if created != requested {
		log.Warn("generated count differs from requested count",
			zap.Int("requested", requested),
			zap.Int("generated", created),
			zap.Int("min_cards", cfg.Generator.MinCards),
			zap.Int("max_cards", cfg.Generator.MaxCards))
	}
	return created, nil
}

type seeder struct {
	cards    *repository.FlashcardRepo
	sessions *repository.GenerationRepo
	rng      *rand.Rand

	sessionID *int64
}

func (s *seeder) seedTemplates(ctx context.Context, userID uuid.UUID, method string, count int) (int, error) {
	methods := []models.CreationMethod{models.CreationManual, models.CreationAIFull, models.CreationAIEdited}

	for i := 0; i < count; i++ {
		m := models.CreationMethod(method)
		if method == "mixed" {
			m = methods[s.rng.IntN(len(methods))]
		}

		tpl := templates[s.rng.IntN(len(templates))]
		card := &models.Flashcard{
			UserID:         userID,
			Front:          clip(tpl.front(s.rng), models.MaxFrontLength),
			Back:           clip(tpl.back(s.rng), models.MaxBackLength),
			CreationMethod: m,
		}
		if m.IsAI() {
			id, err := s.syntheticSession(ctx, userID, count)
			if err != nil {
				return i, err
			}
			card.AISessionID = &id
		}

		if err := s.cards.Create(ctx, card); err != nil {
			return i, err
		}
		if (i+1)%100 == 0 {
			fmt.Printf("  %d/%d\n", i+1, count)
		}
	}
	return count, nil
}

// syntheticSession lazily records one completed session that every fake AI
// card of this run points at.
func (s *seeder) syntheticSession(ctx context.Context, userID uuid.UUID, count int) (int64, error) {
	if s.sessionID != nil {
		return *s.sessionID, nil
	}

	session := &models.GenerationSession{
		UserID:    userID,
		InputText: "Seeded development data.",
		Model:     seedModel,
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return 0, fmt.Errorf("create synthetic session: %w", err)
	}
	_, err := s.sessions.FinalizeSession(ctx, session.ID, repository.SessionOutcome{
		Status:         models.SessionCompleted,
		GeneratedCount: count,
	})
	if err != nil {
		return 0, fmt.Errorf("finalize synthetic session: %w", err)
	}

	s.sessionID = &session.ID
	return session.ID, nil
}

func pick(r *rand.Rand, xs []string) string { return xs[r.IntN(len(xs))] }

func sentence(r *rand.Rand, parts int) string {
	out := make([]string, parts)
	for i := range out {
		out[i] = pick(r, fragments)
	}
	return capitalize(strings.Join(out, " and ")) + "."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
