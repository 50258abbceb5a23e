package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/rs/zerolog/log"

	"inboxsearch/config"
	"inboxsearch/internal/access"
	"inboxsearch/internal/cache"
	"inboxsearch/internal/events"
	"inboxsearch/internal/handlers"
	"inboxsearch/internal/media"
	"inboxsearch/internal/ratelimit"
	"inboxsearch/internal/search"
	"inboxsearch/internal/session"
	"inboxsearch/internal/store"
	"inboxsearch/pkg/logger"
)

func main() {
	logger.InitLogger()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	st, err := store.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := st.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	phones, err := st.BusinessPhones(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load business phones")
	}
	policy := access.NewPolicy(phones)
	log.Info().Int("businessPhones", len(phones)).Msg("Access policy initialized")

	mediaResolver, err := media.NewS3Resolver(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize S3 media resolver")
	}
	var resolver search.MediaResolver
	if mediaResolver != nil {
		resolver = mediaResolver
	}

	publisher := events.NewPublisher(cfg.RabbitMQURL, cfg.RabbitQueue, cfg.RabbitPrefix, policy)
	defer publisher.Close()

	if cfg.SessionProviderURL == "" {
		log.Fatal().Msg("SESSION_PROVIDER_URL must be set")
	}
	sessions := session.NewHTTPProvider(cfg.SessionProviderURL, cfg.SessionCacheTTL)

	debugDedup := os.Getenv("DEBUG_DEDUP") == "true"
	orchestrator := search.NewOrchestrator(st, resolver, cfg.SearchDeadline, debugDedup)
	unified := search.NewUnifiedEngine(st, resolver, debugDedup)

	results := cache.New(cfg.ResultCacheTTL)
	limiter := ratelimit.New(cfg.RateLimitMax, cfg.RateLimitWindow)

	handler := handlers.NewSearchHandler(st, policy, orchestrator, unified, results)

	r := mux.NewRouter()
	authed := alice.New(handlers.RequestLogger, handlers.Auth(sessions), handlers.RateLimit(limiter))
	r.Handle("/api/search", authed.ThenFunc(handler.Search())).Methods("GET")
	r.Handle("/api/search/unified", authed.ThenFunc(handler.UnifiedSearch())).Methods("GET")
	r.Handle("/health", alice.New(handlers.RequestLogger).ThenFunc(handler.Health())).Methods("GET")

	log.Info().Str("port", cfg.Port).Msg("Server starting")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
