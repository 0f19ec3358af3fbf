package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizlive/go/clients/session_service_client"
	"github.com/mcdev12/quizlive/go/internal/config"
	"github.com/mcdev12/quizlive/go/internal/health"
	"github.com/mcdev12/quizlive/go/internal/quiz"
	"github.com/mcdev12/quizlive/go/internal/quiz/cache"
	"github.com/mcdev12/quizlive/go/internal/quiz/memory"
	"github.com/mcdev12/quizlive/go/internal/quiz/store"
)

type Services struct {
	Sessions quiz.SessionService
	DB       *sql.DB
	Redis    *redis.Client
	closers  []func() error
}

func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Error().Err(err).Msg("failed to release resource")
		}
	}
}

// RegisterProbes adds a health probe for every external dependency in use
func (s *Services) RegisterProbes(checker *health.Checker) {
	if s.DB != nil {
		checker.Add("database", s.DB.PingContext)
	}
	if s.Redis != nil {
		checker.Add("redis", func(ctx context.Context) error {
			return s.Redis.Ping(ctx).Err()
		})
	}
}

// setupServices builds the session service for the configured backend and wraps it in
// the Redis question cache when REDIS_URL is set
func setupServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	s := &Services{}

	switch cfg.Session.Backend {
	case config.BackendMemory:
		fixture, err := memory.LoadFile(cfg.Session.QuizFile)
		if err != nil {
			return nil, err
		}
		s.Sessions = memory.NewStoreFromFixture(fixture)
		log.Info().
			Str("file", cfg.Session.QuizFile).
			Int("sessions", len(fixture.Sessions)).
			Msg("loaded quiz fixture")

	case config.BackendPostgres:
		database, err := setupDatabase(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		s.DB = database
		s.closers = append(s.closers, database.Close)
		repo := store.NewRepository(database)
		if err := repo.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		s.Sessions = repo

	case config.BackendHTTP:
		s.Sessions = session_service_client.NewSessionServiceClient(cfg.Session.ServiceURL, cfg.Session.Token)
		log.Info().Str("url", cfg.Session.ServiceURL).Msg("using remote session service")

	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		s.Redis = client
		s.closers = append(s.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis is unreachable, question cache will fall through")
		}
		s.Sessions = cache.NewQuestionCache(s.Sessions, client, cfg.Session.CacheTTL)
		log.Info().Dur("ttl", cfg.Session.CacheTTL).Msg("question cache enabled")
	}

	return s, nil
}
