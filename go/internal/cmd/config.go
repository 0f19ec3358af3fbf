package main

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizlive/go/internal/config"
	"github.com/mcdev12/quizlive/go/internal/quiz/events"
	"github.com/mcdev12/quizlive/go/internal/realtime/gateway"
)

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		log.Warn().Str("level", level).Msg("unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func gatewayConfig(cfg *config.Config) gateway.Config {
	gc := gateway.DefaultConfig()
	gc.Path = cfg.Realtime.Path
	gc.WarningBefore = cfg.Realtime.WarningBefore
	gc.EnforceAdminRole = cfg.Realtime.EnforceAdminRole
	gc.ConnectionConfig.CheckOrigin = gateway.AllowOrigins(cfg.CORSOrigins())

	if cfg.NATSURL != "" {
		js := gateway.DefaultJetStreamConsumerConfig()
		js.Stream = eventStreamConfig(cfg)
		gc.JetStream = &js
	}
	return gc
}

func eventStreamConfig(cfg *config.Config) events.StreamConfig {
	sc := events.DefaultStreamConfig()
	sc.URL = cfg.NATSURL
	return sc
}
