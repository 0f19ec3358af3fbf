package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/mcdev12/quizlive/go/internal/quiz/events"
)

func main() {
	eventType := flag.String("type", events.TypeSessionStarted, "event type, e.g. ScoreboardUpdated")
	code := flag.String("session", "", "session code")
	payload := flag.String("payload", "", "JSON payload")
	flag.Parse()

	_ = godotenv.Load()

	if *code == "" {
		fmt.Fprintln(os.Stderr, "-session is required")
		os.Exit(2)
	}

	var body any
	if *payload != "" {
		if !json.Valid([]byte(*payload)) {
			fmt.Fprintln(os.Stderr, "-payload is not valid JSON")
			os.Exit(2)
		}
		body = json.RawMessage(*payload)
	}

	env, err := events.NewEnvelope(*eventType, *code, body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build event: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := events.DefaultStreamConfig()
	if url := os.Getenv("NATS_URL"); url != "" {
		cfg.URL = url
	}
	cfg.MaxReconnects = 0

	pub, err := events.NewPublisher(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer pub.Close()

	if err := pub.Publish(ctx, env); err != nil {
		fmt.Fprintf(os.Stderr, "publish: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Published %s for %s (%s)\n", env.EventType, env.SessionCode, env.EventID)
}
