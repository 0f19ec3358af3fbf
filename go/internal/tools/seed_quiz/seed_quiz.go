package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/mcdev12/quizlive/go/internal/dbconfig"
	"github.com/mcdev12/quizlive/go/internal/quiz/memory"
	"github.com/mcdev12/quizlive/go/internal/quiz/store"
)

func main() {
	path := flag.String("file", "quiz.yaml", "YAML quiz fixture to load")
	flag.Parse()

	_ = godotenv.Load()
	ctx := context.Background()

	// 1) Load and validate the fixture
	fixture, err := memory.LoadFile(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	repo := store.NewRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "create schema: %v\n", err)
		os.Exit(1)
	}

	// 3) Upsert every session and count
	var (
		total     = len(fixture.Sessions)
		seeded    int
		questions int
		errs      int
	)
	for _, s := range fixture.Sessions {
		if err := repo.SeedSession(ctx, s.Code, s.Title, s.Questions); err != nil {
			fmt.Fprintf(os.Stderr, "error seeding session %s: %v\n", s.Code, err)
			errs++
			continue
		}
		seeded++
		questions += len(s.Questions)
	}

	// 4) Print summary
	fmt.Printf(
		"Quiz seed complete: %d sessions, %d seeded, %d questions, %d errors\n",
		total, seeded, questions, errs,
	)
	if errs > 0 {
		os.Exit(1)
	}
}
