package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/mcdev12/quizlive/go/internal/auth"
	"github.com/mcdev12/quizlive/go/internal/config"
)

func main() {
	role := flag.String("role", "team", "trust domain to sign for: admin or team")
	id := flag.String("id", "", "admin or team identifier to embed")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.FromEnv()

	var issuer *auth.Issuer
	switch auth.Domain(*role) {
	case auth.DomainAdmin:
		issuer = auth.NewIssuer(auth.DomainAdmin, cfg.Auth.AdminSecret, cfg.Auth.AdminTTL)
	case auth.DomainTeam:
		issuer = auth.NewIssuer(auth.DomainTeam, cfg.Auth.TeamSecret, cfg.Auth.TeamTTL)
	default:
		fmt.Fprintf(os.Stderr, "unknown role %q, want admin or team\n", *role)
		os.Exit(2)
	}

	token, err := issuer.Issue(*id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
