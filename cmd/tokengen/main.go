// Command tokengen issues an operator bearer token for the read/admin API.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/spec-kit/locate-ingest/internal/auth"
	"github.com/spec-kit/locate-ingest/internal/config"
)

func main() {
	operator := flag.String("operator", "", "operator id to embed as the token subject")
	flag.Parse()

	if *operator == "" {
		log.Fatal("missing required flag -operator")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	token, expiresAt, err := tokens.GenerateToken(*operator)
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}

	fmt.Println(token)
	fmt.Printf("expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
}
