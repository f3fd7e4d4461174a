package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/sudo-init-do/skillswap/internal/auth"
	"github.com/sudo-init-do/skillswap/internal/config"
	"github.com/sudo-init-do/skillswap/internal/store"
)

// token mints a bearer token for an existing user, carrying the role stored
// on the user record. Sign-in is handled outside this service.
func main() {
	userID := flag.String("user", "", "ID of the user to issue a token for")
	ttl := flag.Duration("ttl", 72*time.Hour, "Token lifetime")
	flag.Parse()

	if *userID == "" {
		log.Fatalf("usage: go run ./cmd/adminutil/token -user <id> [-ttl 72h]")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	st, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}
	defer closeStore()

	u, err := st.GetUser(ctx, *userID)
	if err != nil {
		log.Fatalf("lookup %s: %v", *userID, err)
	}

	signed, err := auth.IssueToken(cfg.Auth.JWTSecret, u.ID, u.Role, *ttl)
	if err != nil {
		log.Fatalf("token generation failed: %v", err)
	}
	fmt.Println(signed)
}
