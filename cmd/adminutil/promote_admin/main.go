package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/sudo-init-do/skillswap/internal/config"
	"github.com/sudo-init-do/skillswap/internal/db"
)

func main() {
	id := flag.String("user", "", "ID or email of the user to promote to admin")
	flag.Parse()

	if *id == "" {
		log.Fatalf("usage: go run ./cmd/adminutil/promote_admin -user <id|email>")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("database error: %v", err)
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema error: %v", err)
	}

	// Promote the user to admin
	ct, err := pool.Exec(ctx, `UPDATE users SET role = 'admin' WHERE id = $1 OR email = $1`, *id)
	if err != nil {
		log.Fatalf("failed to promote user to admin: %v", err)
	}
	if ct.RowsAffected() == 0 {
		log.Fatalf("no user found with id or email: %s", *id)
	}

	fmt.Printf("User %s promoted to admin. Issue a new token to pick up the role.\n", *id)
}
