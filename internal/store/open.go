package store

import (
	"context"
	"log"

	"github.com/sudo-init-do/skillswap/internal/config"
	"github.com/sudo-init-do/skillswap/internal/db"
)

// Open builds the Store selected by cfg.Store. The returned func releases
// its resources.
func Open(ctx context.Context, cfg *config.Config) (Store, func(), error) {
	if cfg.Store == "memory" {
		log.Println("Using in-memory store; data is lost on exit")
		return NewMemory(), func() {}, nil
	}

	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := db.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return NewPostgres(pool), pool.Close, nil
}
