package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/sudo-init-do/skillswap/internal/admin"
	"github.com/sudo-init-do/skillswap/internal/config"
	"github.com/sudo-init-do/skillswap/internal/store"
	"github.com/sudo-init-do/skillswap/internal/wallet"
)

func main() {
	userID := flag.String("user", "", "Reconcile a single user (default: every user)")
	flag.Parse()

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

	ledger := wallet.NewLedger(st)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if *userID != "" {
		report, err := ledger.Reconcile(ctx, *userID)
		if err != nil {
			log.Fatalf("reconcile %s: %v", *userID, err)
		}
		_ = enc.Encode(report)
		if !report.Consistent {
			os.Exit(1)
		}
		return
	}

	res, err := admin.ReconcileAll(ctx, st, ledger)
	if err != nil {
		log.Fatalf("reconcile: %v", err)
	}
	_ = enc.Encode(res)
	if len(res.Inconsistent) > 0 || res.Errors > 0 {
		os.Exit(1)
	}
}
