package main

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"pocketbank/internal/config"
	"pocketbank/internal/logger"
	"pocketbank/internal/seed"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	zl := logger.New()
	defer zl.Sync()

	if err := seed.Run(ctx, db, zl); err != nil {
		zl.Fatal("seed failed: " + err.Error())
	}
}
