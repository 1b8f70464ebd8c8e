package main

import (
	"context"
	"log"
	"os"

	"github.com/vadim/neo-content/internal/app"
	"github.com/vadim/neo-content/internal/config"
)

func main() {
	cfg := config.MustLoad()

	ctx := context.Background()

	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	// Run blocks until a shutdown signal arrives
	if err := application.Run(ctx); err != nil {
		log.Printf("application error: %v", err)
		os.Exit(1)
	}
}
