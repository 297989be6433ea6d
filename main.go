package main

import (
	"log"
	"os"

	"quotation-replay/app"
	"quotation-replay/config"
)

func main() {
	// Load config from .env file
	cfg := config.LoadFromEnv()

	// Create and start app
	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Printf("❌ %v", err)
		os.Exit(app.ExitCode(err))
	}
}
