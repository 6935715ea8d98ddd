package main

import (
	"github.com/joho/godotenv"

	"rate-monitor/internal/cli"
)

func main() {
	// Optional .env for local development; real environments set variables
	// directly.
	_ = godotenv.Load()

	cli.Execute()
}
