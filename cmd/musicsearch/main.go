// Package main provides the entry point for the musicsearch CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/MaxHilsdorf/music-search-chatbot/internal/cli"
)

func main() {
	// Missing .env is fine; API keys may come from the environment.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
