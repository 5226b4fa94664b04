// Package cmd provides CLI commands for LawyerUp.
//
// Commands:
//   - serve: HTTP API server for case monitoring, chat and document analysis
//   - ingest: index statute files into the legal knowledge library
//
// Signal handling and graceful shutdown are implemented
// for all commands via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kartiksharma1227/LawyerUp/internal/log"
)

// Execute is the main entry point for the LawyerUp CLI application.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.New(log.Config{Level: level}))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "ingest":
		return runIngest()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("LawyerUp - Legal case monitoring and document analysis backend")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  lawyerup serve [addr]   Start HTTP API server (default: 127.0.0.1:3400)")
	fmt.Println("  lawyerup ingest <path>  Index statute files (file or directory) into the library")
	fmt.Println("  lawyerup --version      Show version information")
	fmt.Println("  lawyerup --help         Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY         Required: Gemini API key")
	fmt.Println("  GOOGLE_CSE_API_KEY     Required for serve: Custom Search API key")
	fmt.Println("  GOOGLE_CSE_ENGINE_ID   Required for serve: Custom Search engine ID")
	fmt.Println("  IDENTITY_URL           Required for serve: identity service base URL")
	fmt.Println("  DATABASE_URL           Optional: Postgres connection URL")
	fmt.Println("  DEBUG                  Optional: Enable debug logging")
	fmt.Println()
	fmt.Println("Learn more: https://github.com/kartiksharma1227/LawyerUp")
}
