package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kartiksharma1227/LawyerUp/internal/app"
	"github.com/kartiksharma1227/LawyerUp/internal/config"
)

// runIngest indexes statute files into the legal knowledge library.
// Accepts a single file or a directory (walked recursively).
func runIngest() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: lawyerup ingest <path>")
	}
	path := os.Args[2]

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	if !info.IsDir() {
		if err := a.Ingester.IngestFile(ctx, path); err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}
		fmt.Printf("Indexed %s\n", path)
		return nil
	}

	result, err := a.Ingester.IngestDirectory(ctx, path)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", path, err)
	}

	fmt.Printf("Ingest complete: %d indexed, %d skipped, %d failed (%d bytes in %s)\n",
		result.FilesAdded, result.FilesSkipped, result.FilesFailed, result.TotalSize, result.Duration.Round(time.Millisecond))

	return nil
}
