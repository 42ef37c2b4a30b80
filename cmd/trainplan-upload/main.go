package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/claude/trainplan/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "TrainPlan server URL (e.g. https://trainplan.tail1234.ts.net)")
	syncPath := flag.String("path", "", "directory containing programs/ and workouts/")
	apiKey := flag.String("api-key", os.Getenv("TRAINPLAN_AUTH_API_KEY"), "ingest API key (default $TRAINPLAN_AUTH_API_KEY)")
	dryRun := flag.Bool("dry-run", false, "walk and hash files but don't send to server")
	list := flag.Bool("list", false, "print previously uploaded files and exit")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("trainplan-upload", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Open state database
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Error("failed to get home directory", "error", err)
		os.Exit(1)
	}
	state, err := upload.OpenStateDB(filepath.Join(homeDir, ".trainplan-upload"))
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *list {
		files, err := state.List(ctx)
		if err != nil {
			log.Error("listing uploads failed", "error", err)
			os.Exit(1)
		}
		for _, f := range files {
			fmt.Printf("%s  %-28s %s (%d bytes)\n", f.UploadedAt.Format("2006-01-02 15:04"), f.Endpoint, f.Path, f.Size)
		}
		return
	}

	if *syncPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: trainplan-upload -server <URL> -path <dir> [-api-key KEY] [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if info, err := os.Stat(*syncPath); err != nil || !info.IsDir() {
		log.Error("sync directory not found", "path", *syncPath)
		os.Exit(1)
	}
	if !*dryRun && (*serverURL == "" || *apiKey == "") {
		fmt.Fprintf(os.Stderr, "Error: -server and -api-key are required (or use -dry-run)\n")
		os.Exit(1)
	}

	if *dryRun {
		log.Info("DRY RUN mode: files will be hashed but not sent")
	}

	uploader := upload.New(upload.NewClient(*serverURL, *apiKey), state, *syncPath, *dryRun, log)
	stats, err := uploader.Run(ctx)
	if err != nil {
		log.Error("upload failed", "error", err)
		printStats(stats)
		os.Exit(1)
	}

	printStats(stats)
	log.Info("upload complete")
}

func printStats(stats *upload.Stats) {
	fmt.Println()
	fmt.Println("=== Upload Summary ===")
	fmt.Printf("  Files total:       %d\n", stats.FilesTotal)
	fmt.Printf("  Files uploaded:    %d\n", stats.FilesUploaded)
	fmt.Printf("  Files skipped:     %d (already uploaded)\n", stats.FilesSkipped)
	fmt.Printf("  Files errored:     %d\n", stats.FilesErrored)
	fmt.Println()
	fmt.Printf("  Programs imported: %d\n", stats.ProgramsImported)
	fmt.Printf("  Workouts sent:     %d\n", stats.WorkoutsSent)
	fmt.Printf("  Workouts stored:   %d\n", stats.WorkoutsInserted)
	fmt.Printf("  Sets stored:       %d\n", stats.SetsInserted)

	if len(stats.Warnings) > 0 {
		fmt.Printf("\n  Program warnings:\n")
		for _, w := range stats.Warnings {
			fmt.Printf("    - %s\n", w)
		}
	}
	fmt.Println()
}
