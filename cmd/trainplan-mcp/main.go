// trainplan-mcp serves the TrainPlan MCP tools over stdio, reading data from
// a running TrainPlan server's REST API.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	trainmcp "github.com/claude/trainplan/internal/mcp"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	_ = godotenv.Load()

	serverURL := flag.String("server", os.Getenv("TRAINPLAN_SERVER_URL"), "TrainPlan server URL (default $TRAINPLAN_SERVER_URL)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("trainplan-mcp", Version)
		return
	}

	// stdout carries the protocol, so logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: trainplan-mcp -server <URL>\n")
		os.Exit(1)
	}

	s := trainmcp.New(trainmcp.NewHTTPClient(*serverURL), Version, log)
	log.Info("serving MCP over stdio", "server", *serverURL)
	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
