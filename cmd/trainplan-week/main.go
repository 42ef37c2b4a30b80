// trainplan-week prints the resolved prescription of a program document for
// one week without a server or database.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/claude/trainplan/internal/ingest/program"
	"github.com/claude/trainplan/internal/prescription"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	programPath := flag.String("program", "", "path to a program JSON document")
	week := flag.Int("week", 1, "week number (1-based)")
	day := flag.String("day", "", "only show this day")
	asJSON := flag.Bool("json", false, "print the week as JSON")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("trainplan-week", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if *programPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: trainplan-week -program <file> [-week N] [-day monday] [-json]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	data, err := os.ReadFile(*programPath)
	if err != nil {
		log.Error("failed to read program", "path", *programPath, "error", err)
		os.Exit(1)
	}

	prog, issues, err := program.Parse(data)
	if err != nil {
		log.Error("program rejected", "error", err)
		os.Exit(1)
	}
	for _, issue := range issues {
		log.Warn("program lint", "issue", issue.String())
	}

	view, err := prescription.ViewWeek(prog, *week, *day)
	if err != nil {
		log.Error("resolve failed", "week", *week, "error", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(view); err != nil {
			log.Error("encoding failed", "error", err)
			os.Exit(1)
		}
		return
	}

	printWeek(view)
}

func printWeek(view *prescription.WeekView) {
	fmt.Printf("%s: week %d of %d\n", view.ProgramName, view.Week, view.DurationWeeks)
	if len(view.Days) == 0 {
		fmt.Println("  (nothing planned)")
		return
	}
	for _, d := range view.Days {
		fmt.Printf("\n%s\n", strings.ToUpper(d.Day))
		for _, item := range d.Items {
			line := fmt.Sprintf("  %-24s %s", item.Name, item.Target)
			if item.Load != "" {
				line += " @ " + item.Load
			}
			if item.RestS > 0 {
				line += fmt.Sprintf("  (rest %ds)", item.RestS)
			}
			if !item.Known {
				line += "  [not in library]"
			}
			fmt.Println(line)
		}
	}
}
