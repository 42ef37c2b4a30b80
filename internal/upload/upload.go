// Package upload pushes program and workout documents from a local directory
// to the TrainPlan server, skipping files that were already sent.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	ProgramsImported int
	WorkoutsSent     int
	WorkoutsInserted int
	SetsInserted     int64
	Warnings         []string
}

// Uploader walks a sync directory holding programs/*.json and
// workouts/*.json and POSTs new or changed files to the server.
type Uploader struct {
	client *Client
	state  *StateDB
	root   string
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader.
func New(client *Client, state *StateDB, root string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		state:  state,
		root:   root,
		dryRun: dryRun,
		log:    log,
	}
}

// Run executes the upload pipeline: at most one program, then workouts.
func (u *Uploader) Run(ctx context.Context) (*Stats, error) {
	programDir := filepath.Join(u.root, "programs")
	if _, err := os.Stat(programDir); err == nil {
		if err := u.processProgram(ctx, programDir); err != nil {
			return &u.stats, fmt.Errorf("processing programs: %w", err)
		}
	}

	workoutDir := filepath.Join(u.root, "workouts")
	if _, err := os.Stat(workoutDir); err == nil {
		if err := u.processWorkouts(ctx, workoutDir); err != nil {
			return &u.stats, fmt.Errorf("processing workouts: %w", err)
		}
	}

	return &u.stats, nil
}

// fileInfo tracks a file's metadata for state DB operations.
type fileInfo struct {
	path    string
	relPath string
	size    int64
	hash    string
}

// pending stats and hashes a file and reports whether it still needs sending.
func (u *Uploader) pending(ctx context.Context, path string) (*fileInfo, bool) {
	u.stats.FilesTotal++

	relPath, _ := filepath.Rel(u.root, path)
	info, err := os.Stat(path)
	if err != nil {
		u.log.Warn("stat failed", "file", path, "error", err)
		u.stats.FilesErrored++
		return nil, false
	}

	hash, err := HashFile(path)
	if err != nil {
		u.log.Warn("hash failed", "file", path, "error", err)
		u.stats.FilesErrored++
		return nil, false
	}

	uploaded, err := u.state.IsUploaded(ctx, relPath, info.Size(), hash)
	if err != nil {
		u.log.Warn("state check failed", "file", path, "error", err)
		u.stats.FilesErrored++
		return nil, false
	}
	if uploaded {
		u.stats.FilesSkipped++
		return nil, false
	}
	return &fileInfo{path: path, relPath: relPath, size: info.Size(), hash: hash}, true
}

// send uploads one file. Rejected documents are logged and counted but do
// not stop the run; transport failures do.
func (u *Uploader) send(ctx context.Context, endpoint string, fi *fileInfo) (bool, error) {
	data, err := os.ReadFile(fi.path)
	if err != nil {
		u.log.Warn("read failed", "file", fi.path, "error", err)
		u.stats.FilesErrored++
		return false, nil
	}

	if u.dryRun {
		u.log.Info("dry-run: would send", "file", fi.relPath, "endpoint", endpoint, "bytes", len(data))
		u.stats.FilesUploaded++
		return true, nil
	}

	result, err := u.client.Send(ctx, endpoint, data)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Permanent() {
			u.log.Warn("server rejected file", "file", fi.relPath, "status", se.Code, "error", se.Body)
			u.stats.FilesErrored++
			return false, nil
		}
		return false, fmt.Errorf("sending %s: %w", fi.relPath, err)
	}

	u.stats.WorkoutsSent += result.WorkoutsReceived
	u.stats.WorkoutsInserted += result.WorkoutsInserted
	u.stats.SetsInserted += result.SetsInserted
	u.stats.Warnings = append(u.stats.Warnings, result.Warnings...)

	if err := u.state.MarkUploaded(ctx, fi.relPath, endpoint, fi.size, fi.hash); err != nil {
		u.log.Warn("failed to mark uploaded", "file", fi.relPath, "error", err)
	}
	u.stats.FilesUploaded++
	u.log.Info("uploaded", "file", fi.relPath, "message", result.Message)
	return true, nil
}

// processProgram imports the most recently modified program file. Older
// files are ignored since only one program can be active.
func (u *Uploader) processProgram(ctx context.Context, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return err
	}
	newest := newestFile(files)
	if newest == "" {
		return nil
	}
	if len(files) > 1 {
		u.log.Info("importing newest program only", "file", filepath.Base(newest), "ignored", len(files)-1)
	}

	fi, ok := u.pending(ctx, newest)
	if !ok {
		return nil
	}
	sent, err := u.send(ctx, ProgramPath, fi)
	if err != nil {
		return err
	}
	if sent {
		u.stats.ProgramsImported++
	}
	return nil
}

// processWorkouts uploads every new or changed workout file in name order.
func (u *Uploader) processWorkouts(ctx context.Context, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, f := range files {
		fi, ok := u.pending(ctx, f)
		if !ok {
			continue
		}
		if _, err := u.send(ctx, WorkoutsPath, fi); err != nil {
			return err
		}
	}
	return nil
}

// newestFile returns the path with the latest modification time. Ties go
// to the lexically greatest name.
func newestFile(paths []string) string {
	var newest string
	var newestInfo os.FileInfo
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if newestInfo == nil ||
			info.ModTime().After(newestInfo.ModTime()) ||
			(info.ModTime().Equal(newestInfo.ModTime()) && p > newest) {
			newest, newestInfo = p, info
		}
	}
	return newest
}
