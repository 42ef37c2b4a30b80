package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/claude/trainplan/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) activeProgram(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	rec, err := h.ds.GetActiveProgram(ctx, UserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, storage.ErrNoActiveProgram
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) recentWorkouts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)
	end := time.Now()
	start := end.AddDate(0, 0, -14)

	logs, err := h.ds.QueryWorkoutLogs(ctx, start, end, uid, "")
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(logs)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
