package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/claude/trainplan/internal/ingest/program"
	"github.com/claude/trainplan/internal/ingest/workout"
	trainmcp "github.com/claude/trainplan/internal/mcp"
	"github.com/claude/trainplan/internal/models"
	"github.com/claude/trainplan/internal/session"
	"github.com/claude/trainplan/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Store is the persistence the HTTP handlers need. *storage.DB satisfies it.
type Store interface {
	program.Store
	workout.Store
	ClearActiveProgram(ctx context.Context, userID int) (bool, error)
	ListPrograms(ctx context.Context, userID int) ([]storage.ProgramSummary, error)
	QueryWorkoutLogs(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.WorkoutLog, error)
	GetWorkoutLog(ctx context.Context, id uuid.UUID, userID int) (*models.WorkoutLog, error)
	DeleteWorkoutLogs(ctx context.Context, userID int) (int64, error)
	GetExerciseHistory(ctx context.Context, exercise string, start, end time.Time, userID int) ([]storage.ExerciseSession, error)
	GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]storage.TrainingSummaryPeriod, error)
	GetDataStats(ctx context.Context, userID int) (*storage.DataStats, error)
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	QueryImportLogs(ctx context.Context, userID, limit int) ([]storage.ImportLog, error)
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
}

var _ Store = (*storage.DB)(nil)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db       Store
	programs *program.Provider
	workouts *workout.Provider
	log      *slog.Logger
	apiKey   string
	router   chi.Router
	whois    WhoIsClient

	// one running session per user
	sessMu   sync.Mutex
	sessions map[int]*session.Session
}

// New creates a new Server with all routes configured.
func New(db Store, programs *program.Provider, workouts *workout.Provider, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		db:       db,
		programs: programs,
		workouts: workouts,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
		sessions: make(map[int]*session.Session),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale switches identity resolution from the dev user to Tailscale
// WhoIs lookups. Must be called before serving.
func (s *Server) SetTailscale(lc WhoIsClient) {
	s.whois = lc
}

// SetMCP mounts the MCP streamable HTTP endpoint at /mcp. Tool calls run as
// the user resolved by the identity middleware.
func (s *Server) SetMCP(srv *mcpserver.MCPServer) {
	h := mcpserver.NewStreamableHTTPServer(srv,
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return trainmcp.WithUserID(ctx, userIDFromContext(r))
		}),
	)
	s.router.With(s.identity).Handle("/mcp", h)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Ingest endpoints (API key required)
	s.router.Route("/api/v1/ingest", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Use(s.identity)
		r.Post("/program", s.handleIngestProgram)
		r.Post("/workouts", s.handleIngestWorkouts)
	})

	// Dashboard API endpoints (no API key; tsnet handles access)
	s.router.Group(func(r chi.Router) {
		r.Use(s.identity)

		r.Get("/api/v1/me", s.handleMe)

		r.Get("/api/v1/program", s.handleGetProgram)
		r.Post("/api/v1/program", s.handleIngestProgram)
		r.Delete("/api/v1/program", s.handleClearProgram)
		r.Get("/api/v1/program/weeks/{week}", s.handleGetWeek)
		r.Get("/api/v1/program/weeks/{week}/days/{day}", s.handleGetWeek)
		r.Get("/api/v1/programs", s.handleListPrograms)

		r.Get("/api/v1/workouts", s.handleQueryWorkouts)
		r.Delete("/api/v1/workouts", s.handleDeleteWorkouts)
		r.Get("/api/v1/workouts/{id}", s.handleGetWorkout)

		r.Get("/api/v1/history/exercise", s.handleExerciseHistory)
		r.Get("/api/v1/history/summary", s.handleTrainingSummary)

		r.Get("/api/v1/stats", s.handleStats)
		r.Get("/api/v1/import-logs", s.handleImportLogs)

		r.Post("/api/v1/session", s.handleStartSession)
		r.Get("/api/v1/session", s.handleGetSession)
		r.Get("/api/v1/session/events", s.handleSessionEvents)
		r.Post("/api/v1/session/{action}", s.handleSessionAction)
	})
}

// identity resolves the caller via Tailscale when configured, otherwise as
// the local dev user.
func (s *Server) identity(next http.Handler) http.Handler {
	dev := DevIdentity(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.whois == nil {
			dev.ServeHTTP(w, r)
			return
		}
		TailscaleIdentity(s.whois, s.db, s.log)(next).ServeHTTP(w, r)
	})
}
