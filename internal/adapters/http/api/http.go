// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/okian/swatrank/internal/domain/model"
	"github.com/okian/swatrank/internal/domain/scoring"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatsProvider
	ParticipantDependencies
	ResultDependencies
	StandingsDependencies
}

// StandingsDependencies defines the read side used by standings and exports.
type StandingsDependencies interface {
	Stages(mode string) ([]model.Stage, error)
	Evaluate(ctx context.Context, mode string) (scoring.Result, error)
	StageStandings(ctx context.Context, mode, stageID string) (model.Stage, []scoring.StageRow, error)
	Precision() int
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	participantsHandler *ParticipantsHandler
	resultsHandler      *ResultsHandler
	standingsHandler    *StandingsHandler
	exportHandler       *ExportHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(deps),
		participantsHandler: NewParticipantsHandler(deps),
		resultsHandler:      NewResultsHandler(deps),
		standingsHandler:    NewStandingsHandler(deps),
		exportHandler:       NewExportHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /modes/{mode}/stages", MetricsMiddleware(s.standingsHandler.HandleGetStages, "stages"))
	mux.HandleFunc("GET /modes/{mode}/overall", MetricsMiddleware(s.standingsHandler.HandleGetOverall, "overall"))
	mux.HandleFunc("GET /modes/{mode}/stages/{stage}/ranking", MetricsMiddleware(s.standingsHandler.HandleGetStageRanking, "stage_ranking"))

	mux.HandleFunc("GET /modes/{mode}/participants", MetricsMiddleware(s.participantsHandler.HandleList, "participants"))
	mux.HandleFunc("POST /modes/{mode}/participants", MetricsMiddleware(s.participantsHandler.HandleCreate, "participants"))
	mux.HandleFunc("PATCH /modes/{mode}/participants/{id}", MetricsMiddleware(s.participantsHandler.HandleRename, "participant"))
	mux.HandleFunc("DELETE /modes/{mode}/participants/{id}", MetricsMiddleware(s.participantsHandler.HandleDelete, "participant"))

	mux.HandleFunc("GET /modes/{mode}/results", MetricsMiddleware(s.resultsHandler.HandleList, "results"))
	mux.HandleFunc("PUT /modes/{mode}/results", MetricsMiddleware(s.resultsHandler.HandleSet, "results"))
	mux.HandleFunc("DELETE /modes/{mode}/results", MetricsMiddleware(s.resultsHandler.HandleClear, "results"))

	mux.HandleFunc("GET /modes/{mode}/export.csv", MetricsMiddleware(s.exportHandler.HandleOverall, "export"))
	mux.HandleFunc("GET /modes/{mode}/stages/{stage}/export.csv", MetricsMiddleware(s.exportHandler.HandleStage, "stage_export"))
}

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, key string) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}
