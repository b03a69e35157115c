package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/swatrank/internal/domain/model"
	"github.com/okian/swatrank/internal/domain/types"
)

// ResultDependencies defines the interface for measurement operations.
type ResultDependencies interface {
	Measurements(ctx context.Context, mode string) ([]model.Measurement, error)
	SetMeasurement(ctx context.Context, mode, participantID, stageID string, value *float64) error
	ClearMeasurements(ctx context.Context, mode, participantID string) error
}

// ResultsHandler handles measurement requests.
type ResultsHandler struct {
	deps ResultDependencies
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps ResultDependencies) *ResultsHandler {
	return &ResultsHandler{deps: deps}
}

// resultRequest is the body of PUT /modes/{mode}/results. A null value
// clears the measurement.
type resultRequest struct {
	ParticipantID string   `json:"participant_id"`
	StageID       string   `json:"stage_id"`
	Value         *float64 `json:"value"`
}

func (e resultRequest) validate() error {
	switch {
	case strings.TrimSpace(e.ParticipantID) == "":
		return WrapKind("api.validate_result", ErrBadRequest, errMissing("participant_id"))
	case strings.TrimSpace(e.StageID) == "":
		return WrapKind("api.validate_result", ErrBadRequest, errMissing("stage_id"))
	}
	return nil
}

type errMissing string

func (e errMissing) Error() string { return "missing " + string(e) }

// HandleList handles GET /modes/{mode}/results requests.
func (h *ResultsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_results"
	ms, err := h.deps.Measurements(r.Context(), r.PathValue("mode"))
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromMeasurements(ms))
}

// HandleSet handles PUT /modes/{mode}/results requests.
func (h *ResultsHandler) HandleSet(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_result"
	var req resultRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		fail(w, err)
		return
	}
	if err := h.deps.SetMeasurement(r.Context(), r.PathValue("mode"), req.ParticipantID, req.StageID, req.Value); err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.Measurement{
		ParticipantID: req.ParticipantID,
		StageID:       req.StageID,
		Value:         req.Value,
	})
}

// HandleClear handles DELETE /modes/{mode}/results?participant_id= requests.
func (h *ResultsHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	const op = "api.clear_results"
	participantID := strings.TrimSpace(r.URL.Query().Get("participant_id"))
	if participantID == "" {
		fail(w, WrapKind(op, ErrBadRequest, errMissing("participant_id")))
		return
	}
	if err := h.deps.ClearMeasurements(r.Context(), r.PathValue("mode"), participantID); err != nil {
		fail(w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
