package api

import (
	"net/http"

	"github.com/okian/swatrank/internal/domain/model"
	"github.com/okian/swatrank/internal/domain/types"
	"github.com/okian/swatrank/internal/export"
)

// StandingsHandler serves computed standings.
type StandingsHandler struct {
	deps StandingsDependencies
}

// NewStandingsHandler creates a new standings handler.
func NewStandingsHandler(deps StandingsDependencies) *StandingsHandler {
	return &StandingsHandler{deps: deps}
}

// maskedNames resolves the optional ?masked= switch.
func maskedNames(r *http.Request) (types.NameFunc, error) {
	masked, err := queryBool(r, "masked")
	if err != nil {
		return nil, err
	}
	if masked {
		return types.NameFunc(func(p model.Participant) string { return export.MaskName(p.Name) }), nil
	}
	return types.PlainName, nil
}

// HandleGetStages handles GET /modes/{mode}/stages requests.
func (h *StandingsHandler) HandleGetStages(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_stages"
	stages, err := h.deps.Stages(r.PathValue("mode"))
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromStages(stages))
}

// HandleGetOverall handles GET /modes/{mode}/overall requests.
func (h *StandingsHandler) HandleGetOverall(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_overall"
	name, err := maskedNames(r)
	if err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	mode := r.PathValue("mode")
	res, err := h.deps.Evaluate(r.Context(), mode)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromResult(mode, res, h.deps.Precision(), name))
}

// HandleGetStageRanking handles GET /modes/{mode}/stages/{stage}/ranking requests.
func (h *StandingsHandler) HandleGetStageRanking(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_stage_ranking"
	name, err := maskedNames(r)
	if err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	mode := r.PathValue("mode")
	stage, rows, err := h.deps.StageStandings(r.Context(), mode, r.PathValue("stage"))
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromStageRows(mode, stage, rows, name))
}
