package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/swatrank/internal/export"
)

// ExportHandler serves CSV downloads.
type ExportHandler struct {
	deps StandingsDependencies
	now  func() time.Time
}

// NewExportHandler creates a new export handler.
func NewExportHandler(deps StandingsDependencies) *ExportHandler {
	return &ExportHandler{deps: deps, now: time.Now}
}

func (h *ExportHandler) options(r *http.Request) ([]export.Option, error) {
	masked, err := queryBool(r, "masked")
	if err != nil {
		return nil, err
	}
	return []export.Option{
		export.WithPrecision(h.deps.Precision()),
		export.WithMaskedNames(masked),
	}, nil
}

// HandleOverall handles GET /modes/{mode}/export.csv requests.
func (h *ExportHandler) HandleOverall(w http.ResponseWriter, r *http.Request) {
	const op = "api.export_overall"
	opts, err := h.options(r)
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
	var buf bytes.Buffer
	if err := export.WriteOverall(&buf, res, opts...); err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeCSV(w, export.OverallFileName(mode, h.now()), buf.Bytes())
}

// HandleStage handles GET /modes/{mode}/stages/{stage}/export.csv requests.
func (h *ExportHandler) HandleStage(w http.ResponseWriter, r *http.Request) {
	const op = "api.export_stage"
	opts, err := h.options(r)
	if err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	mode, stageID := r.PathValue("mode"), r.PathValue("stage")
	res, err := h.deps.Evaluate(r.Context(), mode)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	var buf bytes.Buffer
	if err := export.WriteStage(&buf, res, stageID, opts...); err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeCSV(w, export.StageFileName(mode, stageID), buf.Bytes())
}

// writeCSV sends a rendered file as an attachment.
func writeCSV(w http.ResponseWriter, filename string, body []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
