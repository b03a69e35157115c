package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/swatrank/internal/domain/model"
	"github.com/okian/swatrank/internal/domain/types"
)

// ParticipantDependencies defines the interface for roster operations.
type ParticipantDependencies interface {
	Participants(ctx context.Context, mode string) ([]model.Participant, error)
	AddParticipant(ctx context.Context, mode, name string) (model.Participant, error)
	RenameParticipant(ctx context.Context, mode, id, name string) (model.Participant, error)
	RemoveParticipant(ctx context.Context, mode, id string) error
}

// ParticipantsHandler handles roster requests.
type ParticipantsHandler struct {
	deps ParticipantDependencies
}

// NewParticipantsHandler creates a new participants handler.
func NewParticipantsHandler(deps ParticipantDependencies) *ParticipantsHandler {
	return &ParticipantsHandler{deps: deps}
}

// participantRequest is the body of POST and PATCH participant requests.
type participantRequest struct {
	Name string `json:"name"`
}

func (p participantRequest) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrBadRequest
	}
	return nil
}

// HandleList handles GET /modes/{mode}/participants requests.
func (h *ParticipantsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_participants"
	participants, err := h.deps.Participants(r.Context(), r.PathValue("mode"))
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromParticipants(participants))
}

// HandleCreate handles POST /modes/{mode}/participants requests.
func (h *ParticipantsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_participant"
	var req participantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_name", NewKind(op, err))
		return
	}
	p, err := h.deps.AddParticipant(r.Context(), r.PathValue("mode"), req.Name)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, types.FromParticipant(p))
}

// HandleRename handles PATCH /modes/{mode}/participants/{id} requests.
func (h *ParticipantsHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	const op = "api.rename_participant"
	var req participantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_name", NewKind(op, err))
		return
	}
	p, err := h.deps.RenameParticipant(r.Context(), r.PathValue("mode"), r.PathValue("id"), req.Name)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromParticipant(p))
}

// HandleDelete handles DELETE /modes/{mode}/participants/{id} requests.
func (h *ParticipantsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_participant"
	if err := h.deps.RemoveParticipant(r.Context(), r.PathValue("mode"), r.PathValue("id")); err != nil {
		fail(w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
