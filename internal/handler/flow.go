package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/nhartman/ecosort/internal/auth"
	"github.com/nhartman/ecosort/internal/classify"
	"github.com/nhartman/ecosort/internal/flow"
	"github.com/nhartman/ecosort/internal/middleware"
	"github.com/nhartman/ecosort/internal/model"
	"github.com/nhartman/ecosort/internal/store"
)

// maxUploadBytes caps a single image upload.
const maxUploadBytes = 10 << 20

type FlowHandler struct {
	controller   *flow.Controller
	manager      *flow.Manager
	stationStore *store.StationStore
	uploadDir    string
	logger       *slog.Logger
}

func NewFlowHandler(c *flow.Controller, m *flow.Manager, ss *store.StationStore, uploadDir string, logger *slog.Logger) *FlowHandler {
	return &FlowHandler{controller: c, manager: m, stationStore: ss, uploadDir: uploadDir, logger: logger}
}

// session resolves the caller's flow session from the auth context and
// session cookie. RequireAuth runs first, so both are present.
func session(m *flow.Manager, r *http.Request) (*flow.Session, bool) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		return nil, false
	}
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	return m.Get(cookie.Value, ac.Role, ac.PrincipalID, ac.Identifier), true
}

type stateResponse struct {
	Step       flow.Step         `json:"step"`
	Role       model.Role        `json:"role"`
	Identifier string            `json:"identifier"`
	Category   classify.Category `json:"category,omitempty"`
	Prediction *model.Prediction `json:"prediction,omitempty"`
	RewardID   int64             `json:"reward_id,omitempty"`
}

func stateOf(s *flow.Session) stateResponse {
	return stateResponse{
		Step:       s.Step,
		Role:       s.Role,
		Identifier: s.Identifier,
		Category:   s.Category,
		Prediction: s.LastPrediction,
		RewardID:   s.RewardID,
	}
}

// State reports the session's current position in the workflow.
func (h *FlowHandler) State(w http.ResponseWriter, r *http.Request) {
	s, ok := session(h.manager, r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, stateOf(s))
}

func (h *FlowHandler) SelectCategory(w http.ResponseWriter, r *http.Request) {
	s, ok := session(h.manager, r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	cat, err := classify.ParseCategory(req.Category)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.controller.SelectCategory(s, cat); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, stateOf(s))
}

// saveUpload writes the image to the upload directory under a generated
// name, keeping the original extension.
func (h *FlowHandler) saveUpload(filename string, data []byte) error {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return err
	}
	name := uuid.NewString() + filepath.Ext(filename)
	return os.WriteFile(filepath.Join(h.uploadDir, name), data, 0o644)
}

func (h *FlowHandler) Upload(w http.ResponseWriter, r *http.Request) {
	s, ok := session(h.manager, r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read image")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "image file is empty")
		return
	}

	pred, reward, err := h.controller.Upload(r.Context(), s, data)
	switch {
	case err == nil:
	case errors.Is(err, classify.ErrModelUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case errors.Is(err, flow.ErrInvalidStep):
		writeError(w, http.StatusConflict, err.Error())
		return
	default:
		h.logger.Error("upload", "error", err)
		writeError(w, http.StatusInternalServerError, "classification failed")
		return
	}

	if err := h.saveUpload(header.Filename, data); err != nil {
		// The submission already succeeded; losing the archived copy is
		// not worth failing the request over.
		h.logger.Error("archive upload", "error", err)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"prediction": pred,
		"reward":     reward,
		"step":       s.Step,
	})
}

func (h *FlowHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.stationStore.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list stations")
		return
	}
	if stations == nil {
		stations = []model.Station{}
	}
	writeJSON(w, http.StatusOK, stations)
}

func (h *FlowHandler) ConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	s, ok := session(h.manager, r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		StationID int64 `json:"station_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	reward, err := h.controller.ConfirmDelivery(s, req.StationID)
	switch {
	case err == nil:
	case errors.Is(err, flow.ErrNotApproved):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, flow.ErrUnknownStation):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, flow.ErrInvalidStep):
		writeError(w, http.StatusConflict, err.Error())
		return
	default:
		h.logger.Error("confirm delivery", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reward": reward,
		"step":   s.Step,
	})
}

func (h *FlowHandler) ListRewards(w http.ResponseWriter, r *http.Request) {
	s, ok := session(h.manager, r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	rewards, total, err := h.controller.Rewards(s)
	if err != nil {
		if errors.Is(err, flow.ErrNotUser) {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		h.logger.Error("list rewards", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list rewards")
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rewards":      rewards,
		"total_points": total,
	})
}
