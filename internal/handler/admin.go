package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nhartman/ecosort/internal/flow"
	"github.com/nhartman/ecosort/internal/model"
)

type AdminHandler struct {
	controller *flow.Controller
	manager    *flow.Manager
	logger     *slog.Logger
}

func NewAdminHandler(c *flow.Controller, m *flow.Manager, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{controller: c, manager: m, logger: logger}
}

func (h *AdminHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	s, ok := session(h.manager, r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	rewards, err := h.controller.PendingRewards(s)
	if err != nil {
		if errors.Is(err, flow.ErrNotStaff) {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		h.logger.Error("list pending rewards", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list pending rewards")
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	s, ok := session(h.manager, r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	approved, err := h.controller.Approve(s, id)
	if err != nil {
		if errors.Is(err, flow.ErrNotStaff) {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		h.logger.Error("approve reward", "error", err, "reward_id", id)
		writeError(w, http.StatusInternalServerError, "failed to approve reward")
		return
	}
	if !approved {
		// Already approved or earned; nothing to do.
		writeError(w, http.StatusConflict, "reward is not pending")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"approved": true, "reward_id": id})
}
