package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nhartman/ecosort/internal/auth"
	"github.com/nhartman/ecosort/internal/flow"
	"github.com/nhartman/ecosort/internal/middleware"
	"github.com/nhartman/ecosort/internal/model"
	"github.com/nhartman/ecosort/internal/store"
)

// sessionMaxAge matches the store-side session TTL.
const sessionMaxAge = 30 * 24 * 60 * 60

type AuthHandler struct {
	controller   *flow.Controller
	manager      *flow.Manager
	sessionStore *store.SessionStore
	logger       *slog.Logger
}

func NewAuthHandler(c *flow.Controller, m *flow.Manager, ss *store.SessionStore, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{controller: c, manager: m, sessionStore: ss, logger: logger}
}

type signupRequest struct {
	Role       string `json:"role"`
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Password   string `json:"password"`
	Confirm    string `json:"confirm"`
	StaffCode  string `json:"staff_code"`
}

type loginRequest struct {
	Role       string `json:"role"`
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type sessionResponse struct {
	Step       flow.Step  `json:"step"`
	Role       model.Role `json:"role"`
	Identifier string     `json:"identifier"`
}

func parseRole(s string) (model.Role, bool) {
	switch model.Role(strings.ToLower(strings.TrimSpace(s))) {
	case model.RoleStaff:
		return model.RoleStaff, true
	case model.RoleUser, "":
		return model.RoleUser, true
	}
	return "", false
}

// issueSession persists a session, registers the flow session under its
// token, and sets the cookie.
func (h *AuthHandler) issueSession(w http.ResponseWriter, r *http.Request, s *flow.Session) error {
	sess, err := h.sessionStore.Create(s.Role, s.PrincipalID)
	if err != nil {
		return err
	}
	h.manager.Put(sess.Token, s)

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	return nil
}

func authErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrEmptyField),
		errors.Is(err, auth.ErrPasswordMismatch):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrBadStaffCode):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, auth.ErrDuplicateIdentifier):
		return http.StatusConflict, err.Error()
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	role, ok := parseRole(req.Role)
	if !ok {
		writeError(w, http.StatusBadRequest, "role must be user or staff")
		return
	}

	s := flow.NewSession()
	if err := h.controller.SelectRole(s, role); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.controller.Signup(s, req.Identifier, req.Name, req.Password, req.Confirm, req.StaffCode); err != nil {
		status, msg := authErrorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("signup", "error", err)
		}
		writeError(w, status, msg)
		return
	}

	if err := h.issueSession(w, r, s); err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{Step: s.Step, Role: s.Role, Identifier: s.Identifier})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	role, ok := parseRole(req.Role)
	if !ok {
		writeError(w, http.StatusBadRequest, "role must be user or staff")
		return
	}

	s := flow.NewSession()
	if err := h.controller.SelectRole(s, role); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.controller.Login(s, req.Identifier, req.Password); err != nil {
		status, msg := authErrorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("login", "error", err)
		}
		writeError(w, status, msg)
		return
	}

	if err := h.issueSession(w, r, s); err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Step: s.Step, Role: s.Role, Identifier: s.Identifier})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if sess, err := h.sessionStore.GetByToken(cookie.Value); err == nil && sess != nil {
			h.sessionStore.Delete(sess.ID)
		}
		h.manager.Delete(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	w.WriteHeader(http.StatusNoContent)
}
