package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/nhartman/ecosort/internal/auth"
	"github.com/nhartman/ecosort/internal/model"
	"github.com/nhartman/ecosort/internal/store"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "ecosort_session"

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
}

// RequireAuth validates the session cookie, resolves the principal, and
// populates AuthContext for downstream handlers.
func RequireAuth(sessions *store.SessionStore, users *store.UserStore, staff *store.StaffStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			sess, err := sessions.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w)
				return
			}

			var identifier string
			switch sess.Role {
			case model.RoleStaff:
				st, err := staff.GetByID(sess.PrincipalID)
				if err != nil || st == nil {
					unauthorized(w)
					return
				}
				identifier = st.StaffID
			default:
				u, err := users.GetByID(sess.PrincipalID)
				if err != nil || u == nil {
					unauthorized(w)
					return
				}
				identifier = u.Email
			}

			ac := auth.AuthContext{
				PrincipalID: sess.PrincipalID,
				Identifier:  identifier,
				Role:        sess.Role,
				SessionID:   sess.ID,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireStaff checks that the authenticated principal is staff.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsStaff(r.Context()) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": "staff role required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
