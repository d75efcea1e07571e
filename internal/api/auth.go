package api

import (
	"net/http"
	"strings"

	"tourney/internal/auth"
)

// getPrincipal extracts the caller's role.
//   - If Authorization: Bearer is present, uses the configured verifier (dev/hmac).
//   - Else in dev mode falls back to the X-Role header, defaulting to admin.
//   - Otherwise the caller is an anonymous viewer.
func (s *Server) getPrincipal(r *http.Request) auth.Principal {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") && s.Auth != nil {
		tok := strings.TrimSpace(authz[len("Bearer "):])
		if pr, err := s.Auth.Verify(tok); err == nil {
			return pr
		}
		return auth.Principal{Role: auth.RoleViewer}
	}
	if s.Auth == nil || s.Auth.Mode == auth.ModeDev {
		role := strings.ToLower(r.Header.Get("X-Role"))
		if role == "" {
			role = auth.RoleAdmin
		}
		return auth.Principal{Role: role}
	}
	return auth.Principal{Role: auth.RoleViewer}
}

// requireAdmin writes a 403 problem and returns false for non-admins.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if s.getPrincipal(r).IsAdmin() {
		return true
	}
	writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
	return false
}
