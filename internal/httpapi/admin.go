package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/BrandonDHaskell/kragdb/internal/kragdb/pass"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/types"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/user"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, actorFrom(r))
}

// ── Users ────────────────────────────────────────────────────────────────────

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req types.CreateUserRequest
	if !readJSON(w, r, &req) {
		return
	}
	u, err := s.adminService.CreateUser(r.Context(), actorFrom(r), req)
	if err != nil {
		writeServiceError(w, r, "create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// handleQueryUsers filters on the username and email query parameters.
func (s *Server) handleQueryUsers(w http.ResponseWriter, r *http.Request) {
	var q user.QueryUser
	if v := strings.TrimSpace(r.URL.Query().Get("username")); v != "" {
		q.Username = &v
	}
	if v := r.URL.Query().Get("email"); v != "" {
		email, err := user.ParseEmail(v)
		if err != nil {
			writeServiceError(w, r, "query users", err)
			return
		}
		q.Email = &email
	}

	us, err := s.adminService.QueryUsers(r.Context(), actorFrom(r), q)
	if err != nil {
		writeServiceError(w, r, "query users", err)
		return
	}
	if us == nil {
		us = []user.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": us})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	u, err := s.adminService.GetUser(r.Context(), actorFrom(r), id)
	if err != nil {
		writeServiceError(w, r, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	var req types.UpdateUserRequest
	if !readJSON(w, r, &req) {
		return
	}
	u, err := s.adminService.UpdateUser(r.Context(), actorFrom(r), id, req)
	if err != nil {
		writeServiceError(w, r, "update user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	n, err := s.adminService.DeleteUser(r.Context(), actorFrom(r), id)
	if err != nil {
		writeServiceError(w, r, "delete user", err)
		return
	}
	writeJSON(w, http.StatusOK, types.CountResponse{OK: true, Count: n})
}

// ── Passes ───────────────────────────────────────────────────────────────────

func (s *Server) handleIssuePass(w http.ResponseWriter, r *http.Request) {
	var req types.IssuePassRequest
	if !readJSON(w, r, &req) {
		return
	}
	p, err := s.adminService.IssuePass(r.Context(), actorFrom(r), req)
	if err != nil {
		writeServiceError(w, r, "issue pass", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleQueryPasses(w http.ResponseWriter, r *http.Request) {
	var uid *user.ID
	if v := r.URL.Query().Get("user_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be a positive integer")
			return
		}
		id := user.ID(n)
		uid = &id
	}

	ps, err := s.adminService.QueryPasses(r.Context(), actorFrom(r), uid)
	if err != nil {
		writeServiceError(w, r, "query passes", err)
		return
	}
	if ps == nil {
		ps = []pass.UserPass{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"passes": ps})
}

func (s *Server) handleGetPass(w http.ResponseWriter, r *http.Request) {
	id, ok := passIDParam(w, r)
	if !ok {
		return
	}
	p, err := s.adminService.GetPass(r.Context(), actorFrom(r), id)
	if err != nil {
		writeServiceError(w, r, "get pass", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePass(w http.ResponseWriter, r *http.Request) {
	id, ok := passIDParam(w, r)
	if !ok {
		return
	}
	n, err := s.adminService.DeletePass(r.Context(), actorFrom(r), id)
	if err != nil {
		writeServiceError(w, r, "delete pass", err)
		return
	}
	writeJSON(w, http.StatusOK, types.CountResponse{OK: true, Count: n})
}

func (s *Server) handleAddSessions(w http.ResponseWriter, r *http.Request) {
	id, ok := passIDParam(w, r)
	if !ok {
		return
	}
	var req types.AddSessionsRequest
	if !readJSON(w, r, &req) {
		return
	}
	p, err := s.adminService.AddSessions(r.Context(), actorFrom(r), id, req.Sessions)
	if err != nil {
		writeServiceError(w, r, "add sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleExtendTimePass(w http.ResponseWriter, r *http.Request) {
	id, ok := passIDParam(w, r)
	if !ok {
		return
	}
	var req types.ExtendTimeRequest
	if !readJSON(w, r, &req) {
		return
	}
	p, err := s.adminService.ExtendTimePass(r.Context(), actorFrom(r), id, req)
	if err != nil {
		writeServiceError(w, r, "extend time pass", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func userIDParam(w http.ResponseWriter, r *http.Request) (user.ID, bool) {
	n, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 32)
	if err != nil || n <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_user_id", "user id must be a positive integer")
		return 0, false
	}
	return user.ID(n), true
}

func passIDParam(w http.ResponseWriter, r *http.Request) (pass.ID, bool) {
	n, err := strconv.ParseInt(chi.URLParam(r, "pass_id"), 10, 64)
	if err != nil || n <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_pass_id", "pass id must be a positive integer")
		return 0, false
	}
	return pass.ID(n), true
}
