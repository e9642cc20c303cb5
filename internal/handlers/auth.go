package handlers

import (
	"net/http"

	"github.com/aayamfest/ambassador/backend/internal/models"
)

// AdminLogin handles POST /api/admin/login
func (s *Server) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decode(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	resp, err := s.Svc.LoginAdmin(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, resp)
}

// AmbassadorLogin handles POST /api/ambassador/login
func (s *Server) AmbassadorLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decode(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	resp, err := s.Svc.LoginAmbassador(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, resp)
}

// Register handles POST /api/ambassador/register
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decode(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	amb, err := s.Svc.Register(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, map[string]any{
		"message":    "Registration successful! Your application is pending admin approval.",
		"ambassador": amb,
	})
}

// Healthz handles GET /healthz
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := s.Svc.Ping(r.Context()); err != nil {
		s.Log.Warn("health check failed", "err", err)
		respondError(w, http.StatusServiceUnavailable, "Unavailable", "store unreachable")
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}
