package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/aayamfest/ambassador/backend/internal/middleware"
	"github.com/aayamfest/ambassador/backend/internal/models"
	"github.com/aayamfest/ambassador/backend/internal/storage"
)

// AmbassadorDashboard handles GET /api/ambassador/dashboard
func (s *Server) AmbassadorDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.Svc.AmbassadorDashboard(r.Context(), middleware.GetSubjectID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, dash)
}

// AddSignup handles POST /api/ambassador/add-signup
func (s *Server) AddSignup(w http.ResponseWriter, r *http.Request) {
	var req models.AddSignupRequest
	if err := decode(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	su, err := s.Svc.SubmitSignup(r.Context(), middleware.GetSubjectID(r.Context()), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, map[string]any{
		"message": "Signup submitted for review",
		"signup":  su,
	})
}

// ListTasks handles GET /api/ambassador/tasks
func (s *Server) ListTasks(w http.ResponseWriter, r *http.Request) {
	list, err := s.Svc.ListTasks(r.Context(), middleware.GetSubjectID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, list)
}

// SubmitTask handles POST /api/ambassador/submit-task
func (s *Server) SubmitTask(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitTaskRequest
	if err := decode(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	sub, err := s.Svc.SubmitTask(r.Context(), middleware.GetSubjectID(r.Context()), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, map[string]any{
		"message":    "Task submitted for review",
		"submission": sub,
	})
}

// ConvertPoints handles POST /api/ambassador/convert-points
//
// The body is optional; without pointsNeeded the configured rate applies.
func (s *Server) ConvertPoints(w http.ResponseWriter, r *http.Request) {
	var req models.ConvertPointsRequest
	if err := decode(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		badBody(w, err)
		return
	}
	resp, err := s.Svc.ConvertPoints(r.Context(), middleware.GetSubjectID(r.Context()), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, resp)
}

// UploadProof handles POST /api/ambassador/proofs
//
// Accepts a multipart "file" part holding a PNG, JPEG, GIF or WebP image.
func (s *Server) UploadProof(w http.ResponseWriter, r *http.Request) {
	// Leave room for multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxProofSize+64<<10)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "ValidationError", "proof image exceeds 5 MiB")
			return
		}
		respondError(w, http.StatusBadRequest, "ValidationError", "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxProofSize+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "ValidationError", "could not read upload")
		return
	}
	if len(data) > storage.MaxProofSize {
		respondError(w, http.StatusRequestEntityTooLarge, "ValidationError", "proof image exceeds 5 MiB")
		return
	}
	contentType, ext, ok := storage.DetectImage(data)
	if !ok {
		respondError(w, http.StatusUnsupportedMediaType, "ValidationError", "proof must be a PNG, JPEG, GIF or WebP image")
		return
	}

	ambassadorID := middleware.GetSubjectID(r.Context())
	url, err := s.Proofs.Upload(r.Context(), storage.ProofKey(ambassadorID, ext), data, contentType)
	if err != nil {
		s.Log.Error("proof upload failed", "ambassador_id", ambassadorID, "err", err)
		respondError(w, http.StatusBadGateway, "Unavailable", "could not store proof image")
		return
	}
	respond(w, http.StatusCreated, models.ProofUploadResponse{URL: url})
}
