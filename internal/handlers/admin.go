package handlers

import (
	"net/http"

	"github.com/aayamfest/ambassador/backend/internal/middleware"
	"github.com/aayamfest/ambassador/backend/internal/models"
	"github.com/aayamfest/ambassador/backend/internal/referral"
)

// ApproveAmbassador handles POST /api/admin/approve-ambassador
func (s *Server) ApproveAmbassador(w http.ResponseWriter, r *http.Request) {
	var req models.ReviewAmbassadorRequest
	if err := decode(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	amb, err := s.Svc.ReviewAmbassador(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"message":    "Ambassador " + string(amb.Status),
		"ambassador": amb,
	})
}

// ApproveSignup handles POST /api/admin/approve-signup
func (s *Server) ApproveSignup(w http.ResponseWriter, r *http.Request) {
	var req models.ReviewSignupRequest
	if err := decode(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	adminID := middleware.GetSubjectID(r.Context())
	su, err := s.Svc.ReviewSignup(r.Context(), adminID, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"message": "Signup " + string(su.Status),
		"signup":  su,
	})
}

// BulkUploadSignups handles POST /api/admin/bulk-upload-signups
//
// Rows fail independently; the report is always 200 when the body parses.
func (s *Server) BulkUploadSignups(w http.ResponseWriter, r *http.Request) {
	var req models.BulkImportRequest
	if err := decode(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	if len(req.Signups) == 0 {
		respondError(w, http.StatusBadRequest, "ValidationError", "signups must be a non-empty array")
		return
	}
	adminID := middleware.GetSubjectID(r.Context())
	respond(w, http.StatusOK, s.Svc.BulkImport(r.Context(), adminID, req.Signups))
}

// BulkUploadSignupsCSV handles POST /api/admin/bulk-upload-signups/csv
func (s *Server) BulkUploadSignupsCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := referral.ParseCSV(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(rows) == 0 {
		respondError(w, http.StatusBadRequest, "ValidationError", "CSV contains no data rows")
		return
	}
	adminID := middleware.GetSubjectID(r.Context())
	respond(w, http.StatusOK, s.Svc.BulkImport(r.Context(), adminID, rows))
}

// AdminDashboard handles GET /api/admin/dashboard
func (s *Server) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.Svc.AdminDashboard(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, dash)
}

// ListTaskSubmissions handles GET /api/admin/task-submissions
func (s *Server) ListTaskSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.Svc.PendingSubmissions(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"submissions": subs})
}

// ReviewTaskSubmission handles POST /api/admin/task-submissions
func (s *Server) ReviewTaskSubmission(w http.ResponseWriter, r *http.Request) {
	var req models.ReviewTaskRequest
	if err := decode(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	adminID := middleware.GetSubjectID(r.Context())
	sub, err := s.Svc.ReviewTaskSubmission(r.Context(), adminID, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"message":    "Submission " + string(sub.Status),
		"submission": sub,
	})
}

// CreateTask handles POST /api/admin/tasks
func (s *Server) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTaskRequest
	if err := decode(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	task, err := s.Svc.CreateTask(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, map[string]any{"task": task})
}
