// Package handlers contains the HTTP handler logic for the referral API.
//
// ────────────────────────────────────────────────────────────────────
// LEARNING NOTE: package structure
// ────────────────────────────────────────────────────────────────────
// Handlers are thin: decode the request, call one referral.Service
// method, encode the result. All business rules and every SQL query
// live in internal/referral, so these files only deal with HTTP:
// status codes, JSON shapes and which route needs which role.
//
// Files are split by audience (auth, admin, ambassador) for readability.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/aayamfest/ambassador/backend/internal/middleware"
	"github.com/aayamfest/ambassador/backend/internal/models"
	"github.com/aayamfest/ambassador/backend/internal/referral"
	"github.com/aayamfest/ambassador/backend/internal/storage"
)

// maxBodyBytes caps JSON request bodies. Bulk imports are the largest.
const maxBodyBytes = 4 << 20

// respond writes v as JSON with the given HTTP status code.
// Content-Type must be set before WriteHeader flushes the headers.
func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// respondError sends {"error": msg, "code": code}.
func respondError(w http.ResponseWriter, status int, code, msg string) {
	respond(w, status, map[string]string{"error": msg, "code": code})
}

// errEmptyBody is returned by decode for a request without a body.
var errEmptyBody = errors.New("request body is empty")

// decode reads a JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return errEmptyBody
	}
	return err
}

// statusByKind maps referral error kinds to HTTP status codes.
var statusByKind = map[string]int{
	"InvalidCredentials":   http.StatusUnauthorized,
	"ValidationError":      http.StatusBadRequest,
	"ProofRequired":        http.StatusBadRequest,
	"PointsOutOfRange":     http.StatusBadRequest,
	"InsufficientPoints":   http.StatusBadRequest,
	"DuplicateEmail":       http.StatusConflict,
	"DuplicateParticipant": http.StatusConflict,
	"DuplicateSubmission":  http.StatusConflict,
	"AlreadyReviewed":      http.StatusConflict,
	"NotFound":             http.StatusNotFound,
	"TaskNotFound":         http.StatusNotFound,
	"InvalidReferralCode":  http.StatusUnprocessableEntity,
	"Unavailable":          http.StatusServiceUnavailable,
}

// Server holds shared dependencies for all handlers.
type Server struct {
	Svc *referral.Service
	// Secret verifies session tokens in the Authenticate middleware.
	Secret string
	// Proofs stores uploaded proof screenshots. Nil disables the route.
	Proofs         storage.Uploader
	AllowedOrigins []string
	Log            *slog.Logger
}

// fail writes err as a JSON error. Domain errors carry their own message;
// anything unexpected is logged and reported without detail.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := referral.Kind(err)
	status, ok := statusByKind[kind]
	switch {
	case !ok:
		s.Log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		respondError(w, http.StatusInternalServerError, "Internal", "internal server error")
	case status == http.StatusServiceUnavailable:
		s.Log.Warn("store unavailable", "method", r.Method, "path", r.URL.Path, "err", err)
		respondError(w, status, kind, referral.ErrUnavailable.Error())
	default:
		respondError(w, status, kind, err.Error())
	}
}

// badBody reports an undecodable request body.
func badBody(w http.ResponseWriter, err error) {
	msg := "invalid JSON body"
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, errEmptyBody):
		msg = err.Error()
	case errors.As(err, &tooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, "ValidationError", "request body too large")
		return
	}
	respondError(w, http.StatusBadRequest, "ValidationError", msg)
}

// Routes builds the full handler tree: routing, role guards, CORS and
// request logging.
func (s *Server) Routes() http.Handler {
	// Go 1.22+ ServeMux supports method prefixes natively.
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /healthz", s.Healthz)
	mux.HandleFunc("POST /api/admin/login", s.AdminLogin)
	mux.HandleFunc("POST /api/ambassador/login", s.AmbassadorLogin)
	mux.HandleFunc("POST /api/ambassador/register", s.Register)

	auth := middleware.Authenticate(s.Secret)
	onlyAdmin := middleware.RequireRole(models.RoleAdmin)
	onlyAmbassador := middleware.RequireRole(models.RoleAmbassador)
	admin := func(h http.HandlerFunc) http.Handler { return auth(onlyAdmin(h)) }
	ambassador := func(h http.HandlerFunc) http.Handler { return auth(onlyAmbassador(h)) }

	// Admin
	mux.Handle("POST /api/admin/approve-ambassador", admin(s.ApproveAmbassador))
	mux.Handle("POST /api/admin/approve-signup", admin(s.ApproveSignup))
	mux.Handle("POST /api/admin/bulk-upload-signups", admin(s.BulkUploadSignups))
	mux.Handle("POST /api/admin/bulk-upload-signups/csv", admin(s.BulkUploadSignupsCSV))
	mux.Handle("GET /api/admin/dashboard", admin(s.AdminDashboard))
	mux.Handle("GET /api/admin/task-submissions", admin(s.ListTaskSubmissions))
	mux.Handle("POST /api/admin/task-submissions", admin(s.ReviewTaskSubmission))
	mux.Handle("POST /api/admin/tasks", admin(s.CreateTask))

	// Ambassador
	mux.Handle("GET /api/ambassador/dashboard", ambassador(s.AmbassadorDashboard))
	mux.Handle("POST /api/ambassador/add-signup", ambassador(s.AddSignup))
	mux.Handle("GET /api/ambassador/tasks", ambassador(s.ListTasks))
	mux.Handle("POST /api/ambassador/submit-task", ambassador(s.SubmitTask))
	mux.Handle("POST /api/ambassador/convert-points", ambassador(s.ConvertPoints))
	if s.Proofs != nil {
		mux.Handle("POST /api/ambassador/proofs", ambassador(s.UploadProof))
	}

	return middleware.Logger(s.Log)(middleware.CORS(s.AllowedOrigins)(mux))
}
