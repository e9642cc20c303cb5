// Package middleware provides HTTP middleware for the referral API.
//
// ────────────────────────────────────────────────────────────────────
// LEARNING NOTE: chaining
// ────────────────────────────────────────────────────────────────────
// Every middleware here has the shape func(http.Handler) http.Handler,
// so they compose by nesting:
//
//	Logger(CORS(mux))                           // outermost, every request
//	auth(onlyAdmin(http.HandlerFunc(handler)))  // per route
//
// Authenticate answers 401 (who are you?) and RequireRole answers 403
// (you may not do this). Role checks only make sense after Authenticate.
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aayamfest/ambassador/backend/internal/auth"
	"github.com/aayamfest/ambassador/backend/internal/models"
)

// contextKey is a private type for context keys in this package.
type contextKey string

const (
	// ContextSubjectID holds the authenticated admin or ambassador id.
	ContextSubjectID contextKey = "subject_id"
	// ContextRole holds the models.Role from the token.
	ContextRole contextKey = "role"
)

func deny(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": code})
}

// Authenticate verifies the "Authorization: Bearer <token>" header and
// stores the subject id and role in the request context. Missing,
// malformed or expired tokens get 401.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				deny(w, http.StatusUnauthorized, "Unauthorized", "missing or invalid Authorization header")
				return
			}
			tokenStr := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

			claims, err := auth.ParseToken(tokenStr, secret)
			if err != nil {
				deny(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), claims.SubjectID(), claims.Role)))
		})
	}
}

// RequireRole lets through only requests whose token role is one of
// roles. Must run after Authenticate.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed[GetRole(r.Context())] {
				deny(w, http.StatusForbidden, "Forbidden", "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS answers preflights and sets Access-Control-* headers for the
// allowed origins. A single "*" allows any origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	wildcard := false
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
		allowed[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case wildcard:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logger emits one structured line per request.
func Logger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			level := slog.LevelInfo
			if rec.status >= 500 {
				level = slog.LevelError
			}
			log.Log(r.Context(), level, "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
			)
		})
	}
}

// WithSubject returns ctx carrying an authenticated subject. Authenticate
// uses it; tests use it to skip token handling.
func WithSubject(ctx context.Context, subjectID string, role models.Role) context.Context {
	ctx = context.WithValue(ctx, ContextSubjectID, subjectID)
	return context.WithValue(ctx, ContextRole, role)
}

// GetSubjectID returns the authenticated subject id, or "".
func GetSubjectID(ctx context.Context) string {
	id, _ := ctx.Value(ContextSubjectID).(string)
	return id
}

// GetRole returns the authenticated role, or "".
func GetRole(ctx context.Context) models.Role {
	role, _ := ctx.Value(ContextRole).(models.Role)
	return role
}
