package referral

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/aayamfest/ambassador/backend/internal/auth"
	"github.com/aayamfest/ambassador/backend/internal/db"
	"github.com/aayamfest/ambassador/backend/internal/models"
)

// dummyHash is compared against when no account matches, so a missing
// account costs the same bcrypt work as a wrong password.
var dummyHash, _ = auth.HashPassword("not-a-real-password")

const adminColumns = `id, email, password_hash, name, created_at`

func scanAdmin(r rowScanner) (models.Admin, error) {
	var a models.Admin
	err := r.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.CreatedAt)
	return a, err
}

// LoginAdmin verifies admin credentials and issues a session token.
func (s *Service) LoginAdmin(ctx context.Context, req models.LoginRequest) (models.AdminLoginResponse, error) {
	if err := check(req); err != nil {
		return models.AdminLoginResponse{}, err
	}
	email := normEmail(req.Email)

	qctx, cancel := s.storeCtx(ctx)
	defer cancel()
	admin, err := scanAdmin(s.db.QueryRowContext(qctx,
		`SELECT `+adminColumns+` FROM admins WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		auth.CheckPassword(dummyHash, req.Password)
		s.log.Debug("admin login rejected", "reason", "no such admin")
		return models.AdminLoginResponse{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.AdminLoginResponse{}, storeErr("admin login", err)
	}
	if !auth.CheckPassword(admin.PasswordHash, req.Password) {
		s.log.Debug("admin login rejected", "reason", "bad password", "admin_id", admin.ID)
		return models.AdminLoginResponse{}, ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(admin.ID, models.RoleAdmin, s.opts.Secret)
	if err != nil {
		return models.AdminLoginResponse{}, err
	}
	return models.AdminLoginResponse{Token: token, Admin: admin}, nil
}

// LoginAmbassador verifies ambassador credentials and issues a session
// token. Only approved ambassadors may log in; every failure looks the
// same to the caller.
func (s *Service) LoginAmbassador(ctx context.Context, req models.LoginRequest) (models.AmbassadorLoginResponse, error) {
	if err := check(req); err != nil {
		return models.AmbassadorLoginResponse{}, err
	}
	email := normEmail(req.Email)

	qctx, cancel := s.storeCtx(ctx)
	defer cancel()
	amb, err := scanAmbassador(s.db.QueryRowContext(qctx,
		`SELECT `+ambassadorColumns+` FROM ambassadors WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		auth.CheckPassword(dummyHash, req.Password)
		s.log.Debug("ambassador login rejected", "reason", "no such ambassador")
		return models.AmbassadorLoginResponse{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.AmbassadorLoginResponse{}, storeErr("ambassador login", err)
	}
	if !auth.CheckPassword(amb.PasswordHash, req.Password) {
		s.log.Debug("ambassador login rejected", "reason", "bad password", "ambassador_id", amb.ID)
		return models.AmbassadorLoginResponse{}, ErrInvalidCredentials
	}
	if amb.Status != models.StatusApproved {
		s.log.Debug("ambassador login rejected", "reason", "not approved", "ambassador_id", amb.ID, "status", amb.Status)
		return models.AmbassadorLoginResponse{}, ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(amb.ID, models.RoleAmbassador, s.opts.Secret)
	if err != nil {
		return models.AmbassadorLoginResponse{}, err
	}
	return models.AmbassadorLoginResponse{Token: token, Ambassador: amb}, nil
}

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

func checkPasswordLength(password string) error {
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, maxPasswordBytes)
	}
	return nil
}

// CreateAdmin adds an organiser account. It backs the "admin create" command.
func (s *Service) CreateAdmin(ctx context.Context, email, name, password string) (models.Admin, error) {
	email = normEmail(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return models.Admin{}, fmt.Errorf("%w: email must be a valid email address", ErrValidation)
	}
	if len(password) < 8 {
		return models.Admin{}, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	if err := checkPasswordLength(password); err != nil {
		return models.Admin{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.Admin{}, err
	}
	admin := models.Admin{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		CreatedAt:    s.clock(),
	}

	qctx, cancel := s.storeCtx(ctx)
	defer cancel()
	_, err = s.db.ExecContext(qctx,
		`INSERT INTO admins (id, email, password_hash, name, created_at) VALUES (?, ?, ?, ?, ?)`,
		admin.ID, admin.Email, admin.PasswordHash, admin.Name, admin.CreatedAt)
	if db.IsUniqueViolation(err, "email") {
		return models.Admin{}, fmt.Errorf("%w: %s", ErrDuplicateEmail, email)
	}
	if err != nil {
		return models.Admin{}, storeErr("create admin", err)
	}
	return admin, nil
}
