package referral

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/aayamfest/ambassador/backend/internal/auth"
	"github.com/aayamfest/ambassador/backend/internal/db"
	"github.com/aayamfest/ambassador/backend/internal/models"
	"github.com/aayamfest/ambassador/backend/internal/notify"
)

const ambassadorColumns = `id, email, password_hash, name, phone, college, year, motivation,
	referral_code, status, signup_count, approved_at, created_at, updated_at`

func scanAmbassador(r rowScanner) (models.Ambassador, error) {
	var (
		a          models.Ambassador
		approvedAt sql.NullTime
	)
	err := r.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.Phone, &a.College, &a.Year, &a.Motivation,
		&a.ReferralCode, &a.Status, &a.SignupCount, &approvedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return a, err
	}
	a.ApprovedAt = timePtr(approvedAt)
	a.Tier = TierFor(a.SignupCount)
	return a, nil
}

// querier is satisfied by both *db.DB and *db.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getAmbassador(ctx context.Context, q querier, id string) (models.Ambassador, error) {
	a, err := scanAmbassador(q.QueryRowContext(ctx,
		`SELECT `+ambassadorColumns+` FROM ambassadors WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return a, fmt.Errorf("ambassador %w", ErrNotFound)
	}
	if err != nil {
		return a, storeErr("get ambassador", err)
	}
	return a, nil
}

// Register creates a pending ambassador with a fresh referral code.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (models.Ambassador, error) {
	req.Email = normEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := check(req); err != nil {
		return models.Ambassador{}, err
	}
	if err := checkPasswordLength(req.Password); err != nil {
		return models.Ambassador{}, err
	}

	qctx, cancel := s.storeCtx(ctx)
	defer cancel()

	// Fast path for a friendly error; the UNIQUE constraint is authoritative.
	var exists int
	err := s.db.QueryRowContext(qctx, `SELECT 1 FROM ambassadors WHERE email = ?`, req.Email).Scan(&exists)
	if err == nil {
		return models.Ambassador{}, ErrDuplicateEmail
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Ambassador{}, storeErr("register", err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return models.Ambassador{}, err
	}

	now := s.clock()
	amb := models.Ambassador{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Phone:        strings.TrimSpace(req.Phone),
		College:      strings.TrimSpace(req.College),
		Year:         strings.TrimSpace(req.Year),
		Motivation:   strings.TrimSpace(req.WhyAmbassador),
		Status:       models.StatusPending,
		Tier:         models.TierNone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	for attempt := 1; ; attempt++ {
		if attempt > maxCodeAttempts {
			return models.Ambassador{}, fmt.Errorf("register: no free referral code after %d attempts", maxCodeAttempts)
		}
		if amb.ReferralCode, err = s.newCode(); err != nil {
			return models.Ambassador{}, err
		}

		_, err = s.db.ExecContext(qctx, `
			INSERT INTO ambassadors (id, email, password_hash, name, phone, college, year, motivation,
			                         referral_code, status, signup_count, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
			amb.ID, amb.Email, amb.PasswordHash, amb.Name, amb.Phone, amb.College, amb.Year, amb.Motivation,
			amb.ReferralCode, string(amb.Status), amb.CreatedAt, amb.UpdatedAt)
		switch {
		case err == nil:
			s.log.Info("ambassador registered", "ambassador_id", amb.ID, "referral_code", amb.ReferralCode)
			return amb, nil
		case db.IsUniqueViolation(err, "referral_code"):
			s.log.Debug("referral code collision, retrying", "attempt", attempt)
			continue
		case db.IsUniqueViolation(err, "email"):
			return models.Ambassador{}, ErrDuplicateEmail
		default:
			return models.Ambassador{}, storeErr("register", err)
		}
	}
}

// ReviewAmbassador approves or rejects an ambassador. Entering approved
// stamps approved_at and queues the approval e-mail after commit;
// repeating a decision is a no-op that returns the current row.
func (s *Service) ReviewAmbassador(ctx context.Context, req models.ReviewAmbassadorRequest) (models.Ambassador, error) {
	if err := check(req); err != nil {
		return models.Ambassador{}, err
	}

	qctx, cancel := s.storeCtx(ctx)
	defer cancel()

	var (
		amb         models.Ambassador
		newlyActive bool
	)
	err := s.inTx(qctx, "review ambassador", func(tx *db.Tx) error {
		current, err := getAmbassador(qctx, tx, req.AmbassadorID)
		if err != nil {
			return err
		}
		if current.Status == req.Status {
			amb = current
			return nil
		}

		now := s.clock()
		if req.Status == models.StatusApproved {
			_, err = tx.ExecContext(qctx,
				`UPDATE ambassadors SET status = ?, approved_at = COALESCE(approved_at, ?), updated_at = ? WHERE id = ?`,
				string(req.Status), now, now, req.AmbassadorID)
			newlyActive = true
		} else {
			_, err = tx.ExecContext(qctx,
				`UPDATE ambassadors SET status = ?, updated_at = ? WHERE id = ?`,
				string(req.Status), now, req.AmbassadorID)
		}
		if err != nil {
			return storeErr("review ambassador", err)
		}

		amb, err = getAmbassador(qctx, tx, req.AmbassadorID)
		return err
	})
	if err != nil {
		return models.Ambassador{}, err
	}

	s.log.Info("ambassador reviewed", "ambassador_id", amb.ID, "status", amb.Status, "notify", newlyActive)
	if newlyActive && s.notifier != nil {
		s.notifier.Approval(notify.ApprovalNotice{
			Name:         amb.Name,
			Email:        amb.Email,
			ReferralCode: amb.ReferralCode,
			LoginURL:     s.opts.SiteURL + "/ambassador/login",
		})
	}
	return amb, nil
}
