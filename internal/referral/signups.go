package referral

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aayamfest/ambassador/backend/internal/db"
	"github.com/aayamfest/ambassador/backend/internal/models"
)

const signupColumns = `s.id, s.ambassador_id, s.participant_name, s.participant_email, s.participant_phone,
	s.participant_college, s.status, s.source, s.registered_at, s.approved_at, s.approved_by`

func scanSignup(r rowScanner, extra ...any) (models.Signup, error) {
	var (
		su         models.Signup
		approvedAt sql.NullTime
		approvedBy sql.NullString
	)
	dest := []any{&su.ID, &su.AmbassadorID, &su.ParticipantName, &su.ParticipantEmail, &su.ParticipantPhone,
		&su.ParticipantCollege, &su.Status, &su.Source, &su.RegisteredAt, &approvedAt, &approvedBy}
	if err := r.Scan(append(dest, extra...)...); err != nil {
		return su, err
	}
	su.ApprovedAt = timePtr(approvedAt)
	su.ApprovedBy = stringPtr(approvedBy)
	return su, nil
}

func getSignup(ctx context.Context, q querier, id string) (models.Signup, error) {
	su, err := scanSignup(q.QueryRowContext(ctx, `SELECT `+signupColumns+` FROM signups s WHERE s.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return su, fmt.Errorf("signup %w", ErrNotFound)
	}
	if err != nil {
		return su, storeErr("get signup", err)
	}
	return su, nil
}

// execer is satisfied by both *db.DB and *db.Tx.
type execer interface {
	querier
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertSignup stores su, mapping a duplicate participant email to
// ErrDuplicateParticipant.
func insertSignup(ctx context.Context, q execer, su models.Signup) error {
	var exists int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM signups WHERE participant_email = ?`, su.ParticipantEmail).Scan(&exists)
	if err == nil {
		return fmt.Errorf("%w: %s", ErrDuplicateParticipant, su.ParticipantEmail)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return storeErr("insert signup", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO signups (id, ambassador_id, participant_name, participant_email, participant_phone,
		                     participant_college, status, source, registered_at, approved_at, approved_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		su.ID, su.AmbassadorID, su.ParticipantName, su.ParticipantEmail, su.ParticipantPhone,
		su.ParticipantCollege, string(su.Status), string(su.Source), su.RegisteredAt, nullTime(su.ApprovedAt), nullString(su.ApprovedBy))
	if db.IsUniqueViolation(err, "participant_email") {
		return fmt.Errorf("%w: %s", ErrDuplicateParticipant, su.ParticipantEmail)
	}
	if err != nil {
		return storeErr("insert signup", err)
	}
	return nil
}

// incrementSignupCount adds one to an ambassador's counter in place.
func incrementSignupCount(ctx context.Context, q execer, ambassadorID string, now time.Time) error {
	res, err := q.ExecContext(ctx,
		`UPDATE ambassadors SET signup_count = signup_count + 1, updated_at = ? WHERE id = ?`, now, ambassadorID)
	if err != nil {
		return storeErr("increment signup count", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("ambassador %w", ErrNotFound)
	}
	return nil
}

// SubmitSignup records a participant recruited by the calling ambassador.
// The signup waits for admin approval and does not count until then.
func (s *Service) SubmitSignup(ctx context.Context, ambassadorID string, req models.AddSignupRequest) (models.Signup, error) {
	req.ParticipantEmail = normEmail(req.ParticipantEmail)
	req.ParticipantName = strings.TrimSpace(req.ParticipantName)
	if err := check(req); err != nil {
		return models.Signup{}, err
	}

	su := models.Signup{
		ID:                 uuid.NewString(),
		AmbassadorID:       ambassadorID,
		ParticipantName:    req.ParticipantName,
		ParticipantEmail:   req.ParticipantEmail,
		ParticipantPhone:   strings.TrimSpace(req.ParticipantPhone),
		ParticipantCollege: strings.TrimSpace(req.ParticipantCollege),
		Status:             models.StatusPending,
		Source:             models.SignupSubmitted,
		RegisteredAt:       s.clock(),
	}

	qctx, cancel := s.storeCtx(ctx)
	defer cancel()
	err := s.inTx(qctx, "submit signup", func(tx *db.Tx) error {
		if _, err := getAmbassador(qctx, tx, ambassadorID); err != nil {
			return err
		}
		return insertSignup(qctx, tx, su)
	})
	if err != nil {
		return models.Signup{}, err
	}

	s.log.Info("signup submitted", "signup_id", su.ID, "ambassador_id", ambassadorID)
	return su, nil
}

// ReviewSignup approves or rejects a signup. The owning ambassador's
// signup_count is incremented exactly once, the first time the signup
// enters approved; repeating an approval changes nothing and a rejection
// never decrements.
func (s *Service) ReviewSignup(ctx context.Context, adminID string, req models.ReviewSignupRequest) (models.Signup, error) {
	if err := check(req); err != nil {
		return models.Signup{}, err
	}

	qctx, cancel := s.storeCtx(ctx)
	defer cancel()

	var (
		su      models.Signup
		counted bool
	)
	err := s.inTx(qctx, "review signup", func(tx *db.Tx) error {
		current, err := getSignup(qctx, tx, req.SignupID)
		if err != nil {
			return err
		}
		if current.Status == req.Status {
			su = current
			return nil
		}

		now := s.clock()
		switch {
		case req.Status == models.StatusApproved && current.ApprovedAt == nil:
			// approved_at IS NULL makes counting a one-time edge even if two
			// approvals race past the read above.
			res, err := tx.ExecContext(qctx, `
				UPDATE signups SET status = ?, approved_at = ?, approved_by = ?
				WHERE id = ? AND approved_at IS NULL`,
				string(models.StatusApproved), now, adminID, req.SignupID)
			if err != nil {
				return storeErr("review signup", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return storeErr("review signup", err)
			}
			if n == 1 {
				if err := incrementSignupCount(qctx, tx, current.AmbassadorID, now); err != nil {
					return err
				}
				counted = true
			}
		default:
			// Rejections, and re-approval of a signup that was approved
			// once before, change the status only.
			if _, err := tx.ExecContext(qctx, `UPDATE signups SET status = ? WHERE id = ?`,
				string(req.Status), req.SignupID); err != nil {
				return storeErr("review signup", err)
			}
		}

		su, err = getSignup(qctx, tx, req.SignupID)
		return err
	})
	if err != nil {
		return models.Signup{}, err
	}

	s.log.Info("signup reviewed", "signup_id", su.ID, "status", su.Status, "counted", counted)
	return su, nil
}
