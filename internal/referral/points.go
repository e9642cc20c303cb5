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

const taskColumns = `id, name, description, points_min, points_max, required_proof, active, created_at`

func scanTask(r rowScanner) (models.Task, error) {
	var t models.Task
	err := r.Scan(&t.ID, &t.Name, &t.Description, &t.PointsMin, &t.PointsMax, &t.RequiredProof, &t.Active, &t.CreatedAt)
	return t, err
}

const submissionSelect = `
	SELECT ts.id, ts.ambassador_id, ts.task_id, ts.proof_link, ts.proof_screenshot, ts.status,
	       ts.points_awarded, ts.admin_notes, ts.submitted_at, ts.reviewed_at, ts.reviewed_by,
	       t.name, t.points_min, t.points_max, a.name, a.email
	FROM task_submissions ts
	JOIN tasks t ON t.id = ts.task_id
	JOIN ambassadors a ON a.id = ts.ambassador_id`

func scanSubmission(r rowScanner) (models.TaskSubmission, error) {
	var (
		ts         models.TaskSubmission
		points     sql.NullInt64
		reviewedAt sql.NullTime
		reviewedBy sql.NullString
	)
	err := r.Scan(&ts.ID, &ts.AmbassadorID, &ts.TaskID, &ts.ProofLink, &ts.ProofScreenshot, &ts.Status,
		&points, &ts.AdminNotes, &ts.SubmittedAt, &reviewedAt, &reviewedBy,
		&ts.TaskName, &ts.TaskPointsMin, &ts.TaskPointsMax, &ts.AmbassadorName, &ts.AmbassadorEmail)
	if err != nil {
		return ts, err
	}
	if points.Valid {
		p := int(points.Int64)
		ts.PointsAwarded = &p
	}
	ts.ReviewedAt = timePtr(reviewedAt)
	ts.ReviewedBy = stringPtr(reviewedBy)
	return ts, nil
}

func getSubmission(ctx context.Context, q querier, id string) (models.TaskSubmission, error) {
	ts, err := scanSubmission(q.QueryRowContext(ctx, submissionSelect+` WHERE ts.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ts, fmt.Errorf("submission %w", ErrNotFound)
	}
	if err != nil {
		return ts, storeErr("get submission", err)
	}
	return ts, nil
}

func totalPoints(ctx context.Context, q querier, ambassadorID string) (int, error) {
	var total int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(points), 0) FROM ambassador_points WHERE ambassador_id = ?`, ambassadorID).Scan(&total)
	if err != nil {
		return 0, storeErr("total points", err)
	}
	return total, nil
}

func appendPoints(ctx context.Context, q execer, e models.PointEntry) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO ambassador_points (id, ambassador_id, points, source, reference_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.AmbassadorID, e.Points, string(e.Source), nullString(e.ReferenceID), e.CreatedAt)
	if err != nil {
		return storeErr("append points", err)
	}
	return nil
}

// lockAmbassador takes the ambassador row lock that serialises
// per-ambassador read-then-write sequences on PostgreSQL.
func (s *Service) lockAmbassador(ctx context.Context, tx *db.Tx, id string) error {
	var got string
	err := tx.QueryRowContext(ctx, `SELECT id FROM ambassadors WHERE id = ?`+s.db.ForUpdate(), id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("ambassador %w", ErrNotFound)
	}
	if err != nil {
		return storeErr("lock ambassador", err)
	}
	return nil
}

// ListTasks returns the active tasks, the caller's submissions (newest
// first) and their current points balance.
func (s *Service) ListTasks(ctx context.Context, ambassadorID string) (models.TaskListResponse, error) {
	qctx, cancel := s.storeCtx(ctx)
	defer cancel()

	resp := models.TaskListResponse{
		Tasks:           []models.Task{},
		Submissions:     []models.TaskSubmission{},
		PointsPerSignup: s.opts.PointsPerSignup,
	}

	rows, err := s.db.QueryContext(qctx,
		`SELECT `+taskColumns+` FROM tasks WHERE active = ? ORDER BY created_at, name`, true)
	if err != nil {
		return resp, storeErr("list tasks", err)
	}
	defer rows.Close()
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return resp, storeErr("list tasks", err)
		}
		resp.Tasks = append(resp.Tasks, t)
	}
	if err := rows.Err(); err != nil {
		return resp, storeErr("list tasks", err)
	}

	subs, err := s.db.QueryContext(qctx,
		submissionSelect+` WHERE ts.ambassador_id = ? ORDER BY ts.submitted_at DESC`, ambassadorID)
	if err != nil {
		return resp, storeErr("list submissions", err)
	}
	defer subs.Close()
	for subs.Next() {
		ts, err := scanSubmission(subs)
		if err != nil {
			return resp, storeErr("list submissions", err)
		}
		resp.Submissions = append(resp.Submissions, ts)
	}
	if err := subs.Err(); err != nil {
		return resp, storeErr("list submissions", err)
	}

	if resp.TotalPoints, err = totalPoints(qctx, s.db, ambassadorID); err != nil {
		return resp, err
	}
	return resp, nil
}

// SubmitTask records proof that the caller completed a task. Screenshot
// tasks take proofScreenshot; link, video and text tasks take proofLink.
// A task may be submitted at most once per calendar day.
func (s *Service) SubmitTask(ctx context.Context, ambassadorID string, req models.SubmitTaskRequest) (models.TaskSubmission, error) {
	if err := check(req); err != nil {
		return models.TaskSubmission{}, err
	}
	req.ProofLink = strings.TrimSpace(req.ProofLink)
	req.ProofScreenshot = strings.TrimSpace(req.ProofScreenshot)

	qctx, cancel := s.storeCtx(ctx)
	defer cancel()

	var id string
	err := s.inTx(qctx, "submit task", func(tx *db.Tx) error {
		if err := s.lockAmbassador(qctx, tx, ambassadorID); err != nil {
			return err
		}

		task, err := scanTask(tx.QueryRowContext(qctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, req.TaskID))
		if errors.Is(err, sql.ErrNoRows) || (err == nil && !task.Active) {
			return ErrTaskNotFound
		}
		if err != nil {
			return storeErr("submit task", err)
		}
		if err := proofPresent(task.RequiredProof, req); err != nil {
			return err
		}

		now := s.clock()
		var last time.Time
		err = tx.QueryRowContext(qctx, `
			SELECT submitted_at FROM task_submissions
			WHERE ambassador_id = ? AND task_id = ?
			ORDER BY submitted_at DESC LIMIT 1`, ambassadorID, task.ID).Scan(&last)
		switch {
		case err == nil && sameDay(last, now, s.opts.Location):
			return ErrDuplicateSubmission
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return storeErr("submit task", err)
		}

		id = uuid.NewString()
		_, err = tx.ExecContext(qctx, `
			INSERT INTO task_submissions (id, ambassador_id, task_id, proof_link, proof_screenshot, status, submitted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, ambassadorID, task.ID, req.ProofLink, req.ProofScreenshot, string(models.StatusPending), now)
		if err != nil {
			return storeErr("submit task", err)
		}
		return nil
	})
	if err != nil {
		return models.TaskSubmission{}, err
	}

	s.log.Info("task submitted", "submission_id", id, "ambassador_id", ambassadorID, "task_id", req.TaskID)
	return getSubmission(qctx, s.db, id)
}

func proofPresent(kind models.ProofType, req models.SubmitTaskRequest) error {
	if kind == models.ProofScreenshot {
		if req.ProofScreenshot == "" {
			return fmt.Errorf("%w: screenshot proof required for this task", ErrProofRequired)
		}
		return nil
	}
	if req.ProofLink == "" {
		return fmt.Errorf("%w: %s proof required for this task", ErrProofRequired, kind)
	}
	return nil
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// PendingSubmissions is the admin review queue, oldest first.
func (s *Service) PendingSubmissions(ctx context.Context) ([]models.TaskSubmission, error) {
	qctx, cancel := s.storeCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(qctx,
		submissionSelect+` WHERE ts.status = ? ORDER BY ts.submitted_at ASC`, string(models.StatusPending))
	if err != nil {
		return nil, storeErr("pending submissions", err)
	}
	defer rows.Close()

	out := []models.TaskSubmission{}
	for rows.Next() {
		ts, err := scanSubmission(rows)
		if err != nil {
			return nil, storeErr("pending submissions", err)
		}
		out = append(out, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("pending submissions", err)
	}
	return out, nil
}

// ReviewTaskSubmission approves or rejects a pending submission. Approval
// awards points within the task's range (points_min when omitted) and
// appends them to the ledger in the same transaction.
func (s *Service) ReviewTaskSubmission(ctx context.Context, adminID string, req models.ReviewTaskRequest) (models.TaskSubmission, error) {
	if err := check(req); err != nil {
		return models.TaskSubmission{}, err
	}

	qctx, cancel := s.storeCtx(ctx)
	defer cancel()

	var awarded sql.NullInt64
	err := s.inTx(qctx, "review task", func(tx *db.Tx) error {
		current, err := getSubmission(qctx, tx, req.SubmissionID)
		if err != nil {
			return err
		}
		if current.Status != models.StatusPending {
			return fmt.Errorf("%w: already %s", ErrAlreadyReviewed, current.Status)
		}

		if req.Status == models.StatusApproved {
			points := current.TaskPointsMin
			if req.PointsAwarded != nil {
				points = *req.PointsAwarded
			}
			if points < current.TaskPointsMin || points > current.TaskPointsMax {
				return fmt.Errorf("%w: %d is not within %d-%d",
					ErrPointsOutOfRange, points, current.TaskPointsMin, current.TaskPointsMax)
			}
			awarded = sql.NullInt64{Int64: int64(points), Valid: true}
		}

		now := s.clock()
		res, err := tx.ExecContext(qctx, `
			UPDATE task_submissions
			SET status = ?, points_awarded = ?, admin_notes = ?, reviewed_at = ?, reviewed_by = ?
			WHERE id = ? AND status = ?`,
			string(req.Status), awarded, strings.TrimSpace(req.Notes), now, adminID,
			req.SubmissionID, string(models.StatusPending))
		if err != nil {
			return storeErr("review task", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return storeErr("review task", err)
		} else if n == 0 {
			return ErrAlreadyReviewed
		}

		if awarded.Valid && awarded.Int64 > 0 {
			ref := current.TaskID
			return appendPoints(qctx, tx, models.PointEntry{
				ID:           uuid.NewString(),
				AmbassadorID: current.AmbassadorID,
				Points:       int(awarded.Int64),
				Source:       models.PointsFromTask,
				ReferenceID:  &ref,
				CreatedAt:    now,
			})
		}
		return nil
	})
	if err != nil {
		return models.TaskSubmission{}, err
	}

	s.log.Info("task submission reviewed", "submission_id", req.SubmissionID, "status", req.Status, "points", awarded.Int64)
	return getSubmission(qctx, s.db, req.SubmissionID)
}

// ConvertPoints exchanges ledger points for one signup. The spend is a
// negative ledger row; the counter moves by one in the same transaction.
func (s *Service) ConvertPoints(ctx context.Context, ambassadorID string, req models.ConvertPointsRequest) (models.ConvertPointsResponse, error) {
	needed := s.opts.PointsPerSignup
	if req.PointsNeeded != nil {
		needed = *req.PointsNeeded
	}
	if needed < s.opts.PointsPerSignup {
		return models.ConvertPointsResponse{}, fmt.Errorf("%w: pointsNeeded must be at least %d", ErrValidation, s.opts.PointsPerSignup)
	}

	qctx, cancel := s.storeCtx(ctx)
	defer cancel()

	var resp models.ConvertPointsResponse
	err := s.inTx(qctx, "convert points", func(tx *db.Tx) error {
		if err := s.lockAmbassador(qctx, tx, ambassadorID); err != nil {
			return err
		}
		total, err := totalPoints(qctx, tx, ambassadorID)
		if err != nil {
			return err
		}
		if total < needed {
			return fmt.Errorf("%w: you have %d points, need %d", ErrInsufficientPoints, total, needed)
		}

		now := s.clock()
		if err := appendPoints(qctx, tx, models.PointEntry{
			ID:           uuid.NewString(),
			AmbassadorID: ambassadorID,
			Points:       -needed,
			Source:       models.PointsFromConversion,
			CreatedAt:    now,
		}); err != nil {
			return err
		}
		if err := incrementSignupCount(qctx, tx, ambassadorID, now); err != nil {
			return err
		}
		resp = models.ConvertPointsResponse{NewPoints: total - needed, SignupAdded: 1}
		return nil
	})
	if err != nil {
		return models.ConvertPointsResponse{}, err
	}

	s.log.Info("points converted", "ambassador_id", ambassadorID, "spent", needed, "remaining", resp.NewPoints)
	return resp, nil
}
