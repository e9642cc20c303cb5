package referral

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/aayamfest/ambassador/backend/internal/db"
	"github.com/aayamfest/ambassador/backend/internal/models"
)

// CreateTask adds a task. Names are unique.
func (s *Service) CreateTask(ctx context.Context, req models.CreateTaskRequest) (models.Task, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := check(req); err != nil {
		return models.Task{}, err
	}

	t := models.Task{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Description:   strings.TrimSpace(req.Description),
		PointsMin:     req.PointsMin,
		PointsMax:     req.PointsMax,
		RequiredProof: req.RequiredProof,
		Active:        req.Active == nil || *req.Active,
		CreatedAt:     s.clock(),
	}

	qctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := insertTask(qctx, s.db, t); err != nil {
		return models.Task{}, err
	}
	s.log.Info("task created", "task_id", t.ID, "name", t.Name)
	return t, nil
}

func insertTask(ctx context.Context, q execer, t models.Task) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO tasks (id, name, description, points_min, points_max, required_proof, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Description, t.PointsMin, t.PointsMax, string(t.RequiredProof), t.Active, t.CreatedAt)
	if db.IsUniqueViolation(err, "name") {
		return fmt.Errorf("%w: a task named %q already exists", ErrValidation, t.Name)
	}
	if err != nil {
		return storeErr("insert task", err)
	}
	return nil
}

// SyncTasks upserts a task catalogue by name in one transaction. Tasks
// missing from the catalogue are left alone.
func (s *Service) SyncTasks(ctx context.Context, catalogue []models.CreateTaskRequest) (created, updated int, err error) {
	for i := range catalogue {
		catalogue[i].Name = strings.TrimSpace(catalogue[i].Name)
		if err := check(catalogue[i]); err != nil {
			return 0, 0, fmt.Errorf("task %d: %w", i, err)
		}
	}

	qctx, cancel := s.storeCtx(ctx)
	defer cancel()
	err = s.inTx(qctx, "sync tasks", func(tx *db.Tx) error {
		for _, req := range catalogue {
			active := req.Active == nil || *req.Active
			res, err := tx.ExecContext(qctx, `
				UPDATE tasks SET description = ?, points_min = ?, points_max = ?, required_proof = ?, active = ?
				WHERE name = ?`,
				strings.TrimSpace(req.Description), req.PointsMin, req.PointsMax, string(req.RequiredProof), active, req.Name)
			if err != nil {
				return storeErr("sync tasks", err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				updated++
				continue
			}
			if err := insertTask(qctx, tx, models.Task{
				ID:            uuid.NewString(),
				Name:          req.Name,
				Description:   strings.TrimSpace(req.Description),
				PointsMin:     req.PointsMin,
				PointsMax:     req.PointsMax,
				RequiredProof: req.RequiredProof,
				Active:        active,
				CreatedAt:     s.clock(),
			}); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	s.log.Info("task catalogue synced", "created", created, "updated", updated)
	return created, updated, nil
}
