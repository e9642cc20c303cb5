package referral

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/aayamfest/ambassador/backend/internal/db"
	"github.com/aayamfest/ambassador/backend/internal/models"
)

// CSVColumns is the required bulk-import header, in order.
var CSVColumns = []string{"referral_code", "participant_name", "participant_email", "participant_phone", "participant_college"}

// ParseCSV reads bulk-import rows. The header must name CSVColumns in
// order (case-insensitive); phone and college may be left off. Short
// rows are returned as-is so the import reports them per row.
func ParseCSV(r io.Reader) ([]models.ImportRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: csv header row is required", ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if len(header) < 3 || len(header) > len(CSVColumns) {
		return nil, fmt.Errorf("%w: csv header must be %s", ErrValidation, strings.Join(CSVColumns, ","))
	}
	for i, col := range header {
		col = strings.TrimPrefix(col, "\ufeff")
		if !strings.EqualFold(strings.TrimSpace(col), CSVColumns[i]) {
			return nil, fmt.Errorf("%w: csv column %d must be %q, got %q", ErrValidation, i+1, CSVColumns[i], col)
		}
	}

	var rows []models.ImportRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		field := func(i int) string {
			if i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		rows = append(rows, models.ImportRow{
			ReferralCode:       field(0),
			ParticipantName:    field(1),
			ParticipantEmail:   field(2),
			ParticipantPhone:   field(3),
			ParticipantCollege: field(4),
		})
	}
	return rows, nil
}

// BulkImport inserts pre-vetted signups as approved, one transaction per
// row and strictly in order. A failing row is reported and skipped; it
// never aborts the rows after it.
func (s *Service) BulkImport(ctx context.Context, adminID string, rows []models.ImportRow) models.ImportReport {
	report := models.ImportReport{Errors: []models.ImportError{}}
	for i, row := range rows {
		if err := s.importRow(ctx, adminID, row); err != nil {
			kind, msg := importFailure(err)
			if kind == "Internal" {
				s.log.Error("bulk import row failed", "row", i+1, "err", err)
			}
			report.Failed++
			report.Errors = append(report.Errors, models.ImportError{Row: i + 1, Error: kind, Message: msg, Data: row})
			continue
		}
		report.Success++
	}
	s.log.Info("bulk import finished", "rows", len(rows), "success", report.Success, "failed", report.Failed)
	return report
}

var errMissingField = errors.New("missing required field")

func importFailure(err error) (kind, message string) {
	switch {
	case errors.Is(err, errMissingField):
		return "MissingField", err.Error()
	case errors.Is(err, ErrInvalidReferralCode), errors.Is(err, ErrDuplicateParticipant):
		return Kind(err), err.Error()
	case errors.Is(err, ErrUnavailable):
		return "Unavailable", "store unavailable, row can be retried"
	default:
		return "Internal", "row could not be imported"
	}
}

func (s *Service) importRow(ctx context.Context, adminID string, row models.ImportRow) error {
	code := NormalizeCode(row.ReferralCode)
	name := strings.TrimSpace(row.ParticipantName)
	email := normEmail(row.ParticipantEmail)

	var missing []string
	for _, f := range []struct{ name, val string }{
		{"referral_code", code}, {"participant_name", name}, {"participant_email", email},
	} {
		if f.val == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", errMissingField, strings.Join(missing, ", "))
	}

	qctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.inTx(qctx, "import row", func(tx *db.Tx) error {
		var ambassadorID string
		err := tx.QueryRowContext(qctx,
			`SELECT id FROM ambassadors WHERE referral_code = ? AND status = ?`,
			code, string(models.StatusApproved)).Scan(&ambassadorID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrInvalidReferralCode, code)
		}
		if err != nil {
			return storeErr("import row", err)
		}

		now := s.clock()
		approvedBy := adminID
		su := models.Signup{
			ID:                 uuid.NewString(),
			AmbassadorID:       ambassadorID,
			ParticipantName:    name,
			ParticipantEmail:   email,
			ParticipantPhone:   strings.TrimSpace(row.ParticipantPhone),
			ParticipantCollege: strings.TrimSpace(row.ParticipantCollege),
			Status:             models.StatusApproved,
			Source:             models.SignupBulk,
			RegisteredAt:       now,
			ApprovedAt:         &now,
			ApprovedBy:         &approvedBy,
		}
		if adminID == "" {
			su.ApprovedBy = nil
		}
		if err := insertSignup(qctx, tx, su); err != nil {
			return err
		}
		return incrementSignupCount(qctx, tx, ambassadorID, now)
	})
}
