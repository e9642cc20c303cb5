// Package referral implements the ambassador referral program: accounts
// and sessions, the ambassador review lifecycle, participant signups and
// their approval, bulk import, the points ledger and the dashboards.
//
// Every signup_count change is a single UPDATE ... SET signup_count =
// signup_count + 1 executed in the same transaction as the row that
// caused it, so concurrent approvals, imports and conversions never lose
// an increment. Tier is never stored; it is derived from signup_count
// whenever an ambassador is read.
package referral

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/aayamfest/ambassador/backend/internal/db"
	"github.com/aayamfest/ambassador/backend/internal/notify"
)

// ApprovalNotifier queues the approval e-mail. *notify.Dispatcher
// implements it; sends must not block the caller.
type ApprovalNotifier interface {
	Approval(n notify.ApprovalNotice)
}

// Options tunes a Service.
type Options struct {
	// PointsPerSignup is the default and minimum conversion rate.
	PointsPerSignup int
	// Location decides where a calendar day starts for the task limit.
	Location *time.Location
	// StoreTimeout bounds every store round trip.
	StoreTimeout time.Duration
	// SiteURL is the public site, used to build the login link.
	SiteURL string
	// Secret signs session tokens.
	Secret string
}

// Service is the referral program. It is safe for concurrent use.
type Service struct {
	db       *db.DB
	notifier ApprovalNotifier
	log      *slog.Logger
	opts     Options

	now     func() time.Time
	newCode func() (string, error)
}

// NewService wires a Service. Zero options get sensible defaults.
func NewService(store *db.DB, notifier ApprovalNotifier, log *slog.Logger, opts Options) *Service {
	if opts.PointsPerSignup <= 0 {
		opts.PointsPerSignup = 12
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	opts.SiteURL = strings.TrimRight(opts.SiteURL, "/")
	return &Service{
		db:       store,
		notifier: notifier,
		log:      log,
		opts:     opts,
		now:      time.Now,
		newCode:  newReferralCode,
	}
}

// PointsPerSignup reports the configured conversion rate.
func (s *Service) PointsPerSignup() int { return s.opts.PointsPerSignup }

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return storeErr("ping", err)
	}
	return nil
}

func (s *Service) storeCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.opts.StoreTimeout)
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// inTx runs fn in a transaction, committing when fn returns nil.
func (s *Service) inTx(ctx context.Context, op string, fn func(tx *db.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(op, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeErr(op, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func normEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
