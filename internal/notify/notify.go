// Package notify delivers the ambassador approval e-mail.
//
// Delivery is best-effort: the Dispatcher runs each send on its own
// goroutine after the approval has committed, bounded by a timeout, and
// only logs failures. Nothing here can fail or roll back an approval.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ApprovalNotice is the data carried by the approval e-mail.
type ApprovalNotice struct {
	Name         string
	Email        string
	ReferralCode string
	LoginURL     string
}

// Notifier sends an approval notice.
type Notifier interface {
	NotifyApproval(ctx context.Context, n ApprovalNotice) error
}

// LogNotifier only logs. It is used when no SMTP relay is configured.
type LogNotifier struct {
	Log *slog.Logger
}

func (l LogNotifier) NotifyApproval(_ context.Context, n ApprovalNotice) error {
	l.Log.Info("approval e-mail skipped: smtp not configured",
		"to", n.Email, "referral_code", n.ReferralCode)
	return nil
}

// Dispatcher sends notices in the background.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	log      *slog.Logger
	wg       sync.WaitGroup
}

// NewDispatcher wraps n. Each send gets its own timeout-bounded context.
func NewDispatcher(n Notifier, timeout time.Duration, log *slog.Logger) *Dispatcher {
	return &Dispatcher{notifier: n, timeout: timeout, log: log}
}

// Approval queues an approval notice and returns immediately.
func (d *Dispatcher) Approval(n ApprovalNotice) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		start := time.Now()
		if err := d.notifier.NotifyApproval(ctx, n); err != nil {
			d.log.Error("approval e-mail failed", "to", n.Email, "err", err)
			return
		}
		d.log.Info("approval e-mail sent", "to", n.Email, "took", time.Since(start))
	}()
}

// Wait blocks until every queued notice has been attempted.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
