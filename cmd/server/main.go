// main is the entry point for the AAYAM ambassador program backend.
//
// ────────────────────────────────────────────────────────────────────
// LEARNING NOTE: how this file fits into the project
// ────────────────────────────────────────────────────────────────────
// This file is the "composition root": the single place where the
// independent packages (config, db, notify, storage, referral,
// handlers) are wired together. Every other package stays easy to test
// in isolation because none of them reads the environment itself.
//
// The binary is a small cobra CLI. Running it with no sub-command
// starts the HTTP server; the other sub-commands are operator tools
// that share the same configuration and database.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aayamfest/ambassador/backend/internal/config"
	"github.com/aayamfest/ambassador/backend/internal/db"
	"github.com/aayamfest/ambassador/backend/internal/handlers"
	"github.com/aayamfest/ambassador/backend/internal/logging"
	"github.com/aayamfest/ambassador/backend/internal/notify"
	"github.com/aayamfest/ambassador/backend/internal/referral"
	"github.com/aayamfest/ambassador/backend/internal/storage"
)

// app holds the dependencies shared by every sub-command.
type app struct {
	cfg        *config.Config
	log        *slog.Logger
	db         *db.DB
	dispatcher *notify.Dispatcher
	svc        *referral.Service
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "aayam",
		Short:         "AAYAM campus ambassador program backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	rootCmd.AddCommand(serveCmd(), migrateCmd(), adminCmd(), importCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newApp loads configuration and opens the database. The caller must
// call close when done.
func newApp() (*app, error) {
	// ── Configuration ────────────────────────────────────────────────
	// .env is optional; real deployments set the environment directly.
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	// ── Database ─────────────────────────────────────────────────────
	// db.Open picks the driver from DATABASE_URL and runs the
	// CREATE TABLE IF NOT EXISTS migrations.
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// ── Notifications ────────────────────────────────────────────────
	// Without an SMTP relay approval e-mails are only logged.
	var notifier notify.Notifier = notify.LogNotifier{Log: log}
	if cfg.SMTP.Enabled() {
		mailer, err := notify.NewMailer(notify.SMTPOptions{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.User,
			Password: cfg.SMTP.Pass,
			From:     cfg.SMTP.From,
			SSL:      cfg.SMTP.Secure,
		})
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("smtp: %w", err)
		}
		notifier = mailer
		log.Info("approval e-mails enabled", "smtp_host", cfg.SMTP.Host)
	}
	dispatcher := notify.NewDispatcher(notifier, cfg.NotifyTimeout, log)

	svc := referral.NewService(database, dispatcher, log, referral.Options{
		PointsPerSignup: cfg.PointsPerSignup,
		Location:        cfg.Location,
		StoreTimeout:    cfg.StoreTimeout,
		SiteURL:         cfg.SiteURL,
		Secret:          cfg.JWTSecret,
	})
	return &app{cfg: cfg, log: log, db: database, dispatcher: dispatcher, svc: svc}, nil
}

// close flushes pending e-mails and closes the database.
func (a *app) close() {
	a.dispatcher.Wait()
	if err := a.db.Close(); err != nil {
		a.log.Warn("close database", "err", err)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.cfg.RequireSecret(); err != nil {
		return err
	}

	// ── Task catalogue ───────────────────────────────────────────────
	tasks, err := config.LoadTasks(a.cfg.TasksFile)
	if err != nil {
		return err
	}
	created, updated, err := a.svc.SyncTasks(ctx, tasks)
	if err != nil {
		return fmt.Errorf("sync tasks: %w", err)
	}
	a.log.Info("task catalogue synced", "created", created, "updated", updated)

	// ── Handlers ─────────────────────────────────────────────────────
	srv := &handlers.Server{
		Svc:            a.svc,
		Secret:         a.cfg.JWTSecret,
		AllowedOrigins: a.cfg.AllowedOrigins,
		Log:            a.log,
	}
	if a.cfg.R2.Enabled() {
		r2, err := storage.NewR2(ctx, storage.R2Options{
			AccountID:       a.cfg.R2.AccountID,
			AccessKeyID:     a.cfg.R2.AccessKeyID,
			AccessKeySecret: a.cfg.R2.AccessKeySecret,
			Bucket:          a.cfg.R2.Bucket,
			CDNBaseURL:      a.cfg.R2.CDNBaseURL,
		})
		if err != nil {
			return fmt.Errorf("object storage: %w", err)
		}
		srv.Proofs = r2
		a.log.Info("proof uploads enabled", "bucket", a.cfg.R2.Bucket)
	}

	httpServer := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("AAYAM API listening", "addr", a.cfg.Addr, "db", a.db.Dialect.String())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
