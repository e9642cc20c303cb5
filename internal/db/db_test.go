package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	d, err := Open(path + "?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, SQLite, d.Dialect)

	tables := []string{"admins", "ambassadors", "signups", "tasks", "task_submissions", "ambassador_points"}
	for _, tbl := range tables {
		var name string
		err := d.QueryRowContext(context.Background(),
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, tbl).Scan(&name)
		assert.NoError(t, err, "table %q not found", tbl)
	}

	// Migrations are IF NOT EXISTS, so a second Open on the same file is fine.
	d2, err := Open(path)
	require.NoError(t, err)
	d2.Close()
}

func TestOpenInMemory(t *testing.T) {
	d, err := Open("file:testopen_inmem?mode=memory&cache=shared&_pragma=foreign_keys(1)")
	require.NoError(t, err)
	defer d.Close()
	require.NoError(t, d.PingContext(context.Background()))
}

func TestUniqueConstraints(t *testing.T) {
	d, err := Open("file:testunique?mode=memory&cache=shared&_pragma=foreign_keys(1)")
	require.NoError(t, err)
	defer d.Close()
	ctx := context.Background()

	insert := `INSERT INTO ambassadors (id, email, password_hash, name, referral_code) VALUES (?, ?, 'x', 'n', ?)`
	_, err = d.ExecContext(ctx, insert, "a1", "a@example.com", "AAYAM000001")
	require.NoError(t, err)

	_, err = d.ExecContext(ctx, insert, "a2", "a@example.com", "AAYAM000002")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err, "email"))
	assert.False(t, IsUniqueViolation(err, "referral_code"))

	_, err = d.ExecContext(ctx, insert, "a3", "b@example.com", "AAYAM000001")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err, "referral_code"))
	assert.True(t, IsUniqueViolation(err, ""))
}

func TestSignupCountCannotGoNegative(t *testing.T) {
	d, err := Open("file:testnegative?mode=memory&cache=shared&_pragma=foreign_keys(1)")
	require.NoError(t, err)
	defer d.Close()
	ctx := context.Background()

	_, err = d.ExecContext(ctx,
		`INSERT INTO ambassadors (id, email, password_hash, name, referral_code) VALUES ('a1', 'a@example.com', 'x', 'n', 'AAYAM000001')`)
	require.NoError(t, err)
	_, err = d.ExecContext(ctx, `UPDATE ambassadors SET signup_count = signup_count - 1 WHERE id = 'a1'`)
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &DB{Dialect: Postgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.Rebind("SELECT * FROM t WHERE a = ? AND b = ?"))
	assert.Equal(t, "SELECT 1", pg.Rebind("SELECT 1"))

	lite := &DB{Dialect: SQLite}
	assert.Equal(t, "SELECT * FROM t WHERE a = ?", lite.Rebind("SELECT * FROM t WHERE a = ?"))

	assert.Equal(t, " FOR UPDATE", pg.ForUpdate())
	assert.Empty(t, lite.ForUpdate())
}

func TestDialectFor(t *testing.T) {
	assert.Equal(t, Postgres, DialectFor("postgres://u:p@localhost/aayam"))
	assert.Equal(t, Postgres, DialectFor("postgresql://localhost/aayam"))
	assert.Equal(t, SQLite, DialectFor("aayam.db?_pragma=foreign_keys(1)"))
	assert.Equal(t, SQLite, DialectFor("file:x?mode=memory"))
}

func TestIsUniqueViolationPostgres(t *testing.T) {
	err := &pq.Error{Code: "23505", Constraint: "signups_participant_email_key"}
	assert.True(t, IsUniqueViolation(err, "participant_email"))
	assert.True(t, IsUniqueViolation(err, ""))
	assert.False(t, IsUniqueViolation(err, "referral_code"))

	fk := &pq.Error{Code: "23503", Constraint: "signups_ambassador_id_fkey"}
	assert.False(t, IsUniqueViolation(fk, ""))

	assert.False(t, IsUniqueViolation(nil, ""))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
}
