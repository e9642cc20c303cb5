package db

// sqliteSchema is the full schema for the SQLite dialect.
//
//	admins            organiser accounts; created from the CLI only.
//	ambassadors       referral program members. No tier column: tier is
//	                  derived from signup_count on every read.
//	signups           recruited participants. participant_email is
//	                  globally UNIQUE across both creation paths.
//	tasks             promotional activities worth a points range.
//	task_submissions  proofs of completion awaiting or after review.
//	ambassador_points append-only ledger; a balance is SUM(points).
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS admins (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    name          TEXT NOT NULL DEFAULT '',
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS ambassadors (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    name          TEXT NOT NULL,
    phone         TEXT NOT NULL DEFAULT '',
    college       TEXT NOT NULL DEFAULT '',
    year          TEXT NOT NULL DEFAULT '',
    motivation    TEXT NOT NULL DEFAULT '',
    referral_code TEXT NOT NULL UNIQUE,
    status        TEXT NOT NULL DEFAULT 'pending'
                      CHECK(status IN ('pending','approved','rejected')),
    signup_count  INTEGER NOT NULL DEFAULT 0 CHECK(signup_count >= 0),
    approved_at   DATETIME,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS signups (
    id                  TEXT PRIMARY KEY,
    ambassador_id       TEXT NOT NULL REFERENCES ambassadors(id),
    participant_name    TEXT NOT NULL,
    participant_email   TEXT NOT NULL UNIQUE,
    participant_phone   TEXT NOT NULL DEFAULT '',
    participant_college TEXT NOT NULL DEFAULT '',
    status              TEXT NOT NULL DEFAULT 'pending'
                            CHECK(status IN ('pending','approved','rejected')),
    source              TEXT NOT NULL DEFAULT 'submitted'
                            CHECK(source IN ('submitted','bulk')),
    registered_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    approved_at         DATETIME,
    approved_by         TEXT
);

CREATE INDEX IF NOT EXISTS idx_signups_ambassador ON signups (ambassador_id);

CREATE TABLE IF NOT EXISTS tasks (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL UNIQUE,
    description    TEXT NOT NULL DEFAULT '',
    points_min     INTEGER NOT NULL CHECK(points_min >= 0),
    points_max     INTEGER NOT NULL,
    required_proof TEXT NOT NULL CHECK(required_proof IN ('link','screenshot','video','text')),
    active         INTEGER NOT NULL DEFAULT 1,
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK (points_min <= points_max)
);

CREATE TABLE IF NOT EXISTS task_submissions (
    id               TEXT PRIMARY KEY,
    ambassador_id    TEXT NOT NULL REFERENCES ambassadors(id),
    task_id          TEXT NOT NULL REFERENCES tasks(id),
    proof_link       TEXT NOT NULL DEFAULT '',
    proof_screenshot TEXT NOT NULL DEFAULT '',
    status           TEXT NOT NULL DEFAULT 'pending'
                         CHECK(status IN ('pending','approved','rejected')),
    points_awarded   INTEGER,
    admin_notes      TEXT NOT NULL DEFAULT '',
    submitted_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    reviewed_at      DATETIME,
    reviewed_by      TEXT
);

CREATE INDEX IF NOT EXISTS idx_task_submissions_daily
    ON task_submissions (ambassador_id, task_id, submitted_at);

CREATE TABLE IF NOT EXISTS ambassador_points (
    id            TEXT PRIMARY KEY,
    ambassador_id TEXT NOT NULL REFERENCES ambassadors(id),
    points        INTEGER NOT NULL,
    source        TEXT NOT NULL CHECK(source IN ('task','signup','admin','conversion')),
    reference_id  TEXT,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_ambassador_points_owner ON ambassador_points (ambassador_id)
`

// postgresSchema mirrors sqliteSchema with PostgreSQL types. Unique
// constraints are named so IsUniqueViolation can tell them apart.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS admins (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL CONSTRAINT admins_email_key UNIQUE,
    password_hash TEXT NOT NULL,
    name          TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS ambassadors (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL CONSTRAINT ambassadors_email_key UNIQUE,
    password_hash TEXT NOT NULL,
    name          TEXT NOT NULL,
    phone         TEXT NOT NULL DEFAULT '',
    college       TEXT NOT NULL DEFAULT '',
    year          TEXT NOT NULL DEFAULT '',
    motivation    TEXT NOT NULL DEFAULT '',
    referral_code TEXT NOT NULL CONSTRAINT ambassadors_referral_code_key UNIQUE,
    status        TEXT NOT NULL DEFAULT 'pending'
                      CHECK(status IN ('pending','approved','rejected')),
    signup_count  INTEGER NOT NULL DEFAULT 0 CHECK(signup_count >= 0),
    approved_at   TIMESTAMPTZ,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS signups (
    id                  TEXT PRIMARY KEY,
    ambassador_id       TEXT NOT NULL REFERENCES ambassadors(id),
    participant_name    TEXT NOT NULL,
    participant_email   TEXT NOT NULL CONSTRAINT signups_participant_email_key UNIQUE,
    participant_phone   TEXT NOT NULL DEFAULT '',
    participant_college TEXT NOT NULL DEFAULT '',
    status              TEXT NOT NULL DEFAULT 'pending'
                            CHECK(status IN ('pending','approved','rejected')),
    source              TEXT NOT NULL DEFAULT 'submitted'
                            CHECK(source IN ('submitted','bulk')),
    registered_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    approved_at         TIMESTAMPTZ,
    approved_by         TEXT
);

CREATE INDEX IF NOT EXISTS idx_signups_ambassador ON signups (ambassador_id);

CREATE TABLE IF NOT EXISTS tasks (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL CONSTRAINT tasks_name_key UNIQUE,
    description    TEXT NOT NULL DEFAULT '',
    points_min     INTEGER NOT NULL CHECK(points_min >= 0),
    points_max     INTEGER NOT NULL,
    required_proof TEXT NOT NULL CHECK(required_proof IN ('link','screenshot','video','text')),
    active         BOOLEAN NOT NULL DEFAULT TRUE,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (points_min <= points_max)
);

CREATE TABLE IF NOT EXISTS task_submissions (
    id               TEXT PRIMARY KEY,
    ambassador_id    TEXT NOT NULL REFERENCES ambassadors(id),
    task_id          TEXT NOT NULL REFERENCES tasks(id),
    proof_link       TEXT NOT NULL DEFAULT '',
    proof_screenshot TEXT NOT NULL DEFAULT '',
    status           TEXT NOT NULL DEFAULT 'pending'
                         CHECK(status IN ('pending','approved','rejected')),
    points_awarded   INTEGER,
    admin_notes      TEXT NOT NULL DEFAULT '',
    submitted_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    reviewed_at      TIMESTAMPTZ,
    reviewed_by      TEXT
);

CREATE INDEX IF NOT EXISTS idx_task_submissions_daily
    ON task_submissions (ambassador_id, task_id, submitted_at);

CREATE TABLE IF NOT EXISTS ambassador_points (
    id            TEXT PRIMARY KEY,
    ambassador_id TEXT NOT NULL REFERENCES ambassadors(id),
    points        INTEGER NOT NULL,
    source        TEXT NOT NULL CHECK(source IN ('task','signup','admin','conversion')),
    reference_id  TEXT,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_ambassador_points_owner ON ambassador_points (ambassador_id)
`
