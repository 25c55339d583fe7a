package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the bulkpay store.
var Migrations = migrate.NewGroup("bulkpay")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_bulkpay_lists",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS bulkpay_lists (
    id            TEXT PRIMARY KEY,
    token_id      TEXT NOT NULL,
    submitter     TEXT NOT NULL,
    status        TEXT NOT NULL DEFAULT 'pending',
    payments      JSONB NOT NULL DEFAULT '[]',
    record_count  INT NOT NULL DEFAULT 0,
    pending_count INT NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_bulkpay_lists_status ON bulkpay_lists (status, created_at);
CREATE INDEX IF NOT EXISTS idx_bulkpay_lists_submitter ON bulkpay_lists (submitter, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS bulkpay_lists`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_bulkpay_credits",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS bulkpay_credits (
    account    TEXT PRIMARY KEY,
    credits    BIGINT NOT NULL DEFAULT 0 CHECK (credits >= 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS bulkpay_credits`)
				return err
			},
		},
	)
}
