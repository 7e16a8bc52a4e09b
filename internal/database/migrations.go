package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations creates the tables owned by this service. The OEM reference
// table itself belongs to the catalog and is never created here.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS oem_prefix_audit (
			type_id            INTEGER     NOT NULL,
			gamme_id           INTEGER     NOT NULL,
			brand_name         TEXT        NOT NULL,
			prefixes           TEXT[]      NOT NULL DEFAULT '{}',
			total_refs         INTEGER     NOT NULL,
			filtered_count     INTEGER     NOT NULL,
			reduction_percent  INTEGER     NOT NULL,
			duplicates_removed INTEGER     NOT NULL,
			filter_applied     BOOLEAN     NOT NULL,
			audited_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (type_id, gamme_id, brand_name)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create oem_prefix_audit table: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_oem_prefix_audit_applied
		ON oem_prefix_audit (filter_applied)
	`)
	if err != nil {
		return fmt.Errorf("failed to create idx_oem_prefix_audit_applied: %w", err)
	}

	return nil
}
