package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"oem-seo-api/internal/model"
)

// AuditRepo stores prefix audit results
type AuditRepo struct {
	pool *pgxpool.Pool
}

// NewAuditRepo creates a new audit repository
func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Upsert inserts the audit of a combination or replaces the previous one
func (r *AuditRepo) Upsert(ctx context.Context, audit model.PrefixAudit) error {
	query := `
		INSERT INTO oem_prefix_audit (
			type_id, gamme_id, brand_name, prefixes, total_refs, filtered_count,
			reduction_percent, duplicates_removed, filter_applied, audited_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (type_id, gamme_id, brand_name) DO UPDATE SET
			prefixes = EXCLUDED.prefixes,
			total_refs = EXCLUDED.total_refs,
			filtered_count = EXCLUDED.filtered_count,
			reduction_percent = EXCLUDED.reduction_percent,
			duplicates_removed = EXCLUDED.duplicates_removed,
			filter_applied = EXCLUDED.filter_applied,
			audited_at = EXCLUDED.audited_at
	`

	prefixes := audit.Prefixes
	if prefixes == nil {
		prefixes = []string{}
	}

	_, err := r.pool.Exec(ctx, query,
		audit.TypeID,
		audit.GammeID,
		audit.Marque,
		prefixes,
		audit.TotalRefs,
		audit.FilteredCount,
		audit.ReductionPercent,
		audit.DuplicatesRemoved,
		audit.FilterApplied,
		audit.AuditedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert prefix audit: %w", err)
	}

	return nil
}

// CountFilterApplied returns how many audited combinations got a prefix filter
func (r *AuditRepo) CountFilterApplied(ctx context.Context) (applied, total int, err error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE filter_applied),
			COUNT(*)
		FROM oem_prefix_audit
	`

	if err := r.pool.QueryRow(ctx, query).Scan(&applied, &total); err != nil {
		return 0, 0, fmt.Errorf("failed to count prefix audits: %w", err)
	}
	return applied, total, nil
}
