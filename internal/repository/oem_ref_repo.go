package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"oem-seo-api/internal/model"
)

type OemRefRepo struct {
	db *pgxpool.Pool
}

func NewOemRefRepo(db *pgxpool.Pool) *OemRefRepo {
	return &OemRefRepo{db: db}
}

// ListRefs returns the raw OEM refs of a combination in insertion order, so
// the first-seen spelling of a ref is the one kept downstream
func (r *OemRefRepo) ListRefs(ctx context.Context, typeID, gammeID int, marque string) ([]string, error) {
	query := `
		SELECT o.ref_oem
		FROM oem_reference o
		WHERE o.type_id = $1
			AND o.gamme_id = $2
			AND UPPER(o.brand_name) = UPPER($3)
			AND o.ref_oem IS NOT NULL
		ORDER BY o.id
	`

	rows, err := r.db.Query(ctx, query, typeID, gammeID, strings.TrimSpace(marque))
	if err != nil {
		return nil, fmt.Errorf("failed to query oem refs: %w", err)
	}

	refs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan oem refs: %w", err)
	}

	return refs, nil
}

// ListCombinations returns every (type, gamme, brand) having at least one ref
func (r *OemRefRepo) ListCombinations(ctx context.Context) ([]model.Combination, error) {
	query := `
		SELECT DISTINCT o.type_id, o.gamme_id, UPPER(o.brand_name) AS marque
		FROM oem_reference o
		WHERE o.ref_oem IS NOT NULL
		ORDER BY o.type_id, o.gamme_id, marque
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query combinations: %w", err)
	}
	defer rows.Close()

	var combos []model.Combination
	for rows.Next() {
		var c model.Combination
		if err := rows.Scan(&c.TypeID, &c.GammeID, &c.Marque); err != nil {
			return nil, fmt.Errorf("failed to scan combination: %w", err)
		}
		combos = append(combos, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating combinations: %w", err)
	}

	return combos, nil
}
