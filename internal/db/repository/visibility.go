package repository

import (
	"context"
	"database/sql"
	"time"

	"qs-rls-manager/internal/domain"
)

// VisibilityRepo persists rules-dataset visibility grants.
type VisibilityRepo struct {
	db *sql.DB
}

// NewVisibilityRepo creates a new VisibilityRepo.
func NewVisibilityRepo(db *sql.DB) *VisibilityRepo {
	return &VisibilityRepo{db: db}
}

var _ domain.VisibilityRepository = (*VisibilityRepo)(nil)

func (r *VisibilityRepo) ListForDataset(ctx context.Context, dataSetArn string) ([]domain.RLSDataSetVisibility, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, data_set_arn, principal_arn, level, created_at
		 FROM rls_dataset_visibility WHERE data_set_arn = ? ORDER BY principal_arn`, dataSetArn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RLSDataSetVisibility
	for rows.Next() {
		var v domain.RLSDataSetVisibility
		var createdAt string
		if err := rows.Scan(&v.ID, &v.DataSetArn, &v.PrincipalArn, &v.Level, &createdAt); err != nil {
			return nil, err
		}
		v.CreatedAt = parseTime(createdAt)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *VisibilityRepo) ReplaceForDataset(ctx context.Context, dataSetArn string, grants []domain.RLSDataSetVisibility) error {
	now := formatTime(time.Now().UTC())
	return mapDBError(withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM rls_dataset_visibility WHERE data_set_arn = ?`, dataSetArn); err != nil {
			return err
		}
		for _, g := range grants {
			id := g.ID
			if id == "" {
				id = domain.NewID()
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO rls_dataset_visibility (id, data_set_arn, principal_arn, level, created_at) VALUES (?, ?, ?, ?, ?)`,
				id, dataSetArn, g.PrincipalArn, g.Level, now); err != nil {
				return err
			}
		}
		return nil
	}))
}
