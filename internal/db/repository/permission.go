package repository

import (
	"context"
	"database/sql"
	"time"

	"qs-rls-manager/internal/domain"
)

const permissionColumns = `id, data_set_arn, user_group_arn, field, rls_values, status, created_at, updated_at`

// PermissionRepo persists row-filter permissions.
type PermissionRepo struct {
	db *sql.DB
}

// NewPermissionRepo creates a new PermissionRepo.
func NewPermissionRepo(db *sql.DB) *PermissionRepo {
	return &PermissionRepo{db: db}
}

var _ domain.PermissionRepository = (*PermissionRepo)(nil)

func (r *PermissionRepo) Create(ctx context.Context, p *domain.Permission) (*domain.Permission, error) {
	row := *p
	if row.ID == "" {
		row.ID = domain.NewID()
	}
	if row.Status == "" {
		row.Status = domain.PermissionPending
	}
	now := time.Now().UTC()
	row.CreatedAt, row.UpdatedAt = now, now

	if err := insertPermission(ctx, r.db, &row); err != nil {
		return nil, mapDBError(err)
	}
	return &row, nil
}

func (r *PermissionRepo) GetByID(ctx context.Context, id string) (*domain.Permission, error) {
	p, err := scanPermission(r.db.QueryRowContext(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE id = ?`, id))
	if err != nil {
		return nil, mapDBError(err)
	}
	return p, nil
}

func (r *PermissionRepo) Update(ctx context.Context, id string, req domain.UpdatePermissionRequest) (*domain.Permission, error) {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Field != nil {
		existing.Field = *req.Field
	}
	if req.RLSValues != nil {
		existing.RLSValues = *req.RLSValues
	}
	if req.Status != nil {
		existing.Status = *req.Status
	}
	existing.UpdatedAt = time.Now().UTC()

	_, err = r.db.ExecContext(ctx,
		`UPDATE permissions SET field = ?, rls_values = ?, status = ?, updated_at = ? WHERE id = ?`,
		existing.Field, existing.RLSValues, existing.Status, formatTime(existing.UpdatedAt), id)
	if err != nil {
		return nil, mapDBError(err)
	}
	return existing, nil
}

func (r *PermissionRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM permissions WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("permission %q not found", id)
	}
	return nil
}

func (r *PermissionRepo) ListForDataset(ctx context.Context, dataSetArn string) ([]domain.Permission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE data_set_arn = ? ORDER BY user_group_arn, field`,
		dataSetArn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []domain.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, *p)
	}
	return perms, rows.Err()
}

func (r *PermissionRepo) ReplaceForDataset(ctx context.Context, dataSetArn string, perms []domain.Permission) error {
	now := time.Now().UTC()
	return mapDBError(withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM permissions WHERE data_set_arn = ?`, dataSetArn); err != nil {
			return err
		}
		for i := range perms {
			p := perms[i]
			p.DataSetArn = dataSetArn
			if p.ID == "" {
				p.ID = domain.NewID()
			}
			if p.Status == "" {
				p.Status = domain.PermissionPending
			}
			p.CreatedAt, p.UpdatedAt = now, now
			if err := insertPermission(ctx, tx, &p); err != nil {
				return err
			}
		}
		return nil
	}))
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertPermission(ctx context.Context, db execer, p *domain.Permission) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO permissions (`+permissionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.DataSetArn, p.UserGroupArn, p.Field, p.RLSValues, p.Status,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	return err
}

func scanPermission(s scanner) (*domain.Permission, error) {
	var p domain.Permission
	var createdAt, updatedAt string
	if err := s.Scan(&p.ID, &p.DataSetArn, &p.UserGroupArn, &p.Field, &p.RLSValues, &p.Status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}
