package repository

import (
	"context"
	"database/sql"
	"time"

	"qs-rls-manager/internal/domain"
)

// RegionRepo persists the managed-region registry.
type RegionRepo struct {
	db *sql.DB
}

// NewRegionRepo creates a new RegionRepo.
func NewRegionRepo(db *sql.DB) *RegionRepo {
	return &RegionRepo{db: db}
}

var _ domain.RegionRepository = (*RegionRepo)(nil)

func (r *RegionRepo) Get(ctx context.Context, region string) (*domain.ManagedRegion, error) {
	m, err := scanRegion(r.db.QueryRowContext(ctx,
		`SELECT region, bucket_name, glue_database_name, data_source_name, created_at, updated_at
		 FROM managed_regions WHERE region = ?`, region))
	if err != nil {
		if domain.IsNotFound(mapDBError(err)) {
			return nil, domain.ErrNotFound("region %q is not managed", region)
		}
		return nil, err
	}
	return m, nil
}

func (r *RegionRepo) List(ctx context.Context) ([]domain.ManagedRegion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT region, bucket_name, glue_database_name, data_source_name, created_at, updated_at
		 FROM managed_regions ORDER BY region`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ManagedRegion
	for rows.Next() {
		m, err := scanRegion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *RegionRepo) Upsert(ctx context.Context, m *domain.ManagedRegion) (*domain.ManagedRegion, error) {
	now := formatTime(time.Now().UTC())
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO managed_regions (region, bucket_name, glue_database_name, data_source_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (region) DO UPDATE SET
		   bucket_name = excluded.bucket_name,
		   glue_database_name = excluded.glue_database_name,
		   data_source_name = excluded.data_source_name,
		   updated_at = excluded.updated_at`,
		m.Region, m.BucketName, m.GlueDatabaseName, m.DataSourceName, now, now)
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.Get(ctx, m.Region)
}

func scanRegion(s scanner) (*domain.ManagedRegion, error) {
	var m domain.ManagedRegion
	var createdAt, updatedAt string
	if err := s.Scan(&m.Region, &m.BucketName, &m.GlueDatabaseName, &m.DataSourceName, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	return &m, nil
}
