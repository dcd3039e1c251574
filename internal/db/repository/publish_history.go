package repository

import (
	"context"
	"database/sql"
	"time"

	"qs-rls-manager/internal/domain"
)

const historyColumns = `id, data_set_arn, version, published_at, s3_key, s3_version_id,
	rules_data_set_arn, permission_count, status, message, csv_snapshot`

// PublishHistoryRepo is the append-only log of publish attempts.
type PublishHistoryRepo struct {
	db *sql.DB
}

// NewPublishHistoryRepo creates a new PublishHistoryRepo.
func NewPublishHistoryRepo(db *sql.DB) *PublishHistoryRepo {
	return &PublishHistoryRepo{db: db}
}

var _ domain.PublishHistoryRepository = (*PublishHistoryRepo)(nil)

func (r *PublishHistoryRepo) Insert(ctx context.Context, h *domain.PublishHistory) (*domain.PublishHistory, error) {
	row := *h
	if row.ID == "" {
		row.ID = domain.NewID()
	}
	if row.PublishedAt.IsZero() {
		row.PublishedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO publish_history (`+historyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.DataSetArn, row.Version, formatTime(row.PublishedAt), row.S3Key, row.S3VersionID,
		row.RulesDataSetArn, row.PermissionCount, row.Status, row.Message, row.CSVSnapshot)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &row, nil
}

// List returns the dataset's attempts, newest first.
func (r *PublishHistoryRepo) List(ctx context.Context, dataSetArn string) ([]domain.PublishHistory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+historyColumns+` FROM publish_history WHERE data_set_arn = ? ORDER BY version DESC`, dataSetArn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PublishHistory
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

func (r *PublishHistoryRepo) GetVersion(ctx context.Context, dataSetArn string, version int) (*domain.PublishHistory, error) {
	h, err := scanHistory(r.db.QueryRowContext(ctx,
		`SELECT `+historyColumns+` FROM publish_history WHERE data_set_arn = ? AND version = ?`, dataSetArn, version))
	if err != nil {
		if domain.IsNotFound(mapDBError(err)) {
			return nil, domain.ErrNotFound("version %d of %q not found", version, dataSetArn)
		}
		return nil, err
	}
	return h, nil
}

// LatestVersion returns the highest recorded version, or 0.
func (r *PublishHistoryRepo) LatestVersion(ctx context.Context, dataSetArn string) (int, error) {
	var v sql.NullInt64
	if err := r.db.QueryRowContext(ctx,
		`SELECT MAX(version) FROM publish_history WHERE data_set_arn = ?`, dataSetArn).Scan(&v); err != nil {
		return 0, err
	}
	return int(v.Int64), nil
}

func scanHistory(s scanner) (*domain.PublishHistory, error) {
	var h domain.PublishHistory
	var publishedAt string
	err := s.Scan(&h.ID, &h.DataSetArn, &h.Version, &publishedAt, &h.S3Key, &h.S3VersionID,
		&h.RulesDataSetArn, &h.PermissionCount, &h.Status, &h.Message, &h.CSVSnapshot)
	if err != nil {
		return nil, err
	}
	h.PublishedAt = parseTime(publishedAt)
	return &h, nil
}
