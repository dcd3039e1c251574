package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"qs-rls-manager/internal/domain"
)

const datasetColumns = `data_set_arn, data_set_id, name, region, rls_enabled, rls_tool_managed,
	rls_data_set_id, is_rls, tool_created, api_manageable, field_types, glue_s3_id,
	current_version, last_published_version, last_published_at, created_at, updated_at`

// DatasetRepo persists dataset mirrors, both data and rules datasets.
type DatasetRepo struct {
	db *sql.DB
}

// NewDatasetRepo creates a new DatasetRepo.
func NewDatasetRepo(db *sql.DB) *DatasetRepo {
	return &DatasetRepo{db: db}
}

var _ domain.DatasetRepository = (*DatasetRepo)(nil)

func (r *DatasetRepo) Create(ctx context.Context, d *domain.Dataset) (*domain.Dataset, error) {
	row := *d
	if row.RLSEnabled == "" {
		row.RLSEnabled = domain.RLSDisabled
	}
	now := time.Now().UTC()
	row.CreatedAt, row.UpdatedAt = now, now

	fieldTypes, err := encodeFieldTypes(row.FieldTypes)
	if err != nil {
		return nil, err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO datasets (`+datasetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.DataSetArn, row.DataSetID, row.Name, row.Region, row.RLSEnabled, boolToInt(row.RLSToolManaged),
		nullString(row.RLSDataSetID), boolToInt(row.IsRLS), boolToInt(row.ToolCreated), boolToInt(row.APIManageable),
		fieldTypes, nullString(row.GlueS3ID), row.CurrentVersion, row.LastPublishedVersion,
		nullTime(row.LastPublishedAt), formatTime(row.CreatedAt), formatTime(row.UpdatedAt))
	if err != nil {
		return nil, mapDBError(err)
	}
	return &row, nil
}

func (r *DatasetRepo) Get(ctx context.Context, dataSetArn string) (*domain.Dataset, error) {
	d, err := scanDataset(r.db.QueryRowContext(ctx,
		`SELECT `+datasetColumns+` FROM datasets WHERE data_set_arn = ?`, dataSetArn))
	if err != nil {
		if domain.IsNotFound(mapDBError(err)) {
			return nil, domain.ErrNotFound("dataset %q not found", dataSetArn)
		}
		return nil, err
	}
	return d, nil
}

func (r *DatasetRepo) List(ctx context.Context, filter domain.DatasetFilter, page domain.PageRequest) ([]domain.Dataset, int64, error) {
	where, args := filterClause(filter)
	if where == "" {
		where = "1 = 1"
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM datasets WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + datasetColumns + ` FROM datasets WHERE ` + where + ` ORDER BY data_set_arn LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, page.Limit(), page.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

func (r *DatasetRepo) Update(ctx context.Context, dataSetArn string, u domain.DatasetUpdate) (*domain.Dataset, error) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if u.RLSEnabled != nil {
		set("rls_enabled", *u.RLSEnabled)
	}
	if u.RLSToolManaged != nil {
		set("rls_tool_managed", boolToInt(*u.RLSToolManaged))
	}
	switch {
	case u.ClearRLSDataSetID:
		set("rls_data_set_id", nil)
	case u.RLSDataSetID != nil:
		set("rls_data_set_id", *u.RLSDataSetID)
	}
	if u.ToolCreated != nil {
		set("tool_created", boolToInt(*u.ToolCreated))
	}
	if u.FieldTypes != nil {
		fieldTypes, err := encodeFieldTypes(u.FieldTypes)
		if err != nil {
			return nil, err
		}
		set("field_types", fieldTypes)
	}
	if u.CurrentVersion != nil {
		set("current_version", *u.CurrentVersion)
	}
	if u.LastPublishedVersion != nil {
		set("last_published_version", *u.LastPublishedVersion)
	}
	if u.LastPublishedAt != nil {
		set("last_published_at", formatTime(*u.LastPublishedAt))
	}
	set("updated_at", formatTime(time.Now().UTC()))

	args = append(args, dataSetArn)
	res, err := r.db.ExecContext(ctx,
		`UPDATE datasets SET `+strings.Join(sets, ", ")+` WHERE data_set_arn = ?`, args...)
	if err != nil {
		return nil, mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound("dataset %q not found", dataSetArn)
	}
	return r.Get(ctx, dataSetArn)
}

func (r *DatasetRepo) Delete(ctx context.Context, dataSetArn string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM datasets WHERE data_set_arn = ?`, dataSetArn)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("dataset %q not found", dataSetArn)
	}
	return nil
}

// filterClause renders a DatasetFilter as a parenthesised SQL predicate.
// An empty filter renders as "".
func filterClause(f domain.DatasetFilter) (string, []any) {
	var parts []string
	var args []any
	eq := func(col string, v any) {
		parts = append(parts, col+" = ?")
		args = append(args, v)
	}

	if f.DataSetID != nil {
		eq("data_set_id", *f.DataSetID)
	}
	if f.Region != nil {
		eq("region", *f.Region)
	}
	if f.RLSDataSetID != nil {
		eq("rls_data_set_id", *f.RLSDataSetID)
	}
	if f.IsRLS != nil {
		eq("is_rls", boolToInt(*f.IsRLS))
	}
	if f.ToolCreated != nil {
		eq("tool_created", boolToInt(*f.ToolCreated))
	}
	if f.GlueS3ID != nil {
		eq("glue_s3_id", *f.GlueS3ID)
	}

	if len(f.Or) > 0 {
		var alts []string
		var altArgs []any
		matchAll := false
		for _, sub := range f.Or {
			clause, subArgs := filterClause(sub)
			if clause == "" {
				// An empty alternative matches every row.
				matchAll = true
				break
			}
			alts = append(alts, clause)
			altArgs = append(altArgs, subArgs...)
		}
		if !matchAll {
			parts = append(parts, "("+strings.Join(alts, " OR ")+")")
			args = append(args, altArgs...)
		}
	}

	if len(parts) == 0 {
		return "", nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", args
}

func encodeFieldTypes(f domain.FieldTypes) (string, error) {
	if f == nil {
		return "{}", nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encode field types: %w", err)
	}
	return string(b), nil
}

func scanDataset(s scanner) (*domain.Dataset, error) {
	var d domain.Dataset
	var rlsToolManaged, isRLS, toolCreated, apiManageable int64
	var rlsDataSetID, glueS3ID, lastPublishedAt sql.NullString
	var fieldTypes, createdAt, updatedAt string
	err := s.Scan(&d.DataSetArn, &d.DataSetID, &d.Name, &d.Region, &d.RLSEnabled, &rlsToolManaged,
		&rlsDataSetID, &isRLS, &toolCreated, &apiManageable, &fieldTypes, &glueS3ID,
		&d.CurrentVersion, &d.LastPublishedVersion, &lastPublishedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	d.RLSToolManaged = rlsToolManaged != 0
	d.IsRLS = isRLS != 0
	d.ToolCreated = toolCreated != 0
	d.APIManageable = apiManageable != 0
	d.RLSDataSetID = stringPtr(rlsDataSetID)
	d.GlueS3ID = stringPtr(glueS3ID)
	d.LastPublishedAt = timePtr(lastPublishedAt)
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	if err := json.Unmarshal([]byte(fieldTypes), &d.FieldTypes); err != nil {
		return nil, fmt.Errorf("decode field types of %s: %w", d.DataSetArn, err)
	}
	return &d, nil
}
