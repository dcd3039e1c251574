package rls

import (
	"context"
	"fmt"
	"strings"

	"qs-rls-manager/internal/domain"
)

const csvContentType = "text/csv"

// AuthoritativeColumns drops blank names from a header and removes
// duplicates, keeping first occurrences in order.
func AuthoritativeColumns(header []string) ([]string, error) {
	seen := make(map[string]bool, len(header))
	out := make([]string, 0, len(header))
	for _, h := range header {
		h = strings.TrimSpace(h)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	if len(out) == 0 {
		return nil, domain.ErrValidation("no usable columns in CSV header")
	}
	return out, nil
}

// UploadResult identifies the object version written by UploadCSV.
type UploadResult struct {
	Key       string
	VersionID string
}

// UploadCSV writes csv to the dataset's fixed key. On a versioned bucket
// every call adds a version.
func UploadCSV(ctx context.Context, store domain.ObjectStore, bucket, dataSetID string, csv []byte) (*UploadResult, error) {
	key := ObjectKey(dataSetID)
	versionID, err := store.PutObject(ctx, bucket, key, csv, csvContentType)
	if err != nil {
		return nil, fmt.Errorf("upload s3://%s/%s: %w", bucket, key, err)
	}
	return &UploadResult{Key: key, VersionID: versionID}, nil
}

// EnsureTable creates the dataset's catalog table or updates its columns.
// A create that loses a race to a concurrent create falls back to update, and
// an update of a table deleted in the meantime falls back to create, so
// re-running always converges on the same table.
func EnsureTable(ctx context.Context, catalog domain.Catalog, database string, table domain.CatalogTable, sink domain.PipelineSink) error {
	_, err := catalog.GetTable(ctx, database, table.Name)
	switch {
	case err == nil:
		return updateTable(ctx, catalog, database, table, sink)
	case domain.IsNotFound(err):
		return createTable(ctx, catalog, database, table, sink)
	default:
		return fmt.Errorf("look up table %s.%s: %w", database, table.Name, err)
	}
}

func createTable(ctx context.Context, catalog domain.Catalog, database string, table domain.CatalogTable, sink domain.PipelineSink) error {
	err := catalog.CreateTable(ctx, database, table)
	if err == nil {
		sink.Log(domain.SeverityInfo, fmt.Sprintf("Created table %s.%s with %d columns", database, table.Name, len(table.Columns)))
		return nil
	}
	if isAlreadyExists(err) {
		sink.Log(domain.SeverityWarning, fmt.Sprintf("Table %s.%s appeared concurrently, updating it instead", database, table.Name))
		if uerr := catalog.UpdateTable(ctx, database, table); uerr != nil {
			return fmt.Errorf("update table %s.%s: %w", database, table.Name, uerr)
		}
		return nil
	}
	return fmt.Errorf("create table %s.%s: %w", database, table.Name, err)
}

func updateTable(ctx context.Context, catalog domain.Catalog, database string, table domain.CatalogTable, sink domain.PipelineSink) error {
	err := catalog.UpdateTable(ctx, database, table)
	if err == nil {
		sink.Log(domain.SeverityInfo, fmt.Sprintf("Updated table %s.%s to %d columns", database, table.Name, len(table.Columns)))
		return nil
	}
	if domain.IsNotFound(err) {
		sink.Log(domain.SeverityWarning, fmt.Sprintf("Table %s.%s vanished before update, creating it", database, table.Name))
		if cerr := catalog.CreateTable(ctx, database, table); cerr != nil {
			return fmt.Errorf("create table %s.%s: %w", database, table.Name, cerr)
		}
		return nil
	}
	return fmt.Errorf("update table %s.%s: %w", database, table.Name, err)
}

func isAlreadyExists(err error) bool {
	status, code := domain.Classify(err)
	return status == 409 && strings.Contains(strings.ToLower(code), "exists")
}

// rulesTable describes the catalog table over a dataset's rules CSV.
func rulesTable(bucket, dataSetID string, columns []string) domain.CatalogTable {
	return domain.CatalogTable{
		Name:     TableName(dataSetID),
		Location: TableLocation(bucket, dataSetID),
		Columns:  columns,
		Format:   domain.CSVFormat,
	}
}
