// Package permission manages the row-filter permissions of datasets and their
// CSV import and export.
package permission

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"qs-rls-manager/internal/domain"
	"qs-rls-manager/internal/rlscsv"
)

// maxImportBytes caps the size of an imported CSV.
const maxImportBytes = 16 << 20

// Service provides permission CRUD and CSV import/export.
type Service struct {
	permissions domain.PermissionRepository
	datasets    domain.DatasetRepository
	directory   domain.PrincipalDirectory
	logger      *slog.Logger
}

// NewService creates a Service. directory resolves principal names during
// import and may be nil when only the ARN dialect is used.
func NewService(permissions domain.PermissionRepository, datasets domain.DatasetRepository, directory domain.PrincipalDirectory, logger *slog.Logger) *Service {
	return &Service{
		permissions: permissions,
		datasets:    datasets,
		directory:   directory,
		logger:      logger.With("component", "permission"),
	}
}

// editableDataset loads a dataset and rejects rules datasets, whose content
// is owned by the dataset that references them.
func (s *Service) editableDataset(ctx context.Context, dataSetArn string) (*domain.Dataset, error) {
	ds, err := s.datasets.Get(ctx, dataSetArn)
	if err != nil {
		return nil, err
	}
	if ds.IsRLS {
		return nil, domain.ErrValidation("dataset %s is a rules dataset; edit the permissions of the dataset it filters", dataSetArn)
	}
	return ds, nil
}

// List returns the permissions of a dataset.
func (s *Service) List(ctx context.Context, dataSetArn string) ([]domain.Permission, error) {
	if _, err := s.datasets.Get(ctx, dataSetArn); err != nil {
		return nil, err
	}
	return s.permissions.ListForDataset(ctx, dataSetArn)
}

// Get returns a permission by ID.
func (s *Service) Get(ctx context.Context, id string) (*domain.Permission, error) {
	return s.permissions.GetByID(ctx, id)
}

// Create adds a permission. The field must be "*" or one of the dataset's fields.
func (s *Service) Create(ctx context.Context, req domain.CreatePermissionRequest) (*domain.Permission, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ds, err := s.editableDataset(ctx, req.DataSetArn)
	if err != nil {
		return nil, err
	}
	if err := checkField(ds, req.Field); err != nil {
		return nil, err
	}

	p, err := s.permissions.Create(ctx, &domain.Permission{
		DataSetArn:   req.DataSetArn,
		UserGroupArn: req.UserGroupArn,
		Field:        req.Field,
		RLSValues:    req.RLSValues,
		Status:       req.Status,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("permission created", "id", p.ID, "dataset", p.DataSetArn, "principal", p.UserGroupArn, "field", p.Field)
	return p, nil
}

// Update changes the mutable fields of a permission.
func (s *Service) Update(ctx context.Context, id string, req domain.UpdatePermissionRequest) (*domain.Permission, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	existing, err := s.permissions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Field != nil {
		ds, err := s.editableDataset(ctx, existing.DataSetArn)
		if err != nil {
			return nil, err
		}
		if err := checkField(ds, *req.Field); err != nil {
			return nil, err
		}
	}
	p, err := s.permissions.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("permission updated", "id", id)
	return p, nil
}

// Delete removes a permission.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.permissions.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("permission deleted", "id", id)
	return nil
}

// ExportCSV renders the dataset's permissions exactly as a publish would.
func (s *Service) ExportCSV(ctx context.Context, dataSetArn string) (*rlscsv.Document, error) {
	ds, err := s.editableDataset(ctx, dataSetArn)
	if err != nil {
		return nil, err
	}
	perms, err := s.permissions.ListForDataset(ctx, dataSetArn)
	if err != nil {
		return nil, err
	}
	return rlscsv.Serialize(perms, ds.FieldTypes)
}

// ImportResult describes a parsed CSV and whether it replaced the stored set.
type ImportResult struct {
	Parse   *rlscsv.ParseResult
	Applied bool
	// Stored is the number of permissions written when Applied.
	Stored int
}

// ImportCSV parses a CSV in any dialect. Names are resolved against the
// principal directory of the dataset's region. With apply set, the resolved
// permissions replace the dataset's whole permission set in one transaction;
// rows that could not be resolved are reported and left out.
func (s *Service) ImportCSV(ctx context.Context, dataSetArn string, r io.Reader, apply bool) (*ImportResult, error) {
	ds, err := s.editableDataset(ctx, dataSetArn)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(r, maxImportBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(body) > maxImportBytes {
		return nil, domain.ErrValidation("csv exceeds %d bytes", maxImportBytes)
	}

	opts := rlscsv.ParseOptions{DataSetArn: dataSetArn, FieldTypes: ds.FieldTypes}
	res, err := rlscsv.Parse(bytes.NewReader(body), opts)
	if err != nil {
		return nil, err
	}
	if res.Dialect != rlscsv.DialectARN {
		if s.directory == nil {
			return nil, domain.ErrValidation("%s csv needs a principal directory to resolve names", res.Dialect)
		}
		region, err := datasetRegion(ds)
		if err != nil {
			return nil, err
		}
		opts.Users, opts.Groups, err = s.directory.Principals(ctx, region)
		if err != nil {
			return nil, fmt.Errorf("load principals: %w", err)
		}
		if res, err = rlscsv.Parse(bytes.NewReader(body), opts); err != nil {
			return nil, err
		}
	}
	for _, f := range res.Fields {
		if err := checkField(ds, f); err != nil {
			return nil, err
		}
	}

	out := &ImportResult{Parse: res}
	if !apply {
		return out, nil
	}
	perms := res.Resolved()
	if err := s.permissions.ReplaceForDataset(ctx, dataSetArn, perms); err != nil {
		return nil, err
	}
	out.Applied, out.Stored = true, len(perms)
	s.logger.Info("permissions imported", "dataset", dataSetArn, "dialect", res.Dialect.String(),
		"stored", len(perms), "warnings", res.Warnings())
	return out, nil
}

func datasetRegion(ds *domain.Dataset) (string, error) {
	if ds.Region != "" {
		return ds.Region, nil
	}
	return domain.RegionFromARN(ds.DataSetArn)
}

// checkField accepts "*" and, when the dataset's fields are known, any of them.
func checkField(ds *domain.Dataset, field string) error {
	if field == domain.Wildcard || len(ds.FieldTypes) == 0 {
		return nil
	}
	if _, ok := ds.FieldTypes.Lookup(field); !ok {
		return domain.ErrValidation("dataset %s has no field %q", ds.DataSetID, field)
	}
	return nil
}
