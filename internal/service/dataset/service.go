// Package dataset manages the dataset mirrors and the managed regions they
// live in.
package dataset

import (
	"context"
	"log/slog"

	"qs-rls-manager/internal/domain"
)

// Service provides dataset registration and region configuration.
type Service struct {
	datasets domain.DatasetRepository
	regions  domain.RegionRepository
	logger   *slog.Logger
}

// NewService creates a Service.
func NewService(datasets domain.DatasetRepository, regions domain.RegionRepository, logger *slog.Logger) *Service {
	return &Service{datasets: datasets, regions: regions, logger: logger.With("component", "dataset")}
}

// RegisterRequest describes a BI dataset to mirror.
type RegisterRequest struct {
	DataSetArn string
	Name       string
	FieldTypes domain.FieldTypes
}

// Register mirrors a data dataset. Its region must already be managed.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.Dataset, error) {
	id, err := domain.DataSetIDFromARN(req.DataSetArn)
	if err != nil {
		return nil, err
	}
	region, err := domain.RegionFromARN(req.DataSetArn)
	if err != nil {
		return nil, err
	}
	if _, err := s.regions.Get(ctx, region); err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.ErrValidation("region %s is not managed; configure it first", region)
		}
		return nil, err
	}
	seen := make(map[string]bool, len(req.FieldTypes))
	for _, f := range req.FieldTypes {
		switch {
		case f.Name == "" || f.Name == domain.Wildcard:
			return nil, domain.ErrValidation("invalid field name %q", f.Name)
		case seen[f.Name]:
			return nil, domain.ErrValidation("field %q is listed twice", f.Name)
		}
		seen[f.Name] = true
	}

	ds, err := s.datasets.Create(ctx, &domain.Dataset{
		DataSetArn:    req.DataSetArn,
		DataSetID:     id,
		Name:          req.Name,
		Region:        region,
		RLSEnabled:    domain.RLSDisabled,
		APIManageable: true,
		FieldTypes:    req.FieldTypes,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("dataset registered", "dataset", ds.DataSetArn, "fields", len(ds.FieldTypes))
	return ds, nil
}

// Get returns a dataset by ARN.
func (s *Service) Get(ctx context.Context, dataSetArn string) (*domain.Dataset, error) {
	return s.datasets.Get(ctx, dataSetArn)
}

// List returns a page of datasets matching filter.
func (s *Service) List(ctx context.Context, filter domain.DatasetFilter, page domain.PageRequest) ([]domain.Dataset, int64, error) {
	return s.datasets.List(ctx, filter, page)
}

// ListRegions returns the managed regions.
func (s *Service) ListRegions(ctx context.Context) ([]domain.ManagedRegion, error) {
	return s.regions.List(ctx)
}

// PutRegion creates or replaces a managed region.
func (s *Service) PutRegion(ctx context.Context, r *domain.ManagedRegion) (*domain.ManagedRegion, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	out, err := s.regions.Upsert(ctx, r)
	if err != nil {
		return nil, err
	}
	s.logger.Info("region configured", "region", r.Region, "bucket", r.BucketName, "database", r.GlueDatabaseName)
	return out, nil
}
