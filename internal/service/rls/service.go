// Package rls implements the publish, delete and rollback pipelines that
// carry row-level security rules from the administrative store through object
// storage, the data catalog and the BI service.
package rls

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"qs-rls-manager/internal/domain"
	"qs-rls-manager/internal/metrics"
)

// Deps are the collaborators of a Service.
type Deps struct {
	Datasets    domain.DatasetRepository
	Permissions domain.PermissionRepository
	History     domain.PublishHistoryRepository
	Visibility  domain.VisibilityRepository
	Regions     domain.RegionRepository
	Clients     domain.ClientRegistry
	Monitor     *Monitor
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	// AdminPrincipal is always kept as owner of generated rules datasets.
	AdminPrincipal string
}

// Service runs the RLS pipelines. Pipelines on the same dataset are not
// serialised; the dataset record update at the end of a publish is
// last-writer-wins.
type Service struct {
	datasets       domain.DatasetRepository
	permissions    domain.PermissionRepository
	history        domain.PublishHistoryRepository
	visibility     domain.VisibilityRepository
	regions        domain.RegionRepository
	clients        domain.ClientRegistry
	monitor        *Monitor
	metrics        *metrics.Metrics
	logger         *slog.Logger
	adminPrincipal string
	now            func() time.Time
}

// NewService creates a Service.
func NewService(d Deps) *Service {
	mon := d.Monitor
	if mon == nil {
		mon = NewMonitor(DefaultPollInterval, d.Metrics)
	}
	return &Service{
		datasets:       d.Datasets,
		permissions:    d.Permissions,
		history:        d.History,
		visibility:     d.Visibility,
		regions:        d.Regions,
		clients:        d.Clients,
		monitor:        mon,
		metrics:        d.Metrics,
		logger:         d.Logger.With("component", "rls"),
		adminPrincipal: d.AdminPrincipal,
		now:            time.Now,
	}
}

// environment is the region-scoped context a pipeline runs in.
type environment struct {
	region  *domain.ManagedRegion
	clients *domain.CloudClients
}

// resolveEnvironment looks up the managed region of a dataset ARN and its clients.
func (s *Service) resolveEnvironment(ctx context.Context, arn string) (*environment, error) {
	regionName, err := domain.RegionFromARN(arn)
	if err != nil {
		return nil, err
	}
	region, err := s.regions.Get(ctx, regionName)
	if err != nil {
		return nil, err
	}
	if err := region.Validate(); err != nil {
		return nil, err
	}
	clients, err := s.clients.ForRegion(ctx, regionName)
	if err != nil {
		return nil, err
	}
	return &environment{region: region, clients: clients}, nil
}

// History returns the publish attempts of a dataset, newest first.
func (s *Service) History(ctx context.Context, dataSetArn string) ([]domain.PublishHistory, error) {
	if _, err := s.datasets.Get(ctx, dataSetArn); err != nil {
		return nil, err
	}
	return s.history.List(ctx, dataSetArn)
}

// Visibility returns the configured visibility grants of a dataset's rules dataset.
func (s *Service) Visibility(ctx context.Context, dataSetArn string) ([]domain.RLSDataSetVisibility, error) {
	if _, err := s.datasets.Get(ctx, dataSetArn); err != nil {
		return nil, err
	}
	return s.visibility.ListForDataset(ctx, dataSetArn)
}

// SetVisibility replaces the configured grants. When the dataset already has
// a tool-managed rules dataset the grants are applied to it right away;
// otherwise they take effect on the next publish.
func (s *Service) SetVisibility(ctx context.Context, dataSetArn string, grants []domain.RLSDataSetVisibility) ([]domain.RLSDataSetVisibility, error) {
	ds, err := s.datasets.Get(ctx, dataSetArn)
	if err != nil {
		return nil, err
	}
	if ds.IsRLS {
		return nil, domain.ErrValidation("dataset %s is a rules dataset; configure visibility on its target", dataSetArn)
	}
	seen := make(map[string]bool, len(grants))
	for i := range grants {
		if err := grants[i].Validate(); err != nil {
			return nil, err
		}
		if seen[grants[i].PrincipalArn] {
			return nil, domain.ErrValidation("principal %s is listed twice", grants[i].PrincipalArn)
		}
		seen[grants[i].PrincipalArn] = true
	}

	if err := s.visibility.ReplaceForDataset(ctx, dataSetArn, grants); err != nil {
		return nil, err
	}

	if ds.RLSToolManaged && ds.RLSDataSetID != nil {
		env, err := s.resolveEnvironment(ctx, dataSetArn)
		if err != nil {
			return nil, err
		}
		rulesID, err := domain.DataSetIDFromARN(*ds.RLSDataSetID)
		if err != nil {
			return nil, err
		}
		if _, err := SyncVisibility(ctx, env.clients.BI, rulesID, grants, s.adminPrincipal); err != nil {
			return nil, fmt.Errorf("apply visibility: %w", err)
		}
	}
	return s.visibility.ListForDataset(ctx, dataSetArn)
}

func (s *Service) finish(pipeline string, start time.Time, out *domain.Outcome) *domain.Outcome {
	s.metrics.ObservePipeline(pipeline, out.Status, s.now().Sub(start))
	return out
}
