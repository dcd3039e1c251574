package rls

import (
	"context"
	"fmt"

	"qs-rls-manager/internal/domain"
)

// ValidateResources checks, in order and stopping at the first failure, that
// the region's bucket is reachable, its catalog database exists and its BI
// data source can be described. It has no side effects.
func ValidateResources(ctx context.Context, clients *domain.CloudClients, region *domain.ManagedRegion) (*domain.DataSource, error) {
	if err := region.Validate(); err != nil {
		return nil, err
	}
	if err := clients.Storage.HeadBucket(ctx, region.BucketName); err != nil {
		return nil, fmt.Errorf("bucket %s: %w", region.BucketName, err)
	}
	if err := clients.Catalog.GetDatabase(ctx, region.GlueDatabaseName); err != nil {
		return nil, fmt.Errorf("catalog database %s: %w", region.GlueDatabaseName, err)
	}
	ds, err := clients.BI.DescribeDataSource(ctx, region.DataSourceName)
	if err != nil {
		return nil, fmt.Errorf("data source %s: %w", region.DataSourceName, err)
	}
	return ds, nil
}
