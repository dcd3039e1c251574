package domain

import "context"

// PermissionRepository provides persistence for row-filter permissions.
type PermissionRepository interface {
	Create(ctx context.Context, p *Permission) (*Permission, error)
	GetByID(ctx context.Context, id string) (*Permission, error)
	Update(ctx context.Context, id string, req UpdatePermissionRequest) (*Permission, error)
	Delete(ctx context.Context, id string) error
	ListForDataset(ctx context.Context, dataSetArn string) ([]Permission, error)
	// ReplaceForDataset swaps the dataset's whole permission set in one transaction.
	ReplaceForDataset(ctx context.Context, dataSetArn string, perms []Permission) error
}

// DatasetRepository provides persistence for dataset mirrors.
type DatasetRepository interface {
	Create(ctx context.Context, d *Dataset) (*Dataset, error)
	Get(ctx context.Context, dataSetArn string) (*Dataset, error)
	List(ctx context.Context, filter DatasetFilter, page PageRequest) ([]Dataset, int64, error)
	Update(ctx context.Context, dataSetArn string, u DatasetUpdate) (*Dataset, error)
	Delete(ctx context.Context, dataSetArn string) error
}

// PublishHistoryRepository provides append-only persistence for publish attempts.
type PublishHistoryRepository interface {
	Insert(ctx context.Context, h *PublishHistory) (*PublishHistory, error)
	List(ctx context.Context, dataSetArn string) ([]PublishHistory, error)
	GetVersion(ctx context.Context, dataSetArn string, version int) (*PublishHistory, error)
	LatestVersion(ctx context.Context, dataSetArn string) (int, error)
}

// VisibilityRepository provides persistence for rules-dataset visibility grants.
type VisibilityRepository interface {
	ListForDataset(ctx context.Context, dataSetArn string) ([]RLSDataSetVisibility, error)
	ReplaceForDataset(ctx context.Context, dataSetArn string, grants []RLSDataSetVisibility) error
}

// RegionRepository provides persistence for managed regions.
type RegionRepository interface {
	Get(ctx context.Context, region string) (*ManagedRegion, error)
	List(ctx context.Context) ([]ManagedRegion, error)
	Upsert(ctx context.Context, r *ManagedRegion) (*ManagedRegion, error)
}
