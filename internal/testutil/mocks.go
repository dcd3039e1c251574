// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"context"
	"sync"

	"qs-rls-manager/internal/domain"
)

// === Permission Repository Mock ===

// MockPermissionRepo implements domain.PermissionRepository for testing.
type MockPermissionRepo struct {
	CreateFn            func(ctx context.Context, p *domain.Permission) (*domain.Permission, error)
	GetByIDFn           func(ctx context.Context, id string) (*domain.Permission, error)
	UpdateFn            func(ctx context.Context, id string, req domain.UpdatePermissionRequest) (*domain.Permission, error)
	DeleteFn            func(ctx context.Context, id string) error
	ListForDatasetFn    func(ctx context.Context, dataSetArn string) ([]domain.Permission, error)
	ReplaceForDatasetFn func(ctx context.Context, dataSetArn string, perms []domain.Permission) error
}

// Create implements the interface method for testing.
func (m *MockPermissionRepo) Create(ctx context.Context, p *domain.Permission) (*domain.Permission, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, p)
	}
	panic("unexpected call to MockPermissionRepo.Create")
}

// GetByID implements the interface method for testing.
func (m *MockPermissionRepo) GetByID(ctx context.Context, id string) (*domain.Permission, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	panic("unexpected call to MockPermissionRepo.GetByID")
}

// Update implements the interface method for testing.
func (m *MockPermissionRepo) Update(ctx context.Context, id string, req domain.UpdatePermissionRequest) (*domain.Permission, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, req)
	}
	panic("unexpected call to MockPermissionRepo.Update")
}

// Delete implements the interface method for testing.
func (m *MockPermissionRepo) Delete(ctx context.Context, id string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	panic("unexpected call to MockPermissionRepo.Delete")
}

// ListForDataset implements the interface method for testing.
func (m *MockPermissionRepo) ListForDataset(ctx context.Context, dataSetArn string) ([]domain.Permission, error) {
	if m.ListForDatasetFn != nil {
		return m.ListForDatasetFn(ctx, dataSetArn)
	}
	panic("unexpected call to MockPermissionRepo.ListForDataset")
}

// ReplaceForDataset implements the interface method for testing.
func (m *MockPermissionRepo) ReplaceForDataset(ctx context.Context, dataSetArn string, perms []domain.Permission) error {
	if m.ReplaceForDatasetFn != nil {
		return m.ReplaceForDatasetFn(ctx, dataSetArn, perms)
	}
	panic("unexpected call to MockPermissionRepo.ReplaceForDataset")
}

var _ domain.PermissionRepository = (*MockPermissionRepo)(nil)

// === Dataset Repository Mock ===

// MockDatasetRepo implements domain.DatasetRepository for testing.
type MockDatasetRepo struct {
	CreateFn func(ctx context.Context, d *domain.Dataset) (*domain.Dataset, error)
	GetFn    func(ctx context.Context, dataSetArn string) (*domain.Dataset, error)
	ListFn   func(ctx context.Context, filter domain.DatasetFilter, page domain.PageRequest) ([]domain.Dataset, int64, error)
	UpdateFn func(ctx context.Context, dataSetArn string, u domain.DatasetUpdate) (*domain.Dataset, error)
	DeleteFn func(ctx context.Context, dataSetArn string) error
}

// Create implements the interface method for testing.
func (m *MockDatasetRepo) Create(ctx context.Context, d *domain.Dataset) (*domain.Dataset, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, d)
	}
	panic("unexpected call to MockDatasetRepo.Create")
}

// Get implements the interface method for testing.
func (m *MockDatasetRepo) Get(ctx context.Context, dataSetArn string) (*domain.Dataset, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, dataSetArn)
	}
	panic("unexpected call to MockDatasetRepo.Get")
}

// List implements the interface method for testing.
func (m *MockDatasetRepo) List(ctx context.Context, filter domain.DatasetFilter, page domain.PageRequest) ([]domain.Dataset, int64, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, filter, page)
	}
	panic("unexpected call to MockDatasetRepo.List")
}

// Update implements the interface method for testing.
func (m *MockDatasetRepo) Update(ctx context.Context, dataSetArn string, u domain.DatasetUpdate) (*domain.Dataset, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, dataSetArn, u)
	}
	panic("unexpected call to MockDatasetRepo.Update")
}

// Delete implements the interface method for testing.
func (m *MockDatasetRepo) Delete(ctx context.Context, dataSetArn string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, dataSetArn)
	}
	panic("unexpected call to MockDatasetRepo.Delete")
}

var _ domain.DatasetRepository = (*MockDatasetRepo)(nil)

// === Region Repository Mock ===

// MockRegionRepo implements domain.RegionRepository for testing.
type MockRegionRepo struct {
	GetFn    func(ctx context.Context, region string) (*domain.ManagedRegion, error)
	ListFn   func(ctx context.Context) ([]domain.ManagedRegion, error)
	UpsertFn func(ctx context.Context, r *domain.ManagedRegion) (*domain.ManagedRegion, error)
}

// Get implements the interface method for testing.
func (m *MockRegionRepo) Get(ctx context.Context, region string) (*domain.ManagedRegion, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, region)
	}
	panic("unexpected call to MockRegionRepo.Get")
}

// List implements the interface method for testing.
func (m *MockRegionRepo) List(ctx context.Context) ([]domain.ManagedRegion, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	panic("unexpected call to MockRegionRepo.List")
}

// Upsert implements the interface method for testing.
func (m *MockRegionRepo) Upsert(ctx context.Context, r *domain.ManagedRegion) (*domain.ManagedRegion, error) {
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, r)
	}
	panic("unexpected call to MockRegionRepo.Upsert")
}

var _ domain.RegionRepository = (*MockRegionRepo)(nil)

// === Object Store Mock ===

// MockObjectStore implements domain.ObjectStore for testing.
type MockObjectStore struct {
	HeadBucketFn         func(ctx context.Context, bucket string) error
	PutObjectFn          func(ctx context.Context, bucket, key string, body []byte, contentType string) (string, error)
	GetObjectFn          func(ctx context.Context, bucket, key, versionID string) ([]byte, error)
	ListObjectVersionsFn func(ctx context.Context, bucket, prefix string) ([]domain.ObjectVersion, error)
	ListObjectsFn        func(ctx context.Context, bucket, prefix string) ([]string, error)
	DeleteObjectsFn      func(ctx context.Context, bucket string, keys []string) error
	CopyObjectVersionFn  func(ctx context.Context, bucket, srcKey, srcVersionID, dstKey string) (string, error)
}

// HeadBucket implements the interface method for testing.
func (m *MockObjectStore) HeadBucket(ctx context.Context, bucket string) error {
	if m.HeadBucketFn != nil {
		return m.HeadBucketFn(ctx, bucket)
	}
	panic("unexpected call to MockObjectStore.HeadBucket")
}

// PutObject implements the interface method for testing.
func (m *MockObjectStore) PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) (string, error) {
	if m.PutObjectFn != nil {
		return m.PutObjectFn(ctx, bucket, key, body, contentType)
	}
	panic("unexpected call to MockObjectStore.PutObject")
}

// GetObject implements the interface method for testing.
func (m *MockObjectStore) GetObject(ctx context.Context, bucket, key, versionID string) ([]byte, error) {
	if m.GetObjectFn != nil {
		return m.GetObjectFn(ctx, bucket, key, versionID)
	}
	panic("unexpected call to MockObjectStore.GetObject")
}

// ListObjectVersions implements the interface method for testing.
func (m *MockObjectStore) ListObjectVersions(ctx context.Context, bucket, prefix string) ([]domain.ObjectVersion, error) {
	if m.ListObjectVersionsFn != nil {
		return m.ListObjectVersionsFn(ctx, bucket, prefix)
	}
	panic("unexpected call to MockObjectStore.ListObjectVersions")
}

// ListObjects implements the interface method for testing.
func (m *MockObjectStore) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	if m.ListObjectsFn != nil {
		return m.ListObjectsFn(ctx, bucket, prefix)
	}
	panic("unexpected call to MockObjectStore.ListObjects")
}

// DeleteObjects implements the interface method for testing.
func (m *MockObjectStore) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	if m.DeleteObjectsFn != nil {
		return m.DeleteObjectsFn(ctx, bucket, keys)
	}
	panic("unexpected call to MockObjectStore.DeleteObjects")
}

// CopyObjectVersion implements the interface method for testing.
func (m *MockObjectStore) CopyObjectVersion(ctx context.Context, bucket, srcKey, srcVersionID, dstKey string) (string, error) {
	if m.CopyObjectVersionFn != nil {
		return m.CopyObjectVersionFn(ctx, bucket, srcKey, srcVersionID, dstKey)
	}
	panic("unexpected call to MockObjectStore.CopyObjectVersion")
}

var _ domain.ObjectStore = (*MockObjectStore)(nil)

// === Catalog Mock ===

// MockCatalog implements domain.Catalog for testing.
type MockCatalog struct {
	GetDatabaseFn func(ctx context.Context, name string) error
	GetTableFn    func(ctx context.Context, database, name string) (*domain.CatalogTable, error)
	CreateTableFn func(ctx context.Context, database string, t domain.CatalogTable) error
	UpdateTableFn func(ctx context.Context, database string, t domain.CatalogTable) error
	DeleteTableFn func(ctx context.Context, database, name string) error
}

// GetDatabase implements the interface method for testing.
func (m *MockCatalog) GetDatabase(ctx context.Context, name string) error {
	if m.GetDatabaseFn != nil {
		return m.GetDatabaseFn(ctx, name)
	}
	panic("unexpected call to MockCatalog.GetDatabase")
}

// GetTable implements the interface method for testing.
func (m *MockCatalog) GetTable(ctx context.Context, database, name string) (*domain.CatalogTable, error) {
	if m.GetTableFn != nil {
		return m.GetTableFn(ctx, database, name)
	}
	panic("unexpected call to MockCatalog.GetTable")
}

// CreateTable implements the interface method for testing.
func (m *MockCatalog) CreateTable(ctx context.Context, database string, t domain.CatalogTable) error {
	if m.CreateTableFn != nil {
		return m.CreateTableFn(ctx, database, t)
	}
	panic("unexpected call to MockCatalog.CreateTable")
}

// UpdateTable implements the interface method for testing.
func (m *MockCatalog) UpdateTable(ctx context.Context, database string, t domain.CatalogTable) error {
	if m.UpdateTableFn != nil {
		return m.UpdateTableFn(ctx, database, t)
	}
	panic("unexpected call to MockCatalog.UpdateTable")
}

// DeleteTable implements the interface method for testing.
func (m *MockCatalog) DeleteTable(ctx context.Context, database, name string) error {
	if m.DeleteTableFn != nil {
		return m.DeleteTableFn(ctx, database, name)
	}
	panic("unexpected call to MockCatalog.DeleteTable")
}

var _ domain.Catalog = (*MockCatalog)(nil)

// === BI Service Mock ===

// MockBIService implements domain.BIService for testing. Every call is
// recorded by method name in Calls.
type MockBIService struct {
	DescribeDataSourceFn         func(ctx context.Context, dataSourceID string) (*domain.DataSource, error)
	DescribeDataSetFn            func(ctx context.Context, dataSetID string) (*domain.DataSetDefinition, error)
	CreateDataSetFn              func(ctx context.Context, spec domain.RulesDataSetSpec) (*domain.DataSetMutation, error)
	UpdateDataSetFn              func(ctx context.Context, spec domain.RulesDataSetSpec) (*domain.DataSetMutation, error)
	UpdateDataSetDefinitionFn    func(ctx context.Context, def domain.DataSetDefinition) (*domain.DataSetMutation, error)
	DeleteDataSetFn              func(ctx context.Context, dataSetID string) error
	DescribeIngestionFn          func(ctx context.Context, dataSetID, ingestionID string) (*domain.Ingestion, error)
	DescribeDataSetPermissionsFn func(ctx context.Context, dataSetID string) ([]domain.ResourcePermission, error)
	UpdateDataSetPermissionsFn   func(ctx context.Context, dataSetID string, grant, revoke []domain.ResourcePermission) error
	ListUsersFn                  func(ctx context.Context, namespace string) ([]domain.Principal, error)
	ListGroupsFn                 func(ctx context.Context, namespace string) ([]domain.Principal, error)

	mu    sync.Mutex
	Calls []string
}

func (m *MockBIService) record(name string) {
	m.mu.Lock()
	m.Calls = append(m.Calls, name)
	m.mu.Unlock()
}

// CallCount returns how many times the named method was called.
func (m *MockBIService) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == name {
			n++
		}
	}
	return n
}

// Writes returns the number of calls that mutate BI state.
func (m *MockBIService) Writes() int {
	return m.CallCount("CreateDataSet") + m.CallCount("UpdateDataSet") +
		m.CallCount("UpdateDataSetDefinition") + m.CallCount("DeleteDataSet") +
		m.CallCount("UpdateDataSetPermissions")
}

// DescribeDataSource implements the interface method for testing.
func (m *MockBIService) DescribeDataSource(ctx context.Context, dataSourceID string) (*domain.DataSource, error) {
	m.record("DescribeDataSource")
	if m.DescribeDataSourceFn != nil {
		return m.DescribeDataSourceFn(ctx, dataSourceID)
	}
	panic("unexpected call to MockBIService.DescribeDataSource")
}

// DescribeDataSet implements the interface method for testing.
func (m *MockBIService) DescribeDataSet(ctx context.Context, dataSetID string) (*domain.DataSetDefinition, error) {
	m.record("DescribeDataSet")
	if m.DescribeDataSetFn != nil {
		return m.DescribeDataSetFn(ctx, dataSetID)
	}
	panic("unexpected call to MockBIService.DescribeDataSet")
}

// CreateDataSet implements the interface method for testing.
func (m *MockBIService) CreateDataSet(ctx context.Context, spec domain.RulesDataSetSpec) (*domain.DataSetMutation, error) {
	m.record("CreateDataSet")
	if m.CreateDataSetFn != nil {
		return m.CreateDataSetFn(ctx, spec)
	}
	panic("unexpected call to MockBIService.CreateDataSet")
}

// UpdateDataSet implements the interface method for testing.
func (m *MockBIService) UpdateDataSet(ctx context.Context, spec domain.RulesDataSetSpec) (*domain.DataSetMutation, error) {
	m.record("UpdateDataSet")
	if m.UpdateDataSetFn != nil {
		return m.UpdateDataSetFn(ctx, spec)
	}
	panic("unexpected call to MockBIService.UpdateDataSet")
}

// UpdateDataSetDefinition implements the interface method for testing.
func (m *MockBIService) UpdateDataSetDefinition(ctx context.Context, def domain.DataSetDefinition) (*domain.DataSetMutation, error) {
	m.record("UpdateDataSetDefinition")
	if m.UpdateDataSetDefinitionFn != nil {
		return m.UpdateDataSetDefinitionFn(ctx, def)
	}
	panic("unexpected call to MockBIService.UpdateDataSetDefinition")
}

// DeleteDataSet implements the interface method for testing.
func (m *MockBIService) DeleteDataSet(ctx context.Context, dataSetID string) error {
	m.record("DeleteDataSet")
	if m.DeleteDataSetFn != nil {
		return m.DeleteDataSetFn(ctx, dataSetID)
	}
	panic("unexpected call to MockBIService.DeleteDataSet")
}

// DescribeIngestion implements the interface method for testing.
func (m *MockBIService) DescribeIngestion(ctx context.Context, dataSetID, ingestionID string) (*domain.Ingestion, error) {
	m.record("DescribeIngestion")
	if m.DescribeIngestionFn != nil {
		return m.DescribeIngestionFn(ctx, dataSetID, ingestionID)
	}
	panic("unexpected call to MockBIService.DescribeIngestion")
}

// DescribeDataSetPermissions implements the interface method for testing.
func (m *MockBIService) DescribeDataSetPermissions(ctx context.Context, dataSetID string) ([]domain.ResourcePermission, error) {
	m.record("DescribeDataSetPermissions")
	if m.DescribeDataSetPermissionsFn != nil {
		return m.DescribeDataSetPermissionsFn(ctx, dataSetID)
	}
	panic("unexpected call to MockBIService.DescribeDataSetPermissions")
}

// UpdateDataSetPermissions implements the interface method for testing.
func (m *MockBIService) UpdateDataSetPermissions(ctx context.Context, dataSetID string, grant, revoke []domain.ResourcePermission) error {
	m.record("UpdateDataSetPermissions")
	if m.UpdateDataSetPermissionsFn != nil {
		return m.UpdateDataSetPermissionsFn(ctx, dataSetID, grant, revoke)
	}
	panic("unexpected call to MockBIService.UpdateDataSetPermissions")
}

// ListUsers implements the interface method for testing.
func (m *MockBIService) ListUsers(ctx context.Context, namespace string) ([]domain.Principal, error) {
	m.record("ListUsers")
	if m.ListUsersFn != nil {
		return m.ListUsersFn(ctx, namespace)
	}
	panic("unexpected call to MockBIService.ListUsers")
}

// ListGroups implements the interface method for testing.
func (m *MockBIService) ListGroups(ctx context.Context, namespace string) ([]domain.Principal, error) {
	m.record("ListGroups")
	if m.ListGroupsFn != nil {
		return m.ListGroupsFn(ctx, namespace)
	}
	panic("unexpected call to MockBIService.ListGroups")
}

var _ domain.BIService = (*MockBIService)(nil)

// === Client Registry Mock ===

// MockClientRegistry implements domain.ClientRegistry for testing. When
// ForRegionFn is nil it hands out Clients for every region.
type MockClientRegistry struct {
	ForRegionFn func(ctx context.Context, region string) (*domain.CloudClients, error)
	Clients     *domain.CloudClients
}

// ForRegion implements the interface method for testing.
func (m *MockClientRegistry) ForRegion(ctx context.Context, region string) (*domain.CloudClients, error) {
	if m.ForRegionFn != nil {
		return m.ForRegionFn(ctx, region)
	}
	if m.Clients != nil {
		return m.Clients, nil
	}
	panic("unexpected call to MockClientRegistry.ForRegion")
}

var _ domain.ClientRegistry = (*MockClientRegistry)(nil)

// === Principal Directory Mock ===

// MockPrincipalDirectory implements domain.PrincipalDirectory for testing.
type MockPrincipalDirectory struct {
	PrincipalsFn func(ctx context.Context, region string) ([]domain.Principal, []domain.Principal, error)
}

// Principals implements the interface method for testing.
func (m *MockPrincipalDirectory) Principals(ctx context.Context, region string) ([]domain.Principal, []domain.Principal, error) {
	if m.PrincipalsFn != nil {
		return m.PrincipalsFn(ctx, region)
	}
	panic("unexpected call to MockPrincipalDirectory.Principals")
}

var _ domain.PrincipalDirectory = (*MockPrincipalDirectory)(nil)

// === Pipeline Sink ===

// RecordingSink implements domain.PipelineSink and keeps everything it is told.
type RecordingSink struct {
	mu       sync.Mutex
	Statuses []domain.StepState
	Lines    []domain.LogEntry
}

// ReportStep implements the interface method for testing.
func (s *RecordingSink) ReportStep(step string, status domain.StepStatus) {
	s.mu.Lock()
	s.Statuses = append(s.Statuses, domain.StepState{Step: step, Status: status})
	s.mu.Unlock()
}

// Log implements the interface method for testing.
func (s *RecordingSink) Log(severity domain.Severity, message string) {
	s.mu.Lock()
	s.Lines = append(s.Lines, domain.LogEntry{Severity: severity, Message: message})
	s.mu.Unlock()
}

// Messages returns the logged messages with the given severity.
func (s *RecordingSink) Messages(severity domain.Severity) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, l := range s.Lines {
		if l.Severity == severity {
			out = append(out, l.Message)
		}
	}
	return out
}

var _ domain.PipelineSink = (*RecordingSink)(nil)
