package domain

import (
	"context"
	"time"
)

// ObjectVersion describes one stored version of an object.
type ObjectVersion struct {
	Key          string
	VersionID    string
	IsLatest     bool
	LastModified time.Time
	Size         int64
}

// ObjectStore is the storage collaborator.
// Implemented by cloud.S3Store.
type ObjectStore interface {
	HeadBucket(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) (versionID string, err error)
	GetObject(ctx context.Context, bucket, key, versionID string) ([]byte, error)
	ListObjectVersions(ctx context.Context, bucket, prefix string) ([]ObjectVersion, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
	DeleteObjects(ctx context.Context, bucket string, keys []string) error
	CopyObjectVersion(ctx context.Context, bucket, srcKey, srcVersionID, dstKey string) (versionID string, err error)
}

// TextFormat describes how a delimited text object is laid out.
type TextFormat struct {
	Delimiter       string
	QuoteChar       string
	SkipHeaderLines int
}

// CSVFormat is the layout of every CSV this tool writes.
var CSVFormat = TextFormat{Delimiter: ",", QuoteChar: `"`, SkipHeaderLines: 1}

// CatalogTable is a catalog table backed by delimited text in object storage.
// Every column is string-typed.
type CatalogTable struct {
	Name     string
	Location string
	Columns  []string
	Format   TextFormat
}

// Catalog is the data-catalog collaborator.
// Implemented by cloud.GlueCatalog.
type Catalog interface {
	GetDatabase(ctx context.Context, name string) error
	GetTable(ctx context.Context, database, name string) (*CatalogTable, error)
	CreateTable(ctx context.Context, database string, t CatalogTable) error
	UpdateTable(ctx context.Context, database string, t CatalogTable) error
	DeleteTable(ctx context.Context, database, name string) error
}

// DataSource is a BI data source.
type DataSource struct {
	ID   string
	Arn  string
	Name string
	Type string
}

// RulesDataSetSpec describes the rules dataset that reads a catalog table.
type RulesDataSetSpec struct {
	DataSetID     string
	Name          string
	DataSourceArn string
	Database      string
	Table         string
	Columns       []string
}

// DataSetMutation is the result of a dataset create/update. A non-empty
// IngestionID means the service started an asynchronous ingestion that must
// complete before the dataset is ready.
type DataSetMutation struct {
	Arn          string
	DataSetID    string
	IngestionID  string
	IngestionArn string
}

// Pending reports whether an ingestion job must be awaited.
func (m *DataSetMutation) Pending() bool { return m != nil && m.IngestionID != "" }

// Ingestion job statuses reported by the BI service.
const (
	IngestionQueued      = "QUEUED"
	IngestionInitialized = "INITIALIZED"
	IngestionRunning     = "RUNNING"
	IngestionCompleted   = "COMPLETED"
	IngestionFailed      = "FAILED"
	IngestionCancelled   = "CANCELLED"
)

// Ingestion is a snapshot of one ingestion job.
type Ingestion struct {
	ID           string
	Status       string
	ErrorType    string
	ErrorMessage string
}

// ResourcePermission grants a principal a set of actions on a BI resource.
type ResourcePermission struct {
	Principal string
	Actions   []string
}

// Principal is a BI user or group.
type Principal struct {
	Arn  string
	Name string
	Kind string // PrincipalUser or PrincipalGroup
}

// BIService is the BI collaborator.
// Implemented by cloud.QuickSight.
type BIService interface {
	DescribeDataSource(ctx context.Context, dataSourceID string) (*DataSource, error)
	DescribeDataSet(ctx context.Context, dataSetID string) (*DataSetDefinition, error)
	CreateDataSet(ctx context.Context, spec RulesDataSetSpec) (*DataSetMutation, error)
	UpdateDataSet(ctx context.Context, spec RulesDataSetSpec) (*DataSetMutation, error)
	UpdateDataSetDefinition(ctx context.Context, def DataSetDefinition) (*DataSetMutation, error)
	DeleteDataSet(ctx context.Context, dataSetID string) error
	DescribeIngestion(ctx context.Context, dataSetID, ingestionID string) (*Ingestion, error)
	DescribeDataSetPermissions(ctx context.Context, dataSetID string) ([]ResourcePermission, error)
	UpdateDataSetPermissions(ctx context.Context, dataSetID string, grant, revoke []ResourcePermission) error
	ListUsers(ctx context.Context, namespace string) ([]Principal, error)
	ListGroups(ctx context.Context, namespace string) ([]Principal, error)
}

// CloudClients bundles the three collaborators for one region.
type CloudClients struct {
	Region  string
	Storage ObjectStore
	Catalog Catalog
	BI      BIService
}

// ClientRegistry hands out per-region collaborators, creating them lazily.
// Implemented by cloud.Registry.
type ClientRegistry interface {
	ForRegion(ctx context.Context, region string) (*CloudClients, error)
}

// PrincipalDirectory resolves the users and groups known to the BI service.
// Implemented by cloud.PrincipalDirectory.
type PrincipalDirectory interface {
	Principals(ctx context.Context, region string) (users, groups []Principal, err error)
}
