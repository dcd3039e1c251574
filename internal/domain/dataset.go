package domain

import "time"

// RLS binding states mirrored from the BI service.
const (
	RLSEnabled  = "ENABLED"
	RLSDisabled = "DISABLED"
)

// Dataset mirrors a BI-service dataset, either a data dataset or a rules dataset.
type Dataset struct {
	DataSetArn     string
	DataSetID      string
	Name           string
	Region         string
	RLSEnabled     string
	RLSToolManaged bool
	RLSDataSetID   *string // ARN of the attached rules dataset
	IsRLS          bool
	ToolCreated    bool
	APIManageable  bool
	FieldTypes     FieldTypes
	GlueS3ID       *string // data-dataset id a rules dataset was generated for

	CurrentVersion       int
	LastPublishedVersion int
	LastPublishedAt      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DatasetFilter selects datasets by field equality. Nil fields are ignored and
// set fields are ANDed. When Or is non-empty, at least one of its filters must
// also match, so arbitrary AND/OR trees can be expressed.
type DatasetFilter struct {
	DataSetID    *string
	Region       *string
	RLSDataSetID *string
	IsRLS        *bool
	ToolCreated  *bool
	GlueS3ID     *string
	Or           []DatasetFilter
}

// DatasetUpdate carries the fields the orchestrators mutate. Nil fields are left unchanged.
// ClearRLSDataSetID takes precedence over RLSDataSetID.
type DatasetUpdate struct {
	RLSEnabled           *string
	RLSToolManaged       *bool
	RLSDataSetID         *string
	ClearRLSDataSetID    bool
	ToolCreated          *bool
	FieldTypes           FieldTypes
	CurrentVersion       *int
	LastPublishedVersion *int
	LastPublishedAt      *time.Time
}

// ManagedRegion holds the region-scoped infrastructure the pipelines publish into.
type ManagedRegion struct {
	Region           string
	BucketName       string
	GlueDatabaseName string
	DataSourceName   string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Validate checks that every identifier is present.
func (r *ManagedRegion) Validate() error {
	switch {
	case r.Region == "":
		return ErrValidation("region is required")
	case r.BucketName == "":
		return ErrValidation("bucket name is required for region %s", r.Region)
	case r.GlueDatabaseName == "":
		return ErrValidation("glue database name is required for region %s", r.Region)
	case r.DataSourceName == "":
		return ErrValidation("data source name is required for region %s", r.Region)
	}
	return nil
}
