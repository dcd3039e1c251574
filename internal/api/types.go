package api

import (
	"time"

	"qs-rls-manager/internal/domain"
	"qs-rls-manager/internal/rlscsv"
	"qs-rls-manager/internal/service/permission"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Status    int    `json:"status"`
	ErrorType string `json:"errorType,omitempty"`
	Message   string `json:"message"`
}

// Region is a managed region.
type Region struct {
	Region           string    `json:"region"`
	BucketName       string    `json:"bucketName"`
	GlueDatabaseName string    `json:"glueDatabaseName"`
	DataSourceName   string    `json:"dataSourceName"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// PutRegionRequest configures a managed region.
type PutRegionRequest struct {
	BucketName       string `json:"bucketName"`
	GlueDatabaseName string `json:"glueDatabaseName"`
	DataSourceName   string `json:"dataSourceName"`
}

// Dataset is a dataset mirror.
type Dataset struct {
	DataSetArn           string            `json:"dataSetArn"`
	DataSetID            string            `json:"dataSetId"`
	Name                 string            `json:"name"`
	Region               string            `json:"region"`
	RLSEnabled           string            `json:"rlsEnabled"`
	RLSToolManaged       bool              `json:"rlsToolManaged"`
	RLSDataSetID         *string           `json:"rlsDataSetId"`
	IsRLS                bool              `json:"isRls"`
	ToolCreated          bool              `json:"toolCreated"`
	APIManageable        bool              `json:"apiManageable"`
	FieldTypes           domain.FieldTypes `json:"fieldTypes"`
	GlueS3ID             *string           `json:"glueS3Id,omitempty"`
	CurrentVersion       int               `json:"currentVersion"`
	LastPublishedVersion int               `json:"lastPublishedVersion"`
	LastPublishedAt      *time.Time        `json:"lastPublishedAt"`
}

// DatasetList is one page of datasets.
type DatasetList struct {
	Data          []Dataset `json:"data"`
	Total         int64     `json:"total"`
	NextPageToken string    `json:"nextPageToken,omitempty"`
}

// RegisterDatasetRequest mirrors a BI dataset.
type RegisterDatasetRequest struct {
	Name       string            `json:"name"`
	FieldTypes domain.FieldTypes `json:"fieldTypes"`
}

// Permission is one row-filter rule.
type Permission struct {
	ID           string    `json:"id"`
	DataSetArn   string    `json:"dataSetArn"`
	UserGroupArn string    `json:"userGroupArn"`
	Field        string    `json:"field"`
	RLSValues    string    `json:"rlsValues"`
	Status       string    `json:"status"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CreatePermissionRequest adds a rule to a dataset.
type CreatePermissionRequest struct {
	UserGroupArn string `json:"userGroupArn"`
	Field        string `json:"field"`
	RLSValues    string `json:"rlsValues"`
	Status       string `json:"status,omitempty"`
}

// UpdatePermissionRequest changes a rule. Omitted fields are kept.
type UpdatePermissionRequest struct {
	Field     *string `json:"field,omitempty"`
	RLSValues *string `json:"rlsValues,omitempty"`
	Status    *string `json:"status,omitempty"`
}

// ParsedPermission is one permission read from an imported CSV.
type ParsedPermission struct {
	UserGroupArn  string `json:"userGroupArn"`
	PrincipalName string `json:"principalName"`
	PrincipalKind string `json:"principalKind"`
	Field         string `json:"field"`
	RLSValues     string `json:"rlsValues"`
	Resolved      bool   `json:"resolved"`
}

// Diagnostic is a parse warning or error.
type Diagnostic struct {
	Line     int    `json:"line"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// ImportResponse reports a CSV import.
type ImportResponse struct {
	Dialect     string             `json:"dialect"`
	Fields      []string           `json:"fields"`
	Applied     bool               `json:"applied"`
	Stored      int                `json:"stored"`
	Permissions []ParsedPermission `json:"permissions"`
	Diagnostics []Diagnostic       `json:"diagnostics"`
}

// VisibilityGrant lets a principal see the generated rules dataset.
type VisibilityGrant struct {
	PrincipalArn string `json:"principalArn"`
	Level        string `json:"level"`
}

// VisibilityRequest replaces a dataset's visibility grants.
type VisibilityRequest struct {
	Grants []VisibilityGrant `json:"grants"`
}

// HistoryEntry is one publish attempt.
type HistoryEntry struct {
	Version         int       `json:"version"`
	Status          string    `json:"status"`
	PublishedAt     time.Time `json:"publishedAt"`
	PermissionCount int       `json:"permissionCount"`
	S3Key           string    `json:"s3Key,omitempty"`
	S3VersionID     string    `json:"s3VersionId,omitempty"`
	RulesDataSetArn string    `json:"rulesDataSetArn,omitempty"`
	Message         string    `json:"message,omitempty"`
}

// RollbackRequest selects the version to restore.
type RollbackRequest struct {
	Version            int  `json:"version"`
	RestorePermissions bool `json:"restorePermissions"`
}

// Step is the last reported status of a pipeline step.
type Step struct {
	Step   string `json:"step"`
	Status string `json:"status"`
}

// LogLine is one entry of a pipeline log.
type LogLine struct {
	Time     time.Time `json:"time"`
	Severity string    `json:"severity"`
	Message  string    `json:"message"`
}

// PipelineResponse is the result of publish, delete and rollback.
type PipelineResponse struct {
	Status    int       `json:"status"`
	Message   string    `json:"message"`
	ErrorType string    `json:"errorType,omitempty"`
	FailedAt  string    `json:"failedAt,omitempty"`
	Steps     []Step    `json:"steps"`
	Log       []LogLine `json:"log"`
}

// === Mapping helpers ===
//
// The mappers are shared with the CLI so its JSON output matches the wire shapes.

func RegionToAPI(r domain.ManagedRegion) Region {
	return Region{
		Region:           r.Region,
		BucketName:       r.BucketName,
		GlueDatabaseName: r.GlueDatabaseName,
		DataSourceName:   r.DataSourceName,
		UpdatedAt:        r.UpdatedAt,
	}
}

func DatasetToAPI(d domain.Dataset) Dataset {
	fields := d.FieldTypes
	if fields == nil {
		fields = domain.FieldTypes{}
	}
	return Dataset{
		DataSetArn:           d.DataSetArn,
		DataSetID:            d.DataSetID,
		Name:                 d.Name,
		Region:               d.Region,
		RLSEnabled:           d.RLSEnabled,
		RLSToolManaged:       d.RLSToolManaged,
		RLSDataSetID:         d.RLSDataSetID,
		IsRLS:                d.IsRLS,
		ToolCreated:          d.ToolCreated,
		APIManageable:        d.APIManageable,
		FieldTypes:           fields,
		GlueS3ID:             d.GlueS3ID,
		CurrentVersion:       d.CurrentVersion,
		LastPublishedVersion: d.LastPublishedVersion,
		LastPublishedAt:      d.LastPublishedAt,
	}
}

func PermissionToAPI(p domain.Permission) Permission {
	return Permission{
		ID:           p.ID,
		DataSetArn:   p.DataSetArn,
		UserGroupArn: p.UserGroupArn,
		Field:        p.Field,
		RLSValues:    p.RLSValues,
		Status:       p.Status,
		UpdatedAt:    p.UpdatedAt,
	}
}

func ImportToAPI(res *permission.ImportResult) ImportResponse {
	out := ImportResponse{
		Dialect:     res.Parse.Dialect.String(),
		Fields:      res.Parse.Fields,
		Applied:     res.Applied,
		Stored:      res.Stored,
		Permissions: make([]ParsedPermission, 0, len(res.Parse.Permissions)),
		Diagnostics: make([]Diagnostic, 0, len(res.Parse.Diagnostics)),
	}
	if out.Fields == nil {
		out.Fields = []string{}
	}
	for _, p := range res.Parse.Permissions {
		out.Permissions = append(out.Permissions, ParsedPermission{
			UserGroupArn:  p.UserGroupArn,
			PrincipalName: p.PrincipalName,
			PrincipalKind: p.PrincipalKind,
			Field:         p.Field,
			RLSValues:     p.RLSValues,
			Resolved:      p.Resolved,
		})
	}
	for _, d := range res.Parse.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, DiagnosticToAPI(d))
	}
	return out
}

func DiagnosticToAPI(d rlscsv.Diagnostic) Diagnostic {
	return Diagnostic{Line: d.Line, Severity: string(d.Severity), Message: d.Message}
}

func VisibilityToAPI(vs []domain.RLSDataSetVisibility) []VisibilityGrant {
	out := make([]VisibilityGrant, len(vs))
	for i, v := range vs {
		out[i] = VisibilityGrant{PrincipalArn: v.PrincipalArn, Level: v.Level}
	}
	return out
}

func HistoryToAPI(h domain.PublishHistory) HistoryEntry {
	return HistoryEntry{
		Version:         h.Version,
		Status:          h.Status,
		PublishedAt:     h.PublishedAt,
		PermissionCount: h.PermissionCount,
		S3Key:           h.S3Key,
		S3VersionID:     h.S3VersionID,
		RulesDataSetArn: h.RulesDataSetArn,
		Message:         h.Message,
	}
}

func OutcomeToAPI(o *domain.Outcome) PipelineResponse {
	out := PipelineResponse{
		Status:    o.Status,
		Message:   o.Message,
		ErrorType: o.ErrorType,
		FailedAt:  o.FailedAt,
		Steps:     make([]Step, len(o.Steps)),
		Log:       make([]LogLine, len(o.Log)),
	}
	for i, s := range o.Steps {
		out.Steps[i] = Step{Step: s.Step, Status: string(s.Status)}
	}
	for i, l := range o.Log {
		out.Log[i] = LogLine{Time: l.Time, Severity: string(l.Severity), Message: l.Message}
	}
	return out
}
