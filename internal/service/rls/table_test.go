package rls

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qs-rls-manager/internal/domain"
	"qs-rls-manager/internal/testutil"
)

func TestAuthoritativeColumns(t *testing.T) {
	tests := []struct {
		name    string
		header  []string
		want    []string
		wantErr bool
	}{
		{"passes through", []string{"UserARN", "GroupARN", "region"}, []string{"UserARN", "GroupARN", "region"}, false},
		{"drops blanks and trims", []string{" UserARN", "", "  ", "region "}, []string{"UserARN", "region"}, false},
		{"dedupes keeping first", []string{"a", "b", "a", "c", "b"}, []string{"a", "b", "c"}, false},
		{"all blank", []string{"", " "}, nil, true},
		{"empty", nil, nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := AuthoritativeColumns(tc.header)
			if tc.wantErr {
				var verr *domain.ValidationError
				require.ErrorAs(t, err, &verr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNames(t *testing.T) {
	assert.Equal(t, "RLS-Datasets/Sales-01/QS_RLS_Managed_Sales-01.csv", ObjectKey("Sales-01"))
	assert.Equal(t, "s3://bucket/RLS-Datasets/Sales-01/", TableLocation("bucket", "Sales-01"))
	assert.Equal(t, "qs_rls_managed_sales_01", TableName("Sales-01"))
	assert.Equal(t, "RLS rules - Sales", RulesDataSetName("Sales", "s1"))
	assert.Equal(t, "RLS rules - s1", RulesDataSetName("", "s1"))
}

func TestUploadCSV(t *testing.T) {
	var gotKey, gotType string
	store := &testutil.MockObjectStore{
		PutObjectFn: func(_ context.Context, bucket, key string, body []byte, contentType string) (string, error) {
			gotKey, gotType = key, contentType
			return "v7", nil
		},
	}

	res, err := UploadCSV(context.Background(), store, "bucket", "sales", []byte("UserARN,GroupARN\n"))

	require.NoError(t, err)
	assert.Equal(t, &UploadResult{Key: ObjectKey("sales"), VersionID: "v7"}, res)
	assert.Equal(t, ObjectKey("sales"), gotKey)
	assert.Equal(t, "text/csv", gotType)
}

func TestEnsureTable(t *testing.T) {
	table := rulesTable("bucket", "sales", []string{"UserARN", "GroupARN", "region"})
	exists := &domain.ServiceError{Service: "glue", Code: "AlreadyExistsException", Status: 409, Message: "exists"}
	gone := &domain.ServiceError{Service: "glue", Code: "EntityNotFoundException", Status: 404, Message: "gone"}

	tests := []struct {
		name        string
		getErr      error
		createErr   error
		updateErr   error
		wantCreates int
		wantUpdates int
		wantErr     bool
	}{
		{name: "creates missing table", getErr: gone, wantCreates: 1},
		{name: "updates existing table", wantUpdates: 1},
		{name: "create race falls back to update", getErr: gone, createErr: exists, wantCreates: 1, wantUpdates: 1},
		{name: "update of vanished table falls back to create", updateErr: gone, wantCreates: 1, wantUpdates: 1},
		{name: "lookup failure", getErr: errors.New("boom"), wantErr: true},
		{name: "create failure", getErr: gone, createErr: errors.New("boom"), wantCreates: 1, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var creates, updates int
			catalog := &testutil.MockCatalog{
				GetTableFn: func(_ context.Context, _, name string) (*domain.CatalogTable, error) {
					if tc.getErr != nil {
						return nil, tc.getErr
					}
					return &domain.CatalogTable{Name: name}, nil
				},
				CreateTableFn: func(_ context.Context, db string, got domain.CatalogTable) error {
					creates++
					assert.Equal(t, "rls_db", db)
					assert.Equal(t, table, got)
					return tc.createErr
				},
				UpdateTableFn: func(_ context.Context, _ string, got domain.CatalogTable) error {
					updates++
					assert.Equal(t, table, got)
					return tc.updateErr
				},
			}

			err := EnsureTable(context.Background(), catalog, "rls_db", table, &testutil.RecordingSink{})

			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.wantCreates, creates)
			assert.Equal(t, tc.wantUpdates, updates)
		})
	}
}

func TestValidateResources_StopsAtFirstFailure(t *testing.T) {
	region := &domain.ManagedRegion{Region: "us-east-1", BucketName: "b", GlueDatabaseName: "db", DataSourceName: "src"}
	denied := &domain.ServiceError{Service: "s3", Code: "AccessDenied", Status: 403, Message: "denied"}
	var catalogCalled bool
	clients := &domain.CloudClients{
		Storage: &testutil.MockObjectStore{HeadBucketFn: func(context.Context, string) error { return denied }},
		Catalog: &testutil.MockCatalog{GetDatabaseFn: func(context.Context, string) error { catalogCalled = true; return nil }},
		BI:      &testutil.MockBIService{},
	}

	_, err := ValidateResources(context.Background(), clients, region)

	require.Error(t, err)
	status, code := domain.Classify(err)
	assert.Equal(t, 403, status)
	assert.Equal(t, "AccessDenied", code)
	assert.False(t, catalogCalled)
}

func TestValidateResources_MissingIdentifier(t *testing.T) {
	_, err := ValidateResources(context.Background(), &domain.CloudClients{}, &domain.ManagedRegion{Region: "us-east-1"})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}
