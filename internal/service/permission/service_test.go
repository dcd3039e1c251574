package permission

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qs-rls-manager/internal/domain"
	"qs-rls-manager/internal/rlscsv"
	"qs-rls-manager/internal/testutil"
)

const (
	salesArn = "arn:aws:quicksight:us-east-1:111122223333:dataset/sales"
	rulesArn = "arn:aws:quicksight:us-east-1:111122223333:dataset/rls-1"
	alice    = "arn:aws:quicksight:us-east-1:111122223333:user/default/alice"
	analysts = "arn:aws:quicksight:us-east-1:111122223333:group/default/analysts"
)

func salesDataset() *domain.Dataset {
	return &domain.Dataset{
		DataSetArn: salesArn,
		DataSetID:  "sales",
		Region:     "us-east-1",
		FieldTypes: domain.FieldTypes{{Name: "region", Type: "STRING"}, {Name: "dept", Type: "STRING"}},
	}
}

func datasetRepo() *testutil.MockDatasetRepo {
	return &testutil.MockDatasetRepo{
		GetFn: func(_ context.Context, arn string) (*domain.Dataset, error) {
			switch arn {
			case salesArn:
				return salesDataset(), nil
			case rulesArn:
				return &domain.Dataset{DataSetArn: rulesArn, DataSetID: "rls-1", IsRLS: true}, nil
			}
			return nil, domain.ErrNotFound("dataset %q not found", arn)
		},
	}
}

func newTestService(perms *testutil.MockPermissionRepo, dir domain.PrincipalDirectory) *Service {
	return NewService(perms, datasetRepo(), dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreate(t *testing.T) {
	t.Run("happy_path", func(t *testing.T) {
		perms := &testutil.MockPermissionRepo{
			CreateFn: func(_ context.Context, p *domain.Permission) (*domain.Permission, error) {
				out := *p
				out.ID = "p-1"
				return &out, nil
			},
		}
		svc := newTestService(perms, nil)

		p, err := svc.Create(context.Background(), domain.CreatePermissionRequest{
			DataSetArn: salesArn, UserGroupArn: alice, Field: "region", RLSValues: "US",
		})

		require.NoError(t, err)
		assert.Equal(t, "p-1", p.ID)
		assert.Equal(t, "region", p.Field)
	})

	tests := []struct {
		name string
		req  domain.CreatePermissionRequest
	}{
		{"missing principal", domain.CreatePermissionRequest{DataSetArn: salesArn, Field: "region", RLSValues: "US"}},
		{"not a principal arn", domain.CreatePermissionRequest{DataSetArn: salesArn, UserGroupArn: "bob", Field: "region", RLSValues: "US"}},
		{"unknown field", domain.CreatePermissionRequest{DataSetArn: salesArn, UserGroupArn: alice, Field: "salary", RLSValues: "1"}},
		{"rules dataset", domain.CreatePermissionRequest{DataSetArn: rulesArn, UserGroupArn: alice, Field: "*", RLSValues: "*"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(&testutil.MockPermissionRepo{}, nil)

			_, err := svc.Create(context.Background(), tc.req)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}

	t.Run("unknown dataset", func(t *testing.T) {
		svc := newTestService(&testutil.MockPermissionRepo{}, nil)

		_, err := svc.Create(context.Background(), domain.CreatePermissionRequest{
			DataSetArn: "arn:aws:quicksight:us-east-1:1:dataset/nope", UserGroupArn: alice, Field: "*", RLSValues: "*",
		})

		assert.True(t, domain.IsNotFound(err))
	})
}

func TestUpdate_ChecksNewField(t *testing.T) {
	perms := &testutil.MockPermissionRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.Permission, error) {
			return &domain.Permission{ID: id, DataSetArn: salesArn, UserGroupArn: alice, Field: "region", RLSValues: "US"}, nil
		},
		UpdateFn: func(_ context.Context, id string, req domain.UpdatePermissionRequest) (*domain.Permission, error) {
			return &domain.Permission{ID: id, Field: *req.Field}, nil
		},
	}
	svc := newTestService(perms, nil)

	bad := "salary"
	_, err := svc.Update(context.Background(), "p-1", domain.UpdatePermissionRequest{Field: &bad})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	good := "dept"
	p, err := svc.Update(context.Background(), "p-1", domain.UpdatePermissionRequest{Field: &good})
	require.NoError(t, err)
	assert.Equal(t, "dept", p.Field)
}

func TestExportCSV(t *testing.T) {
	perms := &testutil.MockPermissionRepo{
		ListForDatasetFn: func(context.Context, string) ([]domain.Permission, error) {
			return []domain.Permission{
				{UserGroupArn: alice, Field: "region", RLSValues: "US,CA"},
				{UserGroupArn: analysts, Field: "*", RLSValues: "*"},
			}, nil
		},
	}
	svc := newTestService(perms, nil)

	doc, err := svc.ExportCSV(context.Background(), salesArn)

	require.NoError(t, err)
	assert.Equal(t, "UserARN,GroupARN,region\n,"+analysts+",\n"+alice+`,,"US,CA"`+"\n", doc.Text)

	_, err = svc.ExportCSV(context.Background(), rulesArn)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestImportCSV(t *testing.T) {
	t.Run("arn dialect needs no directory", func(t *testing.T) {
		var replaced []domain.Permission
		perms := &testutil.MockPermissionRepo{
			ReplaceForDatasetFn: func(_ context.Context, arn string, ps []domain.Permission) error {
				assert.Equal(t, salesArn, arn)
				replaced = ps
				return nil
			},
		}
		svc := newTestService(perms, nil)
		csv := "UserARN,GroupARN,region,dept\n" + alice + ",,US,\n"

		res, err := svc.ImportCSV(context.Background(), salesArn, strings.NewReader(csv), true)

		require.NoError(t, err)
		assert.True(t, res.Applied)
		assert.Equal(t, 2, res.Stored)
		assert.Equal(t, rlscsv.DialectARN, res.Parse.Dialect)
		require.Len(t, replaced, 2)
		for _, p := range replaced {
			assert.Equal(t, salesArn, p.DataSetArn)
			assert.Equal(t, domain.PermissionPending, p.Status)
		}
	})

	t.Run("names resolved through directory", func(t *testing.T) {
		dir := &testutil.MockPrincipalDirectory{
			PrincipalsFn: func(_ context.Context, region string) ([]domain.Principal, []domain.Principal, error) {
				assert.Equal(t, "us-east-1", region)
				return nil, []domain.Principal{{Arn: analysts, Name: "Analysts", Kind: domain.PrincipalGroup}}, nil
			},
		}
		svc := newTestService(&testutil.MockPermissionRepo{}, dir)
		csv := "GroupName,region\nanalysts,EU\nstrangers,US\n"

		res, err := svc.ImportCSV(context.Background(), salesArn, strings.NewReader(csv), false)

		require.NoError(t, err)
		assert.False(t, res.Applied)
		assert.Equal(t, rlscsv.DialectGroupName, res.Parse.Dialect)
		resolved := res.Parse.Resolved()
		require.Len(t, resolved, 1)
		assert.Equal(t, analysts, resolved[0].UserGroupArn)
		assert.Equal(t, 1, res.Parse.Warnings())
	})

	t.Run("name dialect without directory", func(t *testing.T) {
		svc := newTestService(&testutil.MockPermissionRepo{}, nil)

		_, err := svc.ImportCSV(context.Background(), salesArn, strings.NewReader("UserName,region\nalice,US\n"), false)

		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("unknown column", func(t *testing.T) {
		svc := newTestService(&testutil.MockPermissionRepo{}, nil)
		csv := "UserARN,GroupARN,salary\n" + alice + ",,1\n"

		_, err := svc.ImportCSV(context.Background(), salesArn, strings.NewReader(csv), true)

		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("unrecognized header", func(t *testing.T) {
		svc := newTestService(&testutil.MockPermissionRepo{}, nil)

		_, err := svc.ImportCSV(context.Background(), salesArn, strings.NewReader("Email,region\nx,US\n"), true)

		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}
