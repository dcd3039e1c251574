package cloud

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/quicksight"
	qstypes "github.com/aws/aws-sdk-go-v2/service/quicksight/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qs-rls-manager/internal/domain"
)

const testAccount = "123456789012"

func TestQuickSight_CreateRulesDataSet(t *testing.T) {
	var got *quicksight.CreateDataSetInput
	fake := &fakeQuickSight{
		CreateDataSetFn: func(in *quicksight.CreateDataSetInput) (*quicksight.CreateDataSetOutput, error) {
			got = in
			return &quicksight.CreateDataSetOutput{
				Arn:         aws.String("arn:aws:quicksight:eu-west-1:123456789012:dataset/r1"),
				DataSetId:   in.DataSetId,
				IngestionId: aws.String("ing-1"),
			}, nil
		},
	}
	qs := NewQuickSight(fake, testAccount, "arn:aws:quicksight:eu-west-1:123456789012:user/default/admin")

	m, err := qs.CreateDataSet(context.Background(), domain.RulesDataSetSpec{
		DataSetID:     "r1",
		Name:          "RLS rules for sales",
		DataSourceArn: "arn:ds",
		Database:      "rls_db",
		Table:         "qs_rls_managed_sales",
		Columns:       []string{"UserARN", "GroupARN", "region"},
	})
	require.NoError(t, err)
	assert.True(t, m.Pending())
	assert.Equal(t, "ing-1", m.IngestionID)

	assert.Equal(t, testAccount, aws.ToString(got.AwsAccountId))
	assert.Equal(t, qstypes.DataSetUseAs("RLS_RULES"), got.UseAs)
	assert.Equal(t, qstypes.DataSetImportMode("SPICE"), got.ImportMode)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "RLS-Manager", aws.ToString(got.Tags[0].Key))
	require.Len(t, got.Permissions, 1)

	rel, ok := got.PhysicalTableMap[rulesPhysicalID].(*qstypes.PhysicalTableMemberRelationalTable)
	require.True(t, ok)
	assert.Equal(t, "AwsDataCatalog", aws.ToString(rel.Value.Catalog))
	assert.Equal(t, "rls_db", aws.ToString(rel.Value.Schema))
	require.Len(t, rel.Value.InputColumns, 3)
	assert.Equal(t, qstypes.InputColumnDataType("STRING"), rel.Value.InputColumns[2].Type)
	assert.Equal(t, rulesPhysicalID, aws.ToString(got.LogicalTableMap[rulesLogicalID].Source.PhysicalTableId))
}

func TestQuickSight_DescribeIngestion(t *testing.T) {
	fake := &fakeQuickSight{
		DescribeIngestionFn: func(in *quicksight.DescribeIngestionInput) (*quicksight.DescribeIngestionOutput, error) {
			return &quicksight.DescribeIngestionOutput{Ingestion: &qstypes.Ingestion{
				IngestionId:     in.IngestionId,
				IngestionStatus: qstypes.IngestionStatus("FAILED"),
				ErrorInfo: &qstypes.ErrorInfo{
					Type:    qstypes.IngestionErrorType("ROW_SIZE_LIMIT_EXCEEDED"),
					Message: aws.String("row too big"),
				},
			}}, nil
		},
	}

	ing, err := NewQuickSight(fake, testAccount, "").DescribeIngestion(context.Background(), "r1", "ing-1")
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionFailed, ing.Status)
	assert.Equal(t, "ROW_SIZE_LIMIT_EXCEEDED", ing.ErrorType)
	assert.Equal(t, "row too big", ing.ErrorMessage)
}

func TestQuickSight_ListUsersPaginates(t *testing.T) {
	fake := &fakeQuickSight{
		ListUsersFn: func(in *quicksight.ListUsersInput) (*quicksight.ListUsersOutput, error) {
			if in.NextToken == nil {
				return &quicksight.ListUsersOutput{
					UserList:  []qstypes.User{{Arn: aws.String("arn:u1"), UserName: aws.String("alice")}},
					NextToken: aws.String("next"),
				}, nil
			}
			return &quicksight.ListUsersOutput{
				UserList: []qstypes.User{{Arn: aws.String("arn:u2"), UserName: aws.String("bob")}},
			}, nil
		},
	}

	users, err := NewQuickSight(fake, testAccount, "").ListUsers(context.Background(), "default")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "bob", users[1].Name)
	assert.Equal(t, domain.PrincipalUser, users[1].Kind)
}

func TestQuickSight_UpdatePermissionsOmitsEmptyLists(t *testing.T) {
	var got *quicksight.UpdateDataSetPermissionsInput
	fake := &fakeQuickSight{
		UpdateDataSetPermissionsFn: func(in *quicksight.UpdateDataSetPermissionsInput) (*quicksight.UpdateDataSetPermissionsOutput, error) {
			got = in
			return &quicksight.UpdateDataSetPermissionsOutput{}, nil
		},
	}

	err := NewQuickSight(fake, testAccount, "").UpdateDataSetPermissions(context.Background(), "r1",
		[]domain.ResourcePermission{{Principal: "arn:g", Actions: []string{"quicksight:DescribeDataSet"}}}, nil)
	require.NoError(t, err)
	assert.Len(t, got.GrantPermissions, 1)
	assert.Nil(t, got.RevokePermissions)
}
