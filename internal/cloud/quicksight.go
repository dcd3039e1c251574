package cloud

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/quicksight"
	qstypes "github.com/aws/aws-sdk-go-v2/service/quicksight/types"

	"qs-rls-manager/internal/domain"
)

// Rules datasets read their catalog table through the account's data catalog.
const (
	awsDataCatalog  = "AwsDataCatalog"
	rulesPhysicalID = "rls-rules-physical"
	rulesLogicalID  = "rls-rules-logical"
	managedTagKey   = "RLS-Manager"
	managedTagValue = "True"
	listPageSize    = 100
)

// QuickSightAPI is the subset of the QuickSight client used by QuickSight.
type QuickSightAPI interface {
	DescribeDataSource(ctx context.Context, in *quicksight.DescribeDataSourceInput, optFns ...func(*quicksight.Options)) (*quicksight.DescribeDataSourceOutput, error)
	DescribeDataSet(ctx context.Context, in *quicksight.DescribeDataSetInput, optFns ...func(*quicksight.Options)) (*quicksight.DescribeDataSetOutput, error)
	CreateDataSet(ctx context.Context, in *quicksight.CreateDataSetInput, optFns ...func(*quicksight.Options)) (*quicksight.CreateDataSetOutput, error)
	UpdateDataSet(ctx context.Context, in *quicksight.UpdateDataSetInput, optFns ...func(*quicksight.Options)) (*quicksight.UpdateDataSetOutput, error)
	DeleteDataSet(ctx context.Context, in *quicksight.DeleteDataSetInput, optFns ...func(*quicksight.Options)) (*quicksight.DeleteDataSetOutput, error)
	DescribeIngestion(ctx context.Context, in *quicksight.DescribeIngestionInput, optFns ...func(*quicksight.Options)) (*quicksight.DescribeIngestionOutput, error)
	DescribeDataSetPermissions(ctx context.Context, in *quicksight.DescribeDataSetPermissionsInput, optFns ...func(*quicksight.Options)) (*quicksight.DescribeDataSetPermissionsOutput, error)
	UpdateDataSetPermissions(ctx context.Context, in *quicksight.UpdateDataSetPermissionsInput, optFns ...func(*quicksight.Options)) (*quicksight.UpdateDataSetPermissionsOutput, error)
	ListUsers(ctx context.Context, in *quicksight.ListUsersInput, optFns ...func(*quicksight.Options)) (*quicksight.ListUsersOutput, error)
	ListGroups(ctx context.Context, in *quicksight.ListGroupsInput, optFns ...func(*quicksight.Options)) (*quicksight.ListGroupsOutput, error)
}

// QuickSight implements domain.BIService for one account and region.
type QuickSight struct {
	client         QuickSightAPI
	accountID      string
	adminPrincipal string
}

// NewQuickSight wraps a QuickSight client. When adminPrincipal is set, new
// rules datasets are created with that principal as owner.
func NewQuickSight(client QuickSightAPI, accountID, adminPrincipal string) *QuickSight {
	return &QuickSight{client: client, accountID: accountID, adminPrincipal: adminPrincipal}
}

var _ domain.BIService = (*QuickSight)(nil)

func (q *QuickSight) DescribeDataSource(ctx context.Context, dataSourceID string) (*domain.DataSource, error) {
	out, err := q.client.DescribeDataSource(ctx, &quicksight.DescribeDataSourceInput{
		AwsAccountId: aws.String(q.accountID),
		DataSourceId: aws.String(dataSourceID),
	})
	if err != nil {
		return nil, classify("quicksight", "DescribeDataSource", err)
	}
	ds := out.DataSource
	if ds == nil {
		return nil, domain.ErrNotFound("data source %q not found", dataSourceID)
	}
	return &domain.DataSource{
		ID:   aws.ToString(ds.DataSourceId),
		Arn:  aws.ToString(ds.Arn),
		Name: aws.ToString(ds.Name),
		Type: string(ds.Type),
	}, nil
}

func (q *QuickSight) DescribeDataSet(ctx context.Context, dataSetID string) (*domain.DataSetDefinition, error) {
	out, err := q.client.DescribeDataSet(ctx, &quicksight.DescribeDataSetInput{
		AwsAccountId: aws.String(q.accountID),
		DataSetId:    aws.String(dataSetID),
	})
	if err != nil {
		return nil, classify("quicksight", "DescribeDataSet", err)
	}
	if out.DataSet == nil {
		return nil, domain.ErrNotFound("dataset %q not found", dataSetID)
	}
	return definitionFromDataSet(out.DataSet)
}

func (q *QuickSight) CreateDataSet(ctx context.Context, spec domain.RulesDataSetSpec) (*domain.DataSetMutation, error) {
	physical, logical := rulesTables(spec)
	in := &quicksight.CreateDataSetInput{
		AwsAccountId:     aws.String(q.accountID),
		DataSetId:        aws.String(spec.DataSetID),
		Name:             aws.String(spec.Name),
		ImportMode:       qstypes.DataSetImportMode("SPICE"),
		PhysicalTableMap: physical,
		LogicalTableMap:  logical,
		UseAs:            qstypes.DataSetUseAs("RLS_RULES"),
		Tags:             []qstypes.Tag{{Key: aws.String(managedTagKey), Value: aws.String(managedTagValue)}},
	}
	if q.adminPrincipal != "" {
		in.Permissions = []qstypes.ResourcePermission{{
			Principal: aws.String(q.adminPrincipal),
			Actions:   domain.ActionsForLevel(domain.VisibilityOwner),
		}}
	}
	out, err := q.client.CreateDataSet(ctx, in)
	if err != nil {
		return nil, classify("quicksight", "CreateDataSet", err)
	}
	return &domain.DataSetMutation{
		Arn:          aws.ToString(out.Arn),
		DataSetID:    aws.ToString(out.DataSetId),
		IngestionID:  aws.ToString(out.IngestionId),
		IngestionArn: aws.ToString(out.IngestionArn),
	}, nil
}

func (q *QuickSight) UpdateDataSet(ctx context.Context, spec domain.RulesDataSetSpec) (*domain.DataSetMutation, error) {
	physical, logical := rulesTables(spec)
	return q.update(ctx, &quicksight.UpdateDataSetInput{
		AwsAccountId:     aws.String(q.accountID),
		DataSetId:        aws.String(spec.DataSetID),
		Name:             aws.String(spec.Name),
		ImportMode:       qstypes.DataSetImportMode("SPICE"),
		PhysicalTableMap: physical,
		LogicalTableMap:  logical,
	})
}

// UpdateDataSetDefinition issues a full-replace update built from def. def.Body
// must be the *types.DataSet returned by DescribeDataSet.
func (q *QuickSight) UpdateDataSetDefinition(ctx context.Context, def domain.DataSetDefinition) (*domain.DataSetMutation, error) {
	in, err := buildUpdateInput(q.accountID, def)
	if err != nil {
		return nil, err
	}
	return q.update(ctx, in)
}

func (q *QuickSight) update(ctx context.Context, in *quicksight.UpdateDataSetInput) (*domain.DataSetMutation, error) {
	out, err := q.client.UpdateDataSet(ctx, in)
	if err != nil {
		return nil, classify("quicksight", "UpdateDataSet", err)
	}
	return &domain.DataSetMutation{
		Arn:          aws.ToString(out.Arn),
		DataSetID:    aws.ToString(out.DataSetId),
		IngestionID:  aws.ToString(out.IngestionId),
		IngestionArn: aws.ToString(out.IngestionArn),
	}, nil
}

func (q *QuickSight) DeleteDataSet(ctx context.Context, dataSetID string) error {
	_, err := q.client.DeleteDataSet(ctx, &quicksight.DeleteDataSetInput{
		AwsAccountId: aws.String(q.accountID),
		DataSetId:    aws.String(dataSetID),
	})
	return classify("quicksight", "DeleteDataSet", err)
}

func (q *QuickSight) DescribeIngestion(ctx context.Context, dataSetID, ingestionID string) (*domain.Ingestion, error) {
	out, err := q.client.DescribeIngestion(ctx, &quicksight.DescribeIngestionInput{
		AwsAccountId: aws.String(q.accountID),
		DataSetId:    aws.String(dataSetID),
		IngestionId:  aws.String(ingestionID),
	})
	if err != nil {
		return nil, classify("quicksight", "DescribeIngestion", err)
	}
	if out.Ingestion == nil {
		return nil, domain.ErrNotFound("ingestion %q not found", ingestionID)
	}
	ing := &domain.Ingestion{
		ID:     aws.ToString(out.Ingestion.IngestionId),
		Status: string(out.Ingestion.IngestionStatus),
	}
	if info := out.Ingestion.ErrorInfo; info != nil {
		ing.ErrorType = string(info.Type)
		ing.ErrorMessage = aws.ToString(info.Message)
	}
	return ing, nil
}

func (q *QuickSight) DescribeDataSetPermissions(ctx context.Context, dataSetID string) ([]domain.ResourcePermission, error) {
	out, err := q.client.DescribeDataSetPermissions(ctx, &quicksight.DescribeDataSetPermissionsInput{
		AwsAccountId: aws.String(q.accountID),
		DataSetId:    aws.String(dataSetID),
	})
	if err != nil {
		return nil, classify("quicksight", "DescribeDataSetPermissions", err)
	}
	perms := make([]domain.ResourcePermission, 0, len(out.Permissions))
	for _, p := range out.Permissions {
		perms = append(perms, domain.ResourcePermission{Principal: aws.ToString(p.Principal), Actions: p.Actions})
	}
	return perms, nil
}

func (q *QuickSight) UpdateDataSetPermissions(ctx context.Context, dataSetID string, grant, revoke []domain.ResourcePermission) error {
	_, err := q.client.UpdateDataSetPermissions(ctx, &quicksight.UpdateDataSetPermissionsInput{
		AwsAccountId:      aws.String(q.accountID),
		DataSetId:         aws.String(dataSetID),
		GrantPermissions:  toSDKPermissions(grant),
		RevokePermissions: toSDKPermissions(revoke),
	})
	return classify("quicksight", "UpdateDataSetPermissions", err)
}

func (q *QuickSight) ListUsers(ctx context.Context, namespace string) ([]domain.Principal, error) {
	in := &quicksight.ListUsersInput{
		AwsAccountId: aws.String(q.accountID),
		Namespace:    aws.String(namespace),
		MaxResults:   aws.Int32(listPageSize),
	}
	var out []domain.Principal
	for {
		page, err := q.client.ListUsers(ctx, in)
		if err != nil {
			return nil, classify("quicksight", "ListUsers", err)
		}
		for _, u := range page.UserList {
			out = append(out, domain.Principal{Arn: aws.ToString(u.Arn), Name: aws.ToString(u.UserName), Kind: domain.PrincipalUser})
		}
		if aws.ToString(page.NextToken) == "" {
			return out, nil
		}
		in.NextToken = page.NextToken
	}
}

func (q *QuickSight) ListGroups(ctx context.Context, namespace string) ([]domain.Principal, error) {
	in := &quicksight.ListGroupsInput{
		AwsAccountId: aws.String(q.accountID),
		Namespace:    aws.String(namespace),
		MaxResults:   aws.Int32(listPageSize),
	}
	var out []domain.Principal
	for {
		page, err := q.client.ListGroups(ctx, in)
		if err != nil {
			return nil, classify("quicksight", "ListGroups", err)
		}
		for _, g := range page.GroupList {
			out = append(out, domain.Principal{Arn: aws.ToString(g.Arn), Name: aws.ToString(g.GroupName), Kind: domain.PrincipalGroup})
		}
		if aws.ToString(page.NextToken) == "" {
			return out, nil
		}
		in.NextToken = page.NextToken
	}
}

// rulesTables builds the table maps of a rules dataset: one relational table
// over the catalog table with a STRING input column per CSV column.
func rulesTables(spec domain.RulesDataSetSpec) (map[string]qstypes.PhysicalTable, map[string]qstypes.LogicalTable) {
	cols := make([]qstypes.InputColumn, 0, len(spec.Columns))
	for _, c := range spec.Columns {
		cols = append(cols, qstypes.InputColumn{Name: aws.String(c), Type: qstypes.InputColumnDataType("STRING")})
	}
	physical := map[string]qstypes.PhysicalTable{
		rulesPhysicalID: &qstypes.PhysicalTableMemberRelationalTable{
			Value: qstypes.RelationalTable{
				DataSourceArn: aws.String(spec.DataSourceArn),
				Catalog:       aws.String(awsDataCatalog),
				Schema:        aws.String(spec.Database),
				Name:          aws.String(spec.Table),
				InputColumns:  cols,
			},
		},
	}
	logical := map[string]qstypes.LogicalTable{
		rulesLogicalID: {
			Alias:  aws.String(spec.Table),
			Source: &qstypes.LogicalTableSource{PhysicalTableId: aws.String(rulesPhysicalID)},
		},
	}
	return physical, logical
}

func toSDKPermissions(perms []domain.ResourcePermission) []qstypes.ResourcePermission {
	if len(perms) == 0 {
		return nil
	}
	out := make([]qstypes.ResourcePermission, 0, len(perms))
	for _, p := range perms {
		out = append(out, qstypes.ResourcePermission{Principal: aws.String(p.Principal), Actions: p.Actions})
	}
	return out
}
