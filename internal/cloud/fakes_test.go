package cloud

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/quicksight"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeS3 struct {
	HeadBucketFn         func(*s3.HeadBucketInput) (*s3.HeadBucketOutput, error)
	PutObjectFn          func(*s3.PutObjectInput) (*s3.PutObjectOutput, error)
	GetObjectFn          func(*s3.GetObjectInput) (*s3.GetObjectOutput, error)
	ListObjectVersionsFn func(*s3.ListObjectVersionsInput) (*s3.ListObjectVersionsOutput, error)
	ListObjectsV2Fn      func(*s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error)
	DeleteObjectsFn      func(*s3.DeleteObjectsInput) (*s3.DeleteObjectsOutput, error)
	CopyObjectFn         func(*s3.CopyObjectInput) (*s3.CopyObjectOutput, error)
}

func (f *fakeS3) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return f.HeadBucketFn(in)
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return f.PutObjectFn(in)
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return f.GetObjectFn(in)
}

func (f *fakeS3) ListObjectVersions(_ context.Context, in *s3.ListObjectVersionsInput, _ ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error) {
	return f.ListObjectVersionsFn(in)
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return f.ListObjectsV2Fn(in)
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	return f.DeleteObjectsFn(in)
}

func (f *fakeS3) CopyObject(_ context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	return f.CopyObjectFn(in)
}

type fakeGlue struct {
	GetDatabaseFn func(*glue.GetDatabaseInput) (*glue.GetDatabaseOutput, error)
	GetTableFn    func(*glue.GetTableInput) (*glue.GetTableOutput, error)
	CreateTableFn func(*glue.CreateTableInput) (*glue.CreateTableOutput, error)
	UpdateTableFn func(*glue.UpdateTableInput) (*glue.UpdateTableOutput, error)
	DeleteTableFn func(*glue.DeleteTableInput) (*glue.DeleteTableOutput, error)
}

func (f *fakeGlue) GetDatabase(_ context.Context, in *glue.GetDatabaseInput, _ ...func(*glue.Options)) (*glue.GetDatabaseOutput, error) {
	return f.GetDatabaseFn(in)
}

func (f *fakeGlue) GetTable(_ context.Context, in *glue.GetTableInput, _ ...func(*glue.Options)) (*glue.GetTableOutput, error) {
	return f.GetTableFn(in)
}

func (f *fakeGlue) CreateTable(_ context.Context, in *glue.CreateTableInput, _ ...func(*glue.Options)) (*glue.CreateTableOutput, error) {
	return f.CreateTableFn(in)
}

func (f *fakeGlue) UpdateTable(_ context.Context, in *glue.UpdateTableInput, _ ...func(*glue.Options)) (*glue.UpdateTableOutput, error) {
	return f.UpdateTableFn(in)
}

func (f *fakeGlue) DeleteTable(_ context.Context, in *glue.DeleteTableInput, _ ...func(*glue.Options)) (*glue.DeleteTableOutput, error) {
	return f.DeleteTableFn(in)
}

type fakeQuickSight struct {
	DescribeDataSourceFn         func(*quicksight.DescribeDataSourceInput) (*quicksight.DescribeDataSourceOutput, error)
	DescribeDataSetFn            func(*quicksight.DescribeDataSetInput) (*quicksight.DescribeDataSetOutput, error)
	CreateDataSetFn              func(*quicksight.CreateDataSetInput) (*quicksight.CreateDataSetOutput, error)
	UpdateDataSetFn              func(*quicksight.UpdateDataSetInput) (*quicksight.UpdateDataSetOutput, error)
	DeleteDataSetFn              func(*quicksight.DeleteDataSetInput) (*quicksight.DeleteDataSetOutput, error)
	DescribeIngestionFn          func(*quicksight.DescribeIngestionInput) (*quicksight.DescribeIngestionOutput, error)
	DescribeDataSetPermissionsFn func(*quicksight.DescribeDataSetPermissionsInput) (*quicksight.DescribeDataSetPermissionsOutput, error)
	UpdateDataSetPermissionsFn   func(*quicksight.UpdateDataSetPermissionsInput) (*quicksight.UpdateDataSetPermissionsOutput, error)
	ListUsersFn                  func(*quicksight.ListUsersInput) (*quicksight.ListUsersOutput, error)
	ListGroupsFn                 func(*quicksight.ListGroupsInput) (*quicksight.ListGroupsOutput, error)
}

func (f *fakeQuickSight) DescribeDataSource(_ context.Context, in *quicksight.DescribeDataSourceInput, _ ...func(*quicksight.Options)) (*quicksight.DescribeDataSourceOutput, error) {
	return f.DescribeDataSourceFn(in)
}

func (f *fakeQuickSight) DescribeDataSet(_ context.Context, in *quicksight.DescribeDataSetInput, _ ...func(*quicksight.Options)) (*quicksight.DescribeDataSetOutput, error) {
	return f.DescribeDataSetFn(in)
}

func (f *fakeQuickSight) CreateDataSet(_ context.Context, in *quicksight.CreateDataSetInput, _ ...func(*quicksight.Options)) (*quicksight.CreateDataSetOutput, error) {
	return f.CreateDataSetFn(in)
}

func (f *fakeQuickSight) UpdateDataSet(_ context.Context, in *quicksight.UpdateDataSetInput, _ ...func(*quicksight.Options)) (*quicksight.UpdateDataSetOutput, error) {
	return f.UpdateDataSetFn(in)
}

func (f *fakeQuickSight) DeleteDataSet(_ context.Context, in *quicksight.DeleteDataSetInput, _ ...func(*quicksight.Options)) (*quicksight.DeleteDataSetOutput, error) {
	return f.DeleteDataSetFn(in)
}

func (f *fakeQuickSight) DescribeIngestion(_ context.Context, in *quicksight.DescribeIngestionInput, _ ...func(*quicksight.Options)) (*quicksight.DescribeIngestionOutput, error) {
	return f.DescribeIngestionFn(in)
}

func (f *fakeQuickSight) DescribeDataSetPermissions(_ context.Context, in *quicksight.DescribeDataSetPermissionsInput, _ ...func(*quicksight.Options)) (*quicksight.DescribeDataSetPermissionsOutput, error) {
	return f.DescribeDataSetPermissionsFn(in)
}

func (f *fakeQuickSight) UpdateDataSetPermissions(_ context.Context, in *quicksight.UpdateDataSetPermissionsInput, _ ...func(*quicksight.Options)) (*quicksight.UpdateDataSetPermissionsOutput, error) {
	return f.UpdateDataSetPermissionsFn(in)
}

func (f *fakeQuickSight) ListUsers(_ context.Context, in *quicksight.ListUsersInput, _ ...func(*quicksight.Options)) (*quicksight.ListUsersOutput, error) {
	return f.ListUsersFn(in)
}

func (f *fakeQuickSight) ListGroups(_ context.Context, in *quicksight.ListGroupsInput, _ ...func(*quicksight.Options)) (*quicksight.ListGroupsOutput, error) {
	return f.ListGroupsFn(in)
}
