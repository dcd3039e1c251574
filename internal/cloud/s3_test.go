package cloud

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qs-rls-manager/internal/domain"
)

func TestS3Store_PutAndGet(t *testing.T) {
	var put *s3.PutObjectInput
	fake := &fakeS3{
		PutObjectFn: func(in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
			put = in
			return &s3.PutObjectOutput{VersionId: aws.String("v7")}, nil
		},
		GetObjectFn: func(in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			assert.Equal(t, "v3", aws.ToString(in.VersionId))
			return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("UserARN,GroupARN\n"))}, nil
		},
	}
	store := NewS3Store(fake)

	v, err := store.PutObject(context.Background(), "bucket", "RLS-Datasets/x/a.csv", []byte("data"), "text/csv")
	require.NoError(t, err)
	assert.Equal(t, "v7", v)
	assert.Equal(t, "text/csv", aws.ToString(put.ContentType))

	data, err := store.GetObject(context.Background(), "bucket", "RLS-Datasets/x/a.csv", "v3")
	require.NoError(t, err)
	assert.Equal(t, "UserARN,GroupARN\n", string(data))
}

func TestS3Store_ListObjectVersionsFollowsMarkers(t *testing.T) {
	calls := 0
	fake := &fakeS3{
		ListObjectVersionsFn: func(in *s3.ListObjectVersionsInput) (*s3.ListObjectVersionsOutput, error) {
			calls++
			if calls == 1 {
				assert.Nil(t, in.KeyMarker)
				return &s3.ListObjectVersionsOutput{
					Versions:            []s3types.ObjectVersion{{Key: aws.String("k"), VersionId: aws.String("v2"), IsLatest: aws.Bool(true)}},
					IsTruncated:         aws.Bool(true),
					NextKeyMarker:       aws.String("k"),
					NextVersionIdMarker: aws.String("v2"),
				}, nil
			}
			assert.Equal(t, "v2", aws.ToString(in.VersionIdMarker))
			return &s3.ListObjectVersionsOutput{
				Versions: []s3types.ObjectVersion{{Key: aws.String("k"), VersionId: aws.String("v1"), Size: aws.Int64(12)}},
			}, nil
		},
	}

	versions, err := NewS3Store(fake).ListObjectVersions(context.Background(), "bucket", "k")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.True(t, versions[0].IsLatest)
	assert.Equal(t, "v1", versions[1].VersionID)
	assert.Equal(t, int64(12), versions[1].Size)
}

func TestS3Store_DeleteObjectsBatches(t *testing.T) {
	var batches []int
	fake := &fakeS3{
		DeleteObjectsFn: func(in *s3.DeleteObjectsInput) (*s3.DeleteObjectsOutput, error) {
			batches = append(batches, len(in.Delete.Objects))
			return &s3.DeleteObjectsOutput{}, nil
		},
	}
	keys := make([]string, 2500)
	for i := range keys {
		keys[i] = fmt.Sprintf("k%d", i)
	}

	require.NoError(t, NewS3Store(fake).DeleteObjects(context.Background(), "bucket", keys))
	assert.Equal(t, []int{1000, 1000, 500}, batches)
}

func TestS3Store_DeleteObjectsReportsKeyError(t *testing.T) {
	fake := &fakeS3{
		DeleteObjectsFn: func(in *s3.DeleteObjectsInput) (*s3.DeleteObjectsOutput, error) {
			return &s3.DeleteObjectsOutput{Errors: []s3types.Error{{
				Key: aws.String("k1"), Code: aws.String("AccessDenied"), Message: aws.String("nope"),
			}}}, nil
		},
	}

	err := NewS3Store(fake).DeleteObjects(context.Background(), "bucket", []string{"k1"})
	var svc *domain.ServiceError
	require.ErrorAs(t, err, &svc)
	assert.Equal(t, 403, svc.Status)
}

func TestS3Store_CopyObjectVersion(t *testing.T) {
	var copied *s3.CopyObjectInput
	fake := &fakeS3{
		CopyObjectFn: func(in *s3.CopyObjectInput) (*s3.CopyObjectOutput, error) {
			copied = in
			return &s3.CopyObjectOutput{VersionId: aws.String("v9")}, nil
		},
	}

	v, err := NewS3Store(fake).CopyObjectVersion(context.Background(), "bucket", "RLS-Datasets/a b/x.csv", "v1", "RLS-Datasets/a b/x.csv")
	require.NoError(t, err)
	assert.Equal(t, "v9", v)
	assert.Equal(t, "bucket/RLS-Datasets/a%20b/x.csv?versionId=v1", aws.ToString(copied.CopySource))
	assert.Equal(t, "RLS-Datasets/a b/x.csv", aws.ToString(copied.Key))
}

func TestS3Store_ListObjects(t *testing.T) {
	fake := &fakeS3{
		ListObjectsV2Fn: func(in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
			if in.ContinuationToken == nil {
				return &s3.ListObjectsV2Output{
					Contents:              []s3types.Object{{Key: aws.String("p/a")}},
					IsTruncated:           aws.Bool(true),
					NextContinuationToken: aws.String("t"),
				}, nil
			}
			return &s3.ListObjectsV2Output{Contents: []s3types.Object{{Key: aws.String("p/b")}}}, nil
		},
	}

	keys, err := NewS3Store(fake).ListObjects(context.Background(), "bucket", "p/")
	require.NoError(t, err)
	assert.Equal(t, []string{"p/a", "p/b"}, keys)
}
