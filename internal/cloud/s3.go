package cloud

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"qs-rls-manager/internal/domain"
)

// deleteBatchSize is the DeleteObjects per-request key limit.
const deleteBatchSize = 1000

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectVersions(ctx context.Context, in *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}

// S3Store implements domain.ObjectStore on a versioned S3 bucket.
type S3Store struct {
	client S3API
}

// NewS3Store wraps an S3 client.
func NewS3Store(client S3API) *S3Store {
	return &S3Store{client: client}
}

var _ domain.ObjectStore = (*S3Store)(nil)

func (s *S3Store) HeadBucket(ctx context.Context, bucket string) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	return classify("s3", "HeadBucket", err)
}

func (s *S3Store) PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) (string, error) {
	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", classify("s3", "PutObject", err)
	}
	return aws.ToString(out.VersionId), nil
}

func (s *S3Store) GetObject(ctx context.Context, bucket, key, versionID string) ([]byte, error) {
	in := &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}
	if versionID != "" {
		in.VersionId = aws.String(versionID)
	}
	out, err := s.client.GetObject(ctx, in)
	if err != nil {
		return nil, classify("s3", "GetObject", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// ListObjectVersions returns every version under prefix in service order:
// by key, newest version first.
func (s *S3Store) ListObjectVersions(ctx context.Context, bucket, prefix string) ([]domain.ObjectVersion, error) {
	in := &s3.ListObjectVersionsInput{Bucket: aws.String(bucket), Prefix: aws.String(prefix)}
	var out []domain.ObjectVersion
	for {
		page, err := s.client.ListObjectVersions(ctx, in)
		if err != nil {
			return nil, classify("s3", "ListObjectVersions", err)
		}
		for _, v := range page.Versions {
			out = append(out, domain.ObjectVersion{
				Key:          aws.ToString(v.Key),
				VersionID:    aws.ToString(v.VersionId),
				IsLatest:     aws.ToBool(v.IsLatest),
				LastModified: aws.ToTime(v.LastModified),
				Size:         aws.ToInt64(v.Size),
			})
		}
		if !aws.ToBool(page.IsTruncated) {
			return out, nil
		}
		in.KeyMarker = page.NextKeyMarker
		in.VersionIdMarker = page.NextVersionIdMarker
	}
}

func (s *S3Store) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, classify("s3", "ListObjectsV2", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// DeleteObjects removes keys in batches. The first per-key failure reported
// by the service is returned.
func (s *S3Store) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(keys))
		ids := make([]s3types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			ids = append(ids, s3types.ObjectIdentifier{Key: aws.String(k)})
		}
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &s3types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return classify("s3", "DeleteObjects", err)
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			code := aws.ToString(e.Code)
			return &domain.ServiceError{
				Service: "s3",
				Op:      "DeleteObjects",
				Code:    code,
				Status:  domain.StatusForErrorName(code),
				Message: fmt.Sprintf("%s: %s", aws.ToString(e.Key), aws.ToString(e.Message)),
			}
		}
	}
	return nil
}

// CopyObjectVersion copies one version of srcKey onto dstKey in the same
// bucket, creating a new latest version, and returns its version id.
func (s *S3Store) CopyObjectVersion(ctx context.Context, bucket, srcKey, srcVersionID, dstKey string) (string, error) {
	source := bucket + "/" + escapeKey(srcKey)
	if srcVersionID != "" {
		source += "?versionId=" + url.QueryEscape(srcVersionID)
	}
	out, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(source),
	})
	if err != nil {
		return "", classify("s3", "CopyObject", err)
	}
	return aws.ToString(out.VersionId), nil
}

// escapeKey URL-encodes each path segment of an object key.
func escapeKey(key string) string {
	segs := strings.Split(key, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}
