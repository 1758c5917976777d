package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"fdb-go/internal/store"
)

// versionMetaKey is the user metadata entry carrying a metadata blob's
// version. S3 returns user metadata keys lowercased.
const versionMetaKey = "fdb-version"

// s3API is the subset of *s3.Client used by S3Vault.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

type uploaderAPI interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Options configures an S3Vault.
type S3Options struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint overrides the AWS endpoint, for S3-compatible services.
	Endpoint  string
	PathStyle bool
	// Static credentials. When empty the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
}

// S3Vault stores objects in an S3 bucket:
//
//	<prefix>/content/<id>
//	<prefix>/metadata/<fdbName>/<name>   (version in user metadata)
type S3Vault struct {
	name     string
	bucket   string
	prefix   string
	client   s3API
	uploader uploaderAPI
}

// NewS3Vault builds a vault from the default AWS configuration, overridden
// by opts.
func NewS3Vault(name string, opts S3Options) (*S3Vault, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})

	return newS3Vault(name, opts.Bucket, opts.Prefix, client, manager.NewUploader(client)), nil
}

func newS3Vault(name, bucket, prefix string, client s3API, uploader uploaderAPI) *S3Vault {
	return &S3Vault{
		name:     name,
		bucket:   bucket,
		prefix:   prefix,
		client:   client,
		uploader: uploader,
	}
}

func (v *S3Vault) contentKey(id string) string {
	return path.Join(v.prefix, "content", id)
}

func (v *S3Vault) metadataKey(fdbName, name string) string {
	return path.Join(v.prefix, "metadata", fdbName, name)
}

// PutContent uploads size bytes from r. The uploader switches to multipart
// uploads for large payloads.
func (v *S3Vault) PutContent(id string, r io.Reader, size int64) error {
	return v.upload(v.contentKey(id), r, size, nil)
}

func (v *S3Vault) upload(key string, r io.Reader, size int64, meta map[string]string) error {
	cr := &countingReader{r: r}
	_, err := v.uploader.Upload(context.Background(), &s3.PutObjectInput{
		Bucket:   aws.String(v.bucket),
		Key:      aws.String(key),
		Body:     cr,
		Metadata: meta,
	})
	if err != nil {
		return fmt.Errorf("uploading s3://%s/%s: %w", v.bucket, key, err)
	}
	if cr.n != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, cr.n)
	}
	return nil
}

// OpenContent streams an object body. The caller must close it.
func (v *S3Vault) OpenContent(id string) (io.ReadCloser, error) {
	key := v.contentKey(id)
	out, err := v.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrContentNotFound, id)
		}
		return nil, fmt.Errorf("getting s3://%s/%s: %w", v.bucket, key, err)
	}
	return out.Body, nil
}

// DeleteContent removes an object. S3 treats missing keys as deleted.
func (v *S3Vault) DeleteContent(id string) error {
	key := v.contentKey(id)
	_, err := v.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isS3NotFound(err) {
		return fmt.Errorf("deleting s3://%s/%s: %w", v.bucket, key, err)
	}
	return nil
}

func (v *S3Vault) PutMetadata(fdbName string, name string, r io.Reader, size int64, version int64) error {
	meta := map[string]string{versionMetaKey: strconv.FormatInt(version, 10)}
	return v.upload(v.metadataKey(fdbName, name), r, size, meta)
}

func (v *S3Vault) GetMetadata(fdbName string, name string, w io.Writer) error {
	key := v.metadataKey(fdbName, name)
	out, err := v.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return fmt.Errorf("metadata %q not found for store: %s", name, fdbName)
		}
		return fmt.Errorf("getting s3://%s/%s: %w", v.bucket, key, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}
	return nil
}

// GetMetadataVersion reads the version from the object's user metadata.
// Returns 0 if the object does not exist.
func (v *S3Vault) GetMetadataVersion(fdbName string, name string) (int64, error) {
	key := v.metadataKey(fdbName, name)
	out, err := v.client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("head s3://%s/%s: %w", v.bucket, key, err)
	}

	raw, ok := out.Metadata[versionMetaKey]
	if !ok {
		return 0, nil
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// ValidateSetup checks that the bucket exists and is accessible.
func (v *S3Vault) ValidateSetup() error {
	_, err := v.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(v.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

func isS3NotFound(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

var _ store.Vault = (*S3Vault)(nil)
