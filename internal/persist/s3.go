package persist

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	hverrors "github.com/hanviet/hvsearch/internal/errors"
)

// S3Config describes an S3 compatible object store.
type S3Config struct {
	// Endpoint overrides the AWS endpoint, e.g. "http://127.0.0.1:9000" for MinIO.
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`

	// AccessKey and SecretKey are optional; without them requests are anonymous.
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`

	// PartSize is the multipart chunk size in bytes.
	PartSize int64 `yaml:"part_size"`
}

// NewS3Client connects to the configured store.
func NewS3Client(cfg S3Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	return s3.NewFromConfig(aws.Config{Region: region}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.AccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		} else {
			o.Credentials = aws.AnonymousCredentials{}
		}
	})
}

// S3Store downloads and uploads index blobs with the multipart transfer manager.
type S3Store struct {
	client   *s3.Client
	partSize int64
}

// NewS3Store creates an S3Store.
func NewS3Store(cfg S3Config) *S3Store {
	partSize := cfg.PartSize
	if partSize < manager.MinUploadPartSize {
		partSize = manager.DefaultDownloadPartSize
	}
	return &S3Store{client: NewS3Client(cfg), partSize: partSize}
}

func (s *S3Store) Fetch(ctx context.Context, loc Locator) ([]byte, error) {
	downloader := manager.NewDownloader(s.client, func(d *manager.Downloader) {
		d.PartSize = s.partSize
	})
	buffer := manager.NewWriteAtBuffer([]byte{})
	_, err := downloader.Download(ctx, buffer, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, hverrors.RemoteFetchError(loc.Raw, "download index from s3", err)
	}
	return buffer.Bytes(), nil
}

// Put uploads data to the locator's bucket and key.
func (s *S3Store) Put(ctx context.Context, loc Locator, data []byte) error {
	uploader := manager.NewUploader(s.client, func(u *manager.Uploader) {
		u.PartSize = s.partSize
	})
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(loc.Bucket),
		Key:         aws.String(loc.Key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return hverrors.New(hverrors.ErrCodeIndexWrite, "upload index to "+loc.Raw, err)
	}
	return nil
}
