// Package storage wraps the external object store behind the capability the
// services depend on: upload a file and get back {url, id}, destroy by id.
package storage

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	appconfig "github.com/irfandhmahudi/backend-mern/internal/config"
)

type UploadedObject struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

type ObjectStorage interface {
	Upload(ctx context.Context, folder, filename string, body io.Reader) (*UploadedObject, error)
	Destroy(ctx context.Context, id string) error
}

type S3Storage struct {
	client   *s3.Client
	bucket   string
	endpoint string
}

func NewS3Storage(cfg *appconfig.Config) (*S3Storage, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL:               cfg.S3Endpoint,
			SigningRegion:     region,
			HostnameImmutable: true,
		}, nil
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(
		context.TODO(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	return &S3Storage{
		client:   client,
		bucket:   cfg.S3Bucket,
		endpoint: cfg.S3Endpoint,
	}, nil
}

// Upload stores the object under a fresh key inside folder. The original
// filename only contributes its extension; the key is the storage id.
func (s *S3Storage) Upload(ctx context.Context, folder, filename string, body io.Reader) (*UploadedObject, error) {
	key := folder + "/" + uuid.New().String() + extension(filename)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return nil, err
	}

	return &UploadedObject{
		URL: s.endpoint + "/" + s.bucket + "/" + key,
		ID:  key,
	}, nil
}

func (s *S3Storage) Destroy(ctx context.Context, id string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	return err
}

func extension(filename string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 {
		return filename[i:]
	}
	return ""
}
