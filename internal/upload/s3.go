package upload

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"fixmycity/backend/internal/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config describes an S3-compatible image bucket.
type S3Config struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	// PublicURL is the base under which objects are served. Defaults to
	// <Endpoint>/<Bucket>.
	PublicURL string
	Folder    string
}

// ObjectAPI is the subset of the S3 client used here.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Uploader stores images in a folder of an S3 bucket.
type S3Uploader struct {
	client    ObjectAPI
	bucket    string
	folder    string
	publicURL string
}

// NewS3Uploader builds an AWS client with static credentials.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.Endpoint))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Path-style addressing keeps MinIO and other S3-compatible hosts working.
		o.UsePathStyle = cfg.Endpoint != ""
	})

	public := cfg.PublicURL
	if public == "" {
		if cfg.Endpoint != "" {
			public = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			public = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}
	return NewS3UploaderWithClient(client, cfg.Bucket, cfg.Folder, public), nil
}

func NewS3UploaderWithClient(client ObjectAPI, bucket, folder, publicURL string) *S3Uploader {
	return &S3Uploader{
		client:    client,
		bucket:    bucket,
		folder:    strings.Trim(folder, "/"),
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (u *S3Uploader) Upload(ctx context.Context, f File) (string, error) {
	key := objectKey(u.folder, f)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(f.Data),
		ContentType: aws.String(f.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	logging.Ctx(ctx).Debug().Str("key", key).Int("bytes", len(f.Data)).Msg("image stored")
	return u.publicURL + "/" + key, nil
}

// Delete removes an object previously returned by Upload. URLs outside the
// bucket's public prefix are ignored.
func (u *S3Uploader) Delete(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, u.publicURL+"/")
	if !ok {
		return nil
	}
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	return err
}
