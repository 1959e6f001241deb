package storage

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/pinewilt/kgcurate/backend/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const imagePrefix = "images"

// objectPutter is the part of *s3.Client the archive writes through.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ImageArchive stores uploaded images in an S3 bucket.
type ImageArchive struct {
	client         objectPutter
	bucket         string
	publicEndpoint string
	now            func() time.Time
}

// NewS3Client builds a path-style S3 client from the AWS_* environment.
// Returns nil when no bucket is configured.
func NewS3Client(ctx context.Context) *s3.Client {
	if util.GetEnv("AWS_BUCKET") == "" {
		return nil
	}

	region := util.GetEnvString("AWS_REGION", "us-east-1")
	endpoint := util.GetEnv("AWS_ENDPOINT")
	accessKey := util.GetEnv("AWS_ACCESS_KEY")
	secretKey := util.GetEnv("AWS_SECRET_KEY")

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)),
	}
	if endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
}

// NewImageArchive wraps client. A nil client yields a nil archive.
func NewImageArchive(client *s3.Client) *ImageArchive {
	if client == nil {
		return nil
	}
	return &ImageArchive{
		client:         client,
		bucket:         util.GetEnv("AWS_BUCKET"),
		publicEndpoint: util.GetEnv("AWS_PUBLIC_ENDPOINT"),
		now:            time.Now,
	}
}

// PutImage uploads data under images/<yyyy-mm-dd>/<nanoid>.<ext> and returns
// the object key.
func (a *ImageArchive) PutImage(ctx context.Context, filename string, mimeType string, data []byte) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("failed to generate object key: %w", err)
	}

	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if ext == "" {
		ext = "bin"
	}
	if mimeType == "" {
		mimeType = mime.TypeByExtension("." + ext)
	}

	key := fmt.Sprintf("%s/%s/%s.%s", imagePrefix, a.now().UTC().Format("2006-01-02"), id, ext)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %w", err)
	}

	return key, nil
}

// PublicURL returns the object URL under AWS_PUBLIC_ENDPOINT, or "" when no
// public endpoint is configured.
func (a *ImageArchive) PublicURL(key string) string {
	if a.publicEndpoint == "" {
		return ""
	}
	u, err := url.Parse(a.publicEndpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	u.Path = path.Join(u.Path, a.bucket, key)
	return u.String()
}
