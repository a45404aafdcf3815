package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/bassimeledath/aristo-bites/internal/config"
)

// s3API is the slice of the S3 client the bucket uses.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Bucket stores pipeline artifacts in a Cloudflare R2 bucket and hands back
// their public URLs. R2 speaks the S3 API against an account-scoped
// endpoint; reads go through the bucket's public base URL instead.
type Bucket struct {
	client s3API
	http   *http.Client
	name   string
	public string
	log    *zap.Logger
}

func NewBucket(ctx context.Context, cfg config.R2Config, log *zap.Logger) (*Bucket, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load r2 credentials: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &Bucket{
		client: client,
		http:   &http.Client{Timeout: 5 * time.Minute},
		name:   cfg.Bucket,
		public: strings.TrimRight(cfg.PublicBaseURL, "/"),
		log:    log,
	}, nil
}

// Upload stores body under key and returns the object's public URL.
func (b *Bucket) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.name),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	url := b.public + "/" + key
	b.log.Debug("uploaded artifact", zap.String("key", key), zap.String("url", url))
	return url, nil
}

// UploadFile streams the local file at path to the bucket under key.
func (b *Bucket) UploadFile(ctx context.Context, key, path, contentType string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return b.Upload(ctx, key, f, contentType)
}
