// Package archive uploads finished games, with the signals they produced, to
// S3 or an S3-compatible store.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/okian/courtside/internal/domain/model"
)

// Uploader is the subset of manager.Uploader used here.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Config holds connection parameters. Endpoint is empty for AWS S3.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Record is the archived document for one game.
type Record struct {
	Game       *model.GameSnapshot `json:"game"`
	Signals    []*model.Signal     `json:"signals"`
	ArchivedAt time.Time           `json:"archivedAt"`
}

// Archiver writes Records as JSON objects keyed by date and game id.
type Archiver struct {
	up     Uploader
	bucket string
	prefix string
}

// New builds an Archiver backed by the S3 upload manager. Static credentials
// are used when an access key is given, the default chain otherwise.
func New(ctx context.Context, cfg Config) (*Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive: bucket name is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(normaliseEndpoint(cfg.Endpoint))
			o.UsePathStyle = true
		}
	})
	return NewWithUploader(manager.NewUploader(client), cfg.Bucket), nil
}

// NewWithUploader builds an Archiver over any Uploader.
func NewWithUploader(up Uploader, bucket string) *Archiver {
	return &Archiver{up: up, bucket: bucket, prefix: "games"}
}

// Key returns the object key for a game finished at t.
func (a *Archiver) Key(gameID string, t time.Time) string {
	return fmt.Sprintf("%s/%s/%s.json", a.prefix, t.UTC().Format("2006/01/02"), url.PathEscape(gameID))
}

// Archive uploads r and returns the object key.
func (a *Archiver) Archive(ctx context.Context, r Record) (string, error) {
	if r.Game == nil {
		return "", fmt.Errorf("archive: record has no game")
	}
	body, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("archive: marshal %s: %w", r.Game.ID, err)
	}

	key := a.Key(r.Game.ID, r.ArchivedAt)
	_, err = a.up.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("archive: upload %s: %w", key, err)
	}
	return key, nil
}

func normaliseEndpoint(endpoint string) string {
	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" {
		return endpoint
	}
	return "https://" + endpoint
}
