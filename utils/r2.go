// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gosimple/slug"
)

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// Enabled reports whether enough is set to talk to the bucket.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

// Archive stores finished match summaries in an R2 bucket.
type Archive struct {
	client     *s3.Client
	bucket     string
	cdnBaseURL string
}

func NewArchive(ctx context.Context, rc R2Config) (*Archive, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", rc.AccountID)
	cdn := rc.CDNBaseURL
	if cdn == "" {
		cdn = endpoint
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			rc.AccessKeyID, rc.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &Archive{client: client, bucket: rc.Bucket, cdnBaseURL: cdn}, nil
}

// Upload puts body under key and returns the public URL of the object.
func (a *Archive) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}
	return fmt.Sprintf("%s/%s", a.cdnBaseURL, key), nil
}

// MatchKey is the object key of a match summary,
// e.g. "matches/spatialpong/2025-03-01/<id>.json".
func MatchKey(gameType string, day time.Time, id string) string {
	return fmt.Sprintf("matches/%s/%s/%s.json", slug.Make(gameType), day.UTC().Format("2006-01-02"), id)
}
