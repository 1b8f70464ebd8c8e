package storage

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Config holds S3/MinIO configuration
type S3Config struct {
	Endpoint        string // e.g., "http://localhost:9000" for MinIO
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
}

// RawArchive keeps provider responses that could not be parsed into an article,
// so prompt and parser changes can be checked against real output.
type RawArchive struct {
	client *s3.Client
	bucket string
	now    func() time.Time
}

// NewRawArchive creates an archive backed by an S3-compatible bucket
func NewRawArchive(cfg S3Config) *RawArchive {
	client := s3.New(s3.Options{
		Region:       cfg.Region,
		BaseEndpoint: aws.String(cfg.Endpoint),
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
		UsePathStyle:               true, // Required for MinIO
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
	})

	return &RawArchive{
		client: client,
		bucket: cfg.Bucket,
		now:    time.Now,
	}
}

// ArchiveRaw stores one raw provider response and returns its object key
func (a *RawArchive) ArchiveRaw(ctx context.Context, provider, topic, raw string) (string, error) {
	key := fmt.Sprintf("%s/%s/%s-%s.txt",
		a.now().UTC().Format("2006/01/02"),
		slug(provider),
		slug(topic),
		uuid.New().String(),
	)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          strings.NewReader(raw),
		ContentType:   aws.String("text/plain; charset=utf-8"),
		ContentLength: aws.Int64(int64(len(raw))),
		Metadata: map[string]string{
			"provider": provider,
		},
	})
	if err != nil {
		return "", fmt.Errorf("uploading to s3: %w", err)
	}
	return key, nil
}

// Get returns an archived response
func (a *RawArchive) Get(ctx context.Context, key string) (string, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("downloading from s3: %w", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("reading s3 object: %w", err)
	}
	return string(body), nil
}

// Delete removes an archived response
func (a *RawArchive) Delete(ctx context.Context, key string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting from s3: %w", err)
	}
	return nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	s = strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if len(s) > 48 {
		s = strings.TrimRight(s[:48], "-")
	}
	if s == "" {
		return "untitled"
	}
	return s
}
