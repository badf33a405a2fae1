package e2e_harness

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
)

// Credentials of the RustFS container.
const (
	S3AccessKey = "minio"
	S3SecretKey = "minio123"
)

// SeedCollapseState writes a snapshot row the way an older client would,
// bypassing the store. The table must already exist.
func SeedCollapseState(ctx context.Context, db *sql.DB, table, key string, namesJSON string) (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, err
	}
	query := fmt.Sprintf(`INSERT INTO %s (view_key, snapshot_id, names, saved_at)
VALUES ($1, $2, $3::jsonb, $4)`, table)
	if _, err := db.ExecContext(ctx, query, key, id.String(), namesJSON, time.Now().UTC()); err != nil {
		return uuid.Nil, fmt.Errorf("seed %s: %w", table, err)
	}
	return id, nil
}

// EnsureBucket creates bucket on the S3 endpoint unless it exists.
func EnsureBucket(ctx context.Context, endpoint, bucket string) error {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(S3AccessKey, S3SecretKey, "")),
		config.WithBaseEndpoint(endpoint),
	)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err == nil {
		return nil
	}
	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
			return nil
		}
	}
	return fmt.Errorf("create bucket: %w", err)
}
