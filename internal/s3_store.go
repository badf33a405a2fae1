package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/lychee-technology/propgrid"
	"go.uber.org/zap"
)

// S3API is the subset of *s3.Client used by S3Store.
type S3API interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store writes one JSON object per view key under prefix.
type S3Store struct {
	client   S3API
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

func NewS3Store(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
	}
}

func (s *S3Store) objectKey(key string) string {
	return strings.TrimPrefix(s.prefix+key+".json", "/")
}

func (s *S3Store) Save(ctx context.Context, key string, names *propgrid.CollapsedNames) (*propgrid.Snapshot, error) {
	snap := propgrid.NewSnapshot(key, names)
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, propgrid.NewStorageError("failed to encode snapshot", err)
	}

	objectKey := s.objectKey(key)
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, propgrid.NewStorageError(fmt.Sprintf("failed to upload s3://%s/%s", s.bucket, objectKey), err)
	}
	zap.S().Debugw("collapse state saved", "backend", propgrid.BackendS3, "bucket", s.bucket, "object", objectKey)
	return snap, nil
}

func (s *S3Store) Load(ctx context.Context, key string) (*propgrid.Snapshot, error) {
	objectKey := s.objectKey(key)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, propgrid.NewStateNotFoundError(key)
		}
		return nil, propgrid.NewStorageError(fmt.Sprintf("failed to get s3://%s/%s", s.bucket, objectKey), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, propgrid.NewStorageError(fmt.Sprintf("failed to read s3://%s/%s", s.bucket, objectKey), err)
	}
	var snap propgrid.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, propgrid.NewStorageError(fmt.Sprintf("failed to decode s3://%s/%s", s.bucket, objectKey), err)
	}
	if snap.Names == nil {
		snap.Names = propgrid.NewCollapsedNames()
	}
	return &snap, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	objectKey := s.objectKey(key)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil && !isS3NotFound(err) {
		return propgrid.NewStorageError(fmt.Sprintf("failed to delete s3://%s/%s", s.bucket, objectKey), err)
	}
	return nil
}

func (s *S3Store) Close() error { return nil }

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
