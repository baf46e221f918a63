package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"basegraph.app/crmrelay/core/config"
)

type s3ObjectStore struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

// NewS3ObjectStore builds a store for an S3-compatible bucket (Cloudflare R2 by
// default). Construction makes no network calls, so an incomplete config is
// only detected by StorageConfig.Validate.
func NewS3ObjectStore(cfg config.StorageConfig, httpClient *http.Client) ObjectStore {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	client := s3.New(s3.Options{
		Region:       cfg.Region,
		BaseEndpoint: aws.String(cfg.EndpointURL()),
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		UsePathStyle: true,
		HTTPClient:   httpClient,
		Retryer:      aws.NopRetryer{},
		// R2 rejects the trailing CRC checksums newer SDKs send by default.
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	})

	return &s3ObjectStore{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: cfg.PublicBaseURL,
	}
}

func (s *s3ObjectStore) PutObject(ctx context.Context, params PutObjectParams) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(params.Key),
		Body:          bytes.NewReader(params.Body),
		ContentType:   aws.String(params.ContentType),
		ContentLength: aws.Int64(int64(len(params.Body))),
	})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", s.bucket, params.Key, err)
	}
	return nil
}

func (s *s3ObjectStore) PublicURL(key string) string {
	return JoinPublicURL(s.publicBaseURL, key)
}
