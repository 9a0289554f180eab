// Package s3service exports valuation history to S3
package s3service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appConfig "bike-predict/internal/config"
	"bike-predict/internal/models"
	"bike-predict/internal/utils"
)

// DefaultExpiry is how long an export download link stays valid.
const DefaultExpiry = 15 * time.Minute

// ObjectAPI is the subset of the S3 client used here.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner signs download links.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Service handles S3 operations
type Service struct {
	client     ObjectAPI
	presigner  Presigner
	bucketName string
	now        func() time.Time
}

// ExportResult contains the location of an uploaded export
type ExportResult struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	Rows      int       `json:"rows"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewService creates a new S3 service for the configured bucket
func NewService(ctx context.Context, appCfg *appConfig.Config) (*Service, error) {
	if appCfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is not set")
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(appCfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)

	return NewWithClient(client, s3.NewPresignClient(client), appCfg.S3Bucket), nil
}

// NewWithClient creates a service around existing clients.
func NewWithClient(client ObjectAPI, presigner Presigner, bucket string) *Service {
	return &Service{
		client:     client,
		presigner:  presigner,
		bucketName: bucket,
		now:        time.Now,
	}
}

// ExportValuations uploads valuations as CSV and returns a presigned link to it
func (s *Service) ExportValuations(ctx context.Context, sessionID string, valuations []*models.Valuation) (*ExportResult, error) {
	data, err := utils.ValuationsCSV(valuations)
	if err != nil {
		return nil, err
	}

	key := s.exportKey(sessionID)
	if err := s.UploadFile(ctx, key, data, "text/csv"); err != nil {
		return nil, err
	}

	link, err := s.GeneratePresignedDownloadURL(ctx, key, DefaultExpiry)
	if err != nil {
		return nil, err
	}
	link.Rows = len(valuations)

	return link, nil
}

func (s *Service) exportKey(sessionID string) string {
	if sessionID == "" {
		sessionID = "all"
	}
	return fmt.Sprintf("exports/%s/%s/%s.csv", s.now().UTC().Format("2006-01-02"), sessionID, uuid.NewString())
}

// GeneratePresignedDownloadURL creates a presigned URL for downloading files
func (s *Service) GeneratePresignedDownloadURL(ctx context.Context, key string, expiry time.Duration) (*ExportResult, error) {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}

	input := &s3.GetObjectInput{
		Bucket:                     aws.String(s.bucketName),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(`attachment; filename="valuations.csv"`),
	}

	presignedReq, err := s.presigner.PresignGetObject(ctx, input, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned download URL: %w", err)
	}

	return &ExportResult{
		URL:       presignedReq.URL,
		Key:       key,
		ExpiresAt: s.now().Add(expiry),
	}, nil
}

// UploadFile uploads a file to S3
func (s *Service) UploadFile(ctx context.Context, key string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	_, err := s.client.PutObject(ctx, input)
	if err != nil {
		utils.GetLogger().Error("Failed to upload file to S3",
			zap.String("bucket", s.bucketName),
			zap.String("key", key),
			zap.Error(err),
		)
		return fmt.Errorf("failed to upload file: %w", err)
	}

	utils.GetLogger().Info("Uploaded file to S3",
		zap.String("bucket", s.bucketName),
		zap.String("key", key),
		zap.Int("size", len(data)),
	)

	return nil
}
