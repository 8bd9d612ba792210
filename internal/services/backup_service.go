package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"

	"bill-backend/internal/models"
	"bill-backend/internal/timeutil"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// ObjectPutter is the part of the S3 API the archive needs
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewR2Client configures an S3 client for a Cloudflare R2 endpoint
func NewR2Client(ctx context.Context, endpoint, accessKey, secretKey, region string) (*s3.Client, error) {
	if region == "" {
		region = "auto"
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("configure R2 client: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	}), nil
}

// BackupService keeps a JSON copy of every bill the server accepts in R2
type BackupService struct {
	client ObjectPutter
	bucket string
	log    *zap.Logger
}

func NewBackupService(client ObjectPutter, bucket string) *BackupService {
	return &BackupService{client: client, bucket: bucket, log: zap.L().Named("backup")}
}

// ObjectKey is bills/<year>/<invoiceNumber>.json; bills with no date go under undated/
func ObjectKey(bill models.Bill) string {
	year := "undated"
	if !bill.Date.IsZero() {
		year = timeutil.FormatGST(bill.Date, "2006")
	}
	return path.Join("bills", year, url.PathEscape(bill.InvoiceNumber)+".json")
}

// Archive overwrites the bill's object
func (s *BackupService) Archive(ctx context.Context, bill models.Bill) error {
	body, err := json.Marshal(bill)
	if err != nil {
		return fmt.Errorf("encode bill %s: %w", bill.InvoiceNumber, err)
	}

	key := ObjectKey(bill)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive bill %s: %w", bill.InvoiceNumber, err)
	}
	s.log.Debug("bill archived", zap.String("key", key))
	return nil
}
