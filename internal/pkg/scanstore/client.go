package scanstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gofiber/fiber/v2/log"

	"github.com/HexGuardSec/HexGuard/app/models"
)

// Client wraps the S3 client for scan bundle storage
type Client struct {
	s3Client *s3.Client
	config   *Config
}

// Bundle is the serialized form of a FILES submission kept in object storage.
type Bundle struct {
	ScanUUID  string               `json:"scan_uuid"`
	Title     string               `json:"title"`
	Network   string               `json:"network"`
	Files     []models.ScannedFile `json:"files"`
	CreatedAt time.Time            `json:"created_at"`
}

var (
	sharedClient *Client
	sharedErr    error
	clientOnce   sync.Once
)

// NewClient creates a new scan store client
func NewClient(cfg *Config) (*Client, error) {
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("scan store is disabled")
	}

	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// S3-compatible services need path-style URLs
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	client := &Client{
		s3Client: s3Client,
		config:   cfg,
	}

	if err := client.testConnection(); err != nil {
		return nil, fmt.Errorf("failed to connect to scan store: %w", err)
	}

	log.Infof("[ScanStore] Successfully initialized S3 client for bucket: %s", cfg.GetBucketName())
	return client, nil
}

// GetClient returns the shared scan store client, initializing it on first
// use. Returns an error when the store is disabled or misconfigured.
func GetClient() (*Client, error) {
	clientOnce.Do(func() {
		cfg, err := LoadConfig()
		if err != nil {
			sharedErr = err
			return
		}
		if !cfg.IsEnabled() {
			sharedErr = fmt.Errorf("scan store is disabled")
			return
		}
		sharedClient, sharedErr = NewClient(cfg)
	})
	return sharedClient, sharedErr
}

// testConnection checks bucket access, creating the bucket outside prod
func (c *Client) testConnection() error {
	ctx := context.Background()
	bucketName := c.config.GetBucketName()

	_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucketName),
	})

	if err != nil {
		if GetAppEnv() != "prod" {
			log.Warnf("[ScanStore] Bucket %s not found, attempting to create it", bucketName)
			return c.createBucket(bucketName)
		}
		return fmt.Errorf("bucket %s not accessible: %w", bucketName, err)
	}

	return nil
}

// createBucket creates a new S3 bucket (dev/staging only)
func (c *Client) createBucket(bucketName string) error {
	ctx := context.Background()

	input := &s3.CreateBucketInput{
		Bucket: aws.String(bucketName),
	}

	// For AWS regions other than us-east-1 the location constraint is
	// required; S3-compatible endpoints ignore it.
	if c.config.EndpointURL == "" && c.config.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.config.Region),
		}
	}

	_, err := c.s3Client.CreateBucket(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucketName, err)
	}

	log.Infof("[ScanStore] Successfully created bucket: %s", bucketName)
	return nil
}

// PutBundle uploads a scan file bundle
func (c *Client) PutBundle(ctx context.Context, bundle *Bundle) (string, error) {
	payload, err := json.Marshal(bundle)
	if err != nil {
		return "", fmt.Errorf("failed to serialize bundle for scan %s: %w", bundle.ScanUUID, err)
	}

	objectKey := c.config.GetObjectKey(bundle.ScanUUID)
	bucketName := c.config.GetBucketName()

	log.Infof("[ScanStore] Uploading bundle for scan %s -> s3://%s/%s (%d bytes)",
		bundle.ScanUUID, bucketName, objectKey, len(payload))

	_, err = c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucketName),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(payload),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(payload))),
		Metadata: map[string]string{
			"scan-uuid": bundle.ScanUUID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload bundle for scan %s: %w", bundle.ScanUUID, err)
	}

	return objectKey, nil
}

// GetBundle downloads a scan file bundle
func (c *Client) GetBundle(ctx context.Context, scanUUID string) (*Bundle, error) {
	objectKey := c.config.GetObjectKey(scanUUID)

	out, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.config.GetBucketName()),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bundle for scan %s: %w", scanUUID, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, 10<<20))
	if err != nil {
		return nil, err
	}

	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("failed to decode bundle for scan %s: %w", scanUUID, err)
	}
	return &bundle, nil
}

// DeleteBundle removes a scan file bundle
func (c *Client) DeleteBundle(ctx context.Context, scanUUID string) error {
	objectKey := c.config.GetObjectKey(scanUUID)

	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.config.GetBucketName()),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete bundle for scan %s: %w", scanUUID, err)
	}
	return nil
}

// UploadScanBundle ships the FILES submission of a scan to object storage.
// A disabled store is not an error: the scan result never depends on the
// bundle upload.
func UploadScanBundle(ctx context.Context, scan *models.Scan) error {
	client, err := GetClient()
	if err != nil {
		log.Debugf("[ScanStore] Skipping bundle upload for scan %s: %v", scan.UUID, err)
		return nil
	}

	_, err = client.PutBundle(ctx, &Bundle{
		ScanUUID:  scan.UUID,
		Title:     scan.Title,
		Network:   scan.Network,
		Files:     scan.ScannedFiles,
		CreatedAt: scan.CreatedAt,
	})
	return err
}
