package utils

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3Exporter uploads generated files and hands back presigned download links.
type S3Exporter struct {
	Client        *s3.Client
	PresignClient *s3.PresignClient
	Bucket        string
	Expiry        time.Duration
}

// InitS3 initializes the S3 client
func InitS3(ctx context.Context, region, bucket string) (*S3Exporter, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config, %v", err)
	}

	client := s3.NewFromConfig(cfg)
	zap.S().Infow("S3 Client Initialized", "bucket", bucket, "region", region)
	return &S3Exporter{
		Client:        client,
		PresignClient: s3.NewPresignClient(client),
		Bucket:        bucket,
		Expiry:        time.Hour,
	}, nil
}

// Put uploads body under objectKey and returns a presigned GET URL for it.
func (e *S3Exporter) Put(ctx context.Context, objectKey, contentType string, body io.Reader) (string, error) {
	_, err := e.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.Bucket),
		Key:         aws.String(objectKey),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %v", err)
	}

	request, err := e.PresignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.Bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(e.Expiry))
	if err != nil {
		return "", fmt.Errorf("failed to sign request: %v", err)
	}
	return request.URL, nil
}
