package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/mahirjain10/quicksvg/internal/observability"
	"github.com/mahirjain10/quicksvg/internal/types"
	"github.com/mahirjain10/quicksvg/internal/utils"
)

const (
	processedPrefix = "processed/"
	presignExpiry   = 15 * time.Minute
)

type S3Service struct {
	client     *s3.Client
	bucketName string
	logger     *observability.Logger
}

func NewS3Service(client *s3.Client, bucketName string, logger *observability.Logger) *S3Service {
	return &S3Service{client: client, bucketName: bucketName, logger: logger.WithComponent("s3")}
}

// UploadtoS3Object puts the file at localPath under key and returns a presigned GET URL.
func (service *S3Service) UploadtoS3Object(parentCtx context.Context, key string, localPath string) (string, error) {
	if key == "" {
		return "", errors.New("key cannot be empty")
	}
	ctx, cancel := context.WithTimeout(parentCtx, 1*time.Minute)
	defer cancel()

	// 1. Read the local file
	buffer, err := utils.ReadImageBuffer(localPath)
	if err != nil {
		return "", err
	}

	// 2. Upload with a checksum
	input := &s3.PutObjectInput{
		Bucket:            aws.String(service.bucketName),
		Key:               aws.String(key),
		Body:              bytes.NewReader(buffer),
		ContentType:       aws.String("image/png"),
		ChecksumAlgorithm: s3types.ChecksumAlgorithmSha256,
	}
	if _, err := service.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}

	// 3. Presign a download URL
	presignClient := s3.NewPresignClient(service.client)
	req, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(service.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign url: %w", err)
	}
	return req.URL, nil
}

func (service *S3Service) DeleteS3Object(parentCtx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}

	ctx, cancel := context.WithTimeout(parentCtx, 1*time.Minute)
	defer cancel()

	deleteInput := &s3.DeleteObjectInput{
		Bucket: aws.String(service.bucketName),
		Key:    aws.String(key),
	}
	if _, err := service.client.DeleteObject(ctx, deleteInput); err != nil {
		return false, fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return true, nil
}

// MirrorConversion copies a converted PNG to the bucket under processed/.
func (service *S3Service) MirrorConversion(ctx context.Context, result *types.ConversionResult) (string, error) {
	key := processedPrefix + result.FileName
	url, err := service.UploadtoS3Object(ctx, key, result.Path)
	if err != nil {
		return "", err
	}
	service.logger.Info().Str("key", key).Msg("mirrored conversion to s3")
	return url, nil
}
