// Package services holds the server's external collaborators. Currently
// that is the optional receipt archive: an S3 offload of receipt images.
package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/roamledger/roamledger/config"
	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/logger"
	"github.com/roamledger/roamledger/types"
)

// S3API is the slice of the S3 client the archive uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// ReceiptArchive copies receipt images into object storage. The inline copy
// in the expense row stays authoritative; the archive exists so receipts
// survive database restores and can be served out of band.
type ReceiptArchive struct {
	client    S3API
	bucket    string
	keyPrefix string
}

// NewReceiptArchive builds the archive from its configuration. Call only
// when the archive is enabled; the caller keeps a nil interface otherwise.
func NewReceiptArchive(ctx context.Context, cfg *config.ReceiptArchiveConfig) (*ReceiptArchive, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ServerError, "Failed to load AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
			// S3-compatible providers rarely support virtual-hosted buckets.
			o.UsePathStyle = true
		}
	})

	logger.GetLogger().Infow("Receipt archive enabled", "bucket", cfg.Bucket, "prefix", cfg.KeyPrefix)
	return &ReceiptArchive{
		client:    client,
		bucket:    cfg.Bucket,
		keyPrefix: strings.Trim(cfg.KeyPrefix, "/"),
	}, nil
}

// NewReceiptArchiveWithClient builds an archive over an existing S3 client.
func NewReceiptArchiveWithClient(client S3API, bucket, keyPrefix string) *ReceiptArchive {
	return &ReceiptArchive{client: client, bucket: bucket, keyPrefix: strings.Trim(keyPrefix, "/")}
}

// key derives the object key for one expense's receipt.
func (a *ReceiptArchive) key(expenseID int64) string {
	if a.keyPrefix == "" {
		return fmt.Sprintf("%d", expenseID)
	}
	return fmt.Sprintf("%s/%d", a.keyPrefix, expenseID)
}

// Archive decodes the receipt data URI and uploads the image bytes under
// the expense's key, overwriting any earlier version.
func (a *ReceiptArchive) Archive(ctx context.Context, expenseID int64, dataURI string) error {
	payload, contentType, err := types.ReceiptPayload(dataURI)
	if err != nil {
		return err
	}

	objectKey := a.key(expenseID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &a.bucket,
		Key:         &objectKey,
		Body:        bytes.NewReader(payload),
		ContentType: &contentType,
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ServerError, "Failed to upload receipt to archive")
	}

	logger.GetLogger().Debugw("Receipt archived", "expenseID", expenseID, "key", objectKey, "bytes", len(payload))
	return nil
}

// Remove deletes the archived receipt for the expense. Removing an absent
// object is not an error, mirroring the idempotent expense delete.
func (a *ReceiptArchive) Remove(ctx context.Context, expenseID int64) error {
	objectKey := a.key(expenseID)
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &a.bucket,
		Key:    &objectKey,
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ServerError, "Failed to delete archived receipt")
	}
	return nil
}
