package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"seatplan/api/internal/util"
)

// ArchiveConfig wires the S3-compatible bucket used for share links.
type ArchiveConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// ShareTTL bounds how long a presigned link stays valid.
	ShareTTL time.Duration
}

// Archive publishes exported files to object storage and hands out
// time-limited download links.
type Archive struct {
	client   *minio.Client
	bucket   string
	shareTTL time.Duration
}

// NewArchive creates an archive client
func NewArchive(cfg ArchiveConfig) (*Archive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create archive client: %w", err)
	}

	ttl := cfg.ShareTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Archive{
		client:   client,
		bucket:   cfg.Bucket,
		shareTTL: ttl,
	}, nil
}

// EnsureBucket creates the archive bucket if it does not exist yet
func (a *Archive) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check archive bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create archive bucket: %w", err)
	}
	return nil
}

// Upload stores the file and returns a presigned download URL along with
// its expiry time. Object names are date-prefixed so the bucket stays
// browsable.
func (a *Archive) Upload(ctx context.Context, filename, contentType string, data []byte) (string, time.Time, error) {
	objectName := time.Now().UTC().Format("2006/01/02") + "/" + util.NewID("exp") + "-" + filename

	_, err := a.client.PutObject(ctx, a.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("upload export: %w", err)
	}

	expiresAt := time.Now().Add(a.shareTTL)
	link, err := a.client.PresignedGetObject(ctx, a.bucket, objectName, a.shareTTL, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign export link: %w", err)
	}
	return link.String(), expiresAt, nil
}
