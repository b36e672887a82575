package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/jayeworks/circledesk/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/oklog/ulid/v2"
)

// MaxAttachmentSize is the per-file upload cap.
const MaxAttachmentSize = 10 << 20 // 10MB

// allowedAttachmentTypes maps accepted content types to their object key
// extension.
var allowedAttachmentTypes = map[string]string{
	"image/png":       "png",
	"image/jpeg":      "jpg",
	"image/gif":       "gif",
	"application/pdf": "pdf",
}

// StorageService stores issue attachments in an S3-compatible bucket.
// Objects are keyed issue_{id}/{timestamp}_{random}.{ext} so all attachments
// of one issue share a prefix.
type StorageService struct {
	client *minio.Client
	cfg    *config.StorageConfig
}

func NewStorageService(cfg *config.StorageConfig) (*StorageService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &StorageService{client: client, cfg: cfg}, nil
}

// EnsureBucket creates the attachment bucket if it does not exist yet.
func (s *StorageService) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.cfg.Bucket, err)
	}
	return nil
}

// ValidateAttachment rejects files over the size cap or outside the allowed
// content types. Returns the object key extension for the content type.
func ValidateAttachment(contentType string, size int64) (string, error) {
	if size > MaxAttachmentSize {
		return "", NewValidationError("file", fmt.Sprintf("file exceeds %dMB limit", MaxAttachmentSize>>20))
	}
	ext, ok := allowedAttachmentTypes[strings.ToLower(contentType)]
	if !ok {
		return "", NewValidationError("file", fmt.Sprintf("content type %q not allowed (png, jpeg, gif, pdf)", contentType))
	}
	return ext, nil
}

// AttachmentKey builds the object key for a new attachment of an issue.
func AttachmentKey(issueID, ext string) string {
	random := strings.ToLower(ulid.Make().String())
	return fmt.Sprintf("issue_%s/%d_%s.%s", issueID, time.Now().UnixMilli(), random, ext)
}

// Upload stores one attachment and returns its public URL.
func (s *StorageService) Upload(ctx context.Context, issueID, contentType string, size int64, r io.Reader) (string, error) {
	ext, err := ValidateAttachment(contentType, size)
	if err != nil {
		return "", err
	}

	key := AttachmentKey(issueID, ext)
	_, err = s.client.PutObject(ctx, s.cfg.Bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "max-age=3600",
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

// PublicURL returns the public link for an object key.
func (s *StorageService) PublicURL(key string) string {
	base := strings.TrimSuffix(s.cfg.PublicURL, "/")
	if base == "" {
		base = strings.TrimSuffix(s.client.EndpointURL().String(), "/")
	}
	return fmt.Sprintf("%s/%s/%s", base, s.cfg.Bucket, key)
}

// List returns public URLs of all attachments stored for an issue.
func (s *StorageService) List(ctx context.Context, issueID string) ([]string, error) {
	prefix := fmt.Sprintf("issue_%s/", issueID)
	urls := []string{}
	for obj := range s.client.ListObjects(ctx, s.cfg.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list attachments: %w", obj.Err)
		}
		urls = append(urls, s.PublicURL(obj.Key))
	}
	return urls, nil
}

// Delete removes one attachment. pathOrURL may be an object key or a full
// public URL.
func (s *StorageService) Delete(ctx context.Context, pathOrURL string) error {
	key := ObjectKeyFromPath(pathOrURL, s.cfg.Bucket)
	if key == "" {
		return NewValidationError("path", "attachment path is required")
	}
	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// ObjectKeyFromPath strips a public URL down to the object key. A bare key
// passes through unchanged.
func ObjectKeyFromPath(pathOrURL, bucket string) string {
	p := strings.TrimSpace(pathOrURL)
	marker := "/" + bucket + "/"
	if idx := strings.Index(p, marker); idx != -1 {
		p = p[idx+len(marker):]
	}
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return ""
	}
	return p
}
