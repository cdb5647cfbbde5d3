package media

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// GCSUploader stores objects in a Google Cloud Storage bucket.
type GCSUploader struct {
	client    *storage.Client
	bucket    string
	publicURL string
}

// NewGCSUploader opens a storage client. An empty credentialsFile uses application default credentials.
// publicURL overrides the https://storage.googleapis.com/<bucket> URL prefix, e.g. for a CDN.
func NewGCSUploader(ctx context.Context, bucket, credentialsFile, publicURL string) (*GCSUploader, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("media: empty gcs bucket")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("media: gcs client: %w", err)
	}
	publicURL = strings.TrimRight(strings.TrimSpace(publicURL), "/")
	if publicURL == "" {
		publicURL = "https://storage.googleapis.com/" + bucket
	}
	log.Infof("media: gcs uploader ready (bucket=%s)", bucket)
	return &GCSUploader{client: client, bucket: bucket, publicURL: publicURL}, nil
}

// Name implements Uploader.
func (u *GCSUploader) Name() string { return "gcs" }

// Put implements Uploader. A failed copy cancels the write so no partial object is committed.
func (u *GCSUploader) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := u.client.Bucket(u.bucket).Object(key).NewWriter(writeCtx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000, immutable"
	if _, errCopy := io.Copy(w, r); errCopy != nil {
		cancel()
		_ = w.Close()
		return "", errCopy
	}
	if errClose := w.Close(); errClose != nil {
		return "", fmt.Errorf("media: gcs write %s: %w", key, errClose)
	}
	return u.publicURL + "/" + key, nil
}

// Close releases the storage client.
func (u *GCSUploader) Close() error {
	return u.client.Close()
}
