package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/IanTiba/unbox-surprise-gifts/internal/metrics"
	"github.com/IanTiba/unbox-surprise-gifts/internal/models"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Default size limits per kind.
const (
	DefaultMaxImageBytes int64 = 10 << 20
	DefaultMaxAudioBytes int64 = 20 << 20
)

// Upload validation errors.
var (
	// ErrUnsupportedKind is returned for kinds other than image or audio.
	ErrUnsupportedKind = errors.New("media: unsupported kind")
	// ErrUnsupportedType is returned when the content type does not match the kind.
	ErrUnsupportedType = errors.New("media: unsupported content type")
	// ErrTooLarge is returned when the payload exceeds the kind's limit.
	ErrTooLarge = errors.New("media: file too large")
	// ErrEmpty is returned for zero-byte uploads.
	ErrEmpty = errors.New("media: empty file")
)

// UploadError wraps a backend failure. Callers may retry; nothing was recorded.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return "media: upload failed: " + e.Err.Error() }

func (e *UploadError) Unwrap() error { return e.Err }

// AssetStore records uploads that completed.
type AssetStore interface {
	Create(ctx context.Context, asset *models.MediaAsset) error
	FindByURLs(ctx context.Context, urls []string) (map[string]models.MediaAsset, error)
}

// Limits caps upload sizes per kind.
type Limits struct {
	MaxImageBytes int64
	MaxAudioBytes int64
}

func (l Limits) max(kind models.MediaKind) int64 {
	switch kind {
	case models.MediaKindImage:
		if l.MaxImageBytes > 0 {
			return l.MaxImageBytes
		}
		return DefaultMaxImageBytes
	default:
		if l.MaxAudioBytes > 0 {
			return l.MaxAudioBytes
		}
		return DefaultMaxAudioBytes
	}
}

// UploadRequest is one incoming file.
type UploadRequest struct {
	Kind        models.MediaKind
	Filename    string
	ContentType string
	// Size is the declared size, or <= 0 when unknown.
	Size int64
	Body io.Reader
}

// Service validates uploads, hands them to the backend and records the result.
type Service struct {
	uploader Uploader
	assets   AssetStore
	limits   Limits
}

// NewService returns a media service.
func NewService(uploader Uploader, assets AssetStore, limits Limits) *Service {
	return &Service{uploader: uploader, assets: assets, limits: limits}
}

// ParseKind maps a form value to a media kind.
func ParseKind(raw string) (models.MediaKind, error) {
	switch models.MediaKind(strings.ToLower(strings.TrimSpace(raw))) {
	case models.MediaKindImage:
		return models.MediaKindImage, nil
	case models.MediaKindAudio:
		return models.MediaKindAudio, nil
	default:
		return "", ErrUnsupportedKind
	}
}

// Upload stores one file and returns its recorded asset.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (models.MediaAsset, error) {
	started := time.Now()
	asset, err := s.upload(ctx, req)
	metrics.IncMediaUpload(string(req.Kind), err == nil)
	if err == nil {
		metrics.ObserveMediaUploadDuration(time.Since(started))
	}
	return asset, err
}

func (s *Service) upload(ctx context.Context, req UploadRequest) (models.MediaAsset, error) {
	if _, errKind := ParseKind(string(req.Kind)); errKind != nil {
		return models.MediaAsset{}, errKind
	}
	limit := s.limits.max(req.Kind)
	if req.Size > limit {
		return models.MediaAsset{}, ErrTooLarge
	}
	if req.Body == nil {
		return models.MediaAsset{}, ErrEmpty
	}

	body := bufio.NewReaderSize(req.Body, 512)
	head, _ := body.Peek(512)
	if len(head) == 0 {
		return models.MediaAsset{}, ErrEmpty
	}
	contentType := resolveContentType(req.ContentType, head)
	if !matchesKind(req.Kind, contentType) {
		return models.MediaAsset{}, fmt.Errorf("%w: %s for %s", ErrUnsupportedType, contentType, req.Kind)
	}

	id := uuid.NewString()
	key := fmt.Sprintf("%ss/%s%s", req.Kind, id, extensionFor(req.Filename, contentType))
	counter := &limitedCounter{r: body, limit: limit}

	url, errPut := s.uploader.Put(ctx, key, contentType, counter)
	if counter.exceeded {
		return models.MediaAsset{}, ErrTooLarge
	}
	if errPut != nil {
		log.WithError(errPut).Warnf("media: %s upload failed (backend=%s)", req.Kind, s.uploader.Name())
		return models.MediaAsset{}, &UploadError{Err: errPut}
	}

	asset := models.MediaAsset{
		ID:          id,
		Kind:        req.Kind,
		ObjectKey:   key,
		URL:         url,
		ContentType: contentType,
		SizeBytes:   counter.n,
		Backend:     s.uploader.Name(),
	}
	if errCreate := s.assets.Create(ctx, &asset); errCreate != nil {
		return models.MediaAsset{}, fmt.Errorf("media: record asset: %w", errCreate)
	}
	return asset, nil
}

// Verify returns the URLs among urls that no completed upload produced.
func (s *Service) Verify(ctx context.Context, urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	known, errFind := s.assets.FindByURLs(ctx, urls)
	if errFind != nil {
		return nil, fmt.Errorf("media: verify: %w", errFind)
	}
	var missing []string
	for _, url := range urls {
		if _, ok := known[url]; !ok {
			missing = append(missing, url)
		}
	}
	return missing, nil
}

func resolveContentType(declared string, head []byte) string {
	if mediaType, _, errParse := mime.ParseMediaType(declared); errParse == nil && mediaType != "application/octet-stream" {
		return mediaType
	}
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(head))
	return sniffed
}

func matchesKind(kind models.MediaKind, contentType string) bool {
	switch kind {
	case models.MediaKindImage:
		return strings.HasPrefix(contentType, "image/")
	case models.MediaKindAudio:
		// Browser recorders label webm voice notes as video/webm.
		return strings.HasPrefix(contentType, "audio/") || contentType == "video/webm"
	default:
		return false
	}
}

func extensionFor(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	if len(ext) > 1 && len(ext) <= 6 && isAlnum(ext[1:]) {
		return ext
	}
	if exts, errExt := mime.ExtensionsByType(contentType); errExt == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// limitedCounter counts bytes and fails once more than limit have been read.
type limitedCounter struct {
	r        io.Reader
	limit    int64
	n        int64
	exceeded bool
}

func (c *limitedCounter) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.n > c.limit {
		c.exceeded = true
		return n, ErrTooLarge
	}
	return n, err
}
