package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Uploader stores one object and returns its durable public URL.
type Uploader interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	// Name identifies the backend in stored asset rows.
	Name() string
}

// LocalUploader writes objects under a directory that the HTTP server exposes at URLPrefix.
type LocalUploader struct {
	dir       string
	urlPrefix string
}

// NewLocalUploader creates dir if needed. urlPrefix is joined with the key to form URLs.
func NewLocalUploader(dir, urlPrefix string) (*LocalUploader, error) {
	dir = filepath.Clean(strings.TrimSpace(dir))
	if errMkdir := os.MkdirAll(dir, 0o755); errMkdir != nil {
		return nil, fmt.Errorf("media: create dir: %w", errMkdir)
	}
	return &LocalUploader{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Dir returns the root directory, for mounting as a static route.
func (u *LocalUploader) Dir() string { return u.dir }

// Name implements Uploader.
func (u *LocalUploader) Name() string { return "local" }

// Put implements Uploader. The object only becomes visible once fully written.
func (u *LocalUploader) Put(ctx context.Context, key, _ string, r io.Reader) (string, error) {
	target := filepath.Join(u.dir, filepath.FromSlash(key))
	if !strings.HasPrefix(target, u.dir+string(os.PathSeparator)) {
		return "", fmt.Errorf("media: invalid key %q", key)
	}
	if errMkdir := os.MkdirAll(filepath.Dir(target), 0o755); errMkdir != nil {
		return "", fmt.Errorf("media: create dir: %w", errMkdir)
	}
	tmp, errTemp := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if errTemp != nil {
		return "", fmt.Errorf("media: create temp: %w", errTemp)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, errCopy := io.Copy(tmp, readerWithContext(ctx, r)); errCopy != nil {
		cleanup()
		return "", errCopy
	}
	if errClose := tmp.Close(); errClose != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("media: close temp: %w", errClose)
	}
	if errRename := os.Rename(tmpName, target); errRename != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("media: publish: %w", errRename)
	}
	return u.urlPrefix + "/" + key, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if errCtx := c.ctx.Err(); errCtx != nil {
		return 0, errCtx
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
