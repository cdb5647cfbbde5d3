package handlers

import (
	"net/http"

	"github.com/IanTiba/unbox-surprise-gifts/internal/media"
	"github.com/gin-gonic/gin"
)

// maxUploadRequestBytes bounds the whole multipart request, above the largest per-kind limit.
const maxUploadRequestBytes = 21 << 20

// MediaHandler accepts card photos and voice recordings.
type MediaHandler struct {
	media *media.Service
}

// NewMediaHandler constructs a MediaHandler.
func NewMediaHandler(svc *media.Service) *MediaHandler {
	return &MediaHandler{media: svc}
}

// Upload stores the multipart "file" field as the "kind" given in the form.
func (h *MediaHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadRequestBytes)

	kind, errKind := media.ParseKind(c.PostForm("kind"))
	if errKind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be image or audio"})
		return
	}
	header, errFile := c.FormFile("file")
	if errFile != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	file, errOpen := header.Open()
	if errOpen != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer func() { _ = file.Close() }()

	asset, errUpload := h.media.Upload(c.Request.Context(), media.UploadRequest{
		Kind:        kind,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if errUpload != nil {
		writeError(c, errUpload)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"url":          asset.URL,
		"kind":         asset.Kind,
		"content_type": asset.ContentType,
		"size_bytes":   asset.SizeBytes,
	})
}
