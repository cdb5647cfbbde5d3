package handlers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/IanTiba/unbox-surprise-gifts/internal/cache"
	"github.com/IanTiba/unbox-surprise-gifts/internal/giftbox"
	"github.com/IanTiba/unbox-surprise-gifts/internal/metrics"
	"github.com/IanTiba/unbox-surprise-gifts/internal/unlock"
	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const qrSize = 256

// qrDark is the indigo used on the share page.
var qrDark = color.RGBA{R: 0x63, G: 0x66, B: 0xf1, A: 0xff}

// BoxReader loads persisted gift boxes.
type BoxReader interface {
	GetBySlug(ctx context.Context, slug string) (giftbox.Record, error)
}

// BoxHandler serves the recipient-facing reveal endpoints.
type BoxHandler struct {
	boxes    BoxReader
	records  *cache.RecordCache
	shareURL func(slug string) string
	now      func() time.Time
}

// NewBoxHandler constructs a BoxHandler. records may be nil.
func NewBoxHandler(boxes BoxReader, records *cache.RecordCache, shareURL func(string) string, now func() time.Time) *BoxHandler {
	if now == nil {
		now = time.Now
	}
	return &BoxHandler{boxes: boxes, records: records, shareURL: shareURL, now: now}
}

type cardStatusResponse struct {
	Index         int           `json:"index"`
	State         unlock.State  `json:"state"`
	UnlocksAt     time.Time     `json:"unlocks_at"`
	RemainingText string        `json:"remaining_text,omitempty"`
	Card          *giftbox.Card `json:"card,omitempty"`
}

type boxResponse struct {
	Slug               string               `json:"slug"`
	Title              string               `json:"title"`
	Theme              giftbox.Theme        `json:"theme"`
	Emoji              string               `json:"emoji"`
	HasConfetti        bool                 `json:"has_confetti"`
	HasBackgroundMusic bool                 `json:"has_background_music"`
	SpotifyEmbed       string               `json:"spotify_embed,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	CardCount          int                  `json:"card_count"`
	ShareURL           string               `json:"share_url"`
	Schedule           []cardStatusResponse `json:"schedule"`
}

// Get returns a box cover and its unlock schedule. Only unlocked cards carry their content.
func (h *BoxHandler) Get(c *gin.Context) {
	record, ok := h.load(c)
	if !ok {
		return
	}
	metrics.IncBoxView()

	schedule := unlock.Schedule(record, h.now().UTC())
	statuses := make([]cardStatusResponse, 0, len(schedule))
	for _, s := range schedule {
		status := newCardStatusResponse(s)
		if s.Eligible() {
			card := record.Cards[s.Index]
			status.Card = &card
		}
		statuses = append(statuses, status)
	}
	c.JSON(http.StatusOK, boxResponse{
		Slug:               record.Slug,
		Title:              record.Title,
		Theme:              record.Theme,
		Emoji:              record.Emoji,
		HasConfetti:        record.HasConfetti,
		HasBackgroundMusic: record.HasBackgroundMusic,
		SpotifyEmbed:       record.SpotifyEmbed,
		CreatedAt:          record.CreatedAt,
		CardCount:          len(record.Cards),
		ShareURL:           h.shareURL(record.Slug),
		Schedule:           statuses,
	})
}

// Card returns the card at :index, or 423 with the remaining time while it is still locked.
func (h *BoxHandler) Card(c *gin.Context) {
	index, errIndex := strconv.Atoi(strings.TrimSpace(c.Param("index")))
	if errIndex != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid card index"})
		return
	}
	record, ok := h.load(c)
	if !ok {
		return
	}
	card, found := record.Card(index)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
		return
	}

	status := unlock.Status(record.CreatedAt, card.UnlockDelayDays, h.now().UTC(), index)
	metrics.IncCardRevealCheck(string(status.State))
	if !status.Eligible() {
		c.JSON(http.StatusLocked, gin.H{
			"error":  "card is still locked",
			"status": newCardStatusResponse(status),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"card":   card,
		"status": newCardStatusResponse(status),
	})
}

// QR renders the share link as a PNG.
func (h *BoxHandler) QR(c *gin.Context) {
	record, ok := h.load(c)
	if !ok {
		return
	}
	payload, errQR := renderQR(h.shareURL(record.Slug), qrSize)
	if errQR != nil {
		log.WithError(errQR).Warnf("front: render qr for %s", record.Slug)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "qr render failed"})
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", payload)
}

func (h *BoxHandler) load(c *gin.Context) (giftbox.Record, bool) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "gift box not found", "redirect": "/"})
		return giftbox.Record{}, false
	}
	ctx := c.Request.Context()
	if record, hit := h.records.Get(ctx, slug); hit {
		return record, true
	}
	record, errFind := h.boxes.GetBySlug(ctx, slug)
	if errFind != nil {
		writeError(c, errFind)
		return giftbox.Record{}, false
	}
	h.records.Set(ctx, record)
	return record, true
}

func newCardStatusResponse(s unlock.CardStatus) cardStatusResponse {
	return cardStatusResponse{
		Index:         s.Index,
		State:         s.State,
		UnlocksAt:     s.UnlocksAt,
		RemainingText: s.RemainingText,
	}
}

// renderQR encodes content as a square PNG in the share page colors.
func renderQR(content string, size int) ([]byte, error) {
	code, errEncode := qr.Encode(content, qr.M, qr.Auto)
	if errEncode != nil {
		return nil, errEncode
	}
	scaled, errScale := barcode.Scale(code, size, size)
	if errScale != nil {
		return nil, errScale
	}

	bounds := scaled.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, image.White, image.Point{}, draw.Src)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if r, _, _, _ := scaled.At(x, y).RGBA(); r == 0 {
				canvas.Set(x, y, qrDark)
			}
		}
	}

	var buf bytes.Buffer
	if errPNG := png.Encode(&buf, canvas); errPNG != nil {
		return nil, errPNG
	}
	return buf.Bytes(), nil
}
