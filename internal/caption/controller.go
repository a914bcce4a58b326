package caption

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"
	"sync"

	"github.com/kimhsiao/photowall/backend/internal/apperr"
	"github.com/kimhsiao/photowall/backend/internal/models"
)

const (
	// Placeholder shown while a caption request is in flight.
	Placeholder = "..."
	// Fallback written when the captioning service fails. Failure is
	// absorbed here; it never surfaces to the caller.
	Fallback = "a moment worth keeping"
)

// Store is the subset of the photo repository the controller needs.
type Store interface {
	GetPhoto(photoID string) (*models.Photo, error)
	BeginCaptionRequest(photoID, placeholder string) (int64, error)
	CompleteCaptionRequest(photoID string, generation int64, caption string) (bool, error)
}

// Config holds caption controller configuration.
type Config struct {
	// Language is the BCP 47 tag captions are requested in.
	Language string
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() *Config {
	return &Config{Language: "en"}
}

// Controller sequences caption requests per photo. Every request bumps the
// photo's generation counter before dispatch; a completion only lands if
// the generation is still current, so overlapping requests that resolve out
// of order can never regress the displayed caption, and completions for
// deleted photos vanish silently.
type Controller struct {
	store     Store
	captioner Captioner
	config    *Config
	logger    *slog.Logger

	wg sync.WaitGroup

	// OnCaption fires after a caption result lands; set before first use.
	OnCaption func(photoID string, caption string)
}

// NewController creates a caption controller.
func NewController(store Store, captioner Captioner, config *Config) *Controller {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Language == "" {
		config.Language = "en"
	}

	return &Controller{
		store:     store,
		captioner: captioner,
		config:    config,
		logger:    slog.Default().With("component", "caption"),
	}
}

// Request starts an asynchronous caption request for the photo. The photo's
// caption shows the placeholder until the result lands. On service failure
// the fallback string lands instead; the caller never sees the error.
// Initial captioning at capture time and user-triggered regeneration both
// go through this path.
func (c *Controller) Request(ctx context.Context, photoID string) error {
	if c.captioner == nil {
		return apperr.New(apperr.ErrCaptionNotConfigured, "no captioning service configured")
	}

	photo, err := c.store.GetPhoto(photoID)
	if err != nil {
		return err
	}

	generation, err := c.store.BeginCaptionRequest(photoID, Placeholder)
	if err != nil {
		return err
	}

	payload := EncodePayload(photo.Image)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		text, err := c.captioner.Caption(ctx, payload, c.config.Language)
		if err != nil {
			c.logger.Warn("captioning failed, using fallback",
				"photo_id", photoID, "error", err)
			text = Fallback
		}

		applied, err := c.store.CompleteCaptionRequest(photoID, generation, text)
		if err != nil {
			c.logger.Error("failed to store caption",
				"photo_id", photoID, "error", err)
			return
		}
		if !applied {
			// Superseded by a newer request, or the photo was deleted.
			c.logger.Debug("discarded stale caption result",
				"photo_id", photoID, "generation", generation)
			return
		}

		if c.OnCaption != nil {
			c.OnCaption(photoID, text)
		}
	}()

	return nil
}

// Wait blocks until all in-flight caption requests have completed.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// EncodePayload prepares an image payload for dispatch. Payloads that
// arrive as data URLs have the embedding-format prefix stripped; raw bytes
// are base64-encoded.
func EncodePayload(image []byte) string {
	if strings.HasPrefix(string(image[:min(len(image), 5)]), "data:") {
		return StripDataURLPrefix(string(image))
	}
	return base64.StdEncoding.EncodeToString(image)
}

// StripDataURLPrefix removes a leading data-URL prefix such as
// "data:image/jpeg;base64," from an encoded payload, if present.
func StripDataURLPrefix(payload string) string {
	if !strings.HasPrefix(payload, "data:") {
		return payload
	}
	if idx := strings.Index(payload, ","); idx >= 0 {
		return payload[idx+1:]
	}
	return payload
}
