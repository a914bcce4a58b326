package wall

import (
	"bytes"
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/kimhsiao/photowall/backend/internal/apperr"
	"github.com/kimhsiao/photowall/backend/internal/caption"
	"github.com/kimhsiao/photowall/backend/internal/compose"
	"github.com/kimhsiao/photowall/backend/internal/db"
	"github.com/kimhsiao/photowall/backend/internal/develop"
	"github.com/kimhsiao/photowall/backend/internal/models"
	"github.com/kimhsiao/photowall/backend/internal/stack"
)

// Config holds wall service configuration.
type Config struct {
	// EjectDelay is how long a fresh print sits in the output slot before
	// the ejection motion begins.
	EjectDelay time.Duration
	// EjectTravel is how far upward (in wall pixels) a print moves while
	// ejecting.
	EjectTravel float64
	// PrintWidth is the on-wall display width of a print.
	PrintWidth float64
	// CaptureWidth and CaptureHeight fix the stored image size at the 3:4
	// capture aspect.
	CaptureWidth  int
	CaptureHeight int
	// MaxRotation bounds the random tilt (degrees) drawn for each print.
	MaxRotation float64
	// Source is where the frame source sits on the wall.
	Source SourceGeometry
}

// DefaultConfig returns the production wall configuration.
func DefaultConfig() *Config {
	return &Config{
		EjectDelay:    50 * time.Millisecond,
		EjectTravel:   150,
		PrintWidth:    240,
		CaptureWidth:  600,
		CaptureHeight: 800,
		MaxRotation:   4,
		Source:        SourceGeometry{X: 0, Y: 0, Width: 320, Height: 240},
	}
}

func (c *Config) normalize() {
	def := DefaultConfig()
	if c.EjectDelay <= 0 {
		c.EjectDelay = def.EjectDelay
	}
	if c.EjectTravel <= 0 {
		c.EjectTravel = def.EjectTravel
	}
	if c.PrintWidth <= 0 {
		c.PrintWidth = def.PrintWidth
	}
	if c.CaptureWidth <= 0 || c.CaptureHeight <= 0 {
		c.CaptureWidth = def.CaptureWidth
		c.CaptureHeight = def.CaptureHeight
	}
	if c.MaxRotation <= 0 {
		c.MaxRotation = def.MaxRotation
	}
	// Only size needs defaulting; a zero offset is a valid wall position.
	if c.Source.Width <= 0 {
		c.Source.Width = def.Source.Width
	}
	if c.Source.Height <= 0 {
		c.Source.Height = def.Source.Height
	}
}

// Service owns the set of photos on the wall and drives each one through
// its lifecycle: capturing -> ejecting -> developing -> developed, with
// user-triggered deletion possible from any state.
type Service struct {
	repo      *db.Repository
	developer *develop.Developer
	captions  *caption.Controller
	stacking  *stack.Coordinator
	exporter  *compose.Exporter
	source    FrameSource
	config    *Config
	logger    *slog.Logger

	mu     sync.Mutex
	ejects map[string]*time.Timer

	cbMu           sync.RWMutex
	onPhotoChanged func(photoID string)
	onPhotoDeleted func(photoID string)
}

// NewService wires a wall service from its collaborators. The captioner may
// be nil, in which case captions stay empty; everything else is required.
func NewService(repo *db.Repository, source FrameSource, captioner caption.Captioner, config *Config) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	config.normalize()

	s := &Service{
		repo:     repo,
		stacking: stack.NewCoordinator(stack.SourceLayer),
		exporter: compose.NewExporter(nil),
		source:   source,
		config:   config,
		logger:   slog.Default().With("component", "wall"),
		ejects:   make(map[string]*time.Timer),
	}

	s.developer = develop.NewDeveloper(repo, nil)
	s.developer.OnProgress = func(photoID string, _ int, _ develop.Params) {
		s.notifyChanged(photoID)
	}
	s.developer.OnDeveloped = func(photoID string) {
		s.notifyChanged(photoID)
	}

	if captioner != nil {
		s.captions = caption.NewController(repo, captioner, nil)
		s.captions.OnCaption = func(photoID, _ string) {
			s.notifyChanged(photoID)
		}
	}

	return s
}

// SetDeveloperConfig replaces the development timings. Only safe before the
// first capture; tests use it to develop in milliseconds.
func (s *Service) SetDeveloperConfig(config *develop.Config) {
	s.developer = develop.NewDeveloper(s.repo, config)
	s.developer.OnProgress = func(photoID string, _ int, _ develop.Params) {
		s.notifyChanged(photoID)
	}
	s.developer.OnDeveloped = func(photoID string) {
		s.notifyChanged(photoID)
	}
}

// OnPhotoChanged registers a callback fired whenever a photo's record
// changes. Surfaces outside the core use it to re-render.
func (s *Service) OnPhotoChanged(fn func(photoID string)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onPhotoChanged = fn
}

// OnPhotoDeleted registers a callback fired after a photo is removed.
func (s *Service) OnPhotoDeleted(fn func(photoID string)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onPhotoDeleted = fn
}

func (s *Service) notifyChanged(photoID string) {
	s.cbMu.RLock()
	fn := s.onPhotoChanged
	s.cbMu.RUnlock()
	if fn != nil {
		fn(photoID)
	}
}

func (s *Service) notifyDeleted(photoID string) {
	s.cbMu.RLock()
	fn := s.onPhotoDeleted
	s.cbMu.RUnlock()
	if fn != nil {
		fn(photoID)
	}
}

// CapturePhoto asks the frame source for a still, creates the photo record
// in the capturing state at the source's output slot, and schedules the
// ejection. The captured frame is mirrored and cropped to the 3:4 capture
// aspect before storage. Returns the new photo.
func (s *Service) CapturePhoto(ctx context.Context) (*models.Photo, error) {
	frame, err := s.source.Capture(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrFrameSource, "frame capture failed", err)
	}

	// Mirror to match what the user saw, then crop to the capture aspect.
	mirrored := imaging.FlipH(frame)
	cropped := imaging.Fill(mirrored, s.config.CaptureWidth, s.config.CaptureHeight,
		imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, cropped, imaging.JPEG, imaging.JPEGQuality(92)); err != nil {
		return nil, apperr.Wrap(apperr.ErrInternal, "failed to encode capture", err)
	}

	now := time.Now()
	x, y := s.config.Source.OutputOrigin(s.config.PrintWidth)
	photo := &models.Photo{
		Image:     buf.Bytes(),
		Timestamp: models.FormatTimestamp(now),
		X:         x,
		Y:         y,
		Rotation:  (rand.Float64()*2 - 1) * s.config.MaxRotation,
		State:     models.StateCapturing,
		ZIndex:    s.stacking.Top(),
	}
	if err := s.repo.CreatePhoto(photo); err != nil {
		return nil, err
	}

	photoID := photo.ID.String()
	s.logger.Info("photo captured", "photo_id", photoID)
	s.notifyChanged(photoID)
	s.scheduleEject(photoID)
	return photo, nil
}

// scheduleEject arms the one-shot ejection timer for a fresh print. The
// short delay lets the caller render the emerging frame before motion
// begins.
func (s *Service) scheduleEject(photoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ejects[photoID] = time.AfterFunc(s.config.EjectDelay, func() {
		s.eject(photoID)
	})
}

// eject moves the print up out of the slot and rolls it straight into
// development. Ejection is not a resting state: development begins the
// moment it fires.
func (s *Service) eject(photoID string) {
	s.mu.Lock()
	delete(s.ejects, photoID)
	s.mu.Unlock()

	photo, err := s.repo.GetPhoto(photoID)
	if err != nil {
		// Deleted before the ejection fired.
		return
	}

	if err := s.repo.UpdatePosition(photoID, photo.X, photo.Y-s.config.EjectTravel); err != nil {
		return
	}
	if err := s.repo.SetState(photoID, models.StateEjecting); err != nil {
		return
	}
	if err := s.repo.SetState(photoID, models.StateDeveloping); err != nil {
		return
	}
	s.notifyChanged(photoID)

	if err := s.developer.Start(photoID); err != nil {
		s.logger.Error("failed to start development", "photo_id", photoID, "error", err)
	}

	if s.captions != nil {
		if err := s.captions.Request(context.Background(), photoID); err != nil {
			s.logger.Warn("initial caption request failed", "photo_id", photoID, "error", err)
		}
	}
}

// RegenerateCaption re-runs captioning for a developed photo. The shared
// request path bumps the generation counter, so a slow earlier request can
// never overwrite the result of this one.
func (s *Service) RegenerateCaption(ctx context.Context, photoID string) error {
	if s.captions == nil {
		return apperr.New(apperr.ErrCaptionNotConfigured, "no captioning service configured")
	}

	photo, err := s.repo.GetPhoto(photoID)
	if err != nil {
		return err
	}
	if !photo.Developed() {
		return apperr.New(apperr.ErrNotDeveloped, "photo is still developing")
	}

	return s.captions.Request(ctx, photoID)
}

// BeginDrag raises the photo to the front of the stack. Called exactly once
// per drag start; intermediate drag motion goes through MovePhoto and never
// perturbs ordering.
func (s *Service) BeginDrag(photoID string) error {
	z := s.stacking.BringToFront()
	if err := s.repo.SetZIndex(photoID, z); err != nil {
		return err
	}
	s.notifyChanged(photoID)
	return nil
}

// MovePhoto updates a photo's wall position.
func (s *Service) MovePhoto(photoID string, x, y float64) error {
	if err := s.repo.UpdatePosition(photoID, x, y); err != nil {
		return err
	}
	s.notifyChanged(photoID)
	return nil
}

// DeletePhoto removes a photo from the wall. Deletion is allowed from any
// state: it cancels the pending ejection and development timers, and any
// in-flight caption response for the id will be dropped when it lands, so a
// deleted photo can never be resurrected.
func (s *Service) DeletePhoto(photoID string) error {
	s.mu.Lock()
	if timer, ok := s.ejects[photoID]; ok {
		timer.Stop()
		delete(s.ejects, photoID)
	}
	s.mu.Unlock()

	s.developer.Cancel(photoID)

	if err := s.repo.DeletePhoto(photoID); err != nil {
		return err
	}

	s.logger.Info("photo deleted", "photo_id", photoID)
	s.notifyDeleted(photoID)
	return nil
}

// ExportPhoto composites the photo and its caption into a downloadable
// JPEG.
func (s *Service) ExportPhoto(ctx context.Context, photoID string) (*compose.Result, error) {
	photo, err := s.repo.GetPhoto(photoID)
	if err != nil {
		return nil, err
	}
	return s.exporter.Export(ctx, photo)
}

// Photo returns a single photo record.
func (s *Service) Photo(photoID string) (*models.Photo, error) {
	return s.repo.GetPhoto(photoID)
}

// Photos returns all photos in back-to-front draw order.
func (s *Service) Photos() ([]*models.Photo, error) {
	return s.repo.ListPhotos()
}

// Appearance returns the current development appearance for a photo.
func (s *Service) Appearance(photoID string) (develop.Params, error) {
	photo, err := s.repo.GetPhoto(photoID)
	if err != nil {
		return develop.Params{}, err
	}
	return develop.Curve(photo.Progress), nil
}

// WaitForCaptions blocks until all in-flight caption requests resolve.
// Intended for tests and orderly shutdown.
func (s *Service) WaitForCaptions() {
	if s.captions != nil {
		s.captions.Wait()
	}
}

// Close tears the wall down: pending ejections and development tasks are
// canceled and the frame source's capture resource is released.
func (s *Service) Close() error {
	s.mu.Lock()
	for photoID, timer := range s.ejects {
		timer.Stop()
		delete(s.ejects, photoID)
	}
	s.mu.Unlock()

	s.developer.CancelAll()

	if s.source != nil {
		return s.source.Close()
	}
	return nil
}
