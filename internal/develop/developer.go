package develop

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kimhsiao/photowall/backend/internal/models"
)

// Store is the subset of the photo repository the developer needs.
type Store interface {
	SetProgress(photoID string, progress int) error
	MarkDeveloped(photoID string) (bool, error)
}

// Config holds development timing configuration.
type Config struct {
	// Duration is the wall-clock time a print takes to fully develop.
	Duration time.Duration
	// TickInterval is the cadence at which progress advances.
	TickInterval time.Duration
}

// DefaultConfig returns the production timings: five seconds of development
// advanced every 50ms.
func DefaultConfig() *Config {
	return &Config{
		Duration:     5 * time.Second,
		TickInterval: 50 * time.Millisecond,
	}
}

// normalize fills zero fields with defaults.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.Duration <= 0 {
		c.Duration = def.Duration
	}
	if c.TickInterval <= 0 {
		c.TickInterval = def.TickInterval
	}
	if c.TickInterval > c.Duration {
		c.TickInterval = c.Duration
	}
}

// Developer runs one timed development task per photo. Tasks are keyed by
// photo id so deletion can cancel exactly the timer it owns; a task that
// reaches full progress terminates itself.
type Developer struct {
	store  Store
	config *Config
	logger *slog.Logger

	mu    sync.Mutex
	tasks map[string]chan struct{}
	wg    sync.WaitGroup

	// Event callbacks; set before the first Start.
	OnProgress  func(photoID string, progress int, params Params)
	OnDeveloped func(photoID string)
}

// NewDeveloper creates a Developer backed by the given store.
func NewDeveloper(store Store, config *Config) *Developer {
	if config == nil {
		config = DefaultConfig()
	}
	config.normalize()

	return &Developer{
		store:  store,
		config: config,
		logger: slog.Default().With("component", "developer"),
		tasks:  make(map[string]chan struct{}),
	}
}

// Start begins the development task for a photo. Progress advances from 0
// to 100 over the configured duration; reaching 100 flips the photo to
// developed exactly once and releases the timer. Starting an id that is
// already developing is an error.
func (d *Developer) Start(photoID string) error {
	d.mu.Lock()
	if _, exists := d.tasks[photoID]; exists {
		d.mu.Unlock()
		return fmt.Errorf("development already running for photo %s", photoID)
	}
	stopCh := make(chan struct{})
	d.tasks[photoID] = stopCh
	d.mu.Unlock()

	steps := int(d.config.Duration / d.config.TickInterval)
	if steps < 1 {
		steps = 1
	}

	d.wg.Add(1)
	go d.run(photoID, stopCh, steps)
	return nil
}

// run advances progress on each tick until it reaches 100 or the task is
// canceled.
func (d *Developer) run(photoID string, stopCh chan struct{}, steps int) {
	defer d.wg.Done()
	defer d.remove(photoID, stopCh)

	ticker := time.NewTicker(d.config.TickInterval)
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			tick++
			progress := tick * models.MaxProgress / steps
			if progress >= models.MaxProgress {
				d.finish(photoID)
				return
			}

			if err := d.store.SetProgress(photoID, progress); err != nil {
				// Photo gone; nothing left to develop.
				d.logger.Debug("development task orphaned",
					"photo_id", photoID, "error", err)
				return
			}
			d.notifyProgress(photoID, progress)
		}
	}
}

// finish flips the photo to developed. The conditional update in the store
// guarantees the flip happens at most once even if a duplicate task raced.
func (d *Developer) finish(photoID string) {
	flipped, err := d.store.MarkDeveloped(photoID)
	if err != nil {
		d.logger.Error("failed to finish development",
			"photo_id", photoID, "error", err)
		return
	}
	if !flipped {
		return
	}

	d.notifyProgress(photoID, models.MaxProgress)
	if d.OnDeveloped != nil {
		d.OnDeveloped(photoID)
	}
	d.logger.Debug("photo developed", "photo_id", photoID)
}

func (d *Developer) notifyProgress(photoID string, progress int) {
	if d.OnProgress != nil {
		d.OnProgress(photoID, progress, Curve(progress))
	}
}

// remove drops the task entry if it still points at this task's stop
// channel.
func (d *Developer) remove(photoID string, stopCh chan struct{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if current, ok := d.tasks[photoID]; ok && current == stopCh {
		delete(d.tasks, photoID)
	}
}

// Cancel stops the development task for a photo, if one is running.
// Safe to call for ids with no task.
func (d *Developer) Cancel(photoID string) {
	d.mu.Lock()
	stopCh, ok := d.tasks[photoID]
	if ok {
		delete(d.tasks, photoID)
	}
	d.mu.Unlock()

	if ok {
		close(stopCh)
	}
}

// CancelAll stops every running development task and waits for the task
// goroutines to exit.
func (d *Developer) CancelAll() {
	d.mu.Lock()
	for photoID, stopCh := range d.tasks {
		delete(d.tasks, photoID)
		close(stopCh)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

// Running reports whether a development task exists for the photo.
func (d *Developer) Running(photoID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.tasks[photoID]
	return ok
}
