// Package app wires the museum guide together: it feeds tracking batches to
// the lifecycle manager from a single frame loop and connects the manager
// to the room, the artwork catalog, dialogue and the anchor log.
package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fabriziosardo/AR-Project/internal/artwork"
	"github.com/fabriziosardo/AR-Project/internal/config"
	"github.com/fabriziosardo/AR-Project/internal/dialogue"
	"github.com/fabriziosardo/AR-Project/internal/ground"
	"github.com/fabriziosardo/AR-Project/internal/lifecycle"
	"github.com/fabriziosardo/AR-Project/internal/placement"
	"github.com/fabriziosardo/AR-Project/internal/refimage"
	"github.com/fabriziosardo/AR-Project/internal/store"
	"github.com/fabriziosardo/AR-Project/internal/tracking"
)

// Pipeline constants.
const (
	// BatchBuffer is the number of tracking batches that can wait for the
	// frame loop before producers block.
	BatchBuffer = 256
	// settingEnabled persists the pause state across restarts.
	settingEnabled = "enabled"
)

// Environment is the room the guide lives in. *scene.World implements it.
type Environment interface {
	ground.Raycaster
	ground.PlaneSource
	placement.Viewpoint
	lifecycle.Spawner
	lifecycle.AnchorProvider
}

// Config holds configuration options for the application.
type Config struct {
	Store    *store.Store // optional
	Settings config.Config
	Env      Environment
	Analyzer *refimage.Analyzer // optional, skips image checks when nil
	Logger   zerolog.Logger
	Clock    func() time.Time
}

// Stats counts what the frame loop has processed.
type Stats struct {
	Frames      uint64 `json:"frames"`
	Batches     uint64 `json:"batches"`
	Dropped     uint64 `json:"dropped"`
	Spawned     uint64 `json:"spawned"`
	Anchored    uint64 `json:"anchored"`
	LastArtwork string `json:"last_artwork,omitempty"`
}

// App is the main application that runs the guide.
type App struct {
	config   Config
	log      zerolog.Logger
	probe    *ground.Probe
	calc     *placement.Calculator
	dialogue *dialogue.Controller
	manager  *lifecycle.Manager
	frames   *tracking.ChannelSource
	ingest   *tracking.ChannelSource

	batches chan tracking.Batch

	mu          sync.RWMutex
	enabled     bool
	stopCh      chan struct{}
	done        chan struct{}
	steppers    []stepper
	unsubscribe []func()
	registry    *artwork.Registry
	images      *refimage.Library
	stats       Stats
	onSpawn     func(artwork string)
}

type stepper interface {
	Step() bool
}

// New creates a new App instance with the given configuration.
func New(cfg Config) (*App, error) {
	if cfg.Env == nil {
		return nil, fmt.Errorf("app: environment is required")
	}

	a := &App{
		config:   cfg,
		log:      cfg.Logger,
		dialogue: dialogue.NewController(cfg.Logger.With().Str("component", "dialogue").Logger()),
		frames:   tracking.NewChannelSource(),
		ingest:   tracking.NewChannelSource(),
		batches:  make(chan tracking.Batch, BatchBuffer),
		enabled:  true,
	}

	a.probe = ground.NewProbe(cfg.Settings.GroundProbe(), cfg.Env, cfg.Env,
		cfg.Logger.With().Str("component", "ground").Logger())
	a.calc = placement.NewCalculator(cfg.Settings.PlacementSettings(), a.probe, cfg.Env)

	registry, images, err := a.buildRegistry()
	if err != nil {
		return nil, err
	}
	a.registry, a.images = registry, images

	mgr, err := lifecycle.New(cfg.Settings.Lifecycle(), lifecycle.Deps{
		Registry: registry,
		Placer:   a.calc,
		Spawner:  cfg.Env,
		Anchors:  cfg.Env,
		Dialogue: a.dialogue,
		Clock:    cfg.Clock,
		Logger:   cfg.Logger.With().Str("component", "lifecycle").Logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.manager = mgr
	mgr.Subscribe(a.onEvent)
	if err := mgr.Attach(a.frames); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	if cfg.Store != nil {
		a.enabled = cfg.Store.Settings().Bool(settingEnabled, true)
	}
	mgr.SetPaused(!a.enabled)

	a.Attach(a.ingest)
	return a, nil
}

// buildRegistry merges the stored catalog with the configured artworks.
// Configured entries come last so they win over stored ones.
func (a *App) buildRegistry() (*artwork.Registry, *refimage.Library, error) {
	a.mu.RLock()
	configured := a.config.Settings.ArtworkConfigs()
	imageDir := a.config.Settings.ImageDir
	a.mu.RUnlock()

	var configs []artwork.Config
	if a.config.Store != nil {
		stored, err := a.config.Store.Artworks().Configs()
		if err != nil {
			return nil, nil, fmt.Errorf("load artworks: %w", err)
		}
		configs = append(configs, stored...)
	}
	configs = append(configs, configured...)

	registry := artwork.BuildLookup(configs, a.log.With().Str("component", "artwork").Logger())

	var images *refimage.Library
	if a.config.Analyzer != nil {
		images = refimage.LoadLibrary(imageDir, configs, a.config.Analyzer,
			a.log.With().Str("component", "refimage").Logger())
		if n := images.Problems(); n > 0 {
			a.log.Warn().Int("images", n).Msg("some reference images may track poorly")
		}
	}
	return registry, images, nil
}

// LoadArtworks rebuilds the registry from the store and config. Characters
// already in the room keep their configuration.
func (a *App) LoadArtworks() error {
	registry, images, err := a.buildRegistry()
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.registry, a.images = registry, images
	a.mu.Unlock()
	a.manager.SetRegistry(registry)
	a.log.Info().Int("artworks", registry.Len()).Msg("artworks loaded")
	return nil
}

// ApplyConfig takes the artworks and image directory of a reloaded config
// file and rebuilds the registry. Other settings only apply on restart.
func (a *App) ApplyConfig(cfg config.Config) error {
	a.mu.Lock()
	a.config.Settings.Artworks = cfg.Artworks
	a.config.Settings.ImageDir = cfg.ImageDir
	a.mu.Unlock()
	return a.LoadArtworks()
}

// Attach feeds src into the frame loop. Sources with a Step method, such as
// a ReplaySource, are stepped once per frame.
func (a *App) Attach(src tracking.Source) {
	unsub := src.Subscribe(a.enqueue)
	a.mu.Lock()
	a.unsubscribe = append(a.unsubscribe, unsub)
	if s, ok := src.(stepper); ok {
		a.steppers = append(a.steppers, s)
	}
	a.mu.Unlock()
}

// enqueue hands a batch to the frame loop. It blocks while the buffer is
// full and drops the batch once the app has stopped.
func (a *App) enqueue(b tracking.Batch) {
	a.mu.RLock()
	stop := a.stopCh
	a.mu.RUnlock()

	if stop == nil {
		select {
		case a.batches <- b:
		default:
			a.countDropped()
		}
		return
	}
	select {
	case a.batches <- b:
	case <-stop:
		a.countDropped()
	}
}

func (a *App) countDropped() {
	a.mu.Lock()
	a.stats.Dropped++
	a.mu.Unlock()
	a.log.Warn().Msg("tracking batch dropped, frame loop not running")
}

// SetEnabled pauses or resumes the guide. While paused no new characters
// appear and existing ones stop moving, but they still hide when their
// painting is lost and go away when it is removed.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()
	a.manager.SetPaused(!enabled)

	if a.config.Store != nil {
		if err := a.config.Store.Settings().SetBool(settingEnabled, enabled); err != nil {
			a.log.Warn().Err(err).Msg("failed to persist enabled state")
		}
	}
	a.log.Info().Bool("enabled", enabled).Msg("guide state changed")
}

// IsEnabled returns whether the guide is processing tracking.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// OnSpawn sets a callback invoked with the artwork name of every spawned
// character.
func (a *App) OnSpawn(fn func(artwork string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onSpawn = fn
}

// Start begins the frame loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	a.pruneAnchorLog()

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.runPipeline(a.stopCh, a.done)

	a.log.Info().Dur("interval", a.config.Settings.FrameInterval()).Msg("frame loop started")
	return nil
}

// pruneAnchorLog drops anchor log rows older than the configured retention.
func (a *App) pruneAnchorLog() {
	retention := a.config.Settings.AnchorLogRetention.Duration
	if a.config.Store == nil || retention <= 0 {
		return
	}
	now := time.Now
	if a.config.Clock != nil {
		now = a.config.Clock
	}
	n, err := a.config.Store.AnchorLog().Prune(now().Add(-retention))
	if err != nil {
		a.log.Warn().Err(err).Msg("failed to prune anchor log")
		return
	}
	if n > 0 {
		a.log.Info().Int64("rows", n).Dur("retention", retention).Msg("anchor log pruned")
	}
}

// Stop halts the frame loop and tears the scene down: every character is
// destroyed and every anchor released.
func (a *App) Stop() {
	a.mu.Lock()
	stop, done := a.stopCh, a.done
	a.stopCh, a.done = nil, nil
	unsub := a.unsubscribe
	a.unsubscribe = nil
	a.mu.Unlock()

	for _, fn := range unsub {
		fn()
	}
	if stop != nil {
		close(stop)
		<-done
	}

	a.manager.Close()
	a.ingest.Close()
	a.frames.Close()
	a.log.Info().Msg("frame loop stopped")
}

// Ingest is the push source fed by the websocket tracking endpoint.
func (a *App) Ingest() *tracking.ChannelSource {
	return a.ingest
}

// Manager returns the lifecycle manager.
func (a *App) Manager() *lifecycle.Manager {
	return a.manager
}

// Dialogue returns the dialogue controller.
func (a *App) Dialogue() *dialogue.Controller {
	return a.dialogue
}

// Registry returns the current artwork registry.
func (a *App) Registry() *artwork.Registry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.registry
}

// Images returns the checked reference images, or nil when image checks
// are disabled.
func (a *App) Images() *refimage.Library {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.images
}

// Store returns the store, which may be nil.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// Stats returns a copy of the loop counters.
func (a *App) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}
