package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sdmodeld/internal/embeddings"
	"sdmodeld/internal/registry"
	"sdmodeld/pkg/types"
)

type Session struct {
	id       string
	impl     registry.Implementation
	reg      *registry.Registry
	resolver *embeddings.Resolver
	log      zerolog.Logger
	pub      EventPublisher
	debounce time.Duration

	mu       sync.RWMutex
	models   []types.Model
	scanned  bool
	lastScan time.Time
	start    time.Time
}

// New constructs a Session. It fails only for an unknown implementation name.
// No directory is scanned until the first query or Refresh.
func New(cfg Config) (*Session, error) {
	impl, err := registry.ParseImplementation(cfg.Implementation)
	if err != nil {
		return nil, ErrUnknownImplementation(cfg.Implementation)
	}
	var builtin string
	var custom []string
	if len(cfg.ModelDirs) > 0 {
		builtin, custom = cfg.ModelDirs[0], cfg.ModelDirs[1:]
	}
	id := uuid.NewString()
	log := cfg.Logger.With().Str("session", id).Logger()
	s := &Session{
		id:       id,
		impl:     impl,
		resolver: embeddings.NewResolver(cfg.TriggerMarker, log),
		log:      log,
		pub:      cfg.Publisher,
		debounce: cfg.WatchDebounce,
		start:    time.Now(),
	}
	if s.pub == nil {
		s.pub = noopPublisher{}
	}
	if s.debounce <= 0 {
		s.debounce = defaultWatchDebounce
	}
	s.reg = registry.New(registry.Options{
		BuiltinDir: builtin,
		CustomDirs: custom,
		Archs:      cfg.Archs,
		Logger:     log,
	})
	s.reg.OnScan = func(d time.Duration, n int) {
		scansTotal.Inc()
		scanDuration.Observe(d.Seconds())
	}
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Implementation() registry.Implementation { return s.impl }

func (s *Session) Registry() *registry.Registry { return s.reg }

func (s *Session) Resolver() *embeddings.Resolver { return s.resolver }

// Ready reports whether at least one scan has completed.
func (s *Session) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanned
}

// Refresh rescans every root and replaces the cached model list.
func (s *Session) Refresh() []types.Model {
	models := s.reg.ListAll(true)
	now := time.Now()
	s.mu.Lock()
	s.models = models
	s.scanned = true
	s.lastScan = now
	s.mu.Unlock()

	counts := map[types.Kind]int{}
	for _, m := range models {
		counts[m.Kind]++
	}
	for _, k := range []types.Kind{types.KindNormal, types.KindVae, types.KindEmbedding} {
		modelsGauge.WithLabelValues(k.String()).Set(float64(counts[k]))
	}
	s.log.Debug().Int("models", len(models)).Msg("model dirs scanned")
	s.pub.Publish(Event{Name: EventModelsScanned, Fields: map[string]any{
		"models": len(models),
		"hash":   registry.ModelsHash(models),
	}})
	return models
}

// all returns the cached scan, scanning once on first use.
func (s *Session) all() []types.Model {
	s.mu.RLock()
	models, ok := s.models, s.scanned
	s.mu.RUnlock()
	if !ok {
		return s.Refresh()
	}
	return models
}

// Models lists the models of kind loadable by the session's implementation.
func (s *Session) Models(kind types.Kind) []types.Model {
	return registry.Filter(s.all(), kind, s.impl)
}

// ModelsFor is Models with an implementation override. An empty name selects
// the session's implementation and "any" disables format filtering.
func (s *Session) ModelsFor(kind types.Kind, implementation string) ([]types.Model, error) {
	impl, err := s.resolveImplementation(implementation)
	if err != nil {
		return nil, err
	}
	return registry.Filter(s.all(), kind, impl), nil
}

func (s *Session) resolveImplementation(name string) (registry.Implementation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return s.impl, nil
	case "any":
		return registry.ImplementationAny, nil
	}
	impl, err := registry.ParseImplementation(name)
	if err != nil {
		return registry.ImplementationAny, ErrUnknownImplementation(name)
	}
	return impl, nil
}

// Model looks a model up by base name in the last scan.
func (s *Session) Model(name string) (types.Model, error) {
	if m, ok := registry.Find(s.all(), name); ok {
		return m, nil
	}
	return types.Model{}, ErrModelNotFound(name)
}

// Embeddings lists the textual inversion files of every root.
func (s *Session) Embeddings() []types.Model { return s.reg.Embeddings() }

// HasInpaintingModel reports whether a normal model usable by the session's
// implementation is an inpainting model.
func (s *Session) HasInpaintingModel() bool {
	return registry.HasInpaintingModel(s.Models(types.KindNormal), s.impl)
}

// SetClipSkip patches the text encoder of the named diffusers model.
func (s *Session) SetClipSkip(name string, layersToSkip int) error {
	m, err := s.Model(name)
	if err != nil {
		return err
	}
	return s.reg.SetClipSkip(m, layersToSkip)
}

// ModelsHash fingerprints the last scan.
func (s *Session) ModelsHash() string { return registry.ModelsHash(s.all()) }

// Watch rescans whenever a model directory changes, until ctx is done.
func (s *Session) Watch(ctx context.Context) error {
	return s.reg.Watch(ctx, s.debounce, func() { s.Refresh() })
}
