package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cibounipi/mensabot/internal/domain/entities"
	"github.com/cibounipi/mensabot/internal/domain/providers"
	"github.com/cibounipi/mensabot/internal/infrastructure/observability"
	"github.com/cibounipi/mensabot/internal/store"
	apperrors "github.com/cibounipi/mensabot/pkg/errors"
)

// Reload triggers, recorded on spans and metrics
const (
	TriggerStartup  = "startup"
	TriggerInterval = "interval"
	TriggerEvent    = "event"
	TriggerManual   = "manual"
)

// RenderCachePrefix namespaces cached renders; keys continue with the
// snapshot version.
const RenderCachePrefix = "render:"

// SnapshotServiceConfig holds the optional collaborators of SnapshotService
type SnapshotServiceConfig struct {
	Location *time.Location
	Cache    providers.CacheProvider
	EventBus providers.EventBus
	Channel  string
	Interval time.Duration
	Metrics  *observability.Metrics
}

// SnapshotService fetches the source documents, builds a snapshot and swaps
// it in. It reloads on a timer and whenever a refresh event arrives. A
// failed reload keeps the previous snapshot serving.
type SnapshotService struct {
	source   providers.DocumentSource
	holder   *store.Holder
	cfg      SnapshotServiceConfig
	reloadMu sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewSnapshotService creates a snapshot service publishing into holder
func NewSnapshotService(source providers.DocumentSource, holder *store.Holder, cfg SnapshotServiceConfig) *SnapshotService {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Channel == "" {
		cfg.Channel = providers.EventChannelDataRefreshed
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SnapshotService{
		source: source,
		holder: holder,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Fetch downloads every document. Only the combination notes may be absent.
func (s *SnapshotService) Fetch(ctx context.Context) (store.Documents, error) {
	var docs store.Documents
	for _, name := range []string{store.DocMenu, store.DocFacilities, store.DocRates, store.DocCombinations} {
		data, err := s.source.Fetch(ctx, name)
		if err != nil {
			if name == store.DocCombinations && apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
				log.Debug().Str("source", s.source.Name()).Msg("No combination notes published")
				continue
			}
			return docs, fmt.Errorf("failed to fetch %s from %s: %w", name, s.source.Name(), err)
		}
		docs.Set(name, data)
	}
	return docs, nil
}

// Reload builds a fresh snapshot and swaps it in. Renders cached under the
// replaced version are purged. An unchanged data set is not swapped.
func (s *SnapshotService) Reload(ctx context.Context, trigger string) (*store.Snapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	ctx, span := observability.StartSpan(ctx, "snapshot.reload")
	defer span.End()
	span.SetAttributes(attribute.String("reload.trigger", trigger), attribute.String("source", s.source.Name()))

	start := time.Now()
	next, err := s.build(ctx)
	s.recordReload(ctx, trigger, err == nil, time.Since(start))
	if err != nil {
		observability.RecordError(span, err)
		log.Error().Err(err).Str("trigger", trigger).Str("source", s.source.Name()).Msg("Snapshot reload failed")
		return nil, err
	}

	current := s.holder.Load()
	if current != nil && current.Version == next.Version {
		log.Debug().Str("version", next.Version).Str("trigger", trigger).Msg("Snapshot unchanged")
		return current, nil
	}

	previous := s.holder.Swap(next)
	span.SetAttributes(attribute.String("snapshot.version", next.Version))
	log.Info().
		Str("version", next.Version).
		Str("trigger", trigger).
		Int("menu_days", next.Menus.Len()).
		Int("facilities", next.Facilities.Len()).
		Int("rate_bands", len(next.Rates.Bands())).
		Msg("Snapshot loaded")

	if previous != nil {
		s.purgeRenders(ctx, previous.Version)
	}
	return next, nil
}

func (s *SnapshotService) build(ctx context.Context) (*store.Snapshot, error) {
	docs, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return store.Build(docs, s.cfg.Location)
}

func (s *SnapshotService) recordReload(ctx context.Context, trigger string, success bool, d time.Duration) {
	if s.cfg.Metrics != nil {
		observability.RecordReloadMetric(ctx, s.cfg.Metrics, trigger, success, d)
	}
}

func (s *SnapshotService) purgeRenders(ctx context.Context, version string) {
	if s.cfg.Cache == nil {
		return
	}
	pattern := RenderCachePrefix + version + ":*"
	if err := s.cfg.Cache.DeletePattern(ctx, pattern); err != nil {
		log.Warn().Err(err).Str("pattern", pattern).Msg("Failed to purge cached renders")
		return
	}
	log.Debug().Str("pattern", pattern).Msg("Purged cached renders")
}

// Start subscribes to refresh events and starts the reload ticker. Both are
// optional: without an event bus or an interval Start only logs.
func (s *SnapshotService) Start() error {
	if s.cfg.EventBus != nil {
		events, err := s.cfg.EventBus.Subscribe(s.ctx, s.cfg.Channel)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", s.cfg.Channel, err)
		}
		s.wg.Add(1)
		go s.processEvents(events)
	}

	if s.cfg.Interval > 0 {
		s.wg.Add(1)
		go s.runTicker(s.cfg.Interval)
	}

	log.Info().
		Bool("events", s.cfg.EventBus != nil).
		Dur("interval", s.cfg.Interval).
		Msg("Snapshot service started")
	return nil
}

// Stop stops the background reloads and waits for them to return
func (s *SnapshotService) Stop() {
	s.cancel()
	s.wg.Wait()
	log.Info().Msg("Snapshot service stopped")
}

func (s *SnapshotService) processEvents(events <-chan *entities.DataRefreshEvent) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			log.Info().
				Str("event_id", event.ID).
				Str("origin", event.Origin).
				Strs("documents", event.Documents).
				Msg("Data refresh event received")
			s.reloadInBackground(TriggerEvent)
		}
	}
}

func (s *SnapshotService) runTicker(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.reloadInBackground(TriggerInterval)
		}
	}
}

func (s *SnapshotService) reloadInBackground(trigger string) {
	ctx, cancel := context.WithTimeout(s.ctx, time.Minute)
	defer cancel()
	_, _ = s.Reload(ctx, trigger)
}
