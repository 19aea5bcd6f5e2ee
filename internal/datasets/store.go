package datasets

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/logging"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/models"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/telemetry"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/utils"
)

// SnapshotCache is a shared second-level cache of parsed datasets.
type SnapshotCache interface {
	Get(ctx context.Context, id string) (*models.Dataset, bool)
	Set(ctx context.Context, dataset *models.Dataset)
	Delete(ctx context.Context, id string) error
}

// Store hands out datasets, parsing each identifier at most once. Failed
// loads are never cached so a later call retries the source. The map lock
// is never held across a snapshot or source round trip; concurrent first
// loads of one identifier share a single flight.
type Store struct {
	source   Source
	snapshot SnapshotCache
	log      *logging.StandardLogger
	logger   *logrus.Entry

	mu     sync.Mutex
	loaded map[string]*models.Dataset
	flight singleflight.Group
	now    func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithSnapshotCache places cache between the store and its source.
func WithSnapshotCache(cache SnapshotCache) StoreOption {
	return func(s *Store) { s.snapshot = cache }
}

// WithLogger sets the logger used for load events.
func WithLogger(logger *logging.StandardLogger) StoreOption {
	return func(s *Store) { s.log = logger }
}

// NewStore creates a store over source.
func NewStore(source Source, opts ...StoreOption) *Store {
	s := &Store{
		source: source,
		log:    logging.NewStandardLoggerWithOutput("info", "production", os.Stderr),
		loaded: map[string]*models.Dataset{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.log.WithComponent("dataset_store")
	return s
}

func (s *Store) cached(id string) (*models.Dataset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.loaded[id]
	return ds, ok
}

func (s *Store) publish(id string, ds *models.Dataset) {
	s.mu.Lock()
	s.loaded[id] = ds
	s.mu.Unlock()
}

// Load returns the dataset for id. A caller waiting on another caller's
// first load gives up when ctx is done; the load itself keeps running.
func (s *Store) Load(ctx context.Context, id string) (*models.Dataset, error) {
	if ds, ok := s.cached(id); ok {
		return ds, nil
	}

	result := s.flight.DoChan(id, func() (interface{}, error) {
		return s.load(context.WithoutCancel(ctx), id)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.Dataset), nil
	}
}

func (s *Store) load(ctx context.Context, id string) (*models.Dataset, error) {
	// A flight that started just after another one published.
	if ds, ok := s.cached(id); ok {
		return ds, nil
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.GetDatasetTracer(), "dataset.load",
		telemetry.StringAttribute("dataset", id),
		telemetry.StringAttribute("source", s.source.Name()))
	defer span.End()

	if s.snapshot != nil {
		if ds, ok := s.snapshot.Get(ctx, id); ok {
			s.publish(id, ds)
			span.SetAttributes(telemetry.BoolAttribute("snapshot.hit", true))
			s.logger.WithField("dataset", id).Debug("Dataset restored from snapshot cache")
			return ds, nil
		}
	}

	start := s.now()
	ds, err := s.source.Load(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		entry := s.logger.WithError(err).WithField("dataset", id)
		if utils.KindOf(err) == utils.KindNotFound {
			entry.Debug("Dataset not found")
		} else {
			entry.Warn("Dataset load failed")
		}
		return nil, err
	}
	ds.LoadedAt = s.now()

	s.publish(id, ds)
	if s.snapshot != nil {
		s.snapshot.Set(ctx, ds)
	}

	s.log.LogDatasetLoad(id, s.source.Name(), ds.History.Len(), len(ds.Drivers), s.now().Sub(start).Milliseconds())
	return ds, nil
}

// IDs lists the identifiers the source can serve.
func (s *Store) IDs() []string {
	return s.source.IDs()
}

// Loaded lists identifiers currently held in memory.
func (s *Store) Loaded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.loaded))
	for id := range s.loaded {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Invalidate drops id from memory and from the snapshot cache so the next
// Load re-reads the source.
func (s *Store) Invalidate(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.loaded, id)
	s.mu.Unlock()
	s.flight.Forget(id)

	if s.snapshot != nil {
		if err := s.snapshot.Delete(ctx, id); err != nil {
			return err
		}
	}
	s.logger.WithField("dataset", id).Info("Dataset invalidated")
	return nil
}
