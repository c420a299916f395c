package detect

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banking/activity-graph-service/internal/config"
	"github.com/banking/activity-graph-service/internal/domain"
	"github.com/banking/activity-graph-service/internal/graph"
	"github.com/banking/activity-graph-service/internal/pkg/logger"
)

// Detector runs the three pattern checks over the graph. All checks are pure
// reads of store state; the engine holds the shared read lock around a call,
// so every check is bounded (windows, hop limits, cycle caps) to avoid
// starving writers.
type Detector struct {
	store *graph.Store
	cfg   config.DetectionConfig
	log   *logger.Logger
}

// NewDetector creates a pattern detector over the given store
func NewDetector(store *graph.Store, cfg config.DetectionConfig, log *logger.Logger) *Detector {
	return &Detector{
		store: store,
		cfg:   cfg,
		log:   log.Named("pattern_detector"),
	}
}

// DetectAll runs structuring, circular and rapid-movement detection for one
// entity and concatenates the results. The checks are independent: an entity
// can match all three at once, and none suppresses another. asOf anchors the
// time windows; a zero asOf anchors at the entity's most recent transaction.
func (d *Detector) DetectAll(entityID string, asOf time.Time) ([]domain.Pattern, error) {
	if !d.store.HasEntity(entityID) {
		return nil, fmt.Errorf("entity %q: %w", entityID, domain.ErrNotFound)
	}

	anchor := asOf
	if anchor.IsZero() {
		latest, ok := d.store.LatestTimestamp(entityID)
		if !ok {
			// No transactions, nothing to detect
			return []domain.Pattern{}, nil
		}
		anchor = latest
	}

	var (
		mu          sync.Mutex
		structuring *domain.Pattern
		circular    []domain.Pattern
		rapid       []domain.Pattern
	)

	var g errgroup.Group
	g.Go(func() error {
		p := d.detectStructuring(entityID, anchor)
		mu.Lock()
		structuring = p
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		ps := d.detectCircular(entityID, anchor)
		mu.Lock()
		circular = ps
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		ps := d.detectRapidMovement(entityID, anchor)
		mu.Lock()
		rapid = ps
		mu.Unlock()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	patterns := make([]domain.Pattern, 0, 1+len(circular)+len(rapid))
	if structuring != nil {
		patterns = append(patterns, *structuring)
	}
	patterns = append(patterns, circular...)
	patterns = append(patterns, rapid...)

	for _, p := range patterns {
		d.log.PatternDetected(entityID, string(p.Type), p.Confidence)
	}
	return patterns, nil
}
