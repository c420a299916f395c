package risk

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/banking/activity-graph-service/internal/config"
	"github.com/banking/activity-graph-service/internal/domain"
	"github.com/banking/activity-graph-service/internal/graph"
	"github.com/banking/activity-graph-service/internal/pkg/logger"
)

// PatternDetector is the scorer's view of pattern detection
type PatternDetector interface {
	DetectAll(entityID string, asOf time.Time) ([]domain.Pattern, error)
}

// Scorer combines SAR involvement, connectivity, transaction volume and
// detected-pattern count into a risk score and level, and propagates risk
// from high-risk entities to their neighbors. It is the only component that
// mutates entity risk fields; the engine holds the write lock around the
// mutating calls.
type Scorer struct {
	store    *graph.Store
	detector PatternDetector
	cfg      config.RiskConfig
	log      *logger.Logger
}

// NewScorer creates a risk scorer over the given store
func NewScorer(store *graph.Store, detector PatternDetector, cfg config.RiskConfig, log *logger.Logger) *Scorer {
	return &Scorer{
		store:    store,
		detector: detector,
		cfg:      cfg,
		log:      log.Named("risk_scorer"),
	}
}

// factors holds the raw factor inputs for one entity
type factors struct {
	sarCount     int
	neighbors    int
	volume       float64
	patternCount int
}

// Score computes the entity's current risk score and level without mutating
// anything. Safe under the shared read lock.
func (s *Scorer) Score(entityID string) (float64, domain.RiskLevel, error) {
	f, err := s.gather(entityID)
	if err != nil {
		return 0, "", err
	}
	score := s.combine(f, 0)
	return score, domain.RiskLevelForScore(score), nil
}

// gather collects the four factor inputs for an entity
func (s *Scorer) gather(entityID string) (factors, error) {
	neighbors, err := s.store.Neighbors(entityID)
	if err != nil {
		return factors{}, err
	}
	txns, err := s.store.TransactionsByEntity(entityID, time.Time{}, time.Time{})
	if err != nil {
		return factors{}, err
	}
	var volume float64
	for _, t := range txns {
		volume += t.Amount
	}
	related, err := s.RelatedSARs(entityID)
	if err != nil {
		return factors{}, err
	}
	patterns, err := s.detector.DetectAll(entityID, time.Time{})
	if err != nil {
		return factors{}, err
	}
	stats := SequenceStats(txns)
	return factors{
		sarCount:     len(related),
		neighbors:    len(neighbors),
		volume:       volume,
		patternCount: len(patterns) + len(stats.Heuristics),
	}, nil
}

// combine folds the factor inputs through the saturating weighted sum.
// connectivityBoost is the propagated contribution added to the normalized
// connectivity factor before clamping; zero outside a propagation sweep.
func (s *Scorer) combine(f factors, connectivityBoost float64) float64 {
	sarFactor := saturate(float64(f.sarCount), s.cfg.SARSaturation)
	connectivity := clamp01(float64(f.neighbors)/s.cfg.NeighborSaturation + connectivityBoost)
	volumeFactor := saturate(f.volume, s.cfg.VolumeSaturation)
	patternFactor := saturate(float64(f.patternCount), s.cfg.PatternSaturation)

	score := s.cfg.SARWeight*sarFactor +
		s.cfg.ConnectivityWeight*connectivity +
		s.cfg.VolumeWeight*volumeFactor +
		s.cfg.PatternWeight*patternFactor
	return clamp01(score)
}

// RelatedSARs returns SARs naming the entity or any entity connected to it
// within the configured depth, sorted by filing date then id.
func (s *Scorer) RelatedSARs(entityID string) ([]*domain.SAR, error) {
	connected, err := s.store.ConnectedWithin(entityID, s.cfg.RelatedSARDepth)
	if err != nil {
		return nil, err
	}
	connected[entityID] = struct{}{}

	var related []*domain.SAR
	for _, sar := range s.store.AllSARs() {
		for _, id := range sar.EntitiesInvolved {
			if _, ok := connected[id]; ok {
				related = append(related, sar)
				break
			}
		}
	}
	sort.Slice(related, func(i, j int) bool {
		if related[i].FilingDate.Equal(related[j].FilingDate) {
			return related[i].ID < related[j].ID
		}
		return related[i].FilingDate.Before(related[j].FilingDate)
	})
	return related, nil
}

// Rescore recomputes and stores the risk fields of the given entities.
// Callers must hold the write lock.
func (s *Scorer) Rescore(entityIDs []string) error {
	for _, id := range entityIDs {
		score, level, err := s.Score(id)
		if err != nil {
			return fmt.Errorf("rescore %q: %w", id, err)
		}
		e, err := s.store.GetEntity(id)
		if err != nil {
			return err
		}
		e.RiskScore = score
		e.RiskLevel = level
		s.log.RiskScored(id, score, string(level))
	}
	return nil
}

// Propagate performs a bounded-depth breadth-first sweep from every
// high/critical entity, diffusing a decayed share of the seed's score onto
// neighbors' connectivity inputs, then finalizes every entity's risk fields.
// Seeds and each BFS frontier are processed in ascending id order so results
// are reproducible. Callers must hold the write lock. Returns the number of
// entities that received a propagated boost.
func (s *Scorer) Propagate() (int, error) {
	ids := s.store.EntityIDs()

	base := make(map[string]float64, len(ids))
	for _, id := range ids {
		f, err := s.gather(id)
		if err != nil {
			return 0, fmt.Errorf("propagate gather %q: %w", id, err)
		}
		base[id] = s.combine(f, 0)
	}

	var seeds []string
	for _, id := range ids { // already ascending
		level := domain.RiskLevelForScore(base[id])
		if level == domain.RiskLevelHigh || level == domain.RiskLevelCritical {
			seeds = append(seeds, id)
		}
	}

	boosts := make(map[string]float64)
	for _, seed := range seeds {
		visited := map[string]struct{}{seed: {}}
		frontier := []string{seed}
		for depth := 1; depth <= s.cfg.PropagationDepth && len(frontier) > 0; depth++ {
			contribution := base[seed] * math.Pow(s.cfg.PropagationDecay, float64(depth))
			var next []string
			for _, current := range frontier {
				neighbors, err := s.store.Neighbors(current)
				if err != nil {
					return 0, fmt.Errorf("propagate neighbors %q: %w", current, err)
				}
				for _, n := range neighbors { // ascending per Neighbors
					if _, seen := visited[n]; seen {
						continue
					}
					visited[n] = struct{}{}
					boosts[n] += contribution
					next = append(next, n)
				}
			}
			frontier = next
		}
	}

	for _, id := range ids {
		f, err := s.gather(id)
		if err != nil {
			return 0, err
		}
		score := s.combine(f, boosts[id])
		e, err := s.store.GetEntity(id)
		if err != nil {
			return 0, err
		}
		e.RiskScore = score
		e.RiskLevel = domain.RiskLevelForScore(score)
	}

	s.log.RiskPropagated(len(seeds), len(boosts))
	return len(boosts), nil
}

func saturate(value, saturation float64) float64 {
	if saturation <= 0 {
		return 0
	}
	return clamp01(value / saturation)
}

func clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
