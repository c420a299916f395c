package detect

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/banking/activity-graph-service/internal/domain"
)

// foundCycle is one elementary cycle through the queried entity
type foundCycle struct {
	nodes     []string // canonical rotation, smallest id first
	key       string
	txIDs     []string
	earliest  time.Time
	conserved bool
}

// detectCircular enumerates elementary cycles through the entity over edges
// inside the lookback window. The DFS keeps a visited stack so no node
// repeats within a path, depth is capped at max_hops, and rotations of the
// same node set collapse onto one canonical cycle. Cost bounds here are
// load-bearing: unbounded cycle search is exponential in dense graphs.
func (d *Detector) detectCircular(entityID string, anchor time.Time) []domain.Pattern {
	cfg := d.cfg.Circular
	windowStart := anchor.Add(-time.Duration(cfg.LookbackDays) * 24 * time.Hour)

	seen := make(map[string]struct{})
	var cycles []foundCycle

	path := []string{entityID}
	onPath := map[string]struct{}{entityID: {}}

	var dfs func(current string)
	dfs = func(current string) {
		for _, next := range d.store.OutgoingNeighbors(current) {
			edge := d.latestEdgeInWindow(current, next, windowStart, anchor)
			if edge == nil {
				continue
			}
			if next == entityID {
				if len(path) >= cfg.MinCycleLength {
					if c, ok := d.buildCycle(path, windowStart, anchor); ok {
						if _, dup := seen[c.key]; !dup {
							seen[c.key] = struct{}{}
							cycles = append(cycles, c)
						}
					}
				}
				continue
			}
			if _, revisit := onPath[next]; revisit {
				continue
			}
			if len(path) >= cfg.MaxHops {
				continue
			}
			path = append(path, next)
			onPath[next] = struct{}{}
			dfs(next)
			delete(onPath, next)
			path = path[:len(path)-1]
		}
	}
	dfs(entityID)

	// earliest activity first; the cap keeps the payload bounded
	sort.Slice(cycles, func(i, j int) bool {
		if cycles[i].earliest.Equal(cycles[j].earliest) {
			return cycles[i].key < cycles[j].key
		}
		return cycles[i].earliest.Before(cycles[j].earliest)
	})
	if len(cycles) > cfg.MaxCycles {
		cycles = cycles[:cfg.MaxCycles]
	}

	patterns := make([]domain.Pattern, 0, len(cycles))
	for _, c := range cycles {
		confidence := cfg.ConfidenceBase + cfg.ConfidencePerHop*float64(len(c.nodes))
		if c.conserved {
			confidence += cfg.ConservationBonus
		}
		confidence = clamp01(confidence)

		riskLevel := domain.RiskLevelHigh
		if confidence > 0.8 {
			riskLevel = domain.RiskLevelCritical
		}

		patterns = append(patterns, domain.Pattern{
			ID:         domain.PatternID(domain.PatternCircular, entityID+"|"+c.key, anchor),
			Type:       domain.PatternCircular,
			Confidence: confidence,
			RiskLevel:  riskLevel,
			Description: fmt.Sprintf(
				"Detected circular transaction pattern involving %d entities", len(c.nodes),
			),
			InvolvedEntities:     c.nodes,
			InvolvedTransactions: c.txIDs,
			DetectedAt:           anchor,
		})
	}
	return patterns
}

// buildCycle picks one transaction per hop (the latest inside the window),
// computes the cycle's earliest timestamp and whether the transferred
// amounts are conserved within the configured tolerance.
func (d *Detector) buildCycle(path []string, windowStart, anchor time.Time) (foundCycle, bool) {
	n := len(path)
	txIDs := make([]string, 0, n)
	var earliest time.Time
	minAmount, maxAmount := 0.0, 0.0

	for i := 0; i < n; i++ {
		src := path[i]
		dst := path[(i+1)%n]
		edge := d.latestEdgeInWindow(src, dst, windowStart, anchor)
		if edge == nil {
			return foundCycle{}, false
		}
		txIDs = append(txIDs, edge.ID)
		if earliest.IsZero() || edge.Timestamp.Before(earliest) {
			earliest = edge.Timestamp
		}
		if i == 0 || edge.Amount < minAmount {
			minAmount = edge.Amount
		}
		if i == 0 || edge.Amount > maxAmount {
			maxAmount = edge.Amount
		}
	}

	canonical := canonicalRotation(path)
	conserved := maxAmount > 0 && (maxAmount-minAmount) <= d.cfg.Circular.ConservationTolerance*maxAmount

	return foundCycle{
		nodes:     canonical,
		key:       strings.Join(canonical, "->"),
		txIDs:     txIDs,
		earliest:  earliest,
		conserved: conserved,
	}, true
}

// latestEdgeInWindow returns the most recent src->dst transaction inside
// [windowStart, anchor], or nil if none exists.
func (d *Detector) latestEdgeInWindow(src, dst string, windowStart, anchor time.Time) *domain.Transaction {
	var best *domain.Transaction
	for _, t := range d.store.TransactionsFromTo(src, dst) {
		if t.Timestamp.Before(windowStart) || t.Timestamp.After(anchor) {
			continue
		}
		if best == nil || t.Timestamp.After(best.Timestamp) {
			best = t
		}
	}
	return best
}

// canonicalRotation rotates the cycle so the lexicographically smallest id
// comes first, de-duplicating rotations of the same ordered node set.
func canonicalRotation(cycle []string) []string {
	smallest := 0
	for i, id := range cycle {
		if id < cycle[smallest] {
			smallest = i
		}
	}
	rotated := make([]string, 0, len(cycle))
	rotated = append(rotated, cycle[smallest:]...)
	rotated = append(rotated, cycle[:smallest]...)
	return rotated
}
