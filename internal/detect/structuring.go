package detect

import (
	"fmt"
	"time"

	"github.com/banking/activity-graph-service/internal/domain"
)

// detectStructuring looks for repeated outgoing transactions sitting just
// below the reporting threshold within the trailing window. Returns nil when
// the entity's recent activity does not reach min_occurrences.
func (d *Detector) detectStructuring(entityID string, anchor time.Time) *domain.Pattern {
	cfg := d.cfg.Structuring
	windowStart := anchor.Add(-time.Duration(cfg.WindowDays) * 24 * time.Hour)

	txns, err := d.store.TransactionsByEntity(entityID, windowStart, anchor)
	if err != nil {
		return nil
	}

	low := cfg.ReportingThreshold * cfg.LowFraction
	var (
		matched []string
		total   float64
	)
	for _, t := range txns {
		if !t.OutgoingFrom(entityID) {
			continue
		}
		if t.Amount >= low && t.Amount < cfg.ReportingThreshold {
			matched = append(matched, t.ID)
			total += t.Amount
		}
	}
	if len(matched) < cfg.MinOccurrences {
		return nil
	}

	confidence := clamp01(cfg.ConfidenceBase + cfg.ConfidencePerTx*float64(len(matched)))
	riskLevel := domain.RiskLevelMedium
	if total > cfg.HighRiskTotal {
		riskLevel = domain.RiskLevelHigh
	}

	return &domain.Pattern{
		ID:         domain.PatternID(domain.PatternStructuring, entityID, anchor),
		Type:       domain.PatternStructuring,
		Confidence: confidence,
		RiskLevel:  riskLevel,
		Description: fmt.Sprintf(
			"Detected %d sub-threshold outgoing transactions totaling $%.2f in %d days, potentially to avoid reporting thresholds",
			len(matched), total, cfg.WindowDays,
		),
		InvolvedEntities:     []string{entityID},
		InvolvedTransactions: matched,
		DetectedAt:           anchor,
	}
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
