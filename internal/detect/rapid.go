package detect

import (
	"fmt"
	"time"

	"github.com/banking/activity-graph-service/internal/domain"
)

// detectRapidMovement slides a window over the entity's time-ordered
// transactions and flags any stretch with enough volume moving fast. Windows
// are maximal and non-overlapping: once one is emitted the scan resumes past
// its end, so sub-windows never produce duplicate patterns.
func (d *Detector) detectRapidMovement(entityID string, anchor time.Time) []domain.Pattern {
	cfg := d.cfg.Rapid
	window := time.Duration(cfg.WindowHours) * time.Hour

	txns, err := d.store.TransactionsByEntity(entityID, time.Time{}, anchor)
	if err != nil || len(txns) < cfg.MinTransactions {
		return nil
	}

	var patterns []domain.Pattern
	i := 0
	for i < len(txns) {
		end := txns[i].Timestamp.Add(window)
		j := i
		var total float64
		for j < len(txns) && !txns[j].Timestamp.After(end) {
			total += txns[j].Amount
			j++
		}
		count := j - i
		if count >= cfg.MinTransactions && total > cfg.VolumeFloor {
			txIDs := make([]string, 0, count)
			for _, t := range txns[i:j] {
				txIDs = append(txIDs, t.ID)
			}
			confidence := clamp01(cfg.ConfidenceBase + cfg.ConfidencePerTx*float64(count))
			riskLevel := domain.RiskLevelMedium
			if confidence > 0.6 {
				riskLevel = domain.RiskLevelHigh
			}
			windowKey := entityID + "|" + txns[i].Timestamp.UTC().Format(time.RFC3339Nano)
			patterns = append(patterns, domain.Pattern{
				ID:         domain.PatternID(domain.PatternRapidMovement, windowKey, anchor),
				Type:       domain.PatternRapidMovement,
				Confidence: confidence,
				RiskLevel:  riskLevel,
				Description: fmt.Sprintf(
					"Detected %d transactions totaling $%.2f in %d hours",
					count, total, cfg.WindowHours,
				),
				InvolvedEntities:     []string{entityID},
				InvolvedTransactions: txIDs,
				DetectedAt:           anchor,
			})
			i = j
			continue
		}
		i++
	}
	return patterns
}
