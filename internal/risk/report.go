package risk

import (
	"fmt"
	"time"

	"github.com/banking/activity-graph-service/internal/domain"
)

// Analyze builds the full risk report for an entity: fresh score and level,
// human-readable findings, related SARs within the configured graph distance,
// detected pattern names and level-appropriate recommendations. Read-only.
func (s *Scorer) Analyze(entityID string) (*domain.RiskReport, error) {
	if _, err := s.store.GetEntity(entityID); err != nil {
		return nil, err
	}

	neighbors, err := s.store.Neighbors(entityID)
	if err != nil {
		return nil, err
	}
	txns, err := s.store.TransactionsByEntity(entityID, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	related, err := s.RelatedSARs(entityID)
	if err != nil {
		return nil, err
	}
	patterns, err := s.detector.DetectAll(entityID, time.Time{})
	if err != nil {
		return nil, err
	}
	stats := SequenceStats(txns)

	score := s.combine(factors{
		sarCount:     len(related),
		neighbors:    len(neighbors),
		volume:       stats.TotalAmount,
		patternCount: len(patterns) + len(stats.Heuristics),
	}, 0)
	level := domain.RiskLevelForScore(score)

	report := &domain.RiskReport{
		EntityID:    entityID,
		GeneratedAt: time.Now().UTC(),
		RiskScore:   score,
		RiskLevel:   level,
		Findings: []string{
			fmt.Sprintf("Connected to %d entities", len(neighbors)),
			fmt.Sprintf("Involved in %d SARs", len(related)),
			fmt.Sprintf("Total transaction volume: $%.2f", stats.TotalAmount),
		},
		RelatedSARs:      make([]domain.SARSummary, 0, len(related)),
		DetectedPatterns: []string{},
	}
	for _, sar := range related {
		report.RelatedSARs = append(report.RelatedSARs, sar.ToSummary())
	}
	for _, p := range patterns {
		report.DetectedPatterns = append(report.DetectedPatterns, string(p.Type))
	}
	report.DetectedPatterns = append(report.DetectedPatterns, stats.Heuristics...)
	report.Recommendations = recommendations(level, patterns)
	return report, nil
}

// recommendations renders the level-appropriate action items, plus one item
// per detected structural pattern type.
func recommendations(level domain.RiskLevel, patterns []domain.Pattern) []string {
	var recs []string
	switch level {
	case domain.RiskLevelCritical:
		recs = append(recs,
			"CRITICAL: Immediate investigation required. Consider filing SAR if not already done.",
			"Enhanced due diligence and monitoring recommended",
			"Review all recent transactions",
		)
	case domain.RiskLevelHigh:
		recs = append(recs,
			"Enhanced monitoring recommended",
			"Investigate detected transaction patterns",
		)
	case domain.RiskLevelMedium:
		recs = append(recs,
			"Review transaction activity",
			"Document findings for future reference",
		)
	}

	seen := make(map[domain.PatternType]struct{})
	for _, p := range patterns {
		if _, ok := seen[p.Type]; ok {
			continue
		}
		seen[p.Type] = struct{}{}
		switch p.Type {
		case domain.PatternStructuring:
			recs = append(recs, "Investigate potential structuring activity")
		case domain.PatternCircular:
			recs = append(recs, "Investigate circular transaction flows")
		case domain.PatternRapidMovement:
			recs = append(recs, "Investigate rapid fund movement")
		}
	}
	return recs
}
