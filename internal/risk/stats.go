package risk

import (
	"math"

	"github.com/banking/activity-graph-service/internal/domain"
)

// SequenceStats summarizes a chronologically sorted transaction slice and
// flags simple sequence heuristics: near-uniform amounts, rapid succession
// and a high share of round-number amounts.
func SequenceStats(txns []*domain.Transaction) domain.TransactionStats {
	stats := domain.TransactionStats{Count: len(txns)}
	if len(txns) == 0 {
		return stats
	}

	for _, t := range txns {
		stats.TotalAmount += t.Amount
	}
	stats.AvgAmount = stats.TotalAmount / float64(len(txns))

	var variance float64
	for _, t := range txns {
		d := t.Amount - stats.AvgAmount
		variance += d * d
	}
	stats.StdDevAmount = math.Sqrt(variance / float64(len(txns)))

	span := txns[len(txns)-1].Timestamp.Sub(txns[0].Timestamp)
	stats.TimeSpanHours = span.Hours()

	if len(txns) >= 2 && stats.StdDevAmount < stats.AvgAmount*0.1 {
		stats.Heuristics = append(stats.Heuristics, "uniform_amounts")
	}
	if len(txns) > 5 && stats.TimeSpanHours < 24 {
		stats.Heuristics = append(stats.Heuristics, "rapid_succession")
	}
	round := 0
	for _, t := range txns {
		if math.Mod(t.Amount, 1000) == 0 {
			round++
		}
	}
	if len(txns) >= 2 && float64(round)/float64(len(txns)) > 0.7 {
		stats.Heuristics = append(stats.Heuristics, "round_numbers")
	}
	return stats
}
