package domain

import "time"

// RiskLevelForScore maps a [0,1] score onto a risk level.
// Thresholds: <0.3 low, <0.6 medium, <0.85 high, else critical.
func RiskLevelForScore(score float64) RiskLevel {
	switch {
	case score >= 0.85:
		return RiskLevelCritical
	case score >= 0.6:
		return RiskLevelHigh
	case score >= 0.3:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// RiskReport is the full risk analysis for one entity
type RiskReport struct {
	EntityID         string       `json:"entity_id"`
	GeneratedAt      time.Time    `json:"generated_at"`
	RiskScore        float64      `json:"risk_score"`
	RiskLevel        RiskLevel    `json:"risk_level"`
	Findings         []string     `json:"findings"`
	RelatedSARs      []SARSummary `json:"related_sars"`
	DetectedPatterns []string     `json:"detected_patterns"`
	Recommendations  []string     `json:"recommendations"`
}

// TransactionStats summarizes an entity's transaction sequence for reporting
type TransactionStats struct {
	Count         int      `json:"transaction_count"`
	TotalAmount   float64  `json:"total_amount"`
	AvgAmount     float64  `json:"avg_amount"`
	StdDevAmount  float64  `json:"std_amount"`
	TimeSpanHours float64  `json:"time_span_hours"`
	Heuristics    []string `json:"patterns,omitempty"`
}

// GraphView is the bounded subgraph payload around an entity
type GraphView struct {
	Nodes []EntitySummary `json:"nodes"`
	Edges []Edge          `json:"edges"`
}

// Stats holds system-wide counters
type Stats struct {
	TotalEntities     int `json:"total_entities"`
	TotalTransactions int `json:"total_transactions"`
	TotalSARs         int `json:"total_sars"`
	GraphNodes        int `json:"graph_nodes"`
	GraphEdges        int `json:"graph_edges"`
	HighRiskEntities  int `json:"high_risk_entities"`
}
