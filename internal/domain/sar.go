package domain

import "time"

// ActivityType categorizes the suspicious activity described by a SAR
type ActivityType string

const (
	ActivityStructuring          ActivityType = "structuring"
	ActivityMoneyLaundering      ActivityType = "money_laundering"
	ActivityFraud                ActivityType = "fraud"
	ActivityTerroristFinancing   ActivityType = "terrorist_financing"
	ActivityUnusualTransaction   ActivityType = "unusual_transaction"
	ActivityMultipleAccounts     ActivityType = "multiple_accounts"
	ActivityHighRiskJurisdiction ActivityType = "high_risk_jurisdiction"
)

// SAR is a Suspicious Activity Report filed against one or more entities.
// Immutable once filed. Every referenced entity and transaction must exist
// in the graph at filing time.
type SAR struct {
	ID                   string       `json:"sar_id"`
	FilingDate           time.Time    `json:"filing_date"`
	ActivityType         ActivityType `json:"activity_type"`
	EntitiesInvolved     []string     `json:"entities_involved"`
	TransactionsInvolved []string     `json:"transactions_involved"`
	Narrative            string       `json:"narrative"`
	RiskLevel            RiskLevel    `json:"risk_level"`
	AmountInvolved       float64      `json:"amount_involved"`
	TimePeriodStart      time.Time    `json:"time_period_start"`
	TimePeriodEnd        time.Time    `json:"time_period_end"`
	Metadata             Metadata     `json:"metadata,omitempty"`
}

// Involves returns true if the SAR names the entity
func (s *SAR) Involves(entityID string) bool {
	for _, id := range s.EntitiesInvolved {
		if id == entityID {
			return true
		}
	}
	return false
}

// SARSummary is a lean DTO for related-SAR listings in risk reports
type SARSummary struct {
	ID           string       `json:"sar_id"`
	ActivityType ActivityType `json:"activity_type"`
	RiskLevel    RiskLevel    `json:"risk_level"`
}

// ToSummary converts SAR to SARSummary
func (s *SAR) ToSummary() SARSummary {
	return SARSummary{ID: s.ID, ActivityType: s.ActivityType, RiskLevel: s.RiskLevel}
}

// NarrativeAnalysis is the one-shot classification returned when a SAR is
// filed. It is computed from the narrative text at ingest and handed back to
// the caller; it is not stored as a detection run.
type NarrativeAnalysis struct {
	SARID             string   `json:"sar_id"`
	PrimaryPattern    string   `json:"primary_pattern"`
	Confidence        float64  `json:"confidence"`
	SecondaryPatterns []string `json:"secondary_patterns"`
	RiskIndicators    []string `json:"risk_indicators"`
}

// SimilarSAR is one ranked result of a narrative similarity query
type SimilarSAR struct {
	ID           string       `json:"sar_id"`
	Similarity   float64      `json:"similarity"`
	ActivityType ActivityType `json:"activity_type"`
	RiskLevel    RiskLevel    `json:"risk_level"`
	Narrative    string       `json:"narrative"`
}
