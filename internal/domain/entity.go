package domain

// EntityKind represents the kind of entity in the transaction graph
type EntityKind string

const (
	EntityKindPerson       EntityKind = "person"
	EntityKindOrganization EntityKind = "organization"
)

// RiskLevel represents the risk severity
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// Entity represents a person or organization participating in transactions.
// The registry is append-only: entities are never deleted, and the risk
// fields are derived state owned by the risk scorer.
type Entity struct {
	ID          string            `json:"entity_id"`
	Name        string            `json:"name"`
	Kind        EntityKind        `json:"entity_type"`
	Identifiers map[string]string `json:"identifiers,omitempty"`
	RiskScore   float64           `json:"risk_score"` // 0.0 - 1.0
	RiskLevel   RiskLevel         `json:"risk_level"`
	Metadata    Metadata          `json:"metadata,omitempty"`
}

// IsHighRisk returns true if the entity warrants elevated scrutiny
func (e *Entity) IsHighRisk() bool {
	return e.RiskLevel == RiskLevelHigh || e.RiskLevel == RiskLevelCritical
}

// EntitySummary is a lean DTO for graph visualization payloads
type EntitySummary struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Kind      EntityKind `json:"type"`
	RiskScore float64    `json:"risk_score"`
}

// ToSummary converts Entity to EntitySummary
func (e *Entity) ToSummary() EntitySummary {
	return EntitySummary{
		ID:        e.ID,
		Name:      e.Name,
		Kind:      e.Kind,
		RiskScore: e.RiskScore,
	}
}
