package domain

import (
	"time"

	"github.com/google/uuid"
)

// PatternType represents types of suspicious structural patterns
type PatternType string

const (
	PatternStructuring   PatternType = "structuring"
	PatternCircular      PatternType = "circular_transaction"
	PatternRapidMovement PatternType = "rapid_movement"
)

// patternNamespace seeds deterministic pattern ids so that re-running
// detection over the same state yields the same ids.
var patternNamespace = uuid.MustParse("7b1ec2c4-9a6f-4d1a-8e49-3f5a0c9d2b11")

// Pattern is a detected suspicious pattern. Patterns are ephemeral: they are
// computed on demand and never persisted as authoritative state.
type Pattern struct {
	ID                   string      `json:"pattern_id"`
	Type                 PatternType `json:"type"`
	Confidence           float64     `json:"confidence"` // 0.0 - 1.0
	RiskLevel            RiskLevel   `json:"risk_level"`
	Description          string      `json:"description"`
	InvolvedEntities     []string    `json:"involved_entities"`
	InvolvedTransactions []string    `json:"involved_transactions"`
	DetectedAt           time.Time   `json:"detected_at"`
}

// PatternID derives a deterministic pattern id from the pattern type, the
// queried entity and the detection anchor time.
func PatternID(patternType PatternType, entityID string, anchor time.Time) string {
	key := string(patternType) + "|" + entityID + "|" + anchor.UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(patternNamespace, []byte(key)).String()
}
