package narrative

import (
	"strings"

	"github.com/banking/activity-graph-service/internal/domain"
)

// Classifier performs the one-shot keyword classification of a SAR narrative
// returned to the caller at filing time. It scores the narrative against a
// fixed set of activity categories and extracts risk indicators.
type Classifier struct{}

// NewClassifier creates a classifier
func NewClassifier() *Classifier {
	return &Classifier{}
}

// category keyword sets, scored as matched-keyword fraction. Order matters:
// the first category with the top score wins as primary.
var categories = []struct {
	name     string
	keywords []string
}{
	{"structuring", []string{"multiple", "transactions", "below", "threshold", "avoid"}},
	{"money_laundering", []string{"layering", "placement", "integration", "wash"}},
	{"fraud", []string{"false", "fake", "deception", "misrepresentation"}},
	{"terrorist_financing", []string{"terrorism", "extremist", "funding"}},
	{"unusual_transaction", []string{"unusual", "abnormal", "irregular", "suspicious"}},
}

// risk indicator keyword sets; an indicator fires on any keyword hit
var riskIndicators = []struct {
	name     string
	keywords []string
}{
	{"high_value", []string{"large amount", "significant sum", "million", "thousands"}},
	{"cross_border", []string{"international", "foreign", "overseas", "cross-border"}},
	{"shell_company", []string{"shell company", "front", "nominee"}},
	{"cash_intensive", []string{"cash", "currency", "physical money"}},
	{"rapid_movement", []string{"rapid", "quick", "immediate", "frequent"}},
	{"anonymous", []string{"anonymous", "unknown", "unidentified"}},
}

// Classify scores the narrative and returns the primary pattern, its
// confidence, any lower-scoring secondary patterns, and risk indicators.
// A narrative matching nothing classifies as "unknown" with confidence 0.
func (c *Classifier) Classify(sarID, narrative string) domain.NarrativeAnalysis {
	text := strings.ToLower(narrative)

	scores := make([]float64, len(categories))
	for i, cat := range categories {
		hits := 0
		for _, kw := range cat.keywords {
			if strings.Contains(text, kw) {
				hits++
			}
		}
		scores[i] = float64(hits) / float64(len(cat.keywords))
	}

	maxIdx := 0
	for i, s := range scores {
		if s > scores[maxIdx] {
			maxIdx = i
		}
	}

	analysis := domain.NarrativeAnalysis{
		SARID:             sarID,
		PrimaryPattern:    "unknown",
		SecondaryPatterns: []string{},
		RiskIndicators:    []string{},
	}
	if scores[maxIdx] > 0 {
		analysis.PrimaryPattern = categories[maxIdx].name
		analysis.Confidence = scores[maxIdx]
		for i, s := range scores {
			if s > 0 && s < scores[maxIdx] {
				analysis.SecondaryPatterns = append(analysis.SecondaryPatterns, categories[i].name)
			}
		}
	}

	for _, ind := range riskIndicators {
		for _, kw := range ind.keywords {
			if strings.Contains(text, kw) {
				analysis.RiskIndicators = append(analysis.RiskIndicators, ind.name)
				break
			}
		}
	}
	return analysis
}
