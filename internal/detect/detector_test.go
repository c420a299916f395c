package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/activity-graph-service/internal/config"
	"github.com/banking/activity-graph-service/internal/domain"
	"github.com/banking/activity-graph-service/internal/graph"
	"github.com/banking/activity-graph-service/internal/pkg/logger"
)

var anchor = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, entityIDs ...string) (*graph.Store, *Detector) {
	t.Helper()
	store := graph.NewStore()
	for _, id := range entityIDs {
		err := store.AddEntity(&domain.Entity{ID: id, Name: "Entity " + id, Kind: domain.EntityKindPerson})
		require.NoError(t, err)
	}
	return store, NewDetector(store, config.DefaultDetection(), logger.NewNop())
}

func addTx(t *testing.T, store *graph.Store, id, sender, receiver string, amount float64, ts time.Time) {
	t.Helper()
	err := store.AddTransaction(&domain.Transaction{
		ID:         id,
		Timestamp:  ts,
		Amount:     amount,
		Currency:   "USD",
		SenderID:   sender,
		ReceiverID: receiver,
		Type:       "wire",
	})
	require.NoError(t, err)
}

func patternsOfType(patterns []domain.Pattern, pt domain.PatternType) []domain.Pattern {
	var out []domain.Pattern
	for _, p := range patterns {
		if p.Type == pt {
			out = append(out, p)
		}
	}
	return out
}

func TestDetectAll_UnknownEntity(t *testing.T) {
	_, d := newFixture(t, "a")
	_, err := d.DetectAll("ghost", anchor)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDetectAll_NoTransactions(t *testing.T) {
	_, d := newFixture(t, "a")
	patterns, err := d.DetectAll("a", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, patterns)
}

func TestStructuring_Detected(t *testing.T) {
	store, d := newFixture(t, "a", "b")

	// 5 outgoing transactions of $9,500 inside two days
	for i := 0; i < 5; i++ {
		addTx(t, store, "t"+string(rune('0'+i)), "a", "b", 9500, anchor.Add(-time.Duration(i*10)*time.Hour))
	}

	patterns, err := d.DetectAll("a", anchor)
	require.NoError(t, err)

	structuring := patternsOfType(patterns, domain.PatternStructuring)
	require.Len(t, structuring, 1)

	p := structuring[0]
	assert.InDelta(t, 0.75, p.Confidence, 1e-9) // 0.5 + 0.05*5
	assert.Equal(t, domain.RiskLevelHigh, p.RiskLevel, "total $47,500 exceeds the high-risk total")
	assert.Len(t, p.InvolvedTransactions, 5)
	assert.Equal(t, []string{"a"}, p.InvolvedEntities)
}

func TestStructuring_BoundaryAmounts(t *testing.T) {
	store, d := newFixture(t, "a", "b")

	addTx(t, store, "in-band-1", "a", "b", 5000, anchor.Add(-time.Hour))     // exactly low bound, included
	addTx(t, store, "in-band-2", "a", "b", 9999.99, anchor.Add(-2*time.Hour))
	addTx(t, store, "in-band-3", "a", "b", 7000, anchor.Add(-3*time.Hour))
	addTx(t, store, "at-threshold", "a", "b", 10000, anchor.Add(-4*time.Hour)) // excluded
	addTx(t, store, "below-band", "a", "b", 4999, anchor.Add(-5*time.Hour))    // excluded
	addTx(t, store, "incoming", "b", "a", 9500, anchor.Add(-6*time.Hour))      // incoming, excluded

	patterns, err := d.DetectAll("a", anchor)
	require.NoError(t, err)

	structuring := patternsOfType(patterns, domain.PatternStructuring)
	require.Len(t, structuring, 1)
	assert.ElementsMatch(t, []string{"in-band-1", "in-band-2", "in-band-3"}, structuring[0].InvolvedTransactions)
	assert.Equal(t, domain.RiskLevelMedium, structuring[0].RiskLevel)
}

func TestStructuring_BelowMinOccurrences(t *testing.T) {
	store, d := newFixture(t, "a", "b")

	addTx(t, store, "t1", "a", "b", 9500, anchor.Add(-time.Hour))
	addTx(t, store, "t2", "a", "b", 9500, anchor.Add(-2*time.Hour))

	patterns, err := d.DetectAll("a", anchor)
	require.NoError(t, err)
	assert.Empty(t, patternsOfType(patterns, domain.PatternStructuring))
}

func TestStructuring_WindowExcludesOldActivity(t *testing.T) {
	store, d := newFixture(t, "a", "b")

	addTx(t, store, "t1", "a", "b", 9500, anchor.Add(-time.Hour))
	addTx(t, store, "t2", "a", "b", 9500, anchor.Add(-2*time.Hour))
	addTx(t, store, "old", "a", "b", 9500, anchor.Add(-10*24*time.Hour))

	patterns, err := d.DetectAll("a", anchor)
	require.NoError(t, err)
	assert.Empty(t, patternsOfType(patterns, domain.PatternStructuring))
}

func TestCircular_Triangle(t *testing.T) {
	store, d := newFixture(t, "a", "b", "c")

	addTx(t, store, "t1", "a", "b", 10000, anchor.Add(-3*time.Hour))
	addTx(t, store, "t2", "b", "c", 9800, anchor.Add(-2*time.Hour))
	addTx(t, store, "t3", "c", "a", 9600, anchor.Add(-time.Hour))

	// every member of the cycle reports it
	for _, member := range []string{"a", "b", "c"} {
		patterns, err := d.DetectAll(member, anchor)
		require.NoError(t, err)

		circular := patternsOfType(patterns, domain.PatternCircular)
		require.Len(t, circular, 1, "entity %s", member)

		p := circular[0]
		// 0.4 + 0.1*3 hops + 0.15 conservation bonus (spread within 10%)
		assert.InDelta(t, 0.85, p.Confidence, 1e-9)
		assert.Equal(t, domain.RiskLevelCritical, p.RiskLevel)
		assert.Equal(t, []string{"a", "b", "c"}, p.InvolvedEntities)
		assert.ElementsMatch(t, []string{"t1", "t2", "t3"}, p.InvolvedTransactions)
	}
}

func TestCircular_NoConservationBonus(t *testing.T) {
	store, d := newFixture(t, "a", "b", "c")

	addTx(t, store, "t1", "a", "b", 10000, anchor.Add(-3*time.Hour))
	addTx(t, store, "t2", "b", "c", 5000, anchor.Add(-2*time.Hour))
	addTx(t, store, "t3", "c", "a", 2000, anchor.Add(-time.Hour))

	patterns, err := d.DetectAll("a", anchor)
	require.NoError(t, err)

	circular := patternsOfType(patterns, domain.PatternCircular)
	require.Len(t, circular, 1)
	assert.InDelta(t, 0.7, circular[0].Confidence, 1e-9)
	assert.Equal(t, domain.RiskLevelHigh, circular[0].RiskLevel)
}

func TestCircular_TwoNodeLoopTooShort(t *testing.T) {
	store, d := newFixture(t, "a", "b")

	addTx(t, store, "t1", "a", "b", 1000, anchor.Add(-2*time.Hour))
	addTx(t, store, "t2", "b", "a", 1000, anchor.Add(-time.Hour))

	patterns, err := d.DetectAll("a", anchor)
	require.NoError(t, err)
	assert.Empty(t, patternsOfType(patterns, domain.PatternCircular))
}

func TestCircular_HopLimit(t *testing.T) {
	// a -> b -> c -> d -> e -> a is 5 hops, above the limit of 4
	store, d := newFixture(t, "a", "b", "c", "d", "e")

	addTx(t, store, "t1", "a", "b", 1000, anchor.Add(-5*time.Hour))
	addTx(t, store, "t2", "b", "c", 1000, anchor.Add(-4*time.Hour))
	addTx(t, store, "t3", "c", "d", 1000, anchor.Add(-3*time.Hour))
	addTx(t, store, "t4", "d", "e", 1000, anchor.Add(-2*time.Hour))
	addTx(t, store, "t5", "e", "a", 1000, anchor.Add(-time.Hour))

	patterns, err := d.DetectAll("a", anchor)
	require.NoError(t, err)
	assert.Empty(t, patternsOfType(patterns, domain.PatternCircular))
}

func TestCircular_LookbackExcludesStaleEdges(t *testing.T) {
	store, d := newFixture(t, "a", "b", "c")

	addTx(t, store, "t1", "a", "b", 1000, anchor.Add(-2*time.Hour))
	addTx(t, store, "t2", "b", "c", 1000, anchor.Add(-time.Hour))
	addTx(t, store, "stale", "c", "a", 1000, anchor.Add(-40*24*time.Hour))

	patterns, err := d.DetectAll("a", anchor)
	require.NoError(t, err)
	assert.Empty(t, patternsOfType(patterns, domain.PatternCircular))
}

func TestRapidMovement_SingleWindow(t *testing.T) {
	store, d := newFixture(t, "a", "b")

	// 6 transactions, $25,200 total, inside one hour
	for i := 0; i < 6; i++ {
		addTx(t, store, "t"+string(rune('0'+i)), "a", "b", 4200, anchor.Add(-time.Duration(i*10)*time.Minute))
	}

	patterns, err := d.DetectAll("a", anchor)
	require.NoError(t, err)

	rapid := patternsOfType(patterns, domain.PatternRapidMovement)
	require.Len(t, rapid, 1, "sub-windows of one qualifying burst must not duplicate")

	p := rapid[0]
	assert.InDelta(t, 0.6, p.Confidence, 1e-9) // 0.3 + 0.05*6
	assert.Equal(t, domain.RiskLevelMedium, p.RiskLevel)
	assert.Len(t, p.InvolvedTransactions, 6)
}

func TestRapidMovement_CountsBothDirections(t *testing.T) {
	store, d := newFixture(t, "a", "b")

	for i := 0; i < 3; i++ {
		addTx(t, store, "out"+string(rune('0'+i)), "a", "b", 4200, anchor.Add(-time.Duration(i*10)*time.Minute))
		addTx(t, store, "in"+string(rune('0'+i)), "b", "a", 4200, anchor.Add(-time.Duration(i*10+5)*time.Minute))
	}

	patterns, err := d.DetectAll("a", anchor)
	require.NoError(t, err)
	assert.Len(t, patternsOfType(patterns, domain.PatternRapidMovement), 1)
}

func TestRapidMovement_BelowVolumeFloor(t *testing.T) {
	store, d := newFixture(t, "a", "b")

	for i := 0; i < 6; i++ {
		addTx(t, store, "t"+string(rune('0'+i)), "a", "b", 100, anchor.Add(-time.Duration(i)*time.Minute))
	}

	patterns, err := d.DetectAll("a", anchor)
	require.NoError(t, err)
	assert.Empty(t, patternsOfType(patterns, domain.PatternRapidMovement))
}

func TestDetectAll_DeterministicIDs(t *testing.T) {
	store, d := newFixture(t, "a", "b")
	for i := 0; i < 5; i++ {
		addTx(t, store, "t"+string(rune('0'+i)), "a", "b", 9500, anchor.Add(-time.Duration(i)*time.Hour))
	}

	first, err := d.DetectAll("a", anchor)
	require.NoError(t, err)
	second, err := d.DetectAll("a", anchor)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestDetectAll_ZeroAsOfAnchorsAtLatest(t *testing.T) {
	store, d := newFixture(t, "a", "b")

	old := anchor.Add(-60 * 24 * time.Hour)
	for i := 0; i < 5; i++ {
		addTx(t, store, "t"+string(rune('0'+i)), "a", "b", 9500, old.Add(-time.Duration(i)*time.Hour))
	}

	// Anchored at now the activity is ancient; anchored at the latest
	// transaction it is squarely inside the window.
	patterns, err := d.DetectAll("a", time.Time{})
	require.NoError(t, err)
	assert.Len(t, patternsOfType(patterns, domain.PatternStructuring), 1)
}
