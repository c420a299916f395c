package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/activity-graph-service/internal/config"
	"github.com/banking/activity-graph-service/internal/detect"
	"github.com/banking/activity-graph-service/internal/domain"
	"github.com/banking/activity-graph-service/internal/graph"
	"github.com/banking/activity-graph-service/internal/pkg/logger"
)

var base = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, entityIDs ...string) (*graph.Store, *Scorer) {
	t.Helper()
	store := graph.NewStore()
	for _, id := range entityIDs {
		err := store.AddEntity(&domain.Entity{ID: id, Name: "Entity " + id, Kind: domain.EntityKindPerson})
		require.NoError(t, err)
	}
	detector := detect.NewDetector(store, config.DefaultDetection(), logger.NewNop())
	return store, NewScorer(store, detector, config.DefaultRisk(), logger.NewNop())
}

func addTx(t *testing.T, store *graph.Store, id, sender, receiver string, amount float64, ts time.Time) {
	t.Helper()
	err := store.AddTransaction(&domain.Transaction{
		ID: id, Timestamp: ts, Amount: amount, Currency: "USD",
		SenderID: sender, ReceiverID: receiver, Type: "wire",
	})
	require.NoError(t, err)
}

func addSAR(t *testing.T, store *graph.Store, id string, entities ...string) {
	t.Helper()
	err := store.AddSAR(&domain.SAR{
		ID:               id,
		FilingDate:       base,
		ActivityType:     domain.ActivityStructuring,
		EntitiesInvolved: entities,
		Narrative:        "suspicious activity",
		RiskLevel:        domain.RiskLevelHigh,
	})
	require.NoError(t, err)
}

func TestScore_IsolatedEntityIsLow(t *testing.T) {
	_, scorer := newFixture(t, "a")

	score, level, err := scorer.Score("a")
	require.NoError(t, err)
	assert.Zero(t, score)
	assert.Equal(t, domain.RiskLevelLow, level)
}

func TestScore_UnknownEntity(t *testing.T) {
	_, scorer := newFixture(t, "a")
	_, _, err := scorer.Score("ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestScore_BoundedAndMonotone(t *testing.T) {
	store, scorer := newFixture(t, "a", "b")

	before, _, err := scorer.Score("a")
	require.NoError(t, err)

	addTx(t, store, "t1", "a", "b", 200, base)
	afterTx, _, err := scorer.Score("a")
	require.NoError(t, err)
	assert.Greater(t, afterTx, before, "volume and connectivity raise the score")

	addSAR(t, store, "sar-1", "a")
	afterSAR, _, err := scorer.Score("a")
	require.NoError(t, err)
	assert.Greater(t, afterSAR, afterTx, "SAR involvement raises the score")
	assert.LessOrEqual(t, afterSAR, 1.0)
	assert.GreaterOrEqual(t, before, 0.0)
}

func TestScore_SaturationCapsFactor(t *testing.T) {
	store, scorer := newFixture(t, "a", "b")

	for i := 0; i < 8; i++ {
		addSAR(t, store, "sar-"+string(rune('0'+i)), "a")
	}
	addTx(t, store, "t1", "a", "b", 100, base)

	score, _, err := scorer.Score("a")
	require.NoError(t, err)
	// sarFactor saturates at 1.0; 8 SARs contribute no more than 5 would
	singleFactorCeiling := config.DefaultRisk().SARWeight
	assert.LessOrEqual(t, score, singleFactorCeiling+0.5, "one extreme factor cannot dominate the scale")
}

func TestRelatedSARs_IncludesNearbyEntities(t *testing.T) {
	store, scorer := newFixture(t, "a", "b", "c", "d")

	// a - b - c - d chain; SAR on c is two hops from a, SAR on d is three
	addTx(t, store, "t1", "a", "b", 100, base)
	addTx(t, store, "t2", "b", "c", 100, base)
	addTx(t, store, "t3", "c", "d", 100, base)
	addSAR(t, store, "sar-near", "c")
	addSAR(t, store, "sar-far", "d")

	related, err := scorer.RelatedSARs("a")
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "sar-near", related[0].ID)
}

func TestRescore_UpdatesEntityFields(t *testing.T) {
	store, scorer := newFixture(t, "a", "b")

	addTx(t, store, "t1", "a", "b", 400000, base)
	addSAR(t, store, "sar-1", "a")
	addSAR(t, store, "sar-2", "a")

	require.NoError(t, scorer.Rescore([]string{"a"}))

	e, err := store.GetEntity("a")
	require.NoError(t, err)
	assert.Greater(t, e.RiskScore, 0.0)
	assert.Equal(t, domain.RiskLevelForScore(e.RiskScore), e.RiskLevel)
}

func TestPropagate_BoostsNeighborsWithDecay(t *testing.T) {
	store, scorer := newFixture(t, "hub", "n1", "n2", "far", "isolated")

	// hub moves heavy volume and carries several SARs; n1 connects to far
	addTx(t, store, "t1", "hub", "n1", 300000, base)
	addTx(t, store, "t2", "hub", "n2", 300000, base.Add(time.Hour))
	addTx(t, store, "t3", "n1", "far", 50, base.Add(2*time.Hour))
	for i := 0; i < 5; i++ {
		addSAR(t, store, "sar-"+string(rune('0'+i)), "hub")
	}

	// confirm the hub seeds propagation
	hubScore, hubLevel, err := scorer.Score("hub")
	require.NoError(t, err)
	require.GreaterOrEqual(t, hubScore, 0.6)
	require.Contains(t, []domain.RiskLevel{domain.RiskLevelHigh, domain.RiskLevelCritical}, hubLevel)

	n1Base, _, err := scorer.Score("n1")
	require.NoError(t, err)
	farBase, _, err := scorer.Score("far")
	require.NoError(t, err)

	touched, err := scorer.Propagate()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, touched, 3, "depth-2 reaches n1, n2 and far")

	n1, err := store.GetEntity("n1")
	require.NoError(t, err)
	far, err := store.GetEntity("far")
	require.NoError(t, err)
	isolated, err := store.GetEntity("isolated")
	require.NoError(t, err)

	assert.Greater(t, n1.RiskScore, n1Base, "direct neighbor boosted")
	assert.Greater(t, far.RiskScore, farBase, "depth-2 neighbor boosted")
	assert.Greater(t, n1.RiskScore-n1Base, far.RiskScore-farBase, "boost decays with distance")
	assert.Zero(t, isolated.RiskScore, "disconnected entity untouched")
}

func TestPropagate_Deterministic(t *testing.T) {
	build := func() (*graph.Store, *Scorer) {
		store, scorer := newFixture(t, "hub", "n1", "n2")
		addTx(t, store, "t1", "hub", "n1", 300000, base)
		addTx(t, store, "t2", "hub", "n2", 300000, base.Add(time.Hour))
		for i := 0; i < 5; i++ {
			addSAR(t, store, "sar-"+string(rune('0'+i)), "hub")
		}
		return store, scorer
	}

	store1, scorer1 := build()
	store2, scorer2 := build()
	_, err := scorer1.Propagate()
	require.NoError(t, err)
	_, err = scorer2.Propagate()
	require.NoError(t, err)

	for _, id := range []string{"hub", "n1", "n2"} {
		e1, err := store1.GetEntity(id)
		require.NoError(t, err)
		e2, err := store2.GetEntity(id)
		require.NoError(t, err)
		assert.Equal(t, e1.RiskScore, e2.RiskScore)
	}
}

func TestAnalyze_ReportShape(t *testing.T) {
	store, scorer := newFixture(t, "a", "b")

	addTx(t, store, "t1", "a", "b", 1500, base)
	addTx(t, store, "t2", "a", "b", 2500, base.Add(time.Hour))
	addSAR(t, store, "sar-1", "a")

	report, err := scorer.Analyze("a")
	require.NoError(t, err)

	assert.Equal(t, "a", report.EntityID)
	assert.Equal(t, domain.RiskLevelForScore(report.RiskScore), report.RiskLevel)
	assert.Contains(t, report.Findings, "Connected to 1 entities")
	assert.Contains(t, report.Findings, "Involved in 1 SARs")
	assert.Contains(t, report.Findings, "Total transaction volume: $4000.00")
	require.Len(t, report.RelatedSARs, 1)
	assert.Equal(t, "sar-1", report.RelatedSARs[0].ID)
}

func TestAnalyze_UnknownEntity(t *testing.T) {
	_, scorer := newFixture(t, "a")
	_, err := scorer.Analyze("ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecommendations_ByLevel(t *testing.T) {
	critical := recommendations(domain.RiskLevelCritical, nil)
	require.NotEmpty(t, critical)
	assert.Contains(t, critical[0], "CRITICAL")

	high := recommendations(domain.RiskLevelHigh, nil)
	assert.Contains(t, high, "Enhanced monitoring recommended")

	medium := recommendations(domain.RiskLevelMedium, nil)
	assert.Contains(t, medium, "Document findings for future reference")

	low := recommendations(domain.RiskLevelLow, nil)
	assert.Empty(t, low)

	withPattern := recommendations(domain.RiskLevelLow, []domain.Pattern{
		{Type: domain.PatternStructuring},
		{Type: domain.PatternStructuring},
	})
	assert.Equal(t, []string{"Investigate potential structuring activity"}, withPattern)
}

func TestSequenceStats(t *testing.T) {
	mk := func(amounts []float64, step time.Duration) []*domain.Transaction {
		txns := make([]*domain.Transaction, len(amounts))
		for i, amt := range amounts {
			txns[i] = &domain.Transaction{
				ID: "t" + string(rune('0'+i)), Amount: amt,
				Timestamp: base.Add(time.Duration(i) * step),
			}
		}
		return txns
	}

	t.Run("empty", func(t *testing.T) {
		stats := SequenceStats(nil)
		assert.Zero(t, stats.Count)
		assert.Empty(t, stats.Heuristics)
	})

	t.Run("uniform amounts", func(t *testing.T) {
		stats := SequenceStats(mk([]float64{5000, 5000, 5010, 4990}, 48*time.Hour))
		assert.Contains(t, stats.Heuristics, "uniform_amounts")
		assert.NotContains(t, stats.Heuristics, "rapid_succession")
	})

	t.Run("rapid succession", func(t *testing.T) {
		stats := SequenceStats(mk([]float64{100, 900, 5000, 200, 7000, 333}, time.Minute))
		assert.Contains(t, stats.Heuristics, "rapid_succession")
	})

	t.Run("round numbers", func(t *testing.T) {
		stats := SequenceStats(mk([]float64{1000, 2000, 5000, 777}, 48*time.Hour))
		assert.Contains(t, stats.Heuristics, "round_numbers")
	})

	t.Run("varied slow activity flags nothing", func(t *testing.T) {
		stats := SequenceStats(mk([]float64{137, 8222, 975}, 72*time.Hour))
		assert.Empty(t, stats.Heuristics)
	})
}
