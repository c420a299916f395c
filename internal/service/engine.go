package service

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/banking/activity-graph-service/internal/config"
	"github.com/banking/activity-graph-service/internal/detect"
	"github.com/banking/activity-graph-service/internal/domain"
	"github.com/banking/activity-graph-service/internal/graph"
	"github.com/banking/activity-graph-service/internal/narrative"
	"github.com/banking/activity-graph-service/internal/pkg/logger"
	"github.com/banking/activity-graph-service/internal/risk"
)

// AlertSink receives detected patterns and filing events for publication.
// Implementations decide which patterns clear the alerting bar.
type AlertSink interface {
	PublishPatterns(ctx context.Context, entityID string, patterns []domain.Pattern)
	PublishSARFiled(ctx context.Context, sar *domain.SAR)
}

// ReportCache caches generated risk reports between graph writes
type ReportCache interface {
	GetReport(ctx context.Context, entityID string) (*domain.RiskReport, bool)
	SetReport(ctx context.Context, report *domain.RiskReport)
	Invalidate(ctx context.Context, entityIDs ...string)
	InvalidateAll(ctx context.Context)
}

// Engine is the façade over the activity graph. A single RWMutex guards the
// graph store and the narrative index together so that SAR ingestion, which
// touches both, is atomic: no reader ever observes a SAR in the graph whose
// narrative is not yet queryable, or the reverse. All detection and scoring
// runs under the read lock; all mutation under the write lock.
type Engine struct {
	mu sync.RWMutex

	store      *graph.Store
	index      *narrative.Index
	classifier *narrative.Classifier
	detector   *detect.Detector
	scorer     *risk.Scorer

	simCfg config.SimilarityConfig
	log    *logger.Logger
	tracer trace.Tracer

	alerts AlertSink
	cache  ReportCache
}

// Option configures optional engine collaborators
type Option func(*Engine)

// WithAlertSink attaches a pattern alert publisher
func WithAlertSink(sink AlertSink) Option {
	return func(e *Engine) { e.alerts = sink }
}

// WithReportCache attaches a risk-report cache
func WithReportCache(cache ReportCache) Option {
	return func(e *Engine) { e.cache = cache }
}

// NewEngine builds the engine and its internal components
func NewEngine(detection config.DetectionConfig, riskCfg config.RiskConfig, simCfg config.SimilarityConfig, log *logger.Logger, opts ...Option) *Engine {
	store := graph.NewStore()
	detector := detect.NewDetector(store, detection, log)
	e := &Engine{
		store:      store,
		index:      narrative.NewIndex(narrative.NewTermFrequencyVectorizer()),
		classifier: narrative.NewClassifier(),
		detector:   detector,
		scorer:     risk.NewScorer(store, detector, riskCfg, log),
		simCfg:     simCfg,
		log:        log.Named("engine"),
		tracer:     otel.Tracer("activity-graph/engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddEntity registers an entity node
func (e *Engine) AddEntity(ctx context.Context, entity *domain.Entity) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.AddEntity(entity); err != nil {
		return err
	}
	e.log.EntityAdded(entity.ID, string(entity.Kind))
	return nil
}

// AddTransaction records a directed transaction edge. Cached reports for both
// endpoints go stale and are invalidated.
func (e *Engine) AddTransaction(ctx context.Context, tx *domain.Transaction) error {
	e.mu.Lock()
	if err := e.store.AddTransaction(tx); err != nil {
		e.mu.Unlock()
		return err
	}
	e.log.TransactionAdded(tx.ID, tx.SenderID, tx.ReceiverID, tx.Amount)
	e.mu.Unlock()

	if e.cache != nil {
		e.cache.Invalidate(ctx, tx.SenderID, tx.ReceiverID)
	}
	return nil
}

// AddSAR files a suspicious activity report. Under one write lock the SAR is
// validated into the graph, its narrative indexed, the involved entities
// rescored and risk propagated outward. The one-shot narrative classification
// is returned to the caller and not stored.
func (e *Engine) AddSAR(ctx context.Context, sar *domain.SAR) (*domain.NarrativeAnalysis, error) {
	ctx, span := e.tracer.Start(ctx, "engine.AddSAR",
		trace.WithAttributes(attribute.String("sar.id", sar.ID)))
	defer span.End()

	e.mu.Lock()
	if err := e.store.AddSAR(sar); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.index.Add(sar.ID, sar.Narrative)

	if err := e.scorer.Rescore(sar.EntitiesInvolved); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if _, err := e.scorer.Propagate(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	analysis := e.classifier.Classify(sar.ID, sar.Narrative)
	e.log.SARFiled(sar.ID, len(sar.EntitiesInvolved), string(sar.ActivityType))
	e.mu.Unlock()

	// Propagation can shift any entity's score
	if e.cache != nil {
		e.cache.InvalidateAll(ctx)
	}
	if e.alerts != nil {
		e.alerts.PublishSARFiled(ctx, sar)
	}
	return &analysis, nil
}

// DetectPatterns runs all pattern checks for an entity. Detected patterns are
// handed to the alert sink, if any, after the read lock is released.
func (e *Engine) DetectPatterns(ctx context.Context, entityID string, asOf time.Time) ([]domain.Pattern, error) {
	ctx, span := e.tracer.Start(ctx, "engine.DetectPatterns",
		trace.WithAttributes(attribute.String("entity.id", entityID)))
	defer span.End()

	e.mu.RLock()
	patterns, err := e.detector.DetectAll(entityID, asOf)
	e.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	if e.alerts != nil && len(patterns) > 0 {
		e.alerts.PublishPatterns(ctx, entityID, patterns)
	}
	return patterns, nil
}

// RiskAnalysis generates the risk report for an entity, serving from cache
// when a fresh copy exists.
func (e *Engine) RiskAnalysis(ctx context.Context, entityID string) (*domain.RiskReport, error) {
	ctx, span := e.tracer.Start(ctx, "engine.RiskAnalysis",
		trace.WithAttributes(attribute.String("entity.id", entityID)))
	defer span.End()

	if e.cache != nil {
		if report, ok := e.cache.GetReport(ctx, entityID); ok {
			return report, nil
		}
	}

	e.mu.RLock()
	report, err := e.scorer.Analyze(entityID)
	e.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		e.cache.SetReport(ctx, report)
	}
	return report, nil
}

// GraphView extracts the bounded neighborhood around an entity
func (e *Engine) GraphView(ctx context.Context, entityID string, depth int) (*domain.GraphView, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Subgraph(entityID, depth)
}

// SimilarSARs ranks other SARs by narrative similarity. A negative threshold
// selects the configured default. Narratives in results are truncated to the
// configured preview length.
func (e *Engine) SimilarSARs(ctx context.Context, sarID string, threshold float64) ([]domain.SimilarSAR, error) {
	if threshold < 0 {
		threshold = e.simCfg.DefaultThreshold
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	matches, err := e.index.SimilarTo(sarID, threshold, func(id string) time.Time {
		sar, err := e.store.GetSAR(id)
		if err != nil {
			return time.Time{}
		}
		return sar.FilingDate
	})
	if err != nil {
		return nil, err
	}

	results := make([]domain.SimilarSAR, 0, len(matches))
	for _, m := range matches {
		sar, err := e.store.GetSAR(m.SARID)
		if err != nil {
			return nil, err
		}
		results = append(results, domain.SimilarSAR{
			ID:           sar.ID,
			Similarity:   m.Similarity,
			ActivityType: sar.ActivityType,
			RiskLevel:    sar.RiskLevel,
			Narrative:    preview(sar.Narrative, e.simCfg.NarrativePreview),
		})
	}
	return results, nil
}

// Entity returns a stored entity
func (e *Engine) Entity(ctx context.Context, entityID string) (*domain.Entity, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.GetEntity(entityID)
}

// Stats returns system-wide counters
func (e *Engine) Stats(ctx context.Context) domain.Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Stats()
}

// Rebuild replays a persisted snapshot into the empty graph under a single
// write lock, then runs one propagation sweep. Used at startup only.
func (e *Engine) Rebuild(ctx context.Context, entities []*domain.Entity, txns []*domain.Transaction, sars []*domain.SAR) error {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, entity := range entities {
		if err := e.store.AddEntity(entity); err != nil {
			return err
		}
	}
	for _, tx := range txns {
		if err := e.store.AddTransaction(tx); err != nil {
			return err
		}
	}
	for _, sar := range sars {
		if err := e.store.AddSAR(sar); err != nil {
			return err
		}
		e.index.Add(sar.ID, sar.Narrative)
	}
	if _, err := e.scorer.Propagate(); err != nil {
		return err
	}

	e.log.GraphRebuilt(len(entities), len(txns), len(sars), time.Since(start))
	return nil
}

// preview truncates a narrative to at most n runes
func preview(text string, n int) string {
	if n <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
