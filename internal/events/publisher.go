package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/banking/activity-graph-service/internal/config"
	"github.com/banking/activity-graph-service/internal/domain"
	"github.com/banking/activity-graph-service/internal/pkg/logger"
)

// PatternAlert is the event emitted when detection finds a pattern worth
// alerting on
type PatternAlert struct {
	AlertID              string             `json:"alert_id"`
	EntityID             string             `json:"entity_id"`
	PatternID            string             `json:"pattern_id"`
	PatternType          domain.PatternType `json:"pattern_type"`
	Confidence           float64            `json:"confidence"`
	RiskLevel            domain.RiskLevel   `json:"risk_level"`
	Description          string             `json:"description"`
	InvolvedEntities     []string           `json:"involved_entities"`
	InvolvedTransactions []string           `json:"involved_transactions"`
	DetectedAt           time.Time          `json:"detected_at"`
	EmittedAt            time.Time          `json:"emitted_at"`
}

// SARFiledEvent is the event emitted when a SAR enters the graph
type SARFiledEvent struct {
	EventID        string              `json:"event_id"`
	SARID          string              `json:"sar_id"`
	ActivityType   domain.ActivityType `json:"activity_type"`
	RiskLevel      domain.RiskLevel    `json:"risk_level"`
	EntityCount    int                 `json:"entity_count"`
	AmountInvolved float64             `json:"amount_involved"`
	FiledAt        time.Time           `json:"filed_at"`
	EmittedAt      time.Time           `json:"emitted_at"`
}

// Publisher emits pattern alerts and filing events to Kafka. A circuit
// breaker shields request latency from a struggling broker: while open,
// messages are dropped with a warning. Publishing is advisory, the graph
// write it describes is not.
type Publisher struct {
	producer    sarama.SyncProducer
	breaker     *gobreaker.CircuitBreaker
	alertsTopic string
	eventsTopic string
	floor       float64
	log         *logger.Logger
}

// NewPublisher connects a sync producer to the configured brokers
func NewPublisher(cfg config.KafkaConfig, log *logger.Logger) (*Publisher, error) {
	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForLocal
	sc.Producer.Retry.Max = 3
	sc.Producer.Compression = sarama.CompressionSnappy

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "kafka-alerts",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Publisher{
		producer:    producer,
		breaker:     breaker,
		alertsTopic: cfg.AlertsTopic,
		eventsTopic: cfg.EventsTopic,
		floor:       cfg.AlertConfidenceFloor,
		log:         log.Named("alert_publisher"),
	}, nil
}

// PublishPatterns emits one alert per pattern at or above the confidence
// floor. Keyed by entity id so one entity's alerts stay ordered.
func (p *Publisher) PublishPatterns(ctx context.Context, entityID string, patterns []domain.Pattern) {
	now := time.Now().UTC()
	for _, pattern := range patterns {
		if pattern.Confidence < p.floor {
			continue
		}

		alert := PatternAlert{
			AlertID:              uuid.New().String(),
			EntityID:             entityID,
			PatternID:            pattern.ID,
			PatternType:          pattern.Type,
			Confidence:           pattern.Confidence,
			RiskLevel:            pattern.RiskLevel,
			Description:          pattern.Description,
			InvolvedEntities:     pattern.InvolvedEntities,
			InvolvedTransactions: pattern.InvolvedTransactions,
			DetectedAt:           pattern.DetectedAt,
			EmittedAt:            now,
		}
		payload, err := json.Marshal(alert)
		if err != nil {
			p.log.Error("alert encode failed", logger.ErrorField(err))
			continue
		}

		if err := p.send(p.alertsTopic, entityID, payload); err != nil {
			p.log.Warn("alert dropped",
				logger.StringField("entity_id", entityID),
				logger.StringField("pattern_type", string(pattern.Type)),
				logger.ErrorField(err),
			)
			continue
		}
		p.log.AlertPublished(p.alertsTopic, entityID, string(pattern.Type))
	}
}

// PublishSARFiled emits a filing event to the events topic
func (p *Publisher) PublishSARFiled(ctx context.Context, sar *domain.SAR) {
	event := SARFiledEvent{
		EventID:        uuid.New().String(),
		SARID:          sar.ID,
		ActivityType:   sar.ActivityType,
		RiskLevel:      sar.RiskLevel,
		EntityCount:    len(sar.EntitiesInvolved),
		AmountInvolved: sar.AmountInvolved,
		FiledAt:        sar.FilingDate,
		EmittedAt:      time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Error("event encode failed", logger.ErrorField(err))
		return
	}
	if err := p.send(p.eventsTopic, sar.ID, payload); err != nil {
		p.log.Warn("filing event dropped",
			logger.StringField("sar_id", sar.ID),
			logger.ErrorField(err),
		)
	}
}

func (p *Publisher) send(topic, key string, payload []byte) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		_, _, sendErr := p.producer.SendMessage(&sarama.ProducerMessage{
			Topic: topic,
			Key:   sarama.StringEncoder(key),
			Value: sarama.ByteEncoder(payload),
		})
		return nil, sendErr
	})
	return err
}

// Close shuts down the producer
func (p *Publisher) Close() error {
	return p.producer.Close()
}
