package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/banking/activity-graph-service/internal/config"
	"github.com/banking/activity-graph-service/internal/domain"
	"github.com/banking/activity-graph-service/internal/pkg/logger"
)

// Loader reads a persisted graph snapshot for replay at startup. The graph
// itself lives in memory; Postgres is a cold store written by an upstream
// ingestion pipeline, so this service only ever reads it.
type Loader struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// New connects a pool to the snapshot database
func New(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*Loader, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &Loader{pool: pool, log: log.Named("snapshot_loader")}, nil
}

// Snapshot is a full graph state ordered for replay: every transaction
// endpoint appears in Entities, every SAR reference in the earlier slices.
type Snapshot struct {
	Entities     []*domain.Entity
	Transactions []*domain.Transaction
	SARs         []*domain.SAR
}

// Load reads the whole snapshot
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	entities, err := l.loadEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}
	txns, err := l.loadTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	sars, err := l.loadSARs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sars: %w", err)
	}
	return &Snapshot{Entities: entities, Transactions: txns, SARs: sars}, nil
}

func (l *Loader) loadEntities(ctx context.Context) ([]*domain.Entity, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT entity_id, name, entity_type, identifiers, risk_score, risk_level, metadata
		FROM entities
		ORDER BY entity_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []*domain.Entity
	for rows.Next() {
		var (
			e           domain.Entity
			identifiers []byte
			metadata    []byte
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Kind, &identifiers, &e.RiskScore, &e.RiskLevel, &metadata); err != nil {
			return nil, err
		}
		if len(identifiers) > 0 {
			if err := json.Unmarshal(identifiers, &e.Identifiers); err != nil {
				return nil, fmt.Errorf("entity %s identifiers: %w", e.ID, err)
			}
		}
		if err := unmarshalMetadata(metadata, &e.Metadata); err != nil {
			return nil, fmt.Errorf("entity %s metadata: %w", e.ID, err)
		}
		entities = append(entities, &e)
	}
	return entities, rows.Err()
}

func (l *Loader) loadTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT transaction_id, timestamp, amount, currency, sender_id, receiver_id,
		       transaction_type, description, location, metadata
		FROM transactions
		ORDER BY timestamp, transaction_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []*domain.Transaction
	for rows.Next() {
		var (
			t        domain.Transaction
			metadata []byte
		)
		if err := rows.Scan(&t.ID, &t.Timestamp, &t.Amount, &t.Currency, &t.SenderID,
			&t.ReceiverID, &t.Type, &t.Description, &t.Location, &metadata); err != nil {
			return nil, err
		}
		if err := unmarshalMetadata(metadata, &t.Metadata); err != nil {
			return nil, fmt.Errorf("transaction %s metadata: %w", t.ID, err)
		}
		txns = append(txns, &t)
	}
	return txns, rows.Err()
}

func (l *Loader) loadSARs(ctx context.Context) ([]*domain.SAR, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT sar_id, filing_date, activity_type, entities_involved, transactions_involved,
		       narrative, risk_level, amount_involved, time_period_start, time_period_end, metadata
		FROM sars
		ORDER BY filing_date, sar_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sars []*domain.SAR
	for rows.Next() {
		var (
			s        domain.SAR
			metadata []byte
		)
		if err := rows.Scan(&s.ID, &s.FilingDate, &s.ActivityType, &s.EntitiesInvolved,
			&s.TransactionsInvolved, &s.Narrative, &s.RiskLevel, &s.AmountInvolved,
			&s.TimePeriodStart, &s.TimePeriodEnd, &metadata); err != nil {
			return nil, err
		}
		if err := unmarshalMetadata(metadata, &s.Metadata); err != nil {
			return nil, fmt.Errorf("sar %s metadata: %w", s.ID, err)
		}
		sars = append(sars, &s)
	}
	return sars, rows.Err()
}

// LoadWithTimeout bounds a full snapshot read
func (l *Loader) LoadWithTimeout(ctx context.Context, timeout time.Duration) (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return l.Load(ctx)
}

// Close releases the pool
func (l *Loader) Close() {
	l.pool.Close()
}

func unmarshalMetadata(raw []byte, dst *domain.Metadata) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
