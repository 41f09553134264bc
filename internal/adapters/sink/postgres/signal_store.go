package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/courtside/internal/domain/model"
)

// SignalStore records every event and keeps the latest copy of each signal.
// It is the persistence sink of the dispatcher.
type SignalStore struct {
	pool *pgxpool.Pool
}

// NewSignalStore creates a SignalStore backed by pool.
func NewSignalStore(pool *pgxpool.Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Name implements sink.Sink.
func (s *SignalStore) Name() string { return "postgres" }

// eventRow is the flattened form of an event written to signal_events.
type eventRow struct {
	ID         string
	Type       string
	StrategyID string
	GameID     string
	SignalID   string
	Payload    []byte
	At         time.Time
}

func toEventRow(ev model.Event) (eventRow, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return eventRow{}, fmt.Errorf("postgres: marshal event %s: %w", ev.ID, err)
	}
	row := eventRow{
		ID:         ev.ID,
		Type:       string(ev.Type),
		StrategyID: ev.StrategyID,
		GameID:     ev.GameID,
		Payload:    payload,
		At:         ev.At,
	}
	if ev.Signal != nil {
		row.SignalID = ev.Signal.ID
	}
	return row, nil
}

// Deliver implements sink.Sink. The event row and the signal upsert commit
// together.
func (s *SignalStore) Deliver(ctx context.Context, ev model.Event) error {
	row, err := toEventRow(ev)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertEvent = `
		INSERT INTO signal_events (id, type, strategy_id, game_id, signal_id, payload, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`
	if _, err := tx.Exec(ctx, insertEvent,
		row.ID, row.Type, row.StrategyID, row.GameID, row.SignalID, row.Payload, row.At,
	); err != nil {
		return fmt.Errorf("postgres: insert event %s: %w", row.ID, err)
	}

	if ev.Signal != nil {
		if err := upsertSignal(ctx, tx, ev.Signal, ev.At); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit event %s: %w", row.ID, err)
	}
	return nil
}

// upsertSignal keeps the newest copy per (strategy, game), ordered by event
// time, so a late write of an earlier stage never replaces a later one. A new
// signal id for the same pair replaces the previous row.
func upsertSignal(ctx context.Context, tx pgx.Tx, sig *model.Signal, at time.Time) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("postgres: marshal signal %s: %w", sig.ID, err)
	}

	const query = `
		INSERT INTO signals (id, strategy_id, game_id, stage, result, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (strategy_id, game_id) DO UPDATE SET
			id         = EXCLUDED.id,
			stage      = EXCLUDED.stage,
			result     = EXCLUDED.result,
			payload    = EXCLUDED.payload,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
		WHERE signals.updated_at <= EXCLUDED.updated_at`
	if at.IsZero() {
		at = time.Now()
	}
	if _, err := tx.Exec(ctx, query,
		sig.ID, sig.StrategyID, sig.GameID, string(sig.Stage), string(sig.Result), payload, sig.CreatedAt, at,
	); err != nil {
		return fmt.Errorf("postgres: upsert signal %s: %w", sig.ID, err)
	}
	return nil
}

// Get returns the stored signal for a pair.
func (s *SignalStore) Get(ctx context.Context, strategyID, gameID string) (*model.Signal, error) {
	const query = `SELECT payload FROM signals WHERE strategy_id = $1 AND game_id = $2`

	var payload []byte
	if err := s.pool.QueryRow(ctx, query, strategyID, gameID).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get signal %s/%s: %w", strategyID, gameID, err)
	}
	return decodeSignal(payload)
}

// LoadOpen returns every stored signal whose stage is not final, for restoring
// the lifecycle engine at start-up.
func (s *SignalStore) LoadOpen(ctx context.Context) ([]*model.Signal, error) {
	const query = `
		SELECT payload FROM signals
		WHERE stage IN ('monitoring', 'watching', 'bet_taken')
		ORDER BY created_at`
	return s.query(ctx, "load open signals", query)
}

// ListByGame returns every stored signal for a game.
func (s *SignalStore) ListByGame(ctx context.Context, gameID string) ([]*model.Signal, error) {
	const query = `SELECT payload FROM signals WHERE game_id = $1 ORDER BY created_at`
	return s.query(ctx, "list signals", query, gameID)
}

func (s *SignalStore) query(ctx context.Context, op, query string, args ...any) ([]*model.Signal, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	defer rows.Close()

	var out []*model.Signal
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("postgres: %s: scan: %w", op, err)
		}
		sig, err := decodeSignal(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: %s rows: %w", op, err)
	}
	return out, nil
}

func decodeSignal(payload []byte) (*model.Signal, error) {
	var sig model.Signal
	if err := json.Unmarshal(payload, &sig); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal signal: %w", err)
	}
	return &sig, nil
}
