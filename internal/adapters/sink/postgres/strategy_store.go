package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/courtside/internal/domain/model"
)

// StrategyStore serves strategy definitions stored as JSONB.
type StrategyStore struct {
	pool *pgxpool.Pool
}

// NewStrategyStore creates a StrategyStore backed by pool.
func NewStrategyStore(pool *pgxpool.Pool) *StrategyStore {
	return &StrategyStore{pool: pool}
}

// Name identifies the source in logs.
func (s *StrategyStore) Name() string { return "postgres" }

// Load returns every stored strategy. The active column overrides the flag in
// the definition so strategies can be toggled without rewriting them.
func (s *StrategyStore) Load(ctx context.Context) ([]*model.Strategy, error) {
	const query = `SELECT id, definition, active FROM strategies ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: load strategies: %w", err)
	}
	defer rows.Close()

	var out []*model.Strategy
	for rows.Next() {
		var (
			id     string
			def    []byte
			active bool
		)
		if err := rows.Scan(&id, &def, &active); err != nil {
			return nil, fmt.Errorf("postgres: scan strategy: %w", err)
		}
		st, err := decodeStrategy(id, def, active)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load strategies rows: %w", err)
	}
	return out, nil
}

// Upsert stores s as its JSON definition.
func (s *StrategyStore) Upsert(ctx context.Context, st *model.Strategy) error {
	def, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("postgres: marshal strategy %s: %w", st.ID, err)
	}

	const query = `
		INSERT INTO strategies (id, definition, active, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			definition = EXCLUDED.definition,
			active     = EXCLUDED.active,
			updated_at = NOW()`
	if _, err := s.pool.Exec(ctx, query, st.ID, def, st.Active); err != nil {
		return fmt.Errorf("postgres: upsert strategy %s: %w", st.ID, err)
	}
	return nil
}

func decodeStrategy(id string, def []byte, active bool) (*model.Strategy, error) {
	var st model.Strategy
	if err := json.Unmarshal(def, &st); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal strategy %s: %w", id, err)
	}
	st.ID = id
	st.Active = active
	return &st, nil
}
