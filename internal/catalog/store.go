package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for the persisted model catalog.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// modelColumns is the full list of columns used in SELECT statements.
const modelColumns = `model_id, provider, display_name, capabilities,
	context_window, input_cost_per_mtok, output_cost_per_mtok, created_at, updated_at`

// scanModel scans a single model row into a ModelDescriptor.
func scanModel(row pgx.Row) (*ModelDescriptor, error) {
	var m ModelDescriptor
	var capsJSON []byte
	err := row.Scan(
		&m.ModelID,
		&m.Provider,
		&m.DisplayName,
		&capsJSON,
		&m.ContextWindow,
		&m.InputCostPerMTok,
		&m.OutputCostPerMTok,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(capsJSON) > 0 {
		if err := json.Unmarshal(capsJSON, &m.Capabilities); err != nil {
			return nil, fmt.Errorf("unmarshalling capabilities: %w", err)
		}
	}
	return &m, nil
}

// Upsert creates the model or replaces its attributes, keeping the original
// insertion sequence when the model already exists.
func (s *Store) Upsert(ctx context.Context, input UpsertModelInput) (*ModelDescriptor, error) {
	if err := validateDescriptor(ModelDescriptor{
		ModelID:           input.ModelID,
		ContextWindow:     input.ContextWindow,
		InputCostPerMTok:  input.InputCostPerMTok,
		OutputCostPerMTok: input.OutputCostPerMTok,
	}); err != nil {
		return nil, err
	}

	capsJSON, err := json.Marshal(input.Capabilities)
	if err != nil {
		return nil, fmt.Errorf("marshalling capabilities: %w", err)
	}

	row := s.pool.QueryRow(ctx, `INSERT INTO models
		(model_id, provider, display_name, capabilities, context_window,
		 input_cost_per_mtok, output_cost_per_mtok)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (model_id) DO UPDATE SET
			provider = EXCLUDED.provider,
			display_name = EXCLUDED.display_name,
			capabilities = EXCLUDED.capabilities,
			context_window = EXCLUDED.context_window,
			input_cost_per_mtok = EXCLUDED.input_cost_per_mtok,
			output_cost_per_mtok = EXCLUDED.output_cost_per_mtok,
			updated_at = now()
		RETURNING `+modelColumns,
		input.ModelID, input.Provider, input.DisplayName, capsJSON,
		input.ContextWindow, input.InputCostPerMTok, input.OutputCostPerMTok,
	)

	m, err := scanModel(row)
	if err != nil {
		return nil, fmt.Errorf("upserting model: %w", err)
	}
	return m, nil
}

// List returns all persisted models ordered by insertion sequence.
func (s *Store) List(ctx context.Context) ([]ModelDescriptor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+modelColumns+` FROM models ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	defer rows.Close()

	var models []ModelDescriptor
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning model row: %w", err)
		}
		models = append(models, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating model rows: %w", err)
	}
	return models, nil
}

// Get returns a single model by its ID.
func (s *Store) Get(ctx context.Context, modelID string) (*ModelDescriptor, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+modelColumns+` FROM models WHERE model_id = $1`, modelID)
	m, err := scanModel(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("model %q: %w", modelID, ErrModelNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting model: %w", err)
	}
	return m, nil
}
