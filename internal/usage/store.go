package usage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgUniqueViolation is the Postgres error code for a unique constraint hit.
const pgUniqueViolation = "23505"

// Store provides database operations over the append-only usage_events table.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Insert writes one event. A duplicate event_id (a caller retrying the same
// inference) is reported as ErrDuplicateEvent, which is how retried
// recordings are deduplicated.
func (s *Store) Insert(ctx context.Context, e Event) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO usage_events
		(event_id, user_id, model_id, module, input_tokens, output_tokens,
		 cost, cached, latency_ms, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.EventID, e.UserID, e.ModelID, e.Module, e.InputTokens, e.OutputTokens,
		e.Cost, e.Cached, e.LatencyMs, e.Timestamp,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("inserting usage event: %w", err)
	}
	return nil
}

// GetSummary returns aggregate metrics over events matching the query.
func (s *Store) GetSummary(ctx context.Context, q Query) (*Summary, error) {
	where, args := buildWhereClause(q)

	query := `SELECT
		COUNT(*),
		COALESCE(SUM(cost), 0),
		COALESCE(SUM(input_tokens), 0),
		COALESCE(SUM(output_tokens), 0),
		COALESCE(SUM(CASE WHEN cached THEN 1 ELSE 0 END), 0),
		COALESCE(AVG(latency_ms), 0),
		COUNT(DISTINCT user_id)
	FROM usage_events` + where

	var sum Summary
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&sum.TotalEvents,
		&sum.TotalCost,
		&sum.TotalInputTokens,
		&sum.TotalOutputTokens,
		&sum.CachedEvents,
		&sum.AvgLatencyMs,
		&sum.DistinctUsers,
	)
	if err != nil {
		return nil, fmt.Errorf("querying usage summary: %w", err)
	}
	return &sum, nil
}

// ModuleBreakdown groups events by module tag, ordered by total cost
// descending with module name as the deterministic secondary order.
func (s *Store) ModuleBreakdown(ctx context.Context, q Query) ([]ModuleCost, error) {
	where, args := buildWhereClause(q)

	rows, err := s.pool.Query(ctx, `SELECT
		module,
		COALESCE(SUM(cost), 0),
		COUNT(*),
		COALESCE(SUM(input_tokens), 0),
		COALESCE(SUM(output_tokens), 0),
		COUNT(DISTINCT user_id)
	FROM usage_events`+where+`
	GROUP BY module
	ORDER BY SUM(cost) DESC, module ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying module breakdown: %w", err)
	}
	defer rows.Close()

	var out []ModuleCost
	for rows.Next() {
		var mc ModuleCost
		if err := rows.Scan(&mc.Module, &mc.TotalCost, &mc.TotalEvents,
			&mc.InputTokens, &mc.OutputTokens, &mc.DistinctUsers); err != nil {
			return nil, fmt.Errorf("scanning module row: %w", err)
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

// ResearcherBreakdown groups events by user, ordered by total cost descending
// with user_id as the deterministic secondary order.
func (s *Store) ResearcherBreakdown(ctx context.Context, q Query) ([]ResearcherCost, error) {
	where, args := buildWhereClause(q)

	rows, err := s.pool.Query(ctx, `SELECT
		user_id,
		COALESCE(SUM(cost), 0),
		COUNT(*),
		COALESCE(SUM(input_tokens), 0),
		COALESCE(SUM(output_tokens), 0)
	FROM usage_events`+where+`
	GROUP BY user_id
	ORDER BY SUM(cost) DESC, user_id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying researcher breakdown: %w", err)
	}
	defer rows.Close()

	var out []ResearcherCost
	for rows.Next() {
		var rc ResearcherCost
		if err := rows.Scan(&rc.UserID, &rc.TotalCost, &rc.TotalEvents,
			&rc.InputTokens, &rc.OutputTokens); err != nil {
			return nil, fmt.Errorf("scanning researcher row: %w", err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

// ListEvents returns a page of events in ascending (timestamp, event_id)
// order with cursor pagination, so that repeated exports of the same event
// set render byte-identically.
func (s *Store) ListEvents(ctx context.Context, q Query) ([]*Event, string, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 500
	}

	where, args := buildWhereClause(q)

	if q.Cursor != "" {
		ts, id, err := decodeCursor(q.Cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", err)
		}
		n := len(args)
		if where == "" {
			where = " WHERE"
		} else {
			where += " AND"
		}
		where += fmt.Sprintf(" (timestamp, event_id) > ($%d, $%d)", n+1, n+2)
		args = append(args, ts, id)
	}

	query := `SELECT event_id, user_id, model_id, module, input_tokens,
		output_tokens, cost, cached, latency_ms, timestamp
	FROM usage_events` + where +
		` ORDER BY timestamp ASC, event_id ASC LIMIT $` + strconv.Itoa(len(args)+1)
	args = append(args, limit+1) // one extra row decides whether a next page exists

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("listing usage events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.EventID, &e.UserID, &e.ModelID, &e.Module, &e.InputTokens,
			&e.OutputTokens, &e.Cost, &e.Cached, &e.LatencyMs, &e.Timestamp,
		); err != nil {
			return nil, "", fmt.Errorf("scanning usage event row: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterating usage event rows: %w", err)
	}

	var nextCursor string
	if len(events) > limit {
		last := events[limit-1]
		nextCursor = encodeCursor(last.Timestamp, last.EventID)
		events = events[:limit]
	}
	return events, nextCursor, nil
}

// buildWhereClause constructs a WHERE clause and positional arguments from a
// Query. The returned string starts with " WHERE" or is empty.
func buildWhereClause(q Query) (string, []any) {
	var conditions []string
	var args []any

	if q.UserID != "" {
		args = append(args, q.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if q.ModelID != "" {
		args = append(args, q.ModelID)
		conditions = append(conditions, fmt.Sprintf("model_id = $%d", len(args)))
	}
	if q.Module != "" {
		args = append(args, q.Module)
		conditions = append(conditions, fmt.Sprintf("module = $%d", len(args)))
	}
	if !q.From.IsZero() {
		args = append(args, q.From)
		conditions = append(conditions, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if !q.To.IsZero() {
		args = append(args, q.To)
		conditions = append(conditions, fmt.Sprintf("timestamp < $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// encodeCursor encodes a timestamp and event id into an opaque cursor string.
func encodeCursor(ts time.Time, id string) string {
	raw := ts.Format(time.RFC3339Nano) + "|" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// decodeCursor decodes an opaque cursor string into a timestamp and event id.
func decodeCursor(cursor string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("decoding cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", fmt.Errorf("malformed cursor")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("parsing cursor timestamp: %w", err)
	}
	return ts, parts[1], nil
}
