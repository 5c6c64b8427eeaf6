package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

var csvHeader = []string{
	"event_id", "user_id", "model_id", "module",
	"input_tokens", "output_tokens", "cost", "cached", "latency_ms", "timestamp",
}

// ExportCSV writes every event in the range as CSV. Output is byte-identical
// across calls for the same stored data: rows follow storage order and floats
// use the shortest exact representation.
func (a *Aggregator) ExportCSV(ctx context.Context, r Range, f Filter) ([]byte, error) {
	events, err := a.collectEvents(ctx, r, f)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}
	for _, e := range events {
		row := []string{
			e.EventID,
			e.UserID,
			e.ModelID,
			e.Module,
			strconv.FormatInt(e.InputTokens, 10),
			strconv.FormatInt(e.OutputTokens, 10),
			strconv.FormatFloat(e.Cost, 'f', -1, 64),
			strconv.FormatBool(e.Cached),
			strconv.FormatInt(e.LatencyMs, 10),
			e.Timestamp.UTC().Format(time.RFC3339Nano),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}

// jsonExport is the JSON export envelope.
type jsonExport struct {
	From   string      `json:"from"`
	To     string      `json:"to"`
	Count  int         `json:"count"`
	Events []exportRow `json:"events"`
}

type exportRow struct {
	EventID      string  `json:"event_id"`
	UserID       string  `json:"user_id"`
	ModelID      string  `json:"model_id"`
	Module       string  `json:"module,omitempty"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	Cost         float64 `json:"cost"`
	Cached       bool    `json:"cached"`
	LatencyMs    int64   `json:"latency_ms"`
	Timestamp    string  `json:"timestamp"`
}

// ExportJSON writes every event in the range as a JSON document with a small
// envelope naming the window.
func (a *Aggregator) ExportJSON(ctx context.Context, r Range, f Filter) ([]byte, error) {
	events, err := a.collectEvents(ctx, r, f)
	if err != nil {
		return nil, err
	}

	out := jsonExport{
		From:   r.From.Format(dayLayout),
		To:     r.To.Format(dayLayout),
		Count:  len(events),
		Events: make([]exportRow, 0, len(events)),
	}
	for _, e := range events {
		out.Events = append(out.Events, exportRow{
			EventID:      e.EventID,
			UserID:       e.UserID,
			ModelID:      e.ModelID,
			Module:       e.Module,
			InputTokens:  e.InputTokens,
			OutputTokens: e.OutputTokens,
			Cost:         e.Cost,
			Cached:       e.Cached,
			LatencyMs:    e.LatencyMs,
			Timestamp:    e.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding json export: %w", err)
	}
	return data, nil
}

// Filename names a download for the given range and format, e.g.
// "usage-export-2026-08-01-2026-08-31.csv".
func Filename(r Range, format string) string {
	return fmt.Sprintf("usage-export-%s-%s.%s",
		r.From.Format(dayLayout), r.To.Format(dayLayout), format)
}
