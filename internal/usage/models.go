package usage

import "time"

// Event is one immutable accounting record for a completed inference. Cost is
// computed from the pricing snapshot valid at record time and never
// recomputed, preserving historical accuracy when catalog prices change.
type Event struct {
	EventID      string    `json:"event_id"`
	UserID       string    `json:"user_id"`
	ModelID      string    `json:"model_id"`
	Module       string    `json:"module,omitempty"`
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
	Cost         float64   `json:"cost"`
	Cached       bool      `json:"cached"`
	LatencyMs    int64     `json:"latency_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

// Summary holds aggregate metrics for a set of usage events.
type Summary struct {
	TotalEvents       int64   `json:"total_events"`
	TotalCost         float64 `json:"total_cost"`
	TotalInputTokens  int64   `json:"total_input_tokens"`
	TotalOutputTokens int64   `json:"total_output_tokens"`
	CachedEvents      int64   `json:"cached_events"`
	AvgLatencyMs      float64 `json:"avg_latency_ms"`
	DistinctUsers     int64   `json:"distinct_users"`
}

// ModuleCost aggregates events sharing one caller-supplied module tag.
type ModuleCost struct {
	Module        string  `json:"module"`
	TotalCost     float64 `json:"total_cost"`
	TotalEvents   int64   `json:"total_events"`
	InputTokens   int64   `json:"input_tokens"`
	OutputTokens  int64   `json:"output_tokens"`
	DistinctUsers int64   `json:"distinct_users"`
}

// ResearcherCost aggregates events for one user.
type ResearcherCost struct {
	UserID       string  `json:"user_id"`
	TotalCost    float64 `json:"total_cost"`
	TotalEvents  int64   `json:"total_events"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
}

// Query defines filters and pagination for querying usage events.
// From is inclusive, To exclusive.
type Query struct {
	UserID  string    `json:"user_id,omitempty"`
	ModelID string    `json:"model_id,omitempty"`
	Module  string    `json:"module,omitempty"`
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
	Cursor  string    `json:"cursor,omitempty"`
	Limit   int       `json:"limit"`
}
