package catalog

import "time"

// ModelDescriptor is an immutable catalog entry for one inference backend.
type ModelDescriptor struct {
	ModelID           string    `json:"model_id"`
	Provider          string    `json:"provider"`
	DisplayName       string    `json:"display_name"`
	Capabilities      []string  `json:"capabilities"`
	ContextWindow     int       `json:"context_window"`
	InputCostPerMTok  float64   `json:"input_cost_per_mtok"`
	OutputCostPerMTok float64   `json:"output_cost_per_mtok"`
	CreatedAt         time.Time `json:"created_at,omitzero"`
	UpdatedAt         time.Time `json:"updated_at,omitzero"`
}

// HasCapability reports whether the descriptor carries the given tag.
func (m ModelDescriptor) HasCapability(tag string) bool {
	for _, c := range m.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}

// UpsertModelInput holds the fields required to create or replace a model.
type UpsertModelInput struct {
	ModelID           string   `json:"model_id"`
	Provider          string   `json:"provider"`
	DisplayName       string   `json:"display_name"`
	Capabilities      []string `json:"capabilities"`
	ContextWindow     int      `json:"context_window"`
	InputCostPerMTok  float64  `json:"input_cost_per_mtok"`
	OutputCostPerMTok float64  `json:"output_cost_per_mtok"`
}
