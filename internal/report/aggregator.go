// Package report turns raw usage events into cost summaries, breakdowns and
// exportable datasets over calendar-day windows.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/morel-ai/morel/internal/usage"
)

var (
	ErrInvalidRange = errors.New("end date is before start date")
	ErrBadDate      = errors.New("date must be YYYY-MM-DD")
)

const dayLayout = "2006-01-02"

// EventSource is the subset of the usage store the aggregator reads from.
type EventSource interface {
	GetSummary(ctx context.Context, q usage.Query) (*usage.Summary, error)
	ModuleBreakdown(ctx context.Context, q usage.Query) ([]usage.ModuleCost, error)
	ResearcherBreakdown(ctx context.Context, q usage.Query) ([]usage.ResearcherCost, error)
	ListEvents(ctx context.Context, q usage.Query) ([]*usage.Event, string, error)
}

// Range is an inclusive calendar-day window in UTC.
type Range struct {
	From time.Time
	To   time.Time
}

// ParseDay parses a YYYY-MM-DD string as midnight UTC.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
	}
	return t, nil
}

// NewRange builds a day range from two inclusive dates, validating order.
func NewRange(from, to time.Time) (Range, error) {
	from = from.UTC().Truncate(24 * time.Hour)
	to = to.UTC().Truncate(24 * time.Hour)
	if to.Before(from) {
		return Range{}, ErrInvalidRange
	}
	return Range{From: from, To: to}, nil
}

// query maps the inclusive day range onto the half-open event query window
// [from 00:00, to+1d 00:00).
func (r Range) query() usage.Query {
	return usage.Query{From: r.From, To: r.To.AddDate(0, 0, 1)}
}

// Filter narrows a report to one user, model or module.
type Filter struct {
	UserID  string
	ModelID string
	Module  string
}

func (f Filter) apply(q usage.Query) usage.Query {
	q.UserID = f.UserID
	q.ModelID = f.ModelID
	q.Module = f.Module
	return q
}

// Aggregator computes cost reports from stored usage events.
type Aggregator struct {
	source EventSource
}

func NewAggregator(source EventSource) *Aggregator {
	return &Aggregator{source: source}
}

// Summarize returns aggregate totals for the range.
func (a *Aggregator) Summarize(ctx context.Context, r Range, f Filter) (*usage.Summary, error) {
	s, err := a.source.GetSummary(ctx, f.apply(r.query()))
	if err != nil {
		return nil, fmt.Errorf("summarizing usage: %w", err)
	}
	return s, nil
}

// ModuleBreakdown returns per-module costs ordered by spend descending.
func (a *Aggregator) ModuleBreakdown(ctx context.Context, r Range, f Filter) ([]usage.ModuleCost, error) {
	rows, err := a.source.ModuleBreakdown(ctx, f.apply(r.query()))
	if err != nil {
		return nil, fmt.Errorf("building module breakdown: %w", err)
	}
	return rows, nil
}

// ResearcherBreakdown returns per-user costs ordered by spend descending.
func (a *Aggregator) ResearcherBreakdown(ctx context.Context, r Range, f Filter) ([]usage.ResearcherCost, error) {
	rows, err := a.source.ResearcherBreakdown(ctx, f.apply(r.query()))
	if err != nil {
		return nil, fmt.Errorf("building researcher breakdown: %w", err)
	}
	return rows, nil
}

// collectEvents pages through every event in the range in (timestamp,
// event_id) order.
func (a *Aggregator) collectEvents(ctx context.Context, r Range, f Filter) ([]*usage.Event, error) {
	q := f.apply(r.query())
	var all []*usage.Event
	for {
		events, next, err := a.source.ListEvents(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("listing usage events: %w", err)
		}
		all = append(all, events...)
		if next == "" {
			return all, nil
		}
		q.Cursor = next
	}
}
