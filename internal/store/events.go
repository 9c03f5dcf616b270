package store

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// LLMRequestEventData captures the data for a single model request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// EventRepo provides access to model request events.
type EventRepo interface {
	// AppendLLMRequest records one model API call.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// RecentLLMRequests returns the newest events, most recent first.
	RecentLLMRequests(ctx context.Context, limit int) ([]*LLMRequestEvent, error)
}

type eventRepo struct {
	db *bun.DB
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	ev := &LLMRequestEvent{
		CreatedAt:    time.Now().UTC(),
		Provider:     data.Provider,
		Model:        data.Model,
		Purpose:      data.Purpose,
		InputTokens:  data.InputTokens,
		OutputTokens: data.OutputTokens,
		LatencyMs:    data.LatencyMs,
		Success:      data.Success,
		ErrorMessage: data.ErrorMessage,
	}
	if _, err := r.db.NewInsert().Model(ev).Exec(ctx); err != nil {
		return fmt.Errorf("insert llm request event: %w", err)
	}
	return nil
}

func (r *eventRepo) RecentLLMRequests(ctx context.Context, limit int) ([]*LLMRequestEvent, error) {
	if limit < 1 {
		limit = 20
	}
	var events []*LLMRequestEvent
	err := r.db.NewSelect().
		Model(&events).
		Order("le.id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select llm request events: %w", err)
	}
	return events, nil
}
