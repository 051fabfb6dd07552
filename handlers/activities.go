// ABOUTME: Activity MCP tool handlers
// ABOUTME: Implements filter_activities and log_activity tools
package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harperreed/crmdeck/filter"
	"github.com/harperreed/crmdeck/models"
	"github.com/harperreed/crmdeck/pages"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ActivityHandlers struct {
	page *pages.Activities
	mu   sync.Mutex
}

func NewActivityHandlers(deps pages.Deps) *ActivityHandlers {
	return &ActivityHandlers{page: pages.NewActivities(deps)}
}

type ActivityOutput struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
	ContactID   *int64 `json:"contact_id,omitempty"`
	DealID      *int64 `json:"deal_id,omitempty"`
}

type FilterActivitiesInput struct {
	Query string `json:"query,omitempty" jsonschema:"Search text matched against description and type"`
	Type  string `json:"type,omitempty" jsonschema:"Activity type: call, email, meeting, note or task"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 20)"`
}

type FilterActivitiesOutput struct {
	Activities []ActivityOutput `json:"activities"`
	Total      int              `json:"total"`
}

func (h *ActivityHandlers) FilterActivities(ctx context.Context, _ *mcp.CallToolRequest, input FilterActivitiesInput) (*mcp.CallToolResult, FilterActivitiesOutput, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.page.Load(ctx); err != nil {
		return nil, FilterActivitiesOutput{}, fmt.Errorf("failed to load activities: %w", err)
	}
	h.page.SetCriteria(filter.ActivityCriteria{SearchTerm: input.Query, Type: input.Type})

	view := h.page.View()
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	out := FilterActivitiesOutput{Activities: []ActivityOutput{}, Total: len(view)}
	for i, a := range view {
		if i == limit {
			break
		}
		out.Activities = append(out.Activities, activityToOutput(&a))
	}
	return nil, out, nil
}

type LogActivityInput struct {
	Type        string `json:"type" jsonschema:"Activity type: call, email, meeting, note or task (required)"`
	Description string `json:"description" jsonschema:"What happened (required)"`
	ContactID   int64  `json:"contact_id,omitempty" jsonschema:"Related contact ID"`
	DealID      int64  `json:"deal_id,omitempty" jsonschema:"Related deal ID"`
	Timestamp   string `json:"timestamp,omitempty" jsonschema:"When it happened in ISO 8601 format (default now)"`
}

func (h *ActivityHandlers) LogActivity(ctx context.Context, _ *mcp.CallToolRequest, input LogActivityInput) (*mcp.CallToolResult, ActivityOutput, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	a := models.Activity{Type: input.Type, Description: input.Description}
	if input.ContactID != 0 {
		a.ContactID = &input.ContactID
	}
	if input.DealID != 0 {
		a.DealID = &input.DealID
	}
	if input.Timestamp != "" {
		ts, err := parseDate(input.Timestamp)
		if err != nil {
			return nil, ActivityOutput{}, fmt.Errorf("invalid timestamp: %w", err)
		}
		a.Timestamp = ts
	}

	created, err := h.page.Create(ctx, a)
	if err != nil {
		return nil, ActivityOutput{}, fmt.Errorf("failed to log activity: %w", err)
	}
	return nil, activityToOutput(created), nil
}

func activityToOutput(a *models.Activity) ActivityOutput {
	return ActivityOutput{
		ID:          a.ID,
		Type:        a.Type,
		Description: a.Description,
		Timestamp:   a.Timestamp.Format(time.RFC3339),
		ContactID:   a.ContactID,
		DealID:      a.DealID,
	}
}
