// ABOUTME: Deal MCP tool handlers
// ABOUTME: Implements pipeline_summary, create_deal and move_deal tools
package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harperreed/crmdeck/models"
	"github.com/harperreed/crmdeck/pages"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type DealHandlers struct {
	page *pages.Deals
	mu   sync.Mutex
}

func NewDealHandlers(deps pages.Deps) *DealHandlers {
	return &DealHandlers{page: pages.NewDeals(deps)}
}

type DealOutput struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Value         float64 `json:"value"`
	Stage         string  `json:"stage"`
	ContactID     int64   `json:"contact_id"`
	ContactName   string  `json:"contact_name,omitempty"`
	Probability   float64 `json:"probability"`
	ExpectedClose *string `json:"expected_close,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

type PipelineSummaryInput struct{}

type StageSummary struct {
	Stage string       `json:"stage"`
	Label string       `json:"label"`
	Count int          `json:"count"`
	Value float64      `json:"value"`
	Deals []DealOutput `json:"deals"`
}

type PipelineSummaryOutput struct {
	Stages     []StageSummary `json:"stages"`
	TotalValue float64        `json:"total_value"`
	Excluded   int            `json:"excluded"`
}

func (h *DealHandlers) PipelineSummary(ctx context.Context, _ *mcp.CallToolRequest, _ PipelineSummaryInput) (*mcp.CallToolResult, PipelineSummaryOutput, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.page.Load(ctx); err != nil {
		return nil, PipelineSummaryOutput{}, fmt.Errorf("failed to load deals: %w", err)
	}

	board := h.page.Board()
	out := PipelineSummaryOutput{TotalValue: board.TotalValue(), Excluded: board.Excluded}
	for _, col := range board.Columns {
		s := StageSummary{
			Stage: col.Stage.ID,
			Label: col.Stage.Label,
			Count: col.Count(),
			Value: col.TotalValue,
			Deals: []DealOutput{},
		}
		for _, d := range col.Deals {
			s.Deals = append(s.Deals, h.dealToOutput(&d))
		}
		out.Stages = append(out.Stages, s)
	}
	return nil, out, nil
}

type CreateDealInput struct {
	Title         string  `json:"title" jsonschema:"Deal title (required)"`
	Value         float64 `json:"value" jsonschema:"Deal value in dollars (required, positive)"`
	ContactID     int64   `json:"contact_id" jsonschema:"ID of the contact the deal belongs to (required)"`
	Stage         string  `json:"stage,omitempty" jsonschema:"Deal stage: lead, qualified, proposal, won or lost (default lead)"`
	Probability   float64 `json:"probability,omitempty" jsonschema:"Win probability from 0 to 100"`
	ExpectedClose string  `json:"expected_close,omitempty" jsonschema:"Expected close date in ISO 8601 format"`
}

func (h *DealHandlers) CreateDeal(ctx context.Context, _ *mcp.CallToolRequest, input CreateDealInput) (*mcp.CallToolResult, DealOutput, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	deal := models.Deal{
		Title:       input.Title,
		Value:       input.Value,
		ContactID:   input.ContactID,
		Stage:       input.Stage,
		Probability: input.Probability,
	}
	if input.ExpectedClose != "" {
		t, err := parseDate(input.ExpectedClose)
		if err != nil {
			return nil, DealOutput{}, fmt.Errorf("invalid expected_close: %w", err)
		}
		deal.ExpectedClose = &t
	}

	if err := h.page.Load(ctx); err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to load deals: %w", err)
	}
	saved, err := h.page.SaveDeal(ctx, deal)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to create deal: %w", err)
	}
	return nil, h.dealToOutput(saved), nil
}

type MoveDealInput struct {
	ID    int64  `json:"id" jsonschema:"Deal ID (required)"`
	Stage string `json:"stage" jsonschema:"Target stage: lead, qualified, proposal, won or lost"`
}

func (h *DealHandlers) MoveDeal(ctx context.Context, _ *mcp.CallToolRequest, input MoveDealInput) (*mcp.CallToolResult, DealOutput, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.page.Load(ctx); err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to load deals: %w", err)
	}
	moved, err := h.page.MoveDeal(ctx, input.ID, input.Stage)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to move deal: %w", err)
	}
	return nil, h.dealToOutput(moved), nil
}

func (h *DealHandlers) dealToOutput(d *models.Deal) DealOutput {
	return DealOutput{
		ID:            d.ID,
		Title:         d.Title,
		Value:         d.Value,
		Stage:         d.Stage,
		ContactID:     d.ContactID,
		ContactName:   h.page.ContactName(d.ContactID),
		Probability:   d.Probability,
		ExpectedClose: formatTimePtr(d.ExpectedClose),
		CreatedAt:     d.CreatedAt.Format(time.RFC3339),
	}
}

// parseDate accepts RFC 3339 timestamps or plain dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
