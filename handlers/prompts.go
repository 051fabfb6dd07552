// ABOUTME: MCP prompt handlers for reusable CRM workflow templates
// ABOUTME: Builds follow-up and pipeline review prompts from live CRM data
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/crmdeck/filter"
	"github.com/harperreed/crmdeck/gateway"
	"github.com/harperreed/crmdeck/pipeline"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Prompts lists every prompt GetPrompt serves.
var Prompts = []*mcp.Prompt{
	{
		Name:        "follow-up-suggestions",
		Description: "Suggest which contacts to reach out to next",
		Arguments: []*mcp.PromptArgument{
			{Name: "bucket", Description: "Recency bucket to review: week, month or older (default month)"},
		},
	},
	{
		Name:        "deal-analysis",
		Description: "Review the pipeline and flag deals that need attention",
	},
}

type PromptHandlers struct {
	gw  *gateway.Gateway
	now func() time.Time
}

func NewPromptHandlers(gw *gateway.Gateway, now func() time.Time) *PromptHandlers {
	if now == nil {
		now = time.Now
	}
	return &PromptHandlers{gw: gw, now: now}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch name := request.Params.Name; name {
	case "follow-up-suggestions":
		return h.getFollowUpSuggestionsPrompt(ctx, request.Params.Arguments)
	case "deal-analysis":
		return h.getDealAnalysisPrompt(ctx)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", name)
	}
}

func (h *PromptHandlers) getFollowUpSuggestionsPrompt(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	bucket := args["bucket"]
	if bucket == "" {
		bucket = filter.BucketMonth
	}

	contacts, err := h.gw.Contacts.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contacts: %w", err)
	}
	stale := filter.ContactsAt(contacts, filter.Criteria{LastContacted: bucket}, h.now())

	var promptText strings.Builder
	promptText.WriteString(fmt.Sprintf("These contacts were last reached in the %q window:\n\n", bucket))
	if len(stale) == 0 {
		promptText.WriteString("(none)\n")
	}
	for _, c := range stale {
		last := "never"
		if c.LastContacted != nil {
			last = c.LastContacted.Format("2006-01-02")
		}
		promptText.WriteString(fmt.Sprintf("- %s (%s, %s) status %s, last contacted %s\n", c.Name, c.Company, c.Email, c.Status, last))
	}
	promptText.WriteString("\nSuggest who to follow up with first and draft a one-line opener for each.")

	return &mcp.GetPromptResult{
		Description: "Follow-up suggestions",
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText.String()},
			},
		},
	}, nil
}

func (h *PromptHandlers) getDealAnalysisPrompt(ctx context.Context) (*mcp.GetPromptResult, error) {
	deals, err := h.gw.Deals.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}
	board := pipeline.GroupByStage(deals, pipeline.DefaultStages)

	var promptText strings.Builder
	promptText.WriteString("Current pipeline:\n\n")
	for _, col := range board.Columns {
		promptText.WriteString(fmt.Sprintf("%s: %d deals, $%.0f\n", col.Stage.Label, col.Count(), col.TotalValue))
		for _, d := range col.Deals {
			promptText.WriteString(fmt.Sprintf("  - %s ($%.0f, %.0f%% probability)\n", d.Title, d.Value, d.Probability))
		}
	}
	promptText.WriteString("\nIdentify stalled deals and recommend the next action for each open one.")

	return &mcp.GetPromptResult{
		Description: "Deal pipeline analysis",
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText.String()},
			},
		},
	}, nil
}
