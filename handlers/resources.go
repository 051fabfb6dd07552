// ABOUTME: MCP resource handlers for exposing CRM data
// ABOUTME: Provides read-only access to contacts, deals, the pipeline, activity and templates via URI
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harperreed/crmdeck/feed"
	"github.com/harperreed/crmdeck/gateway"
	"github.com/harperreed/crmdeck/pipeline"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Resources lists every URI ReadResource serves.
var Resources = []*mcp.Resource{
	{URI: "crm://contacts", Name: "contacts", Description: "All contacts", MIMEType: "application/json"},
	{URI: "crm://deals", Name: "deals", Description: "All deals", MIMEType: "application/json"},
	{URI: "crm://pipeline", Name: "pipeline", Description: "Deals grouped by stage with totals", MIMEType: "application/json"},
	{URI: "crm://activities/recent", Name: "recent-activity", Description: "The most recent activities, newest first", MIMEType: "application/json"},
	{URI: "crm://templates", Name: "templates", Description: "Email templates", MIMEType: "application/json"},
}

type ResourceHandlers struct {
	gw *gateway.Gateway
}

func NewResourceHandlers(gw *gateway.Gateway) *ResourceHandlers {
	return &ResourceHandlers{gw: gw}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, "crm://") {
		return nil, fmt.Errorf("invalid URI scheme: expected crm://")
	}

	var (
		data any
		err  error
	)
	switch strings.TrimPrefix(uri, "crm://") {
	case "contacts":
		data, err = h.gw.Contacts.GetAll(ctx)
	case "deals":
		data, err = h.gw.Deals.GetAll(ctx)
	case "pipeline":
		data, err = h.readPipeline(ctx)
	case "activities/recent":
		data, err = h.gw.Activities.Recent(ctx, feed.DefaultCap)
	case "templates":
		data, err = h.gw.Templates.GetAll(ctx)
	default:
		return nil, fmt.Errorf("unknown resource: %s", uri)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", uri, err)
	}

	text, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(text),
		},
	}}, nil
}

func (h *ResourceHandlers) readPipeline(ctx context.Context) (pipeline.Board, error) {
	deals, err := h.gw.Deals.GetAll(ctx)
	if err != nil {
		return pipeline.Board{}, err
	}
	return pipeline.GroupByStage(deals, pipeline.DefaultStages), nil
}
