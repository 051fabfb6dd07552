// ABOUTME: GraphViz visualization MCP handlers
// ABOUTME: Provides the pipeline_graph tool for agents
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/crmdeck/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PipelineGraphInput struct{}

type PipelineGraphOutput struct {
	DOTSource string `json:"dot_source"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (h *DealHandlers) PipelineGraph(ctx context.Context, _ *mcp.CallToolRequest, _ PipelineGraphInput) (*mcp.CallToolResult, PipelineGraphOutput, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.page.Load(ctx); err != nil {
		return nil, PipelineGraphOutput{}, fmt.Errorf("failed to load deals: %w", err)
	}

	dot, err := viz.GeneratePipelineGraph(ctx, h.page.Board(), h.page.Contacts())
	if err != nil {
		return nil, PipelineGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	return nil, PipelineGraphOutput{
		DOTSource: dot,
		NodeCount: strings.Count(dot, "label="),
		EdgeCount: strings.Count(dot, "->"),
	}, nil
}
