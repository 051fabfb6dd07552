// ABOUTME: Dashboard MCP tool handler
// ABOUTME: Implements dashboard_metrics: headline numbers plus the latest activity
package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harperreed/crmdeck/pages"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type DashboardHandlers struct {
	page *pages.Dashboard
	mu   sync.Mutex
}

func NewDashboardHandlers(deps pages.Deps) *DashboardHandlers {
	return &DashboardHandlers{page: pages.NewDashboard(deps)}
}

type DashboardMetricsInput struct{}

type RecentActivityOutput struct {
	Activity    ActivityOutput `json:"activity"`
	ContactName string         `json:"contact_name,omitempty"`
	DealTitle   string         `json:"deal_title,omitempty"`
}

type DashboardMetricsOutput struct {
	TotalContacts  int                    `json:"total_contacts"`
	ActiveDeals    int                    `json:"active_deals"`
	ConversionRate float64                `json:"conversion_rate"`
	TotalRevenue   float64                `json:"total_revenue"`
	Recent         []RecentActivityOutput `json:"recent"`
	LastUpdated    string                 `json:"last_updated"`
}

func (h *DashboardHandlers) DashboardMetrics(ctx context.Context, _ *mcp.CallToolRequest, _ DashboardMetricsInput) (*mcp.CallToolResult, DashboardMetricsOutput, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.page.Refresh(ctx); err != nil {
		return nil, DashboardMetricsOutput{}, fmt.Errorf("failed to load dashboard: %w", err)
	}

	v := h.page.View()
	out := DashboardMetricsOutput{
		TotalContacts:  v.Metrics.TotalContacts,
		ActiveDeals:    v.Metrics.ActiveDeals,
		ConversionRate: v.Metrics.ConversionRate,
		TotalRevenue:   v.Metrics.TotalRevenue,
		Recent:         []RecentActivityOutput{},
		LastUpdated:    v.LastUpdated.Format(time.RFC3339),
	}
	for _, a := range v.Recent {
		out.Recent = append(out.Recent, RecentActivityOutput{
			Activity:    activityToOutput(&a),
			ContactName: v.ContactName(a.ContactID),
			DealTitle:   v.DealTitle(a.DealID),
		})
	}
	return nil, out, nil
}
