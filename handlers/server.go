// ABOUTME: MCP server assembly
// ABOUTME: Registers every CRM tool, resource and prompt on one server
package handlers

import (
	"github.com/harperreed/crmdeck/pages"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer builds an MCP server over deps. All page handlers share one bus
// and feed.
func NewServer(deps pages.Deps, version string) *mcp.Server {
	deps = deps.WithDefaults()

	contactHandlers := NewContactHandlers(deps)
	dealHandlers := NewDealHandlers(deps)
	activityHandlers := NewActivityHandlers(deps)
	dashboardHandlers := NewDashboardHandlers(deps)
	emailHandlers := NewEmailHandlers(deps)
	resourceHandlers := NewResourceHandlers(deps.Gateway)
	promptHandlers := NewPromptHandlers(deps.Gateway, deps.Now)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "crmdeck",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "filter_contacts",
		Description: "Search and filter contacts by text, status and how recently they were contacted",
	}, contactHandlers.FilterContacts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "save_contact",
		Description: "Create a contact, or update one when id is given",
	}, contactHandlers.SaveContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "bulk_update_contacts",
		Description: "Set one field on several contacts; reports per-contact success and failure",
	}, contactHandlers.BulkUpdateContacts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "bulk_delete_contacts",
		Description: "Delete several contacts; requires confirm=true",
	}, contactHandlers.BulkDeleteContacts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "filter_activities",
		Description: "List activities newest first, filtered by text and type",
	}, activityHandlers.FilterActivities)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "log_activity",
		Description: "Record a call, email, meeting, note or task",
	}, activityHandlers.LogActivity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pipeline_summary",
		Description: "Deals grouped by stage with counts and total value per stage",
	}, dealHandlers.PipelineSummary)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_deal",
		Description: "Create a new deal for a contact and log it as a note activity",
	}, dealHandlers.CreateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "move_deal",
		Description: "Move a deal to another pipeline stage",
	}, dealHandlers.MoveDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pipeline_graph",
		Description: "Render the pipeline as a Graphviz graph",
	}, dealHandlers.PipelineGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dashboard_metrics",
		Description: "Total contacts, active deals, conversion rate, revenue and recent activity",
	}, dashboardHandlers.DashboardMetrics)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "draft_email",
		Description: "Prefill an email for a contact or deal, optionally from a template",
	}, emailHandlers.DraftEmail)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "send_email",
		Description: "Send an email and log it as an activity",
	}, emailHandlers.SendEmail)

	for _, r := range Resources {
		server.AddResource(r, resourceHandlers.ReadResource)
	}
	for _, p := range Prompts {
		server.AddPrompt(p, promptHandlers.GetPrompt)
	}

	return server
}
