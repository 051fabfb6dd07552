// ABOUTME: Tests for the MCP tool, resource and prompt handlers
// ABOUTME: Runs each handler against the seeded in-memory gateway
package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/harperreed/crmdeck/gateway"
	"github.com/harperreed/crmdeck/models"
	"github.com/harperreed/crmdeck/pages"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func setupTestDeps(t *testing.T) (*gateway.Memory, pages.Deps) {
	t.Helper()
	mem := gateway.NewMemory(gateway.WithClock(func() time.Time { return testNow }), gateway.WithFixtures())
	deps := pages.Deps{
		Gateway:  mem.Gateway(),
		Interval: time.Hour,
		Now:      func() time.Time { return testNow },
	}
	return mem, deps.WithDefaults()
}

func TestFilterContactsHandler(t *testing.T) {
	_, deps := setupTestDeps(t)
	h := NewContactHandlers(deps)
	ctx := context.Background()

	_, out, err := h.FilterContacts(ctx, nil, FilterContactsInput{Status: models.StatusLead})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Total)
	require.Len(t, out.Contacts, 2)
	assert.Equal(t, "Michael Chen", out.Contacts[0].Name)
	assert.Equal(t, "Lisa Thompson", out.Contacts[1].Name)
	assert.Nil(t, out.Contacts[1].LastContacted)

	_, out, err = h.FilterContacts(ctx, nil, FilterContactsInput{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 6, out.Total)
	assert.Len(t, out.Contacts, 1)
}

func TestSaveContactHandler(t *testing.T) {
	mem, deps := setupTestDeps(t)
	h := NewContactHandlers(deps)
	ctx := context.Background()

	_, out, err := h.SaveContact(ctx, nil, SaveContactInput{Name: "Ada Lovelace", Email: "ada@engines.io", Company: "Analytical"})
	require.NoError(t, err)
	assert.NotZero(t, out.ID)
	assert.Equal(t, models.StatusLead, out.Status)

	stored, err := mem.Gateway().Contacts.GetByID(ctx, out.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", stored.Name)

	_, _, err = h.SaveContact(ctx, nil, SaveContactInput{Name: "No Email", Company: "X"})
	var verrs models.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "email")
}

func TestBulkUpdateContactsHandler(t *testing.T) {
	mem, deps := setupTestDeps(t)
	mem.InjectFailure(gateway.EntityContact, gateway.OpBulkUpdate, 5, "record locked")
	h := NewContactHandlers(deps)
	ctx := context.Background()

	_, out, err := h.BulkUpdateContacts(ctx, nil, BulkUpdateContactsInput{IDs: []int64{2, 5}, Field: "status", Value: models.StatusInactive})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, out.Succeeded)
	require.Len(t, out.Failed, 1)
	assert.Equal(t, int64(5), out.Failed[0].ID)
	assert.Equal(t, "record locked", out.Failed[0].Message)

	c, err := mem.Gateway().Contacts.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, c.Status)

	_, _, err = h.BulkUpdateContacts(ctx, nil, BulkUpdateContactsInput{IDs: []int64{2}})
	assert.EqualError(t, err, "field is required")
}

func TestBulkDeleteContactsHandler(t *testing.T) {
	mem, deps := setupTestDeps(t)
	h := NewContactHandlers(deps)
	ctx := context.Background()

	_, _, err := h.BulkDeleteContacts(ctx, nil, BulkDeleteContactsInput{IDs: []int64{3, 4}})
	require.Error(t, err)

	_, _, err = h.BulkDeleteContacts(ctx, nil, BulkDeleteContactsInput{IDs: []int64{99}, Confirm: true})
	assert.EqualError(t, err, "none of the given contacts exist")

	_, out, err := h.BulkDeleteContacts(ctx, nil, BulkDeleteContactsInput{IDs: []int64{3, 4}, Confirm: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4}, out.Succeeded)
	assert.Empty(t, out.Failed)

	all, err := mem.Gateway().Contacts.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestPipelineSummaryHandler(t *testing.T) {
	_, deps := setupTestDeps(t)
	h := NewDealHandlers(deps)

	_, out, err := h.PipelineSummary(context.Background(), nil, PipelineSummaryInput{})
	require.NoError(t, err)
	require.Len(t, out.Stages, 5)

	var stages []string
	for _, s := range out.Stages {
		stages = append(stages, s.Stage)
	}
	assert.Equal(t, models.Stages, stages)

	proposal := out.Stages[2]
	assert.Equal(t, 1, proposal.Count)
	assert.Equal(t, 75000.0, proposal.Value)
	assert.Equal(t, "Sarah Johnson", proposal.Deals[0].ContactName)
	assert.Equal(t, 2, out.Stages[3].Count)
	assert.Equal(t, 200500.0, out.TotalValue)
	assert.Zero(t, out.Excluded)
}

func TestCreateDealHandlerLogsNote(t *testing.T) {
	_, deps := setupTestDeps(t)
	deals := NewDealHandlers(deps)
	activities := NewActivityHandlers(deps)
	ctx := context.Background()

	_, deal, err := deals.CreateDeal(ctx, nil, CreateDealInput{Title: "Expansion", Value: 12000, ContactID: 1, ExpectedClose: "2026-04-30"})
	require.NoError(t, err)
	assert.Equal(t, models.StageLead, deal.Stage)
	require.NotNil(t, deal.ExpectedClose)
	assert.Equal(t, "2026-04-30T00:00:00Z", *deal.ExpectedClose)

	_, out, err := activities.FilterActivities(ctx, nil, FilterActivitiesInput{Type: models.ActivityNote})
	require.NoError(t, err)
	require.NotEmpty(t, out.Activities)
	assert.Equal(t, "Created new deal: Expansion (lead)", out.Activities[0].Description)

	_, _, err = deals.CreateDeal(ctx, nil, CreateDealInput{Title: "Bad", Value: 10, ContactID: 1, ExpectedClose: "soon"})
	assert.ErrorContains(t, err, "invalid expected_close")
}

func TestMoveDealHandler(t *testing.T) {
	_, deps := setupTestDeps(t)
	h := NewDealHandlers(deps)
	ctx := context.Background()

	_, moved, err := h.MoveDeal(ctx, nil, MoveDealInput{ID: 2, Stage: models.StageProposal})
	require.NoError(t, err)
	assert.Equal(t, models.StageProposal, moved.Stage)

	_, _, err = h.MoveDeal(ctx, nil, MoveDealInput{ID: 2, Stage: "negotiation"})
	assert.Error(t, err)
}

func TestFilterActivitiesHandler(t *testing.T) {
	_, deps := setupTestDeps(t)
	h := NewActivityHandlers(deps)

	_, out, err := h.FilterActivities(context.Background(), nil, FilterActivitiesInput{Type: models.ActivityCall})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Total)
	require.Len(t, out.Activities, 2)
	assert.Equal(t, int64(1), out.Activities[0].ID)
	assert.Equal(t, int64(6), out.Activities[1].ID)
}

func TestLogActivityHandler(t *testing.T) {
	_, deps := setupTestDeps(t)
	h := NewActivityHandlers(deps)
	ctx := context.Background()

	_, out, err := h.LogActivity(ctx, nil, LogActivityInput{Type: models.ActivityMeeting, Description: "Onsite demo", ContactID: 3})
	require.NoError(t, err)
	assert.NotZero(t, out.ID)
	assert.Equal(t, testNow.Format(time.RFC3339), out.Timestamp)
	require.NotNil(t, out.ContactID)
	assert.Equal(t, int64(3), *out.ContactID)
	assert.Nil(t, out.DealID)

	top := deps.Feed.Top(1)
	require.Len(t, top, 1)
	assert.Equal(t, "Onsite demo", top[0].Description)

	_, _, err = h.LogActivity(ctx, nil, LogActivityInput{Type: "lunch", Description: "x"})
	assert.Error(t, err)
}

func TestDashboardMetricsHandler(t *testing.T) {
	_, deps := setupTestDeps(t)
	h := NewDashboardHandlers(deps)

	_, out, err := h.DashboardMetrics(context.Background(), nil, DashboardMetricsInput{})
	require.NoError(t, err)
	assert.Equal(t, 6, out.TotalContacts)
	assert.Equal(t, 3, out.ActiveDeals)
	assert.Equal(t, 33.3, out.ConversionRate)
	assert.Equal(t, 73000.0, out.TotalRevenue)
	require.Len(t, out.Recent, 5)
	assert.Equal(t, "Sarah Johnson", out.Recent[0].ContactName)
	assert.Equal(t, "Enterprise Software License", out.Recent[0].DealTitle)
	assert.Equal(t, testNow.Format(time.RFC3339), out.LastUpdated)
}

func TestEmailHandlers(t *testing.T) {
	_, deps := setupTestDeps(t)
	h := NewEmailHandlers(deps)
	ctx := context.Background()

	_, draft, err := h.DraftEmail(ctx, nil, DraftEmailInput{ContactID: 1, TemplateID: 1})
	require.NoError(t, err)
	assert.Equal(t, "sarah.johnson@techcorp.com", draft.To)
	assert.Equal(t, "Following up, Sarah Johnson", draft.Subject)

	_, _, err = h.DraftEmail(ctx, nil, DraftEmailInput{})
	assert.EqualError(t, err, "contact_id or deal_id is required")

	_, sent, err := h.SendEmail(ctx, nil, SendEmailInput{To: draft.To, Subject: "Hi", Body: "Checking in", ContactID: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, sent.MessageID)

	top := deps.Feed.Top(1)
	require.Len(t, top, 1)
	assert.Equal(t, "Sent email: Hi", top[0].Description)
}

func TestReadResource(t *testing.T) {
	_, deps := setupTestDeps(t)
	h := NewResourceHandlers(deps.Gateway)
	ctx := context.Background()

	for _, r := range Resources {
		res, err := h.ReadResource(ctx, &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: r.URI}})
		require.NoError(t, err, r.URI)
		require.Len(t, res.Contents, 1)
		assert.Equal(t, r.URI, res.Contents[0].URI)
	}

	res, err := h.ReadResource(ctx, &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: "crm://pipeline"}})
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, `"label": "Proposal"`)

	_, err = h.ReadResource(ctx, &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: "crm://companies"}})
	assert.Error(t, err)
	_, err = h.ReadResource(ctx, &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: "http://contacts"}})
	assert.Error(t, err)
}

func TestGetPrompt(t *testing.T) {
	_, deps := setupTestDeps(t)
	h := NewPromptHandlers(deps.Gateway, deps.Now)
	ctx := context.Background()

	res, err := h.GetPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{
		Name:      "follow-up-suggestions",
		Arguments: map[string]string{"bucket": "older"},
	}})
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	text := res.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, "David Park")
	assert.Contains(t, text, "Lisa Thompson")
	assert.NotContains(t, text, "Sarah Johnson")

	res, err = h.GetPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "deal-analysis"}})
	require.NoError(t, err)
	assert.Contains(t, res.Messages[0].Content.(*mcp.TextContent).Text, "Proposal: 1 deals, $75000")

	_, err = h.GetPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "nope"}})
	assert.Error(t, err)
}

func TestNewServerRegistersTools(t *testing.T) {
	_, deps := setupTestDeps(t)
	assert.NotPanics(t, func() {
		NewServer(deps, "test")
	})
}
