// ABOUTME: Tests for the cobra command tree against the in-memory backend
// ABOUTME: Runs each command end to end and checks its printed output
package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harperreed/crmdeck/config"
)

// run executes args against a fresh mock-backed app.
func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	var out bytes.Buffer
	app := &App{
		Version: "test",
		Config:  cfg,
		Logger:  zap.NewNop(),
		Out:     &out,
		In:      strings.NewReader(""),
	}
	root := NewRootCmd(app)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	app.Close()
	return out.String(), err
}

func TestContactsList(t *testing.T) {
	out, err := run(t, nil, "contacts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Sarah Johnson")
	assert.Contains(t, out, "James Wilson")
	assert.Contains(t, out, "6 contacts")
}

func TestContactsListFilters(t *testing.T) {
	out, err := run(t, nil, "contacts", "list", "--status", "lead")
	require.NoError(t, err)
	assert.Contains(t, out, "Michael Chen")
	assert.Contains(t, out, "Lisa Thompson")
	assert.NotContains(t, out, "Sarah Johnson")
	assert.Contains(t, out, "2 contacts")

	out, err = run(t, nil, "contacts", "list", "--last-contacted", "older")
	require.NoError(t, err)
	assert.Contains(t, out, "David Park")
	assert.Contains(t, out, "Lisa Thompson")
	assert.Contains(t, out, "never")
	assert.NotContains(t, out, "Emily Rodriguez")

	out, err = run(t, nil, "contacts", "list", "-q", "INNOVATE")
	require.NoError(t, err)
	assert.Contains(t, out, "Michael Chen")
	assert.Contains(t, out, "1 contacts")

	out, err = run(t, nil, "contacts", "list", "-q", "nobody-matches-this")
	require.NoError(t, err)
	assert.Contains(t, out, "No contacts found.")
}

func TestContactsAdd(t *testing.T) {
	out, err := run(t, nil, "contacts", "add", "--name", "Ada Lovelace", "--email", "ada@example.com", "--company", "Analytical Engines", "--tags", "math, engines")
	require.NoError(t, err)
	assert.Contains(t, out, "Contact created: Ada Lovelace (ID: 7)")
	assert.Contains(t, out, "Email: ada@example.com")
	assert.Contains(t, out, "Company: Analytical Engines")
	assert.Contains(t, out, "Status: lead")
	assert.Contains(t, out, "Tags: math, engines")
}

func TestContactsAddRejectsBadEmail(t *testing.T) {
	_, err := run(t, nil, "contacts", "add", "--name", "Ada", "--email", "not-an-email", "--company", "Engines")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create contact")
}

func TestContactsUpdate(t *testing.T) {
	out, err := run(t, nil, "contacts", "update", "2", "--status", "active")
	require.NoError(t, err)
	assert.Contains(t, out, "Contact updated: Michael Chen (ID: 2)")
	assert.Contains(t, out, "Status: active")

	_, err = run(t, nil, "contacts", "update", "99", "--status", "active")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contact 99 not found")
}

func TestContactsDeleteNeedsConfirmation(t *testing.T) {
	_, err := run(t, nil, "contacts", "delete", "4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not confirmed")

	out, err := run(t, nil, "contacts", "delete", "4", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Contact 4 deleted")
}

func TestContactsBulkUpdate(t *testing.T) {
	out, err := run(t, nil, "contacts", "bulk-update", "2,5", "--value", "active")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated 2 contacts")
}

func TestContactsBulkUpdateUnknownIDs(t *testing.T) {
	_, err := run(t, nil, "contacts", "bulk-update", "98", "99", "--value", "active")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the given contacts exist")
}

func TestContactsBulkDelete(t *testing.T) {
	out, err := run(t, nil, "contacts", "bulk-delete", "2", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")

	out, err = run(t, nil, "contacts", "bulk-delete", "2", "5", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 2 contacts")
}

func TestDealsMove(t *testing.T) {
	out, err := run(t, nil, "deals", "move", "1", "won")
	require.NoError(t, err)
	assert.Contains(t, out, "Enterprise Software License moved to won")

	_, err = run(t, nil, "deals", "move", "1", "bogus")
	require.Error(t, err)
}

func TestDealsAddAndList(t *testing.T) {
	out, err := run(t, nil, "deals", "add", "--title", "Support Renewal", "--value", "12000", "--contact", "3", "--close", "2030-01-15")
	require.NoError(t, err)
	assert.Contains(t, out, "Deal created: Support Renewal")
	assert.Contains(t, out, "Stage: lead")
	assert.Contains(t, out, "Value: $12,000")
	assert.Contains(t, out, "Contact: Emily Rodriguez")

	_, err = run(t, nil, "deals", "add", "--title", "Bad Date", "--contact", "3", "--close", "next week")
	require.Error(t, err)

	out, err = run(t, nil, "deals", "list", "--stage", "won")
	require.NoError(t, err)
	assert.Contains(t, out, "Retail POS Integration")
	assert.Contains(t, out, "Site Management Suite")
	assert.NotContains(t, out, "Patient Portal Pilot")
}

func TestPipeline(t *testing.T) {
	out, err := run(t, nil, "pipeline")
	require.NoError(t, err)
	assert.Contains(t, out, "Proposal")
	assert.Contains(t, out, "Enterprise Software License")
	assert.Contains(t, out, "Total pipeline value: $200,500")
}

func TestPipelineDOT(t *testing.T) {
	out, err := run(t, nil, "pipeline", "--dot")
	require.NoError(t, err)
	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, "stage_lead")
}

func TestActivitiesListAndLog(t *testing.T) {
	out, err := run(t, nil, "activities", "list", "--type", "call")
	require.NoError(t, err)
	assert.Contains(t, out, "Discovery call about licensing tiers")
	assert.Contains(t, out, "Contract signed, kickoff scheduled")
	assert.NotContains(t, out, "Quarterly business review")

	out, err = run(t, nil, "activities", "log", "--type", "call", "-d", "Intro call", "--contact", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged call (ID: 7)")

	_, err = run(t, nil, "activities", "log", "--type", "fax", "-d", "Sent a fax")
	require.Error(t, err)
}

func TestDashboard(t *testing.T) {
	out, err := run(t, nil, "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "CRMDECK DASHBOARD")
	assert.Contains(t, out, "6 contacts  3 active deals  33.3% conversion  $73,000 revenue")
	assert.Contains(t, out, "Discovery call about licensing tiers")
}

func TestEmailDraftAndSend(t *testing.T) {
	out, err := run(t, nil, "email", "draft", "--contact", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "To:      sarah.johnson@techcorp.com")
	assert.Contains(t, out, "Subject: Follow-up: Sarah Johnson")

	out, err = run(t, nil, "email", "draft", "--deal", "1", "--template", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Subject: Proposal: Enterprise Software License")

	_, err = run(t, nil, "email", "draft")
	require.Error(t, err)

	out, err = run(t, nil, "email", "send", "--contact", "1", "--body", "Checking in.")
	require.NoError(t, err)
	assert.Contains(t, out, "Email sent to sarah.johnson@techcorp.com")
	assert.Contains(t, out, "Message ID:")
}

func TestEmailTemplates(t *testing.T) {
	out, err := run(t, nil, "email", "templates")
	require.NoError(t, err)
	assert.Contains(t, out, "Follow-up")
	assert.Contains(t, out, "Proposal")
	assert.Contains(t, out, "Introduction")
}

func TestSessionPersistsInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.RedisURL = "redis://" + mr.Addr()

	out, err := run(t, cfg, "session", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")

	out, err = run(t, cfg, "session", "login", "--name", "Pat Doe", "--email", "pat@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Pat Doe")

	out, err = run(t, cfg, "session", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Pat Doe <pat@example.com>")

	_, err = run(t, cfg, "session", "logout")
	require.NoError(t, err)
	out, err = run(t, cfg, "session", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")
}

func TestSyncWipeWithoutConfirm(t *testing.T) {
	out, err := run(t, nil, "sync", "wipe")
	require.NoError(t, err)
	assert.Contains(t, out, "crmdeck sync wipe --confirm")
}

func TestUnknownBackend(t *testing.T) {
	_, err := run(t, nil, "--backend", "bogus", "contacts", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"1,2", " 3 "})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	_, err = parseIDs([]string{"x"})
	assert.Error(t, err)

	_, err = parseIDs([]string{"0"})
	assert.Error(t, err)
}
