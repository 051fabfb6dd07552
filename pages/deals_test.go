package pages

import (
	"context"
	"testing"

	"github.com/harperreed/crmdeck/gateway"
	"github.com/harperreed/crmdeck/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadedDeals(t *testing.T) (*harness, *Deals) {
	t.Helper()
	h := newHarness(t)
	p := NewDeals(h.deps)
	require.NoError(t, p.Load(context.Background()))
	return h, p
}

func TestSaveDealFlowsIntoPipelineAndFeed(t *testing.T) {
	h, p := loadedDeals(t)
	ctx := context.Background()

	before, ok := p.Board().Column(models.StageProposal)
	require.True(t, ok)

	saved, err := p.SaveDeal(ctx, models.Deal{Title: "Warehouse Sensors", Value: 5000, Stage: models.StageProposal, ContactID: 3, Probability: 50})
	require.NoError(t, err)

	after, _ := p.Board().Column(models.StageProposal)
	assert.Equal(t, before.TotalValue+5000, after.TotalValue)
	assert.Equal(t, before.Count()+1, after.Count())

	top := h.deps.Feed.Top(1)
	require.Len(t, top, 1)
	assert.Equal(t, models.ActivityNote, top[0].Type)
	assert.Equal(t, "Created new deal: Warehouse Sensors (proposal)", top[0].Description)
	require.NotNil(t, top[0].DealID)
	assert.Equal(t, saved.ID, *top[0].DealID)

	assert.Equal(t, []string{"activityCreated", "dataChanged"}, h.order)
	require.Len(t, h.activity, 1)
	require.NotNil(t, h.activity[0].Deal)
	assert.Equal(t, saved.ID, h.activity[0].Deal.ID)

	require.NoError(t, h.deps.Feed.Load(ctx, h.deps.Gateway.Activities, false))
	latest := h.deps.Feed.Top(1)[0]
	assert.Equal(t, models.ActivityNote, latest.Type)
	assert.Equal(t, saved.ID, *latest.DealID)
	assert.Equal(t, int64(3), *latest.ContactID)
}

func TestSaveDealUpdateDescribesUpdate(t *testing.T) {
	h, p := loadedDeals(t)
	deal := p.All()[0]
	deal.Stage = models.StageWon

	_, err := p.SaveDeal(context.Background(), deal)
	require.NoError(t, err)
	assert.Equal(t, "Updated deal: Enterprise Software License (won)", h.deps.Feed.Top(1)[0].Description)
	assert.Equal(t, "Deal updated successfully", h.lastNotice(t).Message)
}

func TestSaveDealSurvivesActivityFailure(t *testing.T) {
	h, p := loadedDeals(t)
	h.mem.InjectFailure(gateway.EntityActivity, gateway.OpCreate, 0, "activity store down")

	saved, err := p.SaveDeal(context.Background(), models.Deal{Title: "Quiet Deal", Value: 100, ContactID: 1})
	require.NoError(t, err)
	assert.Equal(t, models.StageLead, saved.Stage)
	assert.Empty(t, h.deps.Feed.Top(1))
	assert.Empty(t, h.activity)
	assert.Equal(t, []string{"dataChanged"}, h.order)
	assert.Equal(t, 1, h.logs.FilterMessage("failed to record deal activity").Len())
}

func TestSaveDealValidation(t *testing.T) {
	h, p := loadedDeals(t)
	_, err := p.SaveDeal(context.Background(), models.Deal{Value: -5, Probability: 120})

	var verrs models.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "title")
	assert.Contains(t, verrs, "value")
	assert.Contains(t, verrs, "contact_id")
	assert.Contains(t, verrs, "probability")
	assert.Empty(t, h.order)
}

func TestMoveDeal(t *testing.T) {
	h, p := loadedDeals(t)

	_, err := p.MoveDeal(context.Background(), 2, "negotiation")
	var verrs models.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	moved, err := p.MoveDeal(context.Background(), 2, models.StageWon)
	require.NoError(t, err)
	assert.Equal(t, models.StageWon, moved.Stage)

	won, _ := p.Board().Column(models.StageWon)
	assert.Equal(t, 3, won.Count())
	assert.Equal(t, []string{"dataChanged"}, h.order)
}

func TestDeleteDeal(t *testing.T) {
	h, p := loadedDeals(t)

	assert.ErrorIs(t, p.DeleteDeal(context.Background(), 4, func(string) bool { return false }), ErrNotConfirmed)

	var title string
	require.NoError(t, p.DeleteDeal(context.Background(), 4, func(s string) bool { title = s; return true }))
	assert.Equal(t, "Compliance Audit Tooling", title)
	assert.Len(t, p.All(), 5)
	assert.Equal(t, 5, p.Board().Count())
	assert.Len(t, h.changed, 1)
	assert.Equal(t, "David Park", p.ContactName(4))
}
