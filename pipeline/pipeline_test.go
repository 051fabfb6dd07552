package pipeline

import (
	"testing"

	"github.com/harperreed/crmdeck/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDeals() []models.Deal {
	return []models.Deal{
		{ID: 1, Title: "A", Value: 75000, Stage: models.StageProposal},
		{ID: 2, Title: "B", Value: 15000, Stage: models.StageQualified},
		{ID: 3, Title: "C", Value: 42000, Stage: models.StageWon},
		{ID: 4, Title: "D", Value: 28000, Stage: models.StageLost},
		{ID: 5, Title: "E", Value: 9500, Stage: models.StageLead},
		{ID: 6, Title: "F", Value: 31000, Stage: models.StageWon},
		{ID: 7, Title: "G", Value: 1000, Stage: "negotiation"},
	}
}

func TestGroupByStageOrderAndTotals(t *testing.T) {
	board := GroupByStage(sampleDeals(), DefaultStages)

	require.Len(t, board.Columns, 5)
	var order []string
	for _, c := range board.Columns {
		order = append(order, c.Stage.ID)
	}
	assert.Equal(t, []string{"lead", "qualified", "proposal", "won", "lost"}, order)

	won, ok := board.Column(models.StageWon)
	require.True(t, ok)
	assert.Equal(t, 2, won.Count())
	assert.Equal(t, 73000.0, won.TotalValue)
	assert.Equal(t, int64(3), won.Deals[0].ID)
	assert.Equal(t, int64(6), won.Deals[1].ID)
}

func TestUnknownStageExcludedFromEveryColumn(t *testing.T) {
	deals := sampleDeals()
	board := GroupByStage(deals, DefaultStages)

	assert.Equal(t, 1, board.Excluded)
	assert.Equal(t, 6, board.Count())

	var inList float64
	for _, d := range deals {
		if models.IsValidStage(d.Stage) {
			inList += d.Value
		}
	}
	assert.Equal(t, inList, board.TotalValue())
}

func TestEmptyColumnsArePresent(t *testing.T) {
	board := GroupByStage(nil, DefaultStages)
	require.Len(t, board.Columns, 5)
	for _, c := range board.Columns {
		assert.NotNil(t, c.Deals)
		assert.Zero(t, c.TotalValue)
	}
}

func TestCustomStageList(t *testing.T) {
	board := GroupByStage(sampleDeals(), []Stage{{ID: models.StageWon, Label: "Closed"}})
	require.Len(t, board.Columns, 1)
	assert.Equal(t, 73000.0, board.TotalValue())
	assert.Equal(t, 5, board.Excluded)
}

func TestNewProposalIncreasesBucket(t *testing.T) {
	deals := sampleDeals()
	before, _ := GroupByStage(deals, DefaultStages).Column(models.StageProposal)

	deals = append(deals, models.Deal{ID: 8, Title: "New", Value: 5000, Stage: models.StageProposal})
	after, _ := GroupByStage(deals, DefaultStages).Column(models.StageProposal)

	assert.Equal(t, before.TotalValue+5000, after.TotalValue)
	assert.Equal(t, before.Count()+1, after.Count())
}

func TestActiveDeals(t *testing.T) {
	assert.Equal(t, 4, ActiveDeals(sampleDeals()))
}
