// ABOUTME: Pipeline aggregation that partitions deals into fixed stage columns
// ABOUTME: Stage order and totals are fixed by the stage list, never derived from data
package pipeline

import (
	"github.com/harperreed/crmdeck/models"
)

// Stage is one column of the pipeline board.
type Stage struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// DefaultStages is the board in display order.
var DefaultStages = []Stage{
	{ID: models.StageLead, Label: "Lead"},
	{ID: models.StageQualified, Label: "Qualified"},
	{ID: models.StageProposal, Label: "Proposal"},
	{ID: models.StageWon, Label: "Won"},
	{ID: models.StageLost, Label: "Lost"},
}

// Column holds the deals in one stage.
type Column struct {
	Stage      Stage         `json:"stage"`
	Deals      []models.Deal `json:"deals"`
	TotalValue float64       `json:"total_value"`
}

func (c Column) Count() int { return len(c.Deals) }

// Board is the grouped pipeline. Excluded counts deals whose stage matched
// no column; those deals appear nowhere else on the board.
type Board struct {
	Columns  []Column `json:"columns"`
	Excluded int      `json:"excluded"`
}

// GroupByStage partitions deals by exact stage match, in stage order.
// Input order is preserved within each column.
func GroupByStage(deals []models.Deal, stages []Stage) Board {
	board := Board{Columns: make([]Column, len(stages))}
	index := make(map[string]int, len(stages))
	for i, s := range stages {
		board.Columns[i] = Column{Stage: s, Deals: []models.Deal{}}
		if _, dup := index[s.ID]; !dup {
			index[s.ID] = i
		}
	}

	for _, d := range deals {
		i, ok := index[d.Stage]
		if !ok {
			board.Excluded++
			continue
		}
		board.Columns[i].Deals = append(board.Columns[i].Deals, d)
		board.Columns[i].TotalValue += d.Value
	}
	return board
}

// Column returns the column for a stage id.
func (b Board) Column(stage string) (Column, bool) {
	for _, c := range b.Columns {
		if c.Stage.ID == stage {
			return c, true
		}
	}
	return Column{}, false
}

// TotalValue sums every column.
func (b Board) TotalValue() float64 {
	var total float64
	for _, c := range b.Columns {
		total += c.TotalValue
	}
	return total
}

// Count is the number of deals placed on the board.
func (b Board) Count() int {
	n := 0
	for _, c := range b.Columns {
		n += len(c.Deals)
	}
	return n
}

// ActiveDeals counts deals that are neither won nor lost.
func ActiveDeals(deals []models.Deal) int {
	n := 0
	for _, d := range deals {
		if models.IsOpen(d.Stage) {
			n++
		}
	}
	return n
}
