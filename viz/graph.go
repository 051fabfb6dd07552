// ABOUTME: Pipeline graph generation with graphviz
// ABOUTME: Renders stages, deals and their contacts as a left-to-right DOT graph
package viz

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/harperreed/crmdeck/models"
	"github.com/harperreed/crmdeck/pipeline"
)

// GeneratePipelineGraph draws each stage column as a box chained in
// pipeline order, each deal as a diamond under its stage, and links every
// deal to its contact when the contact is known.
func GeneratePipelineGraph(ctx context.Context, board pipeline.Board, contacts []models.Contact) (string, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer func() { _ = gv.Close() }()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() { _ = graph.Close() }()

	graph.SetLabel("Sales Pipeline")
	graph.SetRankDir(cgraph.LRRank)

	names := make(map[int64]string, len(contacts))
	for _, c := range contacts {
		names[c.ID] = c.Name
	}

	contactNodes := make(map[int64]*cgraph.Node)
	var prev *cgraph.Node
	for _, col := range board.Columns {
		stageNode, err := graph.CreateNodeByName("stage_" + col.Stage.ID)
		if err != nil {
			return "", fmt.Errorf("failed to create stage node: %w", err)
		}
		stageNode.SetLabel(fmt.Sprintf("%s\n%d deals\n%s", col.Stage.Label, col.Count(), FormatMoney(col.TotalValue)))
		stageNode.SetShape("box")
		stageNode.SetStyle("filled")
		stageNode.SetFillColor("lightblue")

		if prev != nil {
			edge, err := graph.CreateEdgeByName("next", prev, stageNode)
			if err != nil {
				return "", fmt.Errorf("failed to create edge: %w", err)
			}
			edge.SetStyle("bold")
		}
		prev = stageNode

		for _, deal := range col.Deals {
			node, err := graph.CreateNodeByName(fmt.Sprintf("deal_%d", deal.ID))
			if err != nil {
				return "", fmt.Errorf("failed to create deal node: %w", err)
			}
			node.SetLabel(fmt.Sprintf("%s\n%s", deal.DisplayName(), FormatMoney(deal.Value)))
			node.SetShape("diamond")
			node.SetStyle("filled")
			node.SetFillColor("lightyellow")

			if _, err := graph.CreateEdgeByName("in_stage", stageNode, node); err != nil {
				return "", fmt.Errorf("failed to create edge: %w", err)
			}

			name, ok := names[deal.ContactID]
			if !ok {
				continue
			}
			contactNode, seen := contactNodes[deal.ContactID]
			if !seen {
				contactNode, err = graph.CreateNodeByName(fmt.Sprintf("contact_%d", deal.ContactID))
				if err != nil {
					return "", fmt.Errorf("failed to create contact node: %w", err)
				}
				contactNode.SetLabel(name)
				contactNode.SetShape("ellipse")
				contactNode.SetStyle("filled")
				contactNode.SetFillColor("lightgreen")
				contactNodes[deal.ContactID] = contactNode
			}
			edge, err := graph.CreateEdgeByName("contact_for", node, contactNode)
			if err != nil {
				return "", fmt.Errorf("failed to create edge: %w", err)
			}
			edge.SetStyle("dotted")
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}
