// ABOUTME: Deal and pipeline CLI commands
// ABOUTME: Creates and moves deals and renders the stage board as bars or a Graphviz graph
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harperreed/crmdeck/models"
	"github.com/harperreed/crmdeck/pages"
	"github.com/harperreed/crmdeck/viz"
)

func DealsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "deals",
		Aliases: []string{"deal"},
		Short:   "Create, move and delete deals",
	}
	cmd.AddCommand(dealsListCmd(app))
	cmd.AddCommand(dealsAddCmd(app))
	cmd.AddCommand(dealsMoveCmd(app))
	cmd.AddCommand(dealsDeleteCmd(app))
	return cmd
}

func dealsListCmd(app *App) *cobra.Command {
	var stage string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List deals in pipeline order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := app.dealsPage(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tTITLE\tCONTACT\tSTAGE\tVALUE\tPROBABILITY\tEXPECTED CLOSE")
			_, _ = fmt.Fprintln(w, "--\t-----\t-------\t-----\t-----\t-----------\t--------------")
			rows := 0
			for _, col := range page.Board().Columns {
				if stage != "" && col.Stage.ID != stage {
					continue
				}
				for _, d := range col.Deals {
					closeDate := "-"
					if d.ExpectedClose != nil {
						closeDate = d.ExpectedClose.Format("2006-01-02")
					}
					_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%.0f%%\t%s\n",
						d.ID, d.DisplayName(), page.ContactName(d.ContactID), d.Stage,
						viz.FormatMoney(d.Value), d.Probability, closeDate)
					rows++
				}
			}
			if rows == 0 {
				app.printf("No deals found.\n")
				return nil
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "Only show one stage")
	return cmd
}

func dealsAddCmd(app *App) *cobra.Command {
	var (
		deal          models.Deal
		expectedClose string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a deal and log it on the activity feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if expectedClose != "" {
				t, err := time.Parse("2006-01-02", expectedClose)
				if err != nil {
					return fmt.Errorf("invalid --close date %q (want YYYY-MM-DD)", expectedClose)
				}
				deal.ExpectedClose = &t
			}
			page, err := app.dealsPage(cmd.Context())
			if err != nil {
				return err
			}
			saved, err := page.SaveDeal(cmd.Context(), deal)
			if err != nil {
				return fmt.Errorf("failed to create deal: %w", err)
			}
			app.printf("%s Deal created: %s (ID: %d)\n", okMark, saved.DisplayName(), saved.ID)
			app.printf("  Stage: %s\n", saved.Stage)
			app.printf("  Value: %s\n", viz.FormatMoney(saved.Value))
			if name := page.ContactName(saved.ContactID); name != "" {
				app.printf("  Contact: %s\n", name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&deal.Title, "title", "", "Deal title (required)")
	cmd.Flags().Float64Var(&deal.Value, "value", 0, "Deal value")
	cmd.Flags().Int64Var(&deal.ContactID, "contact", 0, "Contact id (required)")
	cmd.Flags().StringVar(&deal.Stage, "stage", models.StageLead, "Stage: "+strings.Join(models.Stages, ", "))
	cmd.Flags().Float64Var(&deal.Probability, "probability", 0, "Win probability, 0 to 100")
	cmd.Flags().StringVar(&expectedClose, "close", "", "Expected close date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("contact")
	return cmd
}

func dealsMoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <stage>",
		Short: "Move a deal to another pipeline stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			page, err := app.dealsPage(cmd.Context())
			if err != nil {
				return err
			}
			moved, err := page.MoveDeal(cmd.Context(), id, args[1])
			if err != nil {
				return fmt.Errorf("failed to move deal: %w", err)
			}
			app.printf("%s %s moved to %s\n", okMark, moved.DisplayName(), moved.Stage)
			return nil
		},
	}
}

func dealsDeleteCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a deal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			page, err := app.dealsPage(cmd.Context())
			if err != nil {
				return err
			}
			err = page.DeleteDeal(cmd.Context(), id, func(title string) bool {
				return yes || app.confirm(fmt.Sprintf("Delete deal %q?", title))
			})
			if err != nil {
				return fmt.Errorf("failed to delete deal: %w", err)
			}
			app.printf("%s Deal %d deleted\n", okMark, id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func PipelineCmd(app *App) *cobra.Command {
	var (
		dot    bool
		output string
	)
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Show deals grouped by stage",
		Long: `Show the deal pipeline: one bar per stage with its deal count and total value.

With --dot the pipeline is rendered as a Graphviz DOT graph instead; --output
writes it to a file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := app.dealsPage(cmd.Context())
			if err != nil {
				return err
			}
			board := page.Board()

			if dot || output != "" {
				src, err := viz.GeneratePipelineGraph(cmd.Context(), board, page.Contacts())
				if err != nil {
					return err
				}
				if output == "" {
					app.printf("%s", src)
					return nil
				}
				if err := os.WriteFile(output, []byte(src), 0644); err != nil {
					return fmt.Errorf("failed to write graph: %w", err)
				}
				app.printf("%s Pipeline graph written to %s\n", okMark, output)
				return nil
			}

			var out strings.Builder
			viz.RenderPipeline(&out, board)
			for _, col := range board.Columns {
				if col.Count() == 0 {
					continue
				}
				out.WriteString(fmt.Sprintf("\n%s\n", col.Stage.Label))
				for _, d := range col.Deals {
					out.WriteString(fmt.Sprintf("  %-30s %-20s %s\n", d.DisplayName(), page.ContactName(d.ContactID), viz.FormatMoney(d.Value)))
				}
			}
			out.WriteString(fmt.Sprintf("\nTotal pipeline value: %s\n", viz.FormatMoney(board.TotalValue())))
			app.printf("%s", out.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&dot, "dot", false, "Print the pipeline as Graphviz DOT")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the DOT graph to a file")
	return cmd
}

func (a *App) dealsPage(ctx context.Context) (*pages.Deals, error) {
	deps, err := a.Deps(ctx)
	if err != nil {
		return nil, err
	}
	page := pages.NewDeals(deps)
	if err := page.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load deals: %w", err)
	}
	return page, nil
}
