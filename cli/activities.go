// ABOUTME: Activity and dashboard CLI commands
// ABOUTME: Lists and logs activities and prints the dashboard, optionally refreshing in place
package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harperreed/crmdeck/events"
	"github.com/harperreed/crmdeck/filter"
	"github.com/harperreed/crmdeck/models"
	"github.com/harperreed/crmdeck/pages"
	"github.com/harperreed/crmdeck/viz"
)

var activityTypes = []string{
	models.ActivityCall,
	models.ActivityEmail,
	models.ActivityMeeting,
	models.ActivityNote,
	models.ActivityTask,
}

func ActivitiesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "activities",
		Aliases: []string{"activity"},
		Short:   "List and log activities",
	}
	cmd.AddCommand(activitiesListCmd(app))
	cmd.AddCommand(activitiesLogCmd(app))
	return cmd
}

func activitiesListCmd(app *App) *cobra.Command {
	var (
		criteria filter.ActivityCriteria
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List activities newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := app.Deps(cmd.Context())
			if err != nil {
				return err
			}
			page := pages.NewActivities(deps)
			if err := page.Load(cmd.Context()); err != nil {
				return fmt.Errorf("failed to load activities: %w", err)
			}
			page.SetCriteria(criteria)

			list := page.View()
			if limit > 0 && len(list) > limit {
				list = list[:limit]
			}
			if len(list) == 0 {
				app.printf("No activities found.\n")
				return nil
			}

			w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "WHEN\tTYPE\tDESCRIPTION")
			_, _ = fmt.Fprintln(w, "----\t----\t-----------")
			for _, a := range list {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", a.Timestamp.Local().Format("2006-01-02 15:04"), a.Type, a.Description)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&criteria.SearchTerm, "query", "q", "", "Search descriptions")
	cmd.Flags().StringVar(&criteria.Type, "type", "", "Filter by type: "+strings.Join(activityTypes, ", "))
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum results (0 for all)")
	return cmd
}

func activitiesLogCmd(app *App) *cobra.Command {
	var (
		activity  models.Activity
		contactID int64
		dealID    int64
	)
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record a call, email, meeting, note or task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if contactID != 0 {
				activity.ContactID = &contactID
			}
			if dealID != 0 {
				activity.DealID = &dealID
			}
			deps, err := app.Deps(cmd.Context())
			if err != nil {
				return err
			}
			created, err := pages.NewActivities(deps).Create(cmd.Context(), activity)
			if err != nil {
				return fmt.Errorf("failed to log activity: %w", err)
			}
			app.printf("%s Logged %s (ID: %d)\n", okMark, created.Type, created.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&activity.Type, "type", models.ActivityNote, "Activity type: "+strings.Join(activityTypes, ", "))
	cmd.Flags().StringVarP(&activity.Description, "description", "d", "", "What happened (required)")
	cmd.Flags().Int64Var(&contactID, "contact", 0, "Related contact id")
	cmd.Flags().Int64Var(&dealID, "deal", 0, "Related deal id")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func DashboardCmd(app *App) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show metrics, the pipeline and recent activity",
		Long: `Show the dashboard: contact and deal counts, conversion rate, revenue, the
pipeline by stage and the five most recent activities.

With --watch the dashboard stays mounted, refreshing on the configured interval
and whenever data changes, until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := app.Deps(cmd.Context())
			if err != nil {
				return err
			}
			dash := pages.NewDashboard(deps)
			if !watch {
				if err := dash.Refresh(cmd.Context()); err != nil {
					return fmt.Errorf("failed to load dashboard: %w", err)
				}
				app.printf("%s", viz.RenderDashboard(dash.View()))
				return nil
			}
			return app.watchDashboard(cmd.Context(), deps, dash)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep refreshing until interrupted")
	return cmd
}

// watchDashboard redraws whenever the bus reports a change or the refresh
// interval passes.
func (a *App) watchDashboard(ctx context.Context, deps pages.Deps, dash *pages.Dashboard) error {
	if err := dash.Mount(ctx); err != nil {
		a.Logger.Warn("initial dashboard load failed", zap.Error(err))
	}
	defer dash.Unmount()

	changed := make(chan struct{}, 1)
	wake := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}
	defer deps.Bus.OnDataChanged(func(events.DataChanged) { wake() })()
	defer deps.Bus.OnActivityCreated(func(events.ActivityCreated) { wake() })()

	ticker := time.NewTicker(deps.Interval)
	defer ticker.Stop()

	for {
		a.printf("\033[H\033[2J%s", viz.RenderDashboard(dash.View()))
		a.printf("%s\n", dimText("Watching; press ctrl+c to stop."))
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-changed:
		}
	}
}
