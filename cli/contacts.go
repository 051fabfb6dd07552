// ABOUTME: Contact CLI commands
// ABOUTME: Filtered listing, single saves and the bulk status/delete workflow
package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harperreed/crmdeck/filter"
	"github.com/harperreed/crmdeck/models"
	"github.com/harperreed/crmdeck/pages"
	"github.com/harperreed/crmdeck/selection"
)

func ContactsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contacts",
		Aliases: []string{"contact"},
		Short:   "List, save and bulk-edit contacts",
	}
	cmd.AddCommand(contactsListCmd(app))
	cmd.AddCommand(contactsAddCmd(app))
	cmd.AddCommand(contactsUpdateCmd(app))
	cmd.AddCommand(contactsDeleteCmd(app))
	cmd.AddCommand(contactsBulkUpdateCmd(app))
	cmd.AddCommand(contactsBulkDeleteCmd(app))
	return cmd
}

func contactsListCmd(app *App) *cobra.Command {
	var criteria filter.Criteria
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contacts matching a search term, status and recency bucket",
		Long: `List contacts. Filters combine:

  --query            matches name, email or company (case-insensitive)
  --status           lead, active or inactive
  --last-contacted   today, week, month or older (older includes never contacted)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := app.contactsPage(cmd.Context())
			if err != nil {
				return err
			}
			page.SetCriteria(criteria)
			app.printContacts(page.View())
			return nil
		},
	}
	cmd.Flags().StringVarP(&criteria.SearchTerm, "query", "q", "", "Search by name, email or company")
	cmd.Flags().StringVar(&criteria.Status, "status", "", "Filter by status")
	cmd.Flags().StringVar(&criteria.LastContacted, "last-contacted", "", "Filter by last contact: today, week, month or older")
	return cmd
}

type contactFlags struct {
	name, email, phone, company, status, tags string
}

func (f *contactFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Contact name")
	cmd.Flags().StringVar(&f.email, "email", "", "Email address")
	cmd.Flags().StringVar(&f.phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&f.company, "company", "", "Company name")
	cmd.Flags().StringVar(&f.status, "status", "", "Status: lead, active or inactive")
	cmd.Flags().StringVar(&f.tags, "tags", "", "Comma-separated tags")
}

// apply copies the flags the user actually set onto c.
func (f *contactFlags) apply(cmd *cobra.Command, c *models.Contact) {
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("name", &c.Name, f.name)
	set("email", &c.Email, f.email)
	set("phone", &c.Phone, f.phone)
	set("company", &c.Company, f.company)
	set("status", &c.Status, f.status)
	if cmd.Flags().Changed("tags") {
		c.Tags = models.SplitTags(f.tags)
	}
}

func contactsAddCmd(app *App) *cobra.Command {
	var flags contactFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a contact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := app.contactsPage(cmd.Context())
			if err != nil {
				return err
			}
			c := models.Contact{Status: models.StatusLead}
			flags.apply(cmd, &c)

			saved, err := page.Save(cmd.Context(), c)
			if err != nil {
				return fmt.Errorf("failed to create contact: %w", err)
			}
			app.printf("%s Contact created: %s (ID: %d)\n", okMark, saved.Name, saved.ID)
			app.printContactDetail(saved)
			return nil
		},
	}
	flags.bind(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}

func contactsUpdateCmd(app *App) *cobra.Command {
	var flags contactFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields on one contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			page, err := app.contactsPage(cmd.Context())
			if err != nil {
				return err
			}
			existing, ok := findContact(page.All(), id)
			if !ok {
				return fmt.Errorf("contact %d not found", id)
			}
			flags.apply(cmd, &existing)

			saved, err := page.Save(cmd.Context(), existing)
			if err != nil {
				return fmt.Errorf("failed to update contact: %w", err)
			}
			app.printf("%s Contact updated: %s (ID: %d)\n", okMark, saved.Name, saved.ID)
			app.printContactDetail(saved)
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func contactsDeleteCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			page, err := app.contactsPage(cmd.Context())
			if err != nil {
				return err
			}
			if _, ok := findContact(page.All(), id); !ok {
				return fmt.Errorf("contact %d not found", id)
			}
			err = page.Delete(cmd.Context(), id, func(name string) bool {
				return yes || app.confirm(pages.DeleteContactMessage(name))
			})
			if err != nil {
				return fmt.Errorf("failed to delete contact: %w", err)
			}
			app.printf("%s Contact %d deleted\n", okMark, id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func contactsBulkUpdateCmd(app *App) *cobra.Command {
	var field, value string
	cmd := &cobra.Command{
		Use:   "bulk-update <id>...",
		Short: "Set one field on several contacts",
		Long: `Set one field on several contacts at once. Each contact succeeds or fails
independently; failed contacts stay selected and are reported.

Example:
  crmdeck contacts bulk-update 2 5 --field status --value active`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			page, err := app.selectContacts(cmd.Context(), ids)
			if err != nil {
				return err
			}
			out, err := page.BulkUpdate(cmd.Context(), field, value)
			return app.reportBulk("Updated", out, err)
		},
	}
	cmd.Flags().StringVar(&field, "field", "status", "Field to set: "+strings.Join(models.ContactFields, ", "))
	cmd.Flags().StringVar(&value, "value", "", "New value")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func contactsBulkDeleteCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "bulk-delete <id>...",
		Short: "Delete several contacts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			page, err := app.selectContacts(cmd.Context(), ids)
			if err != nil {
				return err
			}
			out, err := page.BulkDelete(cmd.Context(), func(n int) bool {
				return yes || app.confirm(selection.ConfirmDeleteMessage(n))
			})
			return app.reportBulk("Deleted", out, err)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func (a *App) contactsPage(ctx context.Context) (*pages.Contacts, error) {
	deps, err := a.Deps(ctx)
	if err != nil {
		return nil, err
	}
	page := pages.NewContacts(deps)
	if err := page.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}
	return page, nil
}

// selectContacts loads every contact and selects exactly ids.
func (a *App) selectContacts(ctx context.Context, ids []int64) (*pages.Contacts, error) {
	page, err := a.contactsPage(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		page.Selection.Toggle(id, true)
	}
	if page.Selection.Count() == 0 {
		return nil, fmt.Errorf("none of the given contacts exist")
	}
	return page, nil
}

func (a *App) reportBulk(verb string, out selection.Outcome, err error) error {
	switch {
	case errors.Is(err, selection.ErrNotConfirmed):
		a.printf("Cancelled\n")
		return nil
	case err != nil && !errors.Is(err, selection.ErrNoneSucceeded):
		return fmt.Errorf("bulk operation failed: %w", err)
	}

	if n := len(out.Result.Succeeded); n > 0 {
		a.printf("%s %s %d contacts\n", okMark, verb, n)
	}
	for _, f := range out.Result.Failed {
		a.printf("%s contact %d: %s\n", failMark, f.ID, f.Message)
	}
	return err
}

func (a *App) printContacts(list []models.Contact) {
	if len(list) == 0 {
		a.printf("No contacts found.\n")
		return
	}
	w := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tEMAIL\tCOMPANY\tSTATUS\tLAST CONTACTED")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t-------\t------\t--------------")
	for _, c := range list {
		last := "never"
		if c.LastContacted != nil {
			last = c.LastContacted.Format("2006-01-02")
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Email, c.Company, c.Status, last)
	}
	_ = w.Flush()
	a.printf("%s\n", dimText(fmt.Sprintf("%d contacts", len(list))))
}

func (a *App) printContactDetail(c *models.Contact) {
	if c.Email != "" {
		a.printf("  Email: %s\n", c.Email)
	}
	if c.Phone != "" {
		a.printf("  Phone: %s\n", c.Phone)
	}
	if c.Company != "" {
		a.printf("  Company: %s\n", c.Company)
	}
	a.printf("  Status: %s\n", c.Status)
	if len(c.Tags) > 0 {
		a.printf("  Tags: %s\n", strings.Join(c.Tags, ", "))
	}
}

func findContact(list []models.Contact, id int64) (models.Contact, bool) {
	for _, c := range list {
		if c.ID == id {
			return c, true
		}
	}
	return models.Contact{}, false
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			id, err := parseID(part)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
