// ABOUTME: Contacts container: filter bar, filtered list, single edits and bulk actions
// ABOUTME: Keeps the bulk selection pruned to whatever the filters currently show
package pages

import (
	"context"
	"fmt"
	"sync"

	"github.com/harperreed/crmdeck/filter"
	"github.com/harperreed/crmdeck/gateway"
	"github.com/harperreed/crmdeck/models"
	"github.com/harperreed/crmdeck/notify"
	"github.com/harperreed/crmdeck/selection"
	"go.uber.org/zap"
)

type Contacts struct {
	deps      Deps
	Selection *selection.Workflow

	mu       sync.RWMutex
	all      []models.Contact
	criteria filter.Criteria
	view     []models.Contact
	loaded   bool
	err      error
}

func NewContacts(deps Deps) *Contacts {
	deps = deps.WithDefaults()
	return &Contacts{
		deps:      deps,
		Selection: selection.New(deps.Gateway.Contacts, deps.Notifier, deps.Logger),
	}
}

// Load replaces the local collection. A failure keeps the previous rows and
// is reported through Err for a retry affordance.
func (p *Contacts) Load(ctx context.Context) error {
	all, err := p.deps.Gateway.Contacts.GetAll(ctx)
	if err != nil {
		logFailure(p.deps.Logger, "failed to load contacts", gateway.OpGetAll, gateway.EntityContact, 0, err)
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		return err
	}
	p.mu.Lock()
	p.all = all
	p.loaded = true
	p.err = nil
	p.mu.Unlock()
	p.refilter()
	return nil
}

// Err is the last load failure, nil after a successful load.
func (p *Contacts) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

func (p *Contacts) Criteria() filter.Criteria {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.criteria
}

func (p *Contacts) SetCriteria(c filter.Criteria) {
	p.mu.Lock()
	p.criteria = c
	p.mu.Unlock()
	p.refilter()
}

func (p *Contacts) SetSearch(term string) {
	p.mu.Lock()
	p.criteria.SearchTerm = term
	p.mu.Unlock()
	p.refilter()
}

// refilter recomputes the view and prunes the selection to it.
func (p *Contacts) refilter() {
	p.mu.Lock()
	p.view = filter.ContactsAt(p.all, p.criteria, p.deps.Now())
	ids := make([]int64, len(p.view))
	for i, c := range p.view {
		ids[i] = c.ID
	}
	p.mu.Unlock()
	p.Selection.SetView(ids)
}

// View returns the filtered contacts.
func (p *Contacts) View() []models.Contact {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]models.Contact(nil), p.view...)
}

// All returns every loaded contact regardless of filters.
func (p *Contacts) All() []models.Contact {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]models.Contact(nil), p.all...)
}

// Save creates the contact when it has no id and updates it otherwise.
// Validation errors are returned before any gateway call.
func (p *Contacts) Save(ctx context.Context, c models.Contact) (*models.Contact, error) {
	if err := models.ValidateContact(&c); err != nil {
		return nil, err
	}

	var (
		saved *models.Contact
		err   error
		op    = gateway.OpCreate
	)
	if c.ID == 0 {
		saved, err = p.deps.Gateway.Contacts.Create(ctx, &c)
	} else {
		op = gateway.OpUpdate
		saved, err = p.deps.Gateway.Contacts.Update(ctx, c.ID, &c)
	}
	if err != nil {
		logFailure(p.deps.Logger, "failed to save contact", op, gateway.EntityContact, c.ID, err)
		notify.Error(p.deps.Notifier, "Failed to save contact")
		return nil, err
	}

	p.mu.Lock()
	p.all = upsertContact(p.all, *saved)
	p.mu.Unlock()
	p.refilter()

	if op == gateway.OpCreate {
		notify.Success(p.deps.Notifier, "Contact created successfully")
	} else {
		notify.Success(p.deps.Notifier, "Contact updated successfully")
	}
	p.deps.Bus.PublishDataChanged(gateway.EntityContact)
	return saved, nil
}

// Delete removes one contact after confirm approves it.
func (p *Contacts) Delete(ctx context.Context, id int64, confirm func(name string) bool) error {
	name := ""
	p.mu.RLock()
	for _, c := range p.all {
		if c.ID == id {
			name = c.Name
			break
		}
	}
	p.mu.RUnlock()

	if confirm == nil || !confirm(name) {
		return ErrNotConfirmed
	}
	if err := p.deps.Gateway.Contacts.Delete(ctx, id); err != nil {
		logFailure(p.deps.Logger, "failed to delete contact", gateway.OpDelete, gateway.EntityContact, id, err)
		notify.Error(p.deps.Notifier, "Failed to delete contact")
		return err
	}

	p.mu.Lock()
	kept := p.all[:0:0]
	for _, c := range p.all {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	p.all = kept
	p.mu.Unlock()
	p.refilter()

	notify.Success(p.deps.Notifier, "Contact deleted successfully")
	p.deps.Bus.PublishDataChanged(gateway.EntityContact)
	return nil
}

// BulkUpdate applies field=value to the selection and reconciles the local
// rows that the gateway reports as updated.
func (p *Contacts) BulkUpdate(ctx context.Context, field string, value any) (selection.Outcome, error) {
	out, err := p.Selection.BulkUpdate(ctx, field, value)
	p.reconcile(out, err)
	return out, err
}

// BulkDelete removes the selection after confirm approves the count.
func (p *Contacts) BulkDelete(ctx context.Context, confirm func(n int) bool) (selection.Outcome, error) {
	out, err := p.Selection.BulkDelete(ctx, confirm)
	p.reconcile(out, err)
	return out, err
}

func (p *Contacts) reconcile(out selection.Outcome, err error) {
	if err != nil || len(out.Result.Succeeded) == 0 {
		return
	}
	p.mu.Lock()
	all, applyErr := out.Apply(p.all)
	p.all = all
	p.mu.Unlock()
	if applyErr != nil {
		p.deps.Logger.Warn("bulk result not applied locally",
			zap.String("op", gateway.OpBulkUpdate),
			zap.String("entity", gateway.EntityContact),
			zap.Error(applyErr))
	}
	p.refilter()
	p.deps.Bus.PublishDataChanged(gateway.EntityContact)
}

func upsertContact(list []models.Contact, c models.Contact) []models.Contact {
	for i := range list {
		if list[i].ID == c.ID {
			out := append([]models.Contact(nil), list...)
			out[i] = c
			return out
		}
	}
	return append(append([]models.Contact(nil), list...), c)
}

// DeleteContactMessage is the prompt shown before deleting one contact.
func DeleteContactMessage(name string) string {
	return fmt.Sprintf("Are you sure you want to delete %s?", name)
}
