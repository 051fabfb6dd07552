// ABOUTME: Deals container: pipeline board, deal form and stage moves
// ABOUTME: Every saved deal leaves a note activity in the shared feed
package pages

import (
	"context"
	"fmt"
	"sync"

	"github.com/harperreed/crmdeck/gateway"
	"github.com/harperreed/crmdeck/models"
	"github.com/harperreed/crmdeck/notify"
	"github.com/harperreed/crmdeck/pipeline"
	"go.uber.org/zap"
)

type Deals struct {
	deps Deps

	mu       sync.RWMutex
	deals    []models.Deal
	contacts []models.Contact
	err      error
}

func NewDeals(deps Deps) *Deals {
	return &Deals{deps: deps.WithDefaults()}
}

// Load fetches deals and the contacts used to label them.
func (p *Deals) Load(ctx context.Context) error {
	deals, err := p.deps.Gateway.Deals.GetAll(ctx)
	if err != nil {
		logFailure(p.deps.Logger, "failed to load deals", gateway.OpGetAll, gateway.EntityDeal, 0, err)
		p.setErr(err)
		return err
	}
	contacts, err := p.deps.Gateway.Contacts.GetAll(ctx)
	if err != nil {
		logFailure(p.deps.Logger, "failed to load contacts", gateway.OpGetAll, gateway.EntityContact, 0, err)
		p.setErr(err)
		return err
	}
	p.mu.Lock()
	p.deals = deals
	p.contacts = contacts
	p.err = nil
	p.mu.Unlock()
	return nil
}

func (p *Deals) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *Deals) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

func (p *Deals) All() []models.Deal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]models.Deal(nil), p.deals...)
}

// Board groups the loaded deals by pipeline stage.
func (p *Deals) Board() pipeline.Board {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return pipeline.GroupByStage(p.deals, pipeline.DefaultStages)
}

// Contacts returns the contacts loaded alongside the deals.
func (p *Deals) Contacts() []models.Contact {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]models.Contact(nil), p.contacts...)
}

// ContactName labels a deal card.
func (p *Deals) ContactName(id int64) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, c := range p.contacts {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

// SaveDeal validates and persists the form, then records a note activity.
// The activity is best effort: its failure is logged and the saved deal is
// still returned.
func (p *Deals) SaveDeal(ctx context.Context, form models.Deal) (*models.Deal, error) {
	if form.Stage == "" {
		form.Stage = models.StageLead
	}
	if err := models.ValidateDeal(&form); err != nil {
		return nil, err
	}

	creating := form.ID == 0
	var (
		saved *models.Deal
		err   error
	)
	if creating {
		saved, err = p.deps.Gateway.Deals.Create(ctx, &form)
	} else {
		saved, err = p.deps.Gateway.Deals.Update(ctx, form.ID, &form)
	}
	if err != nil {
		op := gateway.OpUpdate
		if creating {
			op = gateway.OpCreate
		}
		logFailure(p.deps.Logger, "failed to save deal", op, gateway.EntityDeal, form.ID, err)
		notify.Error(p.deps.Notifier, "Failed to save deal")
		return nil, err
	}

	p.mu.Lock()
	p.deals = upsertDeal(p.deals, *saved)
	p.mu.Unlock()

	if creating {
		notify.Success(p.deps.Notifier, "Deal created successfully")
	} else {
		notify.Success(p.deps.Notifier, "Deal updated successfully")
	}

	p.recordNote(ctx, saved, creating)
	p.deps.Bus.PublishDataChanged(gateway.EntityDeal)
	return saved, nil
}

func (p *Deals) recordNote(ctx context.Context, deal *models.Deal, creating bool) {
	desc := fmt.Sprintf("Updated deal: %s (%s)", deal.Title, deal.Stage)
	if creating {
		desc = fmt.Sprintf("Created new deal: %s (%s)", deal.Title, deal.Stage)
	}
	note := &models.Activity{
		Type:        models.ActivityNote,
		Description: desc,
		Timestamp:   p.deps.Now(),
		DealID:      int64Ptr(deal.ID),
	}
	if deal.ContactID != 0 {
		note.ContactID = int64Ptr(deal.ContactID)
	}

	created, err := p.deps.Gateway.Activities.Create(ctx, note)
	if err != nil {
		p.deps.Logger.Warn("failed to record deal activity",
			zap.String("op", gateway.OpCreate),
			zap.String("entity", gateway.EntityActivity),
			zap.Int64("deal_id", deal.ID),
			zap.Error(err))
		return
	}
	p.deps.Feed.Append(*created)
	p.deps.Bus.PublishActivityCreated(*created, deal)
}

// MoveDeal changes a deal's stage, as a drag between pipeline columns does.
func (p *Deals) MoveDeal(ctx context.Context, id int64, stage string) (*models.Deal, error) {
	if !models.IsValidStage(stage) {
		return nil, models.ValidationErrors{"stage": fmt.Sprintf("Unknown stage %q", stage)}
	}
	moved, err := p.deps.Gateway.Deals.UpdateStage(ctx, id, stage)
	if err != nil {
		logFailure(p.deps.Logger, "failed to move deal", gateway.OpUpdateStage, gateway.EntityDeal, id, err)
		notify.Error(p.deps.Notifier, "Failed to update deal stage")
		return nil, err
	}
	p.mu.Lock()
	p.deals = upsertDeal(p.deals, *moved)
	p.mu.Unlock()
	p.deps.Bus.PublishDataChanged(gateway.EntityDeal)
	return moved, nil
}

// DeleteDeal removes a deal after confirm approves it.
func (p *Deals) DeleteDeal(ctx context.Context, id int64, confirm func(title string) bool) error {
	title := ""
	p.mu.RLock()
	for _, d := range p.deals {
		if d.ID == id {
			title = d.DisplayName()
		}
	}
	p.mu.RUnlock()

	if confirm == nil || !confirm(title) {
		return ErrNotConfirmed
	}
	if err := p.deps.Gateway.Deals.Delete(ctx, id); err != nil {
		logFailure(p.deps.Logger, "failed to delete deal", gateway.OpDelete, gateway.EntityDeal, id, err)
		notify.Error(p.deps.Notifier, "Failed to delete deal")
		return err
	}

	p.mu.Lock()
	kept := p.deals[:0:0]
	for _, d := range p.deals {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	p.deals = kept
	p.mu.Unlock()

	notify.Success(p.deps.Notifier, "Deal deleted successfully")
	p.deps.Bus.PublishDataChanged(gateway.EntityDeal)
	return nil
}

func upsertDeal(list []models.Deal, d models.Deal) []models.Deal {
	out := append([]models.Deal(nil), list...)
	for i := range out {
		if out[i].ID == d.ID {
			out[i] = d
			return out
		}
	}
	return append(out, d)
}
