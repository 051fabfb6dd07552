// ABOUTME: Email composer container: templates, prefilled drafts and sending
// ABOUTME: A sent message is logged as an email activity when possible
package pages

import (
	"context"
	"fmt"
	"sync"

	"github.com/harperreed/crmdeck/email"
	"github.com/harperreed/crmdeck/gateway"
	"github.com/harperreed/crmdeck/models"
	"github.com/harperreed/crmdeck/notify"
	"go.uber.org/zap"
)

type Composer struct {
	deps Deps

	mu        sync.RWMutex
	templates []models.EmailTemplate
	contact   *models.Contact
	deal      *models.Deal
	draft     email.Draft
}

func NewComposer(deps Deps) *Composer {
	return &Composer{deps: deps.WithDefaults()}
}

// Open starts a draft for the given contact and/or deal. When only a deal
// is given, its contact is looked up to address the message.
func (p *Composer) Open(ctx context.Context, contactID, dealID int64) (email.Draft, error) {
	var (
		contact *models.Contact
		deal    *models.Deal
		err     error
	)
	if dealID != 0 {
		deal, err = p.deps.Gateway.Deals.GetByID(ctx, dealID)
		if err != nil {
			logFailure(p.deps.Logger, "failed to load deal", gateway.OpGetByID, gateway.EntityDeal, dealID, err)
			return email.Draft{}, err
		}
	}
	if contactID != 0 {
		contact, err = p.deps.Gateway.Contacts.GetByID(ctx, contactID)
		if err != nil {
			logFailure(p.deps.Logger, "failed to load contact", gateway.OpGetByID, gateway.EntityContact, contactID, err)
			return email.Draft{}, err
		}
	}

	to := ""
	if contact == nil && deal != nil && deal.ContactID != 0 {
		if c, err := p.deps.Gateway.Contacts.GetByID(ctx, deal.ContactID); err == nil {
			to = c.Email
		}
	}

	d := email.Prefill(contact, deal, to)
	p.mu.Lock()
	p.contact, p.deal, p.draft = contact, deal, d
	p.mu.Unlock()
	return d, nil
}

// Templates loads the template list once and caches it.
func (p *Composer) Templates(ctx context.Context) ([]models.EmailTemplate, error) {
	p.mu.RLock()
	cached := p.templates
	p.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	list, err := p.deps.Gateway.Templates.GetAll(ctx)
	if err != nil {
		logFailure(p.deps.Logger, "failed to load templates", gateway.OpGetAll, gateway.EntityTemplate, 0, err)
		return nil, err
	}
	p.mu.Lock()
	p.templates = list
	p.mu.Unlock()
	return list, nil
}

// UseTemplate renders the template into the current draft against the
// opened contact, deal and current user.
func (p *Composer) UseTemplate(ctx context.Context, templateID int64) (email.Draft, error) {
	list, err := p.Templates(ctx)
	if err != nil {
		return email.Draft{}, err
	}
	var tpl *models.EmailTemplate
	for i := range list {
		if list[i].ID == templateID {
			tpl = &list[i]
			break
		}
	}
	if tpl == nil {
		return email.Draft{}, gateway.NotFound(gateway.OpGetByID, gateway.EntityTemplate, templateID)
	}

	user, _ := p.deps.Session.CurrentUser(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.draft.UseTemplate(*tpl, email.Data{
		Contact: p.contact,
		Deal:    p.deal,
		User:    email.SenderOrDefault(user),
	})
	return p.draft, nil
}

// Draft returns the draft being composed.
func (p *Composer) Draft() email.Draft {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.draft
}

// Edit replaces the draft with user edits.
func (p *Composer) Edit(d email.Draft) {
	p.mu.Lock()
	p.draft = d
	p.mu.Unlock()
}

// Send validates and delivers d. The follow-up email activity is best
// effort and never fails the send.
func (p *Composer) Send(ctx context.Context, d email.Draft) (email.Receipt, error) {
	if err := d.Validate(); err != nil {
		return email.Receipt{}, err
	}
	receipt, err := p.deps.Sender.Send(ctx, d)
	if err != nil {
		p.deps.Logger.Error("failed to send email", zap.String("to", d.To), zap.Error(err))
		notify.Error(p.deps.Notifier, "Failed to send email")
		return email.Receipt{}, err
	}
	notify.Success(p.deps.Notifier, "Email sent successfully")

	a := &models.Activity{
		Type:        models.ActivityEmail,
		Description: fmt.Sprintf("Sent email: %s", d.Subject),
		Timestamp:   p.deps.Now(),
		ContactID:   d.ContactID,
		DealID:      d.DealID,
	}
	created, err := p.deps.Gateway.Activities.Create(ctx, a)
	if err != nil {
		p.deps.Logger.Warn("failed to record email activity",
			zap.String("op", gateway.OpCreate),
			zap.String("entity", gateway.EntityActivity),
			zap.String("message_id", receipt.MessageID),
			zap.Error(err))
		return receipt, nil
	}

	p.mu.RLock()
	deal := p.deal
	p.mu.RUnlock()
	p.deps.Feed.Append(*created)
	p.deps.Bus.PublishActivityCreated(*created, deal)
	p.deps.Bus.PublishDataChanged(gateway.EntityActivity)
	return receipt, nil
}
