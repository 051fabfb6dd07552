// ABOUTME: Email drafts prefilled from a contact or deal
// ABOUTME: Validates required fields before anything is handed to a sender
package email

import (
	"strings"

	"github.com/harperreed/crmdeck/models"
)

// Draft is a composed message ready to send.
type Draft struct {
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	TemplateID int64  `json:"template_id,omitempty"`
	ContactID  *int64 `json:"contact_id,omitempty"`
	DealID     *int64 `json:"deal_id,omitempty"`
}

// Prefill starts a draft addressed to contact. Without a contact the
// subject refers to the deal; toFallback addresses it in that case.
func Prefill(contact *models.Contact, deal *models.Deal, toFallback string) Draft {
	var d Draft
	switch {
	case contact != nil:
		d.To = contact.Email
		d.Subject = "Follow-up: " + contact.Name
	case deal != nil:
		d.To = toFallback
		d.Subject = "Regarding: " + deal.Title
	}
	if contact != nil {
		id := contact.ID
		d.ContactID = &id
	}
	if deal != nil {
		id := deal.ID
		d.DealID = &id
	}
	return d
}

// UseTemplate replaces subject and body with the rendered template.
func (d *Draft) UseTemplate(tpl models.EmailTemplate, data Data) {
	r := Apply(tpl, data)
	d.TemplateID = tpl.ID
	d.Subject = r.Subject
	d.Body = r.Body
}

// Validate reports missing fields and a malformed recipient.
func (d Draft) Validate() error {
	errs := models.ValidationErrors{}
	if strings.TrimSpace(d.To) == "" {
		errs["to"] = "Recipient is required"
	} else if !models.IsValidEmail(d.To) {
		errs["to"] = "Please enter a valid email address"
	}
	if strings.TrimSpace(d.Subject) == "" {
		errs["subject"] = "Subject is required"
	}
	if strings.TrimSpace(d.Body) == "" {
		errs["body"] = "Message is required"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
