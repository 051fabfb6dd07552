// ABOUTME: Email MCP tool handlers
// ABOUTME: Implements draft_email and send_email on top of the composer
package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harperreed/crmdeck/email"
	"github.com/harperreed/crmdeck/pages"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type EmailHandlers struct {
	page *pages.Composer
	mu   sync.Mutex
}

func NewEmailHandlers(deps pages.Deps) *EmailHandlers {
	return &EmailHandlers{page: pages.NewComposer(deps)}
}

type DraftEmailInput struct {
	ContactID  int64 `json:"contact_id,omitempty" jsonschema:"Contact to address"`
	DealID     int64 `json:"deal_id,omitempty" jsonschema:"Deal the message is about"`
	TemplateID int64 `json:"template_id,omitempty" jsonschema:"Template to render into the draft"`
}

type DraftOutput struct {
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	ContactID *int64 `json:"contact_id,omitempty"`
	DealID    *int64 `json:"deal_id,omitempty"`
}

func (h *EmailHandlers) DraftEmail(ctx context.Context, _ *mcp.CallToolRequest, input DraftEmailInput) (*mcp.CallToolResult, DraftOutput, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if input.ContactID == 0 && input.DealID == 0 {
		return nil, DraftOutput{}, fmt.Errorf("contact_id or deal_id is required")
	}
	d, err := h.page.Open(ctx, input.ContactID, input.DealID)
	if err != nil {
		return nil, DraftOutput{}, fmt.Errorf("failed to open draft: %w", err)
	}
	if input.TemplateID != 0 {
		if d, err = h.page.UseTemplate(ctx, input.TemplateID); err != nil {
			return nil, DraftOutput{}, fmt.Errorf("failed to apply template: %w", err)
		}
	}
	return nil, draftToOutput(d), nil
}

type SendEmailInput struct {
	To        string `json:"to" jsonschema:"Recipient address (required)"`
	Subject   string `json:"subject" jsonschema:"Subject line (required)"`
	Body      string `json:"body" jsonschema:"Message body (required)"`
	ContactID int64  `json:"contact_id,omitempty" jsonschema:"Contact the email activity is logged against"`
	DealID    int64  `json:"deal_id,omitempty" jsonschema:"Deal the email activity is logged against"`
}

type SendEmailOutput struct {
	MessageID string `json:"message_id"`
	To        string `json:"to"`
	SentAt    string `json:"sent_at"`
}

func (h *EmailHandlers) SendEmail(ctx context.Context, _ *mcp.CallToolRequest, input SendEmailInput) (*mcp.CallToolResult, SendEmailOutput, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	d := email.Draft{To: input.To, Subject: input.Subject, Body: input.Body}
	if input.ContactID != 0 {
		d.ContactID = &input.ContactID
	}
	if input.DealID != 0 {
		d.DealID = &input.DealID
	}

	r, err := h.page.Send(ctx, d)
	if err != nil {
		return nil, SendEmailOutput{}, fmt.Errorf("failed to send email: %w", err)
	}
	return nil, SendEmailOutput{MessageID: r.MessageID, To: r.To, SentAt: r.SentAt.Format(time.RFC3339)}, nil
}

func draftToOutput(d email.Draft) DraftOutput {
	return DraftOutput{To: d.To, Subject: d.Subject, Body: d.Body, ContactID: d.ContactID, DealID: d.DealID}
}
