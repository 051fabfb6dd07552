// ABOUTME: Contact MCP tool handlers
// ABOUTME: Implements filter_contacts, save_contact, bulk_update_contacts and bulk_delete_contacts
package handlers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harperreed/crmdeck/filter"
	"github.com/harperreed/crmdeck/gateway"
	"github.com/harperreed/crmdeck/models"
	"github.com/harperreed/crmdeck/pages"
	"github.com/harperreed/crmdeck/selection"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ContactHandlers struct {
	page *pages.Contacts
	mu   sync.Mutex
}

func NewContactHandlers(deps pages.Deps) *ContactHandlers {
	return &ContactHandlers{page: pages.NewContacts(deps)}
}

type ContactOutput struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Email         string   `json:"email,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	Company       string   `json:"company,omitempty"`
	Status        string   `json:"status"`
	Tags          []string `json:"tags,omitempty"`
	LastContacted *string  `json:"last_contacted,omitempty"`
	CreatedAt     string   `json:"created_at"`
}

type FilterContactsInput struct {
	Query         string `json:"query,omitempty" jsonschema:"Search text matched against name, email and company"`
	Status        string `json:"status,omitempty" jsonschema:"Contact status: lead, active or inactive"`
	LastContacted string `json:"last_contacted,omitempty" jsonschema:"Recency bucket: today, week, month or older"`
	Limit         int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 50)"`
}

type FilterContactsOutput struct {
	Contacts []ContactOutput `json:"contacts"`
	Total    int             `json:"total"`
}

func (h *ContactHandlers) FilterContacts(ctx context.Context, _ *mcp.CallToolRequest, input FilterContactsInput) (*mcp.CallToolResult, FilterContactsOutput, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.page.Load(ctx); err != nil {
		return nil, FilterContactsOutput{}, fmt.Errorf("failed to load contacts: %w", err)
	}
	h.page.SetCriteria(filter.Criteria{
		SearchTerm:    input.Query,
		Status:        input.Status,
		LastContacted: input.LastContacted,
	})

	view := h.page.View()
	limit := input.Limit
	if limit <= 0 {
		limit = 50
	}

	out := FilterContactsOutput{Contacts: []ContactOutput{}, Total: len(view)}
	for i, c := range view {
		if i == limit {
			break
		}
		out.Contacts = append(out.Contacts, contactToOutput(&c))
	}
	return nil, out, nil
}

type SaveContactInput struct {
	ID      int64    `json:"id,omitempty" jsonschema:"Contact ID; omit to create a new contact"`
	Name    string   `json:"name" jsonschema:"Contact name (required)"`
	Email   string   `json:"email" jsonschema:"Contact email address (required)"`
	Phone   string   `json:"phone,omitempty" jsonschema:"Contact phone number"`
	Company string   `json:"company" jsonschema:"Company name (required)"`
	Status  string   `json:"status,omitempty" jsonschema:"Contact status: lead, active or inactive (default lead)"`
	Tags    []string `json:"tags,omitempty" jsonschema:"Free-form tags"`
}

func (h *ContactHandlers) SaveContact(ctx context.Context, _ *mcp.CallToolRequest, input SaveContactInput) (*mcp.CallToolResult, ContactOutput, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	status := input.Status
	if status == "" {
		status = models.StatusLead
	}
	saved, err := h.page.Save(ctx, models.Contact{
		ID:      input.ID,
		Name:    input.Name,
		Email:   input.Email,
		Phone:   input.Phone,
		Company: input.Company,
		Status:  status,
		Tags:    input.Tags,
	})
	if err != nil {
		return nil, ContactOutput{}, fmt.Errorf("failed to save contact: %w", err)
	}
	return nil, contactToOutput(saved), nil
}

type BulkUpdateContactsInput struct {
	IDs   []int64 `json:"ids" jsonschema:"Contact IDs to update (required)"`
	Field string  `json:"field" jsonschema:"Field to set: name, email, phone, company, status, tags or last_contacted"`
	Value string  `json:"value" jsonschema:"New value; tags are comma separated and last_contacted is RFC 3339"`
}

type BulkDeleteContactsInput struct {
	IDs     []int64 `json:"ids" jsonschema:"Contact IDs to delete (required)"`
	Confirm bool    `json:"confirm" jsonschema:"Must be true to delete"`
}

type BulkOutput struct {
	Succeeded []int64                 `json:"succeeded"`
	Failed    []gateway.RecordFailure `json:"failed"`
}

func (h *ContactHandlers) BulkUpdateContacts(ctx context.Context, _ *mcp.CallToolRequest, input BulkUpdateContactsInput) (*mcp.CallToolResult, BulkOutput, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if input.Field == "" {
		return nil, BulkOutput{}, fmt.Errorf("field is required")
	}
	if err := h.selectIDs(ctx, input.IDs); err != nil {
		return nil, BulkOutput{}, err
	}
	out, err := h.page.BulkUpdate(ctx, input.Field, input.Value)
	if err != nil && !errors.Is(err, selection.ErrNoneSucceeded) {
		return nil, BulkOutput{}, fmt.Errorf("bulk update failed: %w", err)
	}
	return nil, bulkToOutput(out.Result), nil
}

func (h *ContactHandlers) BulkDeleteContacts(ctx context.Context, _ *mcp.CallToolRequest, input BulkDeleteContactsInput) (*mcp.CallToolResult, BulkOutput, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.selectIDs(ctx, input.IDs); err != nil {
		return nil, BulkOutput{}, err
	}
	out, err := h.page.BulkDelete(ctx, func(int) bool { return input.Confirm })
	if err != nil && !errors.Is(err, selection.ErrNoneSucceeded) {
		return nil, BulkOutput{}, fmt.Errorf("bulk delete failed: %w", err)
	}
	return nil, bulkToOutput(out.Result), nil
}

// selectIDs reloads the unfiltered list and selects exactly ids.
func (h *ContactHandlers) selectIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return fmt.Errorf("ids is required")
	}
	if err := h.page.Load(ctx); err != nil {
		return fmt.Errorf("failed to load contacts: %w", err)
	}
	h.page.SetCriteria(filter.Criteria{})
	h.page.Selection.Clear()
	for _, id := range ids {
		h.page.Selection.Toggle(id, true)
	}
	if h.page.Selection.Count() == 0 {
		return fmt.Errorf("none of the given contacts exist")
	}
	return nil
}

func bulkToOutput(r gateway.BatchResult) BulkOutput {
	out := BulkOutput{Succeeded: r.Succeeded, Failed: r.Failed}
	if out.Succeeded == nil {
		out.Succeeded = []int64{}
	}
	if out.Failed == nil {
		out.Failed = []gateway.RecordFailure{}
	}
	return out
}

func contactToOutput(c *models.Contact) ContactOutput {
	return ContactOutput{
		ID:            c.ID,
		Name:          c.Name,
		Email:         c.Email,
		Phone:         c.Phone,
		Company:       c.Company,
		Status:        c.Status,
		Tags:          c.Tags,
		LastContacted: formatTimePtr(c.LastContacted),
		CreatedAt:     c.CreatedAt.Format(time.RFC3339),
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
