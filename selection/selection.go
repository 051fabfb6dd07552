// ABOUTME: Bulk selection and mutation workflow for the contacts view
// ABOUTME: Selection is scoped to the filtered view; one bulk operation may be in flight at a time
package selection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/harperreed/crmdeck/gateway"
	"github.com/harperreed/crmdeck/models"
	"github.com/harperreed/crmdeck/notify"
	"go.uber.org/zap"
)

var (
	ErrBulkInProgress = errors.New("a bulk operation is already in progress")
	ErrEmptySelection = errors.New("no contacts selected")
	ErrNotConfirmed   = errors.New("bulk delete not confirmed")
	ErrNoneSucceeded  = errors.New("no records were changed")
)

// Kind distinguishes the two bulk operations.
type Kind string

const (
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Outcome is what a bulk call did. Apply folds it into a local collection.
type Outcome struct {
	Kind   Kind                `json:"kind"`
	Patch  models.Patch        `json:"patch,omitempty"`
	Result gateway.BatchResult `json:"result"`
}

// Apply returns list with the outcome reconciled: patched contacts for an
// update, removed contacts for a delete. Only succeeded ids are touched.
// A contact the patch cannot be applied to is kept unchanged and the first
// such error is returned.
func (o Outcome) Apply(list []models.Contact) ([]models.Contact, error) {
	ok := o.Result.SucceededSet()
	out := make([]models.Contact, 0, len(list))
	var firstErr error
	for _, c := range list {
		if _, hit := ok[c.ID]; !hit {
			out = append(out, c)
			continue
		}
		if o.Kind == KindDelete {
			continue
		}
		patched := c
		if err := o.Patch.ApplyToContact(&patched); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("contact %d: %w", c.ID, err)
			}
			out = append(out, c)
			continue
		}
		out = append(out, patched)
	}
	return out, firstErr
}

// Workflow tracks the selected contact ids for one contacts view.
type Workflow struct {
	contacts gateway.Contacts
	notifier notify.Notifier
	logger   *zap.Logger

	mu       sync.Mutex
	view     []int64
	inView   map[int64]struct{}
	selected map[int64]struct{}
	busy     bool
}

func New(contacts gateway.Contacts, n notify.Notifier, logger *zap.Logger) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	if n == nil {
		n = notify.NewLog(logger)
	}
	return &Workflow{
		contacts: contacts,
		notifier: n,
		logger:   logger,
		inView:   map[int64]struct{}{},
		selected: map[int64]struct{}{},
	}
}

// SetView records the ids of the currently filtered contacts and drops any
// selected id that is no longer visible.
func (w *Workflow) SetView(ids []int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.view = append(w.view[:0], ids...)
	w.inView = make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		w.inView[id] = struct{}{}
	}
	for id := range w.selected {
		if _, ok := w.inView[id]; !ok {
			delete(w.selected, id)
		}
	}
}

// Toggle adds or removes one id. Ids outside the view are ignored.
func (w *Workflow) Toggle(id int64, on bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !on {
		delete(w.selected, id)
		return
	}
	if _, ok := w.inView[id]; ok {
		w.selected[id] = struct{}{}
	}
}

// AllSelected reports whether every id in a non-empty view is selected.
func (w *Workflow) AllSelected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.allSelected()
}

func (w *Workflow) allSelected() bool {
	if len(w.view) == 0 {
		return false
	}
	for _, id := range w.view {
		if _, ok := w.selected[id]; !ok {
			return false
		}
	}
	return true
}

// ToggleAll clears the selection when everything is selected, otherwise
// selects the whole filtered view.
func (w *Workflow) ToggleAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.allSelected() {
		w.selected = map[int64]struct{}{}
		return
	}
	for _, id := range w.view {
		w.selected[id] = struct{}{}
	}
}

func (w *Workflow) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.selected = map[int64]struct{}{}
}

func (w *Workflow) IsSelected(id int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.selected[id]
	return ok
}

// Selected returns the selected ids in view order.
func (w *Workflow) Selected() []int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selectedIDs()
}

func (w *Workflow) selectedIDs() []int64 {
	out := make([]int64, 0, len(w.selected))
	for _, id := range w.view {
		if _, ok := w.selected[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func (w *Workflow) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.selected)
}

// Busy reports whether a bulk operation is in flight.
func (w *Workflow) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.busy
}

func (w *Workflow) begin() ([]int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return nil, ErrBulkInProgress
	}
	ids := w.selectedIDs()
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}
	w.busy = true
	return ids, nil
}

func (w *Workflow) finish(clear bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false
	if clear {
		w.selected = map[int64]struct{}{}
	}
}

// BulkUpdate sets field to value on every selected contact. An unknown
// field or a bad value is a validation error and nothing is sent.
func (w *Workflow) BulkUpdate(ctx context.Context, field string, value any) (Outcome, error) {
	patch := models.Patch{field: value}
	if err := patch.Validate(); err != nil {
		key := field
		if key == "" {
			key = "field"
		}
		return Outcome{}, models.ValidationErrors{key: err.Error()}
	}

	ids, err := w.begin()
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Kind: KindUpdate, Patch: patch}
	res, err := w.contacts.BulkUpdate(ctx, ids, patch)
	if err != nil {
		w.finish(false)
		w.logger.Error("bulk update failed",
			zap.String("op", gateway.OpBulkUpdate),
			zap.String("entity", gateway.EntityContact),
			zap.Int("count", len(ids)),
			zap.Error(err))
		notify.Error(w.notifier, "Failed to update contacts")
		return out, err
	}
	out.Result = res
	return out, w.settle(out, gateway.OpBulkUpdate, "Updated %d contacts", "Failed to update contacts")
}

// BulkDelete deletes every selected contact once confirm approves the count.
func (w *Workflow) BulkDelete(ctx context.Context, confirm func(n int) bool) (Outcome, error) {
	ids, err := w.begin()
	if err != nil {
		return Outcome{}, err
	}
	if confirm == nil || !confirm(len(ids)) {
		w.finish(false)
		return Outcome{}, ErrNotConfirmed
	}

	out := Outcome{Kind: KindDelete}
	res, err := w.contacts.BulkDelete(ctx, ids)
	if err != nil {
		w.finish(false)
		w.logger.Error("bulk delete failed",
			zap.String("op", gateway.OpBulkDelete),
			zap.String("entity", gateway.EntityContact),
			zap.Int("count", len(ids)),
			zap.Error(err))
		notify.Error(w.notifier, "Failed to delete contacts")
		return out, err
	}
	out.Result = res
	return out, w.settle(out, gateway.OpBulkDelete, "Deleted %d contacts", "Failed to delete contacts")
}

// settle logs each failed record and reports the batch. A batch with at
// least one success counts as done and clears the selection.
func (w *Workflow) settle(out Outcome, op, okMsg, failMsg string) error {
	for _, f := range out.Result.Failed {
		w.logger.Warn("bulk record failed",
			zap.String("op", op),
			zap.String("entity", gateway.EntityContact),
			zap.Int64("id", f.ID),
			zap.String("message", f.Message))
	}

	if len(out.Result.Succeeded) == 0 && len(out.Result.Failed) > 0 {
		w.finish(false)
		notify.Error(w.notifier, failMsg)
		return ErrNoneSucceeded
	}

	w.finish(true)
	notify.Success(w.notifier, fmt.Sprintf(okMsg, len(out.Result.Succeeded)))
	return nil
}

// ConfirmDeleteMessage is the prompt shown before a bulk delete.
func ConfirmDeleteMessage(n int) string {
	return fmt.Sprintf("Are you sure you want to delete %d contacts?", n)
}
