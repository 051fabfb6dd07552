package selection

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/harperreed/crmdeck/gateway"
	"github.com/harperreed/crmdeck/models"
	"github.com/harperreed/crmdeck/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func contactsByID(ids ...int64) []models.Contact {
	out := make([]models.Contact, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Contact{ID: id, Name: "c", Status: models.StatusLead})
	}
	return out
}

func TestToggleAllTwiceClears(t *testing.T) {
	w := New(nil, &notify.Recorder{}, nil)
	w.SetView([]int64{1, 2, 3})

	w.ToggleAll()
	assert.True(t, w.AllSelected())
	assert.Equal(t, []int64{1, 2, 3}, w.Selected())

	w.ToggleAll()
	assert.Zero(t, w.Count())
	assert.False(t, w.AllSelected())
}

func TestToggleAllSelectsOnlyFilteredView(t *testing.T) {
	w := New(nil, &notify.Recorder{}, nil)
	w.SetView([]int64{4, 6})
	w.ToggleAll()
	assert.Equal(t, []int64{4, 6}, w.Selected())
	assert.False(t, w.IsSelected(5))
}

func TestEmptyViewIsNeverAllSelected(t *testing.T) {
	w := New(nil, &notify.Recorder{}, nil)
	w.SetView(nil)
	w.ToggleAll()
	assert.False(t, w.AllSelected())
}

func TestShrinkingViewPrunesSelection(t *testing.T) {
	w := New(nil, &notify.Recorder{}, nil)
	w.SetView([]int64{1, 2, 3})
	w.ToggleAll()

	w.SetView([]int64{2})
	assert.Equal(t, []int64{2}, w.Selected())
	assert.True(t, w.AllSelected())

	w.SetView([]int64{2, 7})
	assert.False(t, w.AllSelected())
}

func TestToggleIgnoresIDsOutsideView(t *testing.T) {
	w := New(nil, &notify.Recorder{}, nil)
	w.SetView([]int64{1})
	w.Toggle(99, true)
	w.Toggle(1, true)
	assert.Equal(t, []int64{1}, w.Selected())
	w.Toggle(1, false)
	assert.Zero(t, w.Count())
}

func TestBulkUpdatePartialFailure(t *testing.T) {
	mem := gateway.NewMemory()
	ctx := context.Background()
	for i := 0; i < 9; i++ {
		_, err := mem.Gateway().Contacts.Create(ctx, &models.Contact{Name: "c", Email: "c@example.com", Company: "x"})
		require.NoError(t, err)
	}
	mem.InjectFailure(gateway.EntityContact, gateway.OpBulkUpdate, 5, "record locked")

	core, logs := observer.New(zapcore.WarnLevel)
	rec := &notify.Recorder{}
	w := New(mem.Gateway().Contacts, rec, zap.New(core))

	local := contactsByID(2, 5, 9)
	w.SetView([]int64{2, 5, 9})
	w.ToggleAll()

	out, err := w.BulkUpdate(ctx, "status", models.StatusActive)
	require.NoError(t, err)
	local, err = out.Apply(local)
	require.NoError(t, err)

	assert.Equal(t, models.StatusActive, local[0].Status)
	assert.Equal(t, models.StatusLead, local[1].Status)
	assert.Equal(t, models.StatusActive, local[2].Status)
	assert.Zero(t, w.Count())
	assert.False(t, w.Busy())

	failures := logs.FilterMessage("bulk record failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, int64(5), failures[0].ContextMap()["id"])

	last, _ := rec.Last()
	assert.Equal(t, notify.Notice{Level: notify.LevelSuccess, Message: "Updated 2 contacts"}, last)
}

func TestBulkUpdateRejectsInvalidValueBeforeSending(t *testing.T) {
	mem := gateway.NewMemory(gateway.WithFixtures())
	rec := &notify.Recorder{}
	w := New(mem.Gateway().Contacts, rec, nil)
	w.SetView([]int64{1, 2})
	w.ToggleAll()

	_, err := w.BulkUpdate(context.Background(), "status", "archived")
	var verrs models.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs["status"], "unknown status")

	_, err = w.BulkUpdate(context.Background(), "favorite_color", "blue")
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs["favorite_color"], "unknown contact field")

	assert.Equal(t, 2, w.Count())
	assert.False(t, w.Busy())
	_, hasNotice := rec.Last()
	assert.False(t, hasNotice)

	c, err := mem.Gateway().Contacts.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, c.Status)
}

func TestApplyKeepsContactWhenPatchFails(t *testing.T) {
	out := Outcome{
		Kind:   KindUpdate,
		Patch:  models.Patch{"name": "Renamed", "status": "archived"},
		Result: gateway.BatchResult{Succeeded: []int64{1}},
	}
	local := contactsByID(1, 2)

	got, err := out.Apply(local)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contact 1")
	assert.Equal(t, local, got)
}

func TestBulkUpdateEmptySelectionIsNoop(t *testing.T) {
	w := New(nil, &notify.Recorder{}, nil)
	_, err := w.BulkUpdate(context.Background(), "status", models.StatusActive)
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func TestBulkUpdateTransportFailureKeepsSelection(t *testing.T) {
	mem := gateway.NewMemory(gateway.WithFixtures())
	mem.InjectFailure(gateway.EntityContact, gateway.OpBulkUpdate, 0, "service unavailable")
	rec := &notify.Recorder{}
	w := New(mem.Gateway().Contacts, rec, nil)
	w.SetView([]int64{1, 2})
	w.ToggleAll()

	_, err := w.BulkUpdate(context.Background(), "status", models.StatusInactive)
	require.Error(t, err)
	assert.Equal(t, 2, w.Count())
	last, _ := rec.Last()
	assert.Equal(t, "Failed to update contacts", last.Message)
}

func TestBulkUpdateAllFailed(t *testing.T) {
	mem := gateway.NewMemory()
	rec := &notify.Recorder{}
	w := New(mem.Gateway().Contacts, rec, nil)
	w.SetView([]int64{41, 42})
	w.ToggleAll()

	out, err := w.BulkUpdate(context.Background(), "status", models.StatusActive)
	assert.ErrorIs(t, err, ErrNoneSucceeded)
	assert.Len(t, out.Result.Failed, 2)
	assert.Equal(t, 2, w.Count())
}

func TestBulkDeleteRequiresConfirmation(t *testing.T) {
	mem := gateway.NewMemory(gateway.WithFixtures())
	w := New(mem.Gateway().Contacts, &notify.Recorder{}, nil)
	w.SetView([]int64{1, 2, 3})
	w.ToggleAll()

	var asked int
	_, err := w.BulkDelete(context.Background(), func(n int) bool { asked = n; return false })
	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.Equal(t, 3, asked)
	assert.Equal(t, 3, w.Count())

	all, _ := mem.Gateway().Contacts.GetAll(context.Background())
	assert.Len(t, all, 6)
}

func TestBulkDeleteRemovesSucceeded(t *testing.T) {
	mem := gateway.NewMemory(gateway.WithFixtures())
	mem.InjectFailure(gateway.EntityContact, gateway.OpBulkDelete, 2, "has open deals")
	rec := &notify.Recorder{}
	w := New(mem.Gateway().Contacts, rec, nil)

	local := contactsByID(1, 2, 3, 4)
	w.SetView([]int64{1, 2, 3})
	w.ToggleAll()

	out, err := w.BulkDelete(context.Background(), func(int) bool { return true })
	require.NoError(t, err)
	local, err = out.Apply(local)
	require.NoError(t, err)

	var left []int64
	for _, c := range local {
		left = append(left, c.ID)
	}
	assert.Equal(t, []int64{2, 4}, left)
	last, _ := rec.Last()
	assert.Equal(t, "Deleted 2 contacts", last.Message)
}

type blockingContacts struct {
	gateway.Contacts
	entered chan struct{}
	release chan struct{}
}

func (b *blockingContacts) BulkUpdate(ctx context.Context, ids []int64, p models.Patch) (gateway.BatchResult, error) {
	close(b.entered)
	<-b.release
	var res gateway.BatchResult
	for _, id := range ids {
		res.OK(id)
	}
	return res, nil
}

func TestSecondBulkOperationRejectedWhileInFlight(t *testing.T) {
	bc := &blockingContacts{entered: make(chan struct{}), release: make(chan struct{})}
	w := New(bc, &notify.Recorder{}, nil)
	w.SetView([]int64{1})
	w.ToggleAll()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = w.BulkUpdate(context.Background(), "status", models.StatusActive)
	}()
	<-bc.entered

	_, err := w.BulkDelete(context.Background(), func(int) bool { return true })
	assert.True(t, errors.Is(err, ErrBulkInProgress))

	close(bc.release)
	wg.Wait()
	assert.False(t, w.Busy())
}

func TestConfirmDeleteMessage(t *testing.T) {
	assert.Equal(t, "Are you sure you want to delete 3 contacts?", ConfirmDeleteMessage(3))
}
