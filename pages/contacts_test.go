package pages

import (
	"context"
	"testing"

	"github.com/harperreed/crmdeck/filter"
	"github.com/harperreed/crmdeck/gateway"
	"github.com/harperreed/crmdeck/models"
	"github.com/harperreed/crmdeck/notify"
	"github.com/harperreed/crmdeck/selection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadedContacts(t *testing.T) (*harness, *Contacts) {
	t.Helper()
	h := newHarness(t)
	p := NewContacts(h.deps)
	require.NoError(t, p.Load(context.Background()))
	return h, p
}

func ids(list []models.Contact) []int64 {
	out := make([]int64, len(list))
	for i, c := range list {
		out[i] = c.ID
	}
	return out
}

func byID(list []models.Contact, id int64) models.Contact {
	for _, c := range list {
		if c.ID == id {
			return c
		}
	}
	return models.Contact{}
}

func TestContactsFilterAndSelectionPruning(t *testing.T) {
	_, p := loadedContacts(t)
	assert.Len(t, p.View(), 6)

	p.SetSearch("tech")
	assert.Equal(t, []int64{1, 4}, ids(p.View()))

	p.Selection.ToggleAll()
	assert.True(t, p.Selection.AllSelected())

	p.SetSearch("sarah")
	assert.Equal(t, []int64{1}, p.Selection.Selected())
	assert.True(t, p.Selection.AllSelected())

	p.SetCriteria(filter.Criteria{LastContacted: filter.BucketOlder})
	assert.Equal(t, []int64{4, 5}, ids(p.View()))
	assert.Empty(t, p.Selection.Selected())
	assert.Len(t, p.All(), 6)
}

func TestContactsDealStageCriterionIsInert(t *testing.T) {
	_, p := loadedContacts(t)
	p.SetCriteria(filter.Criteria{DealStage: models.StageWon})
	assert.Len(t, p.View(), 6)
}

func TestContactsBulkUpdatePartialFailure(t *testing.T) {
	h, p := loadedContacts(t)
	h.mem.InjectFailure(gateway.EntityContact, gateway.OpBulkUpdate, 5, "record locked")

	p.Selection.Toggle(2, true)
	p.Selection.Toggle(5, true)
	out, err := p.BulkUpdate(context.Background(), "status", models.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, out.Result.Succeeded)

	all := p.All()
	assert.Equal(t, models.StatusActive, byID(all, 2).Status)
	assert.Equal(t, models.StatusLead, byID(all, 5).Status)
	assert.Zero(t, p.Selection.Count())
	assert.Equal(t, notify.Notice{Level: notify.LevelSuccess, Message: "Updated 1 contacts"}, h.lastNotice(t))
	assert.Equal(t, 1, h.logs.FilterMessage("bulk record failed").Len())
	require.Len(t, h.changed, 1)
	assert.Equal(t, gateway.EntityContact, h.changed[0].Entity)
}

func TestContactsBulkDelete(t *testing.T) {
	h, p := loadedContacts(t)
	p.Selection.Toggle(3, true)
	p.Selection.Toggle(4, true)

	_, err := p.BulkDelete(context.Background(), func(int) bool { return false })
	assert.ErrorIs(t, err, selection.ErrNotConfirmed)
	assert.Len(t, p.All(), 6)
	assert.Empty(t, h.changed)

	var asked int
	_, err = p.BulkDelete(context.Background(), func(n int) bool { asked = n; return true })
	require.NoError(t, err)
	assert.Equal(t, 2, asked)
	assert.Equal(t, []int64{1, 2, 5, 6}, ids(p.View()))
	assert.Len(t, h.changed, 1)
}

func TestContactsSaveValidatesFirst(t *testing.T) {
	h, p := loadedContacts(t)
	h.mem.InjectFailure(gateway.EntityContact, gateway.OpCreate, 0, "should not be called")

	_, err := p.Save(context.Background(), models.Contact{Email: "not-an-email"})
	var verrs models.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "Name is required", verrs["name"])
	assert.Equal(t, "Please enter a valid email address", verrs["email"])
	_, hasNotice := h.notices.Last()
	assert.False(t, hasNotice)
}

func TestContactsSaveCreateAndUpdate(t *testing.T) {
	h, p := loadedContacts(t)

	created, err := p.Save(context.Background(), models.Contact{Name: "Ada Lovelace", Email: "ada@engines.io", Company: "Engines"})
	require.NoError(t, err)
	assert.Len(t, p.View(), 7)
	assert.Equal(t, "Contact created successfully", h.lastNotice(t).Message)

	created.Phone = "+44 20 0000"
	_, err = p.Save(context.Background(), *created)
	require.NoError(t, err)
	assert.Equal(t, "+44 20 0000", byID(p.All(), created.ID).Phone)
	assert.Len(t, p.All(), 7)
	assert.Len(t, h.changed, 2)
}

func TestContactsSaveGatewayFailure(t *testing.T) {
	h, p := loadedContacts(t)
	h.mem.InjectFailure(gateway.EntityContact, gateway.OpUpdate, 1, "conflict")

	c := byID(p.All(), 1)
	c.Phone = "x"
	_, err := p.Save(context.Background(), c)
	assert.Equal(t, gateway.KindRemote, gateway.KindOf(err))
	assert.Equal(t, notify.Notice{Level: notify.LevelError, Message: "Failed to save contact"}, h.lastNotice(t))
	assert.Equal(t, 1, h.logs.FilterMessage("failed to save contact").Len())
	assert.Empty(t, h.changed)
}

func TestContactsDelete(t *testing.T) {
	h, p := loadedContacts(t)

	err := p.Delete(context.Background(), 6, nil)
	assert.ErrorIs(t, err, ErrNotConfirmed)

	var prompt string
	require.NoError(t, p.Delete(context.Background(), 6, func(name string) bool {
		prompt = DeleteContactMessage(name)
		return true
	}))
	assert.Equal(t, "Are you sure you want to delete James Wilson?", prompt)
	assert.Len(t, p.All(), 5)
	assert.Len(t, h.changed, 1)
}

func TestContactsLoadFailureKeepsRows(t *testing.T) {
	h, p := loadedContacts(t)
	h.mem.InjectFailure(gateway.EntityContact, gateway.OpGetAll, 0, "offline")

	require.Error(t, p.Load(context.Background()))
	assert.Error(t, p.Err())
	assert.Len(t, p.View(), 6)
}
