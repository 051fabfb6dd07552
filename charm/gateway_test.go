// ABOUTME: Tests for the charm KV gateway backend
// ABOUTME: Runs against a temporary badger store with no server connection

package charm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harperreed/crmdeck/gateway"
	"github.com/harperreed/crmdeck/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, seed bool) *gateway.Gateway {
	t.Helper()
	c, cleanup := NewTestClient(t)
	t.Cleanup(cleanup)
	s := NewStore(c)
	if seed {
		require.NoError(t, s.Seed(context.Background(), gateway.Fixtures(time.Now())))
	}
	return s.Gateway()
}

func TestKeysWithPrefix(t *testing.T) {
	c, cleanup := NewTestClient(t)
	defer cleanup()

	require.NoError(t, c.Set([]byte("contact:1"), []byte("a")))
	require.NoError(t, c.Set([]byte("deal:1"), []byte("b")))

	keys, err := c.KeysWithPrefix([]byte("contact:"))
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	_, err = c.Get([]byte("missing"))
	assert.True(t, errors.Is(err, ErrKeyNotFound))

	require.NoError(t, c.Reset())
	all, err := c.Keys()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestLocalClientHasNoIdentity(t *testing.T) {
	c, cleanup := NewTestClient(t)
	defer cleanup()
	assert.False(t, c.IsConnected())
	assert.NoError(t, c.Sync())
}

func TestContactLifecycle(t *testing.T) {
	gw := newTestStore(t, false)
	ctx := context.Background()

	first, err := gw.Contacts.Create(ctx, &models.Contact{Name: "Ada", Email: "ada@example.com", Company: "Engines"})
	require.NoError(t, err)
	second, err := gw.Contacts.Create(ctx, &models.Contact{Name: "Grace", Email: "grace@example.com", Company: "Navy"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, models.StatusLead, first.Status)

	first.Status = models.StatusActive
	updated, err := gw.Contacts.Update(ctx, first.ID, first)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, updated.Status)
	assert.Equal(t, first.CreatedAt.Unix(), updated.CreatedAt.Unix())

	all, err := gw.Contacts.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Ada", all[0].Name)

	require.NoError(t, gw.Contacts.Delete(ctx, first.ID))
	require.NoError(t, gw.Contacts.Delete(ctx, first.ID))
	_, err = gw.Contacts.GetByID(ctx, first.ID)
	assert.True(t, errors.Is(err, gateway.ErrNotFound))
}

func TestSeedKeepsIDsAndAdvancesSequence(t *testing.T) {
	gw := newTestStore(t, true)
	ctx := context.Background()

	c, err := gw.Contacts.GetByID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Lisa Thompson", c.Name)

	created, err := gw.Contacts.Create(ctx, &models.Contact{Name: "New", Email: "new@example.com", Company: "Co"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), created.ID)
}

func TestBulkOperations(t *testing.T) {
	gw := newTestStore(t, true)
	ctx := context.Background()

	res, err := gw.Contacts.BulkUpdate(ctx, []int64{1, 404}, models.Patch{"tags": "hot, q3"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, res.Succeeded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, gateway.RecordFailure{ID: 404, Message: "record not found"}, res.Failed[0])

	c, err := gw.Contacts.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"hot", "q3"}, c.Tags)

	_, err = gw.Contacts.BulkUpdate(ctx, []int64{1}, models.Patch{"favorite_color": "blue"})
	assert.Equal(t, gateway.KindInvalid, gateway.KindOf(err))

	del, err := gw.Contacts.BulkDelete(ctx, []int64{2, 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, del.Succeeded)
	all, _ := gw.Contacts.GetAll(ctx)
	assert.Len(t, all, 4)
}

func TestDealAggregatesAndStage(t *testing.T) {
	gw := newTestStore(t, true)
	ctx := context.Background()

	revenue, err := gw.Deals.Revenue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 73000.0, revenue)

	_, err = gw.Deals.UpdateStage(ctx, 1, models.StageWon)
	require.NoError(t, err)

	m, err := gw.Deals.ConversionMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ConversionMetrics{TotalDeals: 6, WonDeals: 3, ConversionRate: 50}, m)

	_, err = gw.Deals.UpdateStage(ctx, 1, "closing")
	assert.Equal(t, gateway.KindInvalid, gateway.KindOf(err))
}

func TestRecentActivities(t *testing.T) {
	gw := newTestStore(t, true)
	recent, err := gw.Activities.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(1), recent[0].ID)
	assert.Equal(t, int64(5), recent[1].ID)
}

func TestCanceledContext(t *testing.T) {
	gw := newTestStore(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := gw.Contacts.GetAll(ctx)
	assert.Equal(t, gateway.KindTransport, gateway.KindOf(err))
}
