// ABOUTME: Tests for the in-memory mock backend
// ABOUTME: Covers CRUD, bulk outcomes, aggregates, idempotent delete and latency cancellation
package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harperreed/crmdeck/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, opts ...MemoryOption) (*Memory, *Gateway) {
	t.Helper()
	m := NewMemory(opts...)
	return m, m.Gateway()
}

func TestMemoryContactCRUD(t *testing.T) {
	_, gw := newTestGateway(t)
	ctx := context.Background()

	created, err := gw.Contacts.Create(ctx, &models.Contact{Name: "Ada", Email: "ada@example.com", Company: "Engines"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, models.StatusLead, created.Status)
	assert.False(t, created.CreatedAt.IsZero())

	created.Phone = "555-0100"
	updated, err := gw.Contacts.Update(ctx, created.ID, created)
	require.NoError(t, err)
	assert.Equal(t, "555-0100", updated.Phone)

	got, err := gw.Contacts.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	require.NoError(t, gw.Contacts.Delete(ctx, created.ID))
	_, err = gw.Contacts.GetByID(ctx, created.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestMemoryDeleteAbsentIsIdempotent(t *testing.T) {
	_, gw := newTestGateway(t)
	assert.NoError(t, gw.Contacts.Delete(context.Background(), 999))
	assert.NoError(t, gw.Deals.Delete(context.Background(), 999))
}

func TestMemoryUpdateMissingIsNotFound(t *testing.T) {
	_, gw := newTestGateway(t)
	_, err := gw.Deals.Update(context.Background(), 42, &models.Deal{Title: "x"})
	var gerr *Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, KindNotFound, gerr.Kind)
	assert.Equal(t, OpUpdate, gerr.Op)
	assert.Equal(t, EntityDeal, gerr.Entity)
	assert.Equal(t, int64(42), gerr.ID)
}

func TestMemoryReturnsCopies(t *testing.T) {
	m, gw := newTestGateway(t, WithFixtures())
	all, err := gw.Contacts.GetAll(context.Background())
	require.NoError(t, err)
	all[0].Tags[0] = "mutated"
	all[0].Name = "mutated"

	again, _ := m.Gateway().Contacts.GetByID(context.Background(), all[0].ID)
	assert.NotEqual(t, "mutated", again.Name)
	assert.NotEqual(t, "mutated", again.Tags[0])
}

func TestMemoryBulkUpdatePartialFailure(t *testing.T) {
	m, gw := newTestGateway(t, WithFixtures())
	m.InjectFailure(EntityContact, OpBulkUpdate, 5, "locked by another user")

	res, err := gw.Contacts.BulkUpdate(context.Background(), []int64{2, 5, 999}, models.Patch{"status": models.StatusActive})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, res.Succeeded)
	require.Len(t, res.Failed, 2)
	assert.Equal(t, RecordFailure{ID: 5, Message: "locked by another user"}, res.Failed[0])
	assert.Equal(t, int64(999), res.Failed[1].ID)

	c2, _ := gw.Contacts.GetByID(context.Background(), 2)
	c5, _ := gw.Contacts.GetByID(context.Background(), 5)
	assert.Equal(t, models.StatusActive, c2.Status)
	assert.Equal(t, models.StatusLead, c5.Status)
}

func TestMemoryBulkUpdateRejectsBadPatch(t *testing.T) {
	_, gw := newTestGateway(t, WithFixtures())
	_, err := gw.Contacts.BulkUpdate(context.Background(), []int64{1}, models.Patch{"status": "archived"})
	assert.Equal(t, KindInvalid, KindOf(err))
}

func TestMemoryBulkDelete(t *testing.T) {
	m, gw := newTestGateway(t, WithFixtures())
	m.InjectFailure(EntityContact, OpBulkDelete, 3, "has open deals")

	res, err := gw.Contacts.BulkDelete(context.Background(), []int64{1, 3, 404})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 404}, res.Succeeded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, int64(3), res.Failed[0].ID)

	all, _ := gw.Contacts.GetAll(context.Background())
	assert.Len(t, all, 5)
}

func TestMemoryAggregates(t *testing.T) {
	_, gw := newTestGateway(t, WithFixtures())
	ctx := context.Background()

	revenue, err := gw.Deals.Revenue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 73000.0, revenue)

	metrics, err := gw.Deals.ConversionMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ConversionMetrics{TotalDeals: 6, WonDeals: 2, ConversionRate: 33.3}, metrics)
}

func TestMemoryConversionWithNoDeals(t *testing.T) {
	_, gw := newTestGateway(t)
	metrics, err := gw.Deals.ConversionMetrics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, metrics.ConversionRate)
	assert.Zero(t, metrics.TotalDeals)
}

func TestMemoryUpdateStage(t *testing.T) {
	_, gw := newTestGateway(t, WithFixtures())
	d, err := gw.Deals.UpdateStage(context.Background(), 2, models.StageWon)
	require.NoError(t, err)
	assert.Equal(t, models.StageWon, d.Stage)

	_, err = gw.Deals.UpdateStage(context.Background(), 2, "negotiation")
	assert.Equal(t, KindInvalid, KindOf(err))
}

func TestMemoryRecentActivities(t *testing.T) {
	_, gw := newTestGateway(t, WithFixtures())
	recent, err := gw.Activities.Recent(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	for i := 1; i < len(recent); i++ {
		assert.False(t, recent[i].Timestamp.After(recent[i-1].Timestamp))
	}
	assert.Equal(t, int64(1), recent[0].ID)
}

func TestMemoryInjectedCollectionFailure(t *testing.T) {
	m, gw := newTestGateway(t, WithFixtures())
	m.InjectFailure(EntityDeal, OpGetAll, 0, "service unavailable")

	_, err := gw.Deals.GetAll(context.Background())
	assert.Equal(t, KindRemote, KindOf(err))

	m.ClearFailures()
	_, err = gw.Deals.GetAll(context.Background())
	assert.NoError(t, err)
}

func TestMemoryLatencyHonorsCancellation(t *testing.T) {
	_, gw := newTestGateway(t, WithLatency(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := gw.Contacts.GetAll(ctx)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestMemoryCreateActivityDefaultsTimestamp(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	_, gw := newTestGateway(t, WithClock(func() time.Time { return fixed }))

	a, err := gw.Activities.Create(context.Background(), &models.Activity{Type: models.ActivityNote, Description: "hi"})
	require.NoError(t, err)
	assert.Equal(t, fixed, a.Timestamp)
	assert.Equal(t, fixed, a.CreatedAt)
}
