package pages

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harperreed/crmdeck/gateway"
	"github.com/harperreed/crmdeck/models"
	"github.com/harperreed/crmdeck/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardInitialLoad(t *testing.T) {
	h := newHarness(t)
	d := NewDashboard(h.deps)
	require.NoError(t, d.Mount(context.Background()))
	defer d.Unmount()

	v := d.View()
	assert.True(t, v.Loaded)
	assert.Empty(t, v.Error)
	assert.Equal(t, Metrics{TotalContacts: 6, ActiveDeals: 3, ConversionRate: 33.3, TotalRevenue: 73000}, v.Metrics)
	require.Len(t, v.Recent, RecentLimit)
	assert.Equal(t, int64(1), v.Recent[0].ID)
	assert.Equal(t, "Sarah Johnson", v.ContactName(v.Recent[0].ContactID))
	assert.Equal(t, "Enterprise Software License", v.DealTitle(v.Recent[0].DealID))
	assert.Equal(t, "", v.DealTitle(nil))
	assert.Equal(t, testNow, v.LastUpdated)

	col, ok := v.Board.Column(models.StageWon)
	require.True(t, ok)
	assert.Equal(t, 73000.0, col.TotalValue)
}

func TestDashboardLoadIsAllOrNothing(t *testing.T) {
	h := newHarness(t)
	h.mem.InjectFailure(gateway.EntityDeal, gateway.OpRevenue, 0, "aggregate unavailable")

	d := NewDashboard(h.deps)
	err := d.Mount(context.Background())
	require.Error(t, err)
	defer d.Unmount()

	v := d.View()
	assert.False(t, v.Loaded)
	assert.NotEmpty(t, v.Error)
	assert.Equal(t, Metrics{}, v.Metrics)

	h.mem.ClearFailures()
	require.NoError(t, d.Refresh(context.Background()))
	assert.Equal(t, notify.Notice{Level: notify.LevelSuccess, Message: "Dashboard data refreshed"}, h.lastNotice(t))
	v = d.View()
	assert.True(t, v.Loaded)
	assert.Empty(t, v.Error)
	assert.Equal(t, 6, v.Metrics.TotalContacts)
}

func TestDashboardRefreshFailureKeepsData(t *testing.T) {
	h := newHarness(t)
	d := NewDashboard(h.deps)
	require.NoError(t, d.Refresh(context.Background()))

	h.mem.InjectFailure(gateway.EntityContact, gateway.OpGetAll, 0, "timeout")
	require.Error(t, d.Refresh(context.Background()))
	assert.Equal(t, notify.Notice{Level: notify.LevelError, Message: "Failed to refresh dashboard data"}, h.lastNotice(t))

	v := d.View()
	assert.Equal(t, 6, v.Metrics.TotalContacts)
	assert.NotEmpty(t, v.Error)
	assert.Equal(t, 1, h.logs.FilterMessage("dashboard load failed").Len())
}

func TestDashboardReloadsOnDataChanged(t *testing.T) {
	h := newHarness(t)
	d := NewDashboard(h.deps)
	require.NoError(t, d.Mount(context.Background()))
	defer d.Unmount()

	_, err := h.deps.Gateway.Contacts.Create(context.Background(), &models.Contact{Name: "New", Email: "new@example.com", Company: "Co"})
	require.NoError(t, err)
	h.deps.Bus.PublishDataChanged(gateway.EntityContact)

	require.Eventually(t, func() bool {
		return d.View().Metrics.TotalContacts == 7
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDashboardFeedFollowsActivityCreated(t *testing.T) {
	h := newHarness(t)
	d := NewDashboard(h.deps)
	require.NoError(t, d.Mount(context.Background()))
	defer d.Unmount()

	created, err := h.deps.Gateway.Activities.Create(context.Background(), &models.Activity{
		Type: models.ActivityCall, Description: "Follow-up call", Timestamp: testNow,
	})
	require.NoError(t, err)
	h.deps.Bus.PublishActivityCreated(*created, nil)

	require.Eventually(t, func() bool {
		recent := d.View().Recent
		return len(recent) > 0 && recent[0].ID == created.ID
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDashboardUnmountStopsListening(t *testing.T) {
	h := newHarness(t)
	d := NewDashboard(h.deps)
	require.NoError(t, d.Mount(context.Background()))

	activity, changed := h.deps.Bus.Listeners()
	assert.Equal(t, 2, activity)
	assert.Equal(t, 2, changed)

	d.Unmount()
	d.Unmount()
	activity, changed = h.deps.Bus.Listeners()
	assert.Equal(t, 1, activity)
	assert.Equal(t, 1, changed)
}

type gatedContacts struct {
	gateway.Contacts
	block   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (g *gatedContacts) GetAll(ctx context.Context) ([]models.Contact, error) {
	if g.block.Load() {
		g.entered <- struct{}{}
		<-g.release
	}
	return g.Contacts.GetAll(ctx)
}

func TestDashboardDiscardsLoadFinishingAfterUnmount(t *testing.T) {
	h := newHarness(t)
	gw := h.deps.Gateway
	gated := &gatedContacts{Contacts: gw.Contacts, entered: make(chan struct{}), release: make(chan struct{})}
	h.deps.Gateway = gateway.New("gated", gated, gw.Deals, gw.Activities, gw.Templates, nil)

	d := NewDashboard(h.deps)
	require.NoError(t, d.Mount(context.Background()))
	before := d.View().LastUpdated

	_, err := gw.Contacts.Create(context.Background(), &models.Contact{Name: "Late", Email: "late@example.com", Company: "Co"})
	require.NoError(t, err)

	gated.block.Store(true)
	done := make(chan error, 1)
	go func() { done <- d.Refresh(context.Background()) }()
	<-gated.entered

	d.Unmount()
	close(gated.release)

	assert.ErrorIs(t, <-done, ErrUnmounted)
	v := d.View()
	assert.Equal(t, 6, v.Metrics.TotalContacts)
	assert.Equal(t, before, v.LastUpdated)
}
