// ABOUTME: Dashboard container: metrics, pipeline summary and the recent activity feed
// ABOUTME: Loads five sources concurrently and refreshes silently while mounted
package pages

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/harperreed/crmdeck/events"
	"github.com/harperreed/crmdeck/feed"
	"github.com/harperreed/crmdeck/gateway"
	"github.com/harperreed/crmdeck/models"
	"github.com/harperreed/crmdeck/notify"
	"github.com/harperreed/crmdeck/pipeline"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RecentLimit is the number of feed entries the dashboard shows.
const RecentLimit = 5

// ErrUnmounted is returned by loads whose page was unmounted before they finished.
var ErrUnmounted = errors.New("page unmounted")

type Metrics struct {
	TotalContacts  int     `json:"total_contacts"`
	ActiveDeals    int     `json:"active_deals"`
	ConversionRate float64 `json:"conversion_rate"`
	TotalRevenue   float64 `json:"total_revenue"`
}

// DashboardView is a render-ready copy of the dashboard state.
type DashboardView struct {
	Metrics     Metrics           `json:"metrics"`
	Recent      []models.Activity `json:"recent"`
	Board       pipeline.Board    `json:"board"`
	Loading     bool              `json:"loading"`
	Loaded      bool              `json:"loaded"`
	Error       string            `json:"error,omitempty"`
	LastUpdated time.Time         `json:"last_updated"`

	contacts map[int64]string
	deals    map[int64]string
}

// ContactName resolves a feed row's contact.
func (v DashboardView) ContactName(id *int64) string {
	if id == nil {
		return ""
	}
	return v.contacts[*id]
}

// DealTitle resolves a feed row's deal.
func (v DashboardView) DealTitle(id *int64) string {
	if id == nil {
		return ""
	}
	return v.deals[*id]
}

type snapshot struct {
	contacts   []models.Contact
	deals      []models.Deal
	revenue    float64
	conversion models.ConversionMetrics
	recent     []models.Activity
}

type Dashboard struct {
	deps Deps

	mu          sync.Mutex
	data        snapshot
	loaded      bool
	loading     int
	err         error
	lastUpdated time.Time
	issued      uint64
	applied     uint64

	mounted bool
	gen     uint64
	cancel  context.CancelFunc
	unsub   func()
	syncer  *feed.Syncer
	wg      sync.WaitGroup
	reload  chan struct{}
}

func NewDashboard(deps Deps) *Dashboard {
	return &Dashboard{deps: deps.WithDefaults(), reload: make(chan struct{}, 1)}
}

// Mount performs the initial load and starts the background refreshers.
// An initial load failure is returned and kept as the view's error, but the
// page stays mounted so Refresh can retry.
func (d *Dashboard) Mount(ctx context.Context) error {
	d.mu.Lock()
	if d.mounted {
		d.mu.Unlock()
		return nil
	}
	d.mounted = true
	ctx, d.cancel = context.WithCancel(ctx)
	d.unsub = d.deps.Bus.OnDataChanged(func(events.DataChanged) { d.requestReload() })
	d.syncer = feed.NewSyncer(d.deps.Feed, d.deps.Gateway.Activities, d.deps.Bus, d.deps.Interval, d.deps.Logger)
	d.mu.Unlock()

	err := d.load(ctx, true)

	d.wg.Add(1)
	go d.loop(ctx)
	d.syncer.Start(ctx)
	return err
}

// Unmount stops every refresher and waits for in-flight work. Results that
// arrive afterwards are discarded.
func (d *Dashboard) Unmount() {
	d.mu.Lock()
	if !d.mounted {
		d.mu.Unlock()
		return
	}
	d.mounted = false
	d.gen++
	cancel, unsub, syncer := d.cancel, d.unsub, d.syncer
	d.mu.Unlock()

	unsub()
	syncer.Stop()
	cancel()
	d.wg.Wait()
}

// Refresh is the user-requested reload; it reports its outcome as a notice.
// It also works on a dashboard that was never mounted.
func (d *Dashboard) Refresh(ctx context.Context) error {
	if err := d.load(ctx, true); err != nil {
		notify.Error(d.deps.Notifier, "Failed to refresh dashboard data")
		return err
	}
	notify.Success(d.deps.Notifier, "Dashboard data refreshed")
	return nil
}

func (d *Dashboard) requestReload() {
	select {
	case d.reload <- struct{}{}:
	default:
	}
}

func (d *Dashboard) loop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.reload:
		}
		if err := d.load(ctx, false); err != nil && !errors.Is(err, ErrUnmounted) {
			d.deps.Logger.Warn("dashboard silent refresh failed", zap.Error(err))
		}
	}
}

// load fetches everything the dashboard shows. Either all five calls
// succeed and the result replaces the current state, or nothing changes.
// A visible load that fails sets the view error; a silent one leaves the
// view untouched.
func (d *Dashboard) load(ctx context.Context, visible bool) error {
	d.mu.Lock()
	gen := d.gen
	d.issued++
	seq := d.issued
	if visible {
		d.loading++
	}
	d.mu.Unlock()

	tok := d.deps.Feed.Begin(visible)
	snap, err := d.fetch(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	if visible {
		d.loading--
	}
	if gen != d.gen {
		d.deps.Feed.Abandon(tok)
		return ErrUnmounted
	}
	if err != nil {
		d.deps.Feed.Complete(tok, nil, err)
		if visible {
			d.err = err
		}
		return err
	}
	d.deps.Feed.Complete(tok, snap.recent, nil)
	if seq <= d.applied {
		return nil
	}
	d.applied = seq
	d.data = snap
	d.loaded = true
	d.err = nil
	d.lastUpdated = d.deps.Now()
	return nil
}

func (d *Dashboard) fetch(ctx context.Context) (snapshot, error) {
	var snap snapshot
	gw := d.deps.Gateway
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		snap.contacts, err = gw.Contacts.GetAll(gctx)
		return d.logged(err, gateway.OpGetAll, gateway.EntityContact)
	})
	g.Go(func() (err error) {
		snap.deals, err = gw.Deals.GetAll(gctx)
		return d.logged(err, gateway.OpGetAll, gateway.EntityDeal)
	})
	g.Go(func() (err error) {
		snap.revenue, err = gw.Deals.Revenue(gctx)
		return d.logged(err, gateway.OpRevenue, gateway.EntityDeal)
	})
	g.Go(func() (err error) {
		snap.conversion, err = gw.Deals.ConversionMetrics(gctx)
		return d.logged(err, gateway.OpConversion, gateway.EntityDeal)
	})
	g.Go(func() (err error) {
		snap.recent, err = gw.Activities.Recent(gctx, d.deps.Feed.Cap())
		return d.logged(err, gateway.OpRecent, gateway.EntityActivity)
	})

	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func (d *Dashboard) logged(err error, op, entity string) error {
	if err != nil && !errors.Is(err, context.Canceled) {
		logFailure(d.deps.Logger, "dashboard load failed", op, entity, 0, err)
	}
	return err
}

// View returns the current render state. Recent rows come from the shared
// feed, so activities appended elsewhere show up without a reload.
func (d *Dashboard) View() DashboardView {
	d.mu.Lock()
	defer d.mu.Unlock()

	v := DashboardView{
		Metrics: Metrics{
			TotalContacts:  len(d.data.contacts),
			ActiveDeals:    pipeline.ActiveDeals(d.data.deals),
			ConversionRate: d.data.conversion.ConversionRate,
			TotalRevenue:   d.data.revenue,
		},
		Recent:      d.deps.Feed.Top(RecentLimit),
		Board:       pipeline.GroupByStage(d.data.deals, pipeline.DefaultStages),
		Loading:     d.loading > 0,
		Loaded:      d.loaded,
		LastUpdated: d.lastUpdated,
		contacts:    make(map[int64]string, len(d.data.contacts)),
		deals:       make(map[int64]string, len(d.data.deals)),
	}
	if d.err != nil {
		v.Error = d.err.Error()
	}
	for _, c := range d.data.contacts {
		v.contacts[c.ID] = c.Name
	}
	for _, deal := range d.data.deals {
		v.deals[deal.ID] = deal.DisplayName()
	}
	return v
}
