// ABOUTME: Activities container: full activity log with search and type filters
// ABOUTME: New activities are pushed to the shared feed and announced on the bus
package pages

import (
	"context"
	"sync"

	"github.com/harperreed/crmdeck/filter"
	"github.com/harperreed/crmdeck/gateway"
	"github.com/harperreed/crmdeck/models"
	"github.com/harperreed/crmdeck/notify"
)

type Activities struct {
	deps Deps

	mu       sync.RWMutex
	all      []models.Activity
	criteria filter.ActivityCriteria
	err      error
}

func NewActivities(deps Deps) *Activities {
	return &Activities{deps: deps.WithDefaults()}
}

func (p *Activities) Load(ctx context.Context) error {
	all, err := p.deps.Gateway.Activities.GetAll(ctx)
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		logFailure(p.deps.Logger, "failed to load activities", gateway.OpGetAll, gateway.EntityActivity, 0, err)
		p.err = err
		return err
	}
	p.all = all
	p.err = nil
	return nil
}

func (p *Activities) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

func (p *Activities) SetCriteria(c filter.ActivityCriteria) {
	p.mu.Lock()
	p.criteria = c
	p.mu.Unlock()
}

// View returns the filtered activities, newest first.
func (p *Activities) View() []models.Activity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return filter.Activities(p.all, p.criteria)
}

// Create validates and persists an activity. A zero timestamp means now.
func (p *Activities) Create(ctx context.Context, a models.Activity) (*models.Activity, error) {
	if a.Timestamp.IsZero() {
		a.Timestamp = p.deps.Now()
	}
	if err := models.ValidateActivity(&a); err != nil {
		return nil, err
	}
	created, err := p.deps.Gateway.Activities.Create(ctx, &a)
	if err != nil {
		logFailure(p.deps.Logger, "failed to create activity", gateway.OpCreate, gateway.EntityActivity, 0, err)
		notify.Error(p.deps.Notifier, "Failed to create activity")
		return nil, err
	}

	p.mu.Lock()
	p.all = append([]models.Activity{*created}, p.all...)
	p.mu.Unlock()

	notify.Success(p.deps.Notifier, "Activity created successfully")
	p.deps.Feed.Append(*created)
	p.deps.Bus.PublishActivityCreated(*created, nil)
	p.deps.Bus.PublishDataChanged(gateway.EntityActivity)
	return created, nil
}
