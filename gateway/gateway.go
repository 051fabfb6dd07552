// ABOUTME: Record gateway contracts for contacts, deals, activities and email templates
// ABOUTME: Callers depend on these interfaces and never on a concrete backing store
package gateway

import (
	"context"

	"github.com/harperreed/crmdeck/models"
)

// Entity names used in errors and log fields.
const (
	EntityContact  = "contact"
	EntityDeal     = "deal"
	EntityActivity = "activity"
	EntityTemplate = "email_template"
)

type Contacts interface {
	GetAll(ctx context.Context) ([]models.Contact, error)
	GetByID(ctx context.Context, id int64) (*models.Contact, error)
	Create(ctx context.Context, c *models.Contact) (*models.Contact, error)
	Update(ctx context.Context, id int64, c *models.Contact) (*models.Contact, error)
	Delete(ctx context.Context, id int64) error
	BulkUpdate(ctx context.Context, ids []int64, patch models.Patch) (BatchResult, error)
	BulkDelete(ctx context.Context, ids []int64) (BatchResult, error)
}

type Deals interface {
	GetAll(ctx context.Context) ([]models.Deal, error)
	GetByID(ctx context.Context, id int64) (*models.Deal, error)
	Create(ctx context.Context, d *models.Deal) (*models.Deal, error)
	Update(ctx context.Context, id int64, d *models.Deal) (*models.Deal, error)
	Delete(ctx context.Context, id int64) error
	UpdateStage(ctx context.Context, id int64, stage string) (*models.Deal, error)
	// Revenue sums the value of won deals.
	Revenue(ctx context.Context) (float64, error)
	ConversionMetrics(ctx context.Context) (models.ConversionMetrics, error)
}

type Activities interface {
	GetAll(ctx context.Context) ([]models.Activity, error)
	GetByID(ctx context.Context, id int64) (*models.Activity, error)
	Create(ctx context.Context, a *models.Activity) (*models.Activity, error)
	Update(ctx context.Context, id int64, a *models.Activity) (*models.Activity, error)
	Delete(ctx context.Context, id int64) error
	// Recent returns at most limit activities, newest first.
	Recent(ctx context.Context, limit int) ([]models.Activity, error)
}

type Templates interface {
	GetAll(ctx context.Context) ([]models.EmailTemplate, error)
	GetByID(ctx context.Context, id int64) (*models.EmailTemplate, error)
	Create(ctx context.Context, t *models.EmailTemplate) (*models.EmailTemplate, error)
	Update(ctx context.Context, id int64, t *models.EmailTemplate) (*models.EmailTemplate, error)
	Delete(ctx context.Context, id int64) error
}

// Gateway bundles one backing strategy's entity stores. It is chosen once at
// startup and handed to every page.
type Gateway struct {
	Backend    string
	Contacts   Contacts
	Deals      Deals
	Activities Activities
	Templates  Templates
	closer     func() error
}

// Close releases the backend's resources.
func (g *Gateway) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer()
}

// New assembles a gateway. closer may be nil.
func New(backend string, c Contacts, d Deals, a Activities, t Templates, closer func() error) *Gateway {
	return &Gateway{
		Backend:    backend,
		Contacts:   c,
		Deals:      d,
		Activities: a,
		Templates:  t,
		closer:     closer,
	}
}

// RecordFailure describes one id a batch operation could not apply.
type RecordFailure struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// BatchResult reports per-record outcomes of a bulk call.
type BatchResult struct {
	Succeeded []int64         `json:"succeeded"`
	Failed    []RecordFailure `json:"failed"`
}

func (r *BatchResult) OK(id int64) {
	r.Succeeded = append(r.Succeeded, id)
}

func (r *BatchResult) Fail(id int64, msg string) {
	r.Failed = append(r.Failed, RecordFailure{ID: id, Message: msg})
}

// SucceededSet returns the succeeded ids as a set.
func (r BatchResult) SucceededSet() map[int64]struct{} {
	set := make(map[int64]struct{}, len(r.Succeeded))
	for _, id := range r.Succeeded {
		set[id] = struct{}{}
	}
	return set
}
