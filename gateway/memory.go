// ABOUTME: In-memory mock backend for the record gateway
// ABOUTME: Simulates latency and per-record failures over seeded fixture data
package gateway

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/harperreed/crmdeck/models"
)

// Operation names shared by logs, errors and failure injection.
const (
	OpGetAll      = "get_all"
	OpGetByID     = "get_by_id"
	OpCreate      = "create"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpBulkUpdate  = "bulk_update"
	OpBulkDelete  = "bulk_delete"
	OpUpdateStage = "update_stage"
	OpRevenue     = "revenue"
	OpConversion  = "conversion_metrics"
	OpRecent      = "recent"
)

type failKey struct {
	entity string
	op     string
	id     int64
}

// Memory keeps every collection in process. It stands in for the remote
// store during development and tests.
type Memory struct {
	contacts   *table[models.Contact]
	deals      *table[models.Deal]
	activities *table[models.Activity]
	templates  *table[models.EmailTemplate]

	latency time.Duration
	now     func() time.Time

	mu       sync.Mutex
	failures map[failKey]string
}

type MemoryOption func(*Memory)

// WithLatency delays every call by d, honoring context cancellation.
func WithLatency(d time.Duration) MemoryOption {
	return func(m *Memory) { m.latency = d }
}

// WithClock overrides the timestamp source for created records.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// WithFixtures seeds the sample dataset.
func WithFixtures() MemoryOption {
	return func(m *Memory) { m.Seed(Fixtures(m.now())) }
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		contacts:   newTable(func(c *models.Contact) int64 { return c.ID }, func(c *models.Contact, id int64) { c.ID = id }, cloneContact),
		deals:      newTable(func(d *models.Deal) int64 { return d.ID }, func(d *models.Deal, id int64) { d.ID = id }, cloneDeal),
		activities: newTable(func(a *models.Activity) int64 { return a.ID }, func(a *models.Activity, id int64) { a.ID = id }, cloneActivity),
		templates:  newTable(func(t *models.EmailTemplate) int64 { return t.ID }, func(t *models.EmailTemplate, id int64) { t.ID = id }, func(t models.EmailTemplate) models.EmailTemplate { return t }),
		now:        time.Now,
		failures:   make(map[failKey]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Gateway exposes the memory store through the gateway contracts.
func (m *Memory) Gateway() *Gateway {
	return New("mock",
		&memoryContacts{m},
		&memoryDeals{m},
		&memoryActivities{m},
		&memoryTemplates{m},
		nil,
	)
}

// Seed inserts a dataset, keeping the ids it carries.
func (m *Memory) Seed(data Dataset) {
	for _, c := range data.Contacts {
		m.contacts.insert(c)
	}
	for _, d := range data.Deals {
		m.deals.insert(d)
	}
	for _, a := range data.Activities {
		m.activities.insert(a)
	}
	for _, t := range data.Templates {
		m.templates.insert(t)
	}
}

// InjectFailure makes op on entity fail with msg. An id of 0 matches calls
// that are not about a single record.
func (m *Memory) InjectFailure(entity, op string, id int64, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[failKey{entity, op, id}] = msg
}

func (m *Memory) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = make(map[failKey]string)
}

func (m *Memory) failure(entity, op string, id int64) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.failures[failKey{entity, op, id}]
	return msg, ok
}

// begin waits out the simulated latency and applies collection-level failures.
func (m *Memory) begin(ctx context.Context, entity, op string, id int64) error {
	if m.latency > 0 {
		timer := time.NewTimer(m.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Transport(op, entity, id, ctx.Err())
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return Transport(op, entity, id, err)
	}
	if msg, ok := m.failure(entity, op, id); ok {
		return Remote(op, entity, id, msg)
	}
	return nil
}

type memoryContacts struct{ m *Memory }

func (s *memoryContacts) GetAll(ctx context.Context) ([]models.Contact, error) {
	if err := s.m.begin(ctx, EntityContact, OpGetAll, 0); err != nil {
		return nil, err
	}
	return s.m.contacts.all(), nil
}

func (s *memoryContacts) GetByID(ctx context.Context, id int64) (*models.Contact, error) {
	if err := s.m.begin(ctx, EntityContact, OpGetByID, id); err != nil {
		return nil, err
	}
	c, ok := s.m.contacts.get(id)
	if !ok {
		return nil, NotFound(OpGetByID, EntityContact, id)
	}
	return &c, nil
}

func (s *memoryContacts) Create(ctx context.Context, c *models.Contact) (*models.Contact, error) {
	if err := s.m.begin(ctx, EntityContact, OpCreate, 0); err != nil {
		return nil, err
	}
	row := *c
	row.ID = 0
	now := s.m.now()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	if row.Status == "" {
		row.Status = models.StatusLead
	}
	created := s.m.contacts.insert(row)
	return &created, nil
}

func (s *memoryContacts) Update(ctx context.Context, id int64, c *models.Contact) (*models.Contact, error) {
	if err := s.m.begin(ctx, EntityContact, OpUpdate, id); err != nil {
		return nil, err
	}
	updated, found, _ := s.m.contacts.mutate(id, func(row *models.Contact) error {
		created := row.CreatedAt
		*row = *c
		row.CreatedAt = created
		row.UpdatedAt = s.m.now()
		return nil
	})
	if !found {
		return nil, NotFound(OpUpdate, EntityContact, id)
	}
	return &updated, nil
}

func (s *memoryContacts) Delete(ctx context.Context, id int64) error {
	if err := s.m.begin(ctx, EntityContact, OpDelete, id); err != nil {
		return err
	}
	s.m.contacts.remove(id)
	return nil
}

func (s *memoryContacts) BulkUpdate(ctx context.Context, ids []int64, patch models.Patch) (BatchResult, error) {
	var res BatchResult
	if err := s.m.begin(ctx, EntityContact, OpBulkUpdate, 0); err != nil {
		return res, err
	}
	if err := patch.Validate(); err != nil {
		return res, Invalid(OpBulkUpdate, EntityContact, 0, err)
	}
	for _, id := range ids {
		if msg, ok := s.m.failure(EntityContact, OpBulkUpdate, id); ok {
			res.Fail(id, msg)
			continue
		}
		_, found, err := s.m.contacts.mutate(id, func(row *models.Contact) error {
			row.UpdatedAt = s.m.now()
			return patch.ApplyToContact(row)
		})
		switch {
		case !found:
			res.Fail(id, "record not found")
		case err != nil:
			res.Fail(id, err.Error())
		default:
			res.OK(id)
		}
	}
	return res, nil
}

func (s *memoryContacts) BulkDelete(ctx context.Context, ids []int64) (BatchResult, error) {
	var res BatchResult
	if err := s.m.begin(ctx, EntityContact, OpBulkDelete, 0); err != nil {
		return res, err
	}
	for _, id := range ids {
		if msg, ok := s.m.failure(EntityContact, OpBulkDelete, id); ok {
			res.Fail(id, msg)
			continue
		}
		s.m.contacts.remove(id)
		res.OK(id)
	}
	return res, nil
}

type memoryDeals struct{ m *Memory }

func (s *memoryDeals) GetAll(ctx context.Context) ([]models.Deal, error) {
	if err := s.m.begin(ctx, EntityDeal, OpGetAll, 0); err != nil {
		return nil, err
	}
	return s.m.deals.all(), nil
}

func (s *memoryDeals) GetByID(ctx context.Context, id int64) (*models.Deal, error) {
	if err := s.m.begin(ctx, EntityDeal, OpGetByID, id); err != nil {
		return nil, err
	}
	d, ok := s.m.deals.get(id)
	if !ok {
		return nil, NotFound(OpGetByID, EntityDeal, id)
	}
	return &d, nil
}

func (s *memoryDeals) Create(ctx context.Context, d *models.Deal) (*models.Deal, error) {
	if err := s.m.begin(ctx, EntityDeal, OpCreate, 0); err != nil {
		return nil, err
	}
	row := *d
	row.ID = 0
	now := s.m.now()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	if row.Stage == "" {
		row.Stage = models.StageLead
	}
	if row.Name == "" {
		row.Name = row.Title
	}
	created := s.m.deals.insert(row)
	return &created, nil
}

func (s *memoryDeals) Update(ctx context.Context, id int64, d *models.Deal) (*models.Deal, error) {
	if err := s.m.begin(ctx, EntityDeal, OpUpdate, id); err != nil {
		return nil, err
	}
	updated, found, _ := s.m.deals.mutate(id, func(row *models.Deal) error {
		created := row.CreatedAt
		*row = *d
		row.CreatedAt = created
		row.UpdatedAt = s.m.now()
		return nil
	})
	if !found {
		return nil, NotFound(OpUpdate, EntityDeal, id)
	}
	return &updated, nil
}

func (s *memoryDeals) Delete(ctx context.Context, id int64) error {
	if err := s.m.begin(ctx, EntityDeal, OpDelete, id); err != nil {
		return err
	}
	s.m.deals.remove(id)
	return nil
}

func (s *memoryDeals) UpdateStage(ctx context.Context, id int64, stage string) (*models.Deal, error) {
	if err := s.m.begin(ctx, EntityDeal, OpUpdateStage, id); err != nil {
		return nil, err
	}
	if !models.IsValidStage(stage) {
		return nil, Invalid(OpUpdateStage, EntityDeal, id, fmt.Errorf("unknown stage %q", stage))
	}
	updated, found, _ := s.m.deals.mutate(id, func(row *models.Deal) error {
		row.Stage = stage
		row.UpdatedAt = s.m.now()
		return nil
	})
	if !found {
		return nil, NotFound(OpUpdateStage, EntityDeal, id)
	}
	return &updated, nil
}

func (s *memoryDeals) Revenue(ctx context.Context) (float64, error) {
	if err := s.m.begin(ctx, EntityDeal, OpRevenue, 0); err != nil {
		return 0, err
	}
	var total float64
	for _, d := range s.m.deals.all() {
		if d.Stage == models.StageWon {
			total += d.Value
		}
	}
	return total, nil
}

func (s *memoryDeals) ConversionMetrics(ctx context.Context) (models.ConversionMetrics, error) {
	if err := s.m.begin(ctx, EntityDeal, OpConversion, 0); err != nil {
		return models.ConversionMetrics{}, err
	}
	deals := s.m.deals.all()
	won := 0
	for _, d := range deals {
		if d.Stage == models.StageWon {
			won++
		}
	}
	return models.NewConversionMetrics(len(deals), won), nil
}

type memoryActivities struct{ m *Memory }

func (s *memoryActivities) GetAll(ctx context.Context) ([]models.Activity, error) {
	if err := s.m.begin(ctx, EntityActivity, OpGetAll, 0); err != nil {
		return nil, err
	}
	return s.m.activities.all(), nil
}

func (s *memoryActivities) GetByID(ctx context.Context, id int64) (*models.Activity, error) {
	if err := s.m.begin(ctx, EntityActivity, OpGetByID, id); err != nil {
		return nil, err
	}
	a, ok := s.m.activities.get(id)
	if !ok {
		return nil, NotFound(OpGetByID, EntityActivity, id)
	}
	return &a, nil
}

func (s *memoryActivities) Create(ctx context.Context, a *models.Activity) (*models.Activity, error) {
	if err := s.m.begin(ctx, EntityActivity, OpCreate, 0); err != nil {
		return nil, err
	}
	row := *a
	row.ID = 0
	now := s.m.now()
	if row.Timestamp.IsZero() {
		row.Timestamp = now
	}
	row.CreatedAt = now
	created := s.m.activities.insert(row)
	return &created, nil
}

func (s *memoryActivities) Update(ctx context.Context, id int64, a *models.Activity) (*models.Activity, error) {
	if err := s.m.begin(ctx, EntityActivity, OpUpdate, id); err != nil {
		return nil, err
	}
	updated, found, _ := s.m.activities.mutate(id, func(row *models.Activity) error {
		created := row.CreatedAt
		*row = *a
		row.CreatedAt = created
		return nil
	})
	if !found {
		return nil, NotFound(OpUpdate, EntityActivity, id)
	}
	return &updated, nil
}

func (s *memoryActivities) Delete(ctx context.Context, id int64) error {
	if err := s.m.begin(ctx, EntityActivity, OpDelete, id); err != nil {
		return err
	}
	s.m.activities.remove(id)
	return nil
}

func (s *memoryActivities) Recent(ctx context.Context, limit int) ([]models.Activity, error) {
	if err := s.m.begin(ctx, EntityActivity, OpRecent, 0); err != nil {
		return nil, err
	}
	all := s.m.activities.all()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

type memoryTemplates struct{ m *Memory }

func (s *memoryTemplates) GetAll(ctx context.Context) ([]models.EmailTemplate, error) {
	if err := s.m.begin(ctx, EntityTemplate, OpGetAll, 0); err != nil {
		return nil, err
	}
	return s.m.templates.all(), nil
}

func (s *memoryTemplates) GetByID(ctx context.Context, id int64) (*models.EmailTemplate, error) {
	if err := s.m.begin(ctx, EntityTemplate, OpGetByID, id); err != nil {
		return nil, err
	}
	t, ok := s.m.templates.get(id)
	if !ok {
		return nil, NotFound(OpGetByID, EntityTemplate, id)
	}
	return &t, nil
}

func (s *memoryTemplates) Create(ctx context.Context, t *models.EmailTemplate) (*models.EmailTemplate, error) {
	if err := s.m.begin(ctx, EntityTemplate, OpCreate, 0); err != nil {
		return nil, err
	}
	row := *t
	row.ID = 0
	created := s.m.templates.insert(row)
	return &created, nil
}

func (s *memoryTemplates) Update(ctx context.Context, id int64, t *models.EmailTemplate) (*models.EmailTemplate, error) {
	if err := s.m.begin(ctx, EntityTemplate, OpUpdate, id); err != nil {
		return nil, err
	}
	updated, found, _ := s.m.templates.mutate(id, func(row *models.EmailTemplate) error {
		*row = *t
		return nil
	})
	if !found {
		return nil, NotFound(OpUpdate, EntityTemplate, id)
	}
	return &updated, nil
}

func (s *memoryTemplates) Delete(ctx context.Context, id int64) error {
	if err := s.m.begin(ctx, EntityTemplate, OpDelete, id); err != nil {
		return err
	}
	s.m.templates.remove(id)
	return nil
}

func cloneContact(c models.Contact) models.Contact {
	if c.Tags != nil {
		c.Tags = append([]string(nil), c.Tags...)
	}
	if c.LastContacted != nil {
		t := *c.LastContacted
		c.LastContacted = &t
	}
	return c
}

func cloneDeal(d models.Deal) models.Deal {
	if d.ExpectedClose != nil {
		t := *d.ExpectedClose
		d.ExpectedClose = &t
	}
	return d
}

func cloneActivity(a models.Activity) models.Activity {
	if a.ContactID != nil {
		id := *a.ContactID
		a.ContactID = &id
	}
	if a.DealID != nil {
		id := *a.DealID
		a.DealID = &id
	}
	return a
}
