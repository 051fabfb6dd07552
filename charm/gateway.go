// ABOUTME: Record gateway backed by the charm key-value store
// ABOUTME: Stores each record as JSON under "<entity>:<id>" with a per-entity id sequence

package charm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/harperreed/crmdeck/gateway"
	"github.com/harperreed/crmdeck/models"
)

// Store serves the gateway contracts from a Client. Writes are serialized
// so id sequences and read-modify-write updates stay consistent.
type Store struct {
	client *Client
	now    func() time.Time
	mu     sync.Mutex
}

func NewStore(c *Client) *Store {
	return &Store{client: c, now: time.Now}
}

// Gateway exposes the store through the gateway contracts. Closing the
// gateway closes the client.
func (s *Store) Gateway() *gateway.Gateway {
	return gateway.New("charm",
		&kvContacts{collection[models.Contact]{s, gateway.EntityContact, func(c *models.Contact) int64 { return c.ID }, func(c *models.Contact, id int64) { c.ID = id }}},
		&kvDeals{collection[models.Deal]{s, gateway.EntityDeal, func(d *models.Deal) int64 { return d.ID }, func(d *models.Deal, id int64) { d.ID = id }}},
		&kvActivities{collection[models.Activity]{s, gateway.EntityActivity, func(a *models.Activity) int64 { return a.ID }, func(a *models.Activity, id int64) { a.ID = id }}},
		&kvTemplates{collection[models.EmailTemplate]{s, gateway.EntityTemplate, func(t *models.EmailTemplate) int64 { return t.ID }, func(t *models.EmailTemplate, id int64) { t.ID = id }}},
		s.client.Close,
	)
}

// Seed writes a dataset, keeping the ids it carries.
func (s *Store) Seed(ctx context.Context, data gateway.Dataset) error {
	gw := s.Gateway()
	for _, c := range data.Contacts {
		if err := gw.Contacts.(*kvContacts).put(ctx, gateway.OpCreate, &c); err != nil {
			return err
		}
	}
	for _, d := range data.Deals {
		if err := gw.Deals.(*kvDeals).put(ctx, gateway.OpCreate, &d); err != nil {
			return err
		}
	}
	for _, a := range data.Activities {
		if err := gw.Activities.(*kvActivities).put(ctx, gateway.OpCreate, &a); err != nil {
			return err
		}
	}
	for _, t := range data.Templates {
		if err := gw.Templates.(*kvTemplates).put(ctx, gateway.OpCreate, &t); err != nil {
			return err
		}
	}
	return nil
}

type collection[T any] struct {
	s      *Store
	entity string
	id     func(*T) int64
	setID  func(*T, int64)
}

// Zero padding keeps badger's lexical key order equal to id order.
func (c collection[T]) key(id int64) []byte {
	return []byte(fmt.Sprintf("%s:%020d", c.entity, id))
}

func (c collection[T]) seqKey() []byte {
	return []byte("seq:" + c.entity)
}

func (c collection[T]) list(ctx context.Context, op string) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, gateway.Transport(op, c.entity, 0, err)
	}
	keys, err := c.s.client.KeysWithPrefix([]byte(c.entity + ":"))
	if err != nil {
		return nil, gateway.Transport(op, c.entity, 0, err)
	}
	sort.Slice(keys, func(i, j int) bool { return string(keys[i]) < string(keys[j]) })

	out := make([]T, 0, len(keys))
	for _, k := range keys {
		raw, err := c.s.client.Get(k)
		if errors.Is(err, ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, gateway.Transport(op, c.entity, 0, err)
		}
		var row T
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, gateway.Decode(op, c.entity, err)
		}
		out = append(out, row)
	}
	return out, nil
}

func (c collection[T]) get(ctx context.Context, op string, id int64) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, gateway.Transport(op, c.entity, id, err)
	}
	raw, err := c.s.client.Get(c.key(id))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, gateway.NotFound(op, c.entity, id)
	}
	if err != nil {
		return nil, gateway.Transport(op, c.entity, id, err)
	}
	var row T
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, gateway.Decode(op, c.entity, err)
	}
	return &row, nil
}

// put stores row, assigning the next id when it has none. Callers hold s.mu
// unless they are seeding.
func (c collection[T]) put(ctx context.Context, op string, row *T) error {
	if err := ctx.Err(); err != nil {
		return gateway.Transport(op, c.entity, c.id(row), err)
	}
	if c.id(row) == 0 {
		next, err := c.nextID()
		if err != nil {
			return gateway.Transport(op, c.entity, 0, err)
		}
		c.setID(row, next)
	} else if err := c.bumpSeq(c.id(row)); err != nil {
		return gateway.Transport(op, c.entity, c.id(row), err)
	}

	data, err := json.Marshal(row)
	if err != nil {
		return gateway.Decode(op, c.entity, err)
	}
	if err := c.s.client.Set(c.key(c.id(row)), data); err != nil {
		return gateway.Transport(op, c.entity, c.id(row), err)
	}
	return nil
}

func (c collection[T]) currentSeq() (int64, error) {
	raw, err := c.s.client.Get(c.seqKey())
	if errors.Is(err, ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(raw), 10, 64)
}

func (c collection[T]) nextID() (int64, error) {
	cur, err := c.currentSeq()
	if err != nil {
		return 0, err
	}
	next := cur + 1
	return next, c.s.client.Set(c.seqKey(), []byte(strconv.FormatInt(next, 10)))
}

// bumpSeq keeps the sequence ahead of explicitly supplied ids.
func (c collection[T]) bumpSeq(id int64) error {
	cur, err := c.currentSeq()
	if err != nil {
		return err
	}
	if id <= cur {
		return nil
	}
	return c.s.client.Set(c.seqKey(), []byte(strconv.FormatInt(id, 10)))
}

func (c collection[T]) remove(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return gateway.Transport(gateway.OpDelete, c.entity, id, err)
	}
	if err := c.s.client.Delete(c.key(id)); err != nil && !errors.Is(err, ErrKeyNotFound) {
		return gateway.Transport(gateway.OpDelete, c.entity, id, err)
	}
	return nil
}

func (c collection[T]) create(ctx context.Context, row T) (*T, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.setID(&row, 0)
	if err := c.put(ctx, gateway.OpCreate, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// update replaces the stored record after fix adjusts the incoming one
// against the current value.
func (c collection[T]) update(ctx context.Context, op string, id int64, row T, fix func(current, next *T) error) (*T, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	current, err := c.get(ctx, op, id)
	if err != nil {
		return nil, err
	}
	c.setID(&row, id)
	if fix != nil {
		if err := fix(current, &row); err != nil {
			return nil, err
		}
	}
	if err := c.put(ctx, op, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

type kvContacts struct{ collection[models.Contact] }

func (r *kvContacts) GetAll(ctx context.Context) ([]models.Contact, error) {
	return r.list(ctx, gateway.OpGetAll)
}

func (r *kvContacts) GetByID(ctx context.Context, id int64) (*models.Contact, error) {
	return r.get(ctx, gateway.OpGetByID, id)
}

func (r *kvContacts) Create(ctx context.Context, c *models.Contact) (*models.Contact, error) {
	row := *c
	now := r.s.now()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	if row.Status == "" {
		row.Status = models.StatusLead
	}
	return r.create(ctx, row)
}

func (r *kvContacts) Update(ctx context.Context, id int64, c *models.Contact) (*models.Contact, error) {
	return r.update(ctx, gateway.OpUpdate, id, *c, func(cur, next *models.Contact) error {
		next.CreatedAt = cur.CreatedAt
		next.UpdatedAt = r.s.now()
		return nil
	})
}

func (r *kvContacts) Delete(ctx context.Context, id int64) error {
	return r.remove(ctx, id)
}

func (r *kvContacts) BulkUpdate(ctx context.Context, ids []int64, patch models.Patch) (gateway.BatchResult, error) {
	var res gateway.BatchResult
	if err := patch.Validate(); err != nil {
		return res, gateway.Invalid(gateway.OpBulkUpdate, gateway.EntityContact, 0, err)
	}
	for _, id := range ids {
		_, err := r.update(ctx, gateway.OpBulkUpdate, id, models.Contact{}, func(cur, next *models.Contact) error {
			*next = *cur
			if err := patch.ApplyToContact(next); err != nil {
				return err
			}
			next.UpdatedAt = r.s.now()
			return nil
		})
		if err != nil {
			res.Fail(id, failureMessage(err))
			continue
		}
		res.OK(id)
	}
	return res, nil
}

func (r *kvContacts) BulkDelete(ctx context.Context, ids []int64) (gateway.BatchResult, error) {
	var res gateway.BatchResult
	for _, id := range ids {
		if err := r.remove(ctx, id); err != nil {
			res.Fail(id, failureMessage(err))
			continue
		}
		res.OK(id)
	}
	return res, nil
}

func failureMessage(err error) string {
	var gerr *gateway.Error
	if errors.As(err, &gerr) {
		if gerr.Kind == gateway.KindNotFound {
			return "record not found"
		}
		if gerr.Message != "" {
			return gerr.Message
		}
	}
	return err.Error()
}

type kvDeals struct{ collection[models.Deal] }

func (r *kvDeals) GetAll(ctx context.Context) ([]models.Deal, error) {
	return r.list(ctx, gateway.OpGetAll)
}

func (r *kvDeals) GetByID(ctx context.Context, id int64) (*models.Deal, error) {
	return r.get(ctx, gateway.OpGetByID, id)
}

func (r *kvDeals) Create(ctx context.Context, d *models.Deal) (*models.Deal, error) {
	row := *d
	now := r.s.now()
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
	return r.create(ctx, row)
}

func (r *kvDeals) Update(ctx context.Context, id int64, d *models.Deal) (*models.Deal, error) {
	return r.update(ctx, gateway.OpUpdate, id, *d, func(cur, next *models.Deal) error {
		next.CreatedAt = cur.CreatedAt
		next.UpdatedAt = r.s.now()
		if next.Name == "" {
			next.Name = next.Title
		}
		return nil
	})
}

func (r *kvDeals) Delete(ctx context.Context, id int64) error {
	return r.remove(ctx, id)
}

func (r *kvDeals) UpdateStage(ctx context.Context, id int64, stage string) (*models.Deal, error) {
	if !models.IsValidStage(stage) {
		return nil, gateway.Invalid(gateway.OpUpdateStage, gateway.EntityDeal, id, fmt.Errorf("unknown stage %q", stage))
	}
	return r.update(ctx, gateway.OpUpdateStage, id, models.Deal{}, func(cur, next *models.Deal) error {
		*next = *cur
		next.Stage = stage
		next.UpdatedAt = r.s.now()
		return nil
	})
}

func (r *kvDeals) Revenue(ctx context.Context) (float64, error) {
	deals, err := r.list(ctx, gateway.OpRevenue)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, d := range deals {
		if d.Stage == models.StageWon {
			total += d.Value
		}
	}
	return total, nil
}

func (r *kvDeals) ConversionMetrics(ctx context.Context) (models.ConversionMetrics, error) {
	deals, err := r.list(ctx, gateway.OpConversion)
	if err != nil {
		return models.ConversionMetrics{}, err
	}
	won := 0
	for _, d := range deals {
		if d.Stage == models.StageWon {
			won++
		}
	}
	return models.NewConversionMetrics(len(deals), won), nil
}

type kvActivities struct{ collection[models.Activity] }

func (r *kvActivities) GetAll(ctx context.Context) ([]models.Activity, error) {
	return r.list(ctx, gateway.OpGetAll)
}

func (r *kvActivities) GetByID(ctx context.Context, id int64) (*models.Activity, error) {
	return r.get(ctx, gateway.OpGetByID, id)
}

func (r *kvActivities) Create(ctx context.Context, a *models.Activity) (*models.Activity, error) {
	row := *a
	now := r.s.now()
	if row.Timestamp.IsZero() {
		row.Timestamp = now
	}
	row.CreatedAt = now
	return r.create(ctx, row)
}

func (r *kvActivities) Update(ctx context.Context, id int64, a *models.Activity) (*models.Activity, error) {
	return r.update(ctx, gateway.OpUpdate, id, *a, func(cur, next *models.Activity) error {
		next.CreatedAt = cur.CreatedAt
		return nil
	})
}

func (r *kvActivities) Delete(ctx context.Context, id int64) error {
	return r.remove(ctx, id)
}

func (r *kvActivities) Recent(ctx context.Context, limit int) ([]models.Activity, error) {
	all, err := r.list(ctx, gateway.OpRecent)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

type kvTemplates struct{ collection[models.EmailTemplate] }

func (r *kvTemplates) GetAll(ctx context.Context) ([]models.EmailTemplate, error) {
	return r.list(ctx, gateway.OpGetAll)
}

func (r *kvTemplates) GetByID(ctx context.Context, id int64) (*models.EmailTemplate, error) {
	return r.get(ctx, gateway.OpGetByID, id)
}

func (r *kvTemplates) Create(ctx context.Context, t *models.EmailTemplate) (*models.EmailTemplate, error) {
	return r.create(ctx, *t)
}

func (r *kvTemplates) Update(ctx context.Context, id int64, t *models.EmailTemplate) (*models.EmailTemplate, error) {
	return r.update(ctx, gateway.OpUpdate, id, *t, nil)
}

func (r *kvTemplates) Delete(ctx context.Context, id int64) error {
	return r.remove(ctx, id)
}
