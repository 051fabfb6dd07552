// ABOUTME: SQL-backed implementation of the record gateway
// ABOUTME: Serves contacts, deals, activities and templates from SQLite or PostgreSQL
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/crmdeck/gateway"
	"github.com/harperreed/crmdeck/models"
)

// Store maps gateway calls onto SQL statements written with ? placeholders.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewStore(database *sql.DB, dialect Dialect) *Store {
	return &Store{db: database, dialect: dialect, now: func() time.Time { return time.Now().UTC() }}
}

// Gateway exposes the store through the gateway contracts. Closing the
// gateway closes the database.
func (s *Store) Gateway() *gateway.Gateway {
	return gateway.New(string(s.dialect),
		&contactsRepo{s},
		&dealsRepo{s},
		&activitiesRepo{s},
		&templatesRepo{s},
		s.db.Close,
	)
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

type contactsRepo struct{ s *Store }

const contactColumns = `id, name, email, phone, company, status, tags, last_contacted, created_at, updated_at`

func scanContact(row scanner) (models.Contact, error) {
	var c models.Contact
	var tags string
	var last sql.NullTime
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.Status, &tags, &last, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return c, err
	}
	c.LastContacted = timePtr(last)
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
			return c, fmt.Errorf("decode tags: %w", err)
		}
	}
	if len(c.Tags) == 0 {
		c.Tags = nil
	}
	return c, nil
}

func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

func (r *contactsRepo) GetAll(ctx context.Context) ([]models.Contact, error) {
	rows, err := r.s.db.QueryContext(ctx, `SELECT `+contactColumns+` FROM contacts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, gateway.Transport(gateway.OpGetAll, gateway.EntityContact, 0, err)
	}
	defer rows.Close()

	var out []models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, gateway.Decode(gateway.OpGetAll, gateway.EntityContact, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, gateway.Transport(gateway.OpGetAll, gateway.EntityContact, 0, err)
	}
	return out, nil
}

func (r *contactsRepo) get(ctx context.Context, q querier, op string, id int64) (*models.Contact, error) {
	c, err := scanContact(q.QueryRowContext(ctx, r.s.rebind(`SELECT `+contactColumns+` FROM contacts WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gateway.NotFound(op, gateway.EntityContact, id)
	}
	if err != nil {
		return nil, gateway.Transport(op, gateway.EntityContact, id, err)
	}
	return &c, nil
}

func (r *contactsRepo) GetByID(ctx context.Context, id int64) (*models.Contact, error) {
	return r.get(ctx, r.s.db, gateway.OpGetByID, id)
}

func (r *contactsRepo) Create(ctx context.Context, c *models.Contact) (*models.Contact, error) {
	row := *c
	now := r.s.now()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	if row.Status == "" {
		row.Status = models.StatusLead
	}

	err := r.s.db.QueryRowContext(ctx, r.s.rebind(`
		INSERT INTO contacts (name, email, phone, company, status, tags, last_contacted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), row.Name, row.Email, row.Phone, row.Company, row.Status, encodeTags(row.Tags), nullTime(row.LastContacted), row.CreatedAt.UTC(), row.UpdatedAt).Scan(&row.ID)
	if err != nil {
		return nil, gateway.Transport(gateway.OpCreate, gateway.EntityContact, 0, err)
	}
	return &row, nil
}

func (r *contactsRepo) write(ctx context.Context, q querier, op string, c *models.Contact) error {
	res, err := q.ExecContext(ctx, r.s.rebind(`
		UPDATE contacts
		SET name = ?, email = ?, phone = ?, company = ?, status = ?, tags = ?, last_contacted = ?, updated_at = ?
		WHERE id = ?
	`), c.Name, c.Email, c.Phone, c.Company, c.Status, encodeTags(c.Tags), nullTime(c.LastContacted), c.UpdatedAt, c.ID)
	if err != nil {
		return gateway.Transport(op, gateway.EntityContact, c.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return gateway.NotFound(op, gateway.EntityContact, c.ID)
	}
	return nil
}

func (r *contactsRepo) Update(ctx context.Context, id int64, c *models.Contact) (*models.Contact, error) {
	current, err := r.get(ctx, r.s.db, gateway.OpUpdate, id)
	if err != nil {
		return nil, err
	}
	row := *c
	row.ID = id
	row.CreatedAt = current.CreatedAt
	row.UpdatedAt = r.s.now()
	if err := r.write(ctx, r.s.db, gateway.OpUpdate, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *contactsRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.s.db.ExecContext(ctx, r.s.rebind(`DELETE FROM contacts WHERE id = ?`), id); err != nil {
		return gateway.Transport(gateway.OpDelete, gateway.EntityContact, id, err)
	}
	return nil
}

// BulkUpdate applies the patch row by row inside one transaction so each id
// gets its own outcome.
func (r *contactsRepo) BulkUpdate(ctx context.Context, ids []int64, patch models.Patch) (gateway.BatchResult, error) {
	var res gateway.BatchResult
	if err := patch.Validate(); err != nil {
		return res, gateway.Invalid(gateway.OpBulkUpdate, gateway.EntityContact, 0, err)
	}

	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, gateway.Transport(gateway.OpBulkUpdate, gateway.EntityContact, 0, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		c, err := r.get(ctx, tx, gateway.OpBulkUpdate, id)
		if err != nil {
			res.Fail(id, failureMessage(err))
			continue
		}
		if err := patch.ApplyToContact(c); err != nil {
			res.Fail(id, err.Error())
			continue
		}
		c.UpdatedAt = r.s.now()
		if err := r.write(ctx, tx, gateway.OpBulkUpdate, c); err != nil {
			res.Fail(id, failureMessage(err))
			continue
		}
		res.OK(id)
	}

	if err := tx.Commit(); err != nil {
		return gateway.BatchResult{}, gateway.Transport(gateway.OpBulkUpdate, gateway.EntityContact, 0, err)
	}
	return res, nil
}

func (r *contactsRepo) BulkDelete(ctx context.Context, ids []int64) (gateway.BatchResult, error) {
	var res gateway.BatchResult
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, gateway.Transport(gateway.OpBulkDelete, gateway.EntityContact, 0, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, r.s.rebind(`DELETE FROM contacts WHERE id = ?`), id); err != nil {
			res.Fail(id, err.Error())
			continue
		}
		res.OK(id)
	}

	if err := tx.Commit(); err != nil {
		return gateway.BatchResult{}, gateway.Transport(gateway.OpBulkDelete, gateway.EntityContact, 0, err)
	}
	return res, nil
}

func failureMessage(err error) string {
	var gerr *gateway.Error
	if errors.As(err, &gerr) && gerr.Message != "" {
		return gerr.Message
	}
	return err.Error()
}

type dealsRepo struct{ s *Store }

const dealColumns = `id, name, title, value, stage, contact_id, probability, expected_close, created_at, updated_at`

func scanDeal(row scanner) (models.Deal, error) {
	var d models.Deal
	var closeAt sql.NullTime
	if err := row.Scan(&d.ID, &d.Name, &d.Title, &d.Value, &d.Stage, &d.ContactID, &d.Probability, &closeAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return d, err
	}
	d.ExpectedClose = timePtr(closeAt)
	return d, nil
}

func (r *dealsRepo) GetAll(ctx context.Context) ([]models.Deal, error) {
	rows, err := r.s.db.QueryContext(ctx, `SELECT `+dealColumns+` FROM deals ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, gateway.Transport(gateway.OpGetAll, gateway.EntityDeal, 0, err)
	}
	defer rows.Close()

	var out []models.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, gateway.Decode(gateway.OpGetAll, gateway.EntityDeal, err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, gateway.Transport(gateway.OpGetAll, gateway.EntityDeal, 0, err)
	}
	return out, nil
}

func (r *dealsRepo) get(ctx context.Context, op string, id int64) (*models.Deal, error) {
	d, err := scanDeal(r.s.db.QueryRowContext(ctx, r.s.rebind(`SELECT `+dealColumns+` FROM deals WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gateway.NotFound(op, gateway.EntityDeal, id)
	}
	if err != nil {
		return nil, gateway.Transport(op, gateway.EntityDeal, id, err)
	}
	return &d, nil
}

func (r *dealsRepo) GetByID(ctx context.Context, id int64) (*models.Deal, error) {
	return r.get(ctx, gateway.OpGetByID, id)
}

func (r *dealsRepo) Create(ctx context.Context, d *models.Deal) (*models.Deal, error) {
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

	err := r.s.db.QueryRowContext(ctx, r.s.rebind(`
		INSERT INTO deals (name, title, value, stage, contact_id, probability, expected_close, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), row.Name, row.Title, row.Value, row.Stage, row.ContactID, row.Probability, nullTime(row.ExpectedClose), row.CreatedAt.UTC(), row.UpdatedAt).Scan(&row.ID)
	if err != nil {
		return nil, gateway.Transport(gateway.OpCreate, gateway.EntityDeal, 0, err)
	}
	return &row, nil
}

func (r *dealsRepo) Update(ctx context.Context, id int64, d *models.Deal) (*models.Deal, error) {
	current, err := r.get(ctx, gateway.OpUpdate, id)
	if err != nil {
		return nil, err
	}
	row := *d
	row.ID = id
	row.CreatedAt = current.CreatedAt
	row.UpdatedAt = r.s.now()
	if row.Name == "" {
		row.Name = row.Title
	}

	_, err = r.s.db.ExecContext(ctx, r.s.rebind(`
		UPDATE deals
		SET name = ?, title = ?, value = ?, stage = ?, contact_id = ?, probability = ?, expected_close = ?, updated_at = ?
		WHERE id = ?
	`), row.Name, row.Title, row.Value, row.Stage, row.ContactID, row.Probability, nullTime(row.ExpectedClose), row.UpdatedAt, id)
	if err != nil {
		return nil, gateway.Transport(gateway.OpUpdate, gateway.EntityDeal, id, err)
	}
	return &row, nil
}

func (r *dealsRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.s.db.ExecContext(ctx, r.s.rebind(`DELETE FROM deals WHERE id = ?`), id); err != nil {
		return gateway.Transport(gateway.OpDelete, gateway.EntityDeal, id, err)
	}
	return nil
}

func (r *dealsRepo) UpdateStage(ctx context.Context, id int64, stage string) (*models.Deal, error) {
	if !models.IsValidStage(stage) {
		return nil, gateway.Invalid(gateway.OpUpdateStage, gateway.EntityDeal, id, fmt.Errorf("unknown stage %q", stage))
	}
	res, err := r.s.db.ExecContext(ctx, r.s.rebind(`UPDATE deals SET stage = ?, updated_at = ? WHERE id = ?`), stage, r.s.now(), id)
	if err != nil {
		return nil, gateway.Transport(gateway.OpUpdateStage, gateway.EntityDeal, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, gateway.NotFound(gateway.OpUpdateStage, gateway.EntityDeal, id)
	}
	return r.get(ctx, gateway.OpUpdateStage, id)
}

func (r *dealsRepo) Revenue(ctx context.Context) (float64, error) {
	var total float64
	err := r.s.db.QueryRowContext(ctx, r.s.rebind(`SELECT COALESCE(SUM(value), 0) FROM deals WHERE stage = ?`), models.StageWon).Scan(&total)
	if err != nil {
		return 0, gateway.Transport(gateway.OpRevenue, gateway.EntityDeal, 0, err)
	}
	return total, nil
}

func (r *dealsRepo) ConversionMetrics(ctx context.Context) (models.ConversionMetrics, error) {
	var total, won int
	err := r.s.db.QueryRowContext(ctx, r.s.rebind(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN stage = ? THEN 1 ELSE 0 END), 0)
		FROM deals
	`), models.StageWon).Scan(&total, &won)
	if err != nil {
		return models.ConversionMetrics{}, gateway.Transport(gateway.OpConversion, gateway.EntityDeal, 0, err)
	}
	return models.NewConversionMetrics(total, won), nil
}

type activitiesRepo struct{ s *Store }

const activityColumns = `id, type, description, timestamp, contact_id, deal_id, created_at`

func scanActivity(row scanner) (models.Activity, error) {
	var a models.Activity
	var contactID, dealID sql.NullInt64
	if err := row.Scan(&a.ID, &a.Type, &a.Description, &a.Timestamp, &contactID, &dealID, &a.CreatedAt); err != nil {
		return a, err
	}
	a.ContactID = int64Ptr(contactID)
	a.DealID = int64Ptr(dealID)
	return a, nil
}

func (r *activitiesRepo) list(ctx context.Context, op, query string, args ...any) ([]models.Activity, error) {
	rows, err := r.s.db.QueryContext(ctx, r.s.rebind(query), args...)
	if err != nil {
		return nil, gateway.Transport(op, gateway.EntityActivity, 0, err)
	}
	defer rows.Close()

	var out []models.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, gateway.Decode(op, gateway.EntityActivity, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, gateway.Transport(op, gateway.EntityActivity, 0, err)
	}
	return out, nil
}

func (r *activitiesRepo) GetAll(ctx context.Context) ([]models.Activity, error) {
	return r.list(ctx, gateway.OpGetAll, `SELECT `+activityColumns+` FROM activities ORDER BY timestamp DESC, id DESC`)
}

func (r *activitiesRepo) Recent(ctx context.Context, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		return r.GetAll(ctx)
	}
	return r.list(ctx, gateway.OpRecent, `SELECT `+activityColumns+` FROM activities ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
}

func (r *activitiesRepo) GetByID(ctx context.Context, id int64) (*models.Activity, error) {
	a, err := scanActivity(r.s.db.QueryRowContext(ctx, r.s.rebind(`SELECT `+activityColumns+` FROM activities WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gateway.NotFound(gateway.OpGetByID, gateway.EntityActivity, id)
	}
	if err != nil {
		return nil, gateway.Transport(gateway.OpGetByID, gateway.EntityActivity, id, err)
	}
	return &a, nil
}

func (r *activitiesRepo) Create(ctx context.Context, a *models.Activity) (*models.Activity, error) {
	row := *a
	now := r.s.now()
	if row.Timestamp.IsZero() {
		row.Timestamp = now
	}
	row.CreatedAt = now

	err := r.s.db.QueryRowContext(ctx, r.s.rebind(`
		INSERT INTO activities (type, description, timestamp, contact_id, deal_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`), row.Type, row.Description, row.Timestamp.UTC(), nullInt(row.ContactID), nullInt(row.DealID), row.CreatedAt).Scan(&row.ID)
	if err != nil {
		return nil, gateway.Transport(gateway.OpCreate, gateway.EntityActivity, 0, err)
	}
	return &row, nil
}

func (r *activitiesRepo) Update(ctx context.Context, id int64, a *models.Activity) (*models.Activity, error) {
	res, err := r.s.db.ExecContext(ctx, r.s.rebind(`
		UPDATE activities SET type = ?, description = ?, timestamp = ?, contact_id = ?, deal_id = ?
		WHERE id = ?
	`), a.Type, a.Description, a.Timestamp.UTC(), nullInt(a.ContactID), nullInt(a.DealID), id)
	if err != nil {
		return nil, gateway.Transport(gateway.OpUpdate, gateway.EntityActivity, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, gateway.NotFound(gateway.OpUpdate, gateway.EntityActivity, id)
	}
	return r.GetByID(ctx, id)
}

func (r *activitiesRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.s.db.ExecContext(ctx, r.s.rebind(`DELETE FROM activities WHERE id = ?`), id); err != nil {
		return gateway.Transport(gateway.OpDelete, gateway.EntityActivity, id, err)
	}
	return nil
}

type templatesRepo struct{ s *Store }

const templateColumns = `id, name, subject, body, category, description`

func scanTemplate(row scanner) (models.EmailTemplate, error) {
	var t models.EmailTemplate
	err := row.Scan(&t.ID, &t.Name, &t.Subject, &t.Body, &t.Category, &t.Description)
	return t, err
}

func (r *templatesRepo) GetAll(ctx context.Context) ([]models.EmailTemplate, error) {
	rows, err := r.s.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM email_templates ORDER BY id`)
	if err != nil {
		return nil, gateway.Transport(gateway.OpGetAll, gateway.EntityTemplate, 0, err)
	}
	defer rows.Close()

	var out []models.EmailTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, gateway.Decode(gateway.OpGetAll, gateway.EntityTemplate, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, gateway.Transport(gateway.OpGetAll, gateway.EntityTemplate, 0, err)
	}
	return out, nil
}

func (r *templatesRepo) GetByID(ctx context.Context, id int64) (*models.EmailTemplate, error) {
	t, err := scanTemplate(r.s.db.QueryRowContext(ctx, r.s.rebind(`SELECT `+templateColumns+` FROM email_templates WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gateway.NotFound(gateway.OpGetByID, gateway.EntityTemplate, id)
	}
	if err != nil {
		return nil, gateway.Transport(gateway.OpGetByID, gateway.EntityTemplate, id, err)
	}
	return &t, nil
}

func (r *templatesRepo) Create(ctx context.Context, t *models.EmailTemplate) (*models.EmailTemplate, error) {
	row := *t
	err := r.s.db.QueryRowContext(ctx, r.s.rebind(`
		INSERT INTO email_templates (name, subject, body, category, description)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`), row.Name, row.Subject, row.Body, row.Category, row.Description).Scan(&row.ID)
	if err != nil {
		return nil, gateway.Transport(gateway.OpCreate, gateway.EntityTemplate, 0, err)
	}
	return &row, nil
}

func (r *templatesRepo) Update(ctx context.Context, id int64, t *models.EmailTemplate) (*models.EmailTemplate, error) {
	res, err := r.s.db.ExecContext(ctx, r.s.rebind(`
		UPDATE email_templates SET name = ?, subject = ?, body = ?, category = ?, description = ?
		WHERE id = ?
	`), t.Name, t.Subject, t.Body, t.Category, t.Description, id)
	if err != nil {
		return nil, gateway.Transport(gateway.OpUpdate, gateway.EntityTemplate, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, gateway.NotFound(gateway.OpUpdate, gateway.EntityTemplate, id)
	}
	row := *t
	row.ID = id
	return &row, nil
}

func (r *templatesRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.s.db.ExecContext(ctx, r.s.rebind(`DELETE FROM email_templates WHERE id = ?`), id); err != nil {
		return gateway.Transport(gateway.OpDelete, gateway.EntityTemplate, id, err)
	}
	return nil
}

// Seed inserts a dataset, ignoring the ids it carries.
// Deal and activity references are remapped to the new contact and deal ids.
func (s *Store) Seed(ctx context.Context, data gateway.Dataset) error {
	gw := s.Gateway()
	contactIDs := map[int64]int64{}
	dealIDs := map[int64]int64{}

	for _, c := range data.Contacts {
		created, err := gw.Contacts.Create(ctx, &c)
		if err != nil {
			return fmt.Errorf("seed contact %q: %w", c.Name, err)
		}
		contactIDs[c.ID] = created.ID
	}
	for _, d := range data.Deals {
		d.ContactID = contactIDs[d.ContactID]
		created, err := gw.Deals.Create(ctx, &d)
		if err != nil {
			return fmt.Errorf("seed deal %q: %w", d.Title, err)
		}
		dealIDs[d.ID] = created.ID
	}
	for _, a := range data.Activities {
		if a.ContactID != nil {
			id := contactIDs[*a.ContactID]
			a.ContactID = &id
		}
		if a.DealID != nil {
			id := dealIDs[*a.DealID]
			a.DealID = &id
		}
		if _, err := gw.Activities.Create(ctx, &a); err != nil {
			return fmt.Errorf("seed activity: %w", err)
		}
	}
	for _, t := range data.Templates {
		if _, err := gw.Templates.Create(ctx, &t); err != nil {
			return fmt.Errorf("seed template %q: %w", t.Name, err)
		}
	}
	return nil
}
