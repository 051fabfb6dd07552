// ABOUTME: Mapping between the remote store's field names and canonical models
// ABOUTME: The only place that knows about Id/id, Name/name and reference-object aliasing
package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/crmdeck/models"
)

// record is one row as the remote store sends or accepts it.
type record map[string]any

// lookup returns the first present key among aliases.
func (r record) lookup(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (r record) id() (int64, error) {
	v, ok := r.lookup("Id", "id", "ID")
	if !ok {
		return 0, fmt.Errorf("record has no id")
	}
	return asInt64(v)
}

func (r record) str(keys ...string) string {
	v, ok := r.lookup(keys...)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}

func (r record) float(keys ...string) (float64, error) {
	v, ok := r.lookup(keys...)
	if !ok {
		return 0, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		if n == "" {
			return 0, nil
		}
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("field %s: unexpected %T", keys[0], v)
	}
}

func (r record) timestamp(keys ...string) (*time.Time, error) {
	v, ok := r.lookup(keys...)
	if !ok {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("field %s: unexpected %T", keys[0], v)
	}
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("field %s: unparseable time %q", keys[0], s)
}

// ref reads a reference field that may arrive as a bare id or as {Id, Name}.
func (r record) ref(keys ...string) (*int64, error) {
	v, ok := r.lookup(keys...)
	if !ok {
		return nil, nil
	}
	if obj, ok := v.(map[string]any); ok {
		id, err := record(obj).id()
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", keys[0], err)
		}
		return &id, nil
	}
	id, err := asInt64(v)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", keys[0], err)
	}
	if id == 0 {
		return nil, nil
	}
	return &id, nil
}

func (r record) tags(keys ...string) []string {
	v, ok := r.lookup(keys...)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case string:
		return models.SplitTags(t)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case json.Number:
		return n.Int64()
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected id type %T", v)
	}
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func decodeContact(r record) (models.Contact, error) {
	id, err := r.id()
	if err != nil {
		return models.Contact{}, err
	}
	c := models.Contact{
		ID:      id,
		Name:    r.str("Name", "name"),
		Email:   r.str("email", "Email"),
		Phone:   r.str("phone", "Phone"),
		Company: r.str("company", "Company"),
		Status:  r.str("status", "Status"),
		Tags:    r.tags("Tags", "tags"),
	}
	if c.LastContacted, err = r.timestamp("last_contacted", "lastContacted"); err != nil {
		return c, err
	}
	created, err := r.timestamp("created_at", "CreatedOn", "createdAt")
	if err != nil {
		return c, err
	}
	if created != nil {
		c.CreatedAt = *created
	}
	if modified, err := r.timestamp("ModifiedOn", "updated_at"); err == nil && modified != nil {
		c.UpdatedAt = *modified
	}
	return c, nil
}

func encodeContact(c *models.Contact) record {
	rec := record{
		"Name":           c.Name,
		"email":          c.Email,
		"phone":          c.Phone,
		"company":        c.Company,
		"status":         c.Status,
		"Tags":           strings.Join(c.Tags, ","),
		"last_contacted": formatTime(c.LastContacted),
	}
	if !c.CreatedAt.IsZero() {
		rec["created_at"] = formatTime(&c.CreatedAt)
	}
	if c.ID != 0 {
		rec["Id"] = c.ID
	}
	return rec
}

// encodePatch renames canonical patch fields to their remote names.
func encodePatch(p models.Patch) (record, error) {
	rec := record{}
	var scratch models.Contact
	if err := p.ApplyToContact(&scratch); err != nil {
		return nil, err
	}
	for field := range p {
		switch field {
		case "name":
			rec["Name"] = scratch.Name
		case "tags":
			rec["Tags"] = strings.Join(scratch.Tags, ",")
		case "last_contacted":
			rec["last_contacted"] = formatTime(scratch.LastContacted)
		case "email":
			rec["email"] = scratch.Email
		case "phone":
			rec["phone"] = scratch.Phone
		case "company":
			rec["company"] = scratch.Company
		case "status":
			rec["status"] = scratch.Status
		}
	}
	return rec, nil
}

func decodeDeal(r record) (models.Deal, error) {
	id, err := r.id()
	if err != nil {
		return models.Deal{}, err
	}
	d := models.Deal{
		ID:    id,
		Name:  r.str("Name", "name"),
		Title: r.str("title", "Title"),
		Stage: r.str("stage", "Stage"),
	}
	if d.Title == "" {
		d.Title = d.Name
	}
	if d.Value, err = r.float("value", "Value"); err != nil {
		return d, err
	}
	if d.Probability, err = r.float("probability", "Probability"); err != nil {
		return d, err
	}
	contact, err := r.ref("contact_id", "contactId")
	if err != nil {
		return d, err
	}
	if contact != nil {
		d.ContactID = *contact
	}
	if d.ExpectedClose, err = r.timestamp("expected_close", "expectedClose"); err != nil {
		return d, err
	}
	created, err := r.timestamp("created_at", "CreatedOn", "createdAt")
	if err != nil {
		return d, err
	}
	if created != nil {
		d.CreatedAt = *created
	}
	return d, nil
}

func encodeDeal(d *models.Deal) record {
	name := d.Name
	if name == "" {
		name = d.Title
	}
	rec := record{
		"Name":           name,
		"title":          d.Title,
		"value":          d.Value,
		"stage":          d.Stage,
		"probability":    d.Probability,
		"expected_close": formatTime(d.ExpectedClose),
		"contact_id":     d.ContactID,
	}
	if !d.CreatedAt.IsZero() {
		rec["created_at"] = formatTime(&d.CreatedAt)
	}
	if d.ID != 0 {
		rec["Id"] = d.ID
	}
	return rec
}

func decodeActivity(r record) (models.Activity, error) {
	id, err := r.id()
	if err != nil {
		return models.Activity{}, err
	}
	a := models.Activity{
		ID:          id,
		Type:        r.str("type", "Type"),
		Description: r.str("description", "Description"),
	}
	ts, err := r.timestamp("timestamp", "Timestamp")
	if err != nil {
		return a, err
	}
	if ts != nil {
		a.Timestamp = *ts
	}
	if a.ContactID, err = r.ref("contact_id", "contactId"); err != nil {
		return a, err
	}
	if a.DealID, err = r.ref("deal_id", "dealId"); err != nil {
		return a, err
	}
	if created, err := r.timestamp("CreatedOn", "created_at"); err == nil && created != nil {
		a.CreatedAt = *created
	}
	return a, nil
}

func encodeActivity(a *models.Activity) record {
	rec := record{
		"Name":        a.Description,
		"type":        a.Type,
		"description": a.Description,
		"timestamp":   formatTime(&a.Timestamp),
	}
	if a.ContactID != nil {
		rec["contact_id"] = *a.ContactID
	}
	if a.DealID != nil {
		rec["deal_id"] = *a.DealID
	}
	if a.ID != 0 {
		rec["Id"] = a.ID
	}
	return rec
}

func decodeTemplate(r record) (models.EmailTemplate, error) {
	id, err := r.id()
	if err != nil {
		return models.EmailTemplate{}, err
	}
	return models.EmailTemplate{
		ID:          id,
		Name:        r.str("Name", "name"),
		Subject:     r.str("subject", "Subject"),
		Body:        r.str("body", "Body"),
		Category:    r.str("category", "Category"),
		Description: r.str("description", "Description"),
	}, nil
}

func encodeTemplate(t *models.EmailTemplate) record {
	rec := record{
		"Name":        t.Name,
		"subject":     t.Subject,
		"body":        t.Body,
		"category":    t.Category,
		"description": t.Description,
	}
	if t.ID != 0 {
		rec["Id"] = t.ID
	}
	return rec
}
