// ABOUTME: HTTP backend for the hosted record-storage API
// ABOUTME: Speaks the fetch/records/aggregators wire contract and maps replies to gateway errors
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/crmdeck/models"
)

// Remote table names.
const (
	TableContacts   = "app_contact"
	TableDeals      = "deal"
	TableActivities = "app_Activity"
	TableTemplates  = "email_template"
)

// ClientConfig identifies the hosted project.
type ClientConfig struct {
	BaseURL    string
	ProjectID  string
	PublicKey  string
	HTTPClient *http.Client
}

// Client talks to the hosted record store.
type Client struct {
	base      *url.URL
	projectID string
	publicKey string
	http      *http.Client
}

// NewClient fails when any identifier is missing.
func NewClient(cfg ClientConfig) (*Client, error) {
	var missing []string
	if cfg.BaseURL == "" {
		missing = append(missing, "base url")
	}
	if cfg.ProjectID == "" {
		missing = append(missing, "project id")
	}
	if cfg.PublicKey == "" {
		missing = append(missing, "public key")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("remote gateway: missing %s", strings.Join(missing, ", "))
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("remote gateway: invalid base url: %w", err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{base: base, projectID: cfg.ProjectID, publicKey: cfg.PublicKey, http: hc}, nil
}

func (c *Client) Gateway() *Gateway {
	return New("remote",
		&remoteContacts{c},
		&remoteDeals{c},
		&remoteActivities{c},
		&remoteTemplates{c},
		func() error {
			c.http.CloseIdleConnections()
			return nil
		},
	)
}

type fieldRef struct {
	Name string `json:"Name"`
}

type fieldSpec struct {
	Field    fieldRef `json:"field"`
	Function string   `json:"Function,omitempty"`
}

type orderSpec struct {
	FieldName string `json:"fieldName"`
	SortType  string `json:"sorttype"`
}

type pagingInfo struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type whereClause struct {
	FieldName string   `json:"FieldName"`
	Operator  string   `json:"Operator"`
	Values    []string `json:"Values"`
}

type aggregator struct {
	ID     string        `json:"id"`
	Fields []fieldSpec   `json:"fields"`
	Where  []whereClause `json:"where,omitempty"`
}

type fetchParams struct {
	Fields      []fieldSpec  `json:"fields,omitempty"`
	OrderBy     []orderSpec  `json:"orderBy,omitempty"`
	PagingInfo  *pagingInfo  `json:"pagingInfo,omitempty"`
	Aggregators []aggregator `json:"aggregators,omitempty"`
}

type writeParams struct {
	Records []record `json:"records"`
}

type deleteParams struct {
	RecordIDs []int64 `json:"RecordIds"`
}

type aggregateValue struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}

type recordResult struct {
	Success  bool   `json:"success"`
	RecordID any    `json:"recordId,omitempty"`
	Data     record `json:"data,omitempty"`
	Message  string `json:"message,omitempty"`
}

type envelope struct {
	Success     bool             `json:"success"`
	Message     string           `json:"message,omitempty"`
	Data        json.RawMessage  `json:"data,omitempty"`
	Results     []recordResult   `json:"results,omitempty"`
	Aggregators []aggregateValue `json:"aggregators,omitempty"`
}

func fields(names ...string) []fieldSpec {
	out := make([]fieldSpec, len(names))
	for i, n := range names {
		out[i] = fieldSpec{Field: fieldRef{Name: n}}
	}
	return out
}

var (
	contactFields  = fields("Name", "email", "phone", "company", "status", "Tags", "last_contacted", "created_at", "CreatedOn", "ModifiedOn")
	dealFields     = fields("Name", "title", "value", "stage", "probability", "expected_close", "contact_id", "created_at", "CreatedOn", "ModifiedOn")
	activityFields = fields("Name", "type", "description", "timestamp", "contact_id", "deal_id", "CreatedOn")
	templateFields = fields("Name", "subject", "body", "category", "description", "CreatedOn")
	newestFirst    = []orderSpec{{FieldName: "CreatedOn", SortType: "DESC"}}
)

func (c *Client) endpoint(table string, parts ...string) string {
	segs := append([]string{"v1", "projects", url.PathEscape(c.projectID), "tables", url.PathEscape(table), "records"}, parts...)
	return c.base.String() + "/" + strings.Join(segs, "/")
}

// do sends one request and unwraps the envelope. A false success flag
// becomes a remote error; HTTP 404 becomes not-found.
func (c *Client) do(ctx context.Context, method, endpoint string, body any, op, entity string, id int64) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, Invalid(op, entity, id, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, Transport(op, entity, id, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.publicKey)
	req.Header.Set("X-Project-Id", c.projectID)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, Transport(op, entity, id, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Transport(op, entity, id, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, NotFound(op, entity, id)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 300 {
			return nil, Transport(op, entity, id, fmt.Errorf("http %d", resp.StatusCode))
		}
		return nil, Decode(op, entity, err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("http %d", resp.StatusCode)
		}
		return nil, Remote(op, entity, id, msg)
	}
	return &env, nil
}

func fetchAll[T any](ctx context.Context, c *Client, table, entity, op string, params fetchParams, decode func(record) (T, error)) ([]T, error) {
	env, err := c.do(ctx, http.MethodPost, c.endpoint(table, "fetch"), params, op, entity, 0)
	if err != nil {
		return nil, err
	}
	var rows []record
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &rows); err != nil {
			return nil, Decode(op, entity, err)
		}
	}
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		v, err := decode(r)
		if err != nil {
			return nil, Decode(op, entity, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func getOne[T any](ctx context.Context, c *Client, table, entity string, id int64, decode func(record) (T, error)) (*T, error) {
	env, err := c.do(ctx, http.MethodGet, c.endpoint(table, strconv.FormatInt(id, 10)), nil, OpGetByID, entity, id)
	if err != nil {
		return nil, err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, NotFound(OpGetByID, entity, id)
	}
	var r record
	if err := json.Unmarshal(env.Data, &r); err != nil {
		return nil, Decode(OpGetByID, entity, err)
	}
	v, err := decode(r)
	if err != nil {
		return nil, Decode(OpGetByID, entity, err)
	}
	return &v, nil
}

// writeOne sends a single-record create or update and returns the stored row.
func writeOne[T any](ctx context.Context, c *Client, method, table, entity, op string, id int64, rec record, decode func(record) (T, error)) (*T, error) {
	env, err := c.do(ctx, method, c.endpoint(table), writeParams{Records: []record{rec}}, op, entity, id)
	if err != nil {
		return nil, err
	}
	if len(env.Results) == 0 {
		return nil, Remote(op, entity, id, "no result returned")
	}
	res := env.Results[0]
	if !res.Success {
		return nil, Remote(op, entity, id, res.Message)
	}
	v, err := decode(res.Data)
	if err != nil {
		return nil, Decode(op, entity, err)
	}
	return &v, nil
}

func deleteOne(ctx context.Context, c *Client, table, entity string, id int64) error {
	res, err := deleteMany(ctx, c, table, entity, OpDelete, []int64{id})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if len(res.Failed) > 0 {
		return Remote(OpDelete, entity, id, res.Failed[0].Message)
	}
	return nil
}

func deleteMany(ctx context.Context, c *Client, table, entity, op string, ids []int64) (BatchResult, error) {
	var out BatchResult
	env, err := c.do(ctx, http.MethodDelete, c.endpoint(table), deleteParams{RecordIDs: ids}, op, entity, 0)
	if err != nil {
		return out, err
	}
	matchResults(&out, ids, env.Results)
	return out, nil
}

// matchResults pairs results with requested ids, by recordId when present
// and by position otherwise. Ids with no result are reported failed.
func matchResults(out *BatchResult, ids []int64, results []recordResult) {
	seen := make(map[int64]bool, len(ids))
	for i, res := range results {
		var id int64
		if res.RecordID != nil {
			if v, err := asInt64(res.RecordID); err == nil {
				id = v
			}
		}
		if id == 0 && res.Data != nil {
			if v, err := res.Data.id(); err == nil {
				id = v
			}
		}
		if id == 0 && i < len(ids) {
			id = ids[i]
		}
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		if res.Success {
			out.OK(id)
		} else {
			msg := res.Message
			if msg == "" {
				msg = "rejected by record store"
			}
			out.Fail(id, msg)
		}
	}
	for _, id := range ids {
		if !seen[id] {
			out.Fail(id, "no result returned")
		}
	}
}

func aggregate(ctx context.Context, c *Client, op string, aggs ...aggregator) (map[string]float64, error) {
	env, err := c.do(ctx, http.MethodPost, c.endpoint(TableDeals, "fetch"), fetchParams{Aggregators: aggs}, op, EntityDeal, 0)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(env.Aggregators))
	for _, a := range env.Aggregators {
		out[a.ID] = a.Value
	}
	return out, nil
}

var wonOnly = []whereClause{{FieldName: "stage", Operator: "EqualTo", Values: []string{models.StageWon}}}

type remoteContacts struct{ c *Client }

func (s *remoteContacts) GetAll(ctx context.Context) ([]models.Contact, error) {
	return fetchAll(ctx, s.c, TableContacts, EntityContact, OpGetAll, fetchParams{Fields: contactFields, OrderBy: newestFirst}, decodeContact)
}

func (s *remoteContacts) GetByID(ctx context.Context, id int64) (*models.Contact, error) {
	return getOne(ctx, s.c, TableContacts, EntityContact, id, decodeContact)
}

func (s *remoteContacts) Create(ctx context.Context, c *models.Contact) (*models.Contact, error) {
	row := *c
	row.ID = 0
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return writeOne(ctx, s.c, http.MethodPost, TableContacts, EntityContact, OpCreate, 0, encodeContact(&row), decodeContact)
}

func (s *remoteContacts) Update(ctx context.Context, id int64, c *models.Contact) (*models.Contact, error) {
	row := *c
	row.ID = id
	return writeOne(ctx, s.c, http.MethodPut, TableContacts, EntityContact, OpUpdate, id, encodeContact(&row), decodeContact)
}

func (s *remoteContacts) Delete(ctx context.Context, id int64) error {
	return deleteOne(ctx, s.c, TableContacts, EntityContact, id)
}

func (s *remoteContacts) BulkUpdate(ctx context.Context, ids []int64, patch models.Patch) (BatchResult, error) {
	var out BatchResult
	fieldsRec, err := encodePatch(patch)
	if err != nil {
		return out, Invalid(OpBulkUpdate, EntityContact, 0, err)
	}
	records := make([]record, len(ids))
	for i, id := range ids {
		rec := record{"Id": id}
		for k, v := range fieldsRec {
			rec[k] = v
		}
		records[i] = rec
	}
	env, err := s.c.do(ctx, http.MethodPut, s.c.endpoint(TableContacts), writeParams{Records: records}, OpBulkUpdate, EntityContact, 0)
	if err != nil {
		return out, err
	}
	matchResults(&out, ids, env.Results)
	return out, nil
}

func (s *remoteContacts) BulkDelete(ctx context.Context, ids []int64) (BatchResult, error) {
	return deleteMany(ctx, s.c, TableContacts, EntityContact, OpBulkDelete, ids)
}

type remoteDeals struct{ c *Client }

func (s *remoteDeals) GetAll(ctx context.Context) ([]models.Deal, error) {
	return fetchAll(ctx, s.c, TableDeals, EntityDeal, OpGetAll, fetchParams{Fields: dealFields, OrderBy: newestFirst}, decodeDeal)
}

func (s *remoteDeals) GetByID(ctx context.Context, id int64) (*models.Deal, error) {
	return getOne(ctx, s.c, TableDeals, EntityDeal, id, decodeDeal)
}

func (s *remoteDeals) Create(ctx context.Context, d *models.Deal) (*models.Deal, error) {
	row := *d
	row.ID = 0
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return writeOne(ctx, s.c, http.MethodPost, TableDeals, EntityDeal, OpCreate, 0, encodeDeal(&row), decodeDeal)
}

func (s *remoteDeals) Update(ctx context.Context, id int64, d *models.Deal) (*models.Deal, error) {
	row := *d
	row.ID = id
	return writeOne(ctx, s.c, http.MethodPut, TableDeals, EntityDeal, OpUpdate, id, encodeDeal(&row), decodeDeal)
}

func (s *remoteDeals) Delete(ctx context.Context, id int64) error {
	return deleteOne(ctx, s.c, TableDeals, EntityDeal, id)
}

func (s *remoteDeals) UpdateStage(ctx context.Context, id int64, stage string) (*models.Deal, error) {
	if !models.IsValidStage(stage) {
		return nil, Invalid(OpUpdateStage, EntityDeal, id, fmt.Errorf("unknown stage %q", stage))
	}
	rec := record{"Id": id, "stage": stage}
	return writeOne(ctx, s.c, http.MethodPut, TableDeals, EntityDeal, OpUpdateStage, id, rec, decodeDeal)
}

func (s *remoteDeals) Revenue(ctx context.Context) (float64, error) {
	vals, err := aggregate(ctx, s.c, OpRevenue, aggregator{
		ID:     "totalRevenue",
		Fields: []fieldSpec{{Field: fieldRef{Name: "value"}, Function: "Sum"}},
		Where:  wonOnly,
	})
	if err != nil {
		return 0, err
	}
	return vals["totalRevenue"], nil
}

func (s *remoteDeals) ConversionMetrics(ctx context.Context) (models.ConversionMetrics, error) {
	count := []fieldSpec{{Field: fieldRef{Name: "Name"}, Function: "Count"}}
	vals, err := aggregate(ctx, s.c, OpConversion,
		aggregator{ID: "totalDeals", Fields: count},
		aggregator{ID: "wonDeals", Fields: count, Where: wonOnly},
	)
	if err != nil {
		return models.ConversionMetrics{}, err
	}
	return models.NewConversionMetrics(int(vals["totalDeals"]), int(vals["wonDeals"])), nil
}

type remoteActivities struct{ c *Client }

func (s *remoteActivities) GetAll(ctx context.Context) ([]models.Activity, error) {
	params := fetchParams{Fields: activityFields, OrderBy: []orderSpec{{FieldName: "timestamp", SortType: "DESC"}}}
	return fetchAll(ctx, s.c, TableActivities, EntityActivity, OpGetAll, params, decodeActivity)
}

func (s *remoteActivities) GetByID(ctx context.Context, id int64) (*models.Activity, error) {
	return getOne(ctx, s.c, TableActivities, EntityActivity, id, decodeActivity)
}

func (s *remoteActivities) Create(ctx context.Context, a *models.Activity) (*models.Activity, error) {
	row := *a
	row.ID = 0
	if row.Timestamp.IsZero() {
		row.Timestamp = time.Now().UTC()
	}
	return writeOne(ctx, s.c, http.MethodPost, TableActivities, EntityActivity, OpCreate, 0, encodeActivity(&row), decodeActivity)
}

func (s *remoteActivities) Update(ctx context.Context, id int64, a *models.Activity) (*models.Activity, error) {
	row := *a
	row.ID = id
	return writeOne(ctx, s.c, http.MethodPut, TableActivities, EntityActivity, OpUpdate, id, encodeActivity(&row), decodeActivity)
}

func (s *remoteActivities) Delete(ctx context.Context, id int64) error {
	return deleteOne(ctx, s.c, TableActivities, EntityActivity, id)
}

func (s *remoteActivities) Recent(ctx context.Context, limit int) ([]models.Activity, error) {
	params := fetchParams{
		Fields:     activityFields,
		OrderBy:    []orderSpec{{FieldName: "timestamp", SortType: "DESC"}},
		PagingInfo: &pagingInfo{Limit: limit, Offset: 0},
	}
	return fetchAll(ctx, s.c, TableActivities, EntityActivity, OpRecent, params, decodeActivity)
}

type remoteTemplates struct{ c *Client }

func (s *remoteTemplates) GetAll(ctx context.Context) ([]models.EmailTemplate, error) {
	return fetchAll(ctx, s.c, TableTemplates, EntityTemplate, OpGetAll, fetchParams{Fields: templateFields, OrderBy: newestFirst}, decodeTemplate)
}

func (s *remoteTemplates) GetByID(ctx context.Context, id int64) (*models.EmailTemplate, error) {
	return getOne(ctx, s.c, TableTemplates, EntityTemplate, id, decodeTemplate)
}

func (s *remoteTemplates) Create(ctx context.Context, t *models.EmailTemplate) (*models.EmailTemplate, error) {
	row := *t
	row.ID = 0
	return writeOne(ctx, s.c, http.MethodPost, TableTemplates, EntityTemplate, OpCreate, 0, encodeTemplate(&row), decodeTemplate)
}

func (s *remoteTemplates) Update(ctx context.Context, id int64, t *models.EmailTemplate) (*models.EmailTemplate, error) {
	row := *t
	row.ID = id
	return writeOne(ctx, s.c, http.MethodPut, TableTemplates, EntityTemplate, OpUpdate, id, encodeTemplate(&row), decodeTemplate)
}

func (s *remoteTemplates) Delete(ctx context.Context, id int64) error {
	return deleteOne(ctx, s.c, TableTemplates, EntityTemplate, id)
}
