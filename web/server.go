// ABOUTME: JSON web server exposing the page containers over HTTP
// ABOUTME: Dashboard, contacts with bulk actions, pipeline, activities and email sending
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/harperreed/crmdeck/email"
	"github.com/harperreed/crmdeck/filter"
	"github.com/harperreed/crmdeck/gateway"
	"github.com/harperreed/crmdeck/models"
	"github.com/harperreed/crmdeck/pages"
	"github.com/harperreed/crmdeck/selection"
	"github.com/harperreed/crmdeck/viz"
	"go.uber.org/zap"
)

type Server struct {
	dashboard  *pages.Dashboard
	contacts   *pages.Contacts
	deals      *pages.Deals
	activities *pages.Activities
	composer   *pages.Composer
	logger     *zap.Logger

	// one request at a time per page, as a single browser tab would
	contactsMu sync.Mutex
	dealsMu    sync.Mutex
	actsMu     sync.Mutex
	composeMu  sync.Mutex

	router chi.Router
}

func NewServer(deps pages.Deps) *Server {
	deps = deps.WithDefaults()
	s := &Server{
		dashboard:  pages.NewDashboard(deps),
		contacts:   pages.NewContacts(deps),
		deals:      pages.NewDeals(deps),
		activities: pages.NewActivities(deps),
		composer:   pages.NewComposer(deps),
		logger:     deps.Logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", s.handleDashboard)
		r.Post("/dashboard/refresh", s.handleDashboardRefresh)

		r.Get("/contacts", s.handleContacts)
		r.Post("/contacts", s.handleSaveContact)
		r.Post("/contacts/bulk-update", s.handleBulkUpdate)
		r.Post("/contacts/bulk-delete", s.handleBulkDelete)

		r.Get("/pipeline", s.handlePipeline)
		r.Get("/pipeline.dot", s.handlePipelineDOT)
		r.Post("/deals", s.handleSaveDeal)
		r.Patch("/deals/{id}/stage", s.handleMoveDeal)

		r.Get("/activities", s.handleActivities)
		r.Post("/activities", s.handleCreateActivity)

		r.Get("/email/draft", s.handleDraft)
		r.Post("/email/send", s.handleSendEmail)
	})
	return r
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start mounts the dashboard and serves until ctx is canceled.
func (s *Server) Start(ctx context.Context, addr string) error {
	if err := s.dashboard.Mount(ctx); err != nil {
		s.logger.Warn("initial dashboard load failed", zap.Error(err))
	}
	defer s.dashboard.Unmount()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting web server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}

type feedRow struct {
	models.Activity
	ContactName string `json:"contact_name,omitempty"`
	DealTitle   string `json:"deal_title,omitempty"`
}

type dashboardResponse struct {
	pages.DashboardView
	Recent []feedRow `json:"recent"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	v := s.dashboard.View()
	if !v.Loaded {
		if err := s.dashboard.Refresh(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		v = s.dashboard.View()
	}
	writeJSON(w, http.StatusOK, dashboardBody(v))
}

func (s *Server) handleDashboardRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.dashboard.Refresh(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardBody(s.dashboard.View()))
}

func dashboardBody(v pages.DashboardView) dashboardResponse {
	rows := make([]feedRow, len(v.Recent))
	for i, a := range v.Recent {
		rows[i] = feedRow{Activity: a, ContactName: v.ContactName(a.ContactID), DealTitle: v.DealTitle(a.DealID)}
	}
	return dashboardResponse{DashboardView: v, Recent: rows}
}

func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	s.contactsMu.Lock()
	defer s.contactsMu.Unlock()

	if err := s.contacts.Load(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	s.contacts.SetCriteria(filter.Criteria{
		SearchTerm:    q.Get("q"),
		Status:        q.Get("status"),
		LastContacted: q.Get("last_contacted"),
		DealStage:     q.Get("deal_stage"),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"contacts": s.contacts.View(),
		"criteria": s.contacts.Criteria(),
	})
}

func (s *Server) handleSaveContact(w http.ResponseWriter, r *http.Request) {
	var c models.Contact
	if !decode(w, r, &c) {
		return
	}
	s.contactsMu.Lock()
	defer s.contactsMu.Unlock()

	saved, err := s.contacts.Save(r.Context(), c)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

type bulkRequest struct {
	IDs     []int64 `json:"ids"`
	Field   string  `json:"field"`
	Value   any     `json:"value"`
	Confirm bool    `json:"confirm"`
}

// selectIDs loads the full list and makes ids the selection. It returns
// the requested ids that match no loaded contact.
func (s *Server) selectIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if err := s.contacts.Load(ctx); err != nil {
		return nil, err
	}
	s.contacts.SetCriteria(filter.Criteria{})
	s.contacts.Selection.Clear()

	known := make(map[int64]struct{}, len(ids))
	for _, c := range s.contacts.All() {
		known[c.ID] = struct{}{}
	}
	var unknown []int64
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := known[id]; !ok {
			unknown = append(unknown, id)
			continue
		}
		s.contacts.Selection.Toggle(id, true)
	}
	return unknown, nil
}

// settleBulk turns a bulk call's result into the response. Unknown ids are
// reported as failed records; a request naming only unknown ids is not an
// empty selection.
func settleBulk(w http.ResponseWriter, kind selection.Kind, out selection.Outcome, err error, unknown []int64) {
	if errors.Is(err, selection.ErrEmptySelection) && len(unknown) > 0 {
		out, err = selection.Outcome{Kind: kind}, nil
	}
	if err != nil && !errors.Is(err, selection.ErrNoneSucceeded) {
		writeError(w, err)
		return
	}
	for _, id := range unknown {
		out.Result.Fail(id, "record not found")
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if !decode(w, r, &req) {
		return
	}
	s.contactsMu.Lock()
	defer s.contactsMu.Unlock()

	unknown, err := s.selectIDs(r.Context(), req.IDs)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := s.contacts.BulkUpdate(r.Context(), req.Field, req.Value)
	settleBulk(w, selection.KindUpdate, out, err, unknown)
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if !decode(w, r, &req) {
		return
	}
	s.contactsMu.Lock()
	defer s.contactsMu.Unlock()

	unknown, err := s.selectIDs(r.Context(), req.IDs)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := s.contacts.BulkDelete(r.Context(), func(int) bool { return req.Confirm })
	settleBulk(w, selection.KindDelete, out, err, unknown)
}

func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	s.dealsMu.Lock()
	defer s.dealsMu.Unlock()

	if err := s.deals.Load(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deals.Board())
}

func (s *Server) handlePipelineDOT(w http.ResponseWriter, r *http.Request) {
	s.dealsMu.Lock()
	defer s.dealsMu.Unlock()

	if err := s.deals.Load(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	dot, err := viz.GeneratePipelineGraph(r.Context(), s.deals.Board(), s.deals.Contacts())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	_, _ = w.Write([]byte(dot))
}

func (s *Server) handleSaveDeal(w http.ResponseWriter, r *http.Request) {
	var d models.Deal
	if !decode(w, r, &d) {
		return
	}
	s.dealsMu.Lock()
	defer s.dealsMu.Unlock()

	saved, err := s.deals.SaveDeal(r.Context(), d)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if d.ID == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, saved)
}

func (s *Server) handleMoveDeal(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid deal id"})
		return
	}
	var body struct {
		Stage string `json:"stage"`
	}
	if !decode(w, r, &body) {
		return
	}
	s.dealsMu.Lock()
	defer s.dealsMu.Unlock()

	moved, err := s.deals.MoveDeal(r.Context(), id, body.Stage)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moved)
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	s.actsMu.Lock()
	defer s.actsMu.Unlock()

	if err := s.activities.Load(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	s.activities.SetCriteria(filter.ActivityCriteria{SearchTerm: q.Get("q"), Type: q.Get("type")})
	writeJSON(w, http.StatusOK, map[string]any{"activities": s.activities.View()})
}

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var a models.Activity
	if !decode(w, r, &a) {
		return
	}
	s.actsMu.Lock()
	defer s.actsMu.Unlock()

	created, err := s.activities.Create(r.Context(), a)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	contactID, _ := strconv.ParseInt(q.Get("contact_id"), 10, 64)
	dealID, _ := strconv.ParseInt(q.Get("deal_id"), 10, 64)
	templateID, _ := strconv.ParseInt(q.Get("template_id"), 10, 64)

	s.composeMu.Lock()
	defer s.composeMu.Unlock()

	d, err := s.composer.Open(r.Context(), contactID, dealID)
	if err != nil {
		writeError(w, err)
		return
	}
	if templateID != 0 {
		if d, err = s.composer.UseTemplate(r.Context(), templateID); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var d email.Draft
	if !decode(w, r, &d) {
		return
	}
	s.composeMu.Lock()
	defer s.composeMu.Unlock()

	receipt, err := s.composer.Send(r.Context(), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps page and gateway errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var verrs models.ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "validation failed", "fields": verrs})
		return
	}

	status := http.StatusBadGateway
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, selection.ErrBulkInProgress):
		status = http.StatusConflict
	case errors.Is(err, selection.ErrEmptySelection),
		errors.Is(err, selection.ErrNotConfirmed),
		errors.Is(err, pages.ErrNotConfirmed),
		gateway.KindOf(err) == gateway.KindInvalid:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
