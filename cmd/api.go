package cmd

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/zalepa/evpop/config"
	"github.com/zalepa/evpop/dashboard"
	"github.com/zalepa/evpop/grid"
	"github.com/zalepa/evpop/record"
)

//go:embed web.html
var htmlContent embed.FS

// defaultRowLimit caps the grid rows sent with a view unless ?rows= says
// otherwise.
const defaultRowLimit = 200

// server is the dashboard HTTP API. One shared controller owns the loaded
// dataset; every browser session gets its own controller over it.
type server struct {
	cfg      *config.Config
	logger   *slog.Logger
	data     *dashboard.Controller
	metrics  *metrics
	validate *validator.Validate
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	ctl        *dashboard.Controller
	search     *dashboard.Debouncer
	makeSearch *dashboard.Debouncer
	lastSeen   time.Time
}

func newServer(cfg *config.Config, logger *slog.Logger, m *metrics, data *dashboard.Controller) *server {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &server{
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "api")),
		data:     data,
		metrics:  m,
		validate: v,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

func (s *server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(structuredLogger(s.logger, s.metrics))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RateLimitRPS > 0 {
			r.Use(NewRateLimiter(float64(s.cfg.RateLimitRPS), s.cfg.RateLimitBurst, s.logger).Handler)
		}
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/status", s.handleStatus)
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/view", s.handleView)
			r.Post("/events", s.handleEvent)
			r.Delete("/", s.handleDeleteSession)
		})
		r.Get("/grid", s.handleGrid)
		r.Get("/export.csv", s.handleExport("csv"))
		r.Get("/export.xlsx", s.handleExport("xlsx"))
	})
	return r
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := htmlContent.ReadFile("web.html")
	if err != nil {
		renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}

type statusResponse struct {
	dashboard.Status
	Sessions  int   `json:"sessions"`
	ViewSizes []int `json:"viewSizes"`
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n := len(s.sessions)
	s.mu.Unlock()
	render.JSON(w, r, statusResponse{Status: s.data.Status(), Sessions: n, ViewSizes: dashboard.ViewSizes})
}

func (s *server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.New().String()
	ctl := dashboard.NewController(s.data.Dataset(),
		dashboard.WithLogger(s.logger.With(slog.String("session", id))),
		dashboard.WithObserver(s.metrics.observeRecompute),
		dashboard.WithSelection(dashboard.NewSelection().WithViewSize(s.cfg.DefaultView)),
	)
	sess := &session{ctl: ctl, lastSeen: s.now()}
	sess.search = dashboard.NewDebouncer(s.cfg.Debounce(), s.commit(id, ctl, dashboard.SetSearch))
	sess.makeSearch = dashboard.NewDebouncer(s.cfg.Debounce(), s.commit(id, ctl, dashboard.SetMakeSearch))

	s.mu.Lock()
	s.sessions[id] = sess
	n := len(s.sessions)
	s.mu.Unlock()
	s.metrics.sessions.Set(float64(n))
	s.logger.InfoContext(r.Context(), "session created", slog.String("session", id))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]string{"id": id})
}

// commit returns the debouncer callback that applies a settled search term.
func (s *server) commit(id string, ctl *dashboard.Controller, t dashboard.EventType) func(string) {
	return func(v string) {
		_, err := ctl.Dispatch(context.Background(), dashboard.Event{Type: t, Value: v})
		if err != nil && !errors.Is(err, dashboard.ErrNotLoaded) {
			s.logger.Error("debounced event failed", slog.String("session", id), slog.String("type", string(t)), slog.Any("error", err))
			s.metrics.events.WithLabelValues(string(t), "error").Inc()
			return
		}
		s.metrics.events.WithLabelValues(string(t), "committed").Inc()
	}
}

func (s *server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		renderError(w, r, errNotFound("session"))
		return
	}
	sess.search.Cancel()
	sess.makeSearch.Cancel()
	s.metrics.sessions.Set(float64(n))
	w.WriteHeader(http.StatusNoContent)
}

// session looks up id, refreshes its idle clock and points it at the
// current dataset.
func (s *server) session(ctx context.Context, id string) (*session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		sess.lastSeen = s.now()
	}
	s.mu.Unlock()
	if !ok {
		return nil, errNotFound("session")
	}
	if ds := s.data.Dataset(); ds != nil && ds != sess.ctl.Dataset() {
		sess.ctl.Replace(ctx, ds)
	}
	return sess, nil
}

// viewResponse is a View with the grid cut to a row limit.
type viewResponse struct {
	dashboard.View
	GridTotal int  `json:"gridTotal"`
	Pending   bool `json:"pending"`
}

func newViewResponse(v dashboard.View, limit int) viewResponse {
	total := len(v.Grid.Rows)
	if limit > 0 && total > limit {
		v.Grid.Rows = v.Grid.Rows[:limit]
	}
	return viewResponse{View: v, GridTotal: total}
}

func rowLimit(r *http.Request) (int, error) {
	return intParam(r, "rows", defaultRowLimit)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, newAPIError(http.StatusBadRequest, "INVALID_PARAMETER", "Invalid parameter value", name)
	}
	return n, nil
}

func (s *server) handleView(w http.ResponseWriter, r *http.Request) {
	limit, err := rowLimit(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	sess, err := s.session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	v, err := sess.ctl.View()
	if err != nil {
		renderError(w, r, err)
		return
	}
	resp := newViewResponse(v, limit)
	resp.Pending = sess.pending()
	render.JSON(w, r, resp)
}

func (sess *session) pending() bool {
	_, a := sess.search.Pending()
	_, b := sess.makeSearch.Pending()
	return a || b
}

// handleEvent applies one interaction. Text search events are debounced:
// the response carries the last committed view with pending set, unless
// ?flush=true commits at once.
func (s *server) handleEvent(w http.ResponseWriter, r *http.Request) {
	limit, err := rowLimit(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	sess, err := s.session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, err)
		return
	}

	var e dashboard.Event
	if err := render.DecodeJSON(r.Body, &e); err != nil {
		renderError(w, r, errInvalidRequest(err))
		return
	}
	if err := s.validate.Struct(e); err != nil {
		renderError(w, r, errValidation(err))
		return
	}

	var v dashboard.View
	switch e.Type {
	case dashboard.SetSearch, dashboard.SetMakeSearch:
		d := sess.search
		if e.Type == dashboard.SetMakeSearch {
			d = sess.makeSearch
		}
		d.Input(e.Value)
		if flag, _ := strconv.ParseBool(r.URL.Query().Get("flush")); flag {
			d.Flush()
		}
		v, err = sess.ctl.View()
	default:
		v, err = sess.ctl.Dispatch(r.Context(), e)
		outcome := "applied"
		if err != nil {
			outcome = "error"
		}
		s.metrics.events.WithLabelValues(string(e.Type), outcome).Inc()
	}
	if err != nil {
		renderError(w, r, err)
		return
	}
	resp := newViewResponse(v, limit)
	resp.Pending = sess.pending()
	render.JSON(w, r, resp)
}

// gridQuery reads the stateless grid parameters into a selection.
func gridQuery(r *http.Request) (dashboard.Selection, error) {
	q := r.URL.Query()
	sel := dashboard.NewSelection().WithGrid(dashboard.GridFields{
		Make:        q.Get("make"),
		VehicleType: q.Get("type"),
		YearMin:     q.Get("yearMin"),
		YearMax:     q.Get("yearMax"),
		Search:      q.Get("q"),
	})
	if col := q.Get("sort"); col != "" {
		c, err := grid.LookupColumn(col)
		if err != nil {
			return sel, newAPIError(http.StatusBadRequest, "INVALID_PARAMETER", "Invalid parameter value", err.Error())
		}
		sel = sel.WithSort(grid.SortColumn{Column: c.Key, Direction: grid.ParseDirection(q.Get("dir"))})
	}
	return sel, nil
}

type gridResponse struct {
	Rows    []dashboard.Row  `json:"rows"`
	Total   int              `json:"total"`
	Columns []grid.Column    `json:"columns"`
	Sort    *grid.SortColumn `json:"sort,omitempty"`
}

func (s *server) handleGrid(w http.ResponseWriter, r *http.Request) {
	sel, err := gridQuery(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	limit, err := intParam(r, "limit", defaultRowLimit)
	if err != nil {
		renderError(w, r, err)
		return
	}
	ds := s.data.Dataset()
	if ds == nil {
		renderError(w, r, dashboard.ErrNotLoaded)
		return
	}
	gv := dashboard.DeriveGrid(ds, sel)
	resp := gridResponse{Rows: gv.Rows, Total: len(gv.Rows), Columns: gv.Columns, Sort: gv.Sort}
	if limit > 0 && len(resp.Rows) > limit {
		resp.Rows = resp.Rows[:limit]
	}
	render.JSON(w, r, resp)
}

var exportTypes = map[string]struct {
	contentType string
	write       func(io.Writer, []record.Record, []grid.Column) error
}{
	"csv":  {"text/csv; charset=utf-8", grid.WriteCSV},
	"xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", grid.WriteXLSX},
}

// handleExport streams the grid for the query as a download.
func (s *server) handleExport(ext string) http.HandlerFunc {
	et := exportTypes[ext]
	return func(w http.ResponseWriter, r *http.Request) {
		sel, err := gridQuery(r)
		if err != nil {
			renderError(w, r, err)
			return
		}
		ds := s.data.Dataset()
		if ds == nil {
			renderError(w, r, dashboard.ErrNotLoaded)
			return
		}
		rows := dashboard.DeriveGrid(ds, sel).Records()

		var buf bytes.Buffer
		if err := et.write(&buf, rows, grid.DefaultColumns); err != nil {
			s.logger.ErrorContext(r.Context(), "export failed", slog.String("format", ext), slog.Any("error", err))
			renderError(w, r, err)
			return
		}
		name := grid.ExportFilename(s.now(), ext)
		w.Header().Set("Content-Type", et.contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		_, _ = buf.WriteTo(w)
	}
}

// sweep closes sessions idle for longer than maxIdle.
func (s *server) sweep(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	var stale []*session

	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			stale = append(stale, sess)
			delete(s.sessions, id)
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	for _, sess := range stale {
		sess.search.Cancel()
		sess.makeSearch.Cancel()
	}
	s.metrics.sessions.Set(float64(n))
	return len(stale)
}
