package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zalepa/evpop/record"
)

// ErrNotLoaded is returned while no dataset has been loaded successfully.
var ErrNotLoaded = errors.New("dataset not loaded")

// Status describes the controller's data load.
type Status struct {
	Loaded   bool      `json:"loaded"`
	Rows     int       `json:"rows"`
	Source   string    `json:"source,omitempty"`
	LoadedAt time.Time `json:"loadedAt,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Controller owns the canonical dataset and a single Selection. Every
// selection change recomputes the whole View from the dataset.
type Controller struct {
	mu     sync.Mutex
	ds     *record.Dataset
	sel    Selection
	view   View
	status Status

	logger  *slog.Logger
	tracer  trace.Tracer
	observe func(time.Duration)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithObserver registers fn to receive the duration of every recompute.
func WithObserver(fn func(time.Duration)) Option {
	return func(c *Controller) { c.observe = fn }
}

// WithSelection sets the starting selection instead of NewSelection().
func WithSelection(s Selection) Option {
	return func(c *Controller) { c.sel = s }
}

// NewController returns a controller over ds. ds may be nil, in which case
// views fail with ErrNotLoaded until Replace or Load succeeds.
func NewController(ds *record.Dataset, opts ...Option) *Controller {
	c := &Controller{
		sel:    NewSelection(),
		logger: slog.Default(),
		tracer: otel.Tracer("evpop/dashboard"),
	}
	for _, o := range opts {
		o(c)
	}
	if ds != nil {
		c.replace(context.Background(), ds, "")
	}
	return c
}

// Load reads src with l and replaces the dataset on success. On failure the
// previous dataset and view are kept and the error is recorded in Status.
func (c *Controller) Load(ctx context.Context, l record.Loader, src string) error {
	ds, err := l.Load(ctx, src)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.status.Error = err.Error()
		c.logger.ErrorContext(ctx, "dataset load failed", slog.String("source", src), slog.Any("error", err))
		return err
	}
	c.replaceLocked(ctx, ds, src)
	return nil
}

// Replace swaps in a new dataset and recomputes the view.
func (c *Controller) Replace(ctx context.Context, ds *record.Dataset) {
	c.replace(ctx, ds, "")
}

func (c *Controller) replace(ctx context.Context, ds *record.Dataset, src string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replaceLocked(ctx, ds, src)
}

func (c *Controller) replaceLocked(ctx context.Context, ds *record.Dataset, src string) {
	c.ds = ds
	c.status = Status{Loaded: true, Rows: ds.Len(), Source: src, LoadedAt: time.Now()}
	c.view = c.derive(ctx, c.sel)
}

// Status reports the current load state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Dataset returns the canonical dataset, or nil before a load.
func (c *Controller) Dataset() *record.Dataset {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ds
}

// Selection returns the current selection.
func (c *Controller) Selection() Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel
}

// View returns the view for the current selection.
func (c *Controller) View() (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ds == nil {
		return View{}, ErrNotLoaded
	}
	return c.view, nil
}

// Dispatch applies e and returns the recomputed view. The selection is
// updated even before a dataset is loaded, in which case ErrNotLoaded is
// returned with an empty view.
func (c *Controller) Dispatch(ctx context.Context, e Event) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := Reduce(c.sel, e)
	if err != nil {
		return View{}, err
	}
	changed := next != c.sel
	c.sel = next
	c.logger.DebugContext(ctx, "event", slog.String("type", string(e.Type)), slog.Bool("changed", changed))
	if c.ds == nil {
		return View{}, ErrNotLoaded
	}
	if changed {
		c.view = c.derive(ctx, next)
	}
	return c.view, nil
}

func (c *Controller) derive(ctx context.Context, sel Selection) View {
	_, span := c.tracer.Start(ctx, "dashboard.Derive")
	defer span.End()
	span.SetAttributes(
		attribute.Int("rows", c.ds.Len()),
		attribute.String("make", sel.Make),
	)

	start := time.Now()
	v := Derive(c.ds, sel)
	elapsed := time.Since(start)
	if c.observe != nil {
		c.observe(elapsed)
	}
	span.SetAttributes(attribute.Int("grid_rows", len(v.Grid.Rows)))
	return v
}
