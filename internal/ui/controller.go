package ui

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/oakridge-association/sitesearch/internal/log"
	"github.com/oakridge-association/sitesearch/internal/search"
)

const DefaultDebounce = 300 * time.Millisecond

// Options configures a Controller. Zero values take the defaults.
type Options struct {
	Debounce        time.Duration
	Limit           int
	SuggestionLimit int
	Clock           Clock
}

// Controller binds a Surface to a Searcher. State changes and renders are
// serialized; query responses that arrive after a newer query was
// dispatched are dropped.
type Controller struct {
	engine  Searcher
	surface Surface
	opts    Options
	log     *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	state       State
	timer       Timer
	debounceSeq uint64
	querySeq    uint64
	suggestSeq  uint64
	closed      bool
}

// NewController creates a controller. Call Start to attach it to the
// surface.
func NewController(engine Searcher, surface Surface, opts Options) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	return &Controller{
		engine:  engine,
		surface: surface,
		opts:    opts,
		log:     log.ForService("ui"),
	}
}

// Start registers the input handlers, renders the initial state and
// begins loading the filter options in the background.
func (c *Controller) Start(ctx context.Context) {
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.surface.OnQueryChange(c.QueryChanged)
	c.surface.OnFilterChange(c.SetFilters)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.render()
	c.goRun(c.loadFilterOptions)
}

// Close stops pending work and waits for in-flight queries.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopTimer()
	c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// goRun starts f unless the controller is closed. mu must be held.
func (c *Controller) goRun(f func()) {
	if c.closed {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		f()
	}()
}

func (c *Controller) runCtx() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// render must be called with mu held.
func (c *Controller) render() {
	s := c.state
	s.Suggestions = append([]search.Suggestion(nil), s.Suggestions...)
	c.surface.Render(s)
}

// QueryChanged records new input. The query runs once input pauses for the
// debounce delay; suggestions update right away.
func (c *Controller) QueryChanged(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Query = query
	c.stopTimer()
	seq := c.debounceSeq
	c.timer = c.opts.Clock.AfterFunc(c.opts.Debounce, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		// A timer that fired while a newer one was being armed is stale.
		if seq != c.debounceSeq || c.closed {
			return
		}
		c.timer = nil
		c.dispatch()
	})

	c.suggestSeq++
	sseq := c.suggestSeq
	if utf8.RuneCountInString(strings.TrimSpace(query)) < search.MinSuggestionLength {
		c.state.Suggestions = nil
		c.state.ShowSuggestions = false
		c.render()
		return
	}
	c.render()

	filters := c.state.Filters
	c.goRun(func() { c.suggest(sseq, query, filters) })
}

// Submit runs the current query immediately.
func (c *Controller) Submit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimer()
	c.dispatch()
}

// stopTimer cancels the pending debounced query. mu must be held.
func (c *Controller) stopTimer() {
	c.debounceSeq++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// SetFilters replaces the active filters and re-runs the query.
func (c *Controller) SetFilters(f search.Filters) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Filters = f
	c.dispatch()
}

// ClearFilters resets every filter and re-runs the query unfiltered.
func (c *Controller) ClearFilters() {
	c.SetFilters(search.Filters{})
}

// ToggleFilters collapses or expands the filter panel.
func (c *Controller) ToggleFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.FiltersCollapsed = !c.state.FiltersCollapsed
	c.render()
}

// DismissSuggestions hides the suggestion list.
func (c *Controller) DismissSuggestions() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suggestSeq++
	if !c.state.ShowSuggestions {
		return
	}
	c.state.ShowSuggestions = false
	c.render()
}

// dispatch issues the current query under a new token and hides the
// suggestions. mu must be held.
func (c *Controller) dispatch() {
	c.suggestSeq++
	c.state.Suggestions = nil
	c.state.ShowSuggestions = false

	c.querySeq++
	seq := c.querySeq
	query := c.state.Query
	filters := c.state.Filters

	if strings.TrimSpace(query) == "" {
		c.state.Loading = false
		c.state.Result = nil
		c.render()
		return
	}

	c.state.Loading = true
	c.render()

	c.goRun(func() { c.runQuery(seq, query, filters) })
}

func (c *Controller) runQuery(seq uint64, query string, filters search.Filters) {
	opts := []search.Option{search.WithFilters(filters)}
	if c.opts.Limit != 0 {
		opts = append(opts, search.WithLimit(c.opts.Limit))
	}
	res, err := c.engine.Search(c.runCtx(), query, opts...)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.querySeq {
		c.log.Debugf("dropping stale response for %q", query)
		return
	}
	c.state.Loading = false
	if err != nil {
		if search.IsIndexLoadError(err) {
			c.log.Warnf("search unavailable: %v", err)
			c.state.Unavailable = true
			c.state.Message = UnavailableMessage
			c.state.Result = nil
		} else {
			c.log.Debugf("search %q: %v", query, err)
		}
		c.render()
		return
	}
	if c.state.Unavailable {
		c.state.Unavailable = false
		c.state.Message = ""
		if c.state.FilterOptions == nil {
			c.goRun(c.loadFilterOptions)
		}
	}
	c.state.Result = res
	c.render()
}

func (c *Controller) suggest(seq uint64, query string, filters search.Filters) {
	got := c.engine.Suggestions(c.runCtx(), query, c.opts.SuggestionLimit, filters)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.suggestSeq {
		return
	}
	c.state.Suggestions = got
	c.state.ShowSuggestions = len(got) > 0
	c.render()
}

func (c *Controller) loadFilterOptions() {
	opts, err := c.engine.FilterOptions(c.runCtx())

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if search.IsIndexLoadError(err) {
			c.log.Warnf("search unavailable: %v", err)
			c.state.Unavailable = true
			c.state.Message = UnavailableMessage
			c.render()
		}
		return
	}
	c.state.FilterOptions = opts
	c.render()
}
