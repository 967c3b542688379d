// Package tui is a terminal search surface built on bubbletea.
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/oakridge-association/sitesearch/internal/indexing"
	"github.com/oakridge-association/sitesearch/internal/search"
	"github.com/oakridge-association/sitesearch/internal/ui"
)

// Controller is the part of ui.Controller the surface drives.
type Controller interface {
	Start(ctx context.Context)
	Close()
	Submit()
	ClearFilters()
	ToggleFilters()
	DismissSuggestions()
}

// stateMsg carries a rendered state into the program. Renders are sent
// from separate goroutines, so seq restores their order.
type stateMsg struct {
	seq   uint64
	state ui.State
}

// Surface implements ui.Surface on a bubbletea program.
type Surface struct {
	mu       sync.Mutex
	program  *tea.Program
	seq      uint64
	onQuery  func(string)
	onFilter func(search.Filters)
	styles   *Styles
}

// New creates a surface with the default styles.
func New() *Surface {
	return &Surface{styles: DefaultStyles()}
}

// Render queues st for display. It never blocks.
func (s *Surface) Render(st ui.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.program == nil {
		return
	}
	s.seq++
	msg := stateMsg{seq: s.seq, state: st}
	p := s.program
	go p.Send(msg)
}

func (s *Surface) OnQueryChange(handler func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onQuery = handler
}

func (s *Surface) OnFilterChange(handler func(search.Filters)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFilter = handler
}

func (s *Surface) queryChanged(q string) {
	s.mu.Lock()
	h := s.onQuery
	s.mu.Unlock()
	if h != nil {
		h(q)
	}
}

func (s *Surface) filtersChanged(f search.Filters) {
	s.mu.Lock()
	h := s.onFilter
	s.mu.Unlock()
	if h != nil {
		h(f)
	}
}

// Run starts c against this surface and blocks until the user quits or
// ctx is cancelled.
func (s *Surface) Run(ctx context.Context, c Controller) error {
	m := newModel(s, c)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	s.mu.Lock()
	s.program = p
	s.mu.Unlock()

	c.Start(ctx)
	defer c.Close()

	_, err := p.Run()
	return err
}

type model struct {
	surface  *Surface
	ctrl     Controller
	styles   *Styles
	input    textinput.Model
	state    ui.State
	seq      uint64
	selected int
	width    int
}

func newModel(s *Surface, c Controller) *model {
	ti := textinput.New()
	ti.Placeholder = "Search newsletters, meetings, resources, glossary..."
	ti.Prompt = "› "
	ti.CharLimit = 256
	ti.Width = 60
	ti.Focus()

	return &model{
		surface: s,
		ctrl:    c,
		styles:  s.styles,
		input:   ti,
		width:   80,
	}
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 8; w > 20 {
			m.input.Width = w
		}
		return m, nil

	case stateMsg:
		if msg.seq < m.seq {
			return m, nil
		}
		m.seq = msg.seq
		m.state = msg.state
		if m.state.Result == nil || m.selected >= len(m.state.Result.Results) {
			m.selected = 0
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		if m.state.ShowSuggestions {
			m.ctrl.DismissSuggestions()
			return m, nil
		}
		return m, tea.Quit
	case "enter":
		m.ctrl.Submit()
		return m, nil
	case "up":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case "down":
		if r := m.state.Result; r != nil && m.selected < len(r.Results)-1 {
			m.selected++
		}
		return m, nil
	case "ctrl+f":
		m.ctrl.ToggleFilters()
		return m, nil
	case "ctrl+r":
		m.ctrl.ClearFilters()
		return m, nil
	case "ctrl+t":
		f := m.state.Filters
		f.Types = cycle(f.Types, typeNames())
		m.surface.filtersChanged(f)
		return m, nil
	case "ctrl+y":
		if m.state.FilterOptions != nil {
			f := m.state.Filters
			f.Years = cycle(f.Years, m.state.FilterOptions.Years)
			m.surface.filtersChanged(f)
		}
		return m, nil
	case "ctrl+g":
		if m.state.FilterOptions != nil {
			f := m.state.Filters
			f.Tags = cycle(f.Tags, m.state.FilterOptions.Tags)
			m.surface.filtersChanged(f)
		}
		return m, nil
	case "ctrl+o":
		f := m.state.Filters
		f.Quarters = cycle(f.Quarters, search.Quarters)
		m.surface.filtersChanged(f)
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != before {
		m.surface.queryChanged(v)
	}
	return m, cmd
}

func typeNames() []string {
	out := make([]string, len(indexing.DocTypes))
	for i, t := range indexing.DocTypes {
		out[i] = string(t)
	}
	return out
}

// cycle steps a single-valued filter through options and back to none.
func cycle(current, options []string) []string {
	if len(options) == 0 {
		return nil
	}
	if len(current) == 0 {
		return []string{options[0]}
	}
	for i, o := range options {
		if o == current[0] {
			if i+1 < len(options) {
				return []string{options[i+1]}
			}
			return nil
		}
	}
	return nil
}

func (m *model) View() string {
	var b strings.Builder
	st := m.styles

	b.WriteString(st.Title.Render("Community Search"))
	b.WriteString("\n")
	b.WriteString(st.InputField.Render(m.input.View()))
	b.WriteString("\n")

	if m.state.ShowSuggestions {
		for _, s := range m.state.Suggestions {
			b.WriteString(st.Suggestion.Render(fmt.Sprintf("%s  (%s)", s.Text, s.Type)))
			b.WriteString("\n")
		}
	}

	b.WriteString(m.filtersView())
	b.WriteString("\n")

	switch {
	case m.state.Unavailable:
		b.WriteString(st.Warning.Render(m.state.Message))
		b.WriteString("\n")
	case m.state.Loading:
		b.WriteString(st.Muted.Render("Searching..."))
		b.WriteString("\n")
	case m.state.Result != nil:
		b.WriteString(m.resultsView())
	}

	b.WriteString("\n")
	b.WriteString(st.Help.Render("enter search • ↑/↓ select • ctrl+f filters • ctrl+t type • ctrl+y year • ctrl+o quarter • ctrl+g tag • ctrl+r clear • esc quit"))
	return b.String()
}

func (m *model) filtersView() string {
	st := m.styles
	if m.state.FiltersCollapsed {
		return st.Muted.Render("Filters hidden (ctrl+f)")
	}
	f := m.state.Filters
	parts := []string{
		"type: " + orAny(f.Types),
		"year: " + orAny(f.Years),
		"quarter: " + orAny(f.Quarters),
	}
	parts = append(parts, "tag: "+orAny(f.Tags))
	if r := f.DateRange; r != nil {
		parts = append(parts, fmt.Sprintf("dates: %s..%s", r.From, r.To))
	}
	return st.Muted.Render("Filters  " + strings.Join(parts, "  │  "))
}

func orAny(values []string) string {
	if len(values) == 0 {
		return "any"
	}
	return strings.Join(values, ", ")
}

func (m *model) resultsView() string {
	st := m.styles
	r := m.state.Result
	var b strings.Builder

	if r.Error != "" {
		b.WriteString(st.Error.Render(r.Error))
		b.WriteString("\n")
		return b.String()
	}
	if !r.HasResults {
		b.WriteString(st.Muted.Render(fmt.Sprintf("No results for %q", r.Query)))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(st.Muted.Render(fmt.Sprintf("%d of %d results", len(r.Results), r.Total)))
	b.WriteString("\n\n")
	for i, h := range r.Results {
		title := h.Title
		if i == m.selected {
			title = st.Selected.Render("▸ " + title)
		} else {
			title = "  " + title
		}
		line := lipgloss.JoinHorizontal(lipgloss.Top, st.Badge.Render(string(h.Type)), " ", title)
		b.WriteString(line)
		b.WriteString("\n")
		if h.Summary != "" {
			b.WriteString("    " + h.Summary)
			b.WriteString("\n")
		}
		b.WriteString("    " + st.URL.Render(h.URL))
		b.WriteString("\n")
	}
	return b.String()
}
