package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakridge-association/sitesearch/internal/indexing"
	"github.com/oakridge-association/sitesearch/internal/search"
	"github.com/oakridge-association/sitesearch/internal/ui"
)

type fakeController struct {
	submits, clears, toggles, dismissals int
}

func (f *fakeController) Start(ctx context.Context) {}

func (f *fakeController) Close() {}

func (f *fakeController) Submit() { f.submits++ }

func (f *fakeController) ClearFilters() { f.clears++ }

func (f *fakeController) ToggleFilters() { f.toggles++ }

func (f *fakeController) DismissSuggestions() { f.dismissals++ }

func newTestModel() (*model, *Surface, *fakeController) {
	s := New()
	c := &fakeController{}
	return newModel(s, c), s, c
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "ctrl+f":
		return tea.KeyMsg{Type: tea.KeyCtrlF}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	case "ctrl+g":
		return tea.KeyMsg{Type: tea.KeyCtrlG}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func resultState(titles ...string) ui.State {
	res := &search.Result{Query: "q", Results: []search.Hit{}}
	for _, title := range titles {
		h := search.Hit{Score: 1}
		h.Title = title
		h.Type = indexing.TypeNewsletter
		h.URL = "/newsletters.html#" + title
		res.Results = append(res.Results, h)
	}
	res.Total = len(res.Results)
	res.HasResults = res.Total > 0
	return ui.State{Query: "q", Result: res}
}

func TestTypingReportsQueryChanges(t *testing.T) {
	m, s, _ := newTestModel()
	var got []string
	s.OnQueryChange(func(q string) { got = append(got, q) })

	m.Update(key("p"))
	m.Update(key("o"))
	assert.Equal(t, []string{"p", "po"}, got)
}

func TestKeysDriveController(t *testing.T) {
	m, _, c := newTestModel()

	m.Update(key("enter"))
	m.Update(key("ctrl+f"))
	m.Update(key("ctrl+r"))
	assert.Equal(t, 1, c.submits)
	assert.Equal(t, 1, c.toggles)
	assert.Equal(t, 1, c.clears)

	m.Update(stateMsg{seq: 1, state: ui.State{ShowSuggestions: true}})
	_, cmd := m.Update(key("esc"))
	assert.Nil(t, cmd)
	assert.Equal(t, 1, c.dismissals)
}

func TestTypeFilterCycles(t *testing.T) {
	m, s, _ := newTestModel()
	var got []search.Filters
	s.OnFilterChange(func(f search.Filters) { got = append(got, f) })

	m.Update(key("ctrl+t"))
	require.Len(t, got, 1)
	assert.Equal(t, []string{"newsletter"}, got[0].Types)

	m.Update(stateMsg{seq: 1, state: ui.State{Filters: got[0]}})
	m.Update(key("ctrl+t"))
	assert.Equal(t, []string{"meeting"}, got[1].Types)
}

func TestTagFilterNeedsOptions(t *testing.T) {
	m, s, _ := newTestModel()
	var got []search.Filters
	s.OnFilterChange(func(f search.Filters) { got = append(got, f) })

	m.Update(key("ctrl+g"))
	assert.Empty(t, got)

	m.Update(stateMsg{seq: 1, state: ui.State{FilterOptions: &search.FilterOptions{Tags: []string{"pool", "budget"}}}})
	m.Update(key("ctrl+g"))
	require.Len(t, got, 1)
	assert.Equal(t, []string{"pool"}, got[0].Tags)
	assert.Contains(t, m.View(), "tag: any")
}

func TestCycle(t *testing.T) {
	opts := []string{"Q1", "Q2"}
	assert.Equal(t, []string{"Q1"}, cycle(nil, opts))
	assert.Equal(t, []string{"Q2"}, cycle([]string{"Q1"}, opts))
	assert.Nil(t, cycle([]string{"Q2"}, opts))
	assert.Nil(t, cycle(nil, nil))
}

func TestStaleStateIgnored(t *testing.T) {
	m, _, _ := newTestModel()

	m.Update(stateMsg{seq: 2, state: resultState("Newer")})
	m.Update(stateMsg{seq: 1, state: resultState("Older")})
	assert.Contains(t, m.View(), "Newer")
	assert.NotContains(t, m.View(), "Older")
}

func TestSelectionMoves(t *testing.T) {
	m, _, _ := newTestModel()
	m.Update(stateMsg{seq: 1, state: resultState("A", "B")})

	m.Update(key("down"))
	m.Update(key("down"))
	assert.Equal(t, 1, m.selected)
	m.Update(key("up"))
	assert.Equal(t, 0, m.selected)
}

func TestViewStates(t *testing.T) {
	m, _, _ := newTestModel()

	m.Update(stateMsg{seq: 1, state: ui.State{Unavailable: true, Message: ui.UnavailableMessage}})
	assert.Contains(t, m.View(), ui.UnavailableMessage)

	m.Update(stateMsg{seq: 2, state: ui.State{Result: &search.Result{Query: "xyzzy", Results: []search.Hit{}}}})
	assert.Contains(t, m.View(), `No results for "xyzzy"`)

	m.Update(stateMsg{seq: 3, state: ui.State{Result: &search.Result{Query: "a:b", Error: "query failed"}}})
	assert.Contains(t, m.View(), "query failed")

	m.Update(stateMsg{seq: 4, state: ui.State{FiltersCollapsed: true}})
	assert.Contains(t, m.View(), "Filters hidden")
}

func TestRenderWithoutProgramIsDropped(t *testing.T) {
	s := New()
	assert.NotPanics(t, func() { s.Render(ui.State{Query: "x"}) })
}
