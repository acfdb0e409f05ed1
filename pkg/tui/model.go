// Package tui is a read-only terminal browser over a generated quest
// dataset.
package tui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/KjellKod/quest/pkg/dashboard"
	"github.com/KjellKod/quest/pkg/store"
)

// Loader produces a fresh dataset. It is called on start and on every
// reload.
type Loader func() (*dashboard.Dataset, error)

// LoadedMsg carries the result of a Loader call.
type LoadedMsg struct {
	Dataset *dashboard.Dataset
	Err     error
}

// Model is the Bubble Tea model for the quest browser.
type Model struct {
	load         Loader
	keys         KeyMap
	width        int
	height       int
	dataset      *dashboard.Dataset
	items        []QuestItem
	visibleItems []QuestItem
	cursor       int
	focusedPane  int // 0 = quests, 1 = details
	detailScroll int
	loads        int

	// Modal state
	showHelpModal     bool
	showWarningsModal bool

	// Search state
	isSearching    bool
	searchQuery    string
	searchMatchIDs map[string]bool

	// Status message
	statusMsg     string
	statusTimeout time.Time

	// Cached glamour renderer (expensive to create)
	glamourRenderer *glamour.TermRenderer
	glamourWidth    int
}

// NewModel creates a browser that fetches its data through load.
func NewModel(load Loader) Model {
	return Model{
		load: load,
		keys: DefaultKeyMap(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tea.WindowSize(), m.loadCmd())
}

func (m Model) loadCmd() tea.Cmd {
	load := m.load
	return func() tea.Msg {
		if load == nil {
			return LoadedMsg{Err: fmt.Errorf("no quest loader configured")}
		}
		ds, err := load()
		return LoadedMsg{Dataset: ds, Err: err}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.getGlamourRenderer(detailWidth(msg.Width) - 2)
		return m, tea.ClearScreen

	case LoadedMsg:
		m.applyLoaded(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, nil
}

// applyLoaded swaps in a freshly loaded dataset. A failed reload keeps the
// previous data on screen.
func (m *Model) applyLoaded(msg LoadedMsg) {
	if msg.Err != nil {
		m.setStatus("Load error: " + msg.Err.Error())
		return
	}
	if msg.Dataset == nil {
		return
	}

	selected := m.selectedID()
	m.dataset = msg.Dataset
	m.items = BuildItems(msg.Dataset.Groups)
	m.loads++
	m.applySearchFilter()
	m.rebuildVisible()
	m.moveCursorToID(selected)

	if m.loads > 1 {
		m.setStatus(fmt.Sprintf("Reloaded %d quests", len(msg.Dataset.Quests)))
	}
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Search input mode handling
	if m.isSearching {
		return m.handleSearchInput(msg)
	}

	// Help modal
	if m.showHelpModal {
		switch msg.String() {
		case "esc", "enter", "?", "q":
			m.showHelpModal = false
		}
		return m, nil
	}

	// Warnings modal
	if m.showWarningsModal {
		switch msg.String() {
		case "esc", "enter", "w", "q":
			m.showWarningsModal = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelpModal = true
		return m, nil

	case key.Matches(msg, m.keys.Warnings):
		m.showWarningsModal = true
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.isSearching = true
		m.searchQuery = ""
		m.applySearchFilter()
		m.rebuildVisible()
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		if m.searchQuery != "" {
			m.clearSearch()
		} else if m.focusedPane == 1 {
			m.focusedPane = 0
		}
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		m.setStatus("Reloading...")
		return m, m.loadCmd()

	case key.Matches(msg, m.keys.Tab):
		m.focusedPane = 1 - m.focusedPane
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		if m.selected() != nil {
			m.focusedPane = 1
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.focusedPane == 1 {
			if m.detailScroll > 0 {
				m.detailScroll--
			}
			return m, nil
		}
		m.moveCursor(-1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.focusedPane == 1 {
			m.detailScroll++
			return m, nil
		}
		m.moveCursor(1)
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.cursor = 0
		m.skipHeaders(1)
		m.detailScroll = 0
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.cursor = len(m.visibleItems) - 1
		m.skipHeaders(-1)
		m.detailScroll = 0
		return m, nil
	}

	return m, nil
}

// handleSearchInput handles key messages while typing in the search bar.
func (m Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		// Exit search and clear filter
		m.clearSearch()
		return m, nil

	case tea.KeyEnter, tea.KeyDown, tea.KeyTab:
		// Exit search input but keep filter active
		m.isSearching = false
		return m, nil

	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyBackspace:
		if len(m.searchQuery) > 0 {
			_, size := utf8.DecodeLastRuneInString(m.searchQuery)
			m.searchQuery = m.searchQuery[:len(m.searchQuery)-size]
		}
		m.applySearchFilter()
		m.rebuildVisible()
		return m, nil

	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			m.searchQuery += string(msg.Runes)
			m.applySearchFilter()
			m.rebuildVisible()
		}
		return m, nil
	}
}

func (m *Model) clearSearch() {
	m.isSearching = false
	m.searchQuery = ""
	m.searchMatchIDs = nil
	m.rebuildVisible()
}

// applySearchFilter computes searchMatchIDs from searchQuery.
func (m *Model) applySearchFilter() {
	if strings.TrimSpace(m.searchQuery) == "" {
		m.searchMatchIDs = nil
		return
	}
	m.searchMatchIDs = make(map[string]bool)
	for _, item := range m.items {
		if MatchItem(item, m.searchQuery) {
			m.searchMatchIDs[item.ID] = true
		}
	}
}

func (m *Model) rebuildVisible() {
	m.visibleItems = m.items
	if m.searchMatchIDs != nil {
		m.visibleItems = FilterItems(m.items, m.searchMatchIDs)
	}

	// Clamp cursor
	if m.cursor >= len(m.visibleItems) {
		m.cursor = len(m.visibleItems) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.skipHeaders(1)
}

// skipHeaders moves the cursor off a section header in direction dir,
// falling back to the other direction at the end of the list.
func (m *Model) skipHeaders(dir int) {
	if m.cursor < 0 || m.cursor >= len(m.visibleItems) || !m.visibleItems[m.cursor].IsSectionHeader {
		return
	}
	for _, d := range []int{dir, -dir} {
		for i := m.cursor; i >= 0 && i < len(m.visibleItems); i += d {
			if !m.visibleItems[i].IsSectionHeader {
				m.cursor = i
				return
			}
		}
	}
}

func (m *Model) moveCursor(delta int) {
	for i := m.cursor + delta; i >= 0 && i < len(m.visibleItems); i += delta {
		if !m.visibleItems[i].IsSectionHeader {
			m.cursor = i
			m.detailScroll = 0
			return
		}
	}
}

func (m *Model) moveCursorToID(id string) {
	if id == "" {
		return
	}
	for i, item := range m.visibleItems {
		if item.ID == id {
			m.cursor = i
			return
		}
	}
}

func (m Model) selected() *dashboard.Card {
	if m.cursor < 0 || m.cursor >= len(m.visibleItems) {
		return nil
	}
	return m.visibleItems[m.cursor].Card
}

func (m Model) selectedID() string {
	if c := m.selected(); c != nil {
		return c.Anchor
	}
	return ""
}

// getGlamourRenderer returns a cached glamour renderer, creating one if needed
// or if the width changed.
func (m *Model) getGlamourRenderer(width int) *glamour.TermRenderer {
	if width < 20 {
		width = 20
	}
	if m.glamourRenderer != nil && m.glamourWidth == width {
		return m.glamourRenderer
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	m.glamourRenderer = r
	m.glamourWidth = width
	return r
}

func (m *Model) setStatus(msg string) {
	m.statusMsg = msg
	m.statusTimeout = time.Now().Add(3 * time.Second)
}

// QuestMarkdown renders the detail pane source for one quest.
func QuestMarkdown(c *dashboard.Card) string {
	var md strings.Builder

	md.WriteString("# " + displayName(c) + "\n\n")

	meta := []string{"**Status:** " + c.Status.Label()}
	if c.PhaseRaw != "" {
		meta = append(meta, "**Phase:** "+c.PhaseLabel)
	}
	if c.QuestID != "" {
		meta = append(meta, "**Quest:** `"+c.QuestID+"`")
	}
	md.WriteString(strings.Join(meta, " | ") + "\n\n")

	if c.ElevatorPitch != "" {
		md.WriteString(c.ElevatorPitch + "\n\n")
	}
	if c.Description != "" && c.Description != c.ElevatorPitch {
		md.WriteString("## Description\n\n" + c.Description + "\n\n")
	}

	var facts []string
	fact := func(label, value string) {
		if value != "" {
			facts = append(facts, "- **"+label+":** "+value)
		}
	}
	fact("Completed", formatDate(c.CompletedDate))
	fact("Updated", formatDate(c.UpdatedAt))
	fact("Created", formatDate(c.CreatedAt))
	fact("Plan iterations", formatInt(c.PlanIterations))
	fact("Fix iterations", formatInt(c.FixIterations))
	fact("Last role", c.LastRole)
	fact("Last verdict", c.LastVerdict)
	if c.PRNumber != nil {
		pr := fmt.Sprintf("#%d", *c.PRNumber)
		if c.PRURL != "" {
			pr = "[" + pr + "](" + c.PRURL + ")"
		}
		fact("Pull request", pr)
	}
	if c.JournalURL != "" {
		fact("Journal", "["+c.JournalPath+"]("+c.JournalURL+")")
	} else {
		fact("Journal", c.JournalPath)
	}
	fact("State", c.StatePath)
	fact("Brief", c.BriefPath)
	if c.Archived {
		fact("Archived", "yes")
	}
	if len(facts) > 0 {
		md.WriteString("## Details\n\n" + strings.Join(facts, "\n") + "\n")
	}

	return md.String()
}

func formatDate(t time.Time) string {
	if !store.HasTime(t) {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func formatInt(n *int) string {
	if n == nil {
		return ""
	}
	return fmt.Sprintf("%d", *n)
}
