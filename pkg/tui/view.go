package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/KjellKod/quest/pkg/dashboard"
	"github.com/KjellKod/quest/pkg/status"
)

const minWidth = 40
const minHeight = 10

func listWidth(width int) int {
	w := width / 3
	if w < 20 {
		w = 20
	}
	return w
}

func detailWidth(width int) int {
	w := width - listWidth(width) - 1 // 1 char for divider
	if w < 20 {
		w = 20
	}
	return w
}

// View implements tea.Model.
func (m Model) View() string {
	w := m.width
	h := m.height
	if w < minWidth {
		w = minWidth
	}
	if h < minHeight {
		h = minHeight
	}

	if m.showHelpModal {
		return placeOverlay(m.renderHelpModal(), w, h)
	}
	if m.showWarningsModal {
		return placeOverlay(m.renderWarningsModal(w), w, h)
	}

	var b strings.Builder

	b.WriteString(m.renderHeader(w))
	b.WriteString("\n")
	b.WriteString(m.renderKPIs())
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", w))
	b.WriteString("\n")

	headerLines := 3
	footerLines := 2

	searchActive := m.isSearching || m.searchQuery != ""
	if searchActive {
		headerLines++
		b.WriteString(m.renderSearchBar(w))
		b.WriteString("\n")
	}

	contentHeight := h - headerLines - footerLines
	leftWidth := listWidth(w)
	rightWidth := detailWidth(w)

	leftPanel := m.renderListPanel(leftWidth, contentHeight)
	rightPanel := m.renderDetailPanel(rightWidth, contentHeight)

	sepColor := ColorGrayDim
	if m.focusedPane == 1 {
		sepColor = ColorPurple
	}
	sep := lipgloss.NewStyle().Foreground(sepColor).Render("│")
	for i := 0; i < contentHeight; i++ {
		b.WriteString(getLine(leftPanel, i, leftWidth))
		b.WriteString(sep)
		b.WriteString(getLine(rightPanel, i, rightWidth))
		b.WriteString("\n")
	}

	b.WriteString(strings.Repeat("─", w))
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

func (m Model) renderHeader(width int) string {
	title := HeaderStyle.Render("Quest Dashboard")

	stats := HeaderCountStyle.Render("loading...")
	if m.dataset != nil {
		stats = HeaderCountStyle.Render(fmt.Sprintf("%d quests  generated %s",
			m.dataset.Model.Total, m.dataset.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC")))
	}

	notice := ""
	if m.statusMsg != "" && time.Now().Before(m.statusTimeout) {
		notice = lipgloss.NewStyle().Foreground(ColorCyan).Render(m.statusMsg) + "  "
	}

	gap := width - lipgloss.Width(title) - lipgloss.Width(stats) - lipgloss.Width(notice)
	if gap < 1 {
		gap = 1
	}

	return title + strings.Repeat(" ", gap) + notice + stats
}

// renderKPIs shows one count per canonical status.
func (m Model) renderKPIs() string {
	if m.dataset == nil {
		return ""
	}
	var parts []string
	for _, s := range status.All {
		parts = append(parts, StatusStyle(s).Render(fmt.Sprintf("%s %d", s.Label(), m.dataset.Model.ByStatus[s])))
	}
	if n := len(m.dataset.Warnings); n > 0 {
		parts = append(parts, WarningStyle.Render(fmt.Sprintf("⚠ %d warnings", n)))
	}
	return strings.Join(parts, HeaderCountStyle.Render("  ·  "))
}

func (m Model) renderSearchBar(width int) string {
	prefix := SearchBarStyle.Render(" / ")
	query := SearchBarStyle.Render(m.searchQuery)
	cursor := ""
	if m.isSearching {
		cursor = SearchBarStyle.Render("█")
	}

	countStr := ""
	if m.searchQuery != "" {
		countStr = SearchCountStyle.Render(fmt.Sprintf(" %d matches", len(m.searchMatchIDs)))
	}

	left := prefix + query + cursor
	padWidth := width - lipgloss.Width(left) - lipgloss.Width(countStr)
	if padWidth < 1 {
		padWidth = 1
	}

	return left + strings.Repeat(" ", padWidth) + countStr
}

func (m Model) renderListPanel(width, height int) string {
	var lines []string

	if m.dataset == nil {
		lines = append(lines, FooterStyle.Render("Loading quests..."))
	} else if len(m.visibleItems) == 0 {
		if m.searchQuery != "" {
			lines = append(lines, FooterStyle.Render("No quests match."))
		} else {
			lines = append(lines, FooterStyle.Render("No quests found."))
		}
	}

	// Scrolling window
	startIdx := 0
	endIdx := len(m.visibleItems)
	if len(m.visibleItems) > height {
		startIdx = m.cursor - height/2
		if startIdx < 0 {
			startIdx = 0
		}
		endIdx = startIdx + height
		if endIdx > len(m.visibleItems) {
			endIdx = len(m.visibleItems)
			startIdx = endIdx - height
		}
	}

	for i := startIdx; i < endIdx; i++ {
		item := m.visibleItems[i]
		if item.IsSectionHeader {
			lines = append(lines, m.renderSectionHeader(item, width))
			continue
		}
		lines = append(lines, m.renderQuestItem(item, i == m.cursor, width))
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderSectionHeader(item QuestItem, width int) string {
	var style lipgloss.Style
	switch item.Group {
	case dashboard.GroupFinished:
		style = StatusStyle(status.Finished)
	case dashboard.GroupAbandoned:
		style = StatusStyle(status.Abandoned)
	default:
		style = StatusStyle(status.InProgress)
	}

	label := style.Bold(true).Render("── " + item.Name + " ")
	remaining := width - lipgloss.Width(label)
	if remaining > 0 {
		label += lipgloss.NewStyle().Foreground(ColorGrayDim).Render(strings.Repeat("─", remaining))
	}
	return label
}

func (m Model) renderQuestItem(item QuestItem, isSelected bool, width int) string {
	icon := StatusStyle(item.Card.Status).Render(StatusIcon(item.Card.Status))

	name := truncate(item.Name, width-3)
	isSearchMatch := m.searchMatchIDs[item.ID]
	if isSearchMatch && m.searchQuery != "" {
		if isSelected {
			name = highlightMatch(name, m.searchQuery, SearchCharSelectedStyle, SelectedStyle)
		} else {
			name = highlightMatch(name, m.searchQuery, SearchCharStyle, SearchRowStyle)
		}
	}

	line := " " + icon + " " + name

	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		line += strings.Repeat(" ", width-lineWidth)
	}

	if isSelected {
		line = SelectedStyle.Render(line)
	} else if isSearchMatch {
		line = SearchRowStyle.Render(line)
	}
	return line
}

func (m Model) renderDetailPanel(width, height int) string {
	card := m.selected()
	if card == nil {
		return FooterStyle.Render(" Select a quest to view details")
	}

	// Reserve last line for the source path
	bodyHeight := height - 1
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	md := QuestMarkdown(card)
	rendered := md
	if m.glamourRenderer != nil {
		if out, err := m.glamourRenderer.Render(md); err == nil {
			rendered = out
		}
	}

	rendered = strings.TrimRight(rendered, "\n ")
	lines := strings.Split(rendered, "\n")

	scroll := m.detailScroll
	if scroll > len(lines)-1 {
		scroll = len(lines) - 1
	}
	if scroll < 0 {
		scroll = 0
	}
	lines = lines[scroll:]

	if len(lines) > bodyHeight {
		lines = lines[:bodyHeight]
	}
	for len(lines) < bodyHeight {
		lines = append(lines, "")
	}

	source := card.JournalPath
	if source == "" {
		source = card.StatePath
	}
	lines = append(lines, lipgloss.NewStyle().Foreground(ColorGrayDim).Render(" "+source))

	return strings.Join(lines, "\n")
}

func (m Model) renderFooter() string {
	help := m.keys.ShortHelp()
	if m.isSearching {
		help = "type to search  enter/↓ keep filter  esc clear"
	} else if m.searchQuery != "" {
		help = "esc clear filter  ↑↓ nav  / new search"
	} else if m.focusedPane == 1 {
		help = "↑↓ scroll details  tab/esc quests  ? help"
	}
	return FooterStyle.Render(help)
}

func (m Model) renderHelpModal() string {
	var b strings.Builder

	b.WriteString(ModalTitleStyle.Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")

	keyStyle := lipgloss.NewStyle().Foreground(ColorBlue).Width(16)
	descStyle := lipgloss.NewStyle().Foreground(ColorWhite)

	for _, binding := range m.keys.FullHelp() {
		b.WriteString(keyStyle.Render(binding[0]))
		b.WriteString(descStyle.Render(binding[1]))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(FooterStyle.Render("Press Esc or ? to close"))

	return ModalStyle.Render(b.String())
}

func (m Model) renderWarningsModal(width int) string {
	var b strings.Builder

	b.WriteString(ModalTitleStyle.Render("Warnings"))
	b.WriteString("\n\n")

	var warnings []string
	if m.dataset != nil {
		warnings = m.dataset.Warnings
	}
	if len(warnings) == 0 {
		b.WriteString(ModalValueStyle.Render("No warnings."))
		b.WriteString("\n")
	}
	textWidth := width - 10
	if textWidth < 20 {
		textWidth = 20
	}
	for _, w := range warnings {
		b.WriteString(WarningStyle.Render("⚠ "))
		b.WriteString(ModalValueStyle.Render(truncate(w, textWidth)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(FooterStyle.Render("Press Esc or w to close"))

	return ModalStyle.Render(b.String())
}

// highlightMatch splits name into before/match/after and styles the match portion
// with charStyle, and the rest with rowStyle. The match is case-insensitive.
func highlightMatch(name, query string, charStyle, rowStyle lipgloss.Style) string {
	lower := strings.ToLower(name)
	idx := strings.Index(lower, strings.ToLower(query))
	if idx < 0 || len(lower) != len(name) {
		return rowStyle.Render(name)
	}
	before := name[:idx]
	match := name[idx : idx+len(query)]
	after := name[idx+len(query):]

	var result string
	if before != "" {
		result += rowStyle.Render(before)
	}
	result += charStyle.Render(match)
	if after != "" {
		result += rowStyle.Render(after)
	}
	return result
}

// truncate shortens s to at most width cells, marking the cut with an
// ellipsis.
func truncate(s string, width int) string {
	if width <= 1 || lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

// Helper functions

func getLine(block string, idx int, width int) string {
	lines := strings.Split(block, "\n")
	if idx < len(lines) {
		line := lines[idx]
		lineWidth := lipgloss.Width(line)
		if lineWidth < width {
			return line + strings.Repeat(" ", width-lineWidth)
		}
		return line
	}
	return strings.Repeat(" ", width)
}

func placeOverlay(modal string, width, height int) string {
	modalLines := strings.Split(modal, "\n")

	topPadding := (height - len(modalLines)) / 2
	if topPadding < 0 {
		topPadding = 0
	}

	leftPadding := (width - lipgloss.Width(modalLines[0])) / 2
	if leftPadding < 0 {
		leftPadding = 0
	}

	var result strings.Builder
	for i := 0; i < topPadding; i++ {
		result.WriteString("\n")
	}

	for _, line := range modalLines {
		result.WriteString(strings.Repeat(" ", leftPadding))
		result.WriteString(line)
		result.WriteString("\n")
	}

	return result.String()
}
