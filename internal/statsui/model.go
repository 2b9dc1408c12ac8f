// Package statsui provides the Bubble Tea viewer for stored analysis runs.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/vocalrange/internal/corpus"
	"github.com/verte-zerg/vocalrange/internal/model"
	"github.com/verte-zerg/vocalrange/internal/pitch"
	"github.com/verte-zerg/vocalrange/internal/stats"
	"github.com/verte-zerg/vocalrange/internal/store"
)

const (
	tabSummary = iota
	tabTracks
	tabDistribution
)

const plotHeight = 12

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the Bubble Tea run viewer.
type Model struct {
	store *store.Store

	runs     []model.RunInfo
	runIndex int
	report   stats.Report
	errMsg   string

	tabs        []string
	activeTab   int
	viewports   []viewport.Model
	trackTable  table.Model
	trackLayout tableLayout

	width  int
	height int

	filterMode  bool
	filterInput textinput.Model
	system      string
}

type tableLayout struct {
	width    int
	height   int
	rowCount int
}

// NewModel constructs a viewer positioned on runID, or on the latest run
// when runID <= 0.
func NewModel(st *store.Store, runID int64) *Model {
	m := &Model{
		store: st,
		tabs:  []string{"Summary", "Tracks", "Distribution"},
	}
	m.filterInput = newFilterInput("System: ")
	m.trackTable = table.New(table.WithHeight(1))
	m.trackTable.SetStyles(trackTableStyles())
	m.initViewports()
	m.loadRuns(runID)
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		if msg.String() == "q" {
			return m, tea.Quit
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "[":
			m.moveRun(1)
			return m, nil
		case "]":
			m.moveRun(-1)
			return m, nil
		case "/":
			m.filterMode = true
			m.filterInput.SetValue(m.system)
			return m, m.filterInput.Focus()
		case "g", "home":
			if m.activeTab == tabTracks {
				m.trackTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabTracks {
				m.trackTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabTracks {
				var cmd tea.Cmd
				m.trackTable, cmd = m.trackTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.Placeholder = "all systems"
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if m.filterMode || m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.setTrackTableSize(m.width, vpHeight)
	m.filterInput.Width = maxInt(10, m.width-lipgloss.Width(m.filterInput.Prompt)-2)
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabTracks {
		m.trackTable.Focus()
	} else {
		m.trackTable.Blur()
	}
}

// moveRun steps through runs; runs are ordered newest first, so +1 is older.
func (m *Model) moveRun(delta int) {
	next := m.runIndex + delta
	if next < 0 || next >= len(m.runs) {
		return
	}
	m.runIndex = next
	m.refreshReport()
}

func (m *Model) loadRuns(runID int64) {
	runs, err := m.store.ListRuns(context.Background(), 0)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.runs = runs
	if len(runs) == 0 {
		m.errMsg = store.ErrNoRuns.Error()
		return
	}
	m.runIndex = 0
	found := runID <= 0
	for i, r := range runs {
		if r.RunID == runID {
			m.runIndex = i
			found = true
			break
		}
	}
	m.refreshReport()
	if !found {
		m.errMsg = fmt.Sprintf("run %d not found; showing latest", runID)
	}
}

func (m *Model) refreshReport() {
	if len(m.runs) == 0 {
		return
	}
	report, err := stats.BuildReport(context.Background(), m.store, m.runs[m.runIndex].RunID)
	if err != nil {
		m.errMsg = err.Error()
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load run.")
		}
		return
	}
	m.errMsg = ""
	m.report = report
	m.applyTrackTable()
	m.renderTabContents()
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	return tabs + "\n" + padLines(m.renderRunSummary(), m.width)
}

func (m *Model) renderRunSummary() string {
	if len(m.runs) == 0 {
		return headerStyle.Render("No runs stored.")
	}
	run := m.runs[m.runIndex]
	system := m.system
	if system == "" {
		system = "all"
	}
	summary := fmt.Sprintf("Run %d (%d of %d)  %s  root=%s  system=%s",
		run.RunID, m.runIndex+1, len(m.runs), run.CreatedAt.Local().Format("2006-01-02 15:04"), run.Root, system)
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderFooter() string {
	help := headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Runs: [ older / ] newer  System: /  Quit: q")
	if m.filterMode {
		return headerStyle.Render("enter: apply  esc: cancel  empty: all systems") + "\n" + m.filterInput.View()
	}
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func (m *Model) renderBody(height int) string {
	if len(m.runs) == 0 {
		return fitLines("No runs stored. Run: vocalrange analyze <root>", m.width, height)
	}
	if m.activeTab == tabTracks {
		if len(m.trackTable.Rows()) == 0 {
			return fitLines("No tracks match.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.trackTable.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 || len(m.runs) == 0 {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	tracks := m.filteredTracks()
	m.viewports[tabSummary].SetContent(renderSummary(m.report, m.system, width))
	m.viewports[tabDistribution].SetContent(renderDistribution(tracks, width))
}

func (m *Model) filteredTracks() []model.TrackRange {
	if m.system == "" {
		return m.report.Analysis.Tracks
	}
	out := make([]model.TrackRange, 0, len(m.report.Analysis.Tracks))
	for _, tr := range m.report.Analysis.Tracks {
		if tr.System == m.system {
			out = append(out, tr)
		}
	}
	return out
}

func renderSummary(report stats.Report, system string, width int) string {
	a := report.Analysis
	cards := []string{
		metricCard("Processed", strconv.Itoa(a.Processed())),
		metricCard("Skipped", strconv.Itoa(len(a.Skipped))),
		metricCard("Systems", strconv.Itoa(len(a.Systems))),
	}
	var widest *model.TrackRange
	if len(report.Widest) > 0 {
		widest = &report.Widest[0]
		cards = append(cards, metricCard("Widest", fmt.Sprintf("%d st", widest.RangeSemitones)))
	}
	var out strings.Builder
	if width < 80 {
		out.WriteString(strings.Join(cards, "\n"))
	} else {
		out.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	out.WriteString("\n\n")

	systems := a.Systems
	if system != "" {
		systems = nil
		for _, s := range a.Systems {
			if s.System == system {
				systems = append(systems, s)
			}
		}
	}
	var buf bytes.Buffer
	if err := stats.RenderSystems(&buf, systems); err != nil {
		return fmt.Sprintf("Failed to render systems: %v", err)
	}
	if widest != nil {
		fmt.Fprintf(&buf, "Widest: %s (%s to %s)\n\n", widest.File, pitch.NoteName(widest.MinNote), pitch.NoteName(widest.MaxNote))
	}
	if err := stats.RenderSkipped(&buf, a.Skipped); err != nil {
		return fmt.Sprintf("Failed to render skipped files: %v", err)
	}
	out.WriteString(buf.String())
	return strings.TrimRight(out.String(), "\n")
}

func renderDistribution(tracks []model.TrackRange, width int) string {
	if len(tracks) == 0 {
		return "No tracks to plot."
	}
	series, labels := stats.Histogram(tracks, 0)
	var buf bytes.Buffer
	err := stats.Plot(&buf, stats.Chart{
		Title:   "Tracks per range (semitones)",
		Series:  series,
		XLabels: labels,
		Width:   stats.PlotWidthFor(width),
		Height:  plotHeight,
		Color:   true,
	})
	if err != nil {
		return fmt.Sprintf("Failed to render distribution: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func trackColumns(width int) []table.Column {
	fixed := 8 + 8 + 6
	systemWidth := 14
	fileWidth := maxInt(12, width-fixed-systemWidth-5)
	return []table.Column{
		{Title: "File", Width: fileWidth},
		{Title: "System", Width: systemWidth},
		{Title: "Min", Width: 8},
		{Title: "Max", Width: 8},
		{Title: "Range", Width: 6},
	}
}

func buildTrackRows(tracks []model.TrackRange) []table.Row {
	rows := make([]table.Row, 0, len(tracks))
	for _, tr := range tracks {
		rows = append(rows, table.Row{
			tr.File,
			tr.System,
			pitch.NoteName(tr.MinNote),
			pitch.NoteName(tr.MaxNote),
			strconv.Itoa(tr.RangeSemitones),
		})
	}
	return rows
}

func (m *Model) applyTrackTable() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	rows := buildTrackRows(m.filteredTracks())
	m.trackTable.SetRows(nil)
	m.trackTable.SetColumns(trackColumns(width))
	m.trackTable.SetRows(rows)
	m.trackTable.GotoTop()
	m.trackLayout.rowCount = len(rows)
	_, bodyHeight, _ := m.layoutHeights()
	m.trackLayout.width = 0
	m.setTrackTableSize(width, bodyHeight)
}

func (m *Model) setTrackTableSize(width, height int) {
	viewportHeight := maxInt(1, height-1)
	if m.trackLayout.width == width && m.trackLayout.height == viewportHeight {
		return
	}
	m.trackLayout.width = width
	m.trackLayout.height = viewportHeight
	m.trackTable.SetColumns(trackColumns(width))
	m.trackTable.SetWidth(width)
	m.trackTable.SetHeight(viewportHeight)
}

func trackTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterInput.Blur()
		m.updateLayout()
		return m, nil
	case tea.KeyEnter:
		m.system = corpus.NormalizeLabel(strings.TrimSpace(m.filterInput.Value()))
		m.filterMode = false
		m.filterInput.Blur()
		m.updateLayout()
		m.applyTrackTable()
		m.renderTabContents()
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

// truncateLine cuts s to width terminal cells, ending in "...".
func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
