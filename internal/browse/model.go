// Package browse provides the Bubble Tea browser for classified errors.
package browse

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

	"github.com/elisaF/typing-classification/internal/model"
	"github.com/elisaF/typing-classification/internal/stats"
	"github.com/elisaF/typing-classification/internal/store"
)

const (
	tabOverview = iota
	tabErrors
	tabDetail
)

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
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	markStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true).Underline(true)
	labelStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the Bubble Tea error browser.
type Model struct {
	store *store.Store
	runID int64
	shape model.Shape

	report stats.Report
	rows   []model.FeatureRow
	errMsg string

	tabs      []string
	activeTab int
	viewports []viewport.Model
	errTable  table.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

// NewModel constructs a browser over one features run. A zero runID selects the latest run.
func NewModel(st *store.Store, runID int64, shape model.Shape) *Model {
	m := &Model{
		store: st,
		runID: runID,
		shape: shape,
		tabs:  []string{"Overview", "Errors", "Detail"},
	}
	m.initInputs()
	m.errTable = table.New(
		table.WithColumns(errorColumns()),
		table.WithStyles(errTableStyles()),
		table.WithFocused(false),
	)
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	m.refresh()
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
		if msg.Type == tea.KeyCtrlC || (!m.filterMode && msg.String() == "q") {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "/":
			return m.startFilter()
		case "enter":
			if m.activeTab == tabErrors && len(m.rows) > 0 {
				m.renderDetail()
				m.setTab(tabDetail)
			}
			return m, nil
		case "g", "home":
			if m.activeTab == tabErrors {
				m.errTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabErrors {
				m.errTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabErrors {
				var cmd tea.Cmd
				m.errTable, cmd = m.errTable.Update(msg)
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

// Selected returns the feature row under the table cursor.
func (m *Model) Selected() (model.FeatureRow, bool) {
	idx := m.errTable.Cursor()
	if idx < 0 || idx >= len(m.rows) {
		return model.FeatureRow{}, false
	}
	return m.rows[idx], true
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Run: "),
		newFilterInput("Shape: "),
	}
	m.filterInputs[1].Placeholder = "any"
	m.setInputsFromState()
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromState() {
	if m.runID > 0 {
		m.filterInputs[0].SetValue(strconv.FormatInt(m.runID, 10))
	} else {
		m.filterInputs[0].SetValue("")
	}
	m.filterInputs[1].SetValue(string(m.shape))
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(1, lipgloss.Height(activeNavStyle.Render("X")))
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.errTable.SetWidth(m.width)
	m.errTable.SetHeight(max(1, bodyHeight-1))
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = max(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	if next == tabDetail {
		m.renderDetail()
	}
	m.setTab(next)
}

func (m *Model) setTab(tab int) {
	m.activeTab = tab
	if m.activeTab == tabErrors {
		m.errTable.Focus()
	} else {
		m.errTable.Blur()
	}
}

func (m *Model) refresh() {
	ctx := context.Background()
	runID := m.runID
	if runID <= 0 {
		latest, err := m.store.LatestRun(ctx, model.RunFeatures)
		if err != nil {
			m.fail(err)
			return
		}
		runID = latest
	}
	if runID == 0 {
		m.errMsg = ""
		m.report = stats.Report{}
		m.rows = nil
		m.errTable.SetRows(nil)
		m.renderTabContents()
		return
	}
	report, err := stats.BuildReport(ctx, m.store, model.ReportConfig{Kind: model.RunFeatures, RunID: runID})
	if err != nil {
		m.fail(err)
		return
	}
	rows, err := m.store.ListFeatures(ctx, runID, m.shape)
	if err != nil {
		m.fail(err)
		return
	}
	m.errMsg = ""
	m.report = report
	m.rows = rows
	m.errTable.SetRows(errorRows(rows))
	m.errTable.GotoTop()
	m.renderTabContents()
}

func (m *Model) fail(err error) {
	m.errMsg = err.Error()
	for i := range m.viewports {
		m.viewports[i].SetContent("Failed to load errors.")
	}
}

func (m *Model) renderTabContents() {
	if m.errMsg != "" {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report, width))
	m.renderDetail()
}

func (m *Model) renderDetail() {
	row, ok := m.Selected()
	if !ok {
		m.viewports[tabDetail].SetContent("No error selected.")
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabDetail].SetContent(renderDetail(row, width))
}

func renderOverview(report stats.Report, width int) string {
	if len(report.Runs) == 0 {
		return "No features run found."
	}
	var buf bytes.Buffer
	if err := stats.Render(&buf, report, stats.RenderOptions{Top: 10, Width: width, ForceColor: true}); err != nil {
		return fmt.Sprintf("Failed to render report: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderDetail(row model.FeatureRow, width int) string {
	field := func(label, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-18s", label)) + value
	}
	lines := []string{
		field("ID", row.ID),
		field("Typed", markAt(row.Typed, row.ErrorStartTyped)),
		field("Intended", markAt(row.Intended, row.ErrorStartIntended)),
		field("Position", strconv.Itoa(row.Position)),
		field("Shape", string(row.Shape)),
		field("Misaligned", fmt.Sprintf("typed %d, intended %d", row.LengthMisalignedTyped, row.LengthMisalignedIntended)),
		field("Edit distance", strconv.Itoa(row.EditDistance)),
		field("Length diff", strconv.Itoa(row.DiffLength)),
		field("IKI", row.IKI.String()),
		field("Key distance", model.FormatNumber(row.KeyboardSame)),
		field("P(typed char)", fmt.Sprintf("%.6g", row.NgramTyped.Unigram)),
		field("P(intended char)", fmt.Sprintf("%.6g", row.NgramIntended.Unigram)),
	}
	lines = append(lines, "", labelStyle.Render("Context"))
	sentence := []rune(row.ErrorContext)
	errorIndex := row.Position + row.ErrorStartTyped
	if errorIndex >= len(sentence) {
		errorIndex = -1
	}
	lines = append(lines, wrapStyledRunes(contextRunes(sentence, errorIndex), width))
	if row.ContextExhausted {
		lines = append(lines, errorStyle.Render("Context ran out while extracting features."))
	}
	return strings.Join(lines, "\n")
}

func markAt(word string, idx int) string {
	runes := []rune(word)
	if idx < 0 || idx >= len(runes) {
		return word
	}
	return string(runes[:idx]) + markStyle.Render(string(runes[idx])) + string(runes[idx+1:])
}

func errorColumns() []table.Column {
	return []table.Column{
		{Title: "ID", Width: 14},
		{Title: "Typed", Width: 14},
		{Title: "Intended", Width: 14},
		{Title: "Shape", Width: 24},
		{Title: "Edit", Width: 4},
		{Title: "IKI", Width: 8},
	}
}

func errorRows(rows []model.FeatureRow) []table.Row {
	out := make([]table.Row, 0, len(rows))
	for _, fr := range rows {
		out = append(out, table.Row{
			fr.ID,
			fr.Typed,
			fr.Intended,
			string(fr.Shape),
			strconv.Itoa(fr.EditDistance),
			fr.IKI.String(),
		})
	}
	return out
}

func errTableStyles() table.Styles {
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
	filters := padLines(m.renderFilterSummary(), m.width)
	return tabs + "\n" + filters
}

func (m *Model) renderFilterSummary() string {
	run := "latest"
	if m.runID > 0 {
		run = strconv.FormatInt(m.runID, 10)
	}
	shape := "any"
	if m.shape != "" {
		shape = string(m.shape)
	}
	summary := fmt.Sprintf("Filter: run=%s  shape=%s  rows=%d", run, shape, len(m.rows))
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	help := "Nav: left/right  Scroll: up/down/pgup/pgdn  Filter: /  Quit: q"
	if m.activeTab == tabErrors {
		help = "Nav: left/right  Select: up/down  Details: enter  Filter: /  Quit: q"
	}
	if m.errMsg != "" {
		return headerStyle.Render(help) + "\n" + errorStyle.Render(m.errMsg)
	}
	return headerStyle.Render(help)
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		lines := []string{"Filter (enter to apply, esc to cancel)"}
		for _, input := range m.filterInputs {
			lines = append(lines, input.View())
		}
		if m.filterError != "" {
			lines = append(lines, errorStyle.Render(m.filterError))
		}
		return fitLines(strings.Join(lines, "\n"), m.width, height)
	}
	if m.activeTab == tabErrors {
		if len(m.rows) == 0 {
			return fitLines("No classified errors found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.errTable.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromState()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refresh()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	runInput := strings.TrimSpace(m.filterInputs[0].Value())
	var runID int64
	if runInput != "" && runInput != "latest" {
		parsed, err := strconv.ParseInt(runInput, 10, 64)
		if err != nil || parsed < 0 {
			return fmt.Errorf("invalid run id (use a positive integer)")
		}
		runID = parsed
	}
	shape, err := ParseShape(m.filterInputs[1].Value())
	if err != nil {
		return err
	}
	m.runID = runID
	m.shape = shape
	return nil
}

// ParseShape validates a shape name; empty and "any" select every shape.
func ParseShape(input string) (model.Shape, error) {
	name := strings.ToLower(strings.TrimSpace(input))
	if name == "" || name == "any" {
		return "", nil
	}
	for _, shape := range model.Shapes {
		if string(shape) == name {
			return shape, nil
		}
	}
	return "", fmt.Errorf("unknown shape %q", input)
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

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
