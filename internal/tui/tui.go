package tui

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/wheelibin/striplight/internal/constants"
	"github.com/wheelibin/striplight/internal/models"
)

var baseStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240"))

var statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

// ReportMsg carries one report from the daemon into the program.
type ReportMsg models.Report

// ConnectionMsg reports the state of the stream connection.
type ConnectionMsg struct {
	Connected bool
	URL       string
}

// Monitor runs the terminal UI and accepts reports from any goroutine.
type Monitor struct {
	teaProgram *tea.Program
}

func NewMonitor(endpoints int) Monitor {
	return Monitor{tea.NewProgram(NewModel(endpoints), tea.WithAltScreen())}
}

// Run blocks until the user quits.
func (t Monitor) Run() error {
	_, err := t.teaProgram.Run()
	return err
}

func (t Monitor) Report(r models.Report) {
	t.teaProgram.Send(ReportMsg(r))
}

func (t Monitor) Connection(connected bool, url string) {
	t.teaProgram.Send(ConnectionMsg{Connected: connected, URL: url})
}

type endpointRow struct {
	on            bool
	state         string
	level         uint16
	output        uint8
	remainingTime uint16
	effect        string
}

type Model struct {
	table     table.Model
	rows      map[models.Endpoint]*endpointRow
	aux       string
	connected bool
	url       string
	last      string
}

func NewModel(endpoints int) Model {
	columns := []table.Column{
		{Title: "Endpoint", Width: 8},
		{Title: "On", Width: 5},
		{Title: "State", Width: 12},
		{Title: "Level", Width: 6},
		{Title: "Output", Width: 6},
		{Title: "Remaining", Width: 9},
		{Title: "Effect", Width: 16},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(endpoints+1),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	m := Model{table: t, rows: map[models.Endpoint]*endpointRow{}, aux: "none"}
	for i := 0; i < endpoints; i++ {
		m.rows[models.Endpoint(i+1)] = &endpointRow{state: models.StateOff.String(), effect: "none"}
	}
	m.table.SetRows(m.tableRows())
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}

	case ConnectionMsg:
		m.connected = msg.Connected
		m.url = msg.URL
		return m, nil

	case ReportMsg:
		m.apply(models.Report(msg))
		m.table.SetRows(m.tableRows())
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(message)
	return m, cmd
}

func (m Model) View() string {
	status := lo.Ternary(m.connected, "connected to "+m.url, "disconnected")
	return baseStyle.Render(m.table.View()) + "\n" +
		statusStyle.Render(fmt.Sprintf("aux: %s | %s | %s", m.aux, status, m.last)) + "\n"
}

// Rows returns the table content, one row per endpoint.
func (m Model) Rows() []table.Row {
	return m.table.Rows()
}

func (m *Model) apply(r models.Report) {
	m.last = r.Kind

	switch {
	case r.Attribute != nil:
		row := m.row(r.Attribute.Endpoint)
		// reports arrive as JSON, which carries the attribute name only
		switch r.Attribute.Name {
		case models.AttrOnOff.String():
			row.on = r.Attribute.Value != 0
		case models.AttrCurrentLevel.String():
			row.level = r.Attribute.Value
		case models.AttrRemainingTime.String():
			row.remainingTime = r.Attribute.Value
		}

	case r.State != nil:
		m.row(r.State.Endpoint).state = r.State.State

	case r.Output != nil:
		if r.Output.Channel == constants.AuxChannel {
			return
		}
		m.row(r.Output.Channel.Endpoint()).output = r.Output.Level

	case r.Effect != nil:
		name := lo.Ternary(r.Effect.Active, r.Effect.Effect, "none")
		if r.Effect.Channel == constants.AuxChannel {
			m.aux = name
			return
		}
		m.row(r.Effect.Channel.Endpoint()).effect = name
	}
}

func (m *Model) row(ep models.Endpoint) *endpointRow {
	row, ok := m.rows[ep]
	if !ok {
		row = &endpointRow{state: models.StateOff.String(), effect: "none"}
		m.rows[ep] = row
	}
	return row
}

func (m Model) tableRows() []table.Row {
	endpoints := lo.Keys(m.rows)
	sort.Slice(endpoints, func(i, j int) bool { return endpoints[i] < endpoints[j] })

	return lo.Map(endpoints, func(ep models.Endpoint, _ int) table.Row {
		row := m.rows[ep]
		return table.Row{
			fmt.Sprint(ep),
			fmt.Sprint(row.on),
			row.state,
			fmt.Sprint(row.level),
			fmt.Sprint(row.output),
			fmt.Sprintf("%.1fs", float64(row.remainingTime)/10),
			row.effect,
		}
	})
}
