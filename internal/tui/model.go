// Package tui is a terminal scanning station driving one workflow.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/anmicius0/unit-batch-station/internal/batch"
	"github.com/anmicius0/unit-batch-station/internal/notify"
	"github.com/anmicius0/unit-batch-station/internal/scan"
	"github.com/anmicius0/unit-batch-station/internal/service"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// maxLog is how many presentations stay on screen.
const maxLog = 6

var fieldLabels = map[string]string{
	service.FieldDevice:   "Irradiator",
	service.FieldLot:      "Lot number",
	service.FieldShipment: "Shipment",
	scan.FieldUnitNumber:  "Unit number",
	scan.FieldCheckDigit:  "Check digit",
	scan.FieldProductCode: "Product code",
}

var titles = map[service.Kind]string{
	service.KindStartIrradiation:     "Start irradiation",
	service.KindCloseIrradiation:     "Close irradiation",
	service.KindShipmentVerification: "Shipment second verification",
}

type resultMsg struct {
	outcome service.Outcome
	view    service.View
	err     error
}

// Model is the bubbletea model of the station.
type Model struct {
	ctx      context.Context
	workflow service.Workflow
	input    textinput.Model
	view     service.View
	log      []notify.Presentation
	// field receives the next entered value; lastUnit is resent with a check digit.
	field    string
	lastUnit string
	cursor   int
	busy     bool
	redirect string
	quitting bool
	width    int
	height   int
}

// New returns a station model for w.
func New(ctx context.Context, w service.Workflow) Model {
	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 64
	input.Focus()

	m := Model{ctx: ctx, workflow: w, input: input, view: w.View()}
	m.setField(m.view.Prompt)
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-20, 10)
		return m, nil

	case resultMsg:
		return m.apply(msg), nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		if m.view.Confirmation != nil {
			return m.answer(msg)
		}
		if next, cmd, ok := m.key(msg); ok {
			return next, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// answer handles keys while a confirmation is open.
func (m Model) answer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	token := m.view.Confirmation.Token
	switch msg.String() {
	case "y", "enter":
		return m.run(func(ctx context.Context, w service.Workflow) (service.Outcome, error) {
			return w.Resolve(ctx, token, true)
		})
	case "n", "esc":
		return m.run(func(ctx context.Context, w service.Workflow) (service.Outcome, error) {
			return w.Resolve(ctx, token, false)
		})
	}
	return m, nil
}

// key handles station shortcuts. ok is false when the key belongs to the text input.
func (m Model) key(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch s := msg.String(); s {
	case "enter":
		next, cmd := m.submitInput()
		return next, cmd, true
	case "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil, true
	case "down":
		if m.cursor < len(m.view.Items)-1 {
			m.cursor++
		}
		return m, nil, true
	case " ", "space":
		if m.input.Value() != "" || len(m.view.Items) == 0 {
			return m, nil, false
		}
		key := m.view.Items[m.cursor].Key()
		next, cmd := m.run(func(_ context.Context, w service.Workflow) (service.Outcome, error) {
			return w.Toggle(key)
		})
		return next, cmd, true
	case "ctrl+a":
		next, cmd := m.run(func(_ context.Context, w service.Workflow) (service.Outcome, error) {
			return w.SelectAll()
		})
		return next, cmd, true
	case "ctrl+d":
		next, cmd := m.run(func(_ context.Context, w service.Workflow) (service.Outcome, error) {
			return w.RemoveSelected()
		})
		return next, cmd, true
	case "ctrl+s":
		next, cmd := m.run(func(ctx context.Context, w service.Workflow) (service.Outcome, error) {
			return w.Submit(ctx)
		})
		return next, cmd, true
	case "esc":
		next, cmd := m.run(func(ctx context.Context, w service.Workflow) (service.Outcome, error) {
			return w.Cancel(ctx)
		})
		return next, cmd, true
	default:
		if n := choiceIndex(s); n >= 0 && n < len(m.view.Choices) && m.input.Value() == "" {
			code := m.view.Choices[n].ProductCode
			next, cmd := m.run(func(ctx context.Context, w service.Workflow) (service.Outcome, error) {
				return w.Select(ctx, code)
			})
			return next, cmd, true
		}
	}
	return m, nil, false
}

func (m Model) submitInput() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	m.input.Reset()

	in := service.ScanInput{Field: m.field, Value: value}
	switch m.field {
	case scan.FieldCheckDigit:
		in = service.ScanInput{Field: scan.FieldUnitNumber, Value: m.lastUnit, CheckDigit: value}
	case scan.FieldUnitNumber:
		m.lastUnit = value
	}
	return m.run(func(ctx context.Context, w service.Workflow) (service.Outcome, error) {
		return w.Input(ctx, in)
	})
}

// run calls the workflow off the update loop. Keys are ignored until the result arrives.
func (m Model) run(fn func(ctx context.Context, w service.Workflow) (service.Outcome, error)) (Model, tea.Cmd) {
	m.busy = true
	ctx, w := m.ctx, m.workflow
	return m, func() tea.Msg {
		out, err := fn(ctx, w)
		return resultMsg{outcome: out, view: w.View(), err: err}
	}
}

func (m Model) apply(msg resultMsg) Model {
	m.busy = false
	m.view = msg.view
	if msg.err != nil {
		m.push(notify.Error(msg.err.Error()))
	}
	m.push(msg.outcome.Presentations...)
	if msg.outcome.Redirect != "" {
		m.redirect = msg.outcome.Redirect
	}

	field := msg.outcome.Focus
	if field == "" {
		field = m.view.Prompt
	}
	m.setField(field)

	if m.cursor >= len(m.view.Items) {
		m.cursor = max(len(m.view.Items)-1, 0)
	}
	return m
}

func (m *Model) push(ps ...notify.Presentation) {
	m.log = append(m.log, ps...)
	if len(m.log) > maxLog {
		m.log = m.log[len(m.log)-maxLog:]
	}
}

func (m *Model) setField(field string) {
	if field == "" {
		field = scan.FieldUnitNumber
	}
	m.field = field
	m.input.Placeholder = fieldLabels[field]
}

// choiceIndex maps "1".."9" to a zero based index.
func choiceIndex(key string) int {
	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		return int(key[0] - '1')
	}
	return -1
}

func (m Model) View() string {
	if m.quitting {
		return "Station closed.\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(titles[m.view.Kind]))
	b.WriteString("\n")
	b.WriteString(metaStyle.Render(m.header()))
	b.WriteString("\n\n")

	b.WriteString(listStyle.Render(m.items()))
	b.WriteString("\n")

	if len(m.view.Choices) > 0 {
		b.WriteString(labelStyle.Render("Select a product:"))
		b.WriteString("\n")
		for i, c := range m.view.Choices {
			fmt.Fprintf(&b, "  %d) %s %s [%s]\n", i+1, c.ProductCode, c.ProductDescription, c.Status)
		}
	}

	if c := m.view.Confirmation; c != nil {
		b.WriteString(modalStyle.Render(confirmation(c)))
		b.WriteString("\n")
	} else {
		b.WriteString(labelStyle.Render(fieldLabels[m.field]))
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	for _, p := range m.log {
		b.WriteString(severityStyle(p.Severity).Render(presentation(p)))
		b.WriteString("\n")
	}
	if m.busy {
		b.WriteString(metaStyle.Render("Working..."))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("enter: input • ↑/↓: move • space: toggle • ctrl+a: select all • ctrl+d: remove • ctrl+s: submit • esc: cancel • ctrl+c: quit"))
	return b.String()
}

func (m Model) header() string {
	parts := []string{"Phase: " + string(m.view.Phase)}
	switch m.view.Kind {
	case service.KindShipmentVerification:
		if m.view.ShipmentID != 0 {
			parts = append(parts, fmt.Sprintf("Shipment: %d", m.view.ShipmentID), "Order: "+m.view.OrderNumber,
				fmt.Sprintf("Verified: %d (%.0f%%)", m.view.Verified, m.view.Progress*100))
		}
	default:
		if m.view.DeviceID != "" {
			parts = append(parts, "Irradiator: "+m.view.DeviceID)
		}
		if m.view.LotNumber != "" {
			parts = append(parts, "Lot: "+m.view.LotNumber)
		}
		if m.view.BatchID != 0 {
			parts = append(parts, fmt.Sprintf("Batch: %d", m.view.BatchID))
		}
	}
	parts = append(parts, fmt.Sprintf("Products: %d", m.view.Count))
	if m.view.SubmitEnabled {
		parts = append(parts, "Ready to submit")
	}
	return strings.Join(parts, " | ")
}

func (m Model) items() string {
	if len(m.view.Items) == 0 {
		return metaStyle.Render("No products scanned")
	}
	selected := make(map[batch.Key]bool, len(m.view.Selected))
	for _, k := range m.view.Selected {
		selected[k] = true
	}

	rows := make([]string, 0, len(m.view.Items))
	for i, item := range m.view.Items {
		mark := "[ ]"
		if selected[item.Key()] {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %s %s %s", mark, item.UnitNumber, item.ProductCode, strings.Join(item.Statuses, ", "))
		style := itemStyle
		switch {
		case i == m.cursor:
			style = cursorItemStyle
		case item.Disabled:
			style = disabledItemStyle
		}
		rows = append(rows, style.Render(line))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func confirmation(c *service.Confirmation) string {
	lines := []string{labelStyle.Render(c.Title), c.Message}
	lines = append(lines, c.Details...)
	if c.Acknowledgment {
		lines = append(lines, "", "enter: OK")
	} else {
		lines = append(lines, "", "y: confirm • n: cancel")
	}
	return strings.Join(lines, "\n")
}

func presentation(p notify.Presentation) string {
	text := p.Message
	if p.Title != "" {
		text = p.Title + ": " + text
	}
	if len(p.Details) > 0 {
		text += " (" + strings.Join(p.Details, "; ") + ")"
	}
	return text
}
