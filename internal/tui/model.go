// Package tui is the terminal front end of the wizard: one bubbletea model
// driving a wizard.Controller.
package tui

import (
	"context"
	"fmt"
	"strings"

	"creator-match/internal/models"
	notificationsink "creator-match/internal/services/notification-sink"
	"creator-match/internal/wizard"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxToasts = 3

type analysisDoneMsg struct{ err error }

type emailOutcomeMsg struct{ outcome wizard.EmailOutcome }

type formField struct {
	field models.Field
	label string
	input textinput.Model
}

// Model renders the controller's state and forwards key presses to it. All
// form data lives in the controller; the inputs only mirror it.
type Model struct {
	ctx    context.Context
	ctrl   *wizard.Controller
	outbox *notificationsink.Outbox

	business []formField
	creator  []formField
	email    textinput.Model
	focus    int

	step      wizard.Step
	analyzing bool
	toasts    []models.Notification
	quitting  bool
}

// New builds the model. outbox must be the controller's notification sink
// (or part of its fanout) so toasts can be shown.
func New(ctx context.Context, ctrl *wizard.Controller, outbox *notificationsink.Outbox) Model {
	cfg := ctrl.Config()

	websiteHint := "https://yourbrand.com (optional)"
	if cfg.RequireWebsite {
		websiteHint = "https://yourbrand.com"
	}
	business := []formField{
		newField(models.FieldWebsite, "Website", websiteHint),
		newField(models.FieldInstagram, "Instagram", "@yourbrand"),
		newField(models.FieldYouTube, "YouTube", "channel name"),
		newField(models.FieldTikTok, "TikTok", "@yourbrand"),
	}

	creator := []formField{
		newField(models.FieldInstagram, "Instagram", "@creator"),
		newField(models.FieldYouTube, "YouTube", "channel name"),
		newField(models.FieldTikTok, "TikTok", "@creator"),
	}

	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.CharLimit = 320

	m := Model{
		ctx:      ctx,
		ctrl:     ctrl,
		outbox:   outbox,
		business: business,
		creator:  creator,
		email:    email,
	}
	m.syncFromState()
	return m
}

func newField(field models.Field, label, placeholder string) formField {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 512
	return formField{field: field, label: label, input: ti}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case analysisDoneMsg:
		m.analyzing = false
		m.collectToasts()
		m.syncFromState()
		return m, textinput.Blink

	case emailOutcomeMsg:
		m.collectToasts()
		m.syncFromState()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyTab, tea.KeyDown:
			m.moveFocus(1)
			return m, textinput.Blink
		case tea.KeyShiftTab, tea.KeyUp:
			m.moveFocus(-1)
			return m, textinput.Blink
		case tea.KeyEsc:
			return m.back()
		case tea.KeyCtrlR:
			return m.reset()
		case tea.KeyEnter:
			return m.enter()
		}
	}

	return m.updateFocused(msg)
}

// ==========================
// Actions
// ==========================

func (m Model) enter() (tea.Model, tea.Cmd) {
	if m.analyzing {
		return m, nil
	}
	fields := m.activeFields()
	if m.step != wizard.StepResults && m.focus < len(fields)-1 {
		m.moveFocus(1)
		return m, textinput.Blink
	}

	switch m.step {
	case wizard.StepBusinessInput:
		m.pushFields(m.business, m.ctrl.SetBusinessField)
		_ = m.ctrl.SubmitBusiness(m.ctx)
		m.collectToasts()
		m.syncFromState()
		return m, textinput.Blink

	case wizard.StepCreatorInput:
		m.pushFields(m.creator, m.ctrl.SetCreatorField)
		m.analyzing = true
		return m, m.analyze()

	case wizard.StepResults:
		if !m.ctrl.Config().EnableEmailCapture {
			return m, nil
		}
		outcome, err := m.ctrl.SubmitEmail(m.ctx, strings.TrimSpace(m.email.Value()))
		m.collectToasts()
		m.syncFromState()
		if err != nil {
			return m, nil
		}
		return m, waitForOutcome(outcome)
	}
	return m, nil
}

func (m Model) back() (tea.Model, tea.Cmd) {
	if m.step != wizard.StepCreatorInput || m.analyzing {
		return m, nil
	}
	m.pushFields(m.creator, m.ctrl.SetCreatorField)
	if err := m.ctrl.Back(); err == nil {
		m.syncFromState()
	}
	return m, textinput.Blink
}

func (m Model) reset() (tea.Model, tea.Cmd) {
	if m.step != wizard.StepResults {
		return m, nil
	}
	if err := m.ctrl.Reset(); err == nil {
		m.toasts = nil
		m.syncFromState()
	}
	return m, textinput.Blink
}

func (m Model) analyze() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return analysisDoneMsg{err: ctrl.SubmitCreator(ctx)}
	}
}

func waitForOutcome(ch <-chan wizard.EmailOutcome) tea.Cmd {
	return func() tea.Msg {
		return emailOutcomeMsg{outcome: <-ch}
	}
}

// ==========================
// State plumbing
// ==========================

func (m *Model) pushFields(fields []formField, set func(models.Field, string) error) {
	for _, f := range fields {
		_ = set(f.field, f.input.Value())
	}
}

// syncFromState copies the controller state into the inputs and resets focus
// when the step changed.
func (m *Model) syncFromState() {
	s := m.ctrl.Snapshot()
	changed := s.Step != m.step
	m.step = s.Step

	for i := range m.business {
		m.business[i].input.SetValue(s.Business.Get(m.business[i].field))
	}
	for i := range m.creator {
		m.creator[i].input.SetValue(s.Creator.Get(m.creator[i].field))
	}
	if s.Email == nil {
		m.email.SetValue("")
	} else if s.Email.Address != "" && m.email.Value() == "" {
		m.email.SetValue(s.Email.Address)
	}

	if changed {
		m.focus = 0
	}
	m.applyFocus()
}

func (m *Model) collectToasts() {
	if m.outbox == nil {
		return
	}
	m.toasts = append(m.toasts, m.outbox.Drain()...)
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
}

func (m *Model) activeFields() []formField {
	switch m.step {
	case wizard.StepBusinessInput:
		return m.business
	case wizard.StepCreatorInput:
		return m.creator
	}
	return nil
}

func (m *Model) moveFocus(delta int) {
	n := len(m.activeFields())
	if n == 0 {
		return
	}
	m.focus = (m.focus + delta + n) % n
	m.applyFocus()
}

func (m *Model) applyFocus() {
	for _, group := range [][]formField{m.business, m.creator} {
		for i := range group {
			group[i].input.Blur()
		}
	}
	m.email.Blur()

	switch m.step {
	case wizard.StepResults:
		m.email.Focus()
	default:
		fields := m.activeFields()
		if m.focus < len(fields) {
			fields[m.focus].input.Focus()
		}
	}
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.step == wizard.StepResults {
		m.email, cmd = m.email.Update(msg)
		return m, cmd
	}
	fields := m.activeFields()
	if m.focus < len(fields) {
		fields[m.focus].input, cmd = fields[m.focus].input.Update(msg)
	}
	return m, cmd
}

// ==========================
// View
// ==========================

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Creator Match"))
	b.WriteString("\n")
	b.WriteString(m.progressView())
	b.WriteString("\n\n")

	switch m.step {
	case wizard.StepBusinessInput:
		b.WriteString(subtitleStyle.Render("Tell us about your business"))
		b.WriteString("\n\n")
		b.WriteString(m.formView(m.business))
		b.WriteString(helpStyle.Render("tab: next field • enter: continue • ctrl+c: quit"))
	case wizard.StepCreatorInput:
		b.WriteString(subtitleStyle.Render("Which creator are you considering?"))
		b.WriteString("\n\n")
		b.WriteString(m.formView(m.creator))
		if m.analyzing {
			b.WriteString("\nAnalyzing match...\n")
		}
		b.WriteString(helpStyle.Render("tab: next field • enter: analyze • esc: back • ctrl+c: quit"))
	case wizard.StepResults:
		b.WriteString(m.resultsView())
	}

	if len(m.toasts) > 0 {
		b.WriteString("\n\n")
		for _, t := range m.toasts {
			style := toastStyles[t.Kind]
			b.WriteString(style.Render(fmt.Sprintf("%s: %s", t.Title, t.Message)))
			b.WriteString("\n")
		}
	}

	return panelStyle.Render(b.String())
}

func (m Model) progressView() string {
	labels := []struct {
		step  wizard.Step
		label string
	}{
		{wizard.StepBusinessInput, "1 Business"},
		{wizard.StepCreatorInput, "2 Creator"},
		{wizard.StepResults, "3 Results"},
	}
	current := m.step.Progress()
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		switch p := l.step.Progress(); {
		case p == current:
			parts = append(parts, stepActive.Render(l.label))
		case p < current:
			parts = append(parts, stepDone.Render(l.label))
		default:
			parts = append(parts, stepTodo.Render(l.label))
		}
	}
	return strings.Join(parts, stepTodo.Render(" › "))
}

func (m Model) formView(fields []formField) string {
	var b strings.Builder
	for i, f := range fields {
		label := labelStyle
		if i == m.focus {
			label = focusStyle
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, label.Render(f.label), f.input.View()))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) resultsView() string {
	s := m.ctrl.Snapshot()
	if s.Result == nil {
		return ""
	}
	rec := s.Result.Recommendation
	color := bandColor(rec)

	var b strings.Builder
	b.WriteString(scoreStyle.Foreground(color).Render(fmt.Sprintf("%d%%", s.Result.Compatibility)))
	b.WriteString(" ")
	b.WriteString(titleStyle.Render(rec.Headline()))
	b.WriteString("\n")
	b.WriteString(rec.Summary())
	b.WriteString("\n\n")

	bullet := "✓"
	if !rec.Positive() {
		bullet = "!"
	}
	for _, reason := range s.Result.Reasons {
		b.WriteString(fmt.Sprintf("  %s %s\n", bullet, reason))
	}
	b.WriteString("\n")
	b.WriteString(badgeStyle.BorderForeground(color).Render(rec.Badge()))
	b.WriteString("\n")

	if s.Email != nil {
		b.WriteString("\n")
		switch s.Email.Status {
		case models.EmailPending:
			b.WriteString("Sending results to " + s.Email.Address + "...\n")
		case models.EmailSent:
			b.WriteString("Results sent to " + s.Email.Address + ".\n")
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, focusStyle.Render("Email"), m.email.View()))
			b.WriteString("\n")
		default:
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, focusStyle.Render("Email"), m.email.View()))
			b.WriteString("\n")
		}
	}
	b.WriteString(helpStyle.Render("enter: email results • ctrl+r: start over • ctrl+c: quit"))
	return b.String()
}

// Run starts the program on the terminal and waits for the user to quit.
func Run(ctx context.Context, ctrl *wizard.Controller, outbox *notificationsink.Outbox, opts ...tea.ProgramOption) error {
	opts = append(opts, tea.WithContext(ctx))
	_, err := tea.NewProgram(New(ctx, ctrl, outbox), opts...).Run()
	if err != nil && ctx.Err() == nil {
		return err
	}
	ctrl.Wait()
	return nil
}
