package tui

import (
	"creator-match/internal/models"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	labelStyle    = lipgloss.NewStyle().Width(12).Foreground(lipgloss.Color("252"))
	focusStyle    = lipgloss.NewStyle().Width(12).Bold(true).Foreground(lipgloss.Color("205"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
	scoreStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	badgeStyle    = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder())
	panelStyle    = lipgloss.NewStyle().Padding(1, 2)

	stepActive = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	stepDone   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	stepTodo   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	toastStyles = map[models.NotificationKind]lipgloss.Style{
		models.NotificationValidationError: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.NotificationSuccess:         lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.NotificationFailure:         lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

func bandColor(r models.Recommendation) lipgloss.Color {
	switch r {
	case models.RecommendationExcellent:
		return lipgloss.Color("42")
	case models.RecommendationGood:
		return lipgloss.Color("220")
	default:
		return lipgloss.Color("196")
	}
}
