// Package render draws portal data for the terminal.
package render

import (
	"github.com/charmbracelet/lipgloss"

	"counselportal/internal/appointment"
	"counselportal/internal/slots"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236")).
			Padding(0, 1).
			Bold(true)

	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	labelStyle = lipgloss.NewStyle().Width(8)

	statusColors = map[appointment.Status]lipgloss.Color{
		appointment.StatusPending:   lipgloss.Color("214"),
		appointment.StatusConfirmed: lipgloss.Color("39"),
		appointment.StatusOngoing:   lipgloss.Color("42"),
		appointment.StatusCompleted: lipgloss.Color("70"),
		appointment.StatusCancelled: lipgloss.Color("160"),
	}

	kindColors = map[slots.CellKind]lipgloss.Color{
		slots.CellEmpty:      lipgloss.Color("240"),
		slots.CellCancelled:  lipgloss.Color("160"),
		slots.CellRegistered: lipgloss.Color("214"),
		slots.CellBooked:     lipgloss.Color("39"),
	}
)

func statusText(s appointment.Status) string {
	c, ok := statusColors[s]
	if !ok {
		return string(s)
	}
	return lipgloss.NewStyle().Foreground(c).Render(StatusLabel(s))
}

// StatusLabel is the Vietnamese display name of a status.
func StatusLabel(s appointment.Status) string {
	switch s {
	case appointment.StatusPending:
		return "Chờ xác nhận"
	case appointment.StatusConfirmed:
		return "Đã xác nhận"
	case appointment.StatusOngoing:
		return "Đang diễn ra"
	case appointment.StatusCompleted:
		return "Đã hoàn thành"
	case appointment.StatusCancelled:
		return "Đã hủy"
	default:
		return string(s)
	}
}
