package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"counselportal/internal/appointment"
	"counselportal/internal/dashboard"
	"counselportal/internal/slots"
	"counselportal/internal/timeutil"
)

// Grid draws the week as catalog slots by weekdays. Booked cells show the
// customer and the derived status at now.
func Grid(g slots.Grid, now time.Time, loc *time.Location) string {
	headers := []string{"Slot"}
	for i, d := range g.Days {
		headers = append(headers, dashboard.WeekdayLabels[i]+" "+d.DayMonth())
	}

	rows := make([][]string, 0, len(g.Slots))
	for si, slot := range g.Slots {
		row := []string{slot.Label()}
		for di := range g.Days {
			row = append(row, cellText(g.Cells[si][di], now, loc))
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	var b strings.Builder
	b.WriteString(titleStyle.Render(g.Week.Label))
	b.WriteString("\n")
	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("booked %d · registered %d · cancelled %d",
		g.Count(slots.CellBooked), g.Count(slots.CellRegistered), g.Count(slots.CellCancelled))))
	b.WriteString("\n")
	return b.String()
}

func cellText(c slots.Cell, now time.Time, loc *time.Location) string {
	style := lipgloss.NewStyle().Foreground(kindColors[c.Kind])
	switch c.Kind {
	case slots.CellBooked:
		a := c.Appointment
		name := a.CustomerName
		if name == "" {
			name = "#" + a.ID
		}
		e := appointment.Evaluate(*a, now, loc)
		return name + "\n" + statusText(e.Display)
	case slots.CellRegistered:
		return style.Render("Đã đăng ký")
	case slots.CellCancelled:
		return style.Render("Đã hủy")
	default:
		return style.Render("·")
	}
}

// Weeks lists week labels, marking the one at index current.
func Weeks(weeks []timeutil.Week, current int) string {
	var b strings.Builder
	for i, w := range weeks {
		marker := "  "
		line := w.Label
		if i == current {
			marker = "> "
			line = barStyle.Render(line)
		}
		b.WriteString(marker + line + "\n")
	}
	return b.String()
}
