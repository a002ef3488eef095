package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"counselportal/internal/appointment"
	"counselportal/internal/dashboard"
)

const maxBar = 30

// Dashboard draws the tally, the two bar charts and the upcoming list.
func Dashboard(s dashboard.Snapshot, now time.Time, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Tổng quan " + s.Today.String()))
	b.WriteString("\n")

	tally := []string{
		statTile(StatusLabel(appointment.StatusPending), s.Tally.Pending, appointment.StatusPending),
		statTile(StatusLabel(appointment.StatusConfirmed), s.Tally.Confirmed, appointment.StatusConfirmed),
		statTile(StatusLabel(appointment.StatusCompleted), s.Tally.Completed, appointment.StatusCompleted),
		statTile(StatusLabel(appointment.StatusCancelled), s.Tally.Cancelled, appointment.StatusCancelled),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tally...))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("Tuần này"))
	b.WriteString("\n")
	b.WriteString(bars(dashboard.WeekdayLabels[:], s.Weekly[:]))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Tháng này"))
	b.WriteString("\n")
	b.WriteString(bars(dashboard.MonthWeekLabels[:], s.Monthly[:]))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Lịch hẹn sắp tới"))
	b.WriteString("\n")
	if len(s.Upcoming) == 0 {
		b.WriteString(mutedStyle.Render("Không có lịch hẹn"))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(appointmentTable(s.Upcoming, now, loc, false))
	b.WriteString("\n")
	return b.String()
}

func statTile(label string, n int, st appointment.Status) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(statusColors[st]).
		Padding(0, 2).
		MarginRight(1).
		Render(fmt.Sprintf("%s\n%d", label, n))
}

func bars(labels []string, counts []int) string {
	peak := 0
	for _, c := range counts {
		if c > peak {
			peak = c
		}
	}
	var b strings.Builder
	for i, c := range counts {
		width := 0
		if peak > 0 {
			width = c * maxBar / peak
		}
		if c > 0 && width == 0 {
			width = 1
		}
		b.WriteString(labelStyle.Render(labels[i]))
		b.WriteString(barStyle.Render(strings.Repeat("█", width)))
		b.WriteString(fmt.Sprintf(" %d\n", c))
	}
	return b.String()
}

func appointmentTable(list []appointment.Appointment, now time.Time, loc *time.Location, withNote bool) string {
	headers := []string{"ID", "Khách hàng", "Chủ đề", "Ngày", "Giờ", "Trạng thái"}
	if withNote {
		headers = append(headers, "Ghi chú")
	}
	rows := make([][]string, 0, len(list))
	for _, a := range list {
		display := appointment.DerivedStatus(a.Status, a.StartsAt(loc), now)
		row := []string{a.ID, a.CustomerName, a.TopicName, a.Date.String(), a.TimeRange(), statusText(display)}
		if withNote {
			row = append(row, a.ConsultantNote)
		}
		rows = append(rows, row)
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Render()
}
