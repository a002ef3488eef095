package render

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"counselportal/internal/appointment"
	"counselportal/internal/dashboard"
	"counselportal/internal/slots"
	"counselportal/internal/timeutil"
)

var (
	loc    = time.FixedZone("ICT", 7*3600)
	monday = timeutil.NewDate(2025, time.June, 2)
)

func sample() []appointment.Appointment {
	score := 4.5
	return []appointment.Appointment{
		{
			ID: "7", CustomerName: "Nguyen Van A", TopicName: "Career",
			Date: monday, Time: timeutil.Clock{Hour: 9}, Status: appointment.StatusConfirmed,
		},
		{
			ID: "8", CustomerName: "Tran Thi B", TopicName: "Study",
			Date: monday.AddDays(1), Time: timeutil.Clock{Hour: 14}, Status: appointment.StatusCompleted,
			ConsultantNote: "follow up", CustomerReview: "helpful", ReviewScore: &score,
		},
	}
}

func TestGrid(t *testing.T) {
	week := timeutil.WeekOf(monday)
	entries := slots.MergeSlotsAndAppointments(sample(), []slots.Slot{
		{ID: "s1", Date: monday.AddDays(2), Start: timeutil.Clock{Hour: 10}, End: timeutil.Clock{Hour: 11}},
	})
	g := slots.BuildGrid(week, entries)

	out := Grid(g, monday.In(loc).Add(8*time.Hour), loc)

	assert.Contains(t, out, week.Label)
	assert.Contains(t, out, "T2 "+monday.DayMonth())
	assert.Contains(t, out, "Nguyen Van A")
	assert.Contains(t, out, "Đã đăng ký")
	assert.Contains(t, out, "booked 2 · registered 1 · cancelled 0")
}

func TestWeeks(t *testing.T) {
	weeks := timeutil.WeeksInYear(2025)
	out := Weeks(weeks[:3], 1)

	assert.Contains(t, out, "> "+weeks[1].Label)
	assert.Contains(t, out, "  "+weeks[0].Label)
}

func TestDashboard(t *testing.T) {
	now := monday.In(loc).Add(8 * time.Hour)
	snap := dashboard.Build(sample(), nil, 0, now, loc)

	out := Dashboard(snap, now, loc)

	assert.Contains(t, out, "T2")
	assert.Contains(t, out, "Tuần 1")
	assert.Contains(t, out, "Nguyen Van A")
	assert.NotContains(t, out, "Tran Thi B", "completed appointments are not upcoming")
}

func TestDashboardEmpty(t *testing.T) {
	now := monday.In(loc)
	out := Dashboard(dashboard.Build(nil, nil, 0, now, loc), now, loc)
	assert.Contains(t, out, "Không có lịch hẹn")
}

func TestHistoryAndAppointment(t *testing.T) {
	list := sample()
	now := monday.In(loc).Add(9*time.Hour + 5*time.Minute)

	out := History(list, 1, 0, now, loc)
	assert.Contains(t, out, "follow up")
	assert.Contains(t, out, "Trang 1 / 1 · 2 lịch hẹn")
	assert.Contains(t, History(nil, 1, 0, now, loc), "Không có lịch sử")

	second := History(list, 2, 1, now, loc)
	assert.Contains(t, second, "Tran Thi B")
	assert.NotContains(t, second, "Nguyen Van A")
	assert.Contains(t, second, "Trang 2 / 2")

	card := Appointment(list[0], appointment.Evaluate(list[0], now, loc))
	assert.Contains(t, card, "#7 Nguyen Van A")
	assert.Contains(t, card, "Đang diễn ra")
	assert.Contains(t, card, "complete")
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	got, page, pages := Page(items, 2, 2)
	assert.Equal(t, []int{3, 4}, got)
	assert.Equal(t, 2, page)
	assert.Equal(t, 3, pages)

	got, page, _ = Page(items, 9, 2)
	assert.Equal(t, []int{5}, got)
	assert.Equal(t, 3, page)

	got, page, _ = Page(items, 0, 0)
	assert.Equal(t, items, got)
	assert.Equal(t, 1, page)

	got, page, pages = Page([]int(nil), 3, 2)
	assert.Empty(t, got)
	assert.Equal(t, 1, page)
	assert.Equal(t, 1, pages)
}

func TestExportHistoryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.xlsx")
	require.NoError(t, ExportHistoryFile(path, sample()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Lịch sử")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, HistoryColumns, rows[0])
	assert.Equal(t, "Tran Thi B", rows[2][1])
	assert.Equal(t, "4.5", rows[2][10])
	assert.Equal(t, StatusLabel(appointment.StatusCompleted), rows[2][7])
}
