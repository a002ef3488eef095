package render

import (
	"fmt"
	"strings"
	"time"

	"counselportal/internal/appointment"
	"counselportal/internal/audit"
)

// HistoryColumns are the exported history columns.
var HistoryColumns = []string{"ID", "Khách hàng", "Email", "Số điện thoại", "Chủ đề", "Ngày", "Giờ", "Trạng thái", "Ghi chú", "Đánh giá", "Điểm"}

// History draws one page of the history table. A page size of zero or less
// uses DefaultPageSize.
func History(list []appointment.Appointment, page, size int, now time.Time, loc *time.Location) string {
	if len(list) == 0 {
		return mutedStyle.Render("Không có lịch sử") + "\n"
	}
	rows, page, pages := Page(list, page, size)
	var b strings.Builder
	b.WriteString(appointmentTable(rows, now, loc, true))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("Trang %d / %d · %d lịch hẹn", page, pages, len(list))))
	b.WriteString("\n")
	return b.String()
}

// Appointment draws one appointment with the actions enabled at now.
func Appointment(a appointment.Appointment, e appointment.Eligibility) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("#%s %s", a.ID, a.CustomerName)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%-12s %s\n", "Chủ đề", a.TopicName)
	fmt.Fprintf(&b, "%-12s %s %s\n", "Thời gian", a.Date, a.TimeRange())
	fmt.Fprintf(&b, "%-12s %s\n", "Trạng thái", statusText(e.Display))
	if a.MeetLink != "" {
		fmt.Fprintf(&b, "%-12s %s\n", "Meet", a.MeetLink)
	}
	var actions []string
	for _, act := range []appointment.Action{appointment.ActionStart, appointment.ActionComplete, appointment.ActionCancel} {
		if e.Allows(act) {
			actions = append(actions, string(act))
		}
	}
	if len(actions) == 0 {
		actions = []string{"none"}
	}
	b.WriteString(mutedStyle.Render("actions: " + strings.Join(actions, ", ")))
	b.WriteString("\n")
	return b.String()
}

// ExportHistory writes list to a "Lịch sử" sheet of w.
func ExportHistory(w audit.TableWriter, list []appointment.Appointment) error {
	if err := w.AddSheet("Lịch sử"); err != nil {
		return err
	}
	if err := w.WriteHeader(HistoryColumns); err != nil {
		return err
	}
	for _, a := range list {
		score := ""
		if a.ReviewScore != nil {
			score = fmt.Sprintf("%.1f", *a.ReviewScore)
		}
		row := []any{
			a.ID, a.CustomerName, a.Email, a.PhoneNumber, a.TopicName,
			a.Date.String(), a.TimeRange(), StatusLabel(a.Status),
			a.ConsultantNote, a.CustomerReview, score,
		}
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

// ExportHistoryFile saves list to an .xlsx file at path.
func ExportHistoryFile(path string, list []appointment.Appointment) error {
	wb := audit.NewWorkbook()
	defer wb.Close()
	if err := ExportHistory(wb, list); err != nil {
		return err
	}
	return wb.SaveToFile(path)
}
