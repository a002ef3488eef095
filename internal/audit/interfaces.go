// Package audit keeps a trail of consultant actions and exports it to Excel.
package audit

import (
	"context"
	"io"
	"time"
)

// Entry is one recorded consultant action.
type Entry struct {
	At           time.Time `json:"at"`
	Action       string    `json:"action"`
	Target       string    `json:"target"`
	ConsultantID string    `json:"consultantId"`
	RequestID    string    `json:"requestId,omitempty"`
	Outcome      string    `json:"outcome"`
	Message      string    `json:"message,omitempty"`
}

// Recorder accepts audit entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// TableWriter writes tabular data to a spreadsheet.
type TableWriter interface {
	// AddSheet adds a new sheet with the given name and makes it current.
	AddSheet(name string) error

	// WriteHeader writes column headers to the current sheet.
	WriteHeader(columns []string) error

	// WriteRow writes a data row to the current sheet.
	WriteRow(row []any) error

	// Save writes the workbook to w.
	Save(w io.Writer) error

	// SaveToFile writes the workbook to disk.
	SaveToFile(path string) error
}

// Columns of the audit sheet.
var Columns = []string{"Time", "Action", "Appointment/Slot", "Consultant", "Request ID", "Outcome", "Message"}

// Row flattens an entry in Columns order.
func (e Entry) Row(loc *time.Location) []any {
	return []any{
		e.At.In(loc).Format("02/01/2006 15:04:05"),
		e.Action,
		e.Target,
		e.ConsultantID,
		e.RequestID,
		e.Outcome,
		e.Message,
	}
}

// SheetName builds "Audit MM-YYYY" for the month of t.
func SheetName(t time.Time) string {
	return "Audit " + t.Format("01-2006")
}
