package appointment

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// FilterAll disables status filtering.
const FilterAll = "all"

// Column names a sortable history column.
type Column string

const (
	ColumnCustomer Column = "customerName"
	ColumnTopic    Column = "topicName"
	ColumnDate     Column = "appointmentDate"
	ColumnTime     Column = "appointmentTime"
	ColumnStatus   Column = "status"
	ColumnNote     Column = "consultantNote"
)

// Columns lists the sortable columns.
var Columns = []Column{ColumnCustomer, ColumnTopic, ColumnDate, ColumnTime, ColumnStatus, ColumnNote}

// ParseColumn returns ColumnDate for unknown names.
func ParseColumn(s string) Column {
	for _, c := range Columns {
		if strings.EqualFold(string(c), s) {
			return c
		}
	}
	return ColumnDate
}

// FilterByStatus keeps appointments whose status matches filter; "all" or "" keeps everything.
func FilterByStatus(list []Appointment, filter string) []Appointment {
	if filter == "" || strings.EqualFold(filter, FilterAll) {
		return append([]Appointment(nil), list...)
	}
	want := ParseStatus(filter)
	var out []Appointment
	for _, a := range list {
		if a.Status == want {
			out = append(out, a)
		}
	}
	return out
}

// SortHistory returns a sorted copy. The date column compares date then time;
// text columns use Vietnamese collation, case-insensitive.
func SortHistory(list []Appointment, col Column, desc bool) []Appointment {
	out := append([]Appointment(nil), list...)
	coll := collate.New(language.Vietnamese, collate.IgnoreCase)

	less := func(a, b Appointment) bool {
		switch col {
		case ColumnDate:
			return a.Before(b)
		case ColumnTime:
			return a.Time.Before(b.Time)
		default:
			return coll.CompareString(columnText(a, col), columnText(b, col)) < 0
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func columnText(a Appointment, col Column) string {
	switch col {
	case ColumnCustomer:
		return a.CustomerName
	case ColumnTopic:
		return a.TopicName
	case ColumnStatus:
		return string(a.Status)
	case ColumnNote:
		return a.ConsultantNote
	default:
		return ""
	}
}
