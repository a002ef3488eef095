package appointment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"counselportal/internal/timeutil"
)

func historyFixture() []Appointment {
	return []Appointment{
		{ID: "1", CustomerName: "Đặng Văn B", TopicName: "Stress", Date: timeutil.NewDate(2025, time.May, 2), Time: timeutil.Clock{Hour: 9}, Status: StatusCompleted},
		{ID: "2", CustomerName: "an Nguyễn", TopicName: "Career", Date: timeutil.NewDate(2025, time.May, 2), Time: timeutil.Clock{Hour: 8}, Status: StatusCancelled},
		{ID: "3", CustomerName: "Bình", TopicName: "Addiction", Date: timeutil.NewDate(2025, time.April, 28), Time: timeutil.Clock{Hour: 14}, Status: StatusConfirmed},
	}
}

func ids(list []Appointment) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.ID
	}
	return out
}

func TestFilterByStatus(t *testing.T) {
	list := historyFixture()

	assert.Len(t, FilterByStatus(list, FilterAll), 3)
	assert.Len(t, FilterByStatus(list, ""), 3)
	assert.Equal(t, []string{"2"}, ids(FilterByStatus(list, "CANCELLED")))
	assert.Equal(t, []string{"2"}, ids(FilterByStatus(list, "CANCELED")))
	assert.Equal(t, []string{"1"}, ids(FilterByStatus(list, "completed")))
}

func TestSortHistory(t *testing.T) {
	list := historyFixture()

	assert.Equal(t, []string{"1", "2", "3"}, ids(SortHistory(list, ColumnDate, true)))
	assert.Equal(t, []string{"3", "2", "1"}, ids(SortHistory(list, ColumnDate, false)))
	assert.Equal(t, []string{"2", "3", "1"}, ids(SortHistory(list, ColumnCustomer, false)))
	assert.Equal(t, []string{"3", "2", "1"}, ids(SortHistory(list, ColumnTopic, false)))
	assert.Equal(t, []string{"2", "1", "3"}, ids(SortHistory(list, ColumnTime, false)))

	// Input is untouched.
	assert.Equal(t, []string{"1", "2", "3"}, ids(list))
}

func TestParseColumn(t *testing.T) {
	assert.Equal(t, ColumnCustomer, ParseColumn("customername"))
	assert.Equal(t, ColumnDate, ParseColumn("nope"))
}
