package appointment

import (
	"strings"

	"github.com/google/uuid"
)

const meetBaseURL = "https://meet.google.com/"

var meetNamespace = uuid.MustParse("6f1c3a52-0d7e-4f5b-9a41-2c8e7b1d9f30")

// MeetLink returns the server-provided link or a deterministic fallback.
func MeetLink(a Appointment) string {
	if link := strings.TrimSpace(a.MeetLink); link != "" {
		return link
	}
	return FallbackMeetLink(a.ID)
}

// FallbackMeetLink derives a stable "xxx-xxxx-xxx" room code from the appointment id.
func FallbackMeetLink(id string) string {
	sum := uuid.NewSHA1(meetNamespace, []byte(id))

	code := make([]byte, 0, 12)
	for i, b := range sum[:10] {
		if i == 3 || i == 7 {
			code = append(code, '-')
		}
		code = append(code, 'a'+b%26)
	}
	return meetBaseURL + string(code)
}
