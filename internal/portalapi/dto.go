package portalapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"counselportal/internal/appointment"
	"counselportal/internal/slots"
	"counselportal/internal/timeutil"
)

// flexID accepts ids sent as JSON numbers or strings.
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id %s: %w", b, err)
	}
	*id = flexID(n.String())
	return nil
}

type appointmentDTO struct {
	ID              flexID          `json:"id"`
	ConsultantID    flexID          `json:"consultantId"`
	CustomerName    string          `json:"customerName"`
	Email           string          `json:"email"`
	PhoneNumber     string          `json:"phoneNumber"`
	TopicName       string          `json:"topicName"`
	Guest           bool            `json:"guest"`
	AppointmentDate string          `json:"appointmentDate"`
	AppointmentTime json.RawMessage `json:"appointmentTime"`
	Status          string          `json:"status"`
	CheckInTime     string          `json:"checkInTime"`
	CheckOutTime    string          `json:"checkOutTime"`
	ConsultantNote  string          `json:"consultantNote"`
	CustomerReview  string          `json:"customerReview"`
	ReviewScore     *float64        `json:"reviewScore"`
	LinkGoogleMeet  string          `json:"linkGoogleMeet"`
}

// toDomain normalizes one record. Records whose date or time cannot be
// resolved are rejected rather than compared as garbage.
func (d appointmentDTO) toDomain(loc *time.Location) (appointment.Appointment, error) {
	if d.ID == "" {
		return appointment.Appointment{}, fmt.Errorf("appointment without id")
	}
	date, err := timeutil.ParseFlexibleDate(d.AppointmentDate)
	if err != nil {
		return appointment.Appointment{}, fmt.Errorf("appointment %s: %w", d.ID, err)
	}
	clock, err := timeutil.ParseFlexibleTime(d.AppointmentTime)
	if err != nil {
		return appointment.Appointment{}, fmt.Errorf("appointment %s: %w", d.ID, err)
	}
	a := d.partial(loc)
	a.Date = date
	a.Time = clock
	return a, nil
}

// partial copies whatever the record carries. Action endpoints may answer
// with a subset such as {linkGoogleMeet}.
func (d appointmentDTO) partial(loc *time.Location) appointment.Appointment {
	a := appointment.Appointment{
		ID:             string(d.ID),
		ConsultantID:   string(d.ConsultantID),
		CustomerName:   d.CustomerName,
		Email:          d.Email,
		PhoneNumber:    d.PhoneNumber,
		TopicName:      d.TopicName,
		IsGuest:        d.Guest,
		Status:         appointment.ParseStatus(d.Status),
		ConsultantNote: d.ConsultantNote,
		CustomerReview: d.CustomerReview,
		MeetLink:       strings.TrimSpace(d.LinkGoogleMeet),
	}
	if d.ReviewScore != nil && appointment.ValidReviewScore(*d.ReviewScore) {
		score := *d.ReviewScore
		a.ReviewScore = &score
	}
	a.CheckInTime = optionalTimestamp(d.CheckInTime, loc)
	a.CheckOutTime = optionalTimestamp(d.CheckOutTime, loc)
	if date, err := timeutil.ParseFlexibleDate(d.AppointmentDate); err == nil {
		a.Date = date
	}
	if len(d.AppointmentTime) > 0 {
		if clock, err := timeutil.ParseFlexibleTime(d.AppointmentTime); err == nil {
			a.Time = clock
		}
	}
	return a
}

func optionalTimestamp(s string, loc *time.Location) *time.Time {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	t, err := timeutil.ParseTimestamp(s, loc)
	if err != nil {
		return nil
	}
	return &t
}

type slotDTO struct {
	ID             flexID          `json:"id"`
	Date           string          `json:"date"`
	StartTime      json.RawMessage `json:"startTime"`
	EndTime        json.RawMessage `json:"endTime"`
	ConsultantName string          `json:"consultantName"`
}

func (d slotDTO) toDomain() (slots.Slot, error) {
	date, err := timeutil.ParseFlexibleDate(d.Date)
	if err != nil {
		return slots.Slot{}, fmt.Errorf("slot %s: %w", d.ID, err)
	}
	start, err := timeutil.ParseFlexibleTime(d.StartTime)
	if err != nil {
		return slots.Slot{}, fmt.Errorf("slot %s: %w", d.ID, err)
	}
	s := slots.Slot{ID: string(d.ID), Date: date, Start: start, ConsultantName: d.ConsultantName}
	if end, err := timeutil.ParseFlexibleTime(d.EndTime); err == nil {
		s.End = end
	} else {
		s.End = start.Add(time.Hour)
	}
	return s, nil
}

type slotRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type noteBody struct {
	ConsultantNote string `json:"consultantNote"`
}

type reasonBody struct {
	Reason string `json:"reason"`
}

// decodeRecords decodes a JSON array one element at a time and drops
// elements that fail to convert, logging each.
func decodeRecords[D any, T any](body []byte, log zerolog.Logger, endpoint string, convert func(D) (T, error)) ([]T, error) {
	var raws []json.RawMessage
	if err := decode(body, &raws); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		var dto D
		if err := json.Unmarshal(raw, &dto); err != nil {
			log.Warn().Err(err).Str("endpoint", endpoint).Int("index", i).Msg("dropping undecodable record")
			continue
		}
		v, err := convert(dto)
		if err != nil {
			log.Warn().Err(err).Str("endpoint", endpoint).Int("index", i).Msg("dropping invalid record")
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func pathID(id string) string {
	return url.PathEscape(strings.TrimSpace(id))
}
