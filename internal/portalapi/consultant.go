package portalapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"counselportal/internal/appointment"
	"counselportal/internal/session"
	"counselportal/internal/slots"
	"counselportal/internal/timeutil"
)

var (
	_ appointment.Gateway = (*Client)(nil)
	_ slots.Gateway       = (*Client)(nil)
)

func requireConsultant(id string) error {
	if id == "" {
		return session.ErrMissingUserID
	}
	return nil
}

func (c *Client) appointmentList(ctx context.Context, path string, query url.Values) ([]appointment.Appointment, error) {
	cacheKey := path
	if len(query) > 0 {
		cacheKey += "?" + query.Encode()
	}
	var raw json.RawMessage
	if err := c.getJSON(ctx, path, query, cacheKey, &raw); err != nil {
		return nil, err
	}
	return decodeRecords(raw, c.logger, path, func(d appointmentDTO) (appointment.Appointment, error) {
		return d.toDomain(c.loc)
	})
}

// ConsultantAppointments lists the consultant's open appointments, bounded by r when given.
func (c *Client) ConsultantAppointments(ctx context.Context, consultantID string, r *appointment.DateRange) ([]appointment.Appointment, error) {
	if err := requireConsultant(consultantID); err != nil {
		return nil, err
	}
	var q url.Values
	if r != nil {
		q = url.Values{}
		q.Set("startDate", r.From.ISO())
		q.Set("endDate", r.To.ISO())
	}
	return c.appointmentList(ctx, "/consultant/"+pathID(consultantID)+"/appointments", q)
}

// ConsultantHistory lists completed and cancelled appointments.
func (c *Client) ConsultantHistory(ctx context.Context, consultantID string) ([]appointment.Appointment, error) {
	if err := requireConsultant(consultantID); err != nil {
		return nil, err
	}
	return c.appointmentList(ctx, "/appointments/consultant/"+pathID(consultantID)+"/history", nil)
}

// UnassignedAppointments lists pending requests not yet assigned to anyone.
func (c *Client) UnassignedAppointments(ctx context.Context) ([]appointment.Appointment, error) {
	return c.appointmentList(ctx, "/consultant/appointments/unassigned", nil)
}

// SlotsForDay lists the slots the consultant registered on date.
func (c *Client) SlotsForDay(ctx context.Context, consultantID string, date timeutil.Date) ([]slots.Slot, error) {
	if err := requireConsultant(consultantID); err != nil {
		return nil, err
	}
	path := "/public/slots/consultant/" + pathID(consultantID)
	q := url.Values{"date": {date.String()}}
	var raw json.RawMessage
	if err := c.getJSON(ctx, path, q, path+"?"+q.Encode(), &raw); err != nil {
		return nil, err
	}
	return decodeRecords(raw, c.logger, path, slotDTO.toDomain)
}

// RegisterSlot registers one catalog slot on date for the signed-in consultant.
func (c *Client) RegisterSlot(ctx context.Context, date timeutil.Date, slot timeutil.TimeSlot) (slots.Slot, error) {
	req := slotRequest{Date: date.String(), StartTime: slot.Start.String(), EndTime: slot.End.String()}
	var raw json.RawMessage
	if err := c.mutate(ctx, http.MethodPost, "/consultant/slot", nil, req, &raw); err != nil {
		return slots.Slot{}, err
	}
	created := slots.Slot{Date: date, Start: slot.Start, End: slot.End}
	var dto slotDTO
	if decode(raw, &dto) == nil {
		if s, err := dto.toDomain(); err == nil {
			return s, nil
		}
		created.ID = string(dto.ID)
	}
	return created, nil
}

func (c *Client) appointmentAction(ctx context.Context, method, path string, q url.Values, in any) (appointment.Appointment, error) {
	var raw json.RawMessage
	if err := c.mutate(ctx, method, path, q, in, &raw); err != nil {
		return appointment.Appointment{}, err
	}
	var dto appointmentDTO
	if err := decode(raw, &dto); err != nil {
		c.logger.Debug().Err(err).Str("endpoint", path).Msg("action response is not an appointment")
		return appointment.Appointment{}, nil
	}
	return dto.partial(c.loc), nil
}

// StartAppointment checks the consultant in. The response carries the meeting link.
func (c *Client) StartAppointment(ctx context.Context, id, consultantID string) (appointment.Appointment, error) {
	if err := requireConsultant(consultantID); err != nil {
		return appointment.Appointment{}, err
	}
	q := url.Values{"consultantId": {consultantID}}
	return c.appointmentAction(ctx, http.MethodPut, "/appointments/"+pathID(id)+"/start", q, nil)
}

// EndAppointment completes the session. The server refuses it without a
// check-in or before ten minutes have passed; its message is returned as is.
func (c *Client) EndAppointment(ctx context.Context, id, consultantID, note string) (appointment.Appointment, error) {
	if err := requireConsultant(consultantID); err != nil {
		return appointment.Appointment{}, err
	}
	q := url.Values{"consultantId": {consultantID}}
	return c.appointmentAction(ctx, http.MethodPut, "/appointments/"+pathID(id)+"/end", q, noteBody{ConsultantNote: note})
}

// CancelAppointment cancels on behalf of the consultant.
func (c *Client) CancelAppointment(ctx context.Context, id, consultantID, reason string) (appointment.Appointment, error) {
	if err := requireConsultant(consultantID); err != nil {
		return appointment.Appointment{}, err
	}
	q := url.Values{"consultantId": {consultantID}}
	return c.appointmentAction(ctx, http.MethodPut, "/appointments/"+pathID(id)+"/cancel/consultant", q, reasonBody{Reason: reason})
}

// UpdateStatus calls the generic status endpoint.
//
// Deprecated: use StartAppointment, EndAppointment or CancelAppointment.
func (c *Client) UpdateStatus(ctx context.Context, id, consultantID string, status appointment.Status) (appointment.Appointment, error) {
	if err := requireConsultant(consultantID); err != nil {
		return appointment.Appointment{}, err
	}
	if !status.Persisted() {
		return appointment.Appointment{}, fmt.Errorf("status %q cannot be sent to the server", status)
	}
	q := url.Values{"status": {string(status)}, "consultantId": {consultantID}}
	return c.appointmentAction(ctx, http.MethodPatch, "/appointments/"+pathID(id)+"/status", q, nil)
}
