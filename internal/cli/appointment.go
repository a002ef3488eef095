package cli

import (
	"fmt"

	"counselportal/internal/appointment"
	"counselportal/internal/render"
)

type AppointmentCmd struct {
	Show     AppointmentShowCmd     `cmd:"" help:"Show an appointment and the actions enabled now."`
	Start    AppointmentStartCmd    `cmd:"" help:"Start a confirmed session and print the meeting link."`
	Complete AppointmentCompleteCmd `cmd:"" help:"Complete a session."`
	Cancel   AppointmentCancelCmd   `cmd:"" help:"Cancel an appointment."`
	Status   AppointmentStatusCmd   `cmd:"" help:"Set a status through the generic endpoint (deprecated)."`
}

// loaded returns a service holding the consultant's current list.
func (c *Context) loaded() (*appointment.Service, error) {
	if _, err := c.consultant(); err != nil {
		return nil, err
	}
	svc := c.appointments()
	if _, err := svc.Load(c.Ctx, nil); err != nil {
		return nil, err
	}
	return svc, nil
}

type AppointmentShowCmd struct {
	ID string `arg:"" help:"Appointment id."`
}

func (c *AppointmentShowCmd) Run(app *Context) error {
	svc, err := app.loaded()
	if err != nil {
		return err
	}
	a, ok := svc.Get(c.ID)
	if !ok {
		return fmt.Errorf("%w: %s", appointment.ErrUnknownAppointment, c.ID)
	}
	e, err := svc.Eligibility(c.ID)
	if err != nil {
		return err
	}
	app.printf("%s", render.Appointment(a, e))
	return nil
}

type AppointmentStartCmd struct {
	ID string `arg:"" help:"Appointment id."`
}

func (c *AppointmentStartCmd) Run(app *Context) error {
	svc, err := app.loaded()
	if err != nil {
		return err
	}
	link, err := svc.Start(app.Ctx, c.ID)
	if err != nil {
		return err
	}
	app.printf("Session started. Join: %s\n", link)
	return nil
}

type AppointmentCompleteCmd struct {
	ID   string `arg:"" help:"Appointment id."`
	Note string `help:"Consultant note for the session."`
}

func (c *AppointmentCompleteCmd) Run(app *Context) error {
	svc, err := app.loaded()
	if err != nil {
		return err
	}
	if err := svc.Complete(app.Ctx, c.ID, c.Note); err != nil {
		return err
	}
	app.printf("Appointment %s completed\n", c.ID)
	return nil
}

type AppointmentCancelCmd struct {
	ID     string `arg:"" help:"Appointment id."`
	Reason string `help:"Reason shown to the customer." required:""`
}

func (c *AppointmentCancelCmd) Run(app *Context) error {
	svc, err := app.loaded()
	if err != nil {
		return err
	}
	if err := svc.Cancel(app.Ctx, c.ID, c.Reason); err != nil {
		return err
	}
	app.printf("Appointment %s cancelled\n", c.ID)
	return nil
}

type AppointmentStatusCmd struct {
	ID     string `arg:"" help:"Appointment id."`
	Status string `help:"Target status." required:"" enum:"CONFIRMED,COMPLETED,CANCELLED"`
}

func (c *AppointmentStatusCmd) Run(app *Context) error {
	svc, err := app.loaded()
	if err != nil {
		return err
	}
	//nolint:staticcheck // kept for servers without the dedicated endpoints
	if err := svc.SetStatus(app.Ctx, c.ID, appointment.ParseStatus(c.Status)); err != nil {
		return err
	}
	app.printf("Appointment %s is now %s\n", c.ID, render.StatusLabel(appointment.ParseStatus(c.Status)))
	return nil
}
