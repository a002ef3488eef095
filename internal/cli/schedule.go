package cli

import (
	"fmt"

	"counselportal/internal/appointment"
	"counselportal/internal/render"
	"counselportal/internal/slots"
	"counselportal/internal/timeutil"
)

type WeeksCmd struct {
	Year int `help:"Calendar year (defaults to the current year)."`
}

func (c *WeeksCmd) Run(app *Context) error {
	today := timeutil.DateOf(app.today())
	year := c.Year
	if year == 0 {
		year = today.Year()
	}
	weeks := timeutil.WeeksInYear(year)
	app.printf("%s", render.Weeks(weeks, timeutil.FindWeek(weeks, today)))
	return nil
}

type ScheduleCmd struct {
	Week int `help:"ISO week number of --year, as listed by 'weeks' (defaults to the current week)."`
	Year int `help:"Calendar year (defaults to the current year)."`
}

func (c *ScheduleCmd) Run(app *Context) error {
	if _, err := app.consultant(); err != nil {
		return err
	}
	week, err := pickWeek(timeutil.DateOf(app.today()), c.Year, c.Week)
	if err != nil {
		return err
	}

	rng := appointment.WeekRange(week)
	list, err := app.appointments().Load(app.Ctx, &rng)
	if err != nil {
		return err
	}
	registered, err := app.ledger().FetchWeek(app.Ctx, week)
	if err != nil {
		return err
	}

	grid := slots.BuildGrid(week, slots.MergeSlotsAndAppointments(list, registered))
	app.printf("%s", render.Grid(grid, app.now(), app.Loc))
	return nil
}

// pickWeek resolves ISO week number of year from the weeks listed for year.
func pickWeek(today timeutil.Date, year, number int) (timeutil.Week, error) {
	if year == 0 {
		year = today.Year()
	}
	weeks := timeutil.WeeksInYear(year)
	if number == 0 {
		if i := timeutil.FindWeek(weeks, today); i >= 0 {
			return weeks[i], nil
		}
		return weeks[0], nil
	}
	for _, w := range weeks {
		if w.Year == year && w.Number == number {
			return w, nil
		}
	}
	return timeutil.Week{}, fmt.Errorf("week %d not found in %d", number, year)
}

type SlotRegisterCmd struct {
	Date string `help:"Day of the slot (DD/MM/YYYY or YYYY-MM-DD)." required:""`
	Hour int    `help:"Start hour of a catalog slot." required:""`
}

func (c *SlotRegisterCmd) Run(app *Context) error {
	if _, err := app.consultant(); err != nil {
		return err
	}
	date, err := timeutil.ParseFlexibleDate(c.Date)
	if err != nil {
		return err
	}

	ledger := app.ledger()
	if _, err := ledger.FetchWeek(app.Ctx, timeutil.WeekOf(date)); err != nil {
		return err
	}
	created, err := ledger.Register(app.Ctx, date, c.Hour)
	if err != nil {
		return err
	}
	app.printf("Registered %s %s - %s\n", created.Date, created.Start, created.End)
	return nil
}
