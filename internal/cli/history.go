package cli

import (
	"counselportal/internal/appointment"
	"counselportal/internal/render"
)

type HistoryCmd struct {
	Status string `help:"Status filter: all, CONFIRMED, COMPLETED or CANCELLED." default:"all"`
	Sort   string `help:"Sort column." default:"appointmentDate" enum:"customerName,topicName,appointmentDate,appointmentTime,status,consultantNote"`
	Asc    bool   `help:"Sort ascending (newest first otherwise)."`
	Export string `help:"Write the filtered history to an .xlsx file instead of printing it." type:"path"`
	Page   int    `help:"Page to show." default:"1"`
	Size   int    `help:"Rows per page." default:"8"`
}

func (c *HistoryCmd) Run(app *Context) error {
	u, err := app.consultant()
	if err != nil {
		return err
	}
	list, err := app.Client.ConsultantHistory(app.Ctx, string(u.ID))
	if err != nil {
		return err
	}
	list = appointment.SortHistory(appointment.FilterByStatus(list, c.Status), appointment.ParseColumn(c.Sort), !c.Asc)

	if c.Export != "" {
		if err := render.ExportHistoryFile(c.Export, list); err != nil {
			return err
		}
		app.printf("Exported %d appointments to %s\n", len(list), c.Export)
		return nil
	}
	app.printf("%s", render.History(list, c.Page, c.Size, app.now(), app.Loc))
	return nil
}

type DashboardCmd struct{}

func (c *DashboardCmd) Run(app *Context) error {
	if _, err := app.consultant(); err != nil {
		return err
	}
	snap, err := app.dashboard().Refresh(app.Ctx)
	if err != nil {
		return err
	}
	app.printf("%s", render.Dashboard(snap, app.now(), app.Loc))
	return nil
}

type AuditExportCmd struct {
	File string `arg:"" help:"Target .xlsx file." type:"path"`
}

func (c *AuditExportCmd) Run(app *Context) error {
	n, err := app.Audit.ExportFile(c.File, app.Loc)
	if err != nil {
		return err
	}
	app.printf("Exported %d audit entries to %s\n", n, c.File)
	return nil
}
