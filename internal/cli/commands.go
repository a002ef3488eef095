package cli

import "github.com/alecthomas/kong"

// CLI is the command tree of the portal binary.
type CLI struct {
	Globals
	Version kong.VersionFlag `help:"Print the version and exit."`

	Login    LoginCmd    `cmd:"" help:"Sign in and store the session tokens."`
	Logout   LogoutCmd   `cmd:"" help:"Sign out and clear the session."`
	Whoami   WhoamiCmd   `cmd:"" help:"Show the signed-in user."`
	Weeks    WeeksCmd    `cmd:"" help:"List the weeks of a year."`
	Schedule ScheduleCmd `cmd:"" help:"Show the week's slots and appointments."`
	Slot     struct {
		Register SlotRegisterCmd `cmd:"" help:"Register an available slot."`
	} `cmd:"" help:"Manage registered slots."`
	Appointment AppointmentCmd `cmd:"" help:"Act on an appointment."`
	History     HistoryCmd     `cmd:"" help:"List or export past appointments."`
	Dashboard   DashboardCmd   `cmd:"" help:"Show the consultant dashboard."`
	Audit       struct {
		Export AuditExportCmd `cmd:"" help:"Export the action trail to .xlsx."`
	} `cmd:"" help:"Consultant action trail."`
	Serve ServeCmd `cmd:"" help:"Keep dashboard data fresh and serve health and metrics endpoints."`
}
