package cli

import "counselportal/internal/session"

type LoginCmd struct {
	Username string `help:"Account username." required:""`
	Password string `help:"Account password." required:"" env:"PORTAL_PASSWORD"`
}

func (c *LoginCmd) Run(app *Context) error {
	u, err := app.Auth.Login(app.Ctx, c.Username, c.Password)
	if err != nil {
		return err
	}
	app.printf("Signed in as %s (%s)\n", u.DisplayName(), u.Role())
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(app *Context) error {
	if err := app.Auth.Logout(app.Ctx); err != nil {
		return err
	}
	app.printf("Signed out\n")
	return nil
}

type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(app *Context) error {
	if err := app.signedIn(); err != nil {
		return err
	}
	u, err := app.Session.UserInfo(app.Ctx)
	if err != nil {
		return err
	}
	if u == nil {
		return session.ErrMissingUserID
	}
	app.printf("%-10s %s\n", "ID", u.ID)
	app.printf("%-10s %s\n", "Username", u.Username)
	app.printf("%-10s %s\n", "Name", orDash(u.FullName))
	app.printf("%-10s %s\n", "Email", orDash(u.Email))
	app.printf("%-10s %s\n", "Phone", orDash(u.Phone))
	app.printf("%-10s %s\n", "Role", u.Role())
	return nil
}
