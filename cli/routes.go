package cli

import (
	"strconv"

	actx "go.hackfix.me/gantry/app/context"
	aerrors "go.hackfix.me/gantry/app/errors"
)

// Routes lists the route groups a server would mount, without starting it.
type Routes struct {
	BaseURL   string `help:"Base URL to mount route groups under."`
	RoutesDir string `help:"Directory to load route plugins from."`
}

// Run the routes command.
func (c *Routes) Run(appCtx *actx.Context) error {
	srv, err := buildServer(appCtx, c.BaseURL, c.RoutesDir, false)
	if err != nil {
		return err
	}

	groups := srv.Groups()
	if len(groups) == 0 {
		return nil
	}

	data := make([][]string, 0, len(groups))
	for _, g := range groups {
		data = append(data, []string{
			srv.MountURL(g),
			strconv.Itoa(g.Len()),
			g.BaseURL(),
		})
	}

	err = renderTable([]string{"MOUNT URL", "HANDLERS", "BASE URL"}, data, appCtx.Stdout)
	if err != nil {
		return aerrors.WithCause(aerrors.NewWith("failed rendering routes table"), err)
	}

	return nil
}
