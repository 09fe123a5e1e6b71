package socialapp

import (
	"gitlab.com/acme/acme-auth/internal/application/social/cmd"
)

type App struct {
	CMD Command
}

type Command struct {
	Start    *cmd.StartHandler
	Callback *cmd.CallbackHandler
}

type Args struct {
	Providers     []cmd.Provider
	UserRepo      cmd.UserRepo
	AccountRepo   cmd.AccountRepo
	SessionIssuer cmd.SessionIssuer
}

func NewApp(args Args) *App {
	return &App{
		CMD: Command{
			Start: cmd.NewStartHandler(cmd.StartHandlerArgs{
				Providers: args.Providers,
			}),
			Callback: cmd.NewCallbackHandler(cmd.CallbackHandlerArgs{
				Providers:     args.Providers,
				UserRepo:      args.UserRepo,
				AccountRepo:   args.AccountRepo,
				SessionIssuer: args.SessionIssuer,
			}),
		},
	}
}
