package emailotp

import (
	"time"

	"gitlab.com/acme/acme-auth/internal/application/emailotp/cmd"
	"gitlab.com/acme/acme-auth/internal/application/emailotp/query"
	"gitlab.com/acme/acme-auth/pkg/env"
)

type App struct {
	CMD   Command
	Query Query
}

type Command struct {
	SendCode   *cmd.SendCodeHandler
	ResendCode *cmd.ResendCodeHandler
	VerifyCode *cmd.VerifyCodeHandler
}

type Query struct {
	GetCooldown *query.GetCooldownHandler
}

type Args struct {
	Mode          env.Mode
	Repo          cmd.VerificationRepo
	UserRepo      cmd.UserRepo
	SessionIssuer cmd.SessionIssuer

	CodeTTL        time.Duration
	ResendCooldown time.Duration
}

func NewApp(args Args) *App {
	return &App{
		CMD: Command{
			SendCode: cmd.NewSendCodeHandler(cmd.SendCodeHandlerArgs{
				Mode:           args.Mode,
				Repo:           args.Repo,
				CodeTTL:        args.CodeTTL,
				ResendCooldown: args.ResendCooldown,
			}),
			ResendCode: cmd.NewResendCodeHandler(cmd.ResendCodeHandlerArgs{
				Repo: args.Repo,
			}),
			VerifyCode: cmd.NewVerifyCodeHandler(cmd.VerifyCodeHandlerArgs{
				Repo:          args.Repo,
				UserRepo:      args.UserRepo,
				SessionIssuer: args.SessionIssuer,
			}),
		},
		Query: Query{
			GetCooldown: query.NewGetCooldownHandler(args.Repo),
		},
	}
}
