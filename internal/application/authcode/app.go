package authcode

import (
	"time"

	"gitlab.com/ucmsv2/authcode-service/internal/application/authcode/cmd"
	"gitlab.com/ucmsv2/authcode-service/internal/application/authcode/query"
	"gitlab.com/ucmsv2/authcode-service/internal/domain/authcode"
)

type App struct {
	CMD   Command
	Query Query
}

type Command struct {
	RequestCode *cmd.RequestCodeHandler
}

type Query struct {
	VerifyCode *query.VerifyCodeHandler
}

type Args struct {
	Repo              cmd.Repo
	Notifier          cmd.Notifier
	Policy            authcode.Policy
	ConditionalInsert bool
	Now               func() time.Time
}

func NewApp(args Args) *App {
	return &App{
		CMD: Command{
			RequestCode: cmd.NewRequestCodeHandler(cmd.RequestCodeHandlerArgs{
				Repo:              args.Repo,
				Notifier:          args.Notifier,
				Policy:            args.Policy,
				ConditionalInsert: args.ConditionalInsert,
				Now:               args.Now,
			}),
		},
		Query: Query{
			VerifyCode: query.NewVerifyCodeHandler(query.VerifyCodeHandlerArgs{
				Finder: args.Repo,
				Now:    args.Now,
			}),
		},
	}
}
