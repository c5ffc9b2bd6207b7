package shell

import (
	"github.com/abiosoft/ishell"
	"github.com/pkg/errors"

	"github.com/juruen/sigpad/capture"
)

func openCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name:    "open",
		Aliases: []string{"sign"},
		Help:    "open the signature capture and connect the pad",
		Func: func(c *ishell.Context) {
			defer c.SetPrompt(ctx.prompt())

			err := ctx.Session.Open(ctx.context())
			switch {
			case err == nil:
				c.Println("pad ready, sign and type save")
			case errors.Is(err, capture.ErrTriggerDisabled):
				c.Err(errors.New("delivery already confirmed"))
			default:
				c.Err(err)
			}
		},
	}
}

func saveCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name:    "save",
		Aliases: []string{"confirm"},
		Help:    "submit the signature with the delivery form",
		Func: func(c *ishell.Context) {
			defer c.SetPrompt(ctx.prompt())

			outcome, err := ctx.Session.Finalize(ctx.context())
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(outcome)
		},
	}
}

func cancelCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name:    "cancel",
		Aliases: []string{"close"},
		Help:    "discard the signature and close the capture",
		Func: func(c *ishell.Context) {
			defer c.SetPrompt(ctx.prompt())

			if err := ctx.Session.Cancel(); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}
}
