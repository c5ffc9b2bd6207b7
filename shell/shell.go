// Package shell is the interactive console of a signing station. Each
// command maps to one event of the capture session.
package shell

import (
	"context"
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/juruen/sigpad/capture"
	"github.com/juruen/sigpad/form"
	"github.com/juruen/sigpad/model"
)

// Session is the part of the capture controller the shell drives.
type Session interface {
	Open(ctx context.Context) error
	Finalize(ctx context.Context) (model.Outcome, error)
	Cancel() error
	Status() capture.Status
}

type ShellCtxt struct {
	Ctx        context.Context
	Session    Session
	Form       *form.Static
	JSONOutput bool
}

func (ctx *ShellCtxt) prompt() string {
	return fmt.Sprintf("[sigpad %s]>", ctx.Session.Status().State)
}

func (ctx *ShellCtxt) context() context.Context {
	if ctx.Ctx == nil {
		return context.Background()
	}
	return ctx.Ctx
}

// RunShell runs args as a single command, or starts the interactive
// shell when there are none.
func RunShell(ctx *ShellCtxt, args []string) error {
	shell := ishell.New()

	shell.SetPrompt(ctx.prompt())
	shell.AddCmd(openCmd(ctx))
	shell.AddCmd(saveCmd(ctx))
	shell.AddCmd(cancelCmd(ctx))
	shell.AddCmd(statusCmd(ctx))
	shell.AddCmd(fieldCmd(ctx))

	if len(args) > 0 {
		return shell.Process(args...)
	}

	shell.Println("sigpad station, type help for commands")
	shell.Run()
	return nil
}
