package shell

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/pkg/errors"

	"github.com/juruen/sigpad/form"
)

// setField sets key to the values after it. With appending the values
// are added to the existing ones.
func setField(f *form.Static, args []string, appending bool) error {
	if len(args) < 2 {
		return errors.New("usage: field set [-a] <name> <value>...")
	}
	key := args[0]
	if strings.TrimSpace(key) == "" {
		return errors.New("empty field name")
	}
	if !appending {
		f.Del(key)
	}
	for _, v := range args[1:] {
		f.Add(key, v)
	}
	return nil
}

func writeFields(w io.Writer, f *form.Static, asJSON bool) error {
	values, err := f.Snapshot()
	if err != nil {
		return err
	}

	if asJSON {
		output, err := json.MarshalIndent(values, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(output))
		return err
	}

	for _, k := range form.Keys(values) {
		fmt.Fprintf(w, "%s=%s\n", k, strings.Join(values[k], ","))
	}
	return nil
}

func fieldCmd(ctx *ShellCtxt) *ishell.Cmd {
	cmd := &ishell.Cmd{
		Name: "field",
		Help: "edit the delivery form sent with the signature",
	}

	cmd.AddCmd(&ishell.Cmd{
		Name: "set",
		Help: "set a form field",
		Func: func(c *ishell.Context) {
			flagSet := flag.NewFlagSet("set", flag.ContinueOnError)
			appending := flagSet.Bool("a", false, "add to the existing values")
			if err := flagSet.Parse(c.Args); err != nil {
				if err != flag.ErrHelp {
					c.Err(err)
				}
				return
			}

			if err := setField(ctx.Form, flagSet.Args(), *appending); err != nil {
				c.Err(err)
			}
		},
	})

	cmd.AddCmd(&ishell.Cmd{
		Name: "del",
		Help: "remove a form field",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(errors.New("missing field name"))
				return
			}
			for _, k := range c.Args {
				ctx.Form.Del(k)
			}
		},
	})

	cmd.AddCmd(&ishell.Cmd{
		Name: "show",
		Help: "list the form fields",
		Func: func(c *ishell.Context) {
			flagSet := flag.NewFlagSet("show", flag.ContinueOnError)
			asJSON := flagSet.Bool("j", ctx.JSONOutput, "json output")
			if err := flagSet.Parse(c.Args); err != nil {
				if err != flag.ErrHelp {
					c.Err(err)
				}
				return
			}

			if err := writeFields(shellWriter{c}, ctx.Form, *asJSON); err != nil {
				c.Err(err)
			}
		},
	})

	return cmd
}
