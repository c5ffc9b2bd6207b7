package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/juruen/sigpad/log"
	"github.com/juruen/sigpad/shell"
)

func newShellCmd(opts *options) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "shell [command]",
		Short: "interactive station console, or run one console command",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := newStation(opts.cfg, os.Stdout)
			if err != nil {
				return err
			}
			defer func() {
				if err := st.ctrl.Shutdown(); err != nil {
					log.Warning.Printf("shutdown: %v", err)
				}
			}()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			return shell.RunShell(&shell.ShellCtxt{
				Ctx:        ctx,
				Session:    st.ctrl,
				Form:       st.form,
				JSONOutput: jsonOutput,
			}, args)
		},
	}
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "json output")
	return cmd
}
