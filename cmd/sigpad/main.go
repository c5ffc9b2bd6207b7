// sigpad runs a signing station: it captures a signature from a pen
// tablet and confirms a delivery with it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/juruen/sigpad/config"
	"github.com/juruen/sigpad/log"
)

// offline marks commands that run without an endpoint.
const offline = "offline"

type options struct {
	configPath string
	cfg        config.Config
}

func newRoot() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "sigpad",
		Short:         "signature capture station",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read(opts.configPath)
			if err != nil {
				return err
			}
			if cmd.Annotations[offline] != "" {
				err = cfg.ValidateLocal()
			} else {
				err = cfg.Validate()
			}
			if err != nil {
				return err
			}
			opts.cfg = cfg
			log.Init(cfg.LogLevel(), cfg.Log.Format == "json")
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default $SIGPAD_CONFIG or the user config dir)")

	root.AddCommand(
		newShellCmd(opts),
		newSignCmd(opts),
		newRecordCmd(opts),
	)
	return root
}

func main() {
	if err := newRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sigpad:", err)
		os.Exit(1)
	}
}
