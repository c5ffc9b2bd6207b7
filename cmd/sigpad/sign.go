package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/juruen/sigpad/device"
	"github.com/juruen/sigpad/log"
)

// finisher is implemented by devices with a natural end, like a replayed
// trace.
type finisher interface {
	Done() <-chan struct{}
}

// waitForSignature returns when the device has nothing more to send, or
// after wait for devices that never finish.
func waitForSignature(ctx context.Context, dev device.Session, wait time.Duration) error {
	var done <-chan struct{}
	if f, ok := dev.(finisher); ok {
		done = f.Done()
	} else {
		t := time.NewTimer(wait)
		defer t.Stop()
		ch := make(chan struct{})
		go func() {
			select {
			case <-t.C:
				close(ch)
			case <-ctx.Done():
			}
		}()
		done = ch
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newSignCmd(opts *options) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "capture one signature and confirm the delivery without a console",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := newStation(opts.cfg, os.Stdout)
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(ctx)
			finished := make(chan struct{})

			g.Go(func() error {
				defer close(finished)

				if err := st.ctrl.Open(ctx); err != nil {
					return err
				}
				if err := waitForSignature(ctx, st.device, wait); err != nil {
					st.ctrl.Cancel()
					return errors.Wrap(err, "signature not finished")
				}

				outcome, err := st.ctrl.Finalize(ctx)
				if err != nil {
					return err
				}
				if !outcome.OK() {
					return errors.Errorf("delivery not confirmed: %s", outcome)
				}
				return nil
			})

			g.Go(func() error {
				select {
				case <-finished:
				case <-ctx.Done():
					log.Info.Println("stopping")
				}
				return st.ctrl.Shutdown()
			})

			return g.Wait()
		},
	}
	cmd.Flags().DurationVarP(&wait, "wait", "w", 10*time.Second, "time to sign on devices without an end")
	return cmd
}
