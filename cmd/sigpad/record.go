package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/juruen/sigpad/device"
	"github.com/juruen/sigpad/encoding/trace"
	"github.com/juruen/sigpad/log"
	"github.com/juruen/sigpad/model"
)

// recorder collects the raw samples of a device.
type recorder struct {
	mu      sync.Mutex
	samples []model.Sample
}

func (r *recorder) add(s model.Sample) {
	r.mu.Lock()
	r.samples = append(r.samples, s)
	r.mu.Unlock()
}

func (r *recorder) trace() *trace.Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &trace.Trace{Version: trace.V2, Samples: append([]model.Sample(nil), r.samples...)}
}

func writeTrace(t *trace.Trace, path string, text bool) error {
	var data []byte
	var err error
	if text {
		data, err = t.MarshalText()
	} else {
		data, err = t.MarshalBinary()
	}
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "can't write %s", path)
}

// record collects samples from dev until it finishes or ctx is done. The
// device is closed on return.
func record(ctx context.Context, dev device.Session) (*trace.Trace, error) {
	if c, ok := dev.(io.Closer); ok {
		defer func() {
			if err := c.Close(); err != nil {
				log.Warning.Printf("closing device: %v", err)
			}
		}()
	}

	ok, err := dev.Connect(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("no pen tablet found")
	}

	rec := &recorder{}
	dev.OnSample(rec.add)
	defer dev.OnSample(nil)
	log.Info.Println("recording, press ctrl-c to stop")

	if f, ok := dev.(finisher); ok {
		select {
		case <-f.Done():
		case <-ctx.Done():
		}
	} else {
		<-ctx.Done()
	}
	return rec.trace(), nil
}

func newRecordCmd(opts *options) *cobra.Command {
	var (
		output   string
		text     bool
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:         "record",
		Short:       "record the raw pen samples of the device to a trace file",
		Annotations: map[string]string{offline: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return errors.New("missing output file")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			dev, err := newDevice(opts.cfg)
			if err != nil {
				return err
			}
			t, err := record(ctx, dev)
			if err != nil {
				return err
			}

			log.Info.Printf("writing %d samples to %s", len(t.Samples), output)
			return writeTrace(t, output, text)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "trace file to write")
	cmd.Flags().BoolVarP(&text, "text", "t", false, "write the text format")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "stop after this long")
	return cmd
}
