// Package replay plays a recorded trace back as a device session.
package replay

import (
	"context"
	"sync"
	"time"

	"github.com/juruen/sigpad/encoding/trace"
	"github.com/juruen/sigpad/log"
	"github.com/juruen/sigpad/model"
)

// Device streams its samples once a callback is registered after
// Connect. Samples reported while nothing is registered are lost, like
// pen movement on a real tablet nobody listens to.
type Device struct {
	path     string
	samples  []model.Sample
	interval time.Duration

	mu        sync.Mutex
	connected bool
	started   bool
	fn        func(model.Sample)
	done      chan struct{}
	stop      chan struct{}
	stopOnce  sync.Once
}

type Option func(*Device)

// WithInterval waits d between samples. The default is no wait.
func WithInterval(d time.Duration) Option {
	return func(dev *Device) {
		dev.interval = d
	}
}

// New plays samples.
func New(samples []model.Sample, opts ...Option) *Device {
	d := &Device{
		samples: samples,
		done:    make(chan struct{}),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewFile plays the trace stored at path, loaded on Connect.
func NewFile(path string, opts ...Option) *Device {
	d := New(nil, opts...)
	d.path = path
	return d
}

func (d *Device) Connect(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.path != "" && d.samples == nil {
		t, err := trace.ReadFile(d.path)
		if err != nil {
			return false, err
		}
		d.samples = t.Samples
	}
	d.connected = true
	log.Trace.Printf("replay: connected, %d samples", len(d.samples))
	return true, nil
}

func (d *Device) ConfigurePen(color model.RGBA, width float64) error {
	log.Trace.Printf("replay: pen %s width %g", color.Hex(), width)
	return nil
}

func (d *Device) ClearDisplay() error {
	return nil
}

func (d *Device) SetWritingMode(mode int) error {
	log.Trace.Printf("replay: writing mode %d", mode)
	return nil
}

func (d *Device) OnSample(fn func(model.Sample)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.fn = fn
	if fn != nil && d.connected && !d.started {
		d.started = true
		go d.run()
	}
}

func (d *Device) current() func(model.Sample) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn
}

func (d *Device) run() {
	defer close(d.done)

	for _, s := range d.samples {
		if d.interval > 0 {
			select {
			case <-d.stop:
				return
			case <-time.After(d.interval):
			}
		} else {
			select {
			case <-d.stop:
				return
			default:
			}
		}

		if fn := d.current(); fn != nil {
			fn(s)
		}
	}
	log.Trace.Println("replay: trace finished")
}

// Done is closed once every sample has been delivered or the device was
// closed after starting.
func (d *Device) Done() <-chan struct{} {
	return d.done
}

func (d *Device) Close() error {
	d.stopOnce.Do(func() { close(d.stop) })
	return nil
}
