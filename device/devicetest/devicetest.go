// Package devicetest provides a scripted device.Session for tests.
package devicetest

import (
	"context"
	"sync"

	"github.com/juruen/sigpad/model"
)

// Device delivers samples only when the test calls Emit.
type Device struct {
	// ConnectResult and ConnectErr are returned by Connect.
	ConnectResult bool
	ConnectErr    error
	// ConnectHook, when set, runs inside Connect before it returns.
	ConnectHook func(ctx context.Context)

	mu        sync.Mutex
	fn        func(model.Sample)
	connects  int
	pens      []model.Style
	clears    int
	modes     []int
	closed    bool
	mirrorErr error
}

// New returns a device that connects successfully.
func New() *Device {
	return &Device{ConnectResult: true}
}

// FailMirroring makes every mirroring call return err.
func (d *Device) FailMirroring(err error) {
	d.mu.Lock()
	d.mirrorErr = err
	d.mu.Unlock()
}

func (d *Device) Connect(ctx context.Context) (bool, error) {
	d.mu.Lock()
	d.connects++
	hook := d.ConnectHook
	d.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}
	return d.ConnectResult, d.ConnectErr
}

func (d *Device) ConfigurePen(color model.RGBA, width float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pens = append(d.pens, model.Style{Color: color, Width: width})
	return d.mirrorErr
}

func (d *Device) ClearDisplay() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clears++
	return d.mirrorErr
}

func (d *Device) SetWritingMode(mode int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modes = append(d.modes, mode)
	return d.mirrorErr
}

func (d *Device) OnSample(fn func(model.Sample)) {
	d.mu.Lock()
	d.fn = fn
	d.mu.Unlock()
}

func (d *Device) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// Emit delivers samples synchronously to the current registration. It
// reports false when nothing is registered.
func (d *Device) Emit(samples ...model.Sample) bool {
	d.mu.Lock()
	fn := d.fn
	d.mu.Unlock()

	if fn == nil {
		return false
	}
	for _, s := range samples {
		fn(s)
	}
	return true
}

// Callback returns the current registration, which lets tests deliver
// samples through a stale handle.
func (d *Device) Callback() func(model.Sample) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn
}

func (d *Device) Registered() bool {
	return d.Callback() != nil
}

func (d *Device) Connects() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connects
}

func (d *Device) Pens() []model.Style {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.Style(nil), d.pens...)
}

func (d *Device) Clears() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clears
}

func (d *Device) Modes() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.modes...)
}

func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
