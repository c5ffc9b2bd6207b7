//go:build !linux

package evdev

import (
	"context"

	"github.com/pkg/errors"

	"github.com/juruen/sigpad/model"
)

type Device struct{}

func New(path string, axes Axes) *Device {
	return &Device{}
}

func (d *Device) Connect(ctx context.Context) (bool, error) {
	return false, errors.New("evdev devices are only available on linux")
}

func (d *Device) ConfigurePen(color model.RGBA, width float64) error { return nil }
func (d *Device) ClearDisplay() error { return nil }
func (d *Device) SetWritingMode(mode int) error { return nil }
func (d *Device) OnSample(fn func(model.Sample)) {}
func (d *Device) Close() error { return nil }
