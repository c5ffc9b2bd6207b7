// Package device defines the digitizer session the capture controller
// drives. Implementations live in the sub packages.
package device

import (
	"context"

	"github.com/pkg/errors"

	"github.com/juruen/sigpad/model"
)

// Session is a connection to one pen tablet.
//
// Samples are delivered to the registered callback from a single
// goroutine, in the order the device reported them. Registering nil
// stops delivery. There is at most one registration at a time; a new one
// replaces the previous one.
type Session interface {
	// Connect asks for the device. It reports false when the device was
	// not selected or not usable and an error when connecting failed.
	Connect(ctx context.Context) (bool, error)

	// The mirroring calls reproduce the drawing setup on the device's
	// own display where it has one. They are best-effort.
	ConfigurePen(color model.RGBA, width float64) error
	ClearDisplay() error
	SetWritingMode(mode int) error

	OnSample(fn func(model.Sample))
}

var ErrNotConnected = errors.New("device not connected")
