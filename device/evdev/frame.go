// Package evdev reads a pen tablet through the Linux input event
// interface (/dev/input/eventN).
package evdev

import "github.com/juruen/sigpad/model"

// Linux input event constants, see linux/input-event-codes.h.
const (
	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03

	synReport  = 0x00
	synDropped = 0x03

	absX = 0x00
	absY = 0x01

	btnTouch = 0x14a
)

// Axes maps device units onto surface pixels. A zero MaxX or MaxY is
// read from the device on Connect.
type Axes struct {
	MinX, MinY    int32
	MaxX, MaxY    int32
	Width, Height int
}

// ranged reports whether both axis ranges are known.
func (a Axes) ranged() bool {
	return a.MaxX > a.MinX && a.MaxY > a.MinY
}

// absInfo matches the Linux input_absinfo struct.
type absInfo struct {
	Value      int32
	Minimum    int32
	Maximum    int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

// withRanges fills the unset axes from what the device reports.
func (a Axes) withRanges(x, y absInfo) Axes {
	if a.MaxX == 0 {
		a.MinX, a.MaxX = x.Minimum, x.Maximum
	}
	if a.MaxY == 0 {
		a.MinY, a.MaxY = y.Minimum, y.Maximum
	}
	return a
}

func (a Axes) scale(x, y int32) (float64, float64) {
	fx, fy := float64(x), float64(y)
	if a.MaxX > a.MinX && a.Width > 0 {
		fx = (fx - float64(a.MinX)) * float64(a.Width) / float64(a.MaxX-a.MinX)
	}
	if a.MaxY > a.MinY && a.Height > 0 {
		fy = (fy - float64(a.MinY)) * float64(a.Height) / float64(a.MaxY-a.MinY)
	}
	return fx, fy
}

// frame assembles input events into one sample per SYN_REPORT.
type frame struct {
	axes    Axes
	contact bool
	x, y    int32
	dirty   bool
	dropped bool
}

// feed consumes one event and reports a sample when a frame completes.
func (f *frame) feed(typ, code uint16, value int32) (model.Sample, bool) {
	switch typ {
	case evKey:
		if code == btnTouch {
			f.contact = value != 0
			f.dirty = true
		}
	case evAbs:
		switch code {
		case absX:
			f.x = value
			f.dirty = true
		case absY:
			f.y = value
			f.dirty = true
		}
	case evSyn:
		switch code {
		case synDropped:
			// the kernel buffer overflowed: the partial state is
			// unreliable, so the stroke is ended at the next report
			f.dropped = true
		case synReport:
			if f.dropped {
				f.dropped, f.dirty = false, false
				return model.Up(), true
			}
			if !f.dirty {
				return model.Sample{}, false
			}
			f.dirty = false
			if !f.contact {
				return model.Up(), true
			}
			x, y := f.axes.scale(f.x, f.y)
			return model.Down(x, y), true
		}
	}
	return model.Sample{}, false
}
