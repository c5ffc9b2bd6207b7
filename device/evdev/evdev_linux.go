//go:build linux

package evdev

import (
	"bufio"
	"context"
	"encoding/binary"
	"os"
	"strings"
	"sync"
	"syscall"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/juruen/sigpad/log"
	"github.com/juruen/sigpad/model"
)

// inputEvent matches the Linux input_event struct.
type inputEvent struct {
	Time  syscall.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

type Device struct {
	path string
	axes Axes

	mu   sync.Mutex
	file *os.File
	fn   func(model.Sample)
}

// New opens path on Connect. An empty path picks the first tablet listed
// in /proc/bus/input/devices.
func New(path string, axes Axes) *Device {
	return &Device{path: path, axes: axes}
}

func (d *Device) Connect(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file != nil {
		return true, nil
	}

	path := d.path
	if path == "" {
		found, err := findTablet()
		if err != nil {
			return false, err
		}
		if found == "" {
			log.Warning.Println("evdev: no tablet found")
			return false, nil
		}
		path = found
	}

	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "can't open %s (need to be in 'input' group or run as root)", path)
	}

	axes := d.axes
	if !axes.ranged() {
		axes, err = queryAxes(f, axes)
		if err != nil {
			f.Close()
			return false, errors.Wrapf(err, "can't read the axis ranges of %s, set device max_x and max_y", path)
		}
	}

	d.file = f
	go d.readLoop(f, axes)
	log.Info.Printf("evdev: reading %s, x %d..%d, y %d..%d", path, axes.MinX, axes.MaxX, axes.MinY, axes.MaxY)
	return true, nil
}

// eviocgabs is the EVIOCGABS(axis) request, _IOR('E', 0x40+axis, input_absinfo).
func eviocgabs(axis uintptr) uintptr {
	const iocRead = 2
	return iocRead<<30 | unsafe.Sizeof(absInfo{})<<16 | 'E'<<8 | (0x40 + axis)
}

func queryAxes(f *os.File, axes Axes) (Axes, error) {
	conn, err := f.SyscallConn()
	if err != nil {
		return axes, err
	}

	var x, y absInfo
	var errno syscall.Errno
	err = conn.Control(func(fd uintptr) {
		for _, q := range []struct {
			axis uintptr
			info *absInfo
		}{{absX, &x}, {absY, &y}} {
			_, _, errno = unix.Syscall(unix.SYS_IOCTL, fd, eviocgabs(q.axis), uintptr(unsafe.Pointer(q.info)))
			if errno != 0 {
				return
			}
		}
	})
	if err != nil {
		return axes, err
	}
	if errno != 0 {
		return axes, errno
	}

	axes = axes.withRanges(x, y)
	if !axes.ranged() {
		return axes, errors.Errorf("device reports empty axis ranges x %d..%d, y %d..%d", axes.MinX, axes.MaxX, axes.MinY, axes.MaxY)
	}
	return axes, nil
}

// The tablet has no display of its own; the mirroring calls do nothing.

func (d *Device) ConfigurePen(color model.RGBA, width float64) error { return nil }
func (d *Device) ClearDisplay() error { return nil }
func (d *Device) SetWritingMode(mode int) error { return nil }

func (d *Device) OnSample(fn func(model.Sample)) {
	d.mu.Lock()
	d.fn = fn
	d.mu.Unlock()
}

func (d *Device) readLoop(f *os.File, axes Axes) {
	r := bufio.NewReader(f)
	fr := frame{axes: axes}
	for {
		var ev inputEvent
		if err := binary.Read(r, binary.LittleEndian, &ev); err != nil {
			log.Trace.Printf("evdev: read loop ends: %v", err)
			return
		}

		s, ok := fr.feed(ev.Type, ev.Code, ev.Value)
		if !ok {
			continue
		}

		d.mu.Lock()
		fn := d.fn
		d.mu.Unlock()
		if fn != nil {
			fn(s)
		}
	}
}

func (d *Device) Close() error {
	d.mu.Lock()
	f := d.file
	d.file = nil
	d.mu.Unlock()

	if f == nil {
		return nil
	}
	return f.Close()
}

// findTablet scans /proc/bus/input/devices for a device reporting
// absolute axes whose name looks like a pen tablet.
func findTablet() (string, error) {
	f, err := os.Open("/proc/bus/input/devices")
	if err != nil {
		return "", errors.Wrap(err, "can't list input devices")
	}
	defer f.Close()
	return parseDevices(bufio.NewScanner(f))
}

func parseDevices(scanner *bufio.Scanner) (string, error) {
	var handler string
	var name string
	hasAbs := false

	flush := func() string {
		defer func() { handler, name, hasAbs = "", "", false }()
		if handler == "" || !hasAbs {
			return ""
		}
		n := strings.ToLower(name)
		for _, hint := range []string{"pen", "stylus", "tablet", "wacom", "digitizer"} {
			if strings.Contains(n, hint) {
				return handler
			}
		}
		return ""
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "N: Name="):
			name = strings.Trim(strings.TrimPrefix(line, "N: Name="), `"`)
		case strings.HasPrefix(line, "H: Handlers="):
			for _, part := range strings.Fields(line) {
				if strings.HasPrefix(part, "event") {
					handler = "/dev/input/" + part
				}
			}
		case strings.HasPrefix(line, "B: ABS="):
			hasAbs = true
		case line == "":
			if dev := flush(); dev != "" {
				return dev, nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return flush(), nil
}
