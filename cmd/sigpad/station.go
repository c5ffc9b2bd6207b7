package main

import (
	"io"

	"github.com/pkg/errors"

	"github.com/juruen/sigpad/capture"
	"github.com/juruen/sigpad/config"
	"github.com/juruen/sigpad/device"
	"github.com/juruen/sigpad/device/evdev"
	"github.com/juruen/sigpad/device/replay"
	"github.com/juruen/sigpad/form"
	"github.com/juruen/sigpad/submit"
	"github.com/juruen/sigpad/surface"
	"github.com/juruen/sigpad/ui"
)

// station is one signing station wired from the config.
type station struct {
	ctrl    *capture.Controller
	device  device.Session
	form    *form.Static
	trigger *ui.Button
}

func newDevice(cfg config.Config) (device.Session, error) {
	switch cfg.Device.Kind {
	case config.DeviceReplay:
		return replay.NewFile(cfg.Device.Path, replay.WithInterval(cfg.Device.Interval.Std())), nil
	case config.DeviceEvdev:
		return evdev.New(cfg.Device.Path, evdev.Axes{
			MaxX:   cfg.Device.MaxX,
			MaxY:   cfg.Device.MaxY,
			Width:  cfg.Canvas.Width,
			Height: cfg.Canvas.Height,
		}), nil
	}
	return nil, errors.Errorf("unknown device kind %q", cfg.Device.Kind)
}

func newStation(cfg config.Config, out io.Writer) (*station, error) {
	style, err := cfg.Style()
	if err != nil {
		return nil, err
	}
	dev, err := newDevice(cfg)
	if err != nil {
		return nil, err
	}

	fields := form.NewStatic(cfg.Form.Fields)
	var src form.Source = fields
	if cfg.Form.File != "" {
		src = form.Layered{form.File{Path: cfg.Form.File}, fields}
	}

	console := ui.NewConsole(out)
	trigger := &ui.Button{}
	modal := ui.NewToggle(console.Line("capture open"), console.Line("capture closed"))
	loading := ui.NewToggle(console.Line("sending..."), nil)

	coord, err := submit.New(submit.Config{
		Endpoint:          cfg.Endpoint,
		SignatureField:    cfg.SignatureField,
		DeliveryTypeField: cfg.DeliveryTypeField,
		DeliveryType:      cfg.DeliveryType,
		Token:             cfg.Token,
		Timeout:           cfg.Timeout.Std(),
	}, loading, trigger, console)
	if err != nil {
		return nil, err
	}

	surf := surface.New(cfg.Canvas.Width, cfg.Canvas.Height,
		surface.WithExportSize(cfg.Export.Width, cfg.Export.Height))

	ctrl, err := capture.New(capture.Config{
		Style:       style,
		WritingMode: cfg.Pen.WritingMode,
		SettleDelay: cfg.SettleDelay.Std(),
	}, capture.Deps{
		Device:    dev,
		Surface:   surf,
		Submitter: coord,
		Form:      src,
		Modal:     modal,
		Trigger:   trigger,
		Notifier:  console,
	})
	if err != nil {
		return nil, err
	}

	return &station{
		ctrl:    ctrl,
		device:  dev,
		form:    fields,
		trigger: trigger,
	}, nil
}
