// Package capture runs the signing session: it opens the capture modal,
// arms the device, feeds pen samples through the stroke reconstructor
// onto the drawing surface and hands the finished raster to the
// submitter.
package capture

import (
	"context"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/juruen/sigpad/device"
	"github.com/juruen/sigpad/form"
	"github.com/juruen/sigpad/log"
	"github.com/juruen/sigpad/model"
	"github.com/juruen/sigpad/stroke"
	"github.com/juruen/sigpad/surface"
	"github.com/juruen/sigpad/ui"
)

type State int

const (
	Closed State = iota
	Opening
	Armed
	Finalizing
	Cancelling
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Opening:
		return "opening"
	case Armed:
		return "armed"
	case Finalizing:
		return "finalizing"
	case Cancelling:
		return "cancelling"
	}
	return "unknown"
}

var (
	ErrDeviceConnection   = errors.New("device connection failed")
	ErrSessionActive      = errors.New("capture session already active")
	ErrTriggerDisabled    = errors.New("capture trigger disabled")
	ErrNotArmed           = errors.New("capture session not armed")
	ErrSubmissionInFlight = errors.New("submission in flight")
	ErrCancelled          = errors.New("capture cancelled")
)

// Messages shown to the signer.
var (
	MsgDeviceConnection = "Could not connect to the signature pad"
	MsgFormUnavailable  = "Could not read the delivery form"
)

// DefaultWritingMode is the device writing mode set on arm.
const DefaultWritingMode = 1

// Submitter posts a finished raster with the form fields.
type Submitter interface {
	Submit(ctx context.Context, raster []byte, fields url.Values) model.Outcome
}

type Config struct {
	// Style is applied to the surface and mirrored to the device on
	// every arm. The zero value means model.DefaultStyle.
	Style       model.Style
	WritingMode int
	// SettleDelay is waited after the device connects and before it is
	// configured.
	SettleDelay time.Duration
}

// Deps are the collaborators of a controller. All of them are required.
type Deps struct {
	Device    device.Session
	Surface   *surface.Surface
	Submitter Submitter
	Form      form.Source
	Modal     ui.Modal
	Trigger   ui.Trigger
	Notifier  ui.Notifier
}

func (d Deps) validate() error {
	switch {
	case d.Device == nil:
		return errors.New("capture: device is required")
	case d.Surface == nil:
		return errors.New("capture: surface is required")
	case d.Submitter == nil:
		return errors.New("capture: submitter is required")
	case d.Form == nil:
		return errors.New("capture: form source is required")
	case d.Modal == nil:
		return errors.New("capture: modal is required")
	case d.Trigger == nil:
		return errors.New("capture: trigger is required")
	case d.Notifier == nil:
		return errors.New("capture: notifier is required")
	}
	return nil
}

// Status is a point in time view of the controller.
type Status struct {
	State     State
	SessionID string
	Pen       stroke.PenState
	Strokes   int
	Segments  int
	Samples   int
	// Submissions counts finalize calls that reached the submitter.
	Submissions int
	Last        model.Outcome
}

type Controller struct {
	cfg  Config
	deps Deps

	ctx  context.Context
	stop context.CancelFunc

	mu          sync.Mutex
	state       State
	gen         uint64
	id          string
	openCancel  context.CancelFunc
	strokes     stroke.Reconstructor
	samples     int
	submissions int
	last        model.Outcome
}

func New(cfg Config, deps Deps) (*Controller, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if cfg.Style == (model.Style{}) {
		cfg.Style = model.DefaultStyle
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Controller{
		cfg:  cfg,
		deps: deps,
		ctx:  ctx,
		stop: stop,
	}, nil
}

// bind returns a context canceled when either ctx or the controller is
// done.
func (c *Controller) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	unbind := context.AfterFunc(c.ctx, cancel)
	return ctx, func() {
		unbind()
		cancel()
	}
}

// Open shows the capture modal, connects the device and arms the
// session. It returns once the session is armed or the attempt failed.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	if !c.deps.Trigger.Enabled() {
		c.mu.Unlock()
		return ErrTriggerDisabled
	}
	if c.state != Closed {
		state := c.state
		c.mu.Unlock()
		return errors.Wrapf(ErrSessionActive, "session is %s", state)
	}
	if err := c.ctx.Err(); err != nil {
		c.mu.Unlock()
		return errors.Wrap(err, "controller shut down")
	}

	c.gen++
	gen := c.gen
	c.id = uuid.NewString()
	id := c.id
	c.state = Opening
	ctx, cancel := c.bind(ctx)
	defer cancel()
	c.openCancel = cancel
	c.deps.Modal.Show()
	c.mu.Unlock()

	log.Info.Printf("capture %s: connecting device", id)
	ok, err := c.deps.Device.Connect(ctx)

	c.mu.Lock()
	if c.gen != gen || c.state != Opening {
		c.mu.Unlock()
		log.Info.Printf("capture %s: cancelled while connecting", id)
		return ErrCancelled
	}
	if err != nil || !ok {
		if err == nil {
			err = errors.New("device not selected")
		}
		c.teardown()
		c.mu.Unlock()

		log.Error.Printf("capture %s: %v", id, err)
		c.deps.Notifier.Notify(MsgDeviceConnection, ui.KindError)
		return errors.Wrap(ErrDeviceConnection, err.Error())
	}
	c.mu.Unlock()

	err = settle(ctx, c.cfg.SettleDelay)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.state != Opening {
		log.Info.Printf("capture %s: cancelled while settling", id)
		return ErrCancelled
	}
	if err != nil {
		c.teardown()
		return errors.Wrap(ErrCancelled, err.Error())
	}

	c.arm(gen)
	log.Info.Printf("capture %s: armed", id)
	return nil
}

func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// arm must be called with c.mu held.
func (c *Controller) arm(gen uint64) {
	c.strokes.Reset()
	c.samples = 0
	c.deps.Surface.Clear()
	c.deps.Surface.Configure(c.cfg.Style)

	dev := c.deps.Device
	if err := dev.ConfigurePen(c.cfg.Style.Color, c.cfg.Style.Width); err != nil {
		log.Warning.Printf("capture %s: configure pen: %v", c.id, err)
	}
	if err := dev.ClearDisplay(); err != nil {
		log.Warning.Printf("capture %s: clear display: %v", c.id, err)
	}
	if err := dev.SetWritingMode(c.cfg.WritingMode); err != nil {
		log.Warning.Printf("capture %s: set writing mode: %v", c.id, err)
	}

	c.state = Armed
	c.openCancel = nil
	dev.OnSample(func(s model.Sample) {
		c.sample(gen, s)
	})
}

// sample applies one device report. Reports that belong to an earlier
// session or arrive outside Armed are dropped.
func (c *Controller) sample(gen uint64, s model.Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen || c.state != Armed {
		log.Trace.Printf("capture: dropping %s", s)
		return
	}
	c.samples++
	if seg, ok := c.strokes.Feed(s); ok {
		c.deps.Surface.DrawSegment(seg)
	}
}

// Finalize exports the drawing, submits it with the current form values
// and closes the session whatever the outcome. The error is only set
// when nothing was submitted.
func (c *Controller) Finalize(ctx context.Context) (model.Outcome, error) {
	c.mu.Lock()
	switch c.state {
	case Armed:
	case Finalizing:
		c.mu.Unlock()
		return model.Outcome{}, ErrSubmissionInFlight
	default:
		state := c.state
		c.mu.Unlock()
		return model.Outcome{}, errors.Wrapf(ErrNotArmed, "session is %s", state)
	}

	c.state = Finalizing
	c.deps.Device.OnSample(nil)
	id := c.id

	raster, err := c.deps.Surface.Export()
	if err != nil {
		c.teardown()
		c.mu.Unlock()
		return model.Outcome{}, errors.Wrap(err, "can't export signature")
	}
	log.Info.Printf("capture %s: finalizing, %d strokes, %d segments", id, c.strokes.Strokes(), c.strokes.Segments())

	fields, err := c.deps.Form.Snapshot()
	if err != nil {
		c.teardown()
		c.mu.Unlock()
		log.Error.Printf("capture %s: %v", id, err)
		c.deps.Notifier.Notify(MsgFormUnavailable, ui.KindError)
		return model.Outcome{}, errors.Wrap(err, "can't read form")
	}
	c.submissions++
	c.mu.Unlock()

	subCtx, cancel := c.bind(ctx)
	outcome := c.deps.Submitter.Submit(subCtx, raster, fields)
	cancel()

	c.mu.Lock()
	c.last = outcome
	c.teardown()
	c.mu.Unlock()

	log.Info.Printf("capture %s: %s", id, outcome)
	return outcome, nil
}

// Cancel closes the session without submitting. A submission in flight
// is left to complete.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Closed:
		return nil
	case Finalizing:
		return ErrSubmissionInFlight
	case Opening:
		if c.openCancel != nil {
			c.openCancel()
		}
	}

	log.Info.Printf("capture %s: cancelled in %s", c.id, c.state)
	c.state = Cancelling
	c.teardown()
	return nil
}

// teardown returns to Closed and must be called with c.mu held.
func (c *Controller) teardown() {
	c.deps.Device.OnSample(nil)
	c.deps.Surface.Clear()
	c.deps.Surface.Configure(c.cfg.Style)
	c.strokes.Reset()
	c.deps.Modal.Hide()
	c.openCancel = nil
	c.gen++
	c.state = Closed
}

// Shutdown aborts any pending connect or submission, closes the session
// and closes the device when it can be closed. The controller can't be
// opened again.
func (c *Controller) Shutdown() error {
	c.stop()

	c.mu.Lock()
	switch c.state {
	case Opening, Armed:
		c.teardown()
	}
	c.deps.Device.OnSample(nil)
	c.mu.Unlock()

	if closer, ok := c.deps.Device.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Status{
		State:       c.state,
		SessionID:   c.id,
		Pen:         c.strokes.State(),
		Strokes:     c.strokes.Strokes(),
		Segments:    c.strokes.Segments(),
		Samples:     c.samples,
		Submissions: c.submissions,
		Last:        c.last,
	}
}
