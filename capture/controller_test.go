package capture

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/juruen/sigpad/device/devicetest"
	"github.com/juruen/sigpad/form"
	"github.com/juruen/sigpad/model"
	"github.com/juruen/sigpad/stroke"
	"github.com/juruen/sigpad/surface"
	"github.com/juruen/sigpad/ui"
)

type submitterMock struct {
	mock.Mock
}

func (m *submitterMock) Submit(ctx context.Context, raster []byte, fields url.Values) model.Outcome {
	args := m.Called(ctx, raster, fields)
	return args.Get(0).(model.Outcome)
}

type toast struct {
	message string
	kind    ui.Kind
}

type toasts struct {
	mu   sync.Mutex
	list []toast
}

func (t *toasts) Notify(message string, kind ui.Kind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.list = append(t.list, toast{message, kind})
}

func (t *toasts) all() []toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]toast(nil), t.list...)
}

type rig struct {
	ctrl    *Controller
	dev     *devicetest.Device
	surf    *surface.Surface
	modal   *ui.Toggle
	trigger *ui.Button
	toasts  *toasts
	form    *form.Static
}

func newRig(t *testing.T, sub Submitter) *rig {
	t.Helper()
	r := &rig{
		dev:     devicetest.New(),
		surf:    surface.New(100, 60),
		modal:   ui.NewToggle(nil, nil),
		trigger: &ui.Button{},
		toasts:  &toasts{},
		form:    form.NewStatic(map[string]string{"cantidad_entregada": "1"}),
	}
	ctrl, err := New(Config{WritingMode: DefaultWritingMode}, Deps{
		Device:    r.dev,
		Surface:   r.surf,
		Submitter: sub,
		Form:      r.form,
		Modal:     r.modal,
		Trigger:   r.trigger,
		Notifier:  r.toasts,
	})
	require.NoError(t, err)
	r.ctrl = ctrl
	t.Cleanup(func() { ctrl.Shutdown() })
	return r
}

func blank(img *image.RGBA) bool {
	for _, p := range img.Pix {
		if p != 0 {
			return false
		}
	}
	return true
}

var signatureSamples = []model.Sample{
	model.Down(10, 10),
	model.Down(20, 20),
	model.Up(),
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(Config{}, Deps{})
	assert.Error(t, err)
}

func TestOpenArms(t *testing.T) {
	r := newRig(t, &submitterMock{})
	r.surf.DrawSegment(model.Segment{FromX: 1, FromY: 1, ToX: 50, ToY: 50})
	r.surf.Configure(model.Style{Color: model.RGBA{R: 255, A: 255}, Width: 9})

	require.NoError(t, r.ctrl.Open(context.Background()))

	st := r.ctrl.Status()
	assert.Equal(t, Armed, st.State)
	assert.NotEmpty(t, st.SessionID)
	assert.Equal(t, stroke.Idle, st.Pen)
	assert.True(t, r.modal.Visible())
	assert.True(t, r.dev.Registered())
	assert.True(t, blank(r.surf.Image()))
	assert.Equal(t, model.DefaultStyle, r.surf.Style())
	assert.Equal(t, []model.Style{model.DefaultStyle}, r.dev.Pens())
	assert.Equal(t, 1, r.dev.Clears())
	assert.Equal(t, []int{DefaultWritingMode}, r.dev.Modes())
}

func TestMirroringFailuresDoNotBlockArming(t *testing.T) {
	r := newRig(t, &submitterMock{})
	r.dev.FailMirroring(errors.New("hid write failed"))

	require.NoError(t, r.ctrl.Open(context.Background()))
	assert.Equal(t, Armed, r.ctrl.Status().State)
	assert.True(t, r.dev.Registered())
}

func TestSamplesDrawWhileArmed(t *testing.T) {
	r := newRig(t, &submitterMock{})
	assert.False(t, r.dev.Emit(signatureSamples...), "nothing registered before open")

	require.NoError(t, r.ctrl.Open(context.Background()))
	require.True(t, r.dev.Emit(signatureSamples...))

	st := r.ctrl.Status()
	assert.Equal(t, 3, st.Samples)
	assert.Equal(t, 1, st.Strokes)
	assert.Equal(t, 1, st.Segments)
	assert.Equal(t, stroke.Idle, st.Pen)

	img := r.surf.Image()
	assert.NotZero(t, img.RGBAAt(15, 15).A)
	assert.Zero(t, img.RGBAAt(80, 50).A)
}

func TestStrokeLeavingAndReenteringCanvas(t *testing.T) {
	r := newRig(t, &submitterMock{})
	require.NoError(t, r.ctrl.Open(context.Background()))

	// out through the top edge at x=40, back in at x=75
	require.True(t, r.dev.Emit(
		model.Down(20, 40),
		model.Down(60, -40),
		model.Down(90, 40),
		model.Up(),
	))

	st := r.ctrl.Status()
	assert.Equal(t, 1, st.Strokes)
	assert.Equal(t, 2, st.Segments)

	img := r.surf.Image()
	assert.NotZero(t, img.RGBAAt(30, 18).A)
	assert.NotZero(t, img.RGBAAt(82, 19).A)
	assert.NotZero(t, img.RGBAAt(75, 0).A)
	assert.Zero(t, img.RGBAAt(60, 0).A)
	assert.Zero(t, img.RGBAAt(58, 1).A)
}

func TestReentrantOpenRejected(t *testing.T) {
	r := newRig(t, &submitterMock{})
	require.NoError(t, r.ctrl.Open(context.Background()))
	id := r.ctrl.Status().SessionID

	err := r.ctrl.Open(context.Background())
	assert.True(t, errors.Is(err, ErrSessionActive))
	assert.Equal(t, 1, r.dev.Connects())
	assert.Equal(t, id, r.ctrl.Status().SessionID)
	assert.Equal(t, Armed, r.ctrl.Status().State)
}

func TestConnectFailure(t *testing.T) {
	cases := []struct {
		name   string
		result bool
		err    error
	}{
		{"refused", false, nil},
		{"error", false, errors.New("permission denied")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := &submitterMock{}
			r := newRig(t, sub)
			r.dev.ConnectResult = tc.result
			r.dev.ConnectErr = tc.err

			err := r.ctrl.Open(context.Background())
			assert.True(t, errors.Is(err, ErrDeviceConnection))

			assert.Equal(t, Closed, r.ctrl.Status().State)
			assert.False(t, r.modal.Visible())
			assert.False(t, r.dev.Registered())
			assert.Empty(t, r.dev.Pens())
			assert.Equal(t, []toast{{MsgDeviceConnection, ui.KindError}}, r.toasts.all())

			_, err = r.ctrl.Finalize(context.Background())
			assert.True(t, errors.Is(err, ErrNotArmed))
			sub.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)

			// the signer may retry
			r.dev.ConnectResult, r.dev.ConnectErr = true, nil
			require.NoError(t, r.ctrl.Open(context.Background()))
			assert.Equal(t, Armed, r.ctrl.Status().State)
		})
	}
}

func TestCancelWhileConnecting(t *testing.T) {
	r := newRig(t, &submitterMock{})
	entered := make(chan struct{})
	r.dev.ConnectHook = func(ctx context.Context) {
		close(entered)
		<-ctx.Done()
	}

	errc := make(chan error, 1)
	go func() {
		errc <- r.ctrl.Open(context.Background())
	}()

	<-entered
	assert.Equal(t, Opening, r.ctrl.Status().State)
	require.NoError(t, r.ctrl.Cancel())

	select {
	case err := <-errc:
		assert.True(t, errors.Is(err, ErrCancelled))
	case <-time.After(5 * time.Second):
		t.Fatal("open did not return after cancel")
	}

	assert.Equal(t, Closed, r.ctrl.Status().State)
	assert.False(t, r.modal.Visible())
	assert.False(t, r.dev.Registered())
	assert.Empty(t, r.dev.Pens())
}

func TestCancelDuringSettleDelay(t *testing.T) {
	r := newRig(t, &submitterMock{})
	r.ctrl.cfg.SettleDelay = time.Hour

	errc := make(chan error, 1)
	go func() {
		errc <- r.ctrl.Open(context.Background())
	}()

	require.Eventually(t, func() bool {
		return r.dev.Connects() == 1 && r.ctrl.Status().State == Opening
	}, 5*time.Second, time.Millisecond)
	require.NoError(t, r.ctrl.Cancel())

	select {
	case err := <-errc:
		assert.True(t, errors.Is(err, ErrCancelled))
	case <-time.After(5 * time.Second):
		t.Fatal("open did not return after cancel")
	}
	assert.False(t, r.dev.Registered())
}

func TestCancelArmed(t *testing.T) {
	sub := &submitterMock{}
	r := newRig(t, sub)
	require.NoError(t, r.ctrl.Open(context.Background()))
	r.dev.Emit(model.Down(10, 10), model.Down(40, 40))

	require.NoError(t, r.ctrl.Cancel())

	st := r.ctrl.Status()
	assert.Equal(t, Closed, st.State)
	assert.Equal(t, stroke.Idle, st.Pen)
	assert.True(t, blank(r.surf.Image()))
	assert.False(t, r.modal.Visible())
	assert.False(t, r.dev.Registered())
	sub.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)

	assert.NoError(t, r.ctrl.Cancel(), "cancel when closed is a no-op")
}

func TestStaleCallbackIgnored(t *testing.T) {
	r := newRig(t, &submitterMock{})
	require.NoError(t, r.ctrl.Open(context.Background()))
	stale := r.dev.Callback()
	require.NoError(t, r.ctrl.Cancel())

	stale(model.Down(10, 10))
	stale(model.Down(50, 50))
	assert.True(t, blank(r.surf.Image()))

	require.NoError(t, r.ctrl.Open(context.Background()))
	stale(model.Down(10, 10))
	stale(model.Down(50, 50))

	st := r.ctrl.Status()
	assert.Zero(t, st.Samples)
	assert.Equal(t, stroke.Idle, st.Pen)
	assert.True(t, blank(r.surf.Image()))
}

func TestPenStateDoesNotLeakAcrossSessions(t *testing.T) {
	r := newRig(t, &submitterMock{})
	require.NoError(t, r.ctrl.Open(context.Background()))
	r.dev.Emit(model.Down(10, 10))
	require.NoError(t, r.ctrl.Cancel())

	require.NoError(t, r.ctrl.Open(context.Background()))
	r.dev.Emit(model.Down(90, 50))

	st := r.ctrl.Status()
	assert.Zero(t, st.Segments)
	assert.Equal(t, stroke.PenState{Tracking: true, X: 90, Y: 50}, st.Pen)
}

func TestFinalizeCleansUpOnEveryOutcome(t *testing.T) {
	outcomes := []model.Outcome{
		model.Success(),
		model.Failure("cantidad invalida"),
		model.TransportError("Could not connect to the server"),
	}

	for _, want := range outcomes {
		t.Run(want.Kind.String(), func(t *testing.T) {
			sub := &submitterMock{}
			r := newRig(t, sub)

			var raster []byte
			sub.On("Submit", mock.Anything, mock.Anything, mock.Anything).
				Run(func(args mock.Arguments) {
					raster = args.Get(1).([]byte)
					assert.Equal(t, Finalizing, r.ctrl.Status().State)
				}).
				Return(want).Once()

			require.NoError(t, r.ctrl.Open(context.Background()))
			r.dev.Emit(signatureSamples...)

			got, err := r.ctrl.Finalize(context.Background())
			require.NoError(t, err)
			assert.Equal(t, want, got)
			sub.AssertExpectations(t)

			img, err := png.Decode(bytes.NewReader(raster))
			require.NoError(t, err)
			_, _, _, a := img.At(15, 15).RGBA()
			assert.NotZero(t, a, "raster exported before reset")

			st := r.ctrl.Status()
			assert.Equal(t, Closed, st.State)
			assert.Equal(t, want, st.Last)
			assert.Equal(t, 1, st.Submissions)
			assert.Equal(t, stroke.Idle, st.Pen)
			assert.True(t, blank(r.surf.Image()))
			assert.False(t, r.dev.Registered())

			shows, hides := r.modal.Counts()
			assert.Equal(t, 1, shows)
			assert.Equal(t, 1, hides)
		})
	}
}

func TestFinalizeReadsFormAtSubmission(t *testing.T) {
	sub := &submitterMock{}
	r := newRig(t, sub)
	sub.On("Submit", mock.Anything, mock.Anything, url.Values{"cantidad_entregada": {"7"}}).
		Return(model.Success()).Once()

	require.NoError(t, r.ctrl.Open(context.Background()))
	r.form.Set("cantidad_entregada", "7")

	_, err := r.ctrl.Finalize(context.Background())
	require.NoError(t, err)
	sub.AssertExpectations(t)
}

type brokenForm struct{}

func (brokenForm) Snapshot() (url.Values, error) {
	return nil, errors.New("form gone")
}

func TestFinalizeFormError(t *testing.T) {
	sub := &submitterMock{}
	r := newRig(t, sub)
	r.ctrl.deps.Form = brokenForm{}

	require.NoError(t, r.ctrl.Open(context.Background()))
	_, err := r.ctrl.Finalize(context.Background())
	assert.Error(t, err)

	assert.Equal(t, Closed, r.ctrl.Status().State)
	assert.False(t, r.modal.Visible())
	assert.Equal(t, []toast{{MsgFormUnavailable, ui.KindError}}, r.toasts.all())
	sub.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
}

func TestFinalizeRequiresArmed(t *testing.T) {
	r := newRig(t, &submitterMock{})
	_, err := r.ctrl.Finalize(context.Background())
	assert.True(t, errors.Is(err, ErrNotArmed))
}

func TestSubmissionInFlight(t *testing.T) {
	sub := &submitterMock{}
	r := newRig(t, sub)
	entered := make(chan struct{})
	release := make(chan struct{})
	sub.On("Submit", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(model.Success()).Once()

	require.NoError(t, r.ctrl.Open(context.Background()))

	type result struct {
		out model.Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := r.ctrl.Finalize(context.Background())
		done <- result{out, err}
	}()
	<-entered

	assert.Equal(t, ErrSubmissionInFlight, r.ctrl.Cancel())
	_, err := r.ctrl.Finalize(context.Background())
	assert.Equal(t, ErrSubmissionInFlight, err)
	assert.True(t, errors.Is(r.ctrl.Open(context.Background()), ErrSessionActive))
	assert.True(t, r.modal.Visible())

	close(release)
	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, model.Success(), res.out)
	assert.Equal(t, Closed, r.ctrl.Status().State)
	sub.AssertNumberOfCalls(t, "Submit", 1)
}

func TestShutdownAbortsSubmission(t *testing.T) {
	sub := &submitterMock{}
	r := newRig(t, sub)
	entered := make(chan struct{})
	sub.On("Submit", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			close(entered)
			<-args.Get(0).(context.Context).Done()
		}).
		Return(model.TransportError("Could not connect to the server")).Once()

	require.NoError(t, r.ctrl.Open(context.Background()))

	done := make(chan model.Outcome, 1)
	go func() {
		out, _ := r.ctrl.Finalize(context.Background())
		done <- out
	}()
	<-entered
	require.NoError(t, r.ctrl.Shutdown())

	select {
	case out := <-done:
		assert.Equal(t, model.OutcomeTransportError, out.Kind)
	case <-time.After(5 * time.Second):
		t.Fatal("finalize did not return after shutdown")
	}
	assert.Equal(t, Closed, r.ctrl.Status().State)
	assert.True(t, r.dev.Closed())

	err := r.ctrl.Open(context.Background())
	assert.Error(t, err)
}

func TestShutdownArmed(t *testing.T) {
	r := newRig(t, &submitterMock{})
	require.NoError(t, r.ctrl.Open(context.Background()))

	require.NoError(t, r.ctrl.Shutdown())
	assert.Equal(t, Closed, r.ctrl.Status().State)
	assert.False(t, r.dev.Registered())
	assert.False(t, r.modal.Visible())
	assert.True(t, r.dev.Closed())
}

func TestOpenRejectedWhenTriggerDisabled(t *testing.T) {
	r := newRig(t, &submitterMock{})
	r.trigger.Disable()

	err := r.ctrl.Open(context.Background())
	assert.Equal(t, ErrTriggerDisabled, err)
	assert.Zero(t, r.dev.Connects())
	assert.False(t, r.modal.Visible())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "armed", Armed.String())
	assert.Equal(t, "unknown", State(42).String())
}
