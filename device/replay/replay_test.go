package replay

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juruen/sigpad/model"
)

type recorder struct {
	mu      sync.Mutex
	samples []model.Sample
}

func (r *recorder) add(s model.Sample) {
	r.mu.Lock()
	r.samples = append(r.samples, s)
	r.mu.Unlock()
}

func (r *recorder) all() []model.Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Sample(nil), r.samples...)
}

func waitDone(t *testing.T, d *Device) {
	t.Helper()
	select {
	case <-d.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("replay did not finish")
	}
}

func TestReplayInOrder(t *testing.T) {
	samples := []model.Sample{model.Down(1, 1), model.Down(2, 2), model.Up(), model.Down(3, 3)}
	d := New(samples, WithInterval(time.Millisecond))

	ok, err := d.Connect(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	var rec recorder
	d.OnSample(rec.add)
	waitDone(t, d)

	assert.Equal(t, samples, rec.all())
}

func TestReplayWaitsForRegistration(t *testing.T) {
	d := New([]model.Sample{model.Down(1, 1)})
	d.OnSample(func(model.Sample) {})

	select {
	case <-d.Done():
		t.Fatal("streamed before connect")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestReplayFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "sig.txt")
	require.NoError(t, os.WriteFile(fn, []byte("d 5 5\nd 6 6\nu\n"), 0644))

	d := NewFile(fn)
	ok, err := d.Connect(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	var rec recorder
	d.OnSample(rec.add)
	waitDone(t, d)
	assert.Equal(t, []model.Sample{model.Down(5, 5), model.Down(6, 6), model.Up()}, rec.all())
}

func TestReplayMissingFile(t *testing.T) {
	d := NewFile(filepath.Join(t.TempDir(), "nope.trace"))
	ok, err := d.Connect(context.Background())
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestReplayCanceledConnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err := New(nil).Connect(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReplayClose(t *testing.T) {
	samples := make([]model.Sample, 1000)
	d := New(samples, WithInterval(10*time.Millisecond))
	_, err := d.Connect(context.Background())
	require.NoError(t, err)

	d.OnSample(func(model.Sample) {})
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	waitDone(t, d)
}
