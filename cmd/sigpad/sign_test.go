package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juruen/sigpad/device/devicetest"
	"github.com/juruen/sigpad/device/replay"
	"github.com/juruen/sigpad/encoding/trace"
	"github.com/juruen/sigpad/model"
)

func TestWaitForSignatureReplay(t *testing.T) {
	dev := replay.New([]model.Sample{model.Down(1, 1), model.Up()})
	ok, err := dev.Connect(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	dev.OnSample(func(model.Sample) {})

	assert.NoError(t, waitForSignature(context.Background(), dev, time.Hour))
}

func TestWaitForSignatureTimer(t *testing.T) {
	start := time.Now()
	assert.NoError(t, waitForSignature(context.Background(), devicetest.New(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, waitForSignature(ctx, devicetest.New(), time.Hour), context.Canceled)
}

func TestRecorderWritesTrace(t *testing.T) {
	rec := &recorder{}
	samples := []model.Sample{model.Down(10, 10), model.Down(12, 14), model.Up()}
	for _, s := range samples {
		rec.add(s)
	}

	for _, text := range []bool{false, true} {
		fn := filepath.Join(t.TempDir(), "sig.trace")
		require.NoError(t, writeTrace(rec.trace(), fn, text))

		got, err := trace.ReadFile(fn)
		require.NoError(t, err)
		assert.Equal(t, samples, got.Samples)
	}
}

func TestRecordClosesDevice(t *testing.T) {
	dev := devicetest.New()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for !dev.Registered() {
			time.Sleep(time.Millisecond)
		}
		dev.Emit(model.Down(3, 4), model.Up())
		cancel()
	}()

	got, err := record(ctx, dev)
	require.NoError(t, err)
	assert.Equal(t, []model.Sample{model.Down(3, 4), model.Up()}, got.Samples)
	assert.True(t, dev.Closed())
	assert.False(t, dev.Registered())

	refused := devicetest.New()
	refused.ConnectResult = false
	_, err = record(context.Background(), refused)
	assert.Error(t, err)
	assert.True(t, refused.Closed())
}

func TestRecordReplayRunsToEnd(t *testing.T) {
	samples := []model.Sample{model.Down(1, 1), model.Down(2, 2), model.Up()}
	got, err := record(context.Background(), replay.New(samples))
	require.NoError(t, err)
	assert.Equal(t, samples, got.Samples)
}
