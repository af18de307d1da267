package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceUSB/pkg/bmp"
	"github.com/OpenTraceLab/OpenTraceUSB/pkg/usbdev"
)

// scriptedIn returns a bulk hook that accepts every OUT transfer and plays
// back one IN response per read. A negative length is a timeout; once the
// script runs out every read times out.
func scriptedIn(lengths ...int) usbdev.BulkHook {
	i := 0
	return func(endpoint uint8, data []byte) (int, error) {
		if !usbdev.IsIn(endpoint) {
			return len(data), nil
		}
		if i >= len(lengths) {
			return 0, usbdev.ErrTimeout
		}
		n := lengths[i]
		i++
		if n < 0 {
			return 0, usbdev.ErrTimeout
		}
		if n > len(data) {
			n = len(data)
		}
		for j := 0; j < n; j++ {
			data[j] = byte(j)
		}
		return n, nil
	}
}

func noAck() Config {
	cfg := DefaultConfig()
	cfg.SkipAck = true
	return cfg
}

func TestShortPacketEndsCapture(t *testing.T) {
	sim := usbdev.NewSimTransport()
	sim.OnBulk = scriptedIn(4096, 4096, 40)

	s, err := NewSession(sim, noAck(), testr.New(t))
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.True(t, res.ShortPacket)
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, 3, res.Reads)
	assert.Len(t, res.Data, 2*4096+40)
	assert.Len(t, sim.BulkReads(), 3)
	assert.Equal(t, []State{StateIdle, StateArmed, StateCapturing, StateDone}, res.Trace)
}

func TestShortPacketThreshold(t *testing.T) {
	tests := []struct {
		name   string
		last   int
		short  bool
		chunks int
		bytes  int
	}{
		{"below threshold ends", 63, true, 2, 4096 + 63},
		{"exactly threshold continues", 64, false, 3, 4096 + 64 + 10},
		{"zero-length packet ends", 0, true, 2, 4096},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := usbdev.NewSimTransport()
			sim.OnBulk = scriptedIn(4096, tt.last, 10)

			s, err := NewSession(sim, noAck(), logr.Discard())
			require.NoError(t, err)

			res, err := s.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, StateDone, res.State)
			assert.True(t, res.ShortPacket)
			assert.Equal(t, tt.chunks, res.Chunks)
			assert.Len(t, res.Data, tt.bytes)
			if tt.short {
				assert.Equal(t, tt.chunks, res.Reads, "no read after the short packet")
			}
		})
	}
}

func TestAlwaysTimeoutExhaustsBudget(t *testing.T) {
	sim := usbdev.NewSimTransport()

	s, err := NewSession(sim, DefaultConfig(), logr.Discard())
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	require.ErrorIs(t, err, ErrReadBudgetExceeded)
	assert.True(t, usbdev.IsTimeout(err))

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, CauseReadBudgetExceeded, res.Cause)
	assert.Equal(t, 5, res.Reads)
	assert.Equal(t, 5, res.Failures)
	assert.Empty(t, res.Data)

	// one acknowledge read plus exactly five chunk reads
	reads := sim.BulkReads()
	require.Len(t, reads, 6)
	assert.Equal(t, 64, reads[0].Length)
	for _, c := range reads[1:] {
		assert.Equal(t, 4096, c.Length)
	}
	assert.Error(t, res.AckErr)
	assert.Equal(t, []State{StateIdle, StateArmed, StateAcknowledged, StateCapturing, StateFailed}, res.Trace)
}

func TestAckFailureStillAdvances(t *testing.T) {
	sim := usbdev.NewSimTransport()
	sim.OnBulk = scriptedIn(-1, 10)

	s, err := NewSession(sim, DefaultConfig(), logr.Discard())
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, usbdev.IsTimeout(res.AckErr))
	assert.Nil(t, res.Ack)
	assert.Equal(t, []State{StateIdle, StateArmed, StateAcknowledged, StateCapturing, StateDone}, res.Trace)
	assert.Len(t, res.Data, 10)
	assert.True(t, res.ShortPacket)
}

func TestSuccessResetsBudget(t *testing.T) {
	sim := usbdev.NewSimTransport()
	sim.OnBulk = scriptedIn(-1, -1, -1, -1, 4096, -1, -1, -1, -1, 4096)

	s, err := NewSession(sim, noAck(), logr.Discard())
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	require.ErrorIs(t, err, ErrReadBudgetExceeded)
	assert.Equal(t, 2, res.Chunks)
	assert.Equal(t, 15, res.Reads)
	assert.Equal(t, 13, res.Failures)
	assert.Len(t, res.Data, 2*4096, "partial data is kept")
}

func TestFullBufferEndsCapture(t *testing.T) {
	sim := usbdev.NewSimTransport()
	sim.OnBulk = scriptedIn(4096, 4096, 4096, 4096)

	cfg := noAck()
	cfg.MaxBuffer = 10000
	s, err := NewSession(sim, cfg, logr.Discard())
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.True(t, res.Full)
	assert.False(t, res.ShortPacket)
	assert.Len(t, res.Data, 10000)

	reads := sim.BulkReads()
	require.Len(t, reads, 3)
	assert.Equal(t, 10000-2*4096, reads[2].Length)
}

func armFails(next usbdev.BulkHook, arm []byte) usbdev.BulkHook {
	return func(endpoint uint8, data []byte) (int, error) {
		if !usbdev.IsIn(endpoint) && string(data) == string(arm) {
			return 0, usbdev.ErrWriteFailed
		}
		return next(endpoint, data)
	}
}

func TestArmFailureStrict(t *testing.T) {
	cfg := noAck()
	cfg.StrictArm = true

	sim := usbdev.NewSimTransport()
	sim.OnBulk = armFails(scriptedIn(4096, 10), cfg.ArmCommand)

	s, err := NewSession(sim, cfg, logr.Discard())
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	require.ErrorIs(t, err, ErrArmWriteFailed)
	assert.ErrorIs(t, err, usbdev.ErrWriteFailed)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, CauseArmWriteFailed, res.Cause)
	assert.Empty(t, sim.BulkReads())
	assert.Equal(t, []State{StateIdle, StateFailed}, res.Trace)
}

func TestArmFailureDegraded(t *testing.T) {
	cfg := noAck()

	sim := usbdev.NewSimTransport()
	sim.OnBulk = armFails(scriptedIn(4096, 10), cfg.ArmCommand)

	s, err := NewSession(sim, cfg, logr.Discard())
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.True(t, res.Degraded)
	assert.Equal(t, CauseArmWriteFailed, res.Cause)
	assert.Error(t, res.ArmErr)
	assert.Len(t, res.Data, 4106)
}

func TestCaptureCommandFailureIsNotFatal(t *testing.T) {
	cfg := noAck()

	sim := usbdev.NewSimTransport()
	sim.OnBulk = armFails(scriptedIn(200, 0), cfg.CaptureCommand)

	s, err := NewSession(sim, cfg, logr.Discard())
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Error(t, res.CaptureErr)
	assert.False(t, res.Degraded)
	assert.Len(t, res.Data, 200)
	assert.Equal(t, 2, res.Chunks)
}

func TestInterruptedSession(t *testing.T) {
	sim := usbdev.NewSimTransport()
	sim.OnBulk = scriptedIn(4096, 4096)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := NewSession(sim, noAck(), logr.Discard())
	require.NoError(t, err)

	res, err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, CauseInterrupted, res.Cause)
	assert.Zero(t, res.Reads)
}

func TestSessionRunsOnce(t *testing.T) {
	sim := usbdev.NewSimTransport()
	sim.OnBulk = scriptedIn(10)

	s, err := NewSession(sim, noAck(), logr.Discard())
	require.NoError(t, err)

	_, err = s.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, s.State().Terminal())

	_, err = s.Run(context.Background())
	assert.ErrorIs(t, err, ErrSessionUsed)
}

func TestNewSessionRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ErrorBudget = 0
	_, err := NewSession(usbdev.NewSimTransport(), cfg, logr.Discard())
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.BulkIn = 0x03
	_, err = NewSession(usbdev.NewSimTransport(), cfg, logr.Discard())
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.ShortPacket = 8192
	_, err = NewSession(usbdev.NewSimTransport(), cfg, logr.Discard())
	assert.Error(t, err)
}

func TestCaptureSimulatedFT9201(t *testing.T) {
	dev := usbdev.NewFT9201Sim(160, 120)
	sim := dev.Transport()

	s, err := NewSession(sim, DefaultConfig(), testr.New(t))
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []State{StateIdle, StateArmed, StateAcknowledged, StateCapturing, StateDone}, res.Trace)
	assert.Equal(t, []byte{0x01, 0x00}, res.Ack)
	assert.True(t, res.ShortPacket)
	assert.Equal(t, usbdev.SyntheticFrame(160, 120), res.Data)
	// 19200 bytes: four full chunks, one 2816-byte chunk, then the zero-length packet
	assert.Equal(t, 6, res.Chunks)
	assert.Zero(t, res.Failures)

	dir := t.TempDir()
	art, err := SaveArtifacts(dir, "fingerprint.raw", "fingerprint_preview.bmp", res.Data, 160)
	require.NoError(t, err)
	assert.Equal(t, 120, art.Height)

	raw, err := os.ReadFile(art.RawPath)
	require.NoError(t, err)
	assert.Equal(t, res.Data, raw)

	img, err := os.ReadFile(art.BMPPath)
	require.NoError(t, err)
	assert.Len(t, img, bmp.PixelOffset+160*120)
}

func TestSaveArtifactsEmpty(t *testing.T) {
	dir := t.TempDir()
	art, err := SaveArtifacts(dir, "a.raw", "a.bmp", nil, 160)
	require.NoError(t, err)
	assert.Empty(t, art.RawPath)
	assert.Empty(t, art.BMPPath)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveArtifactsCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")
	art, err := SaveArtifacts(dir, "a.raw", "a.bmp", make([]byte, 100), 10)
	require.NoError(t, err)
	assert.FileExists(t, art.RawPath)
	assert.FileExists(t, art.BMPPath)
	assert.Equal(t, 10, art.Height)

	_, err = SaveArtifacts(dir, "b.raw", "b.bmp", make([]byte, 100), 0)
	assert.ErrorIs(t, err, bmp.ErrInvalidDimensions)
}
