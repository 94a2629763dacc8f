package audio

import (
	"io"
	"sync"
	"testing"
	"time"
)

// scriptedInputDevice serves a fixed sample stream in uneven reads, then
// reports EOF.
type scriptedInputDevice struct {
	mu      sync.Mutex
	samples []float32
	chunk   int
	closed  bool
}

func (d *scriptedInputDevice) ReadFrame(dst []float32) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || len(d.samples) == 0 {
		return 0, io.EOF
	}
	n := d.chunk
	if n <= 0 || n > len(dst) {
		n = len(dst)
	}
	if n > len(d.samples) {
		n = len(d.samples)
	}
	copy(dst, d.samples[:n])
	d.samples = d.samples[n:]
	return n, nil
}

func (d *scriptedInputDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func TestCapture_DeliversFramesInOrderExactlyOnce(t *testing.T) {
	t.Parallel()

	// Three full frames; each frame filled with a distinct constant so the
	// delivery order is observable after encoding.
	samples := make([]float32, 3*CaptureFrameSamples)
	for frame := 0; frame < 3; frame++ {
		val := float32(frame+1) / 100
		for i := 0; i < CaptureFrameSamples; i++ {
			samples[frame*CaptureFrameSamples+i] = val
		}
	}

	var mu sync.Mutex
	var got []string
	c := StartCapture(&scriptedInputDevice{samples: samples, chunk: 1000}, func(encoded string) {
		mu.Lock()
		got = append(got, encoded)
		mu.Unlock()
	})
	<-c.done // device EOF drains the script before Stop
	c.Stop()

	if len(got) != 3 {
		t.Fatalf("frames delivered = %d, want 3", len(got))
	}
	for frame := 0; frame < 3; frame++ {
		raw, err := DecodeFrame(got[frame])
		if err != nil {
			t.Fatalf("frame %d decode error: %v", frame, err)
		}
		wantSample := ToPCM16([]float32{float32(frame+1) / 100})[0]
		if gotSample := BytesToPCM16(raw)[0]; gotSample != wantSample {
			t.Fatalf("frame %d first sample = %d, want %d (out of order?)", frame, gotSample, wantSample)
		}
	}
}

func TestCapture_DropsTrailingPartialFrame(t *testing.T) {
	t.Parallel()

	samples := make([]float32, CaptureFrameSamples+100)
	var mu sync.Mutex
	frames := 0
	c := StartCapture(&scriptedInputDevice{samples: samples}, func(string) {
		mu.Lock()
		frames++
		mu.Unlock()
	})
	<-c.done
	c.Stop()

	if frames != 1 {
		t.Fatalf("frames = %d, want 1 (partial frame must not be delivered)", frames)
	}
}

func TestCapture_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	c := StartCapture(&scriptedInputDevice{}, func(string) {})
	c.Stop()
	c.Stop()

	select {
	case err := <-c.ErrCh():
		t.Fatalf("unexpected capture error: %v", err)
	case <-time.After(20 * time.Millisecond):
	}
}
