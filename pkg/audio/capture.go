package audio

import (
	"errors"
	"io"
	"sync"
)

// Capture continuously pulls fixed-size frames from an InputDevice, encodes
// each as a PCM16 transport frame, and hands it to the frame callback in
// strict capture order, exactly once per frame.
type Capture struct {
	dev     InputDevice
	onFrame func(encoded string)

	stopOnce sync.Once
	done     chan struct{}
	errCh    chan error
}

// StartCapture begins producing CaptureFrameSamples-sized mono frames at
// CaptureSampleRateHz. The callback runs on the capture goroutine, so a slow
// consumer delays the device pull cadence rather than reordering frames.
func StartCapture(dev InputDevice, onFrame func(encoded string)) *Capture {
	c := &Capture{
		dev:     dev,
		onFrame: onFrame,
		done:    make(chan struct{}),
		errCh:   make(chan error, 1),
	}
	go c.run()
	return c
}

// ErrCh reports the first terminal capture error, if any. The channel never
// receives anything on a clean Stop.
func (c *Capture) ErrCh() <-chan error {
	return c.errCh
}

// Stop disconnects the capture graph and releases the device. Idempotent and
// safe to call while a frame pull is in flight.
func (c *Capture) Stop() {
	if c == nil {
		return
	}
	c.stopOnce.Do(func() {
		_ = c.dev.Close()
	})
	<-c.done
}

func (c *Capture) run() {
	defer close(c.done)

	frame := make([]float32, CaptureFrameSamples)
	for {
		filled := 0
		for filled < len(frame) {
			n, err := c.dev.ReadFrame(frame[filled:])
			filled += n
			if err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
					c.emitErr(err)
				}
				return
			}
		}
		c.onFrame(EncodeFrame(PCM16ToBytes(ToPCM16(frame))))
	}
}

func (c *Capture) emitErr(err error) {
	select {
	case c.errCh <- err:
	default:
	}
}
