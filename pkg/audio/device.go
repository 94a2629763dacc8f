package audio

// InputDevice pulls fixed-size frames of float samples from a capture
// source (typically a microphone). Implementations block in ReadFrame until
// a full frame is available or the device fails.
type InputDevice interface {
	// ReadFrame fills dst with the next capture frame, in capture order.
	// It returns the number of samples written and a terminal error once
	// the device is closed or broken.
	ReadFrame(dst []float32) (int, error)

	// Close releases the underlying capture stream. Idempotent.
	Close() error
}

// OutputDevice renders float audio buffers against an absolute device
// clock. The scheduler computes start timestamps; the device realizes them.
type OutputDevice interface {
	// Now reports the current device-clock time in seconds. The clock is
	// monotonically non-decreasing for the life of the device.
	Now() float64

	// Play schedules buf to begin at the device-clock time startAt. A
	// startAt in the past plays immediately. Buffers never overlap when
	// callers respect the scheduler's cursor.
	Play(buf *Buffer, startAt float64) error

	// Close releases the output context. Idempotent.
	Close() error
}
