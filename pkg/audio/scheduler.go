package audio

import (
	"fmt"
	"log/slog"
	"sync"
)

// Scheduler renders inbound PCM16 frames on an OutputDevice with no gap and
// no overlap between consecutive frames, independent of arrival jitter.
//
// It owns a single playback cursor: the device-clock timestamp at which the
// next frame must begin. Frames arriving faster than real time queue
// back-to-back; frames arriving late start immediately, leaving an audible
// gap rather than overlapping.
type Scheduler struct {
	out    OutputDevice
	logger *slog.Logger

	mu            sync.Mutex
	nextStartTime float64

	disposeOnce sync.Once
}

// NewScheduler creates a playback scheduler over out.
func NewScheduler(out OutputDevice, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{out: out, logger: logger}
}

// Enqueue decodes a transport frame (base64 PCM16, 24000 Hz mono) and
// schedules it immediately after the previously enqueued frame, or at the
// device's current time if the cursor has fallen behind.
//
// A malformed frame is recoverable: Enqueue returns the decode error and the
// cursor is left untouched, so the session can skip the frame and continue.
func (s *Scheduler) Enqueue(encoded string) error {
	raw, err := DecodeFrame(encoded)
	if err != nil {
		return err
	}
	buf, err := DecodeAudioBuffer(raw, PlaybackSampleRateHz, 1)
	if err != nil {
		return err
	}
	return s.EnqueueBuffer(buf)
}

// EnqueueBuffer schedules an already-decoded buffer. The elevator-pitch
// playback path uses this with one-shot TTS audio; the interview path goes
// through Enqueue with streamed frames. Both obey the same cursor.
func (s *Scheduler) EnqueueBuffer(buf *Buffer) error {
	if buf == nil || buf.FrameCount() == 0 {
		return nil
	}

	// Play runs under the cursor lock so concurrent enqueuers cannot reach
	// a sequential device in inverted start order.
	s.mu.Lock()
	defer s.mu.Unlock()
	startAt := s.nextStartTime
	if now := s.out.Now(); now > startAt {
		startAt = now
	}
	if err := s.out.Play(buf, startAt); err != nil {
		return fmt.Errorf("schedule playback: %w", err)
	}
	s.nextStartTime = startAt + buf.Duration()
	return nil
}

// Interrupt resets the playback cursor so the next enqueued frame anchors to
// the device's current time. Buffers already handed to the device are not
// stopped; stale audio may play out briefly.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	s.nextStartTime = 0
	s.mu.Unlock()
	s.logger.Debug("playback interrupted, cursor reset")
}

// Dispose releases the output device. Idempotent.
func (s *Scheduler) Dispose() {
	s.disposeOnce.Do(func() {
		if err := s.out.Close(); err != nil {
			s.logger.Warn("close output device", "error", err)
		}
	})
}

func (s *Scheduler) cursor() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStartTime
}
