// Package interview runs the live mock-interview session: it owns the state
// machine that sequences transport open, microphone capture, playback
// scheduling, and teardown.
package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/resumaster/resumaster/pkg/audio"
	"github.com/resumaster/resumaster/pkg/core"
	"github.com/resumaster/resumaster/pkg/live"
	"github.com/resumaster/resumaster/pkg/resume"
)

// State is the controller's lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateError      State = "error"
)

// Entry is one transcript line. The transcript is append-only.
type Entry struct {
	Role live.Role
	Text string
}

// Observer receives controller notifications. All fields are optional.
// Callbacks run on controller goroutines and must not block for long; calling
// back into the controller (Terminate, Start) is safe.
type Observer struct {
	OnState      func(State)
	OnTranscript func(Entry)
	OnElapsed    func(d time.Duration)
	OnError      func(err error)
}

// Transport is the slice of the live session the controller drives. The
// controller is the only component that closes it.
type Transport interface {
	Events() <-chan live.Event
	SendAudio(encoded string)
	// Err reports the terminal transport error, if any, once Events has
	// closed.
	Err() error
	Close() error
}

// Config wires the controller's collaborators. Dial, OpenInput, and
// OpenOutput default to the real transport and are injectable for tests.
type Config struct {
	Live live.Config

	Dial       func(ctx context.Context, cfg live.Config) (Transport, error)
	OpenInput  func() (audio.InputDevice, error)
	OpenOutput func() (audio.OutputDevice, error)

	Observer Observer
	Logger   *slog.Logger

	// TickInterval is the elapsed-time notification period. Defaults to
	// one second.
	TickInterval time.Duration
}

// sessionResources bundles everything one session run owns. A new epoch is
// minted for every Start; continuations from superseded runs compare their
// epoch before touching controller state.
type sessionResources struct {
	transport Transport
	capture   *audio.Capture
	input     audio.InputDevice
	scheduler *audio.Scheduler
	stopTick  chan struct{}
}

// release tears down one session's resources. It must not mutate the bundle:
// the owner removed it from the controller under the lock before calling, so
// release runs exactly once per bundle, but session goroutines may still hold
// lock-free reads of individual fields.
func (r *sessionResources) release() {
	if r == nil {
		return
	}
	if r.stopTick != nil {
		close(r.stopTick)
	}
	if r.capture != nil {
		r.capture.Stop()
	} else if r.input != nil {
		_ = r.input.Close()
	}
	if r.transport != nil {
		_ = r.transport.Close()
	}
	if r.scheduler != nil {
		r.scheduler.Dispose()
	}
}

// Controller is the session lifecycle state machine.
type Controller struct {
	cfg    Config
	logger *slog.Logger

	mu         sync.Mutex
	state      State
	epoch      uint64
	res        *sessionResources
	transcript []Entry
	lastErr    error
}

// NewController creates an idle controller.
func NewController(cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Dial == nil {
		cfg.Dial = func(ctx context.Context, lc live.Config) (Transport, error) {
			return live.Connect(ctx, lc)
		}
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &Controller{
		cfg:    cfg,
		logger: cfg.Logger,
		state:  StateIdle,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error that put the controller in the Error state, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Transcript returns a snapshot of the transcript so far. Entries survive
// session end so the caller can review the conversation.
func (c *Controller) Transcript() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// Start begins a new session. Any previous session is fully terminated
// first, so resources always have a single owner. The connection proceeds
// asynchronously; the observer sees Connecting immediately and either
// Connected or Error when the open resolves.
func (c *Controller) Start(ctx context.Context) {
	c.Terminate()

	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	c.state = StateConnecting
	c.lastErr = nil
	c.transcript = nil
	c.mu.Unlock()
	c.notifyState(StateConnecting)

	go c.connect(ctx, epoch)
}

func (c *Controller) connect(ctx context.Context, epoch uint64) {
	var scheduler *audio.Scheduler
	if c.cfg.OpenOutput != nil {
		out, err := c.cfg.OpenOutput()
		if err != nil {
			c.fail(epoch, core.NewDeviceUnavailableError("open output device", err))
			return
		}
		scheduler = audio.NewScheduler(out, c.logger)
	}

	transport, err := c.cfg.Dial(ctx, c.cfg.Live)
	if err != nil {
		if scheduler != nil {
			scheduler.Dispose()
		}
		c.fail(epoch, err)
		return
	}

	res := &sessionResources{
		transport: transport,
		scheduler: scheduler,
		stopTick:  make(chan struct{}),
	}
	// Snapshot before the bundle is published; a concurrent Terminate owns
	// it from that point on.
	stop := res.stopTick

	c.mu.Lock()
	if epoch != c.epoch {
		// Terminated while the open was in flight; this session was
		// superseded and must not resurface.
		c.mu.Unlock()
		res.release()
		return
	}
	c.res = res
	c.state = StateConnected
	c.mu.Unlock()
	c.notifyState(StateConnected)

	go c.eventLoop(epoch, transport, scheduler)
	go c.tickLoop(epoch, stop)

	c.startCapture(epoch, transport, res)
}

// startCapture acquires the microphone after the transport is up. Capture
// failure at any point is fatal: the interview needs two-way audio.
func (c *Controller) startCapture(epoch uint64, transport Transport, res *sessionResources) {
	if c.cfg.OpenInput == nil {
		return
	}
	input, err := c.cfg.OpenInput()
	if err != nil {
		c.fail(epoch, err)
		return
	}

	capture := audio.StartCapture(input, func(encoded string) {
		transport.SendAudio(encoded)
	})

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		capture.Stop()
		return
	}
	res.input = input
	res.capture = capture
	stop := res.stopTick
	c.mu.Unlock()

	go func() {
		select {
		case err := <-capture.ErrCh():
			c.fail(epoch, core.NewDeviceUnavailableError("microphone capture failed", err))
		case <-stop:
		}
	}()
}

func (c *Controller) eventLoop(epoch uint64, transport Transport, scheduler *audio.Scheduler) {
	for ev := range transport.Events() {
		if !c.stillCurrent(epoch) {
			return
		}
		switch ev := ev.(type) {
		case live.TranscriptEvent:
			c.appendTranscript(epoch, Entry{Role: ev.Role, Text: ev.Text})
		case live.AudioEvent:
			if scheduler == nil {
				continue
			}
			if err := scheduler.Enqueue(ev.Data); err != nil {
				c.logger.Warn("skipping undecodable audio frame", "error", err)
			}
		case live.InterruptedEvent:
			if scheduler != nil {
				scheduler.Interrupt()
			}
		case live.ErrorEvent:
			c.fail(epoch, ev.Err)
			return
		case live.GoAwayEvent:
			c.logger.Info("remote will close the session", "time_left", ev.TimeLeft)
		case live.TurnCompleteEvent:
			// Nothing to do; playback drains on its own.
		}
	}
	// Events channel closed. A terminal transport error is still fatal even
	// if its event was lost to backpressure; only a clean remote close
	// settles on Idle.
	if err := transport.Err(); err != nil {
		c.fail(epoch, err)
		return
	}
	c.settleIdle(epoch)
}

// settleIdle is Terminate gated on epoch liveness, for continuations that
// must not tear down a successor session.
func (c *Controller) settleIdle(epoch uint64) {
	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	c.epoch++
	res := c.res
	c.res = nil
	changed := c.state != StateIdle
	c.state = StateIdle
	c.mu.Unlock()

	res.release()
	if changed {
		c.notifyState(StateIdle)
	}
}

func (c *Controller) tickLoop(epoch uint64, stop <-chan struct{}) {
	started := time.Now()
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !c.stillCurrent(epoch) {
				return
			}
			if c.cfg.Observer.OnElapsed != nil {
				c.cfg.Observer.OnElapsed(time.Since(started))
			}
		}
	}
}

// Terminate releases all session resources and forces Idle. Callable from
// any state, any number of times, including mid-connect and before any
// resource was acquired.
func (c *Controller) Terminate() {
	c.mu.Lock()
	c.epoch++
	res := c.res
	c.res = nil
	changed := c.state != StateIdle
	c.state = StateIdle
	c.mu.Unlock()

	res.release()
	if changed {
		c.notifyState(StateIdle)
	}
}

// fail converges a fatal condition on the Error state with full teardown.
// Stale epochs no-op: an error from a superseded session must not disturb
// its successor.
func (c *Controller) fail(epoch uint64, err error) {
	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	c.epoch++
	res := c.res
	c.res = nil
	c.state = StateError
	c.lastErr = err
	c.mu.Unlock()

	res.release()
	c.logger.Error("interview session failed", "error", err)
	if c.cfg.Observer.OnError != nil {
		c.cfg.Observer.OnError(err)
	}
	c.notifyState(StateError)
}

func (c *Controller) appendTranscript(epoch uint64, entry Entry) {
	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	c.transcript = append(c.transcript, entry)
	c.mu.Unlock()
	if c.cfg.Observer.OnTranscript != nil {
		c.cfg.Observer.OnTranscript(entry)
	}
}

func (c *Controller) stillCurrent(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return epoch == c.epoch
}

func (c *Controller) notifyState(s State) {
	if c.cfg.Observer.OnState != nil {
		c.cfg.Observer.OnState(s)
	}
}

// SystemInstruction builds the interviewer persona for a candidate's resume.
func SystemInstruction(data resume.ResumeData) string {
	grounding, err := json.Marshal(data)
	if err != nil {
		grounding = []byte("{}")
	}
	return fmt.Sprintf("You are the AI Recruiter for %s. Ground your talk in this resume: %s. Be sharp, professional, and friendly. Ask technical and behavioral questions.", data.FullName, grounding)
}
