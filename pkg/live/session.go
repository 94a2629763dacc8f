// Package live implements the duplex session to the Gemini Live
// conversational endpoint: session setup, outbound audio forwarding, and
// inbound frame dispatch.
package live

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/resumaster/resumaster/pkg/core"
	"github.com/resumaster/resumaster/pkg/live/protocol"
)

const (
	// DefaultEndpoint is the Gemini Live BidiGenerateContent WebSocket URL.
	DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	// DefaultModel is the native-audio dialog model the mock interview uses.
	DefaultModel = "gemini-2.5-flash-native-audio-preview-12-2025"

	defaultConnectTimeout = 15 * time.Second
)

// Config opens a live session with a fixed persona and audio modality.
type Config struct {
	APIKey            string
	Model             string
	SystemInstruction string

	// Endpoint overrides the remote URL; tests point this at a local
	// server.
	Endpoint string

	// ConnectTimeout bounds dial plus setup handshake. A hung remote
	// surfaces as a transport open failure instead of waiting forever.
	ConnectTimeout time.Duration

	Logger *slog.Logger
}

// Role identifies the speaker a transcript fragment belongs to.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Event is an inbound session event.
type Event interface {
	liveEventType() string
}

// TranscriptEvent carries a transcript fragment.
type TranscriptEvent struct {
	Role Role
	Text string
}

func (e TranscriptEvent) liveEventType() string { return "transcript" }

// AudioEvent carries one encoded PCM16 frame at 24000 Hz mono.
type AudioEvent struct {
	Data string
}

func (e AudioEvent) liveEventType() string { return "audio" }

// InterruptedEvent signals that the user barged in and queued playback
// should be abandoned.
type InterruptedEvent struct{}

func (e InterruptedEvent) liveEventType() string { return "interrupted" }

// TurnCompleteEvent marks the end of a model turn.
type TurnCompleteEvent struct{}

func (e TurnCompleteEvent) liveEventType() string { return "turn_complete" }

// GoAwayEvent warns that the remote will drop the connection.
type GoAwayEvent struct {
	TimeLeft string
}

func (e GoAwayEvent) liveEventType() string { return "go_away" }

// ErrorEvent carries a terminal session error.
type ErrorEvent struct {
	Err error
}

func (e ErrorEvent) liveEventType() string { return "error" }

// Session is an open duplex channel to the conversational endpoint. Events
// arrive on Events(); channel close signals session end.
type Session struct {
	conn   *websocket.Conn
	logger *slog.Logger

	events chan Event
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error
}

// Connect dials the live endpoint, sends the setup frame, and waits for
// setup acknowledgement. All open failures are TransportOpenFailed.
func Connect(ctx context.Context, cfg Config) (*Session, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, core.NewInvalidRequestError("live API key must not be empty")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	wsURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, core.NewTransportOpenFailedError("invalid live endpoint", err)
	}
	query := wsURL.Query()
	query.Set("key", cfg.APIKey)
	wsURL.RawQuery = query.Encode()

	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL.String(), nil)
	if err != nil {
		return nil, core.NewTransportOpenFailedError("websocket dial failed", err)
	}

	if err := conn.WriteJSON(protocol.NewSetup(model, cfg.SystemInstruction)); err != nil {
		_ = conn.Close()
		return nil, core.NewTransportOpenFailedError("send live setup", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, core.NewTransportOpenFailedError("read setup acknowledgement", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	first, err := protocol.DecodeServerMessage(payload)
	if err != nil {
		_ = conn.Close()
		return nil, core.NewTransportOpenFailedError("decode setup acknowledgement", err)
	}
	if first.SetupComplete == nil {
		_ = conn.Close()
		return nil, core.NewTransportOpenFailedError("remote did not acknowledge setup", nil)
	}

	s := &Session{
		conn:   conn,
		logger: logger,
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Events yields inbound session events. The channel closes when the remote
// closes the session or a terminal error occurs; check Err afterwards.
func (s *Session) Events() <-chan Event {
	if s == nil {
		return nil
	}
	return s.events
}

// SendAudio forwards one encoded capture frame. Sends are fire-and-forget:
// a session that is closed, closing, or broken drops the frame silently.
// Continuous audio tolerates small gaps; outbound loss must never end the
// session.
func (s *Session) SendAudio(encoded string) {
	if s == nil || s.closed.Load() || encoded == "" {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed.Load() {
		return
	}
	if err := s.conn.WriteJSON(protocol.NewAudioInput(encoded)); err != nil {
		s.logger.Debug("dropped outbound audio frame", "error", err)
	}
}

// Close requests a graceful shutdown. Safe to call multiple times and never
// returns an error for an already-closed session.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
	<-s.done
	return nil
}

// Err returns the terminal session error, if any, after the session ends.
func (s *Session) Err() error {
	if s == nil {
		return nil
	}
	<-s.done
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Session) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Session) readLoop() {
	defer close(s.done)
	defer close(s.events)

	for {
		// The live endpoint frames JSON payloads as either text or
		// binary messages; both decode the same way.
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			runtimeErr := core.NewTransportRuntimeError("live session read failed", err)
			s.setErr(runtimeErr)
			s.emit(ErrorEvent{Err: runtimeErr})
			return
		}

		msg, err := protocol.DecodeServerMessage(data)
		if err != nil {
			// Malformed frames are skipped; the stream continues.
			s.logger.Warn("skipping malformed live frame", "error", err)
			continue
		}
		s.dispatch(msg)
	}
}

// dispatch fans a decoded frame out as events. One frame may carry a
// transcript fragment, audio, and the interruption flag together; each is
// emitted, in that order.
func (s *Session) dispatch(msg *protocol.ServerMessage) {
	if msg.GoAway != nil {
		s.emit(GoAwayEvent{TimeLeft: msg.GoAway.TimeLeft})
	}
	sc := msg.ServerContent
	if sc == nil {
		return
	}
	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		s.emit(TranscriptEvent{Role: RoleUser, Text: sc.InputTranscription.Text})
	}
	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		s.emit(TranscriptEvent{Role: RoleAgent, Text: sc.OutputTranscription.Text})
	}
	if audio := sc.AudioData(); audio != "" {
		s.emit(AudioEvent{Data: audio})
	}
	if sc.Interrupted {
		s.emit(InterruptedEvent{})
	}
	if sc.TurnComplete {
		s.emit(TurnCompleteEvent{})
	}
}

func (s *Session) emit(event Event) {
	select {
	case s.events <- event:
	default:
		// Avoid deadlocking the read loop if the consumer stops; audio
		// loss under backpressure beats a wedged session.
		s.logger.Warn("dropping live event, consumer not keeping up", "type", event.liveEventType())
	}
}
