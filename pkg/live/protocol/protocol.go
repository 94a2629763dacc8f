// Package protocol defines the JSON frames exchanged with the Gemini Live
// (BidiGenerateContent) WebSocket endpoint.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// ModalityAudio requests spoken responses from the model.
	ModalityAudio = "AUDIO"

	// AudioInMIMEType tags outbound microphone chunks.
	AudioInMIMEType = "audio/pcm;rate=16000"
	// AudioOutMIMEType is the encoding of inbound model audio.
	AudioOutMIMEType = "audio/pcm;rate=24000"
)

// Part is a single content part: text or inline binary data.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Blob carries base64 payload bytes with a MIME-style tag describing sample
// rate and encoding.
type Blob struct {
	MIMEType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

// Content is an ordered list of parts attributed to a role.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

// GenerationConfig is the subset of model configuration the live session
// uses.
type GenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

// Setup is the first client frame: it binds the session to a model, a
// persona, and the audio response modality, and asks for transcription of
// the model's speech.
type Setup struct {
	Model                    string            `json:"model"`
	GenerationConfig         *GenerationConfig `json:"generationConfig,omitempty"`
	SystemInstruction        *Content          `json:"systemInstruction,omitempty"`
	OutputAudioTranscription *struct{}         `json:"outputAudioTranscription,omitempty"`
}

// ClientSetup is the envelope for Setup.
type ClientSetup struct {
	Setup Setup `json:"setup"`
}

// RealtimeInput streams encoded microphone chunks to the model.
type RealtimeInput struct {
	MediaChunks []Blob `json:"mediaChunks,omitempty"`
}

// ClientRealtimeInput is the envelope for RealtimeInput.
type ClientRealtimeInput struct {
	RealtimeInput RealtimeInput `json:"realtimeInput"`
}

// Transcription is a fragment of speech-to-text output.
type Transcription struct {
	Text string `json:"text,omitempty"`
}

// ServerContent is the payload of a mid-session server frame. A single
// frame may carry any combination of transcript fragment, audio parts, and
// the interruption flag; all present fields are meaningful.
type ServerContent struct {
	ModelTurn           *Content       `json:"modelTurn,omitempty"`
	OutputTranscription *Transcription `json:"outputTranscription,omitempty"`
	InputTranscription  *Transcription `json:"inputTranscription,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
}

// GoAway warns that the server will close the connection.
type GoAway struct {
	TimeLeft string `json:"timeLeft,omitempty"`
}

// ServerMessage is a decoded inbound frame. Exactly one of the pointer
// fields is set per frame, except that decode keeps unknown frames around
// via Raw for logging.
type ServerMessage struct {
	SetupComplete *struct{}      `json:"setupComplete,omitempty"`
	ServerContent *ServerContent `json:"serverContent,omitempty"`
	GoAway        *GoAway        `json:"goAway,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// DecodeServerMessage parses a raw inbound frame.
func DecodeServerMessage(data []byte) (*ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode live server frame: %w", err)
	}
	msg.Raw = append(json.RawMessage(nil), data...)
	return &msg, nil
}

// AudioData returns the first inline audio payload in the model turn, or
// "" when the frame carries no audio.
func (c *ServerContent) AudioData() string {
	if c == nil || c.ModelTurn == nil {
		return ""
	}
	for _, part := range c.ModelTurn.Parts {
		if part.InlineData != nil && strings.TrimSpace(part.InlineData.Data) != "" {
			return part.InlineData.Data
		}
	}
	return ""
}

// NewSetup builds the session-opening frame for model with the given system
// instruction, requesting audio responses and output transcription.
func NewSetup(model, systemInstruction string) ClientSetup {
	model = strings.TrimSpace(model)
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	setup := Setup{
		Model: model,
		GenerationConfig: &GenerationConfig{
			ResponseModalities: []string{ModalityAudio},
		},
		OutputAudioTranscription: &struct{}{},
	}
	if strings.TrimSpace(systemInstruction) != "" {
		setup.SystemInstruction = &Content{
			Parts: []Part{{Text: systemInstruction}},
		}
	}
	return ClientSetup{Setup: setup}
}

// NewAudioInput wraps one encoded capture frame for transmission.
func NewAudioInput(encoded string) ClientRealtimeInput {
	return ClientRealtimeInput{
		RealtimeInput: RealtimeInput{
			MediaChunks: []Blob{{MIMEType: AudioInMIMEType, Data: encoded}},
		},
	}
}
