// Package audio implements the realtime audio plumbing for Resumaster:
// PCM16 codec helpers, microphone capture, and gapless playback scheduling.
package audio

import (
	"encoding/base64"
	"fmt"
)

const (
	// CaptureSampleRateHz is the fixed microphone capture rate.
	CaptureSampleRateHz = 16000
	// PlaybackSampleRateHz is the fixed model audio output rate.
	PlaybackSampleRateHz = 24000

	// CaptureFrameSamples is the number of samples pulled from the input
	// device per frame.
	CaptureFrameSamples = 4096

	bytesPerSample = 2
)

// CaptureMIMEType tags outbound frames so the remote end can decode them.
const CaptureMIMEType = "audio/pcm;rate=16000"

// EncodeFrame maps raw PCM bytes to the transport-safe text encoding.
// Total for any input, including empty.
func EncodeFrame(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeFrame is the exact inverse of EncodeFrame.
func DecodeFrame(text string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("decode audio frame: %w", err)
	}
	return raw, nil
}

// ToPCM16 converts device float samples to signed 16-bit samples by scaling
// by 32768 and truncating. Samples outside [-1, 1] are not clamped and may
// wrap; this matches the upstream capture path.
func ToPCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = int16(int32(s * 32768))
	}
	return out
}

// FromPCM16 converts interleaved 16-bit samples back to per-channel float
// buffers, dividing each sample by 32768.
func FromPCM16(samples []int16, channels int) [][]float32 {
	if channels <= 0 {
		channels = 1
	}
	frames := len(samples) / channels
	out := make([][]float32, channels)
	for ch := 0; ch < channels; ch++ {
		data := make([]float32, frames)
		for i := 0; i < frames; i++ {
			data[i] = float32(samples[i*channels+ch]) / 32768.0
		}
		out[ch] = data
	}
	return out
}

// BytesToPCM16 reinterprets little-endian PCM bytes as 16-bit samples. A
// trailing odd byte is ignored.
func BytesToPCM16(raw []byte) []int16 {
	out := make([]int16, len(raw)/bytesPerSample)
	for i := range out {
		out[i] = int16(raw[2*i]) | int16(raw[2*i+1])<<8
	}
	return out
}

// PCM16ToBytes serializes 16-bit samples as little-endian PCM bytes.
func PCM16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out
}

// Buffer is a decoded, device-ready audio buffer: per-channel float samples
// at a fixed sample rate.
type Buffer struct {
	Channels   [][]float32
	SampleRate int
}

// FrameCount returns the number of sample frames per channel.
func (b *Buffer) FrameCount() int {
	if b == nil || len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.FrameCount()) / float64(b.SampleRate)
}

// DecodeAudioBuffer converts raw little-endian PCM16 bytes into a
// device-ready Buffer with frameCount = len(raw)/2/channels.
func DecodeAudioBuffer(raw []byte, sampleRate, channels int) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("decode audio buffer: sample rate must be positive, got %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("decode audio buffer: channel count must be positive, got %d", channels)
	}
	samples := BytesToPCM16(raw)
	return &Buffer{
		Channels:   FromPCM16(samples, channels),
		SampleRate: sampleRate,
	}, nil
}
