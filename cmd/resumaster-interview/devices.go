package main

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/resumaster/resumaster/pkg/audio"
	"github.com/resumaster/resumaster/pkg/core"
)

// ffmpegInput captures microphone audio through an ffmpeg subprocess emitting
// s16le mono at the capture rate on stdout.
type ffmpegInput struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

var _ audio.InputDevice = (*ffmpegInput)(nil)

func newFFmpegInput() (audio.InputDevice, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, core.NewDeviceUnavailableError("ffmpeg is required for mic capture (install ffmpeg and ensure it is in PATH)", err)
	}
	args, err := micFFmpegArgs(runtime.GOOS)
	if err != nil {
		return nil, core.NewDeviceUnavailableError(err.Error(), nil)
	}
	cmd := exec.Command("ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, core.NewDeviceUnavailableError("open ffmpeg stdout", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, core.NewDeviceUnavailableError("start ffmpeg mic capture", err)
	}
	return &ffmpegInput{cmd: cmd, stdout: stdout}, nil
}

func micFFmpegArgs(goos string) ([]string, error) {
	switch goos {
	case "darwin":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "avfoundation", "-i", ":0",
			"-ac", "1", "-ar", fmt.Sprintf("%d", audio.CaptureSampleRateHz),
			"-f", "s16le", "-",
		}, nil
	case "linux":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "pulse", "-i", "default",
			"-ac", "1", "-ar", fmt.Sprintf("%d", audio.CaptureSampleRateHz),
			"-f", "s16le", "-",
		}, nil
	default:
		return nil, fmt.Errorf("mic capture is not implemented for %s; supported platforms: darwin, linux", goos)
	}
}

func (d *ffmpegInput) ReadFrame(dst []float32) (int, error) {
	if d == nil || d.stdout == nil {
		return 0, io.EOF
	}
	buf := make([]byte, len(dst)*2)
	n, err := io.ReadFull(d.stdout, buf)
	samples := audio.BytesToPCM16(buf[:n&^1])
	channels := audio.FromPCM16(samples, 1)
	if len(channels) > 0 {
		copy(dst, channels[0])
	}
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) && len(samples) > 0 {
			return len(samples), nil
		}
		return len(samples), err
	}
	return len(samples), nil
}

func (d *ffmpegInput) Close() error {
	if d == nil {
		return nil
	}
	if d.cmd != nil && d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
		_ = d.cmd.Wait()
	}
	return nil
}

// ffplayOutput renders PCM through an ffplay subprocess fed on stdin. The
// device clock is wallclock seconds since construction; scheduling at a
// future timestamp is realised by padding the stream with silence up to the
// requested start.
type ffplayOutput struct {
	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	started   time.Time
	writeHead float64
}

var _ audio.OutputDevice = (*ffplayOutput)(nil)

func newFFplayOutput() (audio.OutputDevice, error) {
	if _, err := exec.LookPath("ffplay"); err != nil {
		return nil, core.NewDeviceUnavailableError("ffplay is required for playback (install ffmpeg/ffplay and ensure it is in PATH)", err)
	}
	cmd := exec.Command("ffplay",
		"-nodisp",
		"-autoexit",
		"-loglevel", "error",
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", audio.PlaybackSampleRateHz),
		"-ac", "1",
		"-i", "pipe:0",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, core.NewDeviceUnavailableError("open ffplay stdin", err)
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, core.NewDeviceUnavailableError("start ffplay", err)
	}
	return &ffplayOutput{cmd: cmd, stdin: stdin, started: time.Now()}, nil
}

func (d *ffplayOutput) Now() float64 {
	return time.Since(d.started).Seconds()
}

func (d *ffplayOutput) Play(buf *audio.Buffer, startAt float64) error {
	if buf == nil || buf.FrameCount() == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stdin == nil {
		return errors.New("ffplay stdin is not initialized")
	}

	// Pad with silence up to the requested start so back-to-back frames
	// stay gapless and late frames begin immediately.
	if gap := startAt - d.writeHead; gap > 0 {
		silence := make([]byte, 2*int(gap*float64(buf.SampleRate)))
		if _, err := d.stdin.Write(silence); err != nil {
			return fmt.Errorf("write silence: %w", err)
		}
		d.writeHead = startAt
	}

	data := audio.PCM16ToBytes(audio.ToPCM16(buf.Channels[0]))
	if _, err := d.stdin.Write(data); err != nil {
		return fmt.Errorf("write pcm: %w", err)
	}
	d.writeHead += buf.Duration()
	return nil
}

func (d *ffplayOutput) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cmd != nil && d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
		_ = d.cmd.Wait()
	}
	d.stdin = nil
	return nil
}
