// Command resumaster-interview runs the AI mock interview from the terminal:
// it streams microphone audio to the live model and plays the recruiter's
// voice back, printing transcripts as they arrive. It can also speak the
// generated elevator pitch with -pitch.
package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/resumaster/resumaster/internal/dotenv"
	"github.com/resumaster/resumaster/pkg/audio"
	"github.com/resumaster/resumaster/pkg/config"
	"github.com/resumaster/resumaster/pkg/gemini"
	"github.com/resumaster/resumaster/pkg/interview"
	"github.com/resumaster/resumaster/pkg/live"
	"github.com/resumaster/resumaster/pkg/resume"
)

type cliConfig struct {
	ResumePath string
	PitchOnly  bool
}

func parseCLI(args []string) (cliConfig, error) {
	cfg := cliConfig{}
	fs := flag.NewFlagSet("resumaster-interview", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ResumePath, "resume", "resume.json", "path to the resume JSON file")
	fs.BoolVar(&cfg.PitchOnly, "pitch", false, "generate and play the elevator pitch instead of interviewing")

	if err := fs.Parse(args); err != nil {
		return cliConfig{}, err
	}
	if strings.TrimSpace(cfg.ResumePath) == "" {
		return cliConfig{}, fmt.Errorf("resume path must not be empty")
	}
	return cfg, nil
}

func loadResume(path string) (resume.ResumeData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return resume.ResumeData{}, fmt.Errorf("read resume file: %w", err)
	}
	var data resume.ResumeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return resume.ResumeData{}, fmt.Errorf("parse resume file %s: %w", path, err)
	}
	if strings.TrimSpace(data.FullName) == "" {
		return resume.ResumeData{}, fmt.Errorf("resume file %s: fullName must not be empty", path)
	}
	return data, nil
}

func roleLabel(r live.Role) string {
	if r == live.RoleAgent {
		return "recruiter"
	}
	return "you"
}

func runInterview(ctx context.Context, cfg config.Config, data resume.ResumeData, logger *slog.Logger, in io.Reader, out io.Writer) error {
	var elapsedSec atomic.Int64

	ctrl := interview.NewController(interview.Config{
		Live: live.Config{
			APIKey:            cfg.GeminiAPIKey,
			Model:             cfg.LiveModel,
			Endpoint:          cfg.LiveEndpoint,
			ConnectTimeout:    cfg.LiveConnectTimeout,
			SystemInstruction: interview.SystemInstruction(data),
			Logger:            logger,
		},
		OpenInput:  newFFmpegInput,
		OpenOutput: newFFplayOutput,
		Observer: interview.Observer{
			OnState: func(s interview.State) {
				fmt.Fprintf(out, "\nsession: %s\n> ", s)
			},
			OnTranscript: func(e interview.Entry) {
				fmt.Fprintf(out, "\n[%s] %s\n> ", roleLabel(e.Role), e.Text)
			},
			OnElapsed: func(d time.Duration) {
				elapsedSec.Store(int64(d / time.Second))
			},
			OnError: func(err error) {
				fmt.Fprintf(out, "\nsession error: %v\n> ", err)
			},
		},
		Logger: logger,
	})
	defer ctrl.Terminate()

	fmt.Fprintf(out, "Mock interview for %s (model %s)\n", data.FullName, cfg.LiveModel)
	fmt.Fprintln(out, "Commands: /start, /stop, /status, /transcript, /exit")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			fmt.Fprintln(out)
			return nil
		}

		switch line := strings.TrimSpace(scanner.Text()); line {
		case "":
		case "/start":
			elapsedSec.Store(0)
			ctrl.Start(ctx)
		case "/stop":
			ctrl.Terminate()
		case "/status":
			fmt.Fprintf(out, "state: %s, elapsed: %ds\n", ctrl.State(), elapsedSec.Load())
			if err := ctrl.Err(); err != nil {
				fmt.Fprintf(out, "last error: %v\n", err)
			}
		case "/transcript":
			entries := ctrl.Transcript()
			if len(entries) == 0 {
				fmt.Fprintln(out, "transcript is empty")
				continue
			}
			for _, e := range entries {
				fmt.Fprintf(out, "[%s] %s\n", roleLabel(e.Role), e.Text)
			}
		case "/exit", "/quit":
			fmt.Fprintln(out, "bye")
			return nil
		default:
			fmt.Fprintf(out, "unknown command %q\n", line)
		}
	}
}

// playPitch fetches the spoken elevator pitch and renders it through the
// playback scheduler. The model call and the player spawn run concurrently;
// both must succeed.
func playPitch(ctx context.Context, cfg config.Config, data resume.ResumeData, logger *slog.Logger, out io.Writer) error {
	client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, logger)
	if err != nil {
		return fmt.Errorf("create gemini client: %w", err)
	}

	var (
		encoded string
		player  audio.OutputDevice
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		encoded, err = client.GenerateElevatorPitch(gctx, data.Summary)
		return err
	})
	g.Go(func() error {
		var err error
		player, err = newFFplayOutput()
		return err
	})
	if err := g.Wait(); err != nil {
		if player != nil {
			_ = player.Close()
		}
		return err
	}

	scheduler := audio.NewScheduler(player, logger)
	defer scheduler.Dispose()

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decode pitch audio: %w", err)
	}
	buf, err := audio.DecodeAudioBuffer(raw, audio.PlaybackSampleRateHz, 1)
	if err != nil {
		return err
	}
	if err := scheduler.EnqueueBuffer(buf); err != nil {
		return err
	}

	fmt.Fprintf(out, "Playing elevator pitch (%.1fs)\n", buf.Duration())
	select {
	case <-time.After(time.Duration(buf.Duration()*float64(time.Second)) + 500*time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func runMain(ctx context.Context, args []string, stderr io.Writer) int {
	if stderr == nil {
		stderr = os.Stderr
	}

	cli, err := parseCLI(args)
	if err != nil {
		fmt.Fprintf(stderr, "resumaster-interview: %v\n", err)
		return 1
	}

	if err := dotenv.LoadFile(".env"); err != nil {
		fmt.Fprintf(stderr, "resumaster-interview: %v\n", err)
		return 1
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(stderr, "resumaster-interview: %v\n", err)
		return 1
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	data, err := loadResume(cli.ResumePath)
	if err != nil {
		fmt.Fprintf(stderr, "resumaster-interview: %v\n", err)
		return 1
	}

	if cli.PitchOnly {
		err = playPitch(ctx, cfg, data, logger, os.Stdout)
	} else {
		err = runInterview(ctx, cfg, data, logger, os.Stdin, os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(stderr, "resumaster-interview: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Args[1:], os.Stderr))
}
