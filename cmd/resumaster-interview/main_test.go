package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/resumaster/resumaster/pkg/config"
	"github.com/resumaster/resumaster/pkg/live"
	"github.com/resumaster/resumaster/pkg/resume"
)

func TestParseCLI(t *testing.T) {
	cfg, err := parseCLI(nil)
	if err != nil {
		t.Fatalf("parseCLI(nil): %v", err)
	}
	if cfg.ResumePath != "resume.json" || cfg.PitchOnly {
		t.Fatalf("defaults = %+v", cfg)
	}

	cfg, err = parseCLI([]string{"-resume", "me.json", "-pitch"})
	if err != nil {
		t.Fatalf("parseCLI: %v", err)
	}
	if cfg.ResumePath != "me.json" || !cfg.PitchOnly {
		t.Fatalf("parsed = %+v", cfg)
	}

	if _, err := parseCLI([]string{"-resume", "  "}); err == nil {
		t.Fatalf("expected error for blank resume path")
	}
}

func TestLoadResume(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "resume.json")
	if err := os.WriteFile(path, []byte(`{"fullName":"Ada Lovelace","targetRole":"Backend Engineer"}`), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	data, err := loadResume(path)
	if err != nil {
		t.Fatalf("loadResume: %v", err)
	}
	if data.FullName != "Ada Lovelace" {
		t.Fatalf("data = %+v", data)
	}

	if _, err := loadResume(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"fullName":`), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := loadResume(bad); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}

	anon := filepath.Join(dir, "anon.json")
	if err := os.WriteFile(anon, []byte(`{"summary":"no name"}`), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := loadResume(anon); err == nil {
		t.Fatalf("expected error for missing fullName")
	}
}

func TestMicFFmpegArgs(t *testing.T) {
	linux, err := micFFmpegArgs("linux")
	if err != nil {
		t.Fatalf("linux args: %v", err)
	}
	if !strings.Contains(strings.Join(linux, " "), "-f pulse -i default") {
		t.Fatalf("linux args = %v", linux)
	}

	darwin, err := micFFmpegArgs("darwin")
	if err != nil {
		t.Fatalf("darwin args: %v", err)
	}
	if !strings.Contains(strings.Join(darwin, " "), "-f avfoundation -i :0") {
		t.Fatalf("darwin args = %v", darwin)
	}

	if _, err := micFFmpegArgs("plan9"); err == nil {
		t.Fatalf("expected error for unsupported platform")
	}
}

func TestRoleLabel(t *testing.T) {
	if got := roleLabel(live.RoleAgent); got != "recruiter" {
		t.Fatalf("agent label = %q", got)
	}
	if got := roleLabel(live.RoleUser); got != "you" {
		t.Fatalf("user label = %q", got)
	}
}

func TestRunInterview_CommandLoopWithoutSession(t *testing.T) {
	in := strings.NewReader("/status\n/transcript\n/bogus\n/exit\n")
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&out, nil))

	cfg := config.Config{GeminiAPIKey: "test-key", LiveModel: "test-model"}
	data := resume.ResumeData{FullName: "Ada"}
	if err := runInterview(context.Background(), cfg, data, logger, in, &out); err != nil {
		t.Fatalf("runInterview: %v", err)
	}

	text := out.String()
	for _, want := range []string{"state: idle", "transcript is empty", `unknown command "/bogus"`, "bye"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
}
