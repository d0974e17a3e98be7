package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nikhilbhutani/speakify/internal/models"
)

// LocalConfig holds configuration for the local Piper TTS backend.
type LocalConfig struct {
	PiperBinPath string // default: "piper"
	ModelPath    string // required: path to the .onnx voice model
}

type runFunc func(ctx context.Context, name string, args []string, stdin io.Reader) error

// Local synthesizes speech with the Piper binary. The voice is fixed by the
// model file; speed maps to Piper's length scale.
type Local struct {
	cfg LocalConfig
	run runFunc
}

func NewLocal(cfg LocalConfig) *Local {
	if cfg.PiperBinPath == "" {
		cfg.PiperBinPath = "piper"
	}
	return &Local{cfg: cfg, run: runCommand}
}

func (l *Local) Name() string { return "local-piper" }

func (l *Local) voiceID() string {
	return strings.TrimSuffix(filepath.Base(l.cfg.ModelPath), filepath.Ext(l.cfg.ModelPath))
}

func (l *Local) Voices() []models.Voice {
	if l.cfg.ModelPath == "" {
		return nil
	}
	id := l.voiceID()
	return []models.Voice{{ID: id, DisplayName: id}}
}

// Synthesize pipes text into Piper via stdin and reads back the WAV file it writes.
func (l *Local) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	if l.cfg.ModelPath == "" {
		return nil, fmt.Errorf("piper model path is required (set TTS_LOCAL_PIPER_MODEL)")
	}

	out, err := os.CreateTemp("", "piper-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	out.Close()
	defer os.Remove(out.Name())

	args := []string{"--model", l.cfg.ModelPath, "--output_file", out.Name()}
	if req.Speed > 0 && req.Speed != models.DefaultSpeed {
		args = append(args, "--length_scale", strconv.FormatFloat(1/req.Speed, 'f', 3, 64))
	}

	if err := l.run(ctx, l.cfg.PiperBinPath, args, strings.NewReader(req.Input)); err != nil {
		return nil, err
	}

	audio, err := os.ReadFile(out.Name())
	if err != nil {
		return nil, fmt.Errorf("read piper output: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("piper produced no audio")
	}

	return &SynthesisResult{
		Audio:       audio,
		ContentType: "audio/wav",
		Extension:   "wav",
	}, nil
}

func runCommand(ctx context.Context, name string, args []string, stdin io.Reader) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("piper failed: %w (stderr: %s)", err, stderr.String())
	}
	return nil
}
