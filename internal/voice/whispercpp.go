package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// WhisperCPP transcribes locally with the whisper.cpp CLI. Input is first
// converted to 16kHz mono WAV with ffmpeg.
type WhisperCPP struct {
	binary string
	model  string
	ffmpeg string
	tmpDir string
	logger *zap.Logger
}

// NewWhisperCPP checks that the binary, the model and ffmpeg are present
func NewWhisperCPP(binary, model, tmpDir string, logger *zap.Logger) (*WhisperCPP, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if binary == "" || model == "" {
		return nil, errors.New("whisper binary and model paths are required")
	}
	if _, err := os.Stat(binary); err != nil {
		return nil, fmt.Errorf("whisper binary: %w", err)
	}
	if _, err := os.Stat(model); err != nil {
		return nil, fmt.Errorf("whisper model: %w", err)
	}
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg is required for voice notes: %w", err)
	}
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, err
	}

	return &WhisperCPP{
		binary: binary,
		model:  model,
		ffmpeg: ffmpeg,
		tmpDir: tmpDir,
		logger: logger.Named("whisper"),
	}, nil
}

func (w *WhisperCPP) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	src, err := os.CreateTemp(w.tmpDir, "voice-*"+filepath.Ext(filename))
	if err != nil {
		return "", err
	}
	defer os.Remove(src.Name())

	_, err = io.Copy(src, io.LimitReader(audio, MaxAudioBytes))
	if cerr := src.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}

	wavPath := strings.TrimSuffix(src.Name(), filepath.Ext(src.Name())) + ".wav"
	defer os.Remove(wavPath)

	cmd := exec.CommandContext(ctx, w.ffmpeg, "-y", "-i", src.Name(), "-ar", "16000", "-ac", "1", "-c:a", "pcm_s16le", wavPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("ffmpeg conversion failed: %w (output: %s)", err, string(output))
	}

	// -nt: no timestamps, -l auto: detect language
	cmd = exec.CommandContext(ctx, w.binary, "-m", w.model, "-f", wavPath, "-nt", "-l", "auto")
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("whisper transcription failed: %w (stderr: %s)", err, string(exitErr.Stderr))
		}
		return "", fmt.Errorf("whisper transcription failed: %w", err)
	}

	text := cleanOutput(string(output))
	if text == "" {
		return "", ErrEmptyTranscript
	}
	w.logger.Debug("transcribed voice note", zap.Int("runes", len([]rune(text))))
	return text, nil
}

// cleanOutput drops whisper.cpp diagnostics and joins the spoken lines
func cleanOutput(output string) string {
	var result []string
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" ||
			strings.HasPrefix(trimmed, "whisper_") ||
			strings.HasPrefix(trimmed, "system_info") ||
			strings.HasPrefix(trimmed, "main:") {
			continue
		}
		result = append(result, trimmed)
	}
	return strings.Join(result, " ")
}
