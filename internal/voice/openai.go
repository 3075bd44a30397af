package voice

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI transcribes with the hosted whisper-1 model
type OpenAI struct {
	client *openai.Client
	model  openai.AudioModel
}

// NewOpenAI creates a cloud transcriber. opts follow the API key.
func NewOpenAI(apiKey string, opts ...option.RequestOption) *OpenAI {
	all := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(all...)
	return &OpenAI{client: &client, model: openai.AudioModelWhisper1}
}

func (o *OpenAI) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	resp, err := o.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(io.LimitReader(audio, MaxAudioBytes), filename, contentType(filename)),
		Model: o.model,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}

func contentType(filename string) string {
	switch {
	case strings.HasSuffix(filename, ".ogg"), strings.HasSuffix(filename, ".oga"):
		return "audio/ogg"
	case strings.HasSuffix(filename, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(filename, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(filename, ".m4a"):
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}
