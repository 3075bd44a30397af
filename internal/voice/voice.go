// Package voice turns recorded voice notes into text that can be fed to a
// conversation like any typed message.
package voice

import (
	"context"
	"errors"
	"io"
)

// MaxAudioBytes bounds a single voice note. Telegram bots cannot download
// larger files anyway.
const MaxAudioBytes = 20 << 20

// ErrEmptyTranscript is returned when the recording contained no speech
var ErrEmptyTranscript = errors.New("transcription is empty")

// Transcriber converts audio to text. filename carries the container
// format, e.g. "note.ogg".
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}
