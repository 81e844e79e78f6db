package channel

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// FrameLogger records raw channel traffic for debugging.
// Implementations must be safe for concurrent use.
type FrameLogger interface {
	LogFrame(raw []byte)
	LogDecodeError(raw []byte, err error)
	LogState(from, to State, err error)
}

// NopFrameLogger discards all output.
type NopFrameLogger struct{}

func (NopFrameLogger) LogFrame([]byte)             {}
func (NopFrameLogger) LogDecodeError([]byte, error) {}
func (NopFrameLogger) LogState(State, State, error) {}

type frameEntry struct {
	Timestamp string          `json:"ts"`
	Type      string          `json:"type"`
	Frame     json.RawMessage `json:"frame,omitempty"`
	Raw       string          `json:"raw,omitempty"`
	From      string          `json:"from,omitempty"`
	To        string          `json:"to,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// FileFrameLogger writes one JSON object per line to w.
type FileFrameLogger struct {
	w   io.Writer
	mu  sync.Mutex
	now func() time.Time
}

func NewFileFrameLogger(w io.Writer) *FileFrameLogger {
	return &FileFrameLogger{w: w, now: time.Now}
}

// LogFrame embeds valid JSON frames as-is and quotes anything else.
func (l *FileFrameLogger) LogFrame(raw []byte) {
	entry := frameEntry{Type: "frame"}
	if json.Valid(raw) {
		entry.Frame = raw
	} else {
		entry.Raw = string(raw)
	}
	l.write(entry)
}

func (l *FileFrameLogger) LogDecodeError(raw []byte, err error) {
	l.write(frameEntry{
		Type:  "decode_error",
		Raw:   string(raw),
		Error: err.Error(),
	})
}

func (l *FileFrameLogger) LogState(from, to State, err error) {
	entry := frameEntry{
		Type: "state",
		From: from.String(),
		To:   to.String(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	l.write(entry)
}

// Serialisation errors are dropped so logging never disturbs the channel.
func (l *FileFrameLogger) write(entry frameEntry) {
	entry.Timestamp = l.now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "%s\n", data)
}
