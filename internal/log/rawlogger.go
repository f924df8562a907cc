package log

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"
)

// RawLogger records transport frames verbatim.
type RawLogger interface {
	// Log records one frame. sent is true for frames written by this process.
	Log(sent bool, frame []byte)
}

type rawLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// NewRaw creates a RawLogger writing to w. A nil writer discards everything.
func NewRaw(w io.Writer) RawLogger {
	return &rawLogger{w: w}
}

// Log writes one line with timestamp, direction, length and the quoted frame.
func (r *rawLogger) Log(sent bool, frame []byte) {
	if r.w == nil || len(frame) == 0 {
		return
	}
	dir := "<-"
	if sent {
		dir = "->"
	}
	line := fmt.Sprintf("%s %s %d %s\n",
		time.Now().Format("2006/01/02 15:04:05.000"),
		dir,
		len(frame),
		strconv.Quote(string(frame)),
	)

	r.mu.Lock()
	_, _ = io.WriteString(r.w, line)
	r.mu.Unlock()
}
