// Package sse writes Server-Sent Events to an HTTP response.
package sse

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// HeartbeatInterval is how often idle streams send a keep-alive comment.
const HeartbeatInterval = 30 * time.Second

const writeTimeout = 60 * time.Second

// Stream is an open event stream. It is not safe for concurrent use.
type Stream struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	logger *slog.Logger
}

// Open sets the SSE headers and flushes them so the client sees the stream start.
func Open(w http.ResponseWriter, logger *slog.Logger) (*Stream, error) {
	if logger == nil {
		logger = slog.Default()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	rc := http.NewResponseController(w)
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return nil, fmt.Errorf("flush headers: %w", err)
	}
	return &Stream{w: w, rc: rc, logger: logger}, nil
}

// Send writes one event. Multi-line data is split into several data fields.
func (s *Stream) Send(event, data string) error {
	var b strings.Builder
	if event != "" {
		fmt.Fprintf(&b, "event: %s\n", event)
	}
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteByte('\n')
	return s.write(b.String())
}

// Heartbeat writes a comment line that clients ignore.
func (s *Stream) Heartbeat() error {
	return s.write(": heartbeat\n\n")
}

func (s *Stream) write(frame string) error {
	if _, err := s.w.Write([]byte(frame)); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil {
		return err
	}
	// Reset after each successful write.
	if err := s.rc.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		s.logger.Debug("failed to set write deadline", slog.String("error", err.Error()))
	}
	return nil
}
