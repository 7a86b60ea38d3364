package api

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"
)

// LoggingTransport wraps a RoundTripper and writes one JSON object per
// request to the given writer.
//
// Fields:
// - request_id (taken from the X-Request-ID header set by the client)
// - method
// - path
// - status (0 when the request never completed)
// - latency (in milliseconds, as float)
type LoggingTransport struct {
	next http.RoundTripper

	// mu serializes writes so concurrent round trips cannot interleave
	// log lines.
	mu  sync.Mutex
	enc *json.Encoder
}

// NewLoggingTransport builds a logging wrapper around next. A nil next
// falls back to http.DefaultTransport.
func NewLoggingTransport(next http.RoundTripper, w io.Writer) *LoggingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &LoggingTransport{next: next, enc: json.NewEncoder(w)}
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := t.next.RoundTrip(req)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	t.mu.Lock()
	_ = t.enc.Encode(map[string]any{
		"request_id": req.Header.Get(requestIDHeader),
		"method":     req.Method,
		"path":       req.URL.Path,
		"status":     status,
		"latency":    float64(time.Since(start).Milliseconds()),
	})
	t.mu.Unlock()

	return resp, err
}
