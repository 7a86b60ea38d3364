package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRoundTripper struct{}

func (stubRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: req}, nil
}

func TestLoggingTransportConcurrentRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	tr := NewLoggingTransport(stubRoundTripper{}, &buf)

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
			req.Header.Set(requestIDHeader, fmt.Sprintf("req-%d", i))
			_, _ = tr.RoundTrip(req)
		}(i)
	}
	wg.Wait()

	// Every log line is a whole, parseable JSON object: no interleaving.
	dec := json.NewDecoder(&buf)
	seen := make(map[string]bool)
	for dec.More() {
		var entry struct {
			RequestID string `json:"request_id"`
			Method    string `json:"method"`
			Path      string `json:"path"`
			Status    int    `json:"status"`
		}
		require.NoError(t, dec.Decode(&entry))
		assert.Equal(t, http.MethodGet, entry.Method)
		assert.Equal(t, "/api/documents", entry.Path)
		assert.Equal(t, http.StatusOK, entry.Status)
		seen[entry.RequestID] = true
	}
	assert.Len(t, seen, n)
}
