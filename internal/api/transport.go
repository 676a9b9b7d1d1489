package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/log"
)

// RequestIDHeader carries the id that ties client and server logs together.
const RequestIDHeader = "X-Request-ID"

// tracingTransport tags each request with an id and logs its outcome at a
// level chosen from the status code.
type tracingTransport struct {
	next   http.RoundTripper
	logger *log.Logger
}

func newTracingTransport(next http.RoundTripper, logger *log.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &tracingTransport{next: next, logger: logger}
}

func (t *tracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		req = req.Clone(req.Context())
		req.Header.Set(RequestIDHeader, requestID)
	}

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	duration := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	fields := log.NewFields().
		WithRequestID(requestID).
		WithHTTP(req.Method, req.URL.Path, status, duration.Milliseconds()).
		WithError(err)

	t.logger.Log(req.Context(), log.LevelForStatus(status), "API request completed", fields.ToSlice()...)

	return resp, err
}
