// package testing contains shared testing utilities
package testing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"maps"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/wamp/internal/transport"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// ExecutorHandler answers the n-th (zero-based) call. The returned value is JSON round-tripped into the caller's out.
type ExecutorHandler func(n int, req *transport.Request) (any, error)

// RecordingExecutor is a [transport.Executor] fake that records every request.
type RecordingExecutor struct {
	mu       sync.Mutex
	requests []transport.Request
	handler  ExecutorHandler
}

func NewRecordingExecutor(h ExecutorHandler) *RecordingExecutor {
	return &RecordingExecutor{handler: h}
}

func (r *RecordingExecutor) Execute(ctx context.Context, req *transport.Request, out any) error {
	r.mu.Lock()
	n := len(r.requests)
	r.requests = append(r.requests, cloneRequest(req))
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := r.handler(n, req)
	if err != nil {
		return err
	}
	if out == nil || body == nil {
		return nil
	}

	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// Requests returns a copy of the recorded requests in call order.
func (r *RecordingExecutor) Requests() []transport.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transport.Request(nil), r.requests...)
}

// Count returns how many calls were made.
func (r *RecordingExecutor) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func cloneRequest(req *transport.Request) transport.Request {
	cp := *req
	cp.Headers = maps.Clone(req.Headers)
	cp.Query = maps.Clone(req.Query)
	return cp
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
