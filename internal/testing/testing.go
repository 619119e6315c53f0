// package testing contains shared testing utilities
package testing

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/todox/internal/shared"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error

	mu       sync.Mutex
	requests []*http.Request
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.response, m.err
}

// Requests returns every request seen so far.
func (m *MockRoundTripper) Requests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request(nil), m.requests...)
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// Notice is one recorded notification.
type Notice struct {
	Kind    shared.NoticeKind
	Message string
}

// RecordingNotifier implements [shared.Notifier] and keeps every call.
type RecordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (n *RecordingNotifier) Notify(kind shared.NoticeKind, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, Notice{Kind: kind, Message: message})
}

// Notices returns a copy of the recorded notifications.
func (n *RecordingNotifier) Notices() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notice(nil), n.notices...)
}

// Last returns the most recent notification, or the zero value.
func (n *RecordingNotifier) Last() Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notices) == 0 {
		return Notice{}
	}
	return n.notices[len(n.notices)-1]
}

// RecordingNavigator implements [shared.Navigator] and keeps every route.
type RecordingNavigator struct {
	mu     sync.Mutex
	routes []string
}

func (n *RecordingNavigator) GoTo(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
}

// Routes returns a copy of the recorded routes.
func (n *RecordingNavigator) Routes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.routes...)
}

// CountingStore is an in-memory credential slot that counts writes.
//
// Clears counts only clears that removed a token, so a clear on an empty slot is not observable.
type CountingStore struct {
	mu     sync.Mutex
	token  string
	Sets   int
	Clears int
	GetErr error
}

func NewCountingStore(token string) *CountingStore {
	return &CountingStore{token: token}
}

func (s *CountingStore) Get() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return "", s.GetErr
	}
	return s.token, nil
}

func (s *CountingStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.Sets++
	return nil
}

func (s *CountingStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		s.Clears++
	}
	s.token = ""
	return nil
}

// Token returns the stored token without going through Get.
func (s *CountingStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// MakeToken builds an unsigned three-segment bearer token carrying claims.
func MakeToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("failed to marshal claims: %v", err)
	}
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".c2lnbmF0dXJl"
}

// SubjectToken is [MakeToken] with a single "sub" claim.
func SubjectToken(t *testing.T, subject string) string {
	t.Helper()
	return MakeToken(t, map[string]any{"sub": subject})
}

// JSONResponse builds an *http.Response with a JSON body for use with [MockRoundTripper].
func JSONResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
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
