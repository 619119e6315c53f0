// API service for making raw HTTP requests to the todo backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/todox/internal/apierr"
	"github.com/desertthunder/todox/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL  string = "http://localhost:8080"
	requestIDHeader string = "X-Request-ID"
)

// APIService performs HTTP requests against the todo backend and classifies failures.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewAPIService creates a new API service instance for the todo backend.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    baseURL,
		httpClient: client,
		logger:     shared.DiscardLogger(),
	}
}

// SetRateLimit paces outgoing requests to at most rps per second. Zero or less removes the limit.
func (a *APIService) SetRateLimit(rps float64) {
	if rps <= 0 {
		a.limiter = nil
		return
	}
	a.limiter = rate.NewLimiter(rate.Limit(rps), 1)
}

// SetLogger replaces the service logger.
func (a *APIService) SetLogger(l *log.Logger) {
	if l == nil {
		l = shared.DiscardLogger()
	}
	a.logger = shared.WithLogger(l, "component", "api")
}

// BaseURL returns the base URL requests are resolved against.
func (a *APIService) BaseURL() string {
	return a.baseURL
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
	RequestID  string
}

// OK reports whether the response has a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Request describes one call. Fallback is the user-facing message for failures the classifier has no
// better text for.
type Request struct {
	Method   string
	Path     string
	Body     []byte
	Fallback string
}

// Send performs req and returns the raw response.
//
// A non-2xx status yields both the response and an [apierr.ErrorEvent]. When no response was received the
// response is nil and the event has kind [apierr.KindNetwork] with the transport error as its cause.
func (a *APIService) Send(ctx context.Context, req Request) (*APIResponse, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, a.networkError(req.Path, err)
		}
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, a.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrAPIRequest, err)
	}

	requestID := shared.GenerateID()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(requestIDHeader, requestID)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	a.logger.Debug("sending request", "method", req.Method, "path", req.Path, "request_id", requestID)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, a.networkError(req.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, a.networkError(req.Path, fmt.Errorf("failed to read response: %w", err))
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
		RequestID:  requestID,
	}

	var jsonData any
	if err := json.Unmarshal(data, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	if !apiResp.OK() {
		fallback := req.Fallback
		if fallback == "" {
			fallback = fmt.Sprintf("Request failed with status %d.", resp.StatusCode)
		}
		ev := apierr.Classify(&apierr.Response{Status: resp.StatusCode, Body: data}, req.Path, fallback)
		a.logger.Debug("request failed", "status", resp.StatusCode, "kind", ev.Kind, "request_id", requestID)
		return apiResp, ev
	}

	return apiResp, nil
}

func (a *APIService) networkError(path string, cause error) error {
	ev := apierr.Classify(nil, path, "")
	ev.Cause = cause
	a.logger.Debug("request did not complete", "path", path, "err", cause)
	return ev
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.Send(ctx, Request{Method: http.MethodGet, Path: path})
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.Send(ctx, Request{Method: http.MethodPost, Path: path, Body: data})
}

// Put performs a PUT request with the given JSON data and returns the raw response.
func (a *APIService) Put(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.Send(ctx, Request{Method: http.MethodPut, Path: path, Body: data})
}

// Patch performs a PATCH request with the given JSON data and returns the raw response.
func (a *APIService) Patch(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.Send(ctx, Request{Method: http.MethodPatch, Path: path, Body: data})
}

// Delete performs a DELETE request to the specified path and returns the raw response.
func (a *APIService) Delete(ctx context.Context, path string) (*APIResponse, error) {
	return a.Send(ctx, Request{Method: http.MethodDelete, Path: path})
}

// SendJSON marshals in (when non-nil) as the request body, performs the call and decodes a successful
// response body into out (when non-nil).
func (a *APIService) SendJSON(ctx context.Context, method, path string, in, out any, fallback string) error {
	req := Request{Method: method, Path: path, Fallback: fallback}
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: failed to encode request: %v", shared.ErrAPIRequest, err)
		}
		req.Body = data
	}

	resp, err := a.Send(ctx, req)
	if err != nil {
		return err
	}

	if out != nil && len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}
	return nil
}
