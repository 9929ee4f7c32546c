// Package remote talks to the crew attendance API on behalf of a device.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// ErrOffline marks failures where the request never got a usable answer
// from the API. Callers queue the mutation and retry later.
var ErrOffline = errors.New("api unreachable")

// Envelope error codes the device acts on.
const (
	CodeAlreadyCheckedIn  = "ALREADY_CHECKED_IN"
	CodeAlreadyCheckedOut = "ALREADY_CHECKED_OUT"
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidState      = "INVALID_STATE"
)

// APIError is a non-2xx answer carrying the envelope error.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error [%d] %s: %s", e.Status, e.Code, e.Message)
}

// IsOffline reports whether err is a connectivity failure.
func IsOffline(err error) bool {
	return errors.Is(err, ErrOffline)
}

// HasCode reports whether err is an APIError with the given code.
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Meta is the pagination block of list responses.
type Meta struct {
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	TotalItems int64 `json:"total_items"`
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
	Meta *Meta `json:"meta"`
}

// Transport handles low-level HTTP. Authentication lives in HTTPClient.
type Transport struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewTransport creates a transport for baseURL. A nil client uses
// http.DefaultClient.
func NewTransport(baseURL string, client *http.Client) *Transport {
	if client == nil {
		client = http.DefaultClient
	}
	return &Transport{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: client,
	}
}

// helper: build full URL with query params
func (t *Transport) buildURL(path string, query url.Values) string {
	u := t.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (t *Transport) send(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.buildURL(path, query), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return nil, classify(ctx, method, path, err)
	}
	return resp, nil
}

// classify turns a client.Do failure into ErrOffline unless the caller
// gave up or the refresh token was refused.
func classify(ctx context.Context, method, path string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := http.StatusUnauthorized
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		return &APIError{Status: status, Code: "UNAUTHORIZED", Message: "session expired, log in again"}
	}
	return fmt.Errorf("%w: %s %s: %v", ErrOffline, method, path, err)
}

func (t *Transport) do(ctx context.Context, method, path string, query url.Values, body, out any) (*Meta, error) {
	resp, err := t.send(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s: %v", ErrOffline, method, path, err)
	}

	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return nil, fmt.Errorf("%w: %s %s answered %d", ErrOffline, method, path, resp.StatusCode)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		return nil, apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decode %s %s data: %w", method, path, err)
		}
	}
	return env.Meta, nil
}

// Get sends a GET request and decodes the envelope data into out.
func (t *Transport) Get(ctx context.Context, path string, query url.Values, out any) (*Meta, error) {
	return t.do(ctx, http.MethodGet, path, query, nil, out)
}

// Post sends a POST request with JSON body
func (t *Transport) Post(ctx context.Context, path string, body, out any) error {
	_, err := t.do(ctx, http.MethodPost, path, nil, body, out)
	return err
}

// Put sends a PUT request with JSON body
func (t *Transport) Put(ctx context.Context, path string, body, out any) error {
	_, err := t.do(ctx, http.MethodPut, path, nil, body, out)
	return err
}

func (t *Transport) Delete(ctx context.Context, path string) error {
	_, err := t.do(ctx, http.MethodDelete, path, nil, nil, nil)
	return err
}

// Ping checks that the API answers at all. It does not need a session.
func (t *Transport) Ping(ctx context.Context) error {
	resp, err := t.send(ctx, http.MethodGet, "/api/v1/ping", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: ping answered %d", ErrOffline, resp.StatusCode)
	}
	return nil
}
