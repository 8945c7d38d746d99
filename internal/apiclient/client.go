// Package apiclient talks to the chess server's HTTP API.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/park285/cheese-chess/pkg/chessdto"
	"github.com/valyala/fasthttp"
)

// HeaderProvider allows injecting per-request headers.
type HeaderProvider func() map[string]string

// APIError is a non-2xx reply. Body holds the server's error payload when it sent one.
type APIError struct {
	Status int
	Body   chessdto.ErrorResponse
}

func (e *APIError) Error() string {
	if e.Body.Message != "" {
		return e.Body.Message
	}
	return fmt.Sprintf("chess api error: status=%d", e.Status)
}

// Unwrap exposes the payload as a chessdto.DomainError.
func (e *APIError) Unwrap() error {
	if e.Body.Code == "" {
		return nil
	}
	return e.Body.AsDomainError()
}

// Code returns the server's error code, or "" when the reply carried none.
func (e *APIError) Code() string { return e.Body.Code }

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Body.Code == code
}

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) CreateSession(ctx context.Context, req chessdto.CreateSessionRequest) (*chessdto.CreateSessionResponse, error) {
	var out chessdto.CreateSessionResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/sessions", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) State(ctx context.Context, id string) (*chessdto.SessionState, error) {
	var out chessdto.StateResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, sessionPath(id, ""), nil, &out, true); err != nil {
		return nil, err
	}
	return out.State, nil
}

func (c *Client) Select(ctx context.Context, id, square string) (*chessdto.SelectResponse, error) {
	var out chessdto.SelectResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, sessionPath(id, "/select"), chessdto.SelectRequest{Square: square}, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Move(ctx context.Context, id string, req chessdto.MoveRequest) (*chessdto.MoveResponse, error) {
	var out chessdto.MoveResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, sessionPath(id, "/move"), req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Undo(ctx context.Context, id string) (*chessdto.SessionState, error) {
	return c.stateCall(ctx, sessionPath(id, "/undo"), nil)
}

func (c *Client) Reset(ctx context.Context, id string) (*chessdto.SessionState, error) {
	return c.stateCall(ctx, sessionPath(id, "/reset"), nil)
}

func (c *Client) NewGame(ctx context.Context, id string, req chessdto.CreateSessionRequest) (*chessdto.SessionState, error) {
	return c.stateCall(ctx, sessionPath(id, "/new"), req)
}

func (c *Client) CloseSession(ctx context.Context, id string) error {
	return c.doJSON(ctx, fasthttp.MethodDelete, sessionPath(id, ""), nil, nil, true)
}

// BoardPNG fetches the rendered board. size is the square size in pixels; 0 keeps the server default.
func (c *Client) BoardPNG(ctx context.Context, id string, size int) ([]byte, error) {
	path := sessionPath(id, "/board.png")
	if size > 0 {
		path += "?size=" + strconv.Itoa(size)
	}
	return c.doRaw(ctx, fasthttp.MethodGet, path, nil, true)
}

func (c *Client) Lobby(ctx context.Context) ([]*chessdto.Room, error) {
	var out chessdto.RoomListResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/rooms", nil, &out, true); err != nil {
		return nil, err
	}
	return out.Rooms, nil
}

func (c *Client) MakeRoom(ctx context.Context, req chessdto.MakeRoomRequest) (*chessdto.Room, error) {
	var out chessdto.Room
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/rooms", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Room(ctx context.Context, code string) (*chessdto.Room, error) {
	var out chessdto.Room
	if err := c.doJSON(ctx, fasthttp.MethodGet, roomPath(code, ""), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) JoinRoom(ctx context.Context, code string, req chessdto.JoinRoomRequest) (*chessdto.JoinRoomResponse, error) {
	var out chessdto.JoinRoomResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, roomPath(code, "/join"), req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RoomMove(ctx context.Context, code string, req chessdto.RoomMoveRequest) (*chessdto.MoveResponse, error) {
	var out chessdto.MoveResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, roomPath(code, "/move"), req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Results(ctx context.Context, limit int) ([]*chessdto.GameResult, error) {
	path := "/api/results"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out chessdto.ResultsResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Health returns the health payload. A degraded server answers 503 with the
// same payload, which is returned together with the error.
func (c *Client) Health(ctx context.Context) (*chessdto.HealthResponse, error) {
	raw, err := c.doRaw(ctx, fasthttp.MethodGet, "/healthz", nil, false)
	var apiErr *APIError
	if err != nil && !errors.As(err, &apiErr) {
		return nil, err
	}
	var out chessdto.HealthResponse
	if len(raw) > 0 {
		if derr := json.Unmarshal(raw, &out); derr != nil {
			return nil, fmt.Errorf("decode response: %w", derr)
		}
	}
	return &out, err
}

func (c *Client) stateCall(ctx context.Context, path string, in any) (*chessdto.SessionState, error) {
	var out chessdto.StateResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, path, in, &out, false); err != nil {
		return nil, err
	}
	return out.State, nil
}

func sessionPath(id, suffix string) string {
	return "/api/sessions/" + url.PathEscape(strings.TrimSpace(id)) + suffix
}

func roomPath(code, suffix string) string {
	return "/api/rooms/" + url.PathEscape(strings.TrimSpace(code)) + suffix
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	body, err := c.doRaw(ctx, method, path, in, retry)
	if err != nil {
		return err
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// doRaw sends the request and returns a copy of the body. Non-2xx replies
// return the body together with an *APIError.
func (c *Client) doRaw(ctx context.Context, method, path string, in any, retry bool) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt == attempts {
				return nil, lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return nil, lastErr
			}
			continue
		}

		body := append([]byte(nil), resp.Body()...)
		status := resp.StatusCode()
		if status >= 200 && status < 300 {
			return body, nil
		}
		apiErr := &APIError{Status: status}
		if jerr := json.Unmarshal(body, &apiErr.Body); jerr != nil {
			apiErr.Body.Message = fmt.Sprintf("chess api error: status=%d body=%s", status, truncate(string(body), 512))
		}
		if attempt == attempts || !shouldRetryStatus(status) {
			return body, apiErr
		}
		lastErr = apiErr
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return body, lastErr
		}
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
