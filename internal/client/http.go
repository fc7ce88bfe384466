package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// HTTPClient talks to the backend over its JSON API. It implements
// PreflightChecker, CredentialVerifier, FailureReporter and ProfileActions.
type HTTPClient struct {
	baseURL string
	hc      *http.Client
}

// NewHTTPClient builds a client for baseURL. A nil hc gets a client with a
// 15s timeout.
func NewHTTPClient(baseURL string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), hc: hc}
}

type apiError struct {
	Error        string     `json:"error"`
	Message      string     `json:"message"`
	BlockedUntil *time.Time `json:"blocked_until"`
	LockedUntil  *time.Time `json:"locked_until"`
}

func (e apiError) text(status int) string {
	switch {
	case e.Error != "":
		return e.Error
	case e.Message != "":
		return e.Message
	}
	return http.StatusText(status)
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, body, out any) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, raw, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, raw, nil
}

func decodeAPIError(raw []byte) apiError {
	var e apiError
	_ = json.Unmarshal(raw, &e)
	return e
}

func isSuccess(status int) bool { return status >= 200 && status < 300 }

// Preflight posts to the gateway and turns each status family into its
// typed error.
func (c *HTTPClient) Preflight(ctx context.Context, req PreflightRequest) (*PreflightResult, error) {
	var res PreflightResult
	status, raw, err := c.do(ctx, http.MethodPost, "/auth-security", "", req, &res)
	if err != nil {
		return nil, err
	}
	if isSuccess(status) {
		return &res, nil
	}

	e := decodeAPIError(raw)
	switch status {
	case http.StatusBadRequest:
		return nil, &ValidationError{Message: e.text(status)}
	case http.StatusTooManyRequests:
		rl := &RateLimitError{Message: e.text(status)}
		if e.BlockedUntil != nil {
			rl.BlockedUntil = *e.BlockedUntil
		}
		return nil, rl
	case http.StatusLocked:
		le := &LockoutError{Message: e.text(status)}
		if e.LockedUntil != nil {
			le.LockedUntil = *e.LockedUntil
		}
		return nil, le
	}
	return nil, &ServerError{Status: status, Message: e.text(status)}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *HTTPClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var sess Session
	status, raw, err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", credentials{Email: email, Password: password}, &sess)
	if err != nil {
		return nil, err
	}
	if isSuccess(status) {
		return &sess, nil
	}
	e := decodeAPIError(raw)
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized:
		return nil, &ProviderError{Status: status, Message: e.text(status)}
	case http.StatusLocked:
		le := &LockoutError{Message: e.text(status)}
		if e.LockedUntil != nil {
			le.LockedUntil = *e.LockedUntil
		}
		return nil, le
	}
	return nil, &ServerError{Status: status, Message: e.text(status)}
}

func (c *HTTPClient) CurrentUser(ctx context.Context, token string) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	status, raw, err := c.do(ctx, http.MethodGet, "/auth/v1/user", token, nil, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if !isSuccess(status) || out.User == nil {
		return nil, &ServerError{Status: status, Message: decodeAPIError(raw).text(status)}
	}
	return out.User, nil
}

func (c *HTTPClient) SignOut(ctx context.Context, token string) error {
	status, raw, err := c.do(ctx, http.MethodPost, "/auth/v1/logout", token, nil, nil)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if !isSuccess(status) {
		return &ServerError{Status: status, Message: decodeAPIError(raw).text(status)}
	}
	return nil
}

func (c *HTTPClient) ReportFailedSignin(ctx context.Context, email string) error {
	status, raw, err := c.do(ctx, http.MethodPost, "/auth/v1/failed-attempt", "", map[string]string{"email": email}, nil)
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		return &ServerError{Status: status, Message: decodeAPIError(raw).text(status)}
	}
	return nil
}

func (c *HTTPClient) RecordConsent(ctx context.Context, token string, consent Consent) error {
	status, raw, err := c.do(ctx, http.MethodPost, "/consents", token, consent, nil)
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		return &ServerError{Status: status, Message: decodeAPIError(raw).text(status)}
	}
	return nil
}

func (c *HTTPClient) RequestConfirmation(ctx context.Context, token string) error {
	status, raw, err := c.do(ctx, http.MethodPost, "/notifications/confirmation", token, nil, nil)
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		return &ServerError{Status: status, Message: decodeAPIError(raw).text(status)}
	}
	return nil
}

func (c *HTTPClient) ListEntries(ctx context.Context, token string, q EntryQuery) ([]Entry, error) {
	v := url.Values{}
	for k, val := range map[string]string{"tag": q.Tag, "q": q.Query, "from": q.From, "to": q.To} {
		if val != "" {
			v.Set(k, val)
		}
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	path := "/entries"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var out struct {
		Entries []Entry `json:"entries"`
	}
	status, raw, err := c.do(ctx, http.MethodGet, path, token, nil, &out)
	if err != nil {
		return nil, err
	}
	if err := entryStatusError(status, raw); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

func (c *HTTPClient) CreateEntry(ctx context.Context, token string, in NewEntry) (*Entry, error) {
	var out struct {
		Entry *Entry `json:"entry"`
	}
	status, raw, err := c.do(ctx, http.MethodPost, "/entries", token, in, &out)
	if err != nil {
		return nil, err
	}
	if err := entryStatusError(status, raw); err != nil {
		return nil, err
	}
	if out.Entry == nil {
		return nil, errors.New("empty entry in response")
	}
	return out.Entry, nil
}

func entryStatusError(status int, raw []byte) error {
	switch {
	case isSuccess(status):
		return nil
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusBadRequest:
		return &ValidationError{Message: decodeAPIError(raw).text(status)}
	}
	return &ServerError{Status: status, Message: decodeAPIError(raw).text(status)}
}
