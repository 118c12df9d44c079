// Package apiclient is the shared HTTP client for the marketplace backend.
//
// Every call carries the bearer token of the persisted session. A 401 on a
// call that is not exempt triggers exactly one token refresh, coalesced across
// all concurrent callers, followed by exactly one retry. When the refresh
// fails, or the retry is rejected again, the session is cleared and the
// navigator is sent to the matching login route.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	slogctx "github.com/veqryn/slog-context"

	"github.com/oko-market/oko-client/internal/serviceerr"
	"github.com/oko-market/oko-client/pkg/session"
)

const (
	defaultTimeout   = 15 * time.Second
	refreshPath      = "auth"
	refreshAction    = "refresh"
	refreshFlightKey = "refresh"
	maxBodyBytes     = 8 << 20
)

var ErrNoRefreshToken = errors.New("no refresh token in session")

var errSessionReplaced = errors.New("session replaced during token refresh")

type Options struct {
	// BaseURL is the API base, e.g. https://oko.example.com/api.
	BaseURL string
	// Timeout bounds every single HTTP call.
	Timeout time.Duration
	Routes  Routes
	// HTTPClient overrides the transport. Its Timeout is replaced by Timeout.
	HTTPClient *http.Client
}

type Client struct {
	baseURL  *url.URL
	http     *http.Client
	timeout  time.Duration
	sessions session.Repository
	nav      Navigator
	routes   Routes

	state     authState
	refreshes singleflight.Group
	// sessionMu serialises read-modify-write cycles on the session.
	sessionMu sync.Mutex

	meters *meters
	tracer trace.Tracer
}

func New(opts Options, sessions session.Repository, nav Navigator) (*Client, error) {
	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", opts.BaseURL)
	}
	if sessions == nil {
		return nil, errors.New("session repository is required")
	}
	if nav == nil {
		return nil, errors.New("navigator is required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := &http.Client{}
	if opts.HTTPClient != nil {
		c := *opts.HTTPClient
		httpClient = &c
	}
	httpClient.Timeout = timeout

	routes := opts.Routes
	if routes == (Routes{}) {
		routes = DefaultRoutes()
	}

	m, err := newMeters()
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:  baseURL,
		http:     httpClient,
		timeout:  timeout,
		sessions: sessions,
		nav:      nav,
		routes:   routes,
		meters:   m,
		tracer:   otel.Tracer(instrumentationName),
	}, nil
}

// pendingRequest is an outgoing call that may be re-issued once after a
// token refresh.
type pendingRequest struct {
	method          string
	path            string
	query           url.Values
	header          http.Header
	body            []byte
	skipAuthRefresh bool
	retry           bool
}

type RequestOption func(*pendingRequest)

func WithHeader(key, value string) RequestOption {
	return func(r *pendingRequest) { r.header.Set(key, value) }
}

func WithQuery(key, value string) RequestOption {
	return func(r *pendingRequest) { r.query.Set(key, value) }
}

// WithAction adds ?action=<verb> to the request.
func WithAction(verb string) RequestOption {
	return WithQuery("action", verb)
}

// WithSkipAuthRefresh exempts the call from the refresh and retry cycle. Auth
// operations use it: a 401 on them is a credential failure.
func WithSkipAuthRefresh() RequestOption {
	return func(r *pendingRequest) { r.skipAuthRefresh = true }
}

// Do sends a request to path relative to the API base and returns the
// envelope of a 2xx response.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Envelope, error) {
	pr := &pendingRequest{
		method: method,
		path:   path,
		query:  url.Values{},
		header: http.Header{},
	}
	for _, opt := range opts {
		opt(pr)
	}

	if body != nil {
		data, err := encodeBody(body)
		if err != nil {
			return nil, err
		}
		pr.body = data
	}

	ctx, span := c.tracer.Start(ctx, "apiclient.Do",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	start := time.Now()
	env, err := c.send(ctx, pr)
	c.meters.recordDuration(ctx, method, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Classify(err).String())
		return nil, err
	}

	return env, nil
}

func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Envelope, error) {
	return c.Do(ctx, http.MethodGet, path, nil, opts...)
}

func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Envelope, error) {
	return c.Do(ctx, http.MethodPost, path, body, opts...)
}

func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*Envelope, error) {
	return c.Do(ctx, http.MethodPut, path, body, opts...)
}

func (c *Client) Patch(ctx context.Context, path string, body any, opts ...RequestOption) (*Envelope, error) {
	return c.Do(ctx, http.MethodPatch, path, body, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*Envelope, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, opts...)
}

// send runs the request interceptor, issues the call and hands a 401 on a
// non-exempt call to the recovery path.
func (c *Client) send(ctx context.Context, pr *pendingRequest) (*Envelope, error) {
	req, err := c.newRequest(ctx, pr.method, pr.path, pr.query, pr.body)
	if err != nil {
		return nil, err
	}
	for k, v := range pr.header {
		req.Header[k] = v
	}

	token := c.accessToken(ctx)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	slogctx.Debug(ctx, "Sending API request", "method", pr.method, "path", pr.path, "retry", pr.retry)

	status, env, err := c.roundTrip(req)
	c.meters.recordRequest(ctx, pr.method, status)
	if err != nil {
		return nil, err
	}
	if isSuccess(status) {
		return env, nil
	}

	apiErr := newAPIError(status, env)
	if status == http.StatusUnauthorized && !pr.skipAuthRefresh {
		return c.recoverUnauthorized(ctx, pr, token, apiErr)
	}

	return nil, apiErr
}

func (c *Client) recoverUnauthorized(ctx context.Context, pr *pendingRequest, usedToken string, apiErr *APIError) (*Envelope, error) {
	if pr.retry {
		slogctx.Warn(ctx, "Request rejected again after token refresh", "method", pr.method, "path", pr.path)
		c.logout(ctx)
		return nil, terminated(apiErr)
	}
	pr.retry = true

	if _, err := c.refresh(ctx, usedToken); err != nil {
		if ctx.Err() != nil {
			// The caller gave up waiting; the shared refresh decides the session.
			return nil, fmt.Errorf("waiting for token refresh: %w", err)
		}
		if errors.Is(err, errSessionReplaced) {
			return nil, errors.Join(apiErr, err)
		}
		return nil, terminated(errors.Join(apiErr, err))
	}

	return c.send(ctx, pr)
}

// refresh returns a fresh access token. Concurrent callers share one
// refresh; each waiter is released when it resolves.
func (c *Client) refresh(ctx context.Context, staleToken string) (string, error) {
	ch := c.refreshes.DoChan(refreshFlightKey, func() (any, error) {
		return c.doRefresh(context.WithoutCancel(ctx), staleToken)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// doRefresh runs inside the shared flight. A failed refresh logs out before
// any waiter is released, so no request can observe the dead session.
func (c *Client) doRefresh(ctx context.Context, staleToken string) (string, error) {
	if !c.state.tryBeginRefresh() {
		return "", errors.New("token refresh already in flight")
	}
	defer c.state.endRefresh()

	token, err := c.refreshSession(ctx, staleToken)
	if err != nil {
		// A session started while the refresh was running belongs to the user.
		if !errors.Is(err, errSessionReplaced) {
			c.logout(ctx)
		}
		return "", err
	}

	return token, nil
}

func (c *Client) refreshSession(ctx context.Context, staleToken string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	s, err := c.sessions.Load(ctx)
	if err != nil && !errors.Is(err, serviceerr.ErrNotFound) {
		c.meters.recordRefresh(ctx, "failed")
		return "", fmt.Errorf("loading session: %w", err)
	}

	// The request failed with a token that has been replaced since; another
	// refresh already did the work.
	if s.Tokens.AccessToken != "" && s.Tokens.AccessToken != staleToken {
		c.meters.recordRefresh(ctx, "reused")
		return s.Tokens.AccessToken, nil
	}
	if s.Tokens.RefreshToken == "" {
		c.meters.recordRefresh(ctx, "failed")
		return "", ErrNoRefreshToken
	}

	slogctx.Info(ctx, "Refreshing access token")

	token, err := c.requestRefresh(ctx, s.Tokens.RefreshToken)
	if err != nil {
		c.meters.recordRefresh(ctx, "failed")
		slogctx.Warn(ctx, "Token refresh failed", "error", err)
		return "", err
	}

	err = c.storeAccessToken(ctx, s.Tokens.RefreshToken, token)
	if errors.Is(err, errSessionReplaced) {
		return c.replacementToken(ctx)
	}
	if err != nil {
		c.meters.recordRefresh(ctx, "failed")
		return "", err
	}

	c.meters.recordRefresh(ctx, "succeeded")
	slogctx.Info(ctx, "Access token refreshed")

	return token, nil
}

// requestRefresh calls the refresh endpoint directly, bypassing the
// interceptors so a 401 here can never recurse into another refresh.
func (c *Client) requestRefresh(ctx context.Context, refreshToken string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"action":       refreshAction,
		"refreshToken": refreshToken,
	})
	if err != nil {
		return "", fmt.Errorf("encoding refresh request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, refreshPath, nil, body)
	if err != nil {
		return "", err
	}

	status, env, err := c.roundTrip(req)
	if err != nil {
		return "", err
	}
	if !isSuccess(status) {
		return "", newAPIError(status, env)
	}

	data, err := DecodeData[struct {
		AccessToken string `json:"accessToken"`
	}](env)
	if err != nil {
		return "", fmt.Errorf("decoding refresh response: %w", err)
	}
	if data.AccessToken == "" {
		return "", errors.New("refresh response carries no access token")
	}

	return data.AccessToken, nil
}

// storeAccessToken replaces the access token in place, provided the session
// still belongs to the refresh token that was used.
func (c *Client) storeAccessToken(ctx context.Context, refreshToken, accessToken string) error {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	current, err := c.sessions.Load(ctx)
	if err != nil {
		return fmt.Errorf("reloading session: %w", err)
	}
	if current.Tokens.RefreshToken != refreshToken {
		return errSessionReplaced
	}

	if err := c.sessions.Save(ctx, current.WithAccessToken(accessToken)); err != nil {
		return fmt.Errorf("saving refreshed session: %w", err)
	}

	return nil
}

// replacementToken hands out the access token of a session that was started
// while the refresh was in flight. The refreshed token is discarded.
func (c *Client) replacementToken(ctx context.Context) (string, error) {
	current, err := c.sessions.Load(ctx)
	if err != nil || current.Tokens.AccessToken == "" {
		c.meters.recordRefresh(ctx, "failed")
		return "", errors.Join(errSessionReplaced, err)
	}

	c.meters.recordRefresh(ctx, "reused")
	slogctx.Info(ctx, "Session replaced during token refresh, keeping the new session")

	return current.Tokens.AccessToken, nil
}

// logout clears the session and navigates to the login route. Only the first
// caller after a session was established does anything.
func (c *Client) logout(ctx context.Context) {
	if !c.state.tryBeginLogout() {
		return
	}

	c.meters.logouts.Add(ctx, 1)

	c.sessionMu.Lock()
	err := c.sessions.Clear(ctx)
	c.sessionMu.Unlock()
	if err != nil {
		slogctx.Error(ctx, "Failed to clear session", "error", err)
	}

	route := LoginRoute(c.nav.CurrentPath(), c.routes)
	slogctx.Warn(ctx, "Session terminated, redirecting to login", "route", route)

	if err := c.nav.Navigate(ctx, route); err != nil {
		slogctx.Warn(ctx, "Failed to navigate to login", "route", route, "error", err)
	}
}

// StartSession persists a session obtained from login or OTP verification
// and re-arms the logout path.
func (c *Client) StartSession(ctx context.Context, s session.Session) error {
	if !s.IsAuthenticated() {
		return serviceerr.ErrPartialSession
	}

	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	if err := c.sessions.Save(ctx, s); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	c.state.rearm()

	return nil
}

// EndSession removes the session after a user initiated logout.
func (c *Client) EndSession(ctx context.Context) error {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	if err := c.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	c.state.tryBeginLogout()

	return nil
}

func (c *Client) Session(ctx context.Context) (session.Session, error) {
	return c.sessions.Load(ctx)
}

// Refreshing reports whether a token refresh is in flight.
func (c *Client) Refreshing() bool {
	return c.state.isRefreshing()
}

func (c *Client) accessToken(ctx context.Context) string {
	s, err := c.sessions.Load(ctx)
	if err != nil {
		if !errors.Is(err, serviceerr.ErrNotFound) {
			slogctx.Warn(ctx, "Could not read session, sending without token", "error", err)
		}
		return ""
	}

	return s.Tokens.AccessToken
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Request, error) {
	u, err := c.resolve(path, query)
	if err != nil {
		return nil, err
	}

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	return req, nil
}

func (c *Client) resolve(path string, query url.Values) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parsing path %q: %w", path, err)
	}

	u := c.baseURL.JoinPath(ref.Path)
	q := ref.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// roundTrip performs the call and decodes the envelope. A zero status means
// no response was received.
func (c *Client) roundTrip(req *http.Request) (int, *Envelope, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: reading response body: %w", ErrTransport, err)
	}

	env := &Envelope{StatusCode: resp.StatusCode}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, env); err != nil {
			if isSuccess(resp.StatusCode) {
				return resp.StatusCode, nil, fmt.Errorf("decoding response envelope: %w", err)
			}
			// Error pages of proxies are not envelopes.
			env = &Envelope{StatusCode: resp.StatusCode}
		}
	}
	if env.StatusCode == 0 {
		env.StatusCode = resp.StatusCode
	}

	return resp.StatusCode, env, nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	return data, nil
}
