package apiclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ghaggin/citas/internal/config"
	"github.com/ghaggin/citas/internal/store"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	HeaderRequestID     = "X-Request-ID"
	HeaderAuthorization = "Authorization"

	// DefaultTimeout bounds every request, including reading the body.
	DefaultTimeout = 30 * time.Second

	maxBodySize = 8 << 20
)

// Client is the only way the app talks to the backend. It attaches the stored
// bearer token to each request and drops the stored session when the backend
// answers 401.
type Client struct {
	baseURL string
	http    *http.Client
	store   store.Store
	log     *zap.Logger

	mu             sync.RWMutex
	onUnauthorized []func(ctx context.Context, token string)
}

type Params struct {
	fx.In

	Config *config.Config
	Store  store.Store
	Log    *zap.Logger
}

func New(p Params) (*Client, error) {
	if _, err := url.ParseRequestURI(p.Config.API.BaseURL); err != nil {
		return nil, err
	}
	return NewClient(p.Config.API.BaseURL, p.Config.API.Timeout, p.Store, p.Log), nil
}

func NewClient(baseURL string, timeout time.Duration, st store.Store, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		store:   st,
		log:     log,
	}
}

// OnUnauthorized registers fn to run after a 401 has cleared the stored
// session, before the failing call returns. token is the one the backend
// rejected.
func (c *Client) OnUnauthorized(fn func(ctx context.Context, token string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = append(c.onUnauthorized, fn)
}

type requestOptions struct {
	public bool
	token  string
	query  url.Values
}

type Option func(*requestOptions)

// Public sends the request without a bearer token and leaves the stored
// session alone on 401. Used for the credential endpoints.
func Public() Option {
	return func(o *requestOptions) {
		o.public = true
	}
}

// WithToken sends token as the bearer instead of the stored one. Like
// Public, a 401 leaves the stored session alone.
func WithToken(token string) Option {
	return func(o *requestOptions) {
		o.public = true
		o.token = token
	}
}

func WithQuery(q url.Values) Option {
	return func(o *requestOptions) {
		o.query = q
	}
}

// Do sends body as JSON to path and decodes a successful response into out
// (which may be nil). Every failure is an *Error.
func (c *Client) Do(ctx context.Context, method, path string, body any, out any, opts ...Option) error {
	o := &requestOptions{}
	for _, opt := range opts {
		opt(o)
	}

	requestID := uuid.NewString()
	log := c.log.With(
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", path),
	)

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			log.Error("error marshaling request body", zap.Error(err))
			return &Error{Message: msgServer, Err: err}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path, o.query), reader)
	if err != nil {
		log.Error("error creating request", zap.Error(err))
		return &Error{Message: msgServer, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)

	token := o.token
	if token != "" {
		req.Header.Set(HeaderAuthorization, "Bearer "+token)
	} else if !o.public {
		token, err = c.store.Token(ctx)
		switch {
		case err == nil:
			req.Header.Set(HeaderAuthorization, "Bearer "+token)
		case errors.Is(err, store.ErrNoSession):
		default:
			// a broken store must not block public-ish reads
			log.Warn("error reading token", zap.Error(err))
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("request failed", zap.Error(err))
		return networkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		log.Warn("error reading response body", zap.Error(err))
		return networkError(err)
	}

	if resp.StatusCode == http.StatusUnauthorized && !o.public {
		c.expire(ctx, token, log)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &Error{StatusCode: resp.StatusCode, Message: backendMessage(raw)}
		log.Info("backend returned error", zap.Int("status", resp.StatusCode), zap.String("message", apiErr.Message))
		return apiErr
	}

	log.Debug("request succeeded", zap.Int("status", resp.StatusCode))

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		log.Warn("error decoding response", zap.Error(err))
		return &Error{StatusCode: resp.StatusCode, Message: msgServer, Err: err}
	}
	return nil
}

// expire clears the store when the rejected token is still the stored one.
// A 401 for a token that a newer login already replaced is ignored.
func (c *Client) expire(ctx context.Context, sent string, log *zap.Logger) {
	if sent == "" {
		return
	}

	err := c.store.ClearToken(ctx, sent)
	switch {
	case errors.Is(err, store.ErrTokenChanged):
		log.Info("ignoring 401 for superseded token")
		return
	case err != nil:
		log.Error("error clearing session after 401", zap.Error(err))
	default:
		log.Info("token rejected, session cleared")
	}

	c.mu.RLock()
	hooks := append([]func(context.Context, string){}, c.onUnauthorized...)
	c.mu.RUnlock()

	for _, fn := range hooks {
		fn(ctx, sent)
	}
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func networkError(err error) *Error {
	var netErr interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Message: msgTimeout, Err: err}
	}
	return &Error{Message: msgUnreachable, Err: err}
}

// backendMessage pulls "message" out of an error body. Non-JSON bodies yield "".
func backendMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
