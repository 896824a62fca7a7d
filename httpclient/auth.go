package httpclient

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTokenRefreshWindow is how long before expiry a cached token is refreshed.
const DefaultTokenRefreshWindow = 5 * time.Minute

// DefaultTokenRefreshTimeout bounds a single credential call.
const DefaultTokenRefreshTimeout = 30 * time.Second

// BasicAuth contains basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// BasicAuthPolicy sets basic authentication unless the request already
// carries an Authorization header.
func BasicAuthPolicy(auth BasicAuth) Policy {
	return PolicyFunc(func(ctx context.Context, req *Request, next Sender) (*Response, error) {
		if req.Header.Get("Authorization") == "" {
			probe := http.Request{Header: make(http.Header)}
			probe.SetBasicAuth(auth.Username, auth.Password)
			req.Header.Set("Authorization", probe.Header.Get("Authorization"))
		}
		return next.Send(ctx, req)
	})
}

// KeyCredential holds an API key that can be rotated while in use.
type KeyCredential struct {
	key atomic.Pointer[string]
}

// NewKeyCredential creates a key credential.
func NewKeyCredential(key string) *KeyCredential {
	c := &KeyCredential{}
	c.Update(key)
	return c
}

// Key returns the current key.
func (c *KeyCredential) Key() string {
	return *c.key.Load()
}

// Update replaces the key for subsequent requests.
func (c *KeyCredential) Update(key string) {
	c.key.Store(&key)
}

// KeyCredentialPolicy sends the key in header, optionally behind a prefix
// such as "SharedAccessKey ".
func KeyCredentialPolicy(header, prefix string, cred *KeyCredential) Policy {
	return PolicyFunc(func(ctx context.Context, req *Request, next Sender) (*Response, error) {
		if cred == nil || cred.Key() == "" {
			return nil, NewValidationError("key credential cannot be empty", header)
		}
		req.Header.Set(header, prefix+cred.Key())
		return next.Send(ctx, req)
	})
}

// AccessToken is a bearer token and its expiry.
type AccessToken struct {
	Token     string
	ExpiresOn time.Time
}

// TokenCredential obtains access tokens for a set of scopes.
type TokenCredential interface {
	GetToken(ctx context.Context, scopes []string) (AccessToken, error)
}

// TokenCredentialFunc adapts a function to TokenCredential.
type TokenCredentialFunc func(ctx context.Context, scopes []string) (AccessToken, error)

// GetToken calls f(ctx, scopes).
func (f TokenCredentialFunc) GetToken(ctx context.Context, scopes []string) (AccessToken, error) {
	return f(ctx, scopes)
}

// BearerTokenOptions configures a BearerTokenPolicy.
type BearerTokenOptions struct {
	Scopes        []string
	RefreshWindow time.Duration
	// RefreshTimeout bounds the shared credential call. The call is detached
	// from the cancellation of the request that started it.
	RefreshTimeout time.Duration
	// AllowHTTP permits sending tokens over plain HTTP, for local testing only.
	AllowHTTP bool
	Now       func() time.Time
}

// BearerTokenPolicy authorizes requests with a cached bearer token.
// Concurrent refreshes collapse into a single credential call.
type BearerTokenPolicy struct {
	cred           TokenCredential
	scopes         []string
	refreshWindow  time.Duration
	refreshTimeout time.Duration
	allowHTTP      bool
	now            func() time.Time

	mu    sync.RWMutex
	token AccessToken
	group singleflight.Group
}

// NewBearerTokenPolicy creates a bearer token policy.
func NewBearerTokenPolicy(cred TokenCredential, opts BearerTokenOptions) *BearerTokenPolicy {
	p := &BearerTokenPolicy{
		cred:           cred,
		scopes:         append([]string(nil), opts.Scopes...),
		refreshWindow:  opts.RefreshWindow,
		refreshTimeout: opts.RefreshTimeout,
		allowHTTP:      opts.AllowHTTP,
		now:            opts.Now,
	}
	if p.refreshWindow <= 0 {
		p.refreshWindow = DefaultTokenRefreshWindow
	}
	if p.refreshTimeout <= 0 {
		p.refreshTimeout = DefaultTokenRefreshTimeout
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Process implements Policy.
func (p *BearerTokenPolicy) Process(ctx context.Context, req *Request, next Sender) (*Response, error) {
	if !p.allowHTTP && !strings.EqualFold(req.URL.Scheme, "https") {
		return nil, NewValidationError("bearer token authentication requires TLS", "url")
	}

	token, err := p.getToken(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := next.Send(ctx, req)
	if err == nil && resp.StatusCode == http.StatusUnauthorized {
		p.invalidate(token)
	}
	return resp, err
}

func (p *BearerTokenPolicy) getToken(ctx context.Context) (string, error) {
	cached := p.cached()
	if p.fresh(cached) {
		return cached.Token, nil
	}

	// Waiters share one refresh; each stops waiting when its own context ends.
	ch := p.group.DoChan("token", func() (any, error) {
		// Another flight may have refreshed the token while this one queued.
		if current := p.cached(); p.fresh(current) {
			return current.Token, nil
		}
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.refreshTimeout)
		defer cancel()

		tok, err := p.cred.GetToken(refreshCtx, p.scopes)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.token = tok
		p.mu.Unlock()
		return tok.Token, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res.Err = ctx.Err()
	}
	if res.Err != nil {
		// A token that has not expired yet is still usable while refresh fails.
		if cached.Token != "" && p.now().Before(cached.ExpiresOn) {
			return cached.Token, nil
		}
		return "", NewInterceptorError("failed to acquire access token", "auth", res.Err)
	}
	return res.Val.(string), nil
}

func (p *BearerTokenPolicy) cached() AccessToken {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token
}

func (p *BearerTokenPolicy) fresh(tok AccessToken) bool {
	return tok.Token != "" && p.now().Add(p.refreshWindow).Before(tok.ExpiresOn)
}

func (p *BearerTokenPolicy) invalidate(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token.Token == token {
		p.token = AccessToken{}
	}
}
