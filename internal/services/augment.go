package services

import (
	"net/http"

	"golang.org/x/oauth2"
)

// TokenSource yields the bearer token to attach to the next request, or "" for none.
type TokenSource interface {
	Token() string
}

// TokenSourceFunc adapts a function to [TokenSource].
type TokenSourceFunc func() string

func (f TokenSourceFunc) Token() string { return f() }

// StaticToken is a [TokenSource] that always returns the same token.
type StaticToken string

func (s StaticToken) Token() string { return string(s) }

// Augmentor attaches the current bearer token to outgoing requests.
type Augmentor struct {
	source TokenSource
}

func NewAugmentor(source TokenSource) *Augmentor {
	return &Augmentor{source: source}
}

// Augment returns a copy of req carrying an Authorization header when a token is available, or req itself
// when it is not. The token is read at call time.
func (a *Augmentor) Augment(req *http.Request) *http.Request {
	if a == nil || a.source == nil {
		return req
	}
	token := a.source.Token()
	if token == "" {
		return req
	}

	out := req.Clone(req.Context())
	(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(out)
	return out
}

// AuthTransport is an [http.RoundTripper] that augments every request before handing it to Base.
type AuthTransport struct {
	Augmentor *Augmentor
	Base      http.RoundTripper // defaults to [http.DefaultTransport]
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(t.Augmentor.Augment(req))
}

// NewAuthClient wraps client's transport in an [AuthTransport] reading from source.
//
// client is copied; a nil client starts from [http.DefaultClient].
func NewAuthClient(client *http.Client, source TokenSource) *http.Client {
	if client == nil {
		client = http.DefaultClient
	}
	wrapped := *client
	wrapped.Transport = &AuthTransport{Augmentor: NewAugmentor(source), Base: client.Transport}
	return &wrapped
}
