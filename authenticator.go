package gorestx

import (
	"context"
	"encoding/base64"
)

// Authenticator produces the extra headers attached to every request
// the client sends. Authenticate is invoked once, unforced, at client
// construction, and again with force set when the client needs fresh
// credentials after a 401; implementations must bypass any internal
// caching when force is set.
type Authenticator interface {
	Authenticate(ctx context.Context, client *RestClient, force bool) (map[string]string, error)
}

// BasicAuthenticator supplies a static basic-auth Authorization
// header.
type BasicAuthenticator struct {
	Username string
	Password string
}

var _ Authenticator = (*BasicAuthenticator)(nil)

func (a *BasicAuthenticator) Authenticate(
	ctx context.Context, client *RestClient, force bool,
) (map[string]string, error) {
	cred := base64.StdEncoding.EncodeToString([]byte(a.Username + ":" + a.Password))
	return map[string]string{
		"Authorization": "Basic " + cred,
	}, nil
}

// AuthenticateFunc adapts a function to the Authenticator interface.
type AuthenticateFunc func(ctx context.Context, client *RestClient, force bool) (map[string]string, error)

var _ Authenticator = (AuthenticateFunc)(nil)

func (f AuthenticateFunc) Authenticate(
	ctx context.Context, client *RestClient, force bool,
) (map[string]string, error) {
	return f(ctx, client, force)
}
