package identity

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/authgate/authgate/internal/config"
)

// Provider enumerates the supported social login providers. Adding a provider
// means adding a constant here and a resolver in the registry, nothing else.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderGitHub   Provider = "github"
	ProviderFacebook Provider = "facebook"
)

func (p Provider) Valid() bool {
	switch p {
	case ProviderGoogle, ProviderGitHub, ProviderFacebook:
		return true
	}
	return false
}

// ExternalIdentity is the normalized profile obtained from a provider
// handshake. It is consumed immediately to find or create a user and never
// persisted as-is.
type ExternalIdentity struct {
	SubjectID string // provider-assigned stable id
	Provider  Provider
	Email     string
	FirstName string
	LastName  string
	Avatar    string
}

// Resolver exchanges provider credential material (an authorization code or a
// provider access token) for a normalized identity.
//
// A (nil, nil) return means the provider rejected the handshake: the caller
// must treat it as failed authentication. A non-nil error means a transport
// or configuration failure and must surface as an internal error, not as a
// login rejection.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (*ExternalIdentity, error)
}

// handshakeTimeout bounds every provider round-trip. A timeout surfaces as a
// hard failure, not as a rejected login.
const handshakeTimeout = 10 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: handshakeTimeout}
}

// Registry holds one resolver per supported provider.
type Registry struct {
	resolvers map[Provider]Resolver
}

func NewRegistry(cfg *config.ProvidersConfig) *Registry {
	return &Registry{
		resolvers: map[Provider]Resolver{
			ProviderGoogle:   NewGoogleResolver(&cfg.Google),
			ProviderGitHub:   NewGitHubResolver(&cfg.GitHub),
			ProviderFacebook: NewFacebookResolver(&cfg.Facebook),
		},
	}
}

// Register installs or replaces the resolver for a provider kind.
func (r *Registry) Register(kind Provider, resolver Resolver) {
	r.resolvers[kind] = resolver
}

// Resolve dispatches to the resolver for the given provider kind.
func (r *Registry) Resolve(ctx context.Context, kind Provider, credential string) (*ExternalIdentity, error) {
	resolver, ok := r.resolvers[kind]
	if !ok {
		return nil, fmt.Errorf("unknown social provider: %s", kind)
	}
	return resolver.Resolve(ctx, credential)
}
