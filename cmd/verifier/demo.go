package main

import (
	"context"
	"fmt"
	"sync"

	"vccore/pkg/keyresolver"
	"vccore/pkg/vcmodel"
)

// demoKeyRegistry resolves an issuer's signing key by the kid its
// credentials carry. A real deployment resolves this via the issuer's
// published JWK set or a trust list; here a registered kid is checked
// first, falling back to keyresolver.LocalResolver for issuers that
// identify themselves with a self-contained did:key/did:jwk kid, so the
// verifier can be exercised standalone via /issuer_keys or against any
// did:key-bound issuer with no registration step at all.
type demoKeyRegistry struct {
	mu       sync.Mutex
	keys     map[string]*vcmodel.JWK
	resolver *keyresolver.LocalResolver
}

func newDemoKeyRegistry() *demoKeyRegistry {
	return &demoKeyRegistry{
		keys:     make(map[string]*vcmodel.JWK),
		resolver: keyresolver.NewLocalResolver(),
	}
}

func (r *demoKeyRegistry) Register(kid string, jwk *vcmodel.JWK) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[kid] = jwk
}

func (r *demoKeyRegistry) ResolveIssuerKey(ctx context.Context, header map[string]any) (*vcmodel.JWK, error) {
	kid, _ := header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("demo key registry: credential header carries no kid")
	}

	r.mu.Lock()
	jwk, ok := r.keys[kid]
	r.mu.Unlock()
	if ok {
		return jwk, nil
	}

	if keyresolver.CanResolveLocally(kid) {
		return r.resolver.ResolveJWK(ctx, kid)
	}
	return nil, fmt.Errorf("demo key registry: no trusted key registered for kid %q", kid)
}
