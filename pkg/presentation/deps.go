// Package presentation drives the OID4VP presentation state machine:
// create a request, let the wallet fetch it by reference, and verify the
// vp_token a wallet posts back against the DCQL/Presentation Exchange
// query that request carried (§4.2).
package presentation

import (
	"context"
	"time"
)

// StateStore is the same TTL-bounded collaborator issuance.Core suspends
// on; a request_uri is redeemed exactly once, like an offer-by-ref.
type StateStore interface {
	Put(ctx context.Context, key string, value any, expiresAt time.Time) error
	Get(ctx context.Context, key string) (any, error)
	Purge(ctx context.Context, key string) error
	Redeem(ctx context.Context, key string) (any, error)
}

// Signer mints the signed request object when the verifier opts into
// signed requests (client_id_scheme requiring JAR).
type Signer interface {
	Sign(ctx context.Context, data []byte) ([]byte, error)
	Algorithm() string
	KeyID() string
	PublicKey() any
}

// CredentialVerifier checks a single presented credential's signature and
// returns its disclosed claims, independent of credential format (SD-JWT VC
// today; additional formats plug in the same way).
type CredentialVerifier interface {
	Verify(ctx context.Context, format, credential string) (claims map[string]any, err error)
}
