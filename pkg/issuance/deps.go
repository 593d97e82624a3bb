package issuance

import (
	"context"
	"time"

	"vccore/pkg/vcmodel"
)

// StateStore is the TTL-bounded flow-state collaborator the core suspends
// on at every stage transition (§4.3). vccore/pkg/statestore.Store
// satisfies this directly.
type StateStore interface {
	Put(ctx context.Context, key string, value any, expiresAt time.Time) error
	Get(ctx context.Context, key string) (any, error)
	Purge(ctx context.Context, key string) error
	Redeem(ctx context.Context, key string) (any, error)
}

// Datastore is the owner/partition/key byte store used for issuer, server
// and client metadata records (§6), kept separate from flow state because
// it is long-lived and not TTL-bounded.
type Datastore interface {
	Get(ctx context.Context, owner, partition, key string) ([]byte, error)
	Put(ctx context.Context, owner, partition, key string, value []byte) error
}

// Subject is the issuer-side back office: it decides what a subject is
// entitled to and hands back the claims for a credential once authorized.
type Subject interface {
	// Authorize expands a credential_configuration_id a subject is entitled
	// to into the opaque credential_identifiers the datastore will bind.
	Authorize(ctx context.Context, subjectID, configID string) ([]string, error)

	// Dataset fetches the claims for a previously authorized
	// credential_identifier, and whether issuance is still pending (e.g.
	// waiting on a back-office process).
	Dataset(ctx context.Context, subjectID, credentialIdentifier string) (claims map[string]any, pending bool, err error)
}

// Signer is the capability used to mint issued credentials and signed
// metadata; the core never holds private key material directly.
type Signer interface {
	Sign(ctx context.Context, data []byte) ([]byte, error)
	Algorithm() string
	KeyID() string
	PublicKey() any
}

// DIDResolver resolves a key identifier (a DID URL or similar) found in a
// PoP JWS's kid header to its public JWK, for proofs that reference a key
// by id rather than embedding it. Optional: a Core with no resolver
// configured only accepts proofs that embed their jwk.
type DIDResolver interface {
	ResolveJWK(ctx context.Context, kid string) (*vcmodel.JWK, error)
}
