package issuance

import (
	"context"
	"testing"

	"vccore/pkg/openid4vci"
	"vccore/pkg/statestore"
)

// stubSubject is a Subject that authorizes every configuration id to a
// single fixed credential_identifier and always has claims ready.
type stubSubject struct{}

func (stubSubject) Authorize(ctx context.Context, subjectID, configID string) ([]string, error) {
	return []string{"cred-1"}, nil
}

func (stubSubject) Dataset(ctx context.Context, subjectID, credentialIdentifier string) (map[string]any, bool, error) {
	return map[string]any{"given_name": "Inga"}, false, nil
}

// stubSigner never actually gets invoked by the tests in this package that
// use it; it exists only to satisfy Core's constructor.
type stubSigner struct{}

func (stubSigner) Sign(ctx context.Context, data []byte) ([]byte, error) { return data, nil }
func (stubSigner) Algorithm() string                                     { return "ES256" }
func (stubSigner) KeyID() string                                         { return "https://issuer.example.org#key-1" }
func (stubSigner) PublicKey() any                                        { return nil }

type stubDatastore struct{}

func (stubDatastore) Get(ctx context.Context, owner, partition, key string) ([]byte, error) {
	return nil, nil
}
func (stubDatastore) Put(ctx context.Context, owner, partition, key string, value []byte) error {
	return nil
}

func newTestCore(t *testing.T) (*Core, *statestore.Memory) {
	t.Helper()
	store := statestore.NewMemory()
	t.Cleanup(store.Stop)
	c := New("https://issuer.example.org", store, stubDatastore{}, stubSubject{}, stubSigner{}, &openid4vci.CredentialIssuerMetadataParameters{
		CredentialIssuer: "https://issuer.example.org",
		CredentialConfigurationsSupported: map[string]openid4vci.CredentialConfigurationsSupported{
			"pid_sd_jwt": {Format: "dc+sd-jwt", VCT: "urn:eudi:pid:1"},
		},
	})
	return c, store
}
