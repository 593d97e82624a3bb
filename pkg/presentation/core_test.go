package presentation

import (
	"context"
	"fmt"
	"testing"

	"vccore/pkg/apierror"
	"vccore/pkg/openid4vp"
	"vccore/pkg/statestore"
)

func testDCQL() *openid4vp.DCQL {
	return &openid4vp.DCQL{
		Credentials: []openid4vp.CredentialQuery{
			{
				ID:     "pid",
				Format: openid4vp.FormatSDJWTVC,
				Meta:   openid4vp.MetaQuery{VCTValues: []string{"urn:eudi:pid:1"}},
			},
		},
	}
}

func newTestCore(t *testing.T) (*Core, *statestore.Memory) {
	t.Helper()
	store := statestore.NewMemory()
	t.Cleanup(store.Stop)
	c := New("https://verifier.example.org", store, &stubVerifier{})
	return c, store
}

// stubVerifier is a CredentialVerifier that treats the credential string
// itself as the disclosed vct, for tests that don't need real SD-JWT
// parsing.
type stubVerifier struct {
	err error
}

func (s *stubVerifier) Verify(ctx context.Context, format, credential string) (map[string]any, error) {
	if s.err != nil {
		return nil, s.err
	}
	return map[string]any{"vct": credential}, nil
}

func TestCreateRequest_Inline(t *testing.T) {
	c, _ := newTestCore(t)

	result, err := c.CreateRequest(context.Background(), CreateRequestInput{
		DCQL:        testDCQL(),
		ResponseURI: "https://verifier.example.org/response",
		State:       "abc123",
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if result.RequestObject == nil {
		t.Fatal("expected an inline request object")
	}
	if result.RequestURI != "" {
		t.Fatalf("did not ask for send-by-ref, got a request_uri %q", result.RequestURI)
	}
	if result.RequestObject.Nonce == "" {
		t.Fatal("expected a nonce to be minted")
	}
	if result.RequestObject.DCQLQuery == nil || result.RequestObject.DCQLQuery.Credentials[0].ID != "pid" {
		t.Fatal("expected the dcql query to be carried on the request object")
	}
}

func TestCreateRequest_MissingDCQL(t *testing.T) {
	c, _ := newTestCore(t)

	_, err := c.CreateRequest(context.Background(), CreateRequestInput{
		ResponseURI: "https://verifier.example.org/response",
	})
	if err == nil {
		t.Fatal("expected an error for a missing dcql_query")
	}
	apiErr, ok := err.(*apierror.Error)
	if !ok || apiErr.Err != apierror.ErrInvalidRequest {
		t.Fatalf("expected invalid_request, got %v", err)
	}
}

func TestCreateRequest_MissingResponseURI(t *testing.T) {
	c, _ := newTestCore(t)

	_, err := c.CreateRequest(context.Background(), CreateRequestInput{DCQL: testDCQL()})
	if err == nil {
		t.Fatal("expected an error for a missing response_uri")
	}
}

func TestCreateRequest_ByRef_SingleUseFetch(t *testing.T) {
	c, _ := newTestCore(t)

	result, err := c.CreateRequest(context.Background(), CreateRequestInput{
		DCQL:        testDCQL(),
		ResponseURI: "https://verifier.example.org/response",
		SendByRef:   true,
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if result.RequestURI == "" {
		t.Fatal("expected a request_uri")
	}
	token := result.RequestURI[len(result.RequestURI)-22:]

	req, jws, err := c.RequestObject(context.Background(), token)
	if err != nil {
		t.Fatalf("RequestObject: %v", err)
	}
	if jws != "" {
		t.Fatal("did not request a signed object, expected no jws")
	}
	if req.Nonce == "" {
		t.Fatal("expected the fetched request to carry the nonce")
	}

	if _, _, err := c.RequestObject(context.Background(), token); err == nil {
		t.Fatal("expected a second fetch of the same request_uri to fail")
	}
}

func TestCreateRequest_SignedByRef(t *testing.T) {
	c, _ := newTestCore(t)
	c.Signer = &stubSigner{}

	result, err := c.CreateRequest(context.Background(), CreateRequestInput{
		DCQL:        testDCQL(),
		ResponseURI: "https://verifier.example.org/response",
		SendByRef:   true,
		SignRequest: true,
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	token := result.RequestURI[len(result.RequestURI)-22:]

	_, jws, err := c.RequestObject(context.Background(), token)
	if err != nil {
		t.Fatalf("RequestObject: %v", err)
	}
	if jws == "" {
		t.Fatal("expected a signed request object jws")
	}
}

func TestCreateRequest_SignRequestWithoutSigner(t *testing.T) {
	c, _ := newTestCore(t)

	_, err := c.CreateRequest(context.Background(), CreateRequestInput{
		DCQL:        testDCQL(),
		ResponseURI: "https://verifier.example.org/response",
		SignRequest: true,
	})
	if err == nil {
		t.Fatal("expected an error when sign_request is set but no signer is configured")
	}
}

// stubSigner is a Signer that produces a deterministic, obviously-fake
// signature; enough to exercise the request object JWS plumbing without a
// real private key.
type stubSigner struct{}

func (s *stubSigner) Sign(ctx context.Context, data []byte) ([]byte, error) {
	return []byte(fmt.Sprintf("sig(%d bytes)", len(data))), nil
}
func (s *stubSigner) Algorithm() string { return "ES256" }
func (s *stubSigner) KeyID() string     { return "verifier-key-1" }
func (s *stubSigner) PublicKey() any    { return nil }
