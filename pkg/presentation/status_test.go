package presentation

import (
	"context"
	"testing"

	"vccore/pkg/apierror"
)

type stubStatusResolver struct {
	revoked map[int]bool
	err     error
}

func (s *stubStatusResolver) Resolve(ctx context.Context, uri string, index int) (uint8, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.revoked[index] {
		return 1, nil
	}
	return 0, nil
}

// statusClaimVerifier is a CredentialVerifier stub that always discloses a
// status claim pointing at a fixed list index, for tests that exercise the
// status-check wiring without real SD-JWT parsing.
type statusClaimVerifier struct {
	idx int
	uri string
}

func (v *statusClaimVerifier) Verify(ctx context.Context, format, credential string) (map[string]any, error) {
	return map[string]any{
		"vct": credential,
		"status": map[string]any{
			"status_list": map[string]any{
				"idx": float64(v.idx),
				"uri": v.uri,
			},
		},
	}, nil
}

func TestResponse_RejectsRevokedCredential(t *testing.T) {
	c, _ := newTestCore(t)
	c.Credential = &statusClaimVerifier{idx: 3, uri: "https://issuer.example.org/status_list/revocation"}
	c.Status = &stubStatusResolver{revoked: map[int]bool{3: true}}

	nonce, state := createPendingRequest(t, c, testDCQL())
	_, err := c.Response(context.Background(), ResponseInput{
		Nonce:   nonce,
		State:   state,
		VPToken: map[string][]string{"pid": {"urn:eudi:pid:1"}},
	})
	if err == nil {
		t.Fatal("expected a revoked credential to be rejected")
	}
	apiErr, ok := err.(*apierror.Error)
	if !ok || apiErr.Err != apierror.ErrInvalidRequest {
		t.Fatalf("expected invalid_request, got %v", err)
	}
}

func TestResponse_AllowsUnrevokedCredential(t *testing.T) {
	c, _ := newTestCore(t)
	c.Credential = &statusClaimVerifier{idx: 3, uri: "https://issuer.example.org/status_list/revocation"}
	c.Status = &stubStatusResolver{}

	nonce, state := createPendingRequest(t, c, testDCQL())
	result, err := c.Response(context.Background(), ResponseInput{
		Nonce:   nonce,
		State:   state,
		VPToken: map[string][]string{"pid": {"urn:eudi:pid:1"}},
	})
	if err != nil {
		t.Fatalf("Response: %v", err)
	}
	if len(result.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(result.Matches))
	}
}

func TestResponse_NoStatusResolverConfigured_SkipsCheck(t *testing.T) {
	c, _ := newTestCore(t)
	c.Credential = &statusClaimVerifier{idx: 3, uri: "https://issuer.example.org/status_list/revocation"}

	nonce, state := createPendingRequest(t, c, testDCQL())
	if _, err := c.Response(context.Background(), ResponseInput{
		Nonce:   nonce,
		State:   state,
		VPToken: map[string][]string{"pid": {"urn:eudi:pid:1"}},
	}); err != nil {
		t.Fatalf("Response: %v", err)
	}
}

func TestCheckStatus_NoStatusClaim_PassesThrough(t *testing.T) {
	c, _ := newTestCore(t)
	c.Status = &stubStatusResolver{}
	if err := c.checkStatus(context.Background(), map[string]any{"vct": "x"}); err != nil {
		t.Fatalf("expected no status claim to pass through, got %v", err)
	}
}
