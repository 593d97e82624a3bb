package issuance

import (
	"context"
	"testing"
	"time"

	"vccore/pkg/oauth2"
	"vccore/pkg/openid4vci"
	"vccore/pkg/statestore"
	"vccore/pkg/vcmodel"
)

func putAuthCodeState(t *testing.T, store *statestore.Memory, code string, challenge, method string) *vcmodel.FlowState {
	t.Helper()
	state := &vcmodel.FlowState{
		ExpiresAt:           time.Now().Add(time.Minute),
		SubjectID:           "subject-1",
		Stage:               vcmodel.StagePending,
		CodeChallenge:       challenge,
		CodeChallengeMethod: method,
		AuthorizedDetails:   []vcmodel.AuthorizedDetail{{CredentialConfigurationID: "pid_sd_jwt", CredentialIdentifiers: []string{"cred-1"}}},
	}
	if err := store.Put(context.Background(), code, state, state.ExpiresAt); err != nil {
		t.Fatalf("seed FlowState: %v", err)
	}
	return state
}

func TestTokenAuthorizationCode_PKCE_Success(t *testing.T) {
	c, store := newTestCore(t)
	verifier := oauth2.CreateCodeVerifier()
	challenge := oauth2.CreateCodeChallenge(oauth2.CodeChallengeMethodS256, verifier)
	putAuthCodeState(t, store, "code-1", challenge, oauth2.CodeChallengeMethodS256)

	resp, err := c.Token(context.Background(), &openid4vci.TokenRequest{
		GrantType:    openid4vci.GrantTypeAuthorizationCode,
		Code:         "code-1",
		CodeVerifier: verifier,
	})
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("expected a minted access token")
	}
}

func TestTokenAuthorizationCode_PKCE_WrongVerifier(t *testing.T) {
	c, store := newTestCore(t)
	verifier := oauth2.CreateCodeVerifier()
	challenge := oauth2.CreateCodeChallenge(oauth2.CodeChallengeMethodS256, verifier)
	putAuthCodeState(t, store, "code-2", challenge, oauth2.CodeChallengeMethodS256)

	_, err := c.Token(context.Background(), &openid4vci.TokenRequest{
		GrantType:    openid4vci.GrantTypeAuthorizationCode,
		Code:         "code-2",
		CodeVerifier: "not-the-right-verifier",
	})
	if err == nil {
		t.Fatal("expected an error for a mismatched code_verifier")
	}
}

func TestTokenAuthorizationCode_PKCE_MissingVerifier(t *testing.T) {
	c, store := newTestCore(t)
	verifier := oauth2.CreateCodeVerifier()
	challenge := oauth2.CreateCodeChallenge(oauth2.CodeChallengeMethodS256, verifier)
	putAuthCodeState(t, store, "code-3", challenge, oauth2.CodeChallengeMethodS256)

	_, err := c.Token(context.Background(), &openid4vci.TokenRequest{
		GrantType: openid4vci.GrantTypeAuthorizationCode,
		Code:      "code-3",
	})
	if err == nil {
		t.Fatal("expected an error when code_verifier is absent but a challenge was registered")
	}
}

func TestTokenAuthorizationCode_NoPKCE(t *testing.T) {
	c, store := newTestCore(t)
	putAuthCodeState(t, store, "code-4", "", "")

	resp, err := c.Token(context.Background(), &openid4vci.TokenRequest{
		GrantType: openid4vci.GrantTypeAuthorizationCode,
		Code:      "code-4",
	})
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("expected a minted access token")
	}
}

func TestTokenAuthorizationCode_SingleUse(t *testing.T) {
	c, store := newTestCore(t)
	putAuthCodeState(t, store, "code-5", "", "")

	req := &openid4vci.TokenRequest{GrantType: openid4vci.GrantTypeAuthorizationCode, Code: "code-5"}
	if _, err := c.Token(context.Background(), req); err != nil {
		t.Fatalf("first redemption: %v", err)
	}
	if _, err := c.Token(context.Background(), req); err == nil {
		t.Fatal("expected the second redemption of the same code to fail")
	}
}
