package issuance

import (
	"context"
	"time"

	"vccore/pkg/apierror"
	"vccore/pkg/oauth2"
	"vccore/pkg/openid4vci"
	"vccore/pkg/vcmodel"
)

// DefaultAccessTokenTTL bounds how long an Authorized flow state, and the
// access token that keys it, remain redeemable.
const DefaultAccessTokenTTL = 10 * time.Minute

// Token implements §4.1 op 3: redeem a pre-authorized or authorization
// code for an access token, advancing the flow state from Offered (or
// Pending) to Authorized.
func (c *Core) Token(ctx context.Context, req *openid4vci.TokenRequest) (*openid4vci.TokenResponse, error) {
	switch req.GrantType {
	case openid4vci.GrantTypePreAuthorizedCode:
		return c.tokenPreAuthorized(ctx, req)
	case openid4vci.GrantTypeAuthorizationCode:
		return c.tokenAuthorizationCode(ctx, req)
	default:
		return nil, apierror.New(apierror.ErrUnsupportedGrantType, "unsupported grant_type")
	}
}

func (c *Core) tokenPreAuthorized(ctx context.Context, req *openid4vci.TokenRequest) (*openid4vci.TokenResponse, error) {
	if req.PreAuthorizedCode == "" {
		return nil, apierror.New(apierror.ErrInvalidRequest, "pre-authorized_code is required")
	}

	v, err := c.StateStore.Get(ctx, req.PreAuthorizedCode)
	if err != nil {
		return nil, apierror.New(apierror.ErrInvalidGrant, "unknown or expired pre-authorized_code")
	}
	state, ok := v.(*vcmodel.FlowState)
	if !ok || state.Stage != vcmodel.StageOffered {
		return nil, apierror.New(apierror.ErrInvalidGrant, "pre-authorized_code is not redeemable")
	}
	if state.Expired(time.Now()) {
		return nil, apierror.New(apierror.ErrInvalidGrant, "pre-authorized_code expired")
	}

	if state.TxCode != nil && req.TXCode != state.TxCodeValue {
		return nil, apierror.New(apierror.ErrInvalidGrant, "tx_code does not match")
	}

	// single redemption: purge before minting the token so a client that
	// never receives this response cannot redeem the same code twice.
	if err := c.StateStore.Purge(ctx, req.PreAuthorizedCode); err != nil {
		return nil, apierror.New(apierror.ErrServerError, err.Error())
	}

	return c.mintAccessToken(ctx, state)
}

func (c *Core) tokenAuthorizationCode(ctx context.Context, req *openid4vci.TokenRequest) (*openid4vci.TokenResponse, error) {
	if req.Code == "" {
		return nil, apierror.New(apierror.ErrInvalidRequest, "code is required")
	}

	v, err := c.StateStore.Get(ctx, req.Code)
	if err != nil {
		return nil, apierror.New(apierror.ErrInvalidGrant, "unknown or expired code")
	}
	state, ok := v.(*vcmodel.FlowState)
	if !ok || state.Expired(time.Now()) {
		return nil, apierror.New(apierror.ErrInvalidGrant, "code is not redeemable")
	}

	if err := oauth2.ValidatePKCE(req.CodeVerifier, state.CodeChallenge, state.CodeChallengeMethod); err != nil {
		switch err {
		case oauth2.ErrInvalidRequest:
			return nil, apierror.New(apierror.ErrInvalidRequest, "code_verifier is required")
		default:
			return nil, apierror.New(apierror.ErrInvalidGrant, "code_verifier does not match code_challenge")
		}
	}

	if state.AuthorizedDetails == nil {
		details, aerr := c.authorizeAll(ctx, state.SubjectID, state.CredentialConfigurationIDs)
		if aerr != nil {
			return nil, aerr
		}
		state.AuthorizedDetails = details
	}

	if err := c.StateStore.Purge(ctx, req.Code); err != nil {
		return nil, apierror.New(apierror.ErrServerError, err.Error())
	}

	return c.mintAccessToken(ctx, state)
}

func (c *Core) mintAccessToken(ctx context.Context, state *vcmodel.FlowState) (*openid4vci.TokenResponse, error) {
	accessToken, err := randomURLSafeToken(32)
	if err != nil {
		return nil, apierror.New(apierror.ErrServerError, err.Error())
	}

	authorized := &vcmodel.FlowState{
		ExpiresAt:         time.Now().Add(DefaultAccessTokenTTL),
		SubjectID:         state.SubjectID,
		Stage:             vcmodel.StageAuthorized,
		AuthorizedDetails: state.AuthorizedDetails,
	}
	if err := c.StateStore.Put(ctx, accessToken, authorized, authorized.ExpiresAt); err != nil {
		return nil, apierror.New(apierror.ErrServerError, err.Error())
	}

	details := make([]openid4vci.AuthorizationDetailsParameter, 0, len(state.AuthorizedDetails))
	for _, d := range state.AuthorizedDetails {
		details = append(details, openid4vci.AuthorizationDetailsParameter{
			Type:                      "openid_credential",
			CredentialConfigurationID: d.CredentialConfigurationID,
			CredentialIdentifiers:     d.CredentialIdentifiers,
		})
	}

	return &openid4vci.TokenResponse{
		AccessToken:          accessToken,
		TokenType:            "Bearer",
		ExpiresIn:            int(DefaultAccessTokenTTL.Seconds()),
		AuthorizationDetails: details,
	}, nil
}

// Nonce implements §4.1 op 4: mint a single-use c_nonce for the next proof
// of possession.
func (c *Core) Nonce(ctx context.Context) (*openid4vci.NonceResponse, error) {
	nonce, err := openid4vci.GenerateNonce(32)
	if err != nil {
		return nil, apierror.New(apierror.ErrServerError, err.Error())
	}
	expiresAt := time.Now().Add(c.nonceTTL())
	if err := c.StateStore.Put(ctx, "nonce:"+nonce, expiresAt, expiresAt); err != nil {
		return nil, apierror.New(apierror.ErrServerError, err.Error())
	}
	return &openid4vci.NonceResponse{CNonce: nonce}, nil
}
