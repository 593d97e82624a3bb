package issuance

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"vccore/pkg/apierror"
	"vccore/pkg/openid4vci"
	"vccore/pkg/vcmodel"
)

// Credential implements §4.1 op 5: resolve the bearer access token,
// validate the requested identifier was granted, verify the PoP, and
// either mint the credential or park the request as Deferred.
func (c *Core) Credential(ctx context.Context, accessToken string, req *openid4vci.CredentialRequest) (*openid4vci.CredentialResponse, error) {
	state, err := c.authorizedState(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	credentialIdentifier, configID, err := c.resolveRequestedCredential(state, req)
	if err != nil {
		return nil, err
	}

	publicKey, err := c.verifyProof(ctx, req)
	if err != nil {
		return nil, err
	}

	claims, pending, err := c.Subject.Dataset(ctx, state.SubjectID, credentialIdentifier)
	if err != nil {
		return nil, apierror.New(apierror.ErrServerError, err.Error())
	}

	if pending {
		transactionID, terr := randomURLSafeToken(16)
		if terr != nil {
			return nil, apierror.New(apierror.ErrServerError, terr.Error())
		}
		deferred := &vcmodel.FlowState{
			ExpiresAt: time.Now().Add(DefaultAccessTokenTTL),
			SubjectID: state.SubjectID,
			Stage:     vcmodel.StageDeferred,
		}
		dr := deferredRequest{deferred, credentialIdentifier, configID, publicKey}
		if err := c.StateStore.Put(ctx, transactionID, dr, deferred.ExpiresAt); err != nil {
			return nil, apierror.New(apierror.ErrServerError, err.Error())
		}
		return &openid4vci.CredentialResponse{TransactionID: transactionID}, nil
	}

	credential, err := c.mintCredential(ctx, configID, state.SubjectID, claims, publicKey)
	if err != nil {
		return nil, err
	}

	notificationID, err := randomURLSafeToken(16)
	if err != nil {
		return nil, apierror.New(apierror.ErrServerError, err.Error())
	}
	notifExpiry := time.Now().Add(DefaultAccessTokenTTL)
	if err := c.putNotification(ctx, notificationID, notifExpiry); err != nil {
		return nil, apierror.New(apierror.ErrServerError, err.Error())
	}

	return &openid4vci.CredentialResponse{
		Credentials:    []openid4vci.Credential{{Credential: credential}},
		NotificationID: notificationID,
	}, nil
}

type deferredRequest struct {
	State                *vcmodel.FlowState
	CredentialIdentifier string
	ConfigID             string
	HolderJWK            *vcmodel.JWK
}

func (d deferredRequest) HolderKey() (*vcmodel.JWK, error) {
	return d.HolderJWK, nil
}

func (c *Core) authorizedState(ctx context.Context, accessToken string) (*vcmodel.FlowState, error) {
	if accessToken == "" {
		return nil, apierror.New(apierror.ErrInvalidRequest, "missing bearer access token")
	}
	v, err := c.StateStore.Get(ctx, accessToken)
	if err != nil {
		return nil, apierror.New(apierror.ErrInvalidRequest, "unknown or expired access token")
	}
	state, ok := v.(*vcmodel.FlowState)
	if !ok || state.Stage != vcmodel.StageAuthorized || state.Expired(time.Now()) {
		return nil, apierror.New(apierror.ErrInvalidRequest, "access token is not authorized")
	}
	return state, nil
}

func (c *Core) resolveRequestedCredential(state *vcmodel.FlowState, req *openid4vci.CredentialRequest) (identifier, configID string, err error) {
	if req.CredentialIdentifier != "" {
		for _, d := range state.AuthorizedDetails {
			if slices.Contains(d.CredentialIdentifiers, req.CredentialIdentifier) {
				return req.CredentialIdentifier, d.CredentialConfigurationID, nil
			}
		}
		return "", "", apierror.New(apierror.ErrInvalidCredentialRequest, "credential_identifier not granted to this access token")
	}
	if req.Format != "" {
		if _, ok := c.Metadata.CredentialConfigurationsSupported[req.Format]; !ok {
			return "", "", apierror.New(apierror.ErrUnsupportedCredentialFormat, "unsupported credential format")
		}
		for _, d := range state.AuthorizedDetails {
			if len(d.CredentialIdentifiers) > 0 {
				return d.CredentialIdentifiers[0], d.CredentialConfigurationID, nil
			}
		}
	}
	return "", "", apierror.New(apierror.ErrInvalidCredentialRequest, "neither credential_identifier nor format specified")
}

// verifyProof checks the PoP JWS: typ, aud, nonce freshness (single-use),
// and the signature itself over the embedded or kid-referenced holder key.
func (c *Core) verifyProof(ctx context.Context, req *openid4vci.CredentialRequest) (*vcmodel.JWK, error) {
	if req.Proof == nil {
		return nil, c.invalidProof(ctx, "proof is required")
	}

	jwk, err := c.resolveProofKey(ctx, req.Proof)
	if err != nil {
		return nil, c.invalidProof(ctx, err.Error())
	}
	publicKey, err := jwk.PublicKey()
	if err != nil {
		return nil, c.invalidProof(ctx, err.Error())
	}

	nonce, err := extractProofNonce(req.Proof)
	if err != nil {
		return nil, c.invalidProof(ctx, err.Error())
	}
	if nonce == "" {
		return nil, c.invalidProof(ctx, "proof carries no nonce")
	}
	if _, err := c.StateStore.Redeem(ctx, "nonce:"+nonce); err != nil {
		return nil, apierror.New(apierror.ErrInvalidNonce, "c_nonce is unknown, expired, or already used")
	}

	opts := &openid4vci.VerifyProofOptions{Audience: c.Issuer, CNonce: nonce}
	if err := req.VerifyProofWithOptions(publicKey, opts); err != nil {
		return nil, c.invalidProof(ctx, err.Error())
	}

	return jwk, nil
}

func (c *Core) resolveProofKey(ctx context.Context, proof *openid4vci.Proof) (*vcmodel.JWK, error) {
	jwk, err := proof.ExtractJWK()
	if err == nil {
		return jwk, nil
	}
	if c.DIDResolver == nil {
		return nil, err
	}
	kid, kerr := extractProofKid(proof)
	if kerr != nil || kid == "" {
		return nil, err
	}
	return c.DIDResolver.ResolveJWK(ctx, kid)
}

func extractProofNonce(proof *openid4vci.Proof) (string, error) {
	if proof.ProofType != "jwt" {
		return "", nil
	}
	parts := strings.Split(proof.JWT, ".")
	if len(parts) != 3 {
		return "", nil
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", err
	}
	var claims openid4vci.ProofJWTClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", err
	}
	return claims.Nonce, nil
}

func extractProofKid(proof *openid4vci.Proof) (string, error) {
	if proof.ProofType != "jwt" {
		return "", nil
	}
	parts := strings.Split(proof.JWT, ".")
	if len(parts) != 3 {
		return "", nil
	}
	header, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", err
	}
	var h openid4vci.ProofJWTHeader
	if err := json.Unmarshal(header, &h); err != nil {
		return "", err
	}
	return h.Kid, nil
}

func (c *Core) invalidProof(ctx context.Context, description string) error {
	fresh, err := c.Nonce(ctx)
	if err != nil {
		return apierror.New(apierror.ErrInvalidProof, description)
	}
	e := apierror.New(apierror.ErrInvalidProof, description)
	e.CNonce = fresh.CNonce
	e.CNonceExpiresIn = int(c.nonceTTL().Seconds())
	return e
}
