package presentation

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"vccore/pkg/apierror"
	"vccore/pkg/openid4vp"
)

// DefaultRequestTTL bounds how long a request_uri or a pending response
// remains outstanding, mirroring the teacher's own RequestObjectCache TTL.
const DefaultRequestTTL = 10 * time.Minute

// Core implements the presentation operations of §4.2 over a fixed
// verifier identity.
type Core struct {
	Verifier   string
	StateStore StateStore
	Signer     Signer // optional; only needed for signed (JAR) request objects
	Credential CredentialVerifier
	Status     StatusResolver // optional; when nil, status claims are not checked

	RequestTTL time.Duration
}

// New constructs a Core with the given collaborators.
func New(verifier string, store StateStore, cred CredentialVerifier) *Core {
	return &Core{Verifier: verifier, StateStore: store, Credential: cred, RequestTTL: DefaultRequestTTL}
}

func (c *Core) requestTTL() time.Duration {
	if c.RequestTTL == 0 {
		return DefaultRequestTTL
	}
	return c.RequestTTL
}

// pendingRequest is the state kept between CreateRequest and Response: the
// query the wallet must satisfy and the nonce its vp_token must bind to.
type pendingRequest struct {
	ExpiresAt time.Time
	Nonce     string
	DCQL      *openid4vp.DCQL
	State     string
}

func (p pendingRequest) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// CreateRequestInput is the input to CreateRequest (§4.2 op 1).
type CreateRequestInput struct {
	DCQL        *openid4vp.DCQL
	ResponseURI string
	State       string
	SendByRef   bool
	SignRequest bool
}

// CreateRequestResult is the wire response of /create_request: either the
// request object inline, or a request_uri the wallet must dereference.
type CreateRequestResult struct {
	RequestObject    *openid4vp.RequestObject `json:"request_object,omitempty"`
	RequestObjectJWS string                   `json:"request,omitempty"`
	RequestURI       string                   `json:"request_uri,omitempty"`
}

// CreateRequest implements §4.2 op 1: mint a nonce, build the request
// object over the caller's DCQL query, and either return it inline or
// park it behind a one-time request_uri.
func (c *Core) CreateRequest(ctx context.Context, in CreateRequestInput) (*CreateRequestResult, error) {
	if in.DCQL == nil {
		return nil, apierror.New(apierror.ErrInvalidRequest, "dcql_query is required")
	}
	if in.ResponseURI == "" {
		return nil, apierror.New(apierror.ErrInvalidRequest, "response_uri is required")
	}

	nonce, err := randomURLSafeToken(32)
	if err != nil {
		return nil, apierror.New(apierror.ErrServerError, err.Error())
	}

	req := &openid4vp.RequestObject{
		ISS:          c.Verifier,
		AUD:          "https://self-issued.me/v2",
		IAT:          time.Now().Unix(),
		ResponseType: "vp_token",
		ClientID:     c.Verifier,
		ResponseMode: "direct_post",
		ResponseURI:  in.ResponseURI,
		Nonce:        nonce,
		State:        in.State,
		DCQLQuery:    in.DCQL,
	}

	pending := pendingRequest{
		ExpiresAt: time.Now().Add(c.requestTTL()),
		Nonce:     nonce,
		DCQL:      in.DCQL,
		State:     in.State,
	}

	var jws string
	if in.SignRequest {
		if c.Signer == nil {
			return nil, apierror.New(apierror.ErrServerError, "sign_request requested but no signer is configured")
		}
		signed, err := req.Sign(&jwtSigningMethod{ctx: ctx, signer: c.Signer}, nil, nil)
		if err != nil {
			return nil, apierror.New(apierror.ErrServerError, err.Error())
		}
		jws = signed
	}

	if in.SendByRef {
		uriToken, err := randomURLSafeToken(16)
		if err != nil {
			return nil, apierror.New(apierror.ErrServerError, err.Error())
		}
		if err := c.StateStore.Put(ctx, uriToken, requestAndState{req, jws, pending}, pending.ExpiresAt); err != nil {
			return nil, apierror.New(apierror.ErrServerError, err.Error())
		}
		if err := c.StateStore.Put(ctx, "nonce:"+nonce, pending, pending.ExpiresAt); err != nil {
			return nil, apierror.New(apierror.ErrServerError, err.Error())
		}
		return &CreateRequestResult{RequestURI: fmt.Sprintf("%s/request_object/%s", c.Verifier, uriToken)}, nil
	}

	if err := c.StateStore.Put(ctx, "nonce:"+nonce, pending, pending.ExpiresAt); err != nil {
		return nil, apierror.New(apierror.ErrServerError, err.Error())
	}
	return &CreateRequestResult{RequestObject: req, RequestObjectJWS: jws}, nil
}

type requestAndState struct {
	Request *openid4vp.RequestObject
	JWS     string
	Pending pendingRequest
}

// RequestObject implements §4.2 op 2: a wallet fetches a request_uri
// exactly once (RFC 9101 semantics — the request is single-use the way a
// credential offer by reference is). Signing, when the verifier opted in,
// happens at creation time in CreateRequest; this just serves the cached
// result, signed or not.
func (c *Core) RequestObject(ctx context.Context, uriToken string) (*openid4vp.RequestObject, string, error) {
	v, err := c.StateStore.Redeem(ctx, uriToken)
	if err != nil {
		return nil, "", apierror.New(apierror.ErrInvalidRequest, "request not found or already redeemed")
	}
	pair, ok := v.(requestAndState)
	if !ok || pair.Pending.Expired(time.Now()) {
		return nil, "", apierror.New(apierror.ErrInvalidRequest, "request expired")
	}
	return pair.Request, pair.JWS, nil
}

func randomURLSafeToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("presentation: generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
