// Package issuance drives the OID4VCI issuance state machine: create an
// offer, let the wallet redeem it for a token, bind a proof of possession,
// mint the credential (or defer it), and accept delivery notifications.
//
// Every operation suspends on one of the external collaborators in deps.go
// (StateStore, Datastore, Subject, Signer) and nowhere else, with one
// exception: the revocation status list (status.go) lives on the Core
// itself rather than behind a collaborator interface, since it is in-memory
// bookkeeping local to this process rather than durable state a caller
// would want to swap out. Access to it is mutex-guarded so a single Core
// stays safe to share across concurrently-running requests.
package issuance

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"sync"
	"time"

	"vccore/pkg/apierror"
	"vccore/pkg/openid4vci"
	"vccore/pkg/vcmodel"
)

// defaults for state lifetimes, per the timeout table in the concurrency
// model: offers live as long as an authorization code would, nonces are
// single-use and short-lived, deferred polling backs off by a fixed
// interval.
const (
	DefaultOfferTTL     = 10 * time.Minute
	DefaultNonceTTL     = 60 * time.Second
	DefaultPollInterval = 5
)

// Core implements the issuance operations of §4.1 over a fixed issuer
// identity and metadata source.
type Core struct {
	Issuer      string
	StateStore  StateStore
	Datastore   Datastore
	Subject     Subject
	Signer      Signer
	Metadata    *openid4vci.CredentialIssuerMetadataParameters
	DIDResolver DIDResolver // optional; only needed for kid-referenced (not embedded-jwk) proofs

	OfferTTL     time.Duration
	NonceTTL     time.Duration
	PollInterval int

	statusListOnce sync.Once
	statusList     *statusListState
}

// New constructs a Core with the given collaborators, filling in default
// TTLs where the caller leaves them zero.
func New(issuer string, store StateStore, ds Datastore, subject Subject, signer Signer, metadata *openid4vci.CredentialIssuerMetadataParameters) *Core {
	return &Core{
		Issuer:       issuer,
		StateStore:   store,
		Datastore:    ds,
		Subject:      subject,
		Signer:       signer,
		Metadata:     metadata,
		OfferTTL:     DefaultOfferTTL,
		NonceTTL:     DefaultNonceTTL,
		PollInterval: DefaultPollInterval,
	}
}

func (c *Core) offerTTL() time.Duration {
	if c.OfferTTL == 0 {
		return DefaultOfferTTL
	}
	return c.OfferTTL
}

func (c *Core) nonceTTL() time.Duration {
	if c.NonceTTL == 0 {
		return DefaultNonceTTL
	}
	return c.NonceTTL
}

func (c *Core) pollInterval() int {
	if c.PollInterval == 0 {
		return DefaultPollInterval
	}
	return c.PollInterval
}

// CreateOfferInput is the input to CreateOffer (§4.1 op 1).
type CreateOfferInput struct {
	CredentialConfigurationIDs []string
	SubjectID                  string
	GrantTypes                 []string
	TxCodeRequired             bool
	SendType                   string // "by_val" or "by_ref"

	// CodeChallenge/CodeChallengeMethod are carried through to the
	// authorization_code grant's FlowState, for PKCE validation at /token.
	CodeChallenge       string
	CodeChallengeMethod string
}

// CreateOfferResult is the wire response of /create_offer.
type CreateOfferResult struct {
	CredentialOffer    *openid4vci.CredentialOfferParameters `json:"credential_offer,omitempty"`
	CredentialOfferURI string                                `json:"credential_offer_uri,omitempty"`
	TxCode             string                                `json:"-"`
}

// CreateOffer validates the requested configuration ids and grants against
// issuer/server metadata, mints the state for whichever grants were
// requested, and returns either the offer inline or a redeemable URI.
func (c *Core) CreateOffer(ctx context.Context, in CreateOfferInput) (*CreateOfferResult, error) {
	if len(in.CredentialConfigurationIDs) == 0 {
		return nil, apierror.New(apierror.ErrInvalidRequest, "credential_configuration_ids must not be empty")
	}
	for _, id := range in.CredentialConfigurationIDs {
		if _, ok := c.Metadata.CredentialConfigurationsSupported[id]; !ok {
			return nil, apierror.New(apierror.ErrInvalidRequest, fmt.Sprintf("unknown credential_configuration_id %q", id))
		}
	}
	if len(in.GrantTypes) == 0 {
		return nil, apierror.New(apierror.ErrInvalidRequest, "at least one grant must be requested")
	}

	grants := map[string]any{}
	var txCode string

	for _, grant := range in.GrantTypes {
		switch grant {
		case openid4vci.GrantTypePreAuthorizedCode:
			if in.SubjectID == "" {
				return nil, apierror.New(apierror.ErrInvalidRequest, "subject_id is required for the pre-authorized_code grant")
			}
			code, err := randomURLSafeToken(32)
			if err != nil {
				return nil, apierror.New(apierror.ErrServerError, err.Error())
			}

			details, err := c.authorizeAll(ctx, in.SubjectID, in.CredentialConfigurationIDs)
			if err != nil {
				return nil, err
			}

			var tc *vcmodel.TxCode
			if in.TxCodeRequired {
				generated, err := randomNumericCode(6)
				if err != nil {
					return nil, apierror.New(apierror.ErrServerError, err.Error())
				}
				txCode = generated
				tc = &vcmodel.TxCode{InputMode: "numeric", Length: 6, Description: "Enter the code provided out of band"}
			}

			state := &vcmodel.FlowState{
				ExpiresAt:                  time.Now().Add(c.offerTTL()),
				SubjectID:                  in.SubjectID,
				Stage:                      vcmodel.StageOffered,
				CredentialConfigurationIDs: in.CredentialConfigurationIDs,
				TxCode:                     tc,
				TxCodeValue:                txCode,
				AuthorizedDetails:          details,
			}
			if err := c.StateStore.Put(ctx, code, state, state.ExpiresAt); err != nil {
				return nil, apierror.New(apierror.ErrServerError, err.Error())
			}

			preAuth := openid4vci.GrantPreAuthorizedCode{PreAuthorizedCode: code}
			if tc != nil {
				preAuth.TXCode = openid4vci.TXCode{InputMode: tc.InputMode, Length: tc.Length, Description: tc.Description}
			}
			grants[openid4vci.GrantTypePreAuthorizedCode] = preAuth

		case openid4vci.GrantTypeAuthorizationCode:
			issuerState, err := randomURLSafeToken(32)
			if err != nil {
				return nil, apierror.New(apierror.ErrServerError, err.Error())
			}
			state := &vcmodel.FlowState{
				ExpiresAt:                  time.Now().Add(c.offerTTL()),
				SubjectID:                  in.SubjectID,
				Stage:                      vcmodel.StagePending,
				CredentialConfigurationIDs: in.CredentialConfigurationIDs,
				CodeChallenge:              in.CodeChallenge,
				CodeChallengeMethod:        in.CodeChallengeMethod,
			}
			if err := c.StateStore.Put(ctx, issuerState, state, state.ExpiresAt); err != nil {
				return nil, apierror.New(apierror.ErrServerError, err.Error())
			}
			grants[openid4vci.GrantTypeAuthorizationCode] = openid4vci.GrantAuthorizationCode{IssuerState: issuerState}

		default:
			return nil, apierror.New(apierror.ErrInvalidRequest, fmt.Sprintf("unsupported grant_type %q", grant))
		}
	}

	offer := &openid4vci.CredentialOfferParameters{
		CredentialIssuer:           c.Issuer,
		CredentialConfigurationIDs: in.CredentialConfigurationIDs,
		Grants:                     grants,
	}

	if in.SendType == "by_ref" {
		uriToken, err := randomURLSafeToken(16)
		if err != nil {
			return nil, apierror.New(apierror.ErrServerError, err.Error())
		}
		pendingState := &vcmodel.FlowState{ExpiresAt: time.Now().Add(c.offerTTL())}
		if err := c.StateStore.Put(ctx, uriToken, offerAndState{offer, pendingState}, pendingState.ExpiresAt); err != nil {
			return nil, apierror.New(apierror.ErrServerError, err.Error())
		}
		return &CreateOfferResult{
			CredentialOfferURI: fmt.Sprintf("%s/credential_offer/%s", c.Issuer, uriToken),
			TxCode:             txCode,
		}, nil
	}

	return &CreateOfferResult{CredentialOffer: offer, TxCode: txCode}, nil
}

type offerAndState struct {
	Offer *openid4vci.CredentialOfferParameters
	State *vcmodel.FlowState
}

func (c *Core) authorizeAll(ctx context.Context, subjectID string, configIDs []string) ([]vcmodel.AuthorizedDetail, error) {
	details := make([]vcmodel.AuthorizedDetail, 0, len(configIDs))
	for _, id := range configIDs {
		identifiers, err := c.Subject.Authorize(ctx, subjectID, id)
		if err != nil {
			return nil, apierror.New(apierror.ErrServerError, err.Error())
		}
		details = append(details, vcmodel.AuthorizedDetail{CredentialConfigurationID: id, CredentialIdentifiers: identifiers})
	}
	return details, nil
}

// CredentialOffer (fetch) redeems a by-reference offer exactly once (§4.1
// op 2).
func (c *Core) CredentialOffer(ctx context.Context, uriToken string) (*openid4vci.CredentialOfferParameters, error) {
	v, err := c.StateStore.Redeem(ctx, uriToken)
	if err != nil {
		return nil, apierror.New(apierror.ErrInvalidRequest, "offer not found or already redeemed")
	}
	pair, ok := v.(offerAndState)
	if !ok {
		return nil, apierror.New(apierror.ErrInvalidRequest, "offer not found or already redeemed")
	}
	if pair.State.Expired(time.Now()) {
		return nil, apierror.New(apierror.ErrInvalidRequest, "offer expired")
	}
	return pair.Offer, nil
}

func randomURLSafeToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("issuance: generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func randomNumericCode(digits int) (string, error) {
	upperBound := big.NewInt(1)
	for i := 0; i < digits; i++ {
		upperBound.Mul(upperBound, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, upperBound)
	if err != nil {
		return "", fmt.Errorf("issuance: generate tx_code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
