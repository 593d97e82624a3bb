package issuance

import (
	"context"
	"encoding/json"

	"vccore/pkg/apierror"
)

// RegistrationRequest is the wire body of the dynamic client registration
// endpoint (§4.1 op 8): an RFC 7591-shaped client_metadata document, gated
// by a bearer access token from a prior flow the way the issuer's own
// state store access is gated elsewhere.
type RegistrationRequest struct {
	ClientMetadata map[string]any `json:"client_metadata"`
}

// RegistrationResponse echoes the stored metadata alongside the minted
// client_id.
type RegistrationResponse struct {
	ClientID       string         `json:"client_id"`
	ClientMetadata map[string]any `json:"client_metadata"`
}

// Register implements §4.1 op 8: verify the caller holds a live access
// token, mint a client_id, and persist the client's metadata to the
// Datastore under a fixed partition.
func (c *Core) Register(ctx context.Context, accessToken string, req *RegistrationRequest) (*RegistrationResponse, error) {
	if _, err := c.authorizedState(ctx, accessToken); err != nil {
		return nil, err
	}
	if len(req.ClientMetadata) == 0 {
		return nil, apierror.New(apierror.ErrInvalidRequest, "client_metadata is required")
	}

	clientID, err := randomURLSafeToken(16)
	if err != nil {
		return nil, apierror.New(apierror.ErrServerError, err.Error())
	}

	raw, err := json.Marshal(req.ClientMetadata)
	if err != nil {
		return nil, apierror.New(apierror.ErrServerError, err.Error())
	}
	if err := c.Datastore.Put(ctx, c.Issuer, "clients", clientID, raw); err != nil {
		return nil, apierror.New(apierror.ErrServerError, err.Error())
	}

	return &RegistrationResponse{ClientID: clientID, ClientMetadata: req.ClientMetadata}, nil
}
