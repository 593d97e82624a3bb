package openid4vci

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
)

// AuthorizationDetailsParameter is one element of the `authorization_details`
// array defined by RFC 9396, specialised to type "openid_credential" per
// OpenID4VCI §5.1.1. A request MUST identify the credential either by
// credential_configuration_id or by format (+ format-specific fields such as
// vct); the two are mutually exclusive.
type AuthorizationDetailsParameter struct {
	Type                      string   `json:"type" validate:"required,eq=openid_credential"`
	CredentialConfigurationID string   `json:"credential_configuration_id,omitempty"`
	Format                    string   `json:"format,omitempty"`
	VCT                       string   `json:"vct,omitempty"`
	CredentialIdentifiers     []string `json:"credential_identifiers,omitempty"`

	// Claims OPTIONAL. Restricts the requested credential to a subset of the
	// claims the configuration normally carries, per OID4VCI §5.1.1.1.
	Claims map[string]any `json:"claims,omitempty"`
}

// PARRequest is a pushed authorization request (RFC 9126) for the
// authorization_code grant, carrying the authorization_details that drive
// which credential_configuration_ids the eventual token response grants.
type PARRequest struct {
	ResponseType         string                          `json:"response_type" validate:"required,eq=code"`
	ClientID             string                           `json:"client_id,omitempty"`
	RedirectURI          string                           `json:"redirect_uri,omitempty"`
	Scope                string                           `json:"scope,omitempty"`
	State                string                           `json:"state,omitempty"`
	CodeChallenge        string                           `json:"code_challenge,omitempty"`
	CodeChallengeMethod  string                           `json:"code_challenge_method,omitempty"`
	IssuerState          string                           `json:"issuer_state,omitempty"`
	AuthorizationDetails []AuthorizationDetailsParameter `json:"authorization_details,omitempty"`
}

// BindAuthorizationRequest decodes a pushed authorization request body. The
// authorization_details member travels as a URL-escaped JSON array (per
// RFC 9396 §5, transported as a regular form/JSON string value), so it is
// unescaped and re-parsed after the outer unmarshal.
func BindAuthorizationRequest(body io.Reader) (*PARRequest, error) {
	raw := map[string]any{}
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("openid4vci: decode authorization request: %w", err)
	}

	req := &PARRequest{}
	if v, ok := raw["response_type"].(string); ok {
		req.ResponseType = v
	}
	if v, ok := raw["client_id"].(string); ok {
		req.ClientID = v
	}
	if v, ok := raw["redirect_uri"].(string); ok {
		req.RedirectURI = v
	}
	if v, ok := raw["scope"].(string); ok {
		req.Scope = v
	}
	if v, ok := raw["state"].(string); ok {
		req.State = v
	}
	if v, ok := raw["code_challenge"].(string); ok {
		req.CodeChallenge = v
	}
	if v, ok := raw["code_challenge_method"].(string); ok {
		req.CodeChallengeMethod = v
	}
	if v, ok := raw["issuer_state"].(string); ok {
		req.IssuerState = v
	}

	if v, ok := raw["authorization_details"].(string); ok && v != "" {
		unescaped, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("openid4vci: unescape authorization_details: %w", err)
		}
		var details []AuthorizationDetailsParameter
		if err := json.Unmarshal([]byte(unescaped), &details); err != nil {
			return nil, fmt.Errorf("openid4vci: parse authorization_details: %w", err)
		}
		req.AuthorizationDetails = details
	}

	return req, nil
}
