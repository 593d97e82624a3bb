package openid4vci

// GrantTypePreAuthorizedCode and GrantTypeAuthorizationCode are the two
// grant_type values this token endpoint accepts.
const (
	GrantTypePreAuthorizedCode = "urn:ietf:params:oauth:grant-type:pre-authorized_code"
	GrantTypeAuthorizationCode = "authorization_code"
)

// TokenRequest https://openid.net/specs/openid-4-verifiable-credential-issuance-1_0-13.html#name-token-request
// Bound from application/x-www-form-urlencoded, per §6 of the core spec.
type TokenRequest struct {
	DPOP string `form:"-"`

	// GrantType REQUIRED. One of GrantTypePreAuthorizedCode or GrantTypeAuthorizationCode.
	GrantType string `form:"grant_type" validate:"required,oneof=urn:ietf:params:oauth:grant-type:pre-authorized_code authorization_code"`

	// PreAuthorizedCode REQUIRED if GrantType is the pre-authorized_code grant.
	PreAuthorizedCode string `form:"pre-authorized_code"`

	// TXCode OPTIONAL. Present iff the offer carried a tx_code descriptor.
	TXCode string `form:"tx_code"`

	// Code REQUIRED if GrantType is authorization_code.
	Code string `form:"code"`

	// RedirectURI REQUIRED if it was present in the authorization request.
	RedirectURI string `form:"redirect_uri"`

	// ClientID REQUIRED if the client is not otherwise authenticated.
	ClientID string `form:"client_id"`

	// CodeVerifier OPTIONAL PKCE verifier, required if the authorization
	// request carried a code_challenge.
	CodeVerifier string `form:"code_verifier"`
}

// TokenResponse https://openid.net/specs/openid-4-verifiable-credential-issuance-1_0-13.html#name-successful-token-response
type TokenResponse struct {
	// AccessToken REQUIRED.  The access token issued by the authorization server.
	AccessToken string `json:"access_token" validate:"required"`

	// TokenType REQUIRED.  The type of the token issued as described in Section 7.1.  Value is case insensitive.
	TokenType string `json:"token_type" validate:"required"`

	// ExpiresIn RECOMMENDED.  The lifetime in seconds of the access token.  For example, the value "3600" denotes that the access token will expire in one hour from the time the response was generated. If omitted, the authorization server SHOULD provide the expiration time via other means or document the default value.
	ExpiresIn int `json:"expires_in" validate:"required"`

	// Scope OPTIONAL, if identical to the scope requested by the client; otherwise, REQUIRED.  The scope of the access token as described by Section 3.3.
	Scope string `json:"scope"`

	// State REQUIRED if the "state" parameter was present in the client authorization request.  The exact value received from the client.
	State string `json:"state"`

	//CNonce OPTIONAL. String containing a nonce to be used when creating a proof of possession of the key proof (see Section 7.2). When received, the Wallet MUST use this nonce value for its subsequent requests until the Credential Issuer provides a fresh nonce.
	CNonce string `json:"c_nonce"`

	// CNonceExpiresIn OPTIONAL. Number denoting the lifetime in seconds of the c_nonce.
	CNonceExpiresIn int `json:"c_nonce_expires_in"`

	// AuthorizationDetails REQUIRED when authorization_details parameter is used to request issuance of a certain Credential type as defined in Section 5.1.1. It MUST NOT be used otherwise. It is an array of objects, as defined in Section 7 of [RFC9396]. In addition to the parameters defined in Section 5.1.1, this specification defines the following parameter to be used with the authorization details type openid_credential in the Token Response:
	// * credential_identifiers: OPTIONAL. Array of strings, each uniquely identifying a Credential that can be issued using the Access Token returned in this response. Each of these Credentials corresponds to the same entry in the credential_configurations_supported Credential Issuer metadata but can contain different claim values or a different subset of claims within the claims set identified by that Credential type. This parameter can be used to simplify the Credential Request, as defined in Section 7.2, where the credential_identifier parameter replaces the format parameter and any other Credential format-specific parameters in the Credential Request. When received, the Wallet MUST use these values together with an Access Token in subsequent Credential Requests.

	AuthorizationDetails []AuthorizationDetailsParameter `json:"authorization_details"`
}
