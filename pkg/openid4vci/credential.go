package openid4vci

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"slices"
	"strings"
	"vccore/pkg/vcmodel"
)

// HashAuthorizeToken hashes the Authorization header using SHA-256 and encodes it in Base64 URL format.
func (c *CredentialRequest) HashAuthorizeToken() string {
	token := strings.TrimPrefix(c.Authorization, "DPoP ")
	tokenS256 := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(tokenS256[:])
}

// IsAccessTokenDPoP checks if the Authorize header belong to DPoP proof
func (c *CredentialRequest) IsAccessTokenDPoP() bool {
	return strings.HasPrefix(c.Authorization, "DPoP ")
}

// CredentialRequest https://openid.net/specs/openid-4-verifiable-credential-issuance-1_0.html#name-credential-request
type CredentialRequest struct {
	DPoP          string `json:"-" header:"dpop"`
	Authorization string `json:"-" header:"Authorization" validate:"required"`

	// Format REQUIRED when the credential_identifier parameter was not returned from the Token Response. It MUST NOT be used otherwise. It is a String that determines the format of the Credential to be issued. When this parameter is used, the credential_identifier Credential Request parameter MUST NOT be present.
	Format string `json:"format"`

	// Proof OPTIONAL. Object containing the proof of possession of the cryptographic key material the issued Credential would be bound to. The proof object is REQUIRED if the proof_types_supported parameter is non-empty and present in the credential_configurations_supported parameter of the Issuer metadata for the requested Credential.
	Proof *Proof `json:"proof"`

	// CredentialIdentifier REQUIRED when the credential_identifiers parameter was returned from the Token Response. It MUST NOT be used otherwise. It is a String that identifies a Credential that is being requested to be issued. When this parameter is used, the format parameter and any other Credential format specific parameters MUST NOT be present.
	CredentialIdentifier string `json:"credential_identifier"`

	// CredentialResponseEncryption REQUIRED when the issuer's credential_response_encryption.encryption_required metadata is true.
	CredentialResponseEncryption *CredentialResponseEncryption `json:"credential_response_encryption"`
}

// Validate checks that the credential_identifier named in the request was
// actually granted to the bearer by the authorization_details of its token.
func (c *CredentialRequest) Validate(ctx context.Context, tokenResponse *TokenResponse) error {
	if c.CredentialIdentifier == "" {
		return nil
	}
	for _, detail := range tokenResponse.AuthorizationDetails {
		if slices.Contains(detail.CredentialIdentifiers, c.CredentialIdentifier) {
			return nil
		}
	}
	return &Error{Err: ErrInvalidCredentialRequest, ErrorDescription: "credential_identifier not granted to this access token"}
}

// CredentialResponse https://openid.net/specs/openid-4-verifiable-credential-issuance-1_0.html#name-credential-response
type CredentialResponse struct {
	// Credentials OPTIONAL. Contains an array of issued Credentials. It MUST NOT be used if credential or transaction_id parameter is present. The values in the array MAY be a string or an object, depending on the Credential Format. See Appendix A for the Credential Format-specific encoding requirements.
	Credentials []Credential `json:"credentials,omitempty" validate:"required_without=TransactionID Credential"`

	// TransactionID: OPTIONAL. String identifying a Deferred Issuance transaction. This claim is contained in the response if the Credential Issuer was unable to immediately issue the Credential. The value is subsequently used to obtain the respective Credential with the Deferred Credential Endpoint (see Section 9). It MUST be present when the credential parameter is not returned. It MUST be invalidated after the Credential for which it was meant has been obtained by the Wallet.
	TransactionID string `json:"transaction_id,omitempty" validate:"required_without=Credentials Credential"`

	// CNonce: OPTIONAL. String containing a nonce to be used to create a proof of possession of key material when requesting a Credential (see Section 7.2). When received, the Wallet MUST use this nonce value for its subsequent Credential Requests until the Credential Issuer provides a fresh nonce.
	CNonce string `json:"c_nonce,omitempty"`

	// CNonceExpiresIn: OPTIONAL. Number denoting the lifetime in seconds of the c_nonce.
	CNonceExpiresIn int `json:"c_nonce_expires_in,omitempty"`

	//NotificationID: OPTIONAL. String identifying an issued Credential that the Wallet includes in the Notification Request as defined in Section 10.1. This parameter MUST NOT be present if credential parameter is not present.
	NotificationID string `json:"notification_id,omitempty" validate:"required_with=Credentials"`
}

type Credential struct {
	Credential string `json:"credential" validate:"required"`
}

// Proof https://openid.net/specs/openid-4-verifiable-credential-issuance-1_0.html#name-credential-request
type Proof struct {
	// ProofType REQUIRED. String denoting the key proof type: "jwt" (Appendix F.1), "di_vp" (Appendix F.2) or "attestation" (Appendix F.3).
	ProofType string `json:"proof_type" validate:"required,oneof=jwt di_vp attestation"`

	JWT         string         `json:"jwt,omitempty"`
	DIVP        map[string]any `json:"di_vp,omitempty"`
	Attestation string         `json:"attestation,omitempty"`
}

// ExtractJWK extracts the holder's public key from the jwt proof's header.
// Delegates to ProofJWTToken, which handles both RFC 4648 base64url and the
// occasional non-conforming base64-std encoder.
func (p *Proof) ExtractJWK() (*vcmodel.JWK, error) {
	if p.ProofType != "jwt" || p.JWT == "" {
		return nil, fmt.Errorf("openid4vci: proof has no jwt to extract a jwk from")
	}
	return ProofJWTToken(p.JWT).ExtractJWK()
}

// CredentialResponseEncryption holds the JWK for encryption
type CredentialResponseEncryption struct {
	JWK vcmodel.JWK `json:"jwk" validate:"required"`
	Alg string      `json:"alg" validate:"required"`
	Enc string      `json:"enc" validate:"required"`
}
