// Package apierror is the shared error model for the issuance and
// presentation cores: one Error type, one set of wire codes, one status-code
// mapping, usable both as a JSON body and as an application/x-www-form-urlencoded
// body (the latter is required wherever an OAuth error has to survive a
// redirect).
package apierror

import (
	"encoding/json"
	"net/http"
	"net/url"
)

// Error is the error object returned by every issuance and presentation
// endpoint. ErrorDescription is free text; the few error codes that carry
// structured companion values (invalid_proof, issuance_pending) set them in
// the dedicated fields below.
type Error struct {
	Err              string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`

	// CNonce and CNonceExpiresIn accompany ErrInvalidProof: the issuer must
	// hand back a fresh nonce in the same response that rejects the stale one.
	CNonce          string `json:"c_nonce,omitempty"`
	CNonceExpiresIn int    `json:"c_nonce_expires_in,omitempty"`

	// Interval accompanies ErrIssuancePending: the minimum number of seconds
	// the wallet must wait before polling the deferred endpoint again.
	Interval int `json:"interval,omitempty"`

	// State accompanies presentation errors returned via a redirect response,
	// echoing the state value from the original request.
	State string `json:"state,omitempty"`
}

func (e *Error) Error() string {
	if e.ErrorDescription != "" {
		return e.Err + ": " + e.ErrorDescription
	}
	return e.Err
}

// New builds a bare Error, the common case where no companion fields apply.
func New(code, description string) *Error {
	return &Error{Err: code, ErrorDescription: description}
}

// Values renders the error as application/x-www-form-urlencoded, the
// encoding OAuth authorization and token errors use when they travel via a
// redirect query string rather than a JSON response body.
func (e *Error) Values() url.Values {
	v := url.Values{}
	v.Set("error", e.Err)
	if e.ErrorDescription != "" {
		v.Set("error_description", e.ErrorDescription)
	}
	if e.State != "" {
		v.Set("state", e.State)
	}
	return v
}

// OAuth 2.0 authorization and token errors (RFC 6749 §4.1.2.1, §5.2), shared
// by both the issuance authorization/token endpoints and the presentation
// authorization response.
const (
	ErrInvalidRequest          = "invalid_request"
	ErrInvalidClient           = "invalid_client"
	ErrInvalidGrant            = "invalid_grant"
	ErrUnauthorizedClient      = "unauthorized_client"
	ErrUnsupportedGrantType    = "unsupported_grant_type"
	ErrUnsupportedResponseType = "unsupported_response_type"
	ErrInvalidScope            = "invalid_scope"
	ErrAccessDenied            = "access_denied"
	ErrServerError             = "server_error"
	ErrTemporarilyUnavailable  = "temporarily_unavailable"
)

// OpenID4VCI credential- and notification-endpoint errors.
const (
	ErrInvalidCredentialRequest    = "invalid_credential_request"
	ErrUnsupportedCredentialType   = "unsupported_credential_type"
	ErrUnsupportedCredentialFormat = "unsupported_credential_format"
	ErrInvalidProof                = "invalid_proof"
	ErrInvalidNonce                = "invalid_nonce"
	ErrInvalidEncryptionParameters = "invalid_encryption_parameters"
	ErrCredentialRequestDenied     = "credential_request_denied"
	ErrInvalidTransactionID        = "invalid_transaction_id"
	ErrIssuancePending             = "issuance_pending"
	ErrInvalidNotificationID       = "invalid_notification_id"
	ErrInvalidNotificationRequest  = "invalid_notification_request"
)

// OpenID4VCI token-endpoint pre-authorized_code grant errors (same wire
// values as RFC 6749's grant errors, kept distinct here because they pair
// with tx_code-specific descriptions at the call site).
const (
	ErrAuthorizationPending = "authorization_pending"
	ErrSlowDown             = "slow_down"
)

// OpenID4VP presentation errors (OpenID4VP §8.5 and Presentation Exchange).
const (
	ErrVPFormatsNotSupported              = "vp_formats_not_supported"
	ErrInvalidPresentationDefinitionURI   = "invalid_presentation_definition_uri"
	ErrInvalidPresentationDefinitionRefer = "invalid_presentation_definition_reference"
	ErrInvalidRequestURIMethod            = "invalid_request_uri_method"
	ErrInvalidTransactionData             = "invalid_transaction_data"
	ErrWalletUnavailable                  = "wallet_unavailable"
)

// StatusCode maps an error code to the HTTP status it should be served with.
// Unknown codes fall back to 500: an error this package doesn't recognise is
// a bug in the caller, not a client mistake, and should not be reported as one.
func StatusCode(code string) int {
	switch code {
	case ErrInvalidScope, ErrUnsupportedResponseType, ErrUnsupportedGrantType,
		ErrInvalidCredentialRequest, ErrUnsupportedCredentialType, ErrUnsupportedCredentialFormat,
		ErrInvalidProof, ErrInvalidNonce, ErrInvalidEncryptionParameters, ErrInvalidRequest,
		ErrInvalidGrant, ErrCredentialRequestDenied, ErrInvalidTransactionID, ErrInvalidNotificationID,
		ErrInvalidNotificationRequest, ErrVPFormatsNotSupported, ErrInvalidPresentationDefinitionURI,
		ErrInvalidPresentationDefinitionRefer, ErrInvalidRequestURIMethod, ErrInvalidTransactionData:
		return http.StatusBadRequest
	case ErrInvalidClient, ErrUnauthorizedClient:
		return http.StatusUnauthorized
	case ErrAccessDenied:
		return http.StatusForbidden
	case ErrAuthorizationPending, ErrSlowDown, ErrIssuancePending:
		// 400 per OAuth device-flow convention (RFC 8628 §3.5): these are
		// retryable client states, not malformed requests, but still 4xx.
		return http.StatusBadRequest
	case ErrServerError:
		return http.StatusInternalServerError
	case ErrTemporarilyUnavailable, ErrWalletUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON serves e as the JSON error body for an HTTP response, setting
// the status code from StatusCode(e.Err).
func WriteJSON(w http.ResponseWriter, e *Error) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusCode(e.Err))
	return json.NewEncoder(w).Encode(e)
}
