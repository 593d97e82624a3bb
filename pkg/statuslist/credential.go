package statuslist

import "fmt"

// CredentialSubject is the `credentialSubject` object of a
// BitstringStatusListCredential: the published, encoded bitstring plus the
// purpose it tracks.
type CredentialSubject struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	StatusPurpose Purpose `json:"statusPurpose"`
	EncodedList   string  `json:"encodedList"`
}

// Credential is the minimal BitstringStatusListCredential wrapper: a
// type-tagged, issuer-signed envelope around a CredentialSubject. Signing
// and the rest of the VC Data Model envelope (issuer, validFrom, proof) are
// the caller's concern — this package only produces the subject payload.
type Credential struct {
	Context           []string          `json:"@context"`
	ID                string            `json:"id"`
	Type              []string          `json:"type"`
	CredentialSubject CredentialSubject `json:"credentialSubject"`
}

// NewCredentialSubject builds the credentialSubject for a status list
// credential served at listID, publishing l's current bitstring.
func NewCredentialSubject(listID string, l *List) (*CredentialSubject, error) {
	encoded, err := l.EncodedList()
	if err != nil {
		return nil, fmt.Errorf("statuslist: encode subject for %s: %w", listID, err)
	}
	return &CredentialSubject{
		ID:            listID + "#list",
		Type:          "BitstringStatusList",
		StatusPurpose: l.Purpose(),
		EncodedList:   encoded,
	}, nil
}

// NewCredential builds the full BitstringStatusListCredential envelope for
// listID, publishing l's current bitstring. The issuer signs the result
// separately (see pkg/vcmodel.Signer) before it is served.
func NewCredential(listID string, l *List) (*Credential, error) {
	subject, err := NewCredentialSubject(listID, l)
	if err != nil {
		return nil, err
	}
	return &Credential{
		Context: []string{
			"https://www.w3.org/ns/credentials/v2",
			"https://www.w3.org/ns/credentials/status/v1",
		},
		ID:                listID,
		Type:              []string{"VerifiableCredential", "BitstringStatusListCredential"},
		CredentialSubject: *subject,
	}, nil
}
