package issuance

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"vccore/pkg/apierror"
	"vccore/pkg/sdjwtvc"
	"vccore/pkg/vcmodel"
)

// mintCredential builds an SD-JWT VC binding claims to the holder's key and
// signs it, per §4.4: build a Disclosure per top-level claim, assemble the
// issuer JWT with _sd/_sd_alg, sign via the Signer (never a raw key in this
// core), and concatenate the disclosures.
//
// The default disclosure policy makes every claim selectively disclosed;
// callers needing finer control over which claims are bound vs. disclosed
// can post-process via sdjwtvc directly.
func (c *Core) mintCredential(ctx context.Context, configID, subjectID string, claims map[string]any, holderKey *vcmodel.JWK) (string, error) {
	config, ok := c.Metadata.CredentialConfigurationsSupported[configID]
	if !ok {
		return "", apierror.New(apierror.ErrUnsupportedCredentialType, "unknown credential_configuration_id")
	}

	holderJWK, err := jwkToMap(holderKey)
	if err != nil {
		return "", apierror.New(apierror.ErrServerError, err.Error())
	}

	digests := make([]string, 0, len(claims))
	disclosures := make([]string, 0, len(claims))
	for name, value := range claims {
		salt, err := randomSalt()
		if err != nil {
			return "", apierror.New(apierror.ErrServerError, err.Error())
		}
		d := &sdjwtvc.Discloser{Salt: salt, ClaimName: name, Value: value}
		digest, encoded, _, err := d.Hash(sha256.New())
		if err != nil {
			return "", apierror.New(apierror.ErrServerError, err.Error())
		}
		digests = append(digests, digest)
		disclosures = append(disclosures, encoded)
	}

	entry, err := c.statusLists().allocate()
	if err != nil {
		return "", apierror.New(apierror.ErrServerError, err.Error())
	}

	body := jwt.MapClaims{
		"vct":     config.VCT,
		"iss":     c.Issuer,
		"sub":     subjectID,
		"iat":     time.Now().Unix(),
		"cnf":     map[string]any{"jwk": holderJWK},
		"_sd_alg": "sha-256",
		"_sd":     digests,
		"status": map[string]any{
			"status_list": map[string]any{
				"idx": entry.ListIndex,
				"uri": c.statusListURI(),
			},
		},
	}
	header := jwt.MapClaims{"typ": "dc+sd-jwt"}

	issuerJWT, err := sdjwtvc.SignWithSigner(ctx, header, body, coreSigner{c.Signer})
	if err != nil {
		return "", apierror.New(apierror.ErrServerError, err.Error())
	}

	return sdjwtvc.Combine(issuerJWT, disclosures, ""), nil
}

// coreSigner adapts issuance.Signer to sdjwtvc.Signer; the two are
// structurally identical but kept as distinct named interfaces so the
// issuance package doesn't import sdjwtvc's interface into its own public
// surface.
type coreSigner struct {
	Signer
}

func jwkToMap(jwk *vcmodel.JWK) (map[string]any, error) {
	raw, err := json.Marshal(jwk)
	if err != nil {
		return nil, fmt.Errorf("issuance: marshal holder jwk: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("issuance: unmarshal holder jwk: %w", err)
	}
	return m, nil
}

func randomSalt() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("issuance: generate salt: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
