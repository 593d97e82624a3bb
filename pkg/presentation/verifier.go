package presentation

import (
	"context"
	"fmt"

	"vccore/pkg/openid4vp"
	"vccore/pkg/sdjwtvc"
	"vccore/pkg/vcmodel"
)

// IssuerKeyResolver resolves the public key that signed a credential, given
// its unverified header (so callers can read `kid`/`iss` before trusting
// anything in the body).
type IssuerKeyResolver interface {
	ResolveIssuerKey(ctx context.Context, header map[string]any) (*vcmodel.JWK, error)
}

// SDJWTVerifier is the default CredentialVerifier: it supports the
// dc+sd-jwt / jwt_vc_json formats this implementation issues, delegating
// signature and disclosure-digest verification to sdjwtvc.
type SDJWTVerifier struct {
	Resolver IssuerKeyResolver
	Nonce    string
	Audience string
}

// Verify satisfies CredentialVerifier for SD-JWT VC presentations.
func (v *SDJWTVerifier) Verify(ctx context.Context, format, credential string) (map[string]any, error) {
	switch format {
	case openid4vp.FormatSDJWTVC, openid4vp.FormatJwtVCJson:
	default:
		return nil, fmt.Errorf("presentation: unsupported credential format %q", format)
	}

	parsed, err := sdjwtvc.Token(credential).Parse()
	if err != nil {
		return nil, fmt.Errorf("presentation: parse credential: %w", err)
	}

	issuerKey, err := v.Resolver.ResolveIssuerKey(ctx, parsed.Header)
	if err != nil {
		return nil, fmt.Errorf("presentation: resolve issuer key: %w", err)
	}
	publicKey, err := issuerKey.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("presentation: issuer key: %w", err)
	}

	client := &sdjwtvc.Client{}
	result, err := client.ParseAndVerify(credential, publicKey, &sdjwtvc.VerificationOptions{
		RequireKeyBinding: len(parsed.KeyBinding) > 0,
		ExpectedNonce:     v.Nonce,
		ExpectedAudience:  v.Audience,
	})
	if err != nil {
		return nil, fmt.Errorf("presentation: verify credential: %w", err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("presentation: credential failed verification")
	}

	return result.Claims, nil
}
