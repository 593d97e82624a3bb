package presentation

import (
	"context"
	"fmt"
)

// jwtSigningMethod adapts a Signer to jwt.SigningMethod (via structural
// duck typing, avoiding a direct golang-jwt import here) so RequestObject.Sign
// can drive signing through the verifier's key custodian rather than a raw
// in-process private key.
type jwtSigningMethod struct {
	ctx    context.Context
	signer Signer
}

func (m *jwtSigningMethod) Verify(signingString string, sig []byte, key any) error {
	return fmt.Errorf("presentation: jwtSigningMethod does not verify, it only signs")
}

func (m *jwtSigningMethod) Sign(signingString string, key any) ([]byte, error) {
	return m.signer.Sign(m.ctx, []byte(signingString))
}

func (m *jwtSigningMethod) Alg() string {
	return m.signer.Algorithm()
}
