// Package vcmodel holds the data-model entities shared by the issuance and
// presentation cores: JWKs, flow state, authorized details, normalised
// credential records and status-list references. None of these types own
// any behaviour that talks to a collaborator (Signer, StateStore, Datastore,
// Subject) — they are the nouns the cores pass between themselves and the
// wire codec.
package vcmodel

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
)

// JWK is a JSON Web Key as carried in a `cnf`, proof header, or issuer
// metadata `jwks` entry. Only the public-key members are modelled; the core
// never constructs or stores a JWK containing private key material.
type JWK struct {
	Kty    string   `json:"kty"`
	Crv    string   `json:"crv,omitempty"`
	X      string   `json:"x,omitempty"`
	Y      string   `json:"y,omitempty"`
	N      string   `json:"n,omitempty"`
	E      string   `json:"e,omitempty"`
	Kid    string   `json:"kid,omitempty"`
	Use    string   `json:"use,omitempty"`
	Alg    string   `json:"alg,omitempty"`
	KeyOps []string `json:"key_ops,omitempty"`
	Ext    bool     `json:"ext,omitempty"`
}

// HasPrivateMaterial reports whether the JWK carries any of the documented
// private-key members ("d", "p", "q", ...). Verified from the raw map form
// since JWK itself only models public members.
func HasPrivateMaterial(raw map[string]any) bool {
	for _, k := range []string{"d", "p", "q", "dp", "dq", "qi"} {
		if _, ok := raw[k]; ok {
			return true
		}
	}
	return false
}

// PublicKey converts the JWK into a crypto public key usable for JWS
// verification. Only EC (P-256/P-384/P-521) and OKP (Ed25519) key types are
// resolved locally; RSA callers should resolve via their own PEM/cert store.
func (j *JWK) PublicKey() (any, error) {
	switch j.Kty {
	case "EC":
		return j.ecdsaPublicKey()
	case "OKP":
		return j.ed25519PublicKey()
	case "RSA":
		return j.rsaPublicKey()
	default:
		return nil, fmt.Errorf("vcmodel: unsupported jwk kty %q", j.Kty)
	}
}

func (j *JWK) ecdsaPublicKey() (*ecdsa.PublicKey, error) {
	if j.X == "" || j.Y == "" {
		return nil, fmt.Errorf("vcmodel: EC jwk missing x or y")
	}
	xb, err := base64.RawURLEncoding.DecodeString(j.X)
	if err != nil {
		return nil, fmt.Errorf("vcmodel: decode x: %w", err)
	}
	yb, err := base64.RawURLEncoding.DecodeString(j.Y)
	if err != nil {
		return nil, fmt.Errorf("vcmodel: decode y: %w", err)
	}
	var curve elliptic.Curve
	switch j.Crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("vcmodel: unsupported EC curve %q", j.Crv)
	}
	return &ecdsa.PublicKey{Curve: curve, X: new(big.Int).SetBytes(xb), Y: new(big.Int).SetBytes(yb)}, nil
}

func (j *JWK) ed25519PublicKey() (ed25519.PublicKey, error) {
	if j.Crv != "Ed25519" {
		return nil, fmt.Errorf("vcmodel: unsupported OKP curve %q", j.Crv)
	}
	xb, err := base64.RawURLEncoding.DecodeString(j.X)
	if err != nil {
		return nil, fmt.Errorf("vcmodel: decode x: %w", err)
	}
	return ed25519.PublicKey(xb), nil
}

func (j *JWK) rsaPublicKey() (*rsa.PublicKey, error) {
	if j.N == "" || j.E == "" {
		return nil, fmt.Errorf("vcmodel: RSA jwk missing n or e")
	}
	nb, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, fmt.Errorf("vcmodel: decode n: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, fmt.Errorf("vcmodel: decode e: %w", err)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: int(new(big.Int).SetBytes(eb).Int64())}, nil
}
