// Package keyresolver resolves the verification methods carried in proof
// JWS headers and credential kid headers: did:key, did:jwk, and raw
// multibase-encoded multikey identifiers are all self-contained and decode
// locally, with no external lookup.
package keyresolver

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/multiformats/go-multibase"

	"vccore/pkg/vcmodel"
)

// Resolver resolves an Ed25519 public key from a verification method
// identifier. Implementations may support one or both key types.
type Resolver interface {
	ResolveEd25519(verificationMethod string) (ed25519.PublicKey, error)
}

// ECDSAResolver extends Resolver with ECDSA key resolution, for
// verification methods that bind a P-256/P-384/P-521 key instead.
type ECDSAResolver interface {
	Resolver
	ResolveECDSA(verificationMethod string) (*ecdsa.PublicKey, error)
}

// MultiResolver combines multiple resolvers with fallback behavior.
type MultiResolver struct {
	resolvers []Resolver
}

// NewMultiResolver creates a resolver that tries each resolver in order.
func NewMultiResolver(resolvers ...Resolver) *MultiResolver {
	return &MultiResolver{resolvers: resolvers}
}

func (m *MultiResolver) ResolveEd25519(verificationMethod string) (ed25519.PublicKey, error) {
	var lastErr error
	for _, resolver := range m.resolvers {
		key, err := resolver.ResolveEd25519(verificationMethod)
		if err == nil {
			return key, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		return nil, fmt.Errorf("no resolvers configured")
	}
	return nil, fmt.Errorf("all resolvers failed: %w", lastErr)
}

func (m *MultiResolver) ResolveECDSA(verificationMethod string) (*ecdsa.PublicKey, error) {
	found := false
	var lastErr error
	for _, resolver := range m.resolvers {
		ecdsaResolver, ok := resolver.(ECDSAResolver)
		if !ok {
			continue
		}
		found = true
		key, err := ecdsaResolver.ResolveECDSA(verificationMethod)
		if err == nil {
			return key, nil
		}
		lastErr = err
	}
	if !found {
		return nil, fmt.Errorf("no ECDSA-capable resolvers configured")
	}
	return nil, fmt.Errorf("all ECDSA resolvers failed: %w", lastErr)
}

// CanResolveLocally reports whether verificationMethod is self-contained
// (did:key, did:jwk, or a bare multibase multikey) and therefore
// resolvable without an external lookup.
func CanResolveLocally(verificationMethod string) bool {
	return strings.HasPrefix(verificationMethod, "did:key:") ||
		strings.HasPrefix(verificationMethod, "did:jwk:") ||
		strings.HasPrefix(verificationMethod, "z") || // multibase base58-btc
		strings.HasPrefix(verificationMethod, "u") // multibase base64url
}

// SmartResolver routes did:key/did:jwk/multikey identifiers to a
// LocalResolver and everything else to a caller-supplied remote resolver.
type SmartResolver struct {
	local  *LocalResolver
	remote Resolver
}

// NewSmartResolver builds a resolver that routes by DID method, deferring
// every non-self-contained identifier (did:web, did:ebsi, ...) to remote.
func NewSmartResolver(remote Resolver) *SmartResolver {
	return &SmartResolver{local: NewLocalResolver(), remote: remote}
}

func (s *SmartResolver) ResolveEd25519(verificationMethod string) (ed25519.PublicKey, error) {
	if CanResolveLocally(verificationMethod) {
		return s.local.ResolveEd25519(verificationMethod)
	}
	return s.remote.ResolveEd25519(verificationMethod)
}

func (s *SmartResolver) ResolveECDSA(verificationMethod string) (*ecdsa.PublicKey, error) {
	if CanResolveLocally(verificationMethod) {
		return s.local.ResolveECDSA(verificationMethod)
	}
	if ecdsaResolver, ok := s.remote.(ECDSAResolver); ok {
		return ecdsaResolver.ResolveECDSA(verificationMethod)
	}
	return nil, fmt.Errorf("remote resolver does not support ECDSA")
}

func (s *SmartResolver) GetLocalResolver() *LocalResolver { return s.local }
func (s *SmartResolver) GetRemoteResolver() Resolver      { return s.remote }

// LocalResolver resolves did:key, did:jwk, and raw multikey verification
// methods directly from the bytes they carry, making no network calls.
type LocalResolver struct{}

// NewLocalResolver constructs a LocalResolver.
func NewLocalResolver() *LocalResolver {
	return &LocalResolver{}
}

func (l *LocalResolver) ResolveEd25519(verificationMethod string) (ed25519.PublicKey, error) {
	switch {
	case strings.HasPrefix(verificationMethod, "did:key:"):
		return l.resolveDidKeyEd25519(verificationMethod)
	case strings.HasPrefix(verificationMethod, "did:jwk:"):
		return l.resolveDidJwkEd25519(verificationMethod)
	case strings.HasPrefix(verificationMethod, "u"), strings.HasPrefix(verificationMethod, "z"):
		return l.decodeMultikey(verificationMethod)
	}
	return nil, fmt.Errorf("unsupported verification method format: %s", verificationMethod)
}

func (l *LocalResolver) ResolveECDSA(verificationMethod string) (*ecdsa.PublicKey, error) {
	switch {
	case strings.HasPrefix(verificationMethod, "did:key:"):
		return l.resolveDidKeyECDSA(verificationMethod)
	case strings.HasPrefix(verificationMethod, "did:jwk:"):
		return l.resolveDidJwkECDSA(verificationMethod)
	case strings.HasPrefix(verificationMethod, "u"), strings.HasPrefix(verificationMethod, "z"):
		return decodeMultikeyECDSA(verificationMethod)
	}
	return nil, fmt.Errorf("unsupported verification method format: %s", verificationMethod)
}

// ResolveJWK resolves any self-contained verification method straight to a
// vcmodel.JWK, the shape issuance.DIDResolver and its presentation-side
// counterpart need for kid-referenced proofs that don't embed their own jwk.
func (l *LocalResolver) ResolveJWK(ctx context.Context, verificationMethod string) (*vcmodel.JWK, error) {
	if strings.HasPrefix(verificationMethod, "did:jwk:") {
		raw, err := l.parseDidJwk(verificationMethod)
		if err != nil {
			return nil, err
		}
		return rawToJWK(raw), nil
	}

	if pub, err := l.ResolveECDSA(verificationMethod); err == nil {
		raw, err := ECDSAToJWK(pub)
		if err != nil {
			return nil, err
		}
		return rawToJWK(raw), nil
	}

	pub, err := l.ResolveEd25519(verificationMethod)
	if err != nil {
		return nil, err
	}
	return rawToJWK(Ed25519ToJWK(pub)), nil
}

func rawToJWK(raw map[string]interface{}) *vcmodel.JWK {
	jwk := &vcmodel.JWK{}
	if v, ok := raw["kty"].(string); ok {
		jwk.Kty = v
	}
	if v, ok := raw["crv"].(string); ok {
		jwk.Crv = v
	}
	if v, ok := raw["x"].(string); ok {
		jwk.X = v
	}
	if v, ok := raw["y"].(string); ok {
		jwk.Y = v
	}
	return jwk
}

// resolveDidKeyEd25519 extracts the Ed25519 key embedded in a
// did:key:{multikey}#{fragment} identifier.
func (l *LocalResolver) resolveDidKeyEd25519(didKey string) (ed25519.PublicKey, error) {
	withoutPrefix := strings.TrimPrefix(didKey, "did:key:")
	multikey := strings.SplitN(withoutPrefix, "#", 2)[0]
	return l.decodeMultikey(multikey)
}

// decodeMultikey decodes a multibase-encoded multikey (multicodec ||
// public-key bytes) and returns the Ed25519 key it carries.
func (l *LocalResolver) decodeMultikey(multikey string) (ed25519.PublicKey, error) {
	if len(multikey) == 0 {
		return nil, fmt.Errorf("empty multikey")
	}

	var keyBytes []byte
	switch multikey[0] {
	case 'z':
		_, decoded, err := multibase.Decode(multikey)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base58-btc multikey: %w", err)
		}
		keyBytes = decoded
	case 'u':
		decoded, err := base64.RawURLEncoding.DecodeString(multikey[1:])
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64url multikey: %w", err)
		}
		keyBytes = decoded
	default:
		return nil, fmt.Errorf("unsupported multibase prefix: %c", multikey[0])
	}

	if len(keyBytes) < 3 {
		return nil, fmt.Errorf("multikey too short: expected at least 3 bytes, got %d", len(keyBytes))
	}

	// Ed25519 public key multicodec is 0xed, varint-encoded.
	multicodec, n := binary.Uvarint(keyBytes)
	if n <= 0 {
		return nil, fmt.Errorf("failed to decode multicodec varint")
	}
	if multicodec != 0xed {
		return nil, fmt.Errorf("unsupported key type: multicodec 0x%x (expected 0xed for Ed25519)", multicodec)
	}

	pubKeyBytes := keyBytes[n:]
	if len(pubKeyBytes) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid Ed25519 public key size: got %d bytes, expected %d", len(pubKeyBytes), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(pubKeyBytes), nil
}

// resolveDidKeyECDSA extracts the ECDSA key embedded in a did:key identifier.
func (l *LocalResolver) resolveDidKeyECDSA(didKey string) (*ecdsa.PublicKey, error) {
	withoutPrefix := strings.TrimPrefix(didKey, "did:key:")
	multikey := strings.SplitN(withoutPrefix, "#", 2)[0]
	return decodeMultikeyECDSA(multikey)
}

// resolveDidJwkEd25519 extracts the Ed25519 key embedded in a did:jwk identifier.
func (l *LocalResolver) resolveDidJwkEd25519(didJwk string) (ed25519.PublicKey, error) {
	jwk, err := l.parseDidJwk(didJwk)
	if err != nil {
		return nil, err
	}
	return JWKToEd25519(jwk)
}

// resolveDidJwkECDSA extracts the ECDSA key embedded in a did:jwk identifier.
func (l *LocalResolver) resolveDidJwkECDSA(didJwk string) (*ecdsa.PublicKey, error) {
	jwk, err := l.parseDidJwk(didJwk)
	if err != nil {
		return nil, err
	}
	return JWKToECDSA(jwk)
}

// parseDidJwk decodes the base64url JWK embedded in a
// did:jwk:<encoded-jwk>#<fragment> identifier.
func (l *LocalResolver) parseDidJwk(didJwk string) (map[string]interface{}, error) {
	withoutPrefix := strings.TrimPrefix(didJwk, "did:jwk:")
	encodedJwk := strings.SplitN(withoutPrefix, "#", 2)[0]
	if encodedJwk == "" {
		return nil, fmt.Errorf("invalid did:jwk format: %s", didJwk)
	}

	jwkBytes, err := base64.RawURLEncoding.DecodeString(encodedJwk)
	if err != nil {
		jwkBytes, err = base64.URLEncoding.DecodeString(encodedJwk)
		if err != nil {
			return nil, fmt.Errorf("failed to decode did:jwk: %w", err)
		}
	}

	var jwk map[string]interface{}
	if err := json.Unmarshal(jwkBytes, &jwk); err != nil {
		return nil, fmt.Errorf("failed to parse JWK JSON: %w", err)
	}
	return jwk, nil
}

// StaticResolver is a fixed verificationMethod->key map, for tests and
// deployments that enumerate trusted keys out of band.
type StaticResolver struct {
	ed25519Keys map[string]ed25519.PublicKey
	ecdsaKeys   map[string]*ecdsa.PublicKey
}

// NewStaticResolver creates a resolver with a static key map.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{
		ed25519Keys: make(map[string]ed25519.PublicKey),
		ecdsaKeys:   make(map[string]*ecdsa.PublicKey),
	}
}

func (s *StaticResolver) AddKey(verificationMethod string, publicKey ed25519.PublicKey) {
	s.ed25519Keys[verificationMethod] = publicKey
}

func (s *StaticResolver) AddECDSAKey(verificationMethod string, publicKey *ecdsa.PublicKey) {
	s.ecdsaKeys[verificationMethod] = publicKey
}

func (s *StaticResolver) ResolveEd25519(verificationMethod string) (ed25519.PublicKey, error) {
	key, ok := s.ed25519Keys[verificationMethod]
	if !ok {
		return nil, fmt.Errorf("key not found: %s", verificationMethod)
	}
	return key, nil
}

func (s *StaticResolver) ResolveECDSA(verificationMethod string) (*ecdsa.PublicKey, error) {
	key, ok := s.ecdsaKeys[verificationMethod]
	if !ok {
		return nil, fmt.Errorf("ECDSA key not found: %s", verificationMethod)
	}
	return key, nil
}

// NewLocalOnlyResolver creates a resolver that only handles self-contained
// DIDs, for deployments with no remote trust evaluation configured.
func NewLocalOnlyResolver() *LocalResolver {
	return NewLocalResolver()
}
