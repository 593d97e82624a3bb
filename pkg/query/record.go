// Package query evaluates DCQL and Presentation Exchange requests against
// the holder's disclosed credentials. Every issued credential is first
// reduced to a normalised Record — a flat {path, value} list plus its
// format profile — the same shape both query dialects match against, so
// matching logic never needs to know whether it's looking at an SD-JWT VC,
// a W3C VC, or an mdoc.
package query

import (
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// Claim is one disclosed value at a path within a credential's claim set.
// Path is the sequence of JSON keys from the root; jsonPathString joins it
// with "." the way sdjwt3.Claim.JSONPath renders a VCTM claim path.
type Claim struct {
	Path  []string `json:"path"`
	Value any      `json:"value"`
}

// Record is the normalised, query-indexable form of one issued credential.
type Record struct {
	// Profile names the credential format/type this record was built from,
	// e.g. a VCT for SD-JWT VC or a type IRI list for a W3C VC.
	Profile string
	Claims  []Claim
	// Credential is the original wire-format credential string this record
	// was derived from, returned verbatim in a VP Token match.
	Credential string
}

// NewRecord flattens a disclosed claim set (as produced by an SD-JWT or
// W3C VC verifier) into a Record. Nested maps are walked depth-first;
// arrays are left as leaf values, matching the claims path pointer
// semantics of OpenID4VP Section 7, which does not index into arrays.
func NewRecord(profile string, credential string, claims map[string]any) *Record {
	r := &Record{Profile: profile, Credential: credential}
	flatten(nil, claims, r)
	return r
}

func flatten(prefix []string, value any, r *Record) {
	m, ok := value.(map[string]any)
	if !ok {
		r.Claims = append(r.Claims, Claim{Path: append([]string{}, prefix...), Value: value})
		return
	}
	for k, v := range m {
		flatten(append(prefix, k), v, r)
	}
}

// ByPath returns the value disclosed at path, and whether it was found.
func (r *Record) ByPath(path []string) (any, bool) {
	for _, c := range r.Claims {
		if pathEqual(c.Path, path) {
			return c.Value, true
		}
	}
	return nil, false
}

func pathEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// jsonPathString renders path the way sdjwt3.Claim.JSONPath does, so the
// same jsonpath library call works uniformly whether the path came from a
// DCQL claims path pointer or a Presentation Exchange JSONPath string.
func jsonPathString(path []string) string {
	return "$." + strings.Join(path, ".")
}

// evalJSONPath evaluates a JSONPath expression against claims, returning the
// value it resolves to.
func evalJSONPath(claims map[string]any, path string) (any, error) {
	v, err := jsonpath.Get(path, claims)
	if err != nil {
		return nil, fmt.Errorf("query: jsonpath %q: %w", path, err)
	}
	return v, nil
}
