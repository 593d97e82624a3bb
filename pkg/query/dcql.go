package query

import "vccore/pkg/openid4vp"

// Match pairs a satisfied CredentialQuery with the records that satisfy it,
// in credential-store order.
type Match struct {
	QueryID string
	Records []*Record
}

// EvaluateDCQL evaluates a DCQL query (openid4vp.DCQL) against the holder's
// indexed credentials, in declaration order. A CredentialQuery that no
// CredentialSetQuery references must have a satisfying record. One that a set
// references needs none of its own; instead every required set must have an
// option whose queries all have satisfying records.
func EvaluateDCQL(q *openid4vp.DCQL, records []*Record) ([]Match, error) {
	matches := make([]Match, 0, len(q.Credentials))
	satisfied := make(map[string]bool, len(q.Credentials))

	for _, cq := range q.Credentials {
		var hits []*Record
		for _, r := range records {
			if matchesCredentialQuery(cq, r) {
				hits = append(hits, r)
			}
		}
		if len(hits) > 0 {
			satisfied[cq.ID] = true
			matches = append(matches, Match{QueryID: cq.ID, Records: hits})
		}
	}

	if !credentialSetsSatisfied(q.CredentialSets, satisfied) {
		return nil, &UnsatisfiedQueryError{Reason: "no credential_sets option fully satisfied"}
	}

	// every credential query not covered by an (optional) credential set must itself match
	setReferenced := make(map[string]bool)
	for _, cs := range q.CredentialSets {
		for _, opt := range cs.Options {
			for _, id := range opt {
				setReferenced[id] = true
			}
		}
	}
	for _, cq := range q.Credentials {
		if !setReferenced[cq.ID] && !satisfied[cq.ID] {
			return nil, &UnsatisfiedQueryError{QueryID: cq.ID, Reason: "no matching credential"}
		}
	}

	return matches, nil
}

func credentialSetsSatisfied(sets []openid4vp.CredentialSetQuery, satisfied map[string]bool) bool {
	for _, cs := range sets {
		ok := false
		for _, opt := range cs.Options {
			allMatch := true
			for _, id := range opt {
				if !satisfied[id] {
					allMatch = false
					break
				}
			}
			if allMatch {
				ok = true
				break
			}
		}
		required := cs.Required // an omitted "required" decodes as false, so such a set is optional
		if !ok && required {
			return false
		}
	}
	return true
}

func matchesCredentialQuery(cq openid4vp.CredentialQuery, r *Record) bool {
	switch cq.Format {
	case openid4vp.FormatSDJWTVC:
		if len(cq.Meta.VCTValues) > 0 && !containsString(cq.Meta.VCTValues, r.Profile) {
			return false
		}
	case openid4vp.FormatJwtVCJson, openid4vp.FormatLdpVCDCQL:
		if len(cq.Meta.TypeValues) > 0 && !openid4vp.MatchTypeValues(splitProfile(r.Profile), cq.Meta.TypeValues) {
			return false
		}
	case openid4vp.FormatMsoMdoc:
		if cq.Meta.DoctypeValue != "" && cq.Meta.DoctypeValue != r.Profile {
			return false
		}
	}

	for _, claim := range cq.Claims {
		value, found := r.ByPath(claim.Path)
		if !found {
			return false
		}
		_ = value
	}
	return true
}

func splitProfile(profile string) []string {
	return []string{profile}
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// UnsatisfiedQueryError reports which part of a DCQL/PE query had no
// satisfying credential.
type UnsatisfiedQueryError struct {
	QueryID string
	Reason  string
}

func (e *UnsatisfiedQueryError) Error() string {
	if e.QueryID == "" {
		return "query: " + e.Reason
	}
	return "query: credential query " + e.QueryID + ": " + e.Reason
}
