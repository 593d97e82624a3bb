package presentation

import (
	"context"
	"time"

	"vccore/pkg/apierror"
	"vccore/pkg/openid4vp"
	"vccore/pkg/query"
)

// ResponseInput is the direct_post body (§4.2 op 3): a vp_token keyed by
// DCQL credential query id, each value the (possibly several) presented
// credential strings satisfying that query, plus the echoed state.
type ResponseInput struct {
	Nonce   string
	VPToken map[string][]string
	State   string
}

// ResponseResult reports which DCQL queries were satisfied and the
// disclosed claims of every credential that matched one.
type ResponseResult struct {
	Matches []query.Match
}

// Response implements §4.2 op 3: redeem the nonce exactly once (so a
// replayed direct_post can't be matched against the same query twice),
// verify every presented credential's signature, normalise each into a
// query.Record, and evaluate the original DCQL query against them.
func (c *Core) Response(ctx context.Context, in ResponseInput) (*ResponseResult, error) {
	if in.Nonce == "" {
		return nil, apierror.New(apierror.ErrInvalidRequest, "nonce is required")
	}

	v, err := c.StateStore.Redeem(ctx, "nonce:"+in.Nonce)
	if err != nil {
		return nil, apierror.New(apierror.ErrInvalidRequest, "unknown, expired, or already-used nonce")
	}
	pending, ok := v.(pendingRequest)
	if !ok || pending.Expired(time.Now()) {
		return nil, apierror.New(apierror.ErrInvalidRequest, "request expired")
	}
	if pending.State != "" && pending.State != in.State {
		e := apierror.New(apierror.ErrInvalidRequest, "state does not match the original request")
		e.State = pending.State
		return nil, e
	}

	records := make([]*query.Record, 0, len(in.VPToken))
	for queryID, presented := range in.VPToken {
		format := formatForQuery(pending.DCQL, queryID)
		for _, credential := range presented {
			claims, err := c.Credential.Verify(ctx, format, credential)
			if err != nil {
				return nil, apierror.New(apierror.ErrInvalidRequest, "presented credential failed verification: "+err.Error())
			}
			if err := c.checkStatus(ctx, claims); err != nil {
				return nil, apierror.New(apierror.ErrInvalidRequest, "presented credential failed status check: "+err.Error())
			}
			records = append(records, query.NewRecord(profileOf(claims), credential, claims))
		}
	}

	matches, err := query.EvaluateDCQL(pending.DCQL, records)
	if err != nil {
		return nil, apierror.New(apierror.ErrInvalidRequest, err.Error())
	}

	return &ResponseResult{Matches: matches}, nil
}

// profileOf picks the credential's format/type identifier out of its
// disclosed claims, the same identifier matchesCredentialQuery compares
// against cq.Meta: vct for SD-JWT VC, doctype for mdoc.
func profileOf(claims map[string]any) string {
	if vct, ok := claims["vct"].(string); ok {
		return vct
	}
	if doctype, ok := claims["doctype"].(string); ok {
		return doctype
	}
	return ""
}

func formatForQuery(dcql *openid4vp.DCQL, queryID string) string {
	if dcql == nil {
		return ""
	}
	for _, cq := range dcql.Credentials {
		if cq.ID == queryID {
			return cq.Format
		}
	}
	return ""
}
