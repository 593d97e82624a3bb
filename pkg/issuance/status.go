package issuance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"vccore/pkg/apierror"
	"vccore/pkg/sdjwtvc"
	"vccore/pkg/statuslist"
)

// statusListState tracks the single in-memory revocation list this core
// publishes. A real deployment shards entries across many lists once one
// fills; one list is enough to exercise the bitstring/credential machinery
// end to end.
type statusListState struct {
	mu   sync.Mutex
	list *statuslist.List
	next int
}

func newStatusListState() *statusListState {
	return &statusListState{}
}

// allocate reserves the next free bit in the revocation list, growing the
// list lazily on first use, and returns the entry to embed in a freshly
// minted credential's `status` claim.
func (s *statusListState) allocate() (statuslist.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.list == nil {
		l, err := statuslist.New(statuslist.PurposeRevocation, 1, statuslist.MinimumSizeBits)
		if err != nil {
			return statuslist.Entry{}, err
		}
		s.list = l
	}
	if s.next >= s.list.Capacity() {
		return statuslist.Entry{}, fmt.Errorf("issuance: status list exhausted its %d-entry capacity", s.list.Capacity())
	}
	idx := s.next
	s.next++
	return statuslist.Entry{Purpose: statuslist.PurposeRevocation, ListIndex: idx, StatusSize: 1}, nil
}

// revoke flips the revocation bit for a previously issued entry.
func (s *statusListState) revoke(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.list == nil {
		return fmt.Errorf("issuance: no status list entries have been issued yet")
	}
	return s.list.Set(index, 1)
}

func (s *statusListState) snapshot() (*statuslist.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.list == nil {
		l, err := statuslist.New(statuslist.PurposeRevocation, 1, statuslist.MinimumSizeBits)
		if err != nil {
			return nil, err
		}
		s.list = l
	}
	return s.list, nil
}

// statusListURI is the single published status list's address, used both
// to embed `status.status_list.uri` in minted credentials and to serve the
// list itself.
func (c *Core) statusListURI() string {
	return c.Issuer + "/status_list/revocation"
}

// RevokeCredential flips the revocation bit for a previously minted
// credential's status list entry — the issuer-side half of spec.md §4.5.
func (c *Core) RevokeCredential(ctx context.Context, listIndex int) error {
	if err := c.statusLists().revoke(listIndex); err != nil {
		return apierror.New(apierror.ErrServerError, err.Error())
	}
	return nil
}

// StatusListCredential builds and signs the BitstringStatusListCredential
// currently published at statusListURI, per spec.md §4.5. The envelope
// follows the W3C VC-JWT convention (`vc` claim carrying the credential
// object) rather than SD-JWT: a status list has nothing to selectively
// disclose.
func (c *Core) StatusListCredential(ctx context.Context) (string, error) {
	list, err := c.statusLists().snapshot()
	if err != nil {
		return "", apierror.New(apierror.ErrServerError, err.Error())
	}
	cred, err := statuslist.NewCredential(c.statusListURI(), list)
	if err != nil {
		return "", apierror.New(apierror.ErrServerError, err.Error())
	}

	body := jwt.MapClaims{
		"iss": c.Issuer,
		"sub": cred.ID,
		"iat": time.Now().Unix(),
		"vc":  cred,
	}
	header := jwt.MapClaims{"typ": "vc+jwt"}

	token, err := sdjwtvc.SignWithSigner(ctx, header, body, coreSigner{c.Signer})
	if err != nil {
		return "", apierror.New(apierror.ErrServerError, err.Error())
	}
	return token, nil
}

// statusLists lazily attaches this core's status list state the first time
// it's needed, so a Core built via New (or a zero-value Core in tests that
// never touches status lists) doesn't need a constructor argument for it.
func (c *Core) statusLists() *statusListState {
	c.statusListOnce.Do(func() {
		c.statusList = newStatusListState()
	})
	return c.statusList
}
