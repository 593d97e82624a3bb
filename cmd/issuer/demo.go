package main

import (
	"context"
	"fmt"
	"sync"
)

// memoryDatastore is a process-local issuance.Datastore, enough to back a
// single-instance demonstration issuer. A real deployment backs this with
// whatever owns the issuer/server/client metadata records of spec.md §6.
type memoryDatastore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryDatastore() *memoryDatastore {
	return &memoryDatastore{data: make(map[string][]byte)}
}

func datastoreKey(owner, partition, key string) string {
	return owner + "/" + partition + "/" + key
}

func (d *memoryDatastore) Get(ctx context.Context, owner, partition, key string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.data[datastoreKey(owner, partition, key)]
	if !ok {
		return nil, fmt.Errorf("demo datastore: %s/%s/%s not found", owner, partition, key)
	}
	return v, nil
}

func (d *memoryDatastore) Put(ctx context.Context, owner, partition, key string, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data[datastoreKey(owner, partition, key)] = value
	return nil
}

// demoSubject is a canned issuance.Subject standing in for the back office
// that would normally authorize a subject and hand back their dataset. It
// grants every requested credential_configuration_id unconditionally and
// serves a fixed claim set per configuration, purely so the wire endpoints
// have something real to issue against.
type demoSubject struct {
	mu      sync.Mutex
	next    int
	byIdent map[string]demoDataset
}

type demoDataset struct {
	configID string
	claims   map[string]any
}

func newDemoSubject() *demoSubject {
	return &demoSubject{byIdent: make(map[string]demoDataset)}
}

func (s *demoSubject) Authorize(ctx context.Context, subjectID, configID string) ([]string, error) {
	claims, ok := demoClaimSets[configID]
	if !ok {
		return nil, fmt.Errorf("demo subject: no dataset configured for %q", configID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	identifier := fmt.Sprintf("%s-%d", configID, s.next)
	s.byIdent[identifier] = demoDataset{configID: configID, claims: claims}
	return []string{identifier}, nil
}

func (s *demoSubject) Dataset(ctx context.Context, subjectID, credentialIdentifier string) (map[string]any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.byIdent[credentialIdentifier]
	if !ok {
		return nil, false, fmt.Errorf("demo subject: unknown credential_identifier %q", credentialIdentifier)
	}
	return ds.claims, false, nil
}

// demoClaimSets is the fixed per-configuration claim data the demo issuer
// hands out; a real Subject would fetch these from the issuer's own back
// office instead of a literal.
var demoClaimSets = map[string]map[string]any{
	"pid_sd_jwt": {
		"given_name":  "Erika",
		"family_name": "Mustermann",
		"birthdate":   "1984-08-12",
	},
}
