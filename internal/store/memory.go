package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/avasquez/deedscan/internal/model"
)

// Memory is an in-process Store used when no database is configured and in
// tests. Owner IDs are assigned once per raw name and stay stable for the
// lifetime of the store, matching the database's identity column.
type Memory struct {
	mu sync.Mutex

	nextOwnerID int64
	ownerIDs    map[string]int64 // raw name -> id

	Properties         map[string]*model.Property
	Owners             map[int64]model.Owner
	OwnershipIntervals map[string][]model.OwnershipInterval
	ExemptionIntervals map[string][]model.ExemptionInterval
	ValueSnapshots     map[string][]model.ValueSnapshot
	DocumentRecords    map[string][]model.DocumentRecord
}

func NewMemory() *Memory {
	return &Memory{
		nextOwnerID:        1,
		ownerIDs:           make(map[string]int64),
		Properties:         make(map[string]*model.Property),
		Owners:             make(map[int64]model.Owner),
		OwnershipIntervals: make(map[string][]model.OwnershipInterval),
		ExemptionIntervals: make(map[string][]model.ExemptionInterval),
		ValueSnapshots:     make(map[string][]model.ValueSnapshot),
		DocumentRecords:    make(map[string][]model.DocumentRecord),
	}
}

func (s *Memory) UpsertProperty(_ context.Context, p *model.Property) error {
	if p == nil || p.AccountNumber == "" {
		return fmt.Errorf("property with account number is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.Properties[p.AccountNumber] = &cp
	return nil
}

func (s *Memory) UpsertOwners(_ context.Context, owners []model.Owner) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(map[string]int64, len(owners))
	for _, o := range owners {
		id, ok := s.ownerIDs[o.RawName]
		if !ok {
			id = s.nextOwnerID
			s.nextOwnerID++
			s.ownerIDs[o.RawName] = id
			o.ID = id
			s.Owners[id] = o
		}
		ids[o.RawName] = id
	}
	return ids, nil
}

func (s *Memory) ReplaceOwnershipIntervals(_ context.Context, accountNumber string, intervals []model.OwnershipInterval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.OwnershipIntervals[accountNumber] = append([]model.OwnershipInterval(nil), intervals...)
	return nil
}

func (s *Memory) ReplaceExemptionIntervals(_ context.Context, accountNumber string, intervals []model.ExemptionInterval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ExemptionIntervals[accountNumber] = append([]model.ExemptionInterval(nil), intervals...)
	return nil
}

func (s *Memory) ReplaceValueSnapshots(_ context.Context, accountNumber string, snapshots []model.ValueSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ValueSnapshots[accountNumber] = append([]model.ValueSnapshot(nil), snapshots...)
	return nil
}

func (s *Memory) ReplaceDocumentRecords(_ context.Context, accountNumber string, docs []model.DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DocumentRecords[accountNumber] = append([]model.DocumentRecord(nil), docs...)
	return nil
}
