//
// Tencent is pleased to support the open source community by making trpc-artifact-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-artifact-go is licensed under the Apache License Version 2.0.
//
//

package artifact

import (
	"fmt"
	"sync"
	"time"
)

// Store holds the live records of one session's artifacts, keyed by
// content ID. Each pipeline instance owns its own Store, so concurrent
// sessions never share mutable state.
type Store struct {
	mu      sync.RWMutex
	order   []string
	records map[string]*Record
}

// NewStore creates an empty artifact store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]*Record),
	}
}

// cloneRecord copies a record, detaching the dependency map so callers
// never share mutable state with the store.
func cloneRecord(r *Record) *Record {
	clone := *r
	if r.Dependencies != nil {
		deps := make(map[string]string, len(r.Dependencies))
		for name, version := range r.Dependencies {
			deps[name] = version
		}
		clone.Dependencies = deps
	}
	return &clone
}

// Upsert merges extraction output into the store. A record seen for the
// first time is inserted; a re-sighted record (same content ID) keeps any
// bundling state already merged into it while source, title and
// completeness are refreshed from the extractor. The returned record is a
// snapshot, detached from the store's copy.
func (s *Store) Upsert(record *Record) *Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[record.ID]
	if !ok {
		clone := cloneRecord(record)
		if clone.BundleStatus == "" {
			clone.BundleStatus = BundleIdle
		}
		s.records[record.ID] = clone
		s.order = append(s.order, record.ID)
		return cloneRecord(clone)
	}

	existing.Kind = record.Kind
	existing.Title = record.Title
	existing.Source = record.Source
	existing.Complete = record.Complete
	return cloneRecord(existing)
}

// Get returns a snapshot of the record with the given ID, or nil. Snapshots
// are safe to read and encode without holding the store's lock.
func (s *Store) Get(id string) *Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil
	}
	return cloneRecord(record)
}

// List returns snapshots of the stored records in first-sighting order.
func (s *Store) List() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneRecord(s.records[id]))
	}
	return out
}

// Supersede drops incomplete records the latest extraction pass did not
// re-sight. An artifact streaming without an identifier hashes to a new ID
// as its source grows, so the previous partial is stale the moment a newer
// sighting exists. Complete records are kept regardless: they belong to
// earlier messages, not to the pass being superseded.
func (s *Store) Supersede(sighted map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.order[:0]
	for _, id := range s.order {
		if record := s.records[id]; !record.Complete && !sighted[id] {
			delete(s.records, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}

// Len reports the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// SetBundleStatus transitions a record's bundling status.
func (s *Store) SetBundleStatus(id string, status BundleStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return fmt.Errorf("no record with id %s", id)
	}
	record.BundleStatus = status
	return nil
}

// MergeBundleSuccess merges a successful bundling result into the record.
// The merge is permanent: later extraction passes do not clear it.
func (s *Store) MergeBundleSuccess(id, bundleURL string, duration time.Duration, deps map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return fmt.Errorf("no record with id %s", id)
	}
	record.BundleStatus = BundleSuccess
	record.BundleURL = bundleURL
	record.BundleDuration = duration
	record.Dependencies = deps
	record.LastError = ""
	return nil
}

// MergeBundleError records a terminal bundling failure on the record.
func (s *Store) MergeBundleError(id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return fmt.Errorf("no record with id %s", id)
	}
	record.BundleStatus = BundleError
	record.LastError = message
	return nil
}
