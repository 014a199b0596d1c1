package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/omixflow/workbench/internal/store"
)

// service_kv.go implements the per-profile key-value side table. Keys are
// unique within a profile; the set supports whole-array replace alongside
// single-entry append/update/delete.

// loadKeyValueSet fetches the profile's set, returning an empty set when
// none was ever saved. The profile itself must exist.
func (s *Service) loadKeyValueSet(ctx context.Context, profileID int64) (*KeyValueSet, error) {
	if _, err := s.GetProfile(ctx, profileID); err != nil {
		return nil, err
	}

	doc, err := s.store.Get(ctx, collKeyValueSets, CanonicalID(profileID))
	if errors.Is(err, store.ErrNotFound) {
		return &KeyValueSet{ProfileID: profileID, Entries: []KeyValueEntry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load key-value set for profile %d: %w", profileID, err)
	}

	var set KeyValueSet
	if err := fromDoc(doc, &set); err != nil {
		return nil, fmt.Errorf("load key-value set for profile %d: %w", profileID, err)
	}
	if set.Entries == nil {
		set.Entries = []KeyValueEntry{}
	}
	return &set, nil
}

func (s *Service) saveKeyValueSet(ctx context.Context, set *KeyValueSet) error {
	set.UpdatedAt = s.now()
	return s.putDoc(ctx, collKeyValueSets, CanonicalID(set.ProfileID), set)
}

// GetKeyValues returns the profile's full key-value set.
func (s *Service) GetKeyValues(ctx context.Context, profileID int64) (*KeyValueSet, error) {
	return s.loadKeyValueSet(ctx, profileID)
}

// ReplaceKeyValues replaces the whole set. Duplicate keys in the input are
// rejected before any mutation.
func (s *Service) ReplaceKeyValues(ctx context.Context, profileID int64, entries []KeyValueEntry) (*KeyValueSet, error) {
	if entries == nil {
		return nil, invalidf("key-value entries are required as an array")
	}

	seen := make(map[string]bool, len(entries))
	now := s.now()
	for i := range entries {
		key := strings.TrimSpace(entries[i].Key)
		if key == "" {
			return nil, invalidf("entry %d: key is required", i)
		}
		if seen[key] {
			return nil, invalidf("duplicate key %q", key)
		}
		seen[key] = true
		entries[i].Key = key
		if entries[i].Source == "" {
			entries[i].Source = SourceManual
		}
		if !entries[i].Source.Valid() {
			return nil, invalidf("entry %q: unknown source %q", key, entries[i].Source)
		}
		if entries[i].CreatedAt.IsZero() {
			entries[i].CreatedAt = now
		}
		entries[i].UpdatedAt = now
	}

	set, err := s.loadKeyValueSet(ctx, profileID)
	if err != nil {
		return nil, err
	}
	set.Entries = entries
	if err := s.saveKeyValueSet(ctx, set); err != nil {
		return nil, err
	}
	return set, nil
}

// AppendKeyValue adds one entry. Fails with Conflict if the key exists.
func (s *Service) AppendKeyValue(ctx context.Context, profileID int64, entry KeyValueEntry) (*KeyValueSet, error) {
	entry.Key = strings.TrimSpace(entry.Key)
	if entry.Key == "" {
		return nil, invalidf("key is required")
	}
	if entry.Source == "" {
		entry.Source = SourceManual
	}
	if !entry.Source.Valid() {
		return nil, invalidf("unknown source %q", entry.Source)
	}

	set, err := s.loadKeyValueSet(ctx, profileID)
	if err != nil {
		return nil, err
	}
	for _, e := range set.Entries {
		if e.Key == entry.Key {
			return nil, conflictf("key %q already exists", entry.Key)
		}
	}

	now := s.now()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	set.Entries = append(set.Entries, entry)
	if err := s.saveKeyValueSet(ctx, set); err != nil {
		return nil, err
	}
	return set, nil
}

// UpdateKeyValue updates the entry with the given key.
func (s *Service) UpdateKeyValue(ctx context.Context, profileID int64, key string, value, value2 *string, source *KeyValueSource) (*KeyValueEntry, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, invalidf("key is required")
	}
	if source != nil && !source.Valid() {
		return nil, invalidf("unknown source %q", *source)
	}

	set, err := s.loadKeyValueSet(ctx, profileID)
	if err != nil {
		return nil, err
	}

	for i := range set.Entries {
		if set.Entries[i].Key != key {
			continue
		}
		if value != nil {
			set.Entries[i].Value = *value
		}
		if value2 != nil {
			set.Entries[i].Value2 = *value2
		}
		if source != nil {
			set.Entries[i].Source = *source
		}
		set.Entries[i].UpdatedAt = s.now()
		entry := set.Entries[i]
		if err := s.saveKeyValueSet(ctx, set); err != nil {
			return nil, err
		}
		return &entry, nil
	}
	return nil, notFoundf("key %q in profile %d", key, profileID)
}

// DeleteKeyValue removes the entry with the given key.
func (s *Service) DeleteKeyValue(ctx context.Context, profileID int64, key string) error {
	set, err := s.loadKeyValueSet(ctx, profileID)
	if err != nil {
		return err
	}

	for i := range set.Entries {
		if set.Entries[i].Key == key {
			set.Entries = append(set.Entries[:i:i], set.Entries[i+1:]...)
			return s.saveKeyValueSet(ctx, set)
		}
	}
	return notFoundf("key %q in profile %d", key, profileID)
}

// HasKeyValue reports whether the key exists in the profile's set.
func (s *Service) HasKeyValue(ctx context.Context, profileID int64, key string) (bool, error) {
	set, err := s.loadKeyValueSet(ctx, profileID)
	if err != nil {
		return false, err
	}
	for _, e := range set.Entries {
		if e.Key == key {
			return true, nil
		}
	}
	return false, nil
}
