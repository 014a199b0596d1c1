package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/omixflow/workbench/internal/store"
)

// Known mapping types. The zero value maps to "Not Mapped" rather than
// failing, matching how exported mapping sheets arrive with gaps.
var validMappingTypes = map[string]bool{
	"One to One Mapping":    true,
	"Default Value Mapping": true,
	"Mapping Using Formula": true,
	"Data Mapping":          true,
	"One to Many Mapping":   true,
	"Many to One Mapping":   true,
	"Conditional Mapping":   true,
	"Not Mapped":            true,
}

// SaveMappings replaces the profile's whole field-mapping set. Creating and
// updating are the same operation; the set either exists afterwards or the
// call failed before any mutation.
func (s *Service) SaveMappings(ctx context.Context, profileID int64, mappings []FieldMapping, sourceHeaders []string) (*MappingSet, error) {
	if mappings == nil {
		return nil, invalidf("mappings are required as an array")
	}
	if _, err := s.GetProfile(ctx, profileID); err != nil {
		return nil, err
	}

	for i := range mappings {
		if strings.TrimSpace(mappings[i].TargetColumn) == "" {
			return nil, invalidf("mapping %d: target column is required", i)
		}
		if mappings[i].MappingType == "" {
			mappings[i].MappingType = "Not Mapped"
		}
		if !validMappingTypes[mappings[i].MappingType] {
			return nil, invalidf("mapping %d: unknown mapping type %q", i, mappings[i].MappingType)
		}
	}
	if sourceHeaders == nil {
		sourceHeaders = []string{}
	}

	set := &MappingSet{
		ProfileID:     profileID,
		Mappings:      mappings,
		SourceHeaders: sourceHeaders,
		SavedAt:       s.now(),
	}
	if err := s.putDoc(ctx, collMappingSets, CanonicalID(profileID), set); err != nil {
		return nil, err
	}
	return set, nil
}

// GetMappings returns the profile's saved field-mapping set, or NotFound
// if none was ever saved.
func (s *Service) GetMappings(ctx context.Context, profileID int64) (*MappingSet, error) {
	if _, err := s.GetProfile(ctx, profileID); err != nil {
		return nil, err
	}

	doc, err := s.store.Get(ctx, collMappingSets, CanonicalID(profileID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundf("no mappings saved for profile %d", profileID)
	}
	if err != nil {
		return nil, fmt.Errorf("load mappings for profile %d: %w", profileID, err)
	}

	var set MappingSet
	if err := fromDoc(doc, &set); err != nil {
		return nil, fmt.Errorf("load mappings for profile %d: %w", profileID, err)
	}
	return &set, nil
}
