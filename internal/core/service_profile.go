package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/omixflow/workbench/internal/store"
)

// CreateProfileParams are the caller-supplied profile fields.
type CreateProfileParams struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	Location       string `json:"location"`
	Description    string `json:"description"`
	Transformation string `json:"transformation"`
	MigrationType  string `json:"migrationType"`
}

var (
	validTransformations = map[string]bool{"Basic": true, "Advanced": true, "Custom": true, "None": true}
	validMigrationTypes  = map[string]bool{"Full": true, "Incremental": true, "Delta": true, "Test": true}
)

// CreateProfile registers a new profile. Names are unique; the profile id
// comes from the injected sequence, so collisions are impossible by
// construction.
func (s *Service) CreateProfile(ctx context.Context, params CreateProfileParams) (*Profile, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, invalidf("profile name is required")
	}
	if params.Transformation != "" && !validTransformations[params.Transformation] {
		return nil, invalidf("unknown transformation %q", params.Transformation)
	}
	if params.MigrationType != "" && !validMigrationTypes[params.MigrationType] {
		return nil, invalidf("unknown migration type %q", params.MigrationType)
	}

	existing, err := s.store.Find(ctx, collProfiles, store.Filter{"name": name})
	if err != nil {
		return nil, fmt.Errorf("check profile name: %w", err)
	}
	if len(existing) > 0 {
		return nil, conflictf("profile name %q already exists", name)
	}

	id, err := s.seq.Next(ctx, ProfileIDSequence)
	if err != nil {
		return nil, fmt.Errorf("issue profile id: %w", err)
	}

	now := s.now()
	profile := &Profile{
		ProfileID:      id,
		Name:           name,
		Type:           defaultString(params.Type, "Filesystem"),
		Location:       params.Location,
		Description:    params.Description,
		Transformation: defaultString(params.Transformation, "Basic"),
		MigrationType:  defaultString(params.MigrationType, "Full"),
		ScanRuns:       []ScanRun{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.putDoc(ctx, collProfiles, CanonicalID(id), profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// GetProfile returns a profile by id.
func (s *Service) GetProfile(ctx context.Context, profileID int64) (*Profile, error) {
	doc, err := s.store.Get(ctx, collProfiles, CanonicalID(profileID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundf("profile %d", profileID)
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %d: %w", profileID, err)
	}

	var profile Profile
	if err := fromDoc(doc, &profile); err != nil {
		return nil, fmt.Errorf("load profile %d: %w", profileID, err)
	}
	if profile.ScanRuns == nil {
		profile.ScanRuns = []ScanRun{}
	}
	return &profile, nil
}

// ListProfiles returns all profiles in creation order.
func (s *Service) ListProfiles(ctx context.Context) ([]Profile, error) {
	docs, err := s.store.Find(ctx, collProfiles, nil)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	profiles := make([]Profile, 0, len(docs))
	for _, doc := range docs {
		var p Profile
		if err := fromDoc(doc, &p); err != nil {
			return nil, fmt.Errorf("list profiles: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// DeleteProfile removes a profile together with its transform records,
// key-value set, and mapping set.
func (s *Service) DeleteProfile(ctx context.Context, profileID int64) error {
	if _, err := s.GetProfile(ctx, profileID); err != nil {
		return err
	}

	id := CanonicalID(profileID)
	if _, err := s.store.DeleteMany(ctx, collTransformRecords, store.Filter{"profileId": profileID}); err != nil {
		return fmt.Errorf("delete transform records for profile %d: %w", profileID, err)
	}
	if err := s.store.Delete(ctx, collKeyValueSets, id); err != nil {
		return fmt.Errorf("delete key-value set for profile %d: %w", profileID, err)
	}
	if err := s.store.Delete(ctx, collMappingSets, id); err != nil {
		return fmt.Errorf("delete mapping set for profile %d: %w", profileID, err)
	}
	if err := s.store.Delete(ctx, collProfiles, id); err != nil {
		return fmt.Errorf("delete profile %d: %w", profileID, err)
	}
	return nil
}

// ReplaceScanRun discards any existing scan run(s) for the profile and
// installs exactly one new run. History is deliberately not retained;
// callers needing it must snapshot externally. Transform records orphaned
// by the superseded run are swept afterwards.
func (s *Service) ReplaceScanRun(ctx context.Context, profileID int64, description string, headers []string, rows [][]any) (*ScanRun, error) {
	if headers == nil {
		return nil, invalidf("headers are required")
	}
	if rows == nil {
		rows = [][]any{}
	}

	profile, err := s.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	var supersededIDs []string
	for _, run := range profile.ScanRuns {
		supersededIDs = append(supersededIDs, run.ID)
	}

	now := s.now()
	run := ScanRun{
		ID:               uuid.New().String(),
		RunNumber:        1,
		Description:      description,
		ObjectsProcessed: len(rows),
		Status:           StatusFinished,
		Started:          now,
		Ended:            now,
		Headers:          headers,
		Rows:             rows,
	}

	profile.ScanRuns = []ScanRun{run}
	profile.UpdatedAt = now
	if err := s.putDoc(ctx, collProfiles, CanonicalID(profileID), profile); err != nil {
		return nil, err
	}

	// Opportunistic orphan sweep. The new run is installed either way;
	// leftover records for superseded runs stay prunable by id.
	for _, oldID := range supersededIDs {
		if removed, err := s.PruneOrphanTransformData(ctx, profileID, oldID); err != nil {
			slog.Warn("orphan sweep failed",
				"profile_id", profileID,
				"scan_run_id", oldID,
				"error", err,
			)
		} else if removed > 0 {
			slog.Info("swept orphaned transform records",
				"profile_id", profileID,
				"scan_run_id", oldID,
				"removed", removed,
			)
		}
	}

	return &run, nil
}

// GetScanRun returns one scan run owned by the profile.
func (s *Service) GetScanRun(ctx context.Context, profileID int64, runID string) (*ScanRun, error) {
	profile, err := s.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	for i := range profile.ScanRuns {
		if sameID(profile.ScanRuns[i].ID, runID) {
			run := profile.ScanRuns[i]
			return &run, nil
		}
	}
	return nil, notFoundf("scan run %s in profile %d", runID, profileID)
}

func defaultString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
