package core

import (
	"context"
	"errors"
	"testing"
)

func TestSaveMappings_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	profile := mustCreateProfile(t, svc, "Mappings")

	saved, err := svc.SaveMappings(ctx, profile.ProfileID, []FieldMapping{
		{SourceColumn: "fname", TargetColumn: "first_name", MappingType: "One to One Mapping"},
		{TargetColumn: "computed", MappingType: "Mapping Using Formula", Formula: "CONCAT(a,b)"},
	}, []string{"fname", "lname"})
	if err != nil {
		t.Fatalf("SaveMappings() error = %v", err)
	}

	got, err := svc.GetMappings(ctx, profile.ProfileID)
	if err != nil {
		t.Fatalf("GetMappings() error = %v", err)
	}
	if len(got.Mappings) != 2 {
		t.Fatalf("mappings = %d, want 2", len(got.Mappings))
	}
	if got.Mappings[1].Formula != "CONCAT(a,b)" {
		t.Errorf("formula = %q, want CONCAT(a,b)", got.Mappings[1].Formula)
	}
	if len(got.SourceHeaders) != 2 {
		t.Errorf("source headers = %v, want 2 entries", got.SourceHeaders)
	}
	if !got.SavedAt.Equal(saved.SavedAt) {
		t.Errorf("savedAt = %v, want %v", got.SavedAt, saved.SavedAt)
	}
}

func TestSaveMappings_ReplacesWholeSet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	profile := mustCreateProfile(t, svc, "Mappings")

	if _, err := svc.SaveMappings(ctx, profile.ProfileID, []FieldMapping{
		{TargetColumn: "a"}, {TargetColumn: "b"},
	}, nil); err != nil {
		t.Fatalf("first save error = %v", err)
	}
	if _, err := svc.SaveMappings(ctx, profile.ProfileID, []FieldMapping{
		{TargetColumn: "c"},
	}, nil); err != nil {
		t.Fatalf("second save error = %v", err)
	}

	got, _ := svc.GetMappings(ctx, profile.ProfileID)
	if len(got.Mappings) != 1 || got.Mappings[0].TargetColumn != "c" {
		t.Errorf("mappings = %v, want just [c]", got.Mappings)
	}
}

func TestSaveMappings_DefaultsAndValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	profile := mustCreateProfile(t, svc, "Mappings")

	saved, err := svc.SaveMappings(ctx, profile.ProfileID, []FieldMapping{{TargetColumn: "name"}}, nil)
	if err != nil {
		t.Fatalf("SaveMappings() error = %v", err)
	}
	if saved.Mappings[0].MappingType != "Not Mapped" {
		t.Errorf("default mapping type = %q, want Not Mapped", saved.Mappings[0].MappingType)
	}

	tests := []struct {
		name     string
		mappings []FieldMapping
	}{
		{"nil mappings", nil},
		{"missing target", []FieldMapping{{SourceColumn: "a"}}},
		{"unknown type", []FieldMapping{{TargetColumn: "a", MappingType: "Telepathic"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.SaveMappings(ctx, profile.ProfileID, tt.mappings, nil); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestGetMappings_NeverSaved(t *testing.T) {
	svc, _ := newTestService(t)
	profile := mustCreateProfile(t, svc, "Mappings")

	if _, err := svc.GetMappings(context.Background(), profile.ProfileID); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
