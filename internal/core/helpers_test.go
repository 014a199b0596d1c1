package core

import (
	"context"
	"testing"
	"time"

	"github.com/omixflow/workbench/internal/store"
)

// newTestService wires a Service to a fresh in-memory store with a small
// batch size, no inter-batch pause, and a deterministic clock.
func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory(0)
	svc := NewService(mem, ServiceOptions{
		BatchSize:     500,
		BatchPause:    -1,
		SequenceStart: 100,
	})
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return base }
	return svc, mem
}

func mustCreateProfile(t *testing.T, svc *Service, name string) *Profile {
	t.Helper()
	profile, err := svc.CreateProfile(context.Background(), CreateProfileParams{Name: name})
	if err != nil {
		t.Fatalf("CreateProfile(%q) error = %v", name, err)
	}
	return profile
}

func mustReplaceScanRun(t *testing.T, svc *Service, profileID int64) *ScanRun {
	t.Helper()
	run, err := svc.ReplaceScanRun(context.Background(), profileID, "test run",
		[]string{"name", "size"}, [][]any{{"a.txt", 1}, {"b.txt", 2}})
	if err != nil {
		t.Fatalf("ReplaceScanRun(%d) error = %v", profileID, err)
	}
	return run
}

func makeRecords(n int) []TransformRecordInput {
	records := make([]TransformRecordInput, n)
	for i := range records {
		records[i] = TransformRecordInput{
			SourceObject:      Payload{"name": "src"},
			TransformedObject: Payload{"name": "dst"},
		}
	}
	return records
}
