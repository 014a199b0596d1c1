package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/omixflow/workbench/internal/store"
)

func TestReplaceTransformData_Batching(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	profile := mustCreateProfile(t, svc, "Batching")
	run := mustReplaceScanRun(t, svc, profile.ProfileID)

	result, err := svc.ReplaceTransformData(ctx, profile.ProfileID, run.ID, makeRecords(1200))
	if err != nil {
		t.Fatalf("ReplaceTransformData() error = %v", err)
	}
	if result.Batches != 3 {
		t.Errorf("batches = %d, want 3 (1200 records / 500)", result.Batches)
	}
	if result.Added != 1200 || result.FinalCount != 1200 {
		t.Errorf("added/final = %d/%d, want 1200/1200", result.Added, result.FinalCount)
	}
	if result.Removed != 0 {
		t.Errorf("removed = %d on first replace, want 0", result.Removed)
	}
	if got := mem.Count("transform_records"); got != 1200 {
		t.Errorf("stored records = %d, want 1200", got)
	}

	records, err := svc.ListTransformData(ctx, profile.ProfileID, run.ID)
	if err != nil {
		t.Fatalf("ListTransformData() error = %v", err)
	}
	if len(records) != 1200 {
		t.Fatalf("listed = %d, want 1200", len(records))
	}
	if records[0].BatchIndex != 0 || records[1199].BatchIndex != 2 {
		t.Errorf("batch indexes = %d..%d, want 0..2", records[0].BatchIndex, records[1199].BatchIndex)
	}
}

func TestReplaceTransformData_Supersedes(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	profile := mustCreateProfile(t, svc, "Supersede")
	run := mustReplaceScanRun(t, svc, profile.ProfileID)

	if _, err := svc.ReplaceTransformData(ctx, profile.ProfileID, run.ID, makeRecords(700)); err != nil {
		t.Fatalf("first replace error = %v", err)
	}

	result, err := svc.ReplaceTransformData(ctx, profile.ProfileID, run.ID, makeRecords(10))
	if err != nil {
		t.Fatalf("second replace error = %v", err)
	}
	if result.Removed != 700 {
		t.Errorf("removed = %d, want 700", result.Removed)
	}
	if result.FinalCount != 10 {
		t.Errorf("final count = %d, want 10", result.FinalCount)
	}
	if got := mem.Count("transform_records"); got != 10 {
		t.Errorf("stored records = %d, want 10", got)
	}
}

func TestReplaceTransformData_EmptySetClears(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	profile := mustCreateProfile(t, svc, "Clear")
	run := mustReplaceScanRun(t, svc, profile.ProfileID)

	if _, err := svc.ReplaceTransformData(ctx, profile.ProfileID, run.ID, makeRecords(5)); err != nil {
		t.Fatalf("seed replace error = %v", err)
	}

	result, err := svc.ReplaceTransformData(ctx, profile.ProfileID, run.ID, []TransformRecordInput{})
	if err != nil {
		t.Fatalf("empty replace error = %v", err)
	}
	if result.Removed != 5 || result.FinalCount != 0 {
		t.Errorf("removed/final = %d/%d, want 5/0", result.Removed, result.FinalCount)
	}
	if got := mem.Count("transform_records"); got != 0 {
		t.Errorf("stored records = %d, want 0", got)
	}
}

func TestReplaceTransformData_NilRecordsRejected(t *testing.T) {
	svc, _ := newTestService(t)

	profile := mustCreateProfile(t, svc, "NilSet")
	run := mustReplaceScanRun(t, svc, profile.ProfileID)

	_, err := svc.ReplaceTransformData(context.Background(), profile.ProfileID, run.ID, nil)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("error = %v, want ErrInvalidArgument", err)
	}
}

func TestReplaceTransformData_UnknownRun(t *testing.T) {
	svc, _ := newTestService(t)

	profile := mustCreateProfile(t, svc, "NoRun")
	_, err := svc.ReplaceTransformData(context.Background(), profile.ProfileID, "missing-run", makeRecords(1))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestReplaceTransformData_CanonicalScanRunID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	profile := mustCreateProfile(t, svc, "MixedCase")
	run := mustReplaceScanRun(t, svc, profile.ProfileID)

	// Write under the upper-cased form, read under the original.
	if _, err := svc.ReplaceTransformData(ctx, profile.ProfileID, strings.ToUpper(run.ID), makeRecords(4)); err != nil {
		t.Fatalf("replace error = %v", err)
	}
	records, err := svc.ListTransformData(ctx, profile.ProfileID, run.ID)
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	if len(records) != 4 {
		t.Errorf("listed = %d, want 4; id forms must converge", len(records))
	}

	// A second replace under yet another form supersedes, never duplicates.
	result, err := svc.ReplaceTransformData(ctx, profile.ProfileID, "  "+run.ID+"  ", makeRecords(2))
	if err != nil {
		t.Fatalf("second replace error = %v", err)
	}
	if result.Removed != 4 || result.FinalCount != 2 {
		t.Errorf("removed/final = %d/%d, want 4/2", result.Removed, result.FinalCount)
	}
}

func TestReplaceTransformData_CrossRunIsolation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	one := mustCreateProfile(t, svc, "IsolationOne")
	two := mustCreateProfile(t, svc, "IsolationTwo")
	runOne := mustReplaceScanRun(t, svc, one.ProfileID)
	runTwo := mustReplaceScanRun(t, svc, two.ProfileID)

	if _, err := svc.ReplaceTransformData(ctx, one.ProfileID, runOne.ID, makeRecords(3)); err != nil {
		t.Fatalf("replace one error = %v", err)
	}
	if _, err := svc.ReplaceTransformData(ctx, two.ProfileID, runTwo.ID, makeRecords(7)); err != nil {
		t.Fatalf("replace two error = %v", err)
	}

	records, _ := svc.ListTransformData(ctx, one.ProfileID, runOne.ID)
	if len(records) != 3 {
		t.Errorf("profile one records = %d, want 3", len(records))
	}
}

func TestReplaceTransformData_PartialFailure(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	profile := mustCreateProfile(t, svc, "Partial")
	run := mustReplaceScanRun(t, svc, profile.ProfileID)

	// First insert call succeeds, second fails: batch 1 of 3 aborts.
	mem.FailInsertAfter = 1
	_, err := svc.ReplaceTransformData(ctx, profile.ProfileID, run.ID, makeRecords(1200))

	partial, ok := AsPartial(err)
	if !ok {
		t.Fatalf("error = %v, want *PartialError", err)
	}
	if partial.BatchIndex != 1 || partial.Batches != 3 {
		t.Errorf("failed batch = %d/%d, want 1/3", partial.BatchIndex, partial.Batches)
	}
	if partial.Committed != 500 {
		t.Errorf("committed = %d, want 500", partial.Committed)
	}
	if got := mem.Count("transform_records"); got != 500 {
		t.Errorf("stored records = %d, want the committed 500", got)
	}
}

func TestReplaceTransformData_CapacityExceeded(t *testing.T) {
	mem := store.NewMemory(2048) // tiny ceiling
	svc := NewService(mem, ServiceOptions{BatchSize: 500, BatchPause: -1, SequenceStart: 100})

	profile := mustCreateProfile(t, svc, "TooBig")
	run := mustReplaceScanRun(t, svc, profile.ProfileID)

	_, err := svc.ReplaceTransformData(context.Background(), profile.ProfileID, run.ID, makeRecords(100))
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("error = %v, want ErrCapacityExceeded", err)
	}

	// The counts from the phases that did run travel on the error so the
	// caller can reconcile what the aborted replace left behind.
	partial, ok := AsPartial(err)
	if !ok {
		t.Fatalf("error = %v, want attached partial counts", err)
	}
	if partial.BatchIndex != 0 || partial.Committed != 0 {
		t.Errorf("batch/committed = %d/%d, want 0/0 for a first-batch ceiling hit", partial.BatchIndex, partial.Committed)
	}

	// The ceiling classification wins over partial reporting.
	if got := MapError(err); got.Code != "CAP001" {
		t.Errorf("MapError code = %s, want CAP001", got.Code)
	}
}

func TestReplaceTransformData_Cancellation(t *testing.T) {
	svc, _ := newTestService(t)

	profile := mustCreateProfile(t, svc, "Cancelled")
	run := mustReplaceScanRun(t, svc, profile.ProfileID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ReplaceTransformData(ctx, profile.ProfileID, run.ID, makeRecords(1000))
	partial, ok := AsPartial(err)
	if !ok {
		t.Fatalf("error = %v, want *PartialError", err)
	}
	if partial.Committed != 0 {
		t.Errorf("committed = %d, want 0 for pre-cancelled context", partial.Committed)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error chain %v should carry context.Canceled", err)
	}
}

func TestReplaceTransformData_ConcurrentReplacesSerialize(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	profile := mustCreateProfile(t, svc, "Concurrent")
	run := mustReplaceScanRun(t, svc, profile.ProfileID)

	var wg sync.WaitGroup
	for _, n := range []int{800, 300} {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := svc.ReplaceTransformData(ctx, profile.ProfileID, run.ID, makeRecords(n)); err != nil {
				t.Errorf("concurrent replace(%d) error = %v", n, err)
			}
		}(n)
	}
	wg.Wait()

	// Whole-sequence locking means the final state is exactly one of the
	// two submitted sets, never an interleaving of both.
	got := mem.Count("transform_records")
	if got != 800 && got != 300 {
		t.Errorf("final count = %d, want 800 or 300", got)
	}
}

func TestDeleteTransformData(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	profile := mustCreateProfile(t, svc, "DeleteSet")
	run := mustReplaceScanRun(t, svc, profile.ProfileID)
	if _, err := svc.ReplaceTransformData(ctx, profile.ProfileID, run.ID, makeRecords(6)); err != nil {
		t.Fatalf("seed error = %v", err)
	}

	removed, err := svc.DeleteTransformData(ctx, profile.ProfileID, run.ID)
	if err != nil {
		t.Fatalf("DeleteTransformData() error = %v", err)
	}
	if removed != 6 {
		t.Errorf("removed = %d, want 6", removed)
	}
	if got := mem.Count("transform_records"); got != 0 {
		t.Errorf("stored = %d, want 0", got)
	}

	// Zero removals is success.
	removed, err = svc.DeleteTransformData(ctx, profile.ProfileID, run.ID)
	if err != nil || removed != 0 {
		t.Errorf("second delete = (%d, %v), want (0, nil)", removed, err)
	}
}
