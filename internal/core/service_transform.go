package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/omixflow/workbench/internal/store"
)

// service_transform.go implements the bulk transform-data replacement
// engine. A replace makes the submitted record set, and only it, the
// durable set for one scan run, batching inserts to respect the store's
// per-write size ceiling.
//
// Concurrent replaces for the same (profile, scan run) are serialized by a
// keyed mutex held across the whole remove+insert sequence; without it the
// removal and insert phases of two calls can interleave and corrupt the
// final count. A failed batch surfaces as *PartialError: earlier batches
// stay committed, and because the removal phase clears everything for the
// run, re-running the full replace is a safe retry.
//
// TODO: stage batches under a generation id and publish with a single
// pointer swap to get all-or-nothing semantics instead of Partial reporting.

// ReplaceTransformData validates, removes the existing record set for the
// scan run, and inserts the new one in fixed-size batches. The records
// slice must be non-nil (an explicitly empty replace is legal and clears
// the set). Cancellation between batches stops scheduling further batches
// and reports partial completion.
func (s *Service) ReplaceTransformData(ctx context.Context, profileID int64, scanRunID string, records []TransformRecordInput) (*ReplaceResult, error) {
	if records == nil {
		return nil, invalidf("transform records are required as an array")
	}

	// Fail fast before any mutation.
	if _, err := s.GetScanRun(ctx, profileID, scanRunID); err != nil {
		return nil, err
	}

	lock := s.replaceLock(profileID, scanRunID)
	lock.Lock()
	defer lock.Unlock()

	canonical := CanonicalID(scanRunID)
	started := s.now()

	// Removal phase: everything previously stored for this run goes,
	// matched on the canonical id form.
	removed, err := s.store.DeleteMany(ctx, collTransformRecords, store.Filter{
		"profileId": profileID,
		"scanRunId": canonical,
	})
	if err != nil {
		return nil, fmt.Errorf("remove transform records for run %s: %w", canonical, err)
	}

	batches := (len(records) + s.batchSize - 1) / s.batchSize
	committed := 0

	for batchIndex := 0; batchIndex < batches; batchIndex++ {
		if err := ctx.Err(); err != nil {
			return nil, &PartialError{
				BatchIndex: batchIndex,
				Batches:    batches,
				Removed:    int(removed),
				Committed:  committed,
				Err:        err,
			}
		}

		start := batchIndex * s.batchSize
		end := min(start+s.batchSize, len(records))

		docs := make([]store.Doc, 0, end-start)
		now := s.now()
		for _, input := range records[start:end] {
			record := TransformRecord{
				ID:                uuid.New().String(),
				ProfileID:         profileID,
				ScanRunID:         canonical,
				SourceObject:      input.SourceObject,
				TransformedObject: input.TransformedObject,
				Details:           input.Details,
				CreatedAt:         now,
				BatchIndex:        batchIndex,
			}
			doc, err := toDoc(record.ID, record)
			if err != nil {
				return nil, &PartialError{
					BatchIndex: batchIndex,
					Batches:    batches,
					Removed:    int(removed),
					Committed:  committed,
					Err:        err,
				}
			}
			docs = append(docs, doc)
		}

		if err := s.store.InsertMany(ctx, collTransformRecords, docs); err != nil {
			if errors.Is(err, store.ErrWriteTooLarge) {
				// The removal already ran and earlier batches are
				// committed; carry the counts so the caller can
				// reconcile, with the ceiling classification intact.
				return nil, &PartialError{
					BatchIndex: batchIndex,
					Batches:    batches,
					Removed:    int(removed),
					Committed:  committed,
					Err:        fmt.Errorf("batch %d of %d: %w: %w", batchIndex, batches, ErrCapacityExceeded, err),
				}
			}
			return nil, &PartialError{
				BatchIndex: batchIndex,
				Batches:    batches,
				Removed:    int(removed),
				Committed:  committed,
				Err:        err,
			}
		}
		committed += len(docs)

		if s.batchPause > 0 && batchIndex < batches-1 {
			select {
			case <-time.After(s.batchPause):
			case <-ctx.Done():
				// Loop head reports the cancellation.
			}
		}
	}

	slog.Info("transform data replaced",
		"profile_id", profileID,
		"scan_run_id", canonical,
		"removed", removed,
		"added", committed,
		"batches", batches,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	return &ReplaceResult{
		Removed:    int(removed),
		Added:      committed,
		FinalCount: committed,
		Batches:    batches,
	}, nil
}

// ListTransformData returns all transform records for one scan run, in
// batch order. It filters on the same canonical id form the removal phase
// uses; mixing representations here is how reads and writes silently
// diverge.
func (s *Service) ListTransformData(ctx context.Context, profileID int64, scanRunID string) ([]TransformRecord, error) {
	if _, err := s.GetScanRun(ctx, profileID, scanRunID); err != nil {
		return nil, err
	}

	docs, err := s.store.Find(ctx, collTransformRecords, store.Filter{
		"profileId": profileID,
		"scanRunId": CanonicalID(scanRunID),
	})
	if err != nil {
		return nil, fmt.Errorf("list transform records for run %s: %w", scanRunID, err)
	}

	records := make([]TransformRecord, 0, len(docs))
	for _, doc := range docs {
		var r TransformRecord
		if err := fromDoc(doc, &r); err != nil {
			return nil, fmt.Errorf("list transform records for run %s: %w", scanRunID, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// DeleteTransformData removes all transform records for one scan run and
// returns the count removed. Zero removals is success, not an error.
func (s *Service) DeleteTransformData(ctx context.Context, profileID int64, scanRunID string) (int64, error) {
	if _, err := s.GetScanRun(ctx, profileID, scanRunID); err != nil {
		return 0, err
	}

	lock := s.replaceLock(profileID, scanRunID)
	lock.Lock()
	defer lock.Unlock()

	removed, err := s.store.DeleteMany(ctx, collTransformRecords, store.Filter{
		"profileId": profileID,
		"scanRunId": CanonicalID(scanRunID),
	})
	if err != nil {
		return 0, fmt.Errorf("delete transform records for run %s: %w", scanRunID, err)
	}
	return removed, nil
}

// PruneOrphanTransformData removes records whose scan run no longer exists.
// Unlike DeleteTransformData it does not require the run to resolve: the
// run is gone and its records are orphans, keyed only by canonical
// scanRunId.
func (s *Service) PruneOrphanTransformData(ctx context.Context, profileID int64, scanRunID string) (int64, error) {
	removed, err := s.store.DeleteMany(ctx, collTransformRecords, store.Filter{
		"profileId": profileID,
		"scanRunId": CanonicalID(scanRunID),
	})
	if err != nil {
		return 0, fmt.Errorf("prune transform records for run %s: %w", scanRunID, err)
	}
	return removed, nil
}
