package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// RecordAudit appends one audit-trail entry.
func (s *Service) RecordAudit(ctx context.Context, user, action, details string) (*AuditEntry, error) {
	if strings.TrimSpace(action) == "" {
		return nil, invalidf("audit action is required")
	}

	entry := &AuditEntry{
		ID:        uuid.New().String(),
		User:      user,
		Action:    action,
		Details:   details,
		Timestamp: s.now(),
	}
	if err := s.putDoc(ctx, collAuditLog, entry.ID, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ListAudit returns all audit entries, newest first.
func (s *Service) ListAudit(ctx context.Context) ([]AuditEntry, error) {
	docs, err := s.store.Find(ctx, collAuditLog, nil)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}

	entries := make([]AuditEntry, 0, len(docs))
	for _, doc := range docs {
		var e AuditEntry
		if err := fromDoc(doc, &e); err != nil {
			return nil, fmt.Errorf("list audit entries: %w", err)
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}
