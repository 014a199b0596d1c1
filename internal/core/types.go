// Package core provides the business logic for the migration workbench:
// the workspace tree store, the profile/scan-run registry, and the bulk
// transform-data replacement engine. It has no HTTP dependencies and talks
// to persistence only through the store.Store contract.
package core

import "time"

// Collection names in the document store.
const (
	collWorkspaces       = "workspaces"
	collProfiles         = "profiles"
	collTransformRecords = "transform_records"
	collKeyValueSets     = "key_value_sets"
	collMappingSets      = "mapping_sets"
	collAuditLog         = "audit_log"
)

// NodeKind distinguishes files from folders in a workspace tree.
type NodeKind string

const (
	KindFile   NodeKind = "file"
	KindFolder NodeKind = "folder"
)

// Valid reports whether the kind is one of the two known values.
func (k NodeKind) Valid() bool {
	return k == KindFile || k == KindFolder
}

// Payload is a schemaless JSON object. File contents and transform
// source/target objects are stored as-is with round-trip fidelity; the core
// never interprets their shape.
type Payload map[string]any

// Node is one entry in a workspace tree. Only folders carry Children and
// only files carry Content; the invariant is enforced by the tree
// operations, not by the type.
type Node struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Kind      NodeKind  `json:"type"`
	Expanded  bool      `json:"expanded"`
	Children  []Node    `json:"children,omitempty"`
	Content   Payload   `json:"content,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Workspace is the per-owner node tree. SelectedNodeID is a weak reference:
// it may name a node that no longer exists, which reads as "none selected".
type Workspace struct {
	Owner          string    `json:"owner"`
	Tree           []Node    `json:"tree"`
	SelectedNodeID string    `json:"selectedFileId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NodePatch carries the updatable fields of a node. Nil fields are left
// unchanged.
type NodePatch struct {
	Content *Payload `json:"content,omitempty"`
	Label   *string  `json:"label,omitempty"`
}

// ScanRunStatus is the lifecycle state of a scan run.
type ScanRunStatus string

const (
	StatusRunning  ScanRunStatus = "Running"
	StatusFinished ScanRunStatus = "Finished"
	StatusFailed   ScanRunStatus = "Failed"
)

// ScanRun is one ingested tabular snapshot. A profile retains at most one:
// replacing discards the previous run entirely.
type ScanRun struct {
	ID               string        `json:"id"`
	RunNumber        int           `json:"runNumber"`
	Description      string        `json:"description,omitempty"`
	ObjectsProcessed int           `json:"objectsProcessed"`
	Status           ScanRunStatus `json:"status"`
	Started          time.Time     `json:"started"`
	Ended            time.Time     `json:"ended"`
	Headers          []string      `json:"headers"`
	Rows             [][]any       `json:"rows"`
}

// Profile is a named migration configuration. Descriptive enum fields are
// free-form strings validated at creation.
type Profile struct {
	ProfileID      int64     `json:"profileId"`
	Name           string    `json:"name"`
	Type           string    `json:"type,omitempty"`
	Location       string    `json:"location,omitempty"`
	Description    string    `json:"description,omitempty"`
	Transformation string    `json:"transformation,omitempty"`
	MigrationType  string    `json:"migrationType,omitempty"`
	ScanRuns       []ScanRun `json:"scanRuns"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// TransformDetail records one column-level transformation applied to a row.
type TransformDetail struct {
	Column           string `json:"column"`
	OriginalValue    string `json:"originalValue"`
	TransformedValue string `json:"transformedValue"`
	FunctionApplied  string `json:"functionApplied"`
	Applied          bool   `json:"applied"`
}

// TransformRecord is one source-to-target row transformation result, tied
// to a scan run by canonical id.
type TransformRecord struct {
	ID                string            `json:"id"`
	ProfileID         int64             `json:"profileId"`
	ScanRunID         string            `json:"scanRunId"`
	SourceObject      Payload           `json:"sourceObject"`
	TransformedObject Payload           `json:"transformedObject"`
	Details           []TransformDetail `json:"transformationDetails,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	BatchIndex        int               `json:"batchIndex"`
}

// TransformRecordInput is the caller-supplied portion of a transform record.
// Ids, timestamps, and batch indexes are assigned by the engine.
type TransformRecordInput struct {
	SourceObject      Payload           `json:"sourceObject"`
	TransformedObject Payload           `json:"transformedObject"`
	Details           []TransformDetail `json:"transformationDetails,omitempty"`
}

// ReplaceResult summarizes one bulk transform-data replacement.
type ReplaceResult struct {
	Removed    int `json:"removed"`
	Added      int `json:"added"`
	FinalCount int `json:"finalCount"`
	Batches    int `json:"batches"`
}

// KeyValueSource identifies where a key-value entry came from.
type KeyValueSource string

const (
	SourceManual   KeyValueSource = "manual"
	SourceImported KeyValueSource = "imported"
	SourceDerived  KeyValueSource = "derived"
)

// Valid reports whether the source is a known value.
func (s KeyValueSource) Valid() bool {
	return s == SourceManual || s == SourceImported || s == SourceDerived
}

// KeyValueEntry is one entry of a profile's key-value side table.
type KeyValueEntry struct {
	Key       string         `json:"key"`
	Value     string         `json:"value"`
	Value2    string         `json:"value2,omitempty"`
	Source    KeyValueSource `json:"source"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// KeyValueSet is the full side table for one profile.
type KeyValueSet struct {
	ProfileID int64           `json:"profileId"`
	Entries   []KeyValueEntry `json:"entries"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// FieldMapping is one source-to-target column mapping.
type FieldMapping struct {
	SourceColumn string `json:"sourceColumn"`
	TargetColumn string `json:"targetColumn"`
	MappingType  string `json:"mappingType"`
	Formula      string `json:"formula,omitempty"`
}

// MappingSet is the saved field-mapping collection for one profile. Saves
// replace the whole set.
type MappingSet struct {
	ProfileID     int64          `json:"profileId"`
	Mappings      []FieldMapping `json:"mappings"`
	SourceHeaders []string       `json:"sourceHeaders"`
	SavedAt       time.Time      `json:"savedAt"`
}

// AuditEntry is one audit-trail record.
type AuditEntry struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
