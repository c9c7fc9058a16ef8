package mocktarget

import "encoding/json"

// EvalResult mirrors the shape a flagr evaluation returns.
type EvalResult struct {
	FlagID            int64           `json:"flagID"`
	FlagKey           string          `json:"flagKey"`
	FlagSnapshotID    int64           `json:"flagSnapshotID"`
	SegmentID         int64           `json:"segmentID,omitempty"`
	VariantID         int64           `json:"variantID,omitempty"`
	VariantKey        string          `json:"variantKey,omitempty"`
	VariantAttachment json.RawMessage `json:"variantAttachment,omitempty"`
	EvalContext       EvalContext     `json:"evalContext"`
	Timestamp         string          `json:"timestamp"`
	EvalDebugLog      *EvalDebugLog   `json:"evalDebugLog,omitempty"`
}

// EvalContext echoes what the caller asked to evaluate.
type EvalContext struct {
	EntityID      string         `json:"entityID"`
	EntityType    string         `json:"entityType"`
	EntityContext map[string]any `json:"entityContext,omitempty"`
	FlagID        int64          `json:"flagID"`
	EnableDebug   bool           `json:"enableDebug"`
}

// EvalDebugLog is only filled in when the request enables debug.
type EvalDebugLog struct {
	Msg              string            `json:"msg,omitempty"`
	SegmentDebugLogs []SegmentDebugLog `json:"segmentDebugLogs"`
}

// SegmentDebugLog explains how one segment was matched.
type SegmentDebugLog struct {
	SegmentID int64  `json:"segmentID"`
	Msg       string `json:"msg"`
}

// IndexResult is the reply of the mock indexing endpoint.
type IndexResult struct {
	Index   string `json:"_index"`
	ID      string `json:"_id"`
	Result  string `json:"result"`
	Version int64  `json:"_version"`
}
