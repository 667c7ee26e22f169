package events

import (
	"encoding/json"
	"time"
)

// Envelope is the canonical event shape carried on the broadcast bus. The
// election wire contract keeps Data empty for phase events; subscribers fetch
// authoritative state from the ledger instead of trusting the payload.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data,omitempty"`
}
