package wire

import (
	"encoding/json"
	"fmt"

	"github.com/decden/hotelsync/pkg/persistence"
)

// envelope is decoded first to read the op discriminator before picking the
// concrete message type to unmarshal into.
type envelope struct {
	Op string `json:"op"`
}

// Op discriminators (§6.3).
const (
	OpCreateStream       = "create_stream"
	OpRemoveStream       = "remove_stream"
	OpScheduleOperations = "schedule_operations"
	OpStreamInitialize   = "stream_initialize"
	OpStreamAdd          = "stream_add"
	OpStreamUpdate       = "stream_update"
	OpStreamRemove       = "stream_remove"
	OpStreamClear        = "stream_clear"
	OpTaskResults        = "task_results"
)

// CreateStream is sent client→server to open a filtered or unfiltered feed
// of one entity kind. ID is client-assigned; the server echoes it back on
// every stream_* message for this stream.
type CreateStream struct {
	ID      int             `json:"id"`
	Type    int             `json:"type"`
	Service string          `json:"service"`
	Options json.RawMessage `json:"options,omitempty"`
}

// RemoveStream is sent client→server to close a previously created stream.
type RemoveStream struct {
	ID int `json:"id"`
}

// ScheduleOperations is sent client→server to submit a batch for execution.
// ID is the client-assigned task id; the server replies with exactly one
// TaskResults carrying the same id once the batch resolves.
type ScheduleOperations struct {
	ID         int                   `json:"id"`
	Operations persistence.Operations `json:"operations"`
}

// StreamInitialize is sent server→client once a stream's initial
// full-dataset emission has drained.
type StreamInitialize struct {
	ID int `json:"id"`
}

// StreamAdd is sent server→client for an ItemsAdded delta. Items carries
// raw entity JSON (§6.1) for the type named by Type ("hotel"|"reservation");
// the receiver decodes with the matching domain type.
type StreamAdd struct {
	ID    int             `json:"id"`
	Type  string          `json:"type"`
	Items json.RawMessage `json:"items"`
}

// StreamUpdate is sent server→client for an ItemsUpdated delta.
type StreamUpdate struct {
	ID    int             `json:"id"`
	Type  string          `json:"type"`
	Items json.RawMessage `json:"items"`
}

// StreamRemove is sent server→client for an ItemsRemoved delta.
type StreamRemove struct {
	ID    int   `json:"id"`
	Items []int `json:"items"`
}

// StreamClear is sent server→client for a Cleared delta.
type StreamClear struct {
	ID int `json:"id"`
}

// TaskResults is sent server→client once a scheduled batch's Task resolves.
type TaskResults struct {
	ID      int                            `json:"id"`
	Results []persistence.OperationResult `json:"results"`
}

// Encode marshals msg and tags it with op, producing the bytes WriteFrame
// expects as a payload.
func Encode(op string, msg any) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("wire: encode %s: %w", op, err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("wire: encode %s: %w", op, err)
	}
	opJSON, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("wire: encode %s: %w", op, err)
	}
	fields["op"] = opJSON
	return json.Marshal(fields)
}

// PeekOp reports the op discriminator of a frame payload without decoding
// the rest of it.
func PeekOp(payload []byte) (string, error) {
	var e envelope
	if err := json.Unmarshal(payload, &e); err != nil {
		return "", fmt.Errorf("wire: reading op: %w", err)
	}
	if e.Op == "" {
		return "", fmt.Errorf("wire: message has no op field")
	}
	return e.Op, nil
}

// Decode unmarshals a frame payload into msg. Callers first call PeekOp to
// pick the right msg type.
func Decode(payload []byte, msg any) error {
	if err := json.Unmarshal(payload, msg); err != nil {
		return fmt.Errorf("wire: decode: %w", err)
	}
	return nil
}
