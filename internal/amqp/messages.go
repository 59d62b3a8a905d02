package amqp

import (
	"encoding/json"
	"time"
)

// Operation names carried by RPC requests.
const (
	OpFetch  = "fetch"
	OpWrite  = "write"
	OpDelete = "delete"
	OpNewKey = "newkey"
)

// RecordPayload is one node of a collection as it travels on the wire.
type RecordPayload struct {
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Request is one store operation sent to the ledger daemon. Write and
// Delete are confirmed by the Response; the snapshot feed, not the
// confirmation, is the authoritative view of what landed.
type Request struct {
	Op        string          `json:"op"`
	Path      string          `json:"path"`
	Key       string          `json:"key,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Response answers one Request.
type Response struct {
	OK      bool            `json:"ok"`
	Error   string          `json:"error,omitempty"`
	Key     string          `json:"key,omitempty"`
	Records []RecordPayload `json:"records,omitempty"`
}

// Snapshot is one whole-collection state broadcast on the feed exchange
// after every accepted change.
type Snapshot struct {
	Path      string          `json:"path"`
	Records   []RecordPayload `json:"records"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewRequest(op, path, key string, data []byte) *Request {
	return &Request{Op: op, Path: path, Key: key, Data: data, Timestamp: time.Now()}
}

func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

func RequestFromJSON(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *Response) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

func ResponseFromJSON(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Snapshot) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

func SnapshotFromJSON(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
