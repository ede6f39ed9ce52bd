package pgnotify

import (
	"encoding/json"
	"fmt"
)

// notification is the JSON body of a NOTIFY on a candidates channel: a row
// change from the table trigger or a broadcast from a peer.
type notification struct {
	Type string `json:"type"`

	// Row changes
	Schema    string          `json:"schema,omitempty"`
	Table     string          `json:"table,omitempty"`
	Record    json.RawMessage `json:"record,omitempty"`
	OldRecord json.RawMessage `json:"old_record,omitempty"`

	// Broadcasts
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func parseNotification(payload string) (notification, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return notification{}, fmt.Errorf("decode notification: %w", err)
	}
	if n.Type == "" {
		return notification{}, fmt.Errorf("notification has no type")
	}
	return n, nil
}

// nonNull maps a JSON null to an empty row.
func nonNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
