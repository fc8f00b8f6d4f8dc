package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// Decode parses one inbound frame into an Event and stamps it with
// receivedAt. Frames that are not JSON objects or lack a string "type"
// discriminator return an error; callers drop the frame rather than
// appending a garbled entry. Unrecognized type values decode fine and
// reach the timeline through the generic append branch.
func Decode(data []byte, receivedAt time.Time) (*Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("event: invalid JSON frame (%d bytes)", len(data))
	}
	tag := gjson.GetBytes(data, "type")
	if tag.Type != gjson.String || tag.String() == "" {
		return nil, fmt.Errorf("event: frame has no type discriminator")
	}

	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("event: decode %q frame: %w", tag.String(), err)
	}
	ev.ReceivedAt = receivedAt
	return &ev, nil
}
