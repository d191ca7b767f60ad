package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
)

// Bridge carries events between instances sharing one store.
type Bridge interface {
	Forward(ctx context.Context, evt Event) error
	Receive(ctx context.Context, deliver func(Event)) error
	Close() error
}

func encodeEvent(evt Event) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", evt.Name, err)
	}
	return data, nil
}

func decodeEvent(data []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if !evt.Name.IsValid() {
		return Event{}, fmt.Errorf("unknown event %q", evt.Name)
	}
	return evt, nil
}
