package notify

import (
	"encoding/json"
	"fmt"
)

// Envelope is the wire form of a notification.
type Envelope struct {
	Kind   Kind            `json:"kind"`
	Sender string          `json:"sender"`
	Data   json.RawMessage `json:"data"`
}

func Marshal(sender string, ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", ev.Kind(), err)
	}
	return json.Marshal(Envelope{Kind: ev.Kind(), Sender: sender, Data: data})
}

func Unmarshal(b []byte) (string, Event, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return "", nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	var (
		ev  Event
		err error
	)
	switch env.Kind {
	case KindOrderOpened:
		ev, err = decode[OrderOpened](env.Data)
	case KindOrderTraded:
		ev, err = decode[OrderTraded](env.Data)
	case KindOrderDeleted:
		ev, err = decode[OrderDeleted](env.Data)
	case KindOrderRejected:
		ev, err = decode[OrderRejected](env.Data)
	case KindPositionOpened:
		ev, err = decode[PositionOpened](env.Data)
	case KindPositionDeleted:
		ev, err = decode[PositionDeleted](env.Data)
	default:
		return "", nil, fmt.Errorf("unmarshal envelope: unknown kind %d", env.Kind)
	}
	if err != nil {
		return "", nil, fmt.Errorf("unmarshal %s: %w", env.Kind, err)
	}
	return env.Sender, ev, nil
}

func decode[T Event](data json.RawMessage) (Event, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
