package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/peepeespace/easy-ledger/pkg/api"
)

// Subscriber streams ledger update events over a websocket connection.
type Subscriber struct {
	conn *websocket.Conn
}

// Subscribe dials the server's websocket endpoint and subscribes to the
// update channel of every (owner, name) pair given. wsURL is the ws://
// form of the server address, e.g. "ws://localhost:8080/ws".
func Subscribe(ctx context.Context, wsURL string, ledgers ...[2]string) (*Subscriber, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}

	channels := make([]string, len(ledgers))
	for i, ln := range ledgers {
		channels[i] = fmt.Sprintf("ledger:%s:%s", ln[0], ln[1])
	}
	req := api.WSSubscribeRequest{Op: "subscribe", Channels: channels}
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	return &Subscriber{conn: conn}, nil
}

// Next blocks until the server pushes the next ledger event.
func (s *Subscriber) Next() (api.LedgerEvent, error) {
	_, message, err := s.conn.ReadMessage()
	if err != nil {
		return api.LedgerEvent{}, err
	}
	var event api.LedgerEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return api.LedgerEvent{}, fmt.Errorf("decode event: %w", err)
	}
	return event, nil
}

func (s *Subscriber) Close() error {
	return s.conn.Close()
}
