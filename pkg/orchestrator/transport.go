package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is a message-oriented connection to the compute backend.
type Transport interface {
	// SendJSON marshals and writes one message.
	SendJSON(v interface{}) error
	// ReadMessage blocks until the next message or a transport error.
	ReadMessage() ([]byte, error)
	Close() error
}

// DialFunc opens a transport to the given websocket URL. Injectable for
// tests; the default dials with gorilla/websocket.
type DialFunc func(ctx context.Context, url string) (Transport, error)

const dialTimeout = 2 * time.Second

type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) SendJSON(v interface{}) error {
	return t.conn.WriteJSON(v)
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// DialWebSocket is the default DialFunc.
func DialWebSocket(ctx context.Context, url string) (Transport, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}
	return &wsTransport{conn: conn}, nil
}
