package storage

import (
	"context"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// WSTransport carries the storage protocol over a WebSocket connection to
// the storage daemon.
type WSTransport struct {
	conn    *websocket.Conn
	msgs    chan *Message
	writeMu sync.Mutex
	once    sync.Once
}

func DialTransport(ctx context.Context, url string) (*WSTransport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	t := &WSTransport{
		conn: conn,
		msgs: make(chan *Message, 16),
	}
	go t.readLoop()
	return t, nil
}

func (t *WSTransport) readLoop() {
	defer close(t.msgs)
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		t.msgs <- &msg
	}
}

func (t *WSTransport) Send(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *WSTransport) Messages() <-chan *Message {
	return t.msgs
}

func (t *WSTransport) Close() error {
	var err error
	t.once.Do(func() {
		err = t.conn.Close()
	})
	return err
}
