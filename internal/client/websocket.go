package client

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gorilla/websocket"
)

// ProgressUpdate is a live processing event streamed by the server
// while a document is being worked on.
type ProgressUpdate struct {
	RequestID string `json:"request_id"`
	Stage     string `json:"stage"`
	Batch     int    `json:"batch"`
	Batches   int    `json:"batches"`
	Message   string `json:"message,omitempty"`
}

// ConnectWebSocket opens the live progress stream. The returned
// channel is closed when the connection or context ends.
func (c *Client) ConnectWebSocket(ctx context.Context) (<-chan ProgressUpdate, error) {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/api/v1/ws?api_key=" + c.apiKey

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}

	updates := make(chan ProgressUpdate, 100)

	go func() {
		defer close(updates)
		defer conn.Close()

		go func() {
			<-ctx.Done()
			conn.Close()
		}()

		for {
			var update ProgressUpdate
			if err := conn.ReadJSON(&update); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("websocket error", "error", err)
				}
				return
			}
			select {
			case updates <- update:
			case <-ctx.Done():
				return
			}
		}
	}()

	return updates, nil
}
