package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// DefaultAckTimeout bounds a single delivery attempt.
const DefaultAckTimeout = 10 * time.Second

// Link carries one encoded report to the companion. Deliver returns nil
// only once the report is acknowledged.
type Link interface {
	Name() string
	Deliver(ctx context.Context, id uuid.UUID, payload []byte) error
	Close() error
}

// WebSocketLink delivers reports over a WebSocket connection and waits for
// an ack envelope carrying the same report id. The connection is dialled
// lazily and redialled after any failure.
type WebSocketLink struct {
	url     string
	dialer  *websocket.Dialer
	timeout time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocketLink returns a link to the companion's /ws endpoint at url.
func NewWebSocketLink(url string) *WebSocketLink {
	return &WebSocketLink{
		url:     url,
		dialer:  &websocket.Dialer{HandshakeTimeout: DefaultAckTimeout},
		timeout: DefaultAckTimeout,
	}
}

func (link *WebSocketLink) Name() string { return "websocket" }

func (link *WebSocketLink) Deliver(ctx context.Context, id uuid.UUID, payload []byte) error {
	link.mu.Lock()
	defer link.mu.Unlock()

	if err := link.deliverLocked(ctx, id, payload); err != nil {
		link.dropLocked()
		return fmt.Errorf("websocket deliver %s: %w", id, err)
	}
	return nil
}

func (link *WebSocketLink) deliverLocked(ctx context.Context, id uuid.UUID, payload []byte) error {
	if link.conn == nil {
		conn, _, err := link.dialer.DialContext(ctx, link.url, nil)
		if err != nil {
			return fmt.Errorf("dial: %w", err)
		}
		link.conn = conn
	}

	deadline := time.Now().Add(link.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	frame, err := ReportEnvelope(id, payload)
	if err != nil {
		return err
	}
	_ = link.conn.SetWriteDeadline(deadline)
	if err := link.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	_ = link.conn.SetReadDeadline(deadline)
	for {
		_, data, err := link.conn.ReadMessage()
		if err != nil {
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				return ErrNotAcknowledged
			}
			return fmt.Errorf("read ack: %w", err)
		}
		envelope, err := DecodeEnvelope(data)
		if err != nil {
			return err
		}
		// Stale acks for earlier attempts are skipped.
		if envelope.Type == TypeAck && envelope.ReportID == id {
			return nil
		}
	}
}

func (link *WebSocketLink) dropLocked() {
	if link.conn != nil {
		_ = link.conn.Close()
		link.conn = nil
	}
}

func (link *WebSocketLink) Close() error {
	link.mu.Lock()
	defer link.mu.Unlock()
	if link.conn == nil {
		return nil
	}
	_ = link.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	link.dropLocked()
	return nil
}
