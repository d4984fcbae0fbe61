package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Envelope is the WebSocket framing of the stream protocol.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Envelope types.
const (
	EnvelopeItem = "item"
	EnvelopeEnd  = EndEventName
)

const wsCloseTimeout = time.Second

// WSTransport carries the same stream over a WebSocket. Each text message
// is an Envelope.
type WSTransport struct {
	BaseURL  string
	Endpoint string
	Dialer   *websocket.Dialer
}

func (t *WSTransport) Open(ctx context.Context, params Params) (Conn, error) {
	target, err := websocketURL(t.BaseURL, t.Endpoint, params.Query())
	if err != nil {
		return nil, &TransportError{Op: "request", Err: err}
	}

	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return nil, &TransportError{Op: "dial", Err: fmt.Errorf("%w (status %d)", err, resp.StatusCode)}
		}
		return nil, &TransportError{Op: "dial", Err: err}
	}

	p := newPipe(func() error {
		deadline := time.Now().Add(wsCloseTimeout)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
		return conn.Close()
	})
	go readWS(p, conn)
	return p, nil
}

func readWS(p *pipe, conn *websocket.Conn) {
	defer close(p.events)

	if !p.send(Event{Kind: EventOpened}) {
		return
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if p.closed() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = ErrUnexpectedEOF
			}
			p.send(Event{Kind: EventError, Err: err})
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if !p.send(envelopeEvent(data)) {
			return
		}
	}
}

// envelopeEvent maps one WebSocket message onto a stream event. Messages
// that are not valid envelopes are passed through as data so the session
// rejects them like any malformed frame.
func envelopeEvent(data []byte) Event {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{Kind: EventData, Data: string(data)}
	}
	switch env.Type {
	case "":
		return Event{Kind: EventData, Data: string(data)}
	case EnvelopeItem:
		return Event{Kind: EventData, Data: string(env.Payload)}
	case EnvelopeEnd:
		return Event{Kind: EventEnd, Name: EndEventName, Data: string(env.Payload)}
	default:
		return Event{Kind: EventData, Name: env.Type, Data: string(env.Payload)}
	}
}

// websocketURL converts an http(s) base URL into its ws(s) equivalent.
func websocketURL(base, endpoint, query string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + endpoint)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.RawQuery = query
	return u.String(), nil
}
