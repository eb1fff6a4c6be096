package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/mesh-intelligence/catalog/internal/eventbus"
)

// Watch streams entity change events to fn until ctx is cancelled, the
// server closes the stream, or fn returns an error. An empty entityTypeID
// watches every type. Cancellation and a normal close return nil.
func (c *Client) Watch(ctx context.Context, entityTypeID string, fn func(eventbus.Event) error) error {
	var q url.Values
	if entityTypeID != "" {
		q = url.Values{"entity_type_id": {entityTypeID}}
	}
	u, err := url.Parse(c.endpoint("/events", q))
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	// The stream outlives any request timeout, so only the transport is shared.
	hc := &http.Client{Transport: c.http.Transport}
	conn, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{HTTPClient: hc})
	if err != nil {
		return fmt.Errorf("connecting to event stream: %w", err)
	}
	defer conn.CloseNow()

	for {
		var evt eventbus.Event
		if err := wsjson.Read(ctx, conn, &evt); err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("reading event: %w", err)
		}
		if err := fn(evt); err != nil {
			conn.Close(websocket.StatusNormalClosure, "")
			return err
		}
	}
}
