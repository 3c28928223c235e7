package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/socialmux/socialmux/model"
)

// Signals dials the signal websocket and streams decoded signals until ctx
// terminates or the server closes the connection, then closes the returned
// channel. Authentication rides on the token query parameter because
// browsers cannot set websocket headers.
func (c *Client) Signals(ctx context.Context) (<-chan model.Signal, error) {
	wsUrl, err := c.signalUrl()
	if err != nil {
		return nil, err
	}

	var header http.Header
	if c.actor != "" {
		header = http.Header{}
		header.Set("sub", c.actor)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsUrl, header)
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial signal endpoint")
	}

	out := make(chan model.Signal, 8)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var sig model.Signal
			if err := conn.ReadJSON(&sig); err != nil {
				return
			}
			select {
			case out <- sig:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) signalUrl() (string, error) {
	parsed, err := url.Parse(c.baseUrl)
	if err != nil {
		return "", errors.Wrap(err, "invalid base url")
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/api/queries/signal"
	query := parsed.Query()
	if c.token != "" {
		query.Set("token", c.token)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
