package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"token-presale/internal/domain"
)

// FeedSubscription receives presale views pushed over the live feed.
type FeedSubscription struct {
	conn    *websocket.Conn
	updates chan domain.PresaleView
	done    chan struct{}
	errMu   sync.Mutex
	err     error
	once    sync.Once
}

// SubscribeFeed dials the live presale feed. The first update is the
// state at connect time.
func (c *Client) SubscribeFeed(ctx context.Context) (*FeedSubscription, error) {
	endpoint := c.baseURL + "/api/presale/ws"
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = "ws://" + strings.TrimPrefix(endpoint, "http://")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	s := &FeedSubscription{
		conn:    conn,
		updates: make(chan domain.PresaleView, 4),
		done:    make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Updates is closed when the connection ends.
func (s *FeedSubscription) Updates() <-chan domain.PresaleView {
	return s.updates
}

// Err returns the error that ended the subscription, if any.
func (s *FeedSubscription) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close ends the subscription.
func (s *FeedSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

func (s *FeedSubscription) readLoop() {
	defer close(s.updates)
	defer s.Close()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.errMu.Lock()
				s.err = err
				s.errMu.Unlock()
			}
			return
		}

		var msg struct {
			Type string             `json:"type"`
			Data domain.PresaleView `json:"data"`
		}
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "presale" {
			continue
		}
		select {
		case s.updates <- msg.Data:
		case <-s.done:
			return
		}
	}
}
