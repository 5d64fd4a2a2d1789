package discord

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrSocketClosed indicates that the transport reported a closed connection.
var ErrSocketClosed = errors.New("socket closed")

// Socket is the host-provided gateway transport. Receive waits up to timeout
// for one frame and reports ok=false when none arrived in time; a zero
// timeout drains only frames that are already queued. A returned error means
// the connection is unusable and the session must reset.
type Socket interface {
	Send(data []byte) error
	Receive(timeout time.Duration) (data []byte, ok bool, err error)
	Close() error
}

// Dialer establishes gateway sockets. The default implementation dials with
// gorilla/websocket; tests and embedding hosts may substitute their own.
type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

// wsDialer is the default Dialer.
type wsDialer struct{}

func (wsDialer) Dial(ctx context.Context, url string) (Socket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return newWSSocket(conn), nil
}

// wsSocket adapts a websocket connection to the Socket contract. A reader
// goroutine feeds frames into a buffered channel so Receive can be bounded by
// a timeout without poisoning the connection's read deadline.
type wsSocket struct {
	conn   *websocket.Conn
	frames chan []byte

	mu      sync.Mutex
	readErr error

	closeOnce sync.Once
	done      chan struct{}
}

func newWSSocket(conn *websocket.Conn) *wsSocket {
	s := &wsSocket{
		conn:   conn,
		frames: make(chan []byte, 64),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *wsSocket) readLoop() {
	defer close(s.frames)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			s.readErr = err
			s.mu.Unlock()
			return
		}
		select {
		case s.frames <- data:
		case <-s.done:
			return
		}
	}
}

func (s *wsSocket) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return s.readErr
	}
	return ErrSocketClosed
}

func (s *wsSocket) Send(data []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsSocket) Receive(timeout time.Duration) ([]byte, bool, error) {
	if timeout <= 0 {
		select {
		case data, open := <-s.frames:
			if !open {
				return nil, false, s.failure()
			}
			return data, true, nil
		default:
			return nil, false, nil
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case data, open := <-s.frames:
		if !open {
			return nil, false, s.failure()
		}
		return data, true, nil
	case <-timer.C:
		return nil, false, nil
	}
}

func (s *wsSocket) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return s.conn.Close()
}
