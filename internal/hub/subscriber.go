package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Conn is the write side of a websocket connection.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Subscriber is one player's outbound connection. Packets are written by a
// single goroutine in queue order.
type Subscriber struct {
	hub    *Hub
	player uuid.UUID
	conn   Conn
	send   chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func newSubscriber(h *Hub, player uuid.UUID, conn Conn, queue int) *Subscriber {
	return &Subscriber{
		hub:    h,
		player: player,
		conn:   conn,
		send:   make(chan []byte, queue),
		done:   make(chan struct{}),
	}
}

// Player returns the network player the connection belongs to.
func (s *Subscriber) Player() uuid.UUID { return s.player }

// Done is closed once the subscriber stops writing.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// Run writes queued packets until the subscriber closes or a write fails.
// Idle connections are pinged every PingInterval.
func (s *Subscriber) Run() {
	ping := time.NewTicker(s.hub.cfg.PingInterval)
	defer ping.Stop()
	for {
		select {
		case <-s.done:
			return
		case data := <-s.send:
			if !s.write(websocket.BinaryMessage, data) {
				return
			}
		case <-ping.C:
			if !s.write(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (s *Subscriber) write(kind int, data []byte) bool {
	s.conn.SetWriteDeadline(time.Now().Add(s.hub.cfg.WriteWait))
	if err := s.conn.WriteMessage(kind, data); err != nil {
		s.hub.logger.Printf("failed to send to %s: %v", s.player, err)
		s.hub.Unsubscribe(s)
		return false
	}
	return true
}

func (s *Subscriber) enqueue(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

func (s *Subscriber) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}
