package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/skyward/combat-core/pkg/streaming"
)

const (
	sendChSize   = 10_000
	ackChSize    = 16
	maxReconnect = 10
	firstBackoff = time.Second
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	closeWait    = time.Second
	ackTimeout   = 10 * time.Second
)

var errConnClosed = errors.New("stream connection closed")

// connection owns one live socket at a time. Every socket gets its own reader
// and writer goroutine; when either fails the socket is replaced and the
// mission header is sent again before frames resume.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	gone   chan struct{} // closed when conn is replaced
	closed bool
	header []byte // start_mission envelope, resent after a reconnect

	outbox chan []byte
	acks   chan streaming.AckMessage
	done   chan struct{}

	target string
	secret string

	dropped atomic.Uint64
	logger  *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		outbox: make(chan []byte, sendChSize),
		acks:   make(chan streaming.AckMessage, ackChSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

func (c *connection) dial(rawURL, secret string) error {
	c.target, c.secret = rawURL, secret
	conn, err := c.open()
	if err != nil {
		return err
	}
	return c.attach(conn)
}

// open dials the server once. The shared secret travels as a query parameter.
func (c *connection) open() (*ws.Conn, error) {
	u, err := url.Parse(c.target)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if c.secret != "" {
		q := u.Query()
		q.Set("secret", c.secret)
		u.RawQuery = q.Encode()
	}
	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// attach makes conn the live socket and starts its loops. A connection closed
// in the meantime rejects it.
func (c *connection) attach(conn *ws.Conn) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return errConnClosed
	}
	gone := make(chan struct{})
	c.conn, c.gone = conn, gone
	c.mu.Unlock()

	go c.pump(conn, gone)
	go c.listen(conn)
	return nil
}

func (c *connection) setHeader(data []byte) {
	c.mu.Lock()
	c.header = data
	c.mu.Unlock()
}

func (c *connection) currentHeader() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.header
}

func writeFrame(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// pump writes queued envelopes to conn until it fails, is replaced or the
// connection shuts down.
func (c *connection) pump(conn *ws.Conn, gone <-chan struct{}) {
	for {
		select {
		case <-c.done:
			return
		case <-gone:
			return
		case data := <-c.outbox:
			if err := writeFrame(conn, data); err != nil {
				c.logger.Warn("stream write failed", "error", err)
				go c.redial(conn)
				return
			}
		}
	}
}

// listen forwards acknowledgements from conn. Anything else the server sends
// is logged and ignored.
func (c *connection) listen(conn *ws.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("stream read failed", "error", err)
				go c.redial(conn)
			}
			return
		}

		var ack streaming.AckMessage
		if json.Unmarshal(raw, &ack) != nil || ack.Type != streaming.TypeAck {
			c.logger.Debug("ignoring server message", "raw", string(raw))
			continue
		}
		select {
		case c.acks <- ack:
		default:
			c.logger.Debug("ack dropped, nobody waiting", "for", ack.For)
		}
	}
}

// redial replaces a failed socket. pump and listen can both report the same
// failure; whichever arrives second finds the socket already swapped out and
// returns.
func (c *connection) redial(failed *ws.Conn) {
	c.mu.Lock()
	if c.closed || c.conn != failed {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	close(c.gone)
	c.mu.Unlock()
	_ = failed.Close()

	wait := firstBackoff
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		c.logger.Info("reconnecting stream", "attempt", attempt, "wait", wait)
		select {
		case <-c.done:
			return
		case <-time.After(wait):
		}
		wait = min(wait*2, maxBackoff)

		conn, err := c.open()
		if err != nil {
			c.logger.Warn("stream dial failed", "attempt", attempt, "error", err)
			continue
		}
		if header := c.currentHeader(); header != nil {
			if err := writeFrame(conn, header); err != nil {
				c.logger.Warn("mission header resend failed", "error", err)
				_ = conn.Close()
				continue
			}
		}
		if c.attach(conn) != nil {
			return
		}
		c.logger.Info("stream reconnected", "attempt", attempt)
		return
	}
	c.logger.Error("giving up on stream", "attempts", maxReconnect)
}

// send queues data without blocking. A full outbox drops the envelope and
// counts it; only the first drop is logged.
func (c *connection) send(data []byte) {
	select {
	case c.outbox <- data:
	default:
		if c.dropped.Add(1) == 1 {
			c.logger.Warn("stream outbox full, dropping envelopes")
		}
	}
}

// sendAndWait queues data and waits for the server to ack ackFor.
func (c *connection) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	c.send(data)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case ack := <-c.acks:
			if ack.For == ackFor {
				return nil
			}
		case <-deadline.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.done:
			return fmt.Errorf("waiting for ack of %q: %w", ackFor, errConnClosed)
		}
	}
}

// close stops every loop and says goodbye to the server. It is idempotent.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	bye := ws.FormatCloseMessage(ws.CloseNormalClosure, "")
	_ = conn.WriteControl(ws.CloseMessage, bye, time.Now().Add(closeWait))
	return conn.Close()
}
