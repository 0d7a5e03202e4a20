// Package transport provides the client side of the chat channel: a framed,
// bidirectional websocket connection that lives for one session.
package transport

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/BionicLimanov/sapusugi/internal/logger"
	"github.com/BionicLimanov/sapusugi/internal/wire"
)

// Handler is invoked once per inbound envelope, in arrival order. The channel
// processes one envelope to completion before reading the next.
type Handler func(env wire.Envelope)

// Config configures a Channel.
type Config struct {
	// URL is the full websocket URL (ws:// or wss://).
	URL string
	// Handler receives inbound envelopes. Required.
	Handler Handler
	// OnClose is invoked exactly once when the channel stops delivering,
	// with nil after a deliberate Close and the transport error otherwise.
	OnClose func(err error)
}

// Channel is a message-framed duplex connection to the backend's chat
// endpoint. There is no automatic reconnect; a closed channel is dead and
// the owning session terminates with it.
type Channel struct {
	conn    *websocket.Conn
	handler Handler
	onClose func(error)

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

// ChatURL converts the backend base URL into the chat websocket URL.
func ChatURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid backend URL %q: %w", base, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid backend URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/chat"
	return u.String(), nil
}

// Dial opens the channel and starts delivering inbound envelopes to the
// handler. A connection failure is returned to the caller; it never crashes
// the process.
func Dial(cfg Config) (*Channel, error) {
	if cfg.Handler == nil {
		return nil, errors.New("transport: handler is required")
	}
	conn, _, err := websocket.DefaultDialer.Dial(cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}

	ch := &Channel{
		conn:    conn,
		handler: cfg.Handler,
		onClose: cfg.OnClose,
		closed:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go ch.readLoop()
	return ch, nil
}

// Send writes one envelope as a single JSON frame.
func (ch *Channel) Send(env wire.Envelope) error {
	data, err := wire.Encode(env)
	if err != nil {
		return err
	}
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	if err := ch.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Close shuts the channel down deliberately. OnClose fires with a nil error.
func (ch *Channel) Close() error {
	var err error
	ch.closeOnce.Do(func() {
		close(ch.closed)
		err = ch.conn.Close()
	})
	<-ch.done
	return err
}

// Done is closed once the channel has stopped delivering envelopes.
func (ch *Channel) Done() <-chan struct{} {
	return ch.done
}

func (ch *Channel) readLoop() {
	defer close(ch.done)

	var closeErr error
	for {
		_, data, err := ch.conn.ReadMessage()
		if err != nil {
			select {
			case <-ch.closed:
				// Deliberate close; not a transport failure.
			default:
				closeErr = err
			}
			break
		}

		env, err := wire.Decode(data)
		if err != nil {
			if errors.Is(err, wire.ErrUnknownType) {
				// Unrecognized tags are dropped, not propagated as faults.
				logger.Warnf("[transport] dropping envelope: %v", err)
				continue
			}
			// A malformed frame is a channel-level failure.
			logger.Errorf("[transport] %v", err)
			closeErr = err
			ch.closeOnce.Do(func() {
				close(ch.closed)
				ch.conn.Close()
			})
			break
		}

		ch.handler(env)
	}

	if ch.onClose != nil {
		ch.onClose(closeErr)
	}
}
