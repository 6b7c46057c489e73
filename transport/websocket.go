// Package transport
package transport

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	ErrNotOpen = errors.New("transport: socket not open")
	ErrClosing = errors.New("transport: socket closing")
)

type WebSocketConfig struct {
	HandshakeTimeout  time.Duration
	CloseTimeout      time.Duration
	ReadLimit         int64
	Header            http.Header
	EnableCompression bool
	// Log is the base entry for socket logs, nil means the standard logger.
	Log *log.Entry
}

const defaultCloseTimeout = 5 * time.Second

func NewWebSocketDialer(cfg WebSocketConfig) Dialer {
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = defaultCloseTimeout
	}
	if cfg.Log == nil {
		cfg.Log = log.NewEntry(log.StandardLogger())
	}
	return &wsDialer{
		cfg: cfg,
		d: &websocket.Dialer{
			Proxy:             http.ProxyFromEnvironment,
			HandshakeTimeout:  cfg.HandshakeTimeout,
			EnableCompression: cfg.EnableCompression,
		},
	}
}

type wsDialer struct {
	cfg WebSocketConfig
	d   *websocket.Dialer
}

func (wd *wsDialer) Dial(addr string, h Handler) (Socket, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, errors.Wrapf(err, "parse websocket address %s", addr)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, errors.Errorf("not support websocket address: %s", addr)
	}

	ws := &wsSocket{
		addr: addr,
		h:    h,
		cfg:  wd.cfg,
		done: make(chan struct{}),
	}
	ws.ctx, ws.cancel = context.WithCancel(context.Background())
	ws.log = wd.cfg.Log.WithFields(log.Fields{
		"Name": "WebSocket",
		"Addr": addr,
	})

	go ws.run(wd.d)
	return ws, nil
}

// wsSocket drives one gorilla connection and turns its blocking reads into
// Handler notifications.
type wsSocket struct {
	addr string
	h    Handler
	cfg  WebSocketConfig
	log  *log.Entry

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	lock    sync.Mutex
	conn    *websocket.Conn
	closing bool

	writeLock sync.Mutex
}

func (ws *wsSocket) run(d *websocket.Dialer) {
	defer close(ws.done)
	defer ws.cancel()

	c, _, err := d.DialContext(ws.ctx, ws.addr, ws.cfg.Header)
	if err != nil {
		if ws.isClosing() {
			ws.h.OnClose()
			return
		}
		ws.h.OnError(errors.Wrapf(err, "dial %s", ws.addr))
		ws.h.OnClose()
		return
	}
	if ws.cfg.ReadLimit > 0 {
		c.SetReadLimit(ws.cfg.ReadLimit)
	}

	ws.lock.Lock()
	ws.conn = c
	closing := ws.closing
	ws.lock.Unlock()
	if closing {
		c.Close()
		ws.h.OnClose()
		return
	}

	ws.log.Debug("dial ok!")
	ws.h.OnOpen()

	for {
		typ, data, err := c.ReadMessage()
		if err != nil {
			ws.finish(c, err)
			return
		}

		switch typ {
		case websocket.BinaryMessage:
			ws.h.OnMessage(Blob{Type: BinaryMessage, Data: data})
		case websocket.TextMessage:
			ws.h.OnMessage(Blob{Type: TextMessage, Data: data})
		}
	}
}

func (ws *wsSocket) finish(c *websocket.Conn, err error) {
	c.Close()
	if ws.isClosing() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		ws.log.Debug("closed: ", err)
		ws.h.OnClose()
		return
	}
	ws.log.Debug("read err: ", err)
	ws.h.OnError(err)
	ws.h.OnClose()
}

func (ws *wsSocket) isClosing() bool {
	ws.lock.Lock()
	defer ws.lock.Unlock()
	return ws.closing
}

func (ws *wsSocket) Send(data []byte) error {
	ws.lock.Lock()
	c, closing := ws.conn, ws.closing
	ws.lock.Unlock()

	if closing {
		return ErrClosing
	}
	if c == nil {
		return ErrNotOpen
	}

	ws.writeLock.Lock()
	defer ws.writeLock.Unlock()
	return c.WriteMessage(websocket.BinaryMessage, data)
}

// Close sends a normal closure and waits CloseTimeout for the peer to answer
// before tearing the connection down.
func (ws *wsSocket) Close() error {
	ws.lock.Lock()
	if ws.closing {
		ws.lock.Unlock()
		return nil
	}
	ws.closing = true
	c := ws.conn
	ws.lock.Unlock()

	if c == nil {
		ws.cancel()
		return nil
	}

	deadline := time.Now().Add(ws.cfg.CloseTimeout)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		c.Close()
		return errors.Wrap(err, "write close message")
	}

	go func() {
		timer := time.NewTimer(ws.cfg.CloseTimeout)
		defer timer.Stop()
		select {
		case <-ws.done:
		case <-timer.C:
			ws.log.Debug("close timeout, drop connection")
			c.Close()
		}
	}()
	return nil
}
