// Package echo serves websocket connections that send every received
// message back to the peer unchanged.
package echo

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const connIdKey = "X-CONNECTION-ID"

type Option = func(*Options)

// WithReadLimit set the maximum size of one echoed message
func WithReadLimit(n int64) Option {
	return func(op *Options) {
		op.ReadLimit = n
	}
}

func WithCompression() Option {
	return func(op *Options) {
		op.Compression = true
	}
}

type Options struct {
	ReadLimit   int64
	Compression bool
}

func (op *Options) Apply(options []Option) {
	for _, f := range options {
		f(op)
	}
}

func defaultOptions() *Options {
	return &Options{}
}

func NewServer(options ...Option) *Server {
	op := defaultOptions()
	op.Apply(options)
	return &Server{
		ws: &websocket.Upgrader{
			CheckOrigin:       func(*http.Request) bool { return true },
			EnableCompression: op.Compression,
		},
		options: op,
		conns:   map[string]*websocket.Conn{},
	}
}

type Server struct {
	ws      *websocket.Upgrader
	options *Options

	lock   sync.Mutex
	conns  map[string]*websocket.Conn
	closed bool
}

func (s *Server) Options() Options {
	return *s.options
}

func (s *Server) Register(path string, mux *http.ServeMux) {
	mux.Handle(path, s)
}

// Run listens on the host and path of a ws:// address.
func (s *Server) Run(addr string) error {
	u, err := url.Parse(addr)
	if err != nil {
		return errors.Wrapf(err, "parse listen address %s", addr)
	}

	port := u.Port()
	if len(port) == 0 {
		switch u.Scheme {
		case "ws":
			port = "80"
		case "wss":
			port = "443"
		default:
			return errors.Errorf("url %s is invalid", addr)
		}
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	hs := http.NewServeMux()
	s.Register(path, hs)
	log.Printf("echo server listening on :%s%s", port, path)
	return http.ListenAndServe(":"+port, hs)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	header := http.Header{}
	header.Add(connIdKey, id)

	wsc, err := s.ws.Upgrade(w, r, header)
	if err != nil {
		log.Println("websocket upgrade error ", err)
		return
	}
	if s.options.ReadLimit > 0 {
		wsc.SetReadLimit(s.options.ReadLimit)
	}

	if !s.add(id, wsc) {
		wsc.Close()
		return
	}
	defer s.remove(id)

	entry := log.WithFields(log.Fields{
		"Name": "Echo",
		"ID":   id,
		"Peer": r.RemoteAddr,
	})
	entry.Debug("accept: ", r.Header)
	s.serve(wsc, entry)
}

func (s *Server) serve(wsc *websocket.Conn, entry *log.Entry) {
	defer wsc.Close()
	for {
		typ, data, err := wsc.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				entry.Debug("closed by peer")
			} else {
				entry.Debug("read err: ", err)
			}
			return
		}
		if err := wsc.WriteMessage(typ, data); err != nil {
			entry.Debug("write err: ", err)
			return
		}
	}
}

func (s *Server) add(id string, c *websocket.Conn) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return false
	}
	s.conns[id] = c
	return true
}

func (s *Server) remove(id string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.conns, id)
}

// Conns returns the number of connections being served.
func (s *Server) Conns() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.conns)
}

// Close drops every connection being served and refuses new ones.
func (s *Server) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.closed = true
	for _, c := range s.conns {
		c.Close()
	}
	return nil
}
