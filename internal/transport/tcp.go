package transport

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/jvmancuso/gridmesh/internal/wire"
)

var (
	ErrUnknownWorker = errors.New("transport: no address for worker")
	ErrBadChannel    = errors.New("transport: channel missing worker suffix")
)

// Client is a TCP messenger. Channels resolve to worker addresses through
// a static directory; every call is one synchronous dial/exchange.
type Client struct {
	mu        sync.RWMutex
	directory map[string]string
	limits    wire.Limits
	seq       atomic.Uint64
}

// NewClient creates a TCP messenger over a workerID -> address directory.
func NewClient(directory map[string]string) *Client {
	dir := make(map[string]string, len(directory))
	for id, addr := range directory {
		dir[strings.TrimSpace(id)] = strings.TrimSpace(addr)
	}
	return &Client{directory: dir, limits: wire.DefaultLimits()}
}

// AddWorker binds one worker id to a dialable address.
func (c *Client) AddWorker(workerID, addr string) {
	c.mu.Lock()
	c.directory[strings.TrimSpace(workerID)] = strings.TrimSpace(addr)
	c.mu.Unlock()
}

// Publish sends one one-way framed message to the channel's worker.
func (c *Client) Publish(channel string, message []byte) error {
	_, err := c.exchange(channel, message, wire.MsgPublish)
	return err
}

// RequestResponse performs one synchronous round trip and passes the raw
// reply through handle.
func (c *Client) RequestResponse(channel string, message []byte, handle ResponseHandler) (any, error) {
	if handle == nil {
		return nil, ErrNilHandler
	}
	reply, err := c.exchange(channel, message, wire.MsgRequest)
	if err != nil {
		return nil, err
	}
	return handle(reply)
}

func (c *Client) exchange(channel string, message []byte, msgType uint32) ([]byte, error) {
	addr, err := c.resolve(channel)
	if err != nil {
		return nil, err
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dialing %s: %w", addr, err)
	}
	defer conn.Close()

	err = wire.WriteFrame(conn, wire.Frame{
		Header: wire.Header{
			MessageID:   c.seq.Add(1),
			MessageType: msgType,
		},
		Channel: channel,
		Payload: message,
	}, c.limits)
	if err != nil {
		return nil, err
	}
	if msgType == wire.MsgPublish {
		return nil, nil
	}

	reply, err := wire.ReadFrame(conn, c.limits)
	if err != nil {
		return nil, err
	}
	if reply.Header.Flags&wire.FlagIsError != 0 {
		return nil, fmt.Errorf("transport: remote error on %q: %s", channel, string(reply.Payload))
	}
	return reply.Payload, nil
}

func (c *Client) resolve(channel string) (string, error) {
	worker, err := workerFromChannel(channel)
	if err != nil {
		return "", err
	}
	c.mu.RLock()
	addr, ok := c.directory[worker]
	c.mu.RUnlock()
	if !ok || addr == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownWorker, worker)
	}
	return addr, nil
}

func workerFromChannel(channel string) (string, error) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return "", ErrChannelRequired
	}
	_, worker, found := strings.Cut(channel, ".")
	if !found || strings.TrimSpace(worker) == "" {
		return "", fmt.Errorf("%w: %q", ErrBadChannel, channel)
	}
	return worker, nil
}

// Server accepts framed messages and routes them to channel endpoints.
type Server struct {
	mu        sync.RWMutex
	endpoints map[string]Endpoint
	limits    wire.Limits
	log       zerolog.Logger
}

// NewServer creates an empty TCP endpoint router.
func NewServer(log zerolog.Logger) *Server {
	return &Server{
		endpoints: make(map[string]Endpoint),
		limits:    wire.DefaultLimits(),
		log:       log,
	}
}

// Subscribe binds one endpoint to a channel, replacing any previous one.
func (s *Server) Subscribe(channel string, endpoint Endpoint) error {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return ErrChannelRequired
	}
	if endpoint == nil {
		return ErrNilHandler
	}
	s.mu.Lock()
	s.endpoints[channel] = endpoint
	s.mu.Unlock()
	return nil
}

// Serve accepts connections until the listener closes. Each connection
// carries exactly one exchange.
func (s *Server) Serve(l net.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	f, err := wire.ReadFrame(conn, s.limits)
	if err != nil {
		s.log.Warn().Err(err).Msg("dropping malformed frame")
		return
	}

	s.mu.RLock()
	endpoint, ok := s.endpoints[f.Channel]
	s.mu.RUnlock()
	if !ok {
		s.replyError(conn, f, fmt.Errorf("%w: %q", ErrNoSubscriber, f.Channel))
		return
	}

	reply, err := endpoint(f.Payload)
	if f.Header.MessageType == wire.MsgPublish {
		if err != nil {
			s.log.Warn().Err(err).Str("channel", f.Channel).Msg("publish endpoint failed")
		}
		return
	}
	if err != nil {
		s.replyError(conn, f, err)
		return
	}

	err = wire.WriteFrame(conn, wire.Frame{
		Header: wire.Header{
			MessageID:   f.Header.MessageID,
			MessageType: wire.MsgResponse,
		},
		Channel: f.Channel,
		Payload: reply,
	}, s.limits)
	if err != nil {
		s.log.Warn().Err(err).Str("channel", f.Channel).Msg("writing response failed")
	}
}

func (s *Server) replyError(conn net.Conn, f wire.Frame, cause error) {
	if f.Header.MessageType == wire.MsgPublish {
		return
	}
	err := wire.WriteFrame(conn, wire.Frame{
		Header: wire.Header{
			MessageID:   f.Header.MessageID,
			MessageType: wire.MsgResponse,
			Flags:       wire.FlagIsError,
		},
		Channel: f.Channel,
		Payload: []byte(cause.Error()),
	}, s.limits)
	if err != nil {
		s.log.Warn().Err(err).Str("channel", f.Channel).Msg("writing error response failed")
	}
}
