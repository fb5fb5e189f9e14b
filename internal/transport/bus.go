package transport

import (
	"fmt"
	"strings"
	"sync"
)

// Bus is an in-process messenger for single-binary meshes and tests.
// Every subscribed channel maps to exactly one endpoint.
type Bus struct {
	mu        sync.RWMutex
	endpoints map[string]Endpoint
}

// NewBus creates an empty in-process bus.
func NewBus() *Bus {
	return &Bus{endpoints: make(map[string]Endpoint)}
}

// Subscribe binds one endpoint to a channel, replacing any previous one.
func (b *Bus) Subscribe(channel string, endpoint Endpoint) error {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return ErrChannelRequired
	}
	if endpoint == nil {
		return ErrNilHandler
	}
	b.mu.Lock()
	b.endpoints[channel] = endpoint
	b.mu.Unlock()
	return nil
}

// Publish delivers one message to the channel endpoint, discarding any reply.
func (b *Bus) Publish(channel string, message []byte) error {
	endpoint, err := b.endpoint(channel)
	if err != nil {
		return err
	}
	_, err = endpoint(message)
	return err
}

// RequestResponse delivers one message and passes the reply through handle.
func (b *Bus) RequestResponse(channel string, message []byte, handle ResponseHandler) (any, error) {
	if handle == nil {
		return nil, ErrNilHandler
	}
	endpoint, err := b.endpoint(channel)
	if err != nil {
		return nil, err
	}
	reply, err := endpoint(message)
	if err != nil {
		return nil, err
	}
	return handle(reply)
}

func (b *Bus) endpoint(channel string) (Endpoint, error) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return nil, ErrChannelRequired
	}
	b.mu.RLock()
	endpoint, ok := b.endpoints[channel]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSubscriber, channel)
	}
	return endpoint, nil
}
