package transport

import "errors"

var (
	ErrNoSubscriber    = errors.New("transport: no subscriber for channel")
	ErrChannelRequired = errors.New("transport: channel required")
	ErrNilHandler      = errors.New("transport: nil handler")
)

// ResponseHandler turns a raw response into the caller's result.
type ResponseHandler func(raw []byte) (any, error)

// Endpoint serves one channel: it receives a message and returns the reply
// bytes, or nil for one-way traffic.
type Endpoint func(msg []byte) ([]byte, error)

// Messenger is the messaging collaborator: one-way publish plus a
// synchronous request/response round trip whose raw reply is passed
// through the supplied handler.
type Messenger interface {
	Publish(channel string, message []byte) error
	RequestResponse(channel string, message []byte, handle ResponseHandler) (any, error)
}

// Subscriber registers channel endpoints on the serving side.
type Subscriber interface {
	Subscribe(channel string, endpoint Endpoint) error
}

// CommandChannel is where a worker listens for compiled commands.
func CommandChannel(workerID string) string {
	return "cmd." + workerID
}

// ObjectChannel is where a worker listens for pushed object payloads.
func ObjectChannel(workerID string) string {
	return "obj." + workerID
}

// ObjectRequestChannel is where a worker serves object retrieval requests.
func ObjectRequestChannel(workerID string) string {
	return "objreq." + workerID
}
