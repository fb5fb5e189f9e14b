package transport

import (
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/jvmancuso/gridmesh/internal/logging"
	"github.com/jvmancuso/gridmesh/internal/testutil/testlog"
)

func startServer(t *testing.T) (*Server, string) {
	t.Helper()
	srv := NewServer(logging.Logger("transport-test"))

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	go func() { _ = srv.Serve(l) }()

	return srv, l.Addr().String()
}

func TestClientRequestResponse(t *testing.T) {
	testlog.Start(t)
	srv, addr := startServer(t)

	err := srv.Subscribe("cmd.beta", func(msg []byte) ([]byte, error) {
		return append([]byte("echo:"), msg...), nil
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	client := NewClient(map[string]string{"beta": addr})
	got, err := client.RequestResponse("cmd.beta", []byte("hello"), func(raw []byte) (any, error) {
		return string(raw), nil
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if got != "echo:hello" {
		t.Fatalf("unexpected reply: %v", got)
	}
}

func TestClientPublish(t *testing.T) {
	testlog.Start(t)
	srv, addr := startServer(t)

	received := make(chan []byte, 1)
	err := srv.Subscribe("obj.beta", func(msg []byte) ([]byte, error) {
		received <- append([]byte{}, msg...)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	client := NewClient(map[string]string{"beta": addr})
	if err := client.Publish("obj.beta", []byte("payload")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if got := <-received; string(got) != "payload" {
		t.Fatalf("endpoint did not receive the publish: %q", got)
	}
}

func TestClientSurfacesEndpointError(t *testing.T) {
	testlog.Start(t)
	srv, addr := startServer(t)

	boom := errors.New("kernel exploded")
	_ = srv.Subscribe("cmd.beta", func(msg []byte) ([]byte, error) {
		return nil, boom
	})

	client := NewClient(map[string]string{"beta": addr})
	_, err := client.RequestResponse("cmd.beta", nil, func(raw []byte) (any, error) { return raw, nil })
	if err == nil || !strings.Contains(err.Error(), "kernel exploded") {
		t.Fatalf("remote endpoint failure should surface, got %v", err)
	}
}

func TestClientUnknownChannelGetsErrorReply(t *testing.T) {
	testlog.Start(t)
	_, addr := startServer(t)

	client := NewClient(map[string]string{"beta": addr})
	_, err := client.RequestResponse("cmd.beta", nil, func(raw []byte) (any, error) { return raw, nil })
	if err == nil || !strings.Contains(err.Error(), "no subscriber") {
		t.Fatalf("expected no-subscriber error reply, got %v", err)
	}
}

func TestClientDirectoryResolution(t *testing.T) {
	testlog.Start(t)
	client := NewClient(nil)

	if _, err := client.RequestResponse("cmd.nobody", nil, func(raw []byte) (any, error) { return raw, nil }); !errors.Is(err, ErrUnknownWorker) {
		t.Fatalf("expected ErrUnknownWorker, got %v", err)
	}
	if err := client.Publish("noperiod", nil); !errors.Is(err, ErrBadChannel) {
		t.Fatalf("expected ErrBadChannel, got %v", err)
	}
	if err := client.Publish("  ", nil); !errors.Is(err, ErrChannelRequired) {
		t.Fatalf("expected ErrChannelRequired, got %v", err)
	}
}

func TestWorkerFromChannel(t *testing.T) {
	worker, err := workerFromChannel("objreq.gamma")
	if err != nil || worker != "gamma" {
		t.Fatalf("unexpected resolution: %q %v", worker, err)
	}
	if _, err := workerFromChannel("cmd."); !errors.Is(err, ErrBadChannel) {
		t.Fatalf("expected ErrBadChannel, got %v", err)
	}
}
