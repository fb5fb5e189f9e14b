package dispatch

import (
	"errors"
	"testing"

	"github.com/jvmancuso/gridmesh/internal/command"
	"github.com/jvmancuso/gridmesh/internal/logging"
	"github.com/jvmancuso/gridmesh/internal/registry"
	"github.com/jvmancuso/gridmesh/internal/tensor"
	"github.com/jvmancuso/gridmesh/internal/testutil/testlog"
	"github.com/jvmancuso/gridmesh/internal/transport"
	"github.com/jvmancuso/gridmesh/internal/wire"
)

// fakeMessenger records every exchange and replies from a canned response.
type fakeMessenger struct {
	channels  []string
	published [][]byte
	response  wire.Response
}

func (f *fakeMessenger) Publish(channel string, message []byte) error {
	f.channels = append(f.channels, channel)
	f.published = append(f.published, message)
	return nil
}

func (f *fakeMessenger) RequestResponse(channel string, message []byte, handle transport.ResponseHandler) (any, error) {
	f.channels = append(f.channels, channel)
	f.published = append(f.published, message)
	raw, err := wire.EncodeResponse(f.response)
	if err != nil {
		return nil, err
	}
	return handle(raw)
}

func newDispatcher(t *testing.T, msngr transport.Messenger) (*Dispatcher, *registry.Registry) {
	t.Helper()
	reg, err := registry.New("alpha")
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return New(reg, msngr, logging.Logger("dispatch-test")), reg
}

func addKernel(t *testing.T) command.Kernel {
	t.Helper()
	return func(args []any, kwargs map[string]any) (any, error) {
		a := args[0].(*tensor.Tensor)
		b := args[1].(*tensor.Tensor)
		return tensor.Add(a, b)
	}
}

func TestDispatchLocalRegistersResult(t *testing.T) {
	testlog.Start(t)
	msngr := &fakeMessenger{}
	d, reg := newDispatcher(t, msngr)

	a, _ := tensor.New([]int{2}, []float64{1, 2})
	b, _ := tensor.New([]int{2}, []float64{3, 4})
	a, _ = reg.Register(a)
	b, _ = reg.Register(b)

	result, err := d.Dispatch(command.Call{
		Op:     "add",
		Args:   []any{a, b},
		Kernel: addKernel(t),
	}, false)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	out, ok := result.(*tensor.Tensor)
	if !ok {
		t.Fatalf("expected tensor result, got %T", result)
	}
	if out.ID == "" || out.IsPointer {
		t.Fatalf("local result should be a fresh non-pointer registration: %+v", out)
	}
	want, _ := tensor.New([]int{2}, []float64{4, 6})
	if !out.Equal(want) {
		t.Fatalf("unexpected sum: %v", out)
	}
	if len(msngr.channels) != 0 {
		t.Fatalf("local dispatch must not touch the messenger: %v", msngr.channels)
	}
}

func TestDispatchRemoteAssemblesPointer(t *testing.T) {
	testlog.Start(t)
	msngr := &fakeMessenger{response: wire.Response{
		Kind:         wire.RemoteObjectResult,
		Registration: &wire.Registration{ID: "obj.result", Owners: []string{"beta"}, IsPointer: true},
		ResultType:   tensor.TypeName,
	}}
	d, reg := newDispatcher(t, msngr)

	register(t, reg, "obj.a", true, "beta")
	register(t, reg, "obj.b", true, "beta")
	a, _ := reg.Lookup("obj.a")
	b, _ := reg.Lookup("obj.b")

	result, err := d.Dispatch(command.Call{Op: "add", Args: []any{a, b}}, false)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	out, ok := result.(*tensor.Tensor)
	if !ok {
		t.Fatalf("expected pointer result, got %T", result)
	}
	if out.ID != "obj.result" || !out.IsPointer || out.Owners[0] != "beta" {
		t.Fatalf("unexpected pointer registration: %+v", out)
	}
	if out.Elems() != 0 {
		t.Fatalf("pointer stand-in should be zero-sized, got %d elems", out.Elems())
	}
	if back, ok := reg.Lookup("obj.result"); !ok || back != out {
		t.Fatalf("pointer should be registered locally")
	}
	if len(msngr.channels) != 1 || msngr.channels[0] != "cmd.beta" {
		t.Fatalf("command should target the owner's channel: %v", msngr.channels)
	}

	cmd, err := wire.DecodeCommand(msngr.published[0])
	if err != nil {
		t.Fatalf("forwarded payload should be a wire command: %v", err)
	}
	if cmd.Name != "add" || len(cmd.Refs()) != 2 {
		t.Fatalf("unexpected forwarded command: %+v", cmd)
	}
}

func TestDispatchRemoteScalar(t *testing.T) {
	testlog.Start(t)
	msngr := &fakeMessenger{response: wire.Response{Kind: wire.ScalarResult, Numeric: 10}}
	d, reg := newDispatcher(t, msngr)

	register(t, reg, "obj.a", true, "beta")
	a, _ := reg.Lookup("obj.a")

	result, err := d.Dispatch(command.Call{Op: "sum", Args: []any{a}}, false)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if result != 10.0 {
		t.Fatalf("expected scalar 10, got %v", result)
	}
}

func TestDispatchRemoteFailurePropagates(t *testing.T) {
	testlog.Start(t)
	msngr := &fakeMessenger{response: wire.Response{Kind: wire.ErrorResult, Message: "kernel exploded"}}
	d, reg := newDispatcher(t, msngr)

	register(t, reg, "obj.a", true, "beta")
	a, _ := reg.Lookup("obj.a")

	_, err := d.Dispatch(command.Call{Op: "neg", Args: []any{a}}, false)
	if !errors.Is(err, wire.ErrRemoteFailure) {
		t.Fatalf("expected ErrRemoteFailure, got %v", err)
	}
}

func TestDispatchUnknownResultType(t *testing.T) {
	testlog.Start(t)
	msngr := &fakeMessenger{response: wire.Response{
		Kind:         wire.RemoteObjectResult,
		Registration: &wire.Registration{ID: "obj.result", Owners: []string{"beta"}},
		ResultType:   "graph",
	}}
	d, reg := newDispatcher(t, msngr)

	register(t, reg, "obj.a", true, "beta")
	a, _ := reg.Lookup("obj.a")

	_, err := d.Dispatch(command.Call{Op: "neg", Args: []any{a}}, false)
	if !errors.Is(err, ErrUnknownResultType) {
		t.Fatalf("expected ErrUnknownResultType, got %v", err)
	}
}

func TestDispatchLocalKernelError(t *testing.T) {
	testlog.Start(t)
	d, reg := newDispatcher(t, &fakeMessenger{})

	a, _ := tensor.New([]int{2}, []float64{1, 2})
	b, _ := tensor.New([]int{3}, []float64{1, 2, 3})
	a, _ = reg.Register(a)
	b, _ = reg.Register(b)

	_, err := d.Dispatch(command.Call{Op: "add", Args: []any{a, b}, Kernel: addKernel(t)}, false)
	if !errors.Is(err, tensor.ErrShapeMismatch) {
		t.Fatalf("local kernel failures should surface unchanged, got %v", err)
	}
}
