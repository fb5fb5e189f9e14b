package registry

import (
	"errors"
	"testing"

	"github.com/jvmancuso/gridmesh/internal/tensor"
	"github.com/jvmancuso/gridmesh/internal/testutil/testlog"
)

func TestNewRequiresWorkerID(t *testing.T) {
	testlog.Start(t)
	if _, err := New("  "); !errors.Is(err, ErrWorkerIDMissing) {
		t.Fatalf("expected ErrWorkerIDMissing, got %v", err)
	}
}

func TestRegisterFreshLocal(t *testing.T) {
	testlog.Start(t)
	reg, err := New("alpha")
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	tr, _ := tensor.New([]int{2}, []float64{1, 2})
	got, err := reg.Register(tr)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if got.ID == "" {
		t.Fatalf("fresh registration should assign an id")
	}
	if got.IsPointer {
		t.Fatalf("fresh registration should not be a pointer")
	}
	if len(got.Owners) != 1 || got.Owners[0] != "alpha" {
		t.Fatalf("fresh registration owners should be {self}, got %v", got.Owners)
	}
	if got.Local() != "alpha" {
		t.Fatalf("registration should stamp local worker, got %q", got.Local())
	}
	if !got.OwnedLocally() {
		t.Fatalf("fresh local object should be owned locally")
	}

	back, ok := reg.Lookup(got.ID)
	if !ok || back != got {
		t.Fatalf("lookup should return the registered handle")
	}
}

func TestRegisterWithOptions(t *testing.T) {
	testlog.Start(t)
	reg, _ := New("alpha")

	tr := tensor.Placeholder()
	got, err := reg.Register(tr,
		WithID("obj.5"),
		WithOwners([]string{"beta", "gamma"}),
		WithPointer(true),
	)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if got.ID != "obj.5" {
		t.Fatalf("unexpected id: %q", got.ID)
	}
	if !got.IsPointer {
		t.Fatalf("expected pointer registration")
	}
	if len(got.Owners) != 2 || got.Owners[0] != "beta" || got.Owners[1] != "gamma" {
		t.Fatalf("unexpected owners: %v", got.Owners)
	}
	if got.OwnedLocally() {
		t.Fatalf("remote pointer should not be owned locally")
	}
}

func TestReRegisterKeepsIDAndReplacesEntry(t *testing.T) {
	testlog.Start(t)
	reg, _ := New("alpha")

	tr, _ := tensor.New([]int{1}, []float64{7})
	first, _ := reg.Register(tr)
	id := first.ID

	_, err := reg.Register(first, WithID(id), WithOwners([]string{"beta"}), WithPointer(true))
	if err != nil {
		t.Fatalf("re-register failed: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("re-registering the same id should not grow the registry: %d", reg.Len())
	}
	back, ok := reg.Lookup(id)
	if !ok || !back.IsPointer || back.Owners[0] != "beta" {
		t.Fatalf("re-registration should update metadata: %+v", back)
	}
}

func TestRegisterNil(t *testing.T) {
	testlog.Start(t)
	reg, _ := New("alpha")
	if _, err := reg.Register(nil); !errors.Is(err, ErrNilObject) {
		t.Fatalf("expected ErrNilObject, got %v", err)
	}
}
