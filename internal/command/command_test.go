package command

import (
	"errors"
	"reflect"
	"testing"

	"github.com/jvmancuso/gridmesh/internal/tensor"
)

func trackedTensor(t *testing.T, id string, owners ...string) *tensor.Tensor {
	t.Helper()
	tr, err := tensor.New([]int{2}, []float64{1, 2})
	if err != nil {
		t.Fatalf("new tensor: %v", err)
	}
	tr.ID = id
	tr.Owners = owners
	return tr
}

func TestCompileDeterministic(t *testing.T) {
	a := trackedTensor(t, "obj.a", "alpha")
	b := trackedTensor(t, "obj.b", "alpha")
	call := Call{
		Op:     "add",
		Args:   []any{a, b},
		Kwargs: map[string]any{"alpha_scale": 2.0, "verbose": true},
	}

	first, err := Compile(call, false)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	second, err := Compile(call, false)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical calls should compile to structurally equal commands:\n%+v\n%+v", first, second)
	}
}

func TestCompileHasSelf(t *testing.T) {
	self := trackedTensor(t, "obj.self", "alpha")
	other := trackedTensor(t, "obj.other", "alpha")

	cmd, err := Compile(Call{Op: "add", Args: []any{self, other, 3.5}}, true)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if !cmd.HasSelf || cmd.Self == nil {
		t.Fatalf("expected self operand: %+v", cmd)
	}
	if cmd.Self.Kind != KindRef || cmd.Self.Ref.ID != "obj.self" {
		t.Fatalf("self should be a reference to the receiver: %+v", cmd.Self)
	}
	if len(cmd.Args) != 2 {
		t.Fatalf("remaining positionals should keep order, got %d args", len(cmd.Args))
	}
	if cmd.Args[0].Ref.ID != "obj.other" || cmd.Args[1].Number != 3.5 {
		t.Fatalf("unexpected args: %+v", cmd.Args)
	}
	if !reflect.DeepEqual(cmd.ArgTypes, []string{"tensor", "float64"}) {
		t.Fatalf("unexpected arg types: %v", cmd.ArgTypes)
	}
}

func TestCompileMethodWithoutReceiver(t *testing.T) {
	if _, err := Compile(Call{Op: "add"}, true); !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("expected ErrInvalidCommand, got %v", err)
	}
}

func TestCompileRecordsKwargTypesIndependently(t *testing.T) {
	tr := trackedTensor(t, "obj.t", "alpha")
	cmd, err := Compile(Call{
		Op:     "scale",
		Args:   []any{tr},
		Kwargs: map[string]any{"factor": 2.0, "label": "x"},
	}, false)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if cmd.KwargTypes["factor"] != "float64" || cmd.KwargTypes["label"] != "string" {
		t.Fatalf("unexpected kwarg types: %v", cmd.KwargTypes)
	}
	if len(cmd.ArgTypes) != 1 || cmd.ArgTypes[0] != "tensor" {
		t.Fatalf("arg types should not mix with kwarg types: %v", cmd.ArgTypes)
	}
}

func TestCompileUnsupportedOperand(t *testing.T) {
	_, err := Compile(Call{Op: "add", Args: []any{struct{}{}}}, false)
	if !errors.Is(err, ErrUnsupportedOperand) {
		t.Fatalf("expected ErrUnsupportedOperand, got %v", err)
	}
}

func TestRefsCollectsSelfArgsAndKwargs(t *testing.T) {
	self := trackedTensor(t, "obj.self", "alpha")
	arg := trackedTensor(t, "obj.arg", "beta")
	kw := trackedTensor(t, "obj.kw", "gamma")

	cmd, err := Compile(Call{
		Op:     "add",
		Args:   []any{self, arg, 1.0},
		Kwargs: map[string]any{"other": kw},
	}, true)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	refs := cmd.Refs()
	if len(refs) != 3 {
		t.Fatalf("expected 3 refs, got %d: %+v", len(refs), refs)
	}
	ids := map[string]bool{}
	for _, ref := range refs {
		ids[ref.ID] = true
	}
	for _, want := range []string{"obj.self", "obj.arg", "obj.kw"} {
		if !ids[want] {
			t.Fatalf("missing ref %q in %v", want, refs)
		}
	}
}

func TestOperandCarriesReferenceNotPayload(t *testing.T) {
	tr := trackedTensor(t, "obj.big", "alpha", "beta")
	op, err := FromValue(tr)
	if err != nil {
		t.Fatalf("from value failed: %v", err)
	}
	if op.Kind != KindRef || op.Ref == nil {
		t.Fatalf("tensor operand should be a reference: %+v", op)
	}
	if op.Ref.ID != "obj.big" || len(op.Ref.Owners) != 2 {
		t.Fatalf("unexpected ref: %+v", op.Ref)
	}
	if len(op.Numbers) != 0 {
		t.Fatalf("reference operand must not carry payload: %+v", op)
	}
}

func TestValidate(t *testing.T) {
	if err := (Command{}).Validate(); !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("expected ErrInvalidCommand for missing name, got %v", err)
	}
	bad := Command{Name: "add", Args: []Operand{{Kind: KindNumber}}, ArgTypes: nil,
		Kwargs: map[string]Operand{}, KwargTypes: map[string]string{}}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("expected ErrInvalidCommand for arg/type mismatch, got %v", err)
	}
}
