package hook

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jvmancuso/gridmesh/internal/command"
)

var (
	ErrUnknownTrackedType = errors.New("hook: unknown tracked type")
	ErrNilKernel          = errors.New("hook: nil kernel")
)

// ReservedPrefix marks names already claimed by a previous hook pass.
// Originals are stashed under this prefix; prefixed names are never
// hooked again.
const ReservedPrefix = "orig."

// blacklist holds operation names excluded from generic hooking because
// they recurse through the interception layer or control serialization.
var blacklist = map[string]bool{
	"clone":       true,
	"equal":       true,
	"string":      true,
	"shape":       true,
	"elems":       true,
	"serialize":   true,
	"deserialize": true,
	"id":          true,
}

// universalBase holds attribute names every type carries; they are wired
// individually, never through generic enumeration.
var universalBase = map[string]bool{
	"init": true,
	"new":  true,
	"repr": true,
	"hash": true,
	"type": true,
}

// Facade is an installed wrapper with the original calling convention.
// It defers execution: the call is captured, not run.
type Facade func(args []any, kwargs map[string]any) command.Call

// Table is the adapter table built once at startup. Each hooked operation
// name maps to a deferring facade; originals stay reachable under the
// reserved prefix for in-process execution.
type Table struct {
	functions map[string]Facade
	methods   map[string]Facade

	// Originals stashed under the reserved prefix, per call convention.
	fnOriginals     map[string]command.Kernel
	methodOriginals map[string]command.Kernel
}

// Build constructs the adapter table from static per-type catalogs.
// A catalog naming a type outside tracked is fatal: no partial install.
func Build(catalogs []Catalog, tracked map[string]bool) (*Table, error) {
	t := &Table{
		functions:       make(map[string]Facade),
		methods:         make(map[string]Facade),
		fnOriginals:     make(map[string]command.Kernel),
		methodOriginals: make(map[string]command.Kernel),
	}
	for _, cat := range catalogs {
		if !tracked[cat.Type] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTrackedType, cat.Type)
		}
		for _, name := range Enumerate(cat.Functions, t.fnOriginals) {
			spec, ok := cat.function(name)
			if !ok {
				continue
			}
			if err := hookInto(t.functions, t.fnOriginals, spec); err != nil {
				return nil, err
			}
		}
		for _, name := range Enumerate(cat.Methods, t.methodOriginals) {
			spec, ok := cat.method(name)
			if !ok {
				continue
			}
			if err := hookInto(t.methods, t.methodOriginals, spec); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

// Enumerate yields hookable names from a static operation list, excluding
// the blacklist, universal-base attributes, reserved-prefix names, and
// anything a previous pass already hooked.
func Enumerate(specs []OpSpec, hooked map[string]command.Kernel) []string {
	out := make([]string, 0, len(specs))
	seen := map[string]bool{}
	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" || seen[name] {
			continue
		}
		if blacklist[name] || universalBase[name] {
			continue
		}
		if strings.HasPrefix(name, ReservedPrefix) {
			continue
		}
		if _, done := hooked[ReservedPrefix+name]; done {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// hookInto stashes the original kernel under the reserved prefix and
// installs a facade with an identical calling convention. Hooking a name
// twice is a no-op.
func hookInto(into map[string]Facade, originals map[string]command.Kernel, spec OpSpec) error {
	if spec.Kernel == nil {
		return fmt.Errorf("%w: %q", ErrNilKernel, spec.Name)
	}
	key := ReservedPrefix + spec.Name
	if _, ok := originals[key]; ok {
		return nil
	}
	originals[key] = spec.Kernel

	name := spec.Name
	kernel := spec.Kernel
	into[name] = func(args []any, kwargs map[string]any) command.Call {
		return command.Call{Op: name, Args: args, Kwargs: kwargs, Kernel: kernel}
	}
	return nil
}

// Function returns the installed facade for a free function name.
func (t *Table) Function(name string) (Facade, bool) {
	f, ok := t.functions[name]
	return f, ok
}

// Method returns the installed facade for an instance method name.
func (t *Table) Method(name string) (Facade, bool) {
	f, ok := t.methods[name]
	return f, ok
}

// Original returns the stashed kernel for a hooked name. Used by the
// worker service to execute received commands in-process.
func (t *Table) Original(name string, isMethod bool) (command.Kernel, bool) {
	originals := t.fnOriginals
	if isMethod {
		originals = t.methodOriginals
	}
	k, ok := originals[ReservedPrefix+name]
	return k, ok
}

// Size returns the number of installed facades.
func (t *Table) Size() int {
	return len(t.functions) + len(t.methods)
}
