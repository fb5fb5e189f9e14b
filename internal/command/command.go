package command

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidCommand = errors.New("command: invalid command")

// Kernel is the deferred execution target captured by an adapter facade.
// Args and kwargs arrive exactly as the caller supplied them.
type Kernel func(args []any, kwargs map[string]any) (any, error)

// Call is one intercepted invocation: captured, not yet executed.
type Call struct {
	Op     string
	Args   []any
	Kwargs map[string]any
	Kernel Kernel
}

// Command is the canonical serializable record of one intercepted call.
// It fully reconstructs the invocation and carries only plain values or
// tensor references, never live handles.
type Command struct {
	HasSelf    bool               `json:"has_self"`
	Self       *Operand           `json:"self,omitempty"`
	Name       string             `json:"command"`
	Args       []Operand          `json:"args"`
	Kwargs     map[string]Operand `json:"kwargs"`
	ArgTypes   []string           `json:"arg_types"`
	KwargTypes map[string]string  `json:"kwarg_types"`
}

// Validate enforces required command fields.
func (c Command) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: missing command name", ErrInvalidCommand)
	}
	if c.HasSelf && c.Self == nil {
		return fmt.Errorf("%w: has_self without self operand", ErrInvalidCommand)
	}
	if len(c.Args) != len(c.ArgTypes) {
		return fmt.Errorf("%w: %d args with %d arg_types", ErrInvalidCommand, len(c.Args), len(c.ArgTypes))
	}
	if len(c.Kwargs) != len(c.KwargTypes) {
		return fmt.Errorf("%w: %d kwargs with %d kwarg_types", ErrInvalidCommand, len(c.Kwargs), len(c.KwargTypes))
	}
	return nil
}

// Refs returns every tensor reference among self, args, and kwargs.
// Kwarg refs follow positional refs; their relative order is unspecified.
func (c Command) Refs() []Ref {
	out := make([]Ref, 0, len(c.Args)+len(c.Kwargs)+1)
	if c.HasSelf && c.Self != nil && c.Self.Kind == KindRef {
		out = append(out, *c.Self.Ref)
	}
	for _, arg := range c.Args {
		if arg.Kind == KindRef {
			out = append(out, *arg.Ref)
		}
	}
	for _, arg := range c.Kwargs {
		if arg.Kind == KindRef {
			out = append(out, *arg.Ref)
		}
	}
	return out
}
