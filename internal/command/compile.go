package command

import "fmt"

// Compile turns one captured call into its canonical command record.
// Pure and deterministic: identical (op, args, kwargs) inputs produce
// structurally equal commands. When hasSelf, the first positional argument
// becomes the self operand and the rest keep their order.
func Compile(call Call, hasSelf bool) (Command, error) {
	args := call.Args
	cmd := Command{
		HasSelf:    hasSelf,
		Name:       call.Op,
		Kwargs:     map[string]Operand{},
		KwargTypes: map[string]string{},
	}

	if hasSelf {
		if len(args) == 0 {
			return Command{}, fmt.Errorf("%w: method call %q without receiver", ErrInvalidCommand, call.Op)
		}
		self, err := FromValue(args[0])
		if err != nil {
			return Command{}, fmt.Errorf("compiling self for %q: %w", call.Op, err)
		}
		cmd.Self = &self
		args = args[1:]
	}

	cmd.Args = make([]Operand, 0, len(args))
	cmd.ArgTypes = make([]string, 0, len(args))
	for i, arg := range args {
		op, err := FromValue(arg)
		if err != nil {
			return Command{}, fmt.Errorf("compiling arg %d for %q: %w", i, call.Op, err)
		}
		tag, err := TypeTag(arg)
		if err != nil {
			return Command{}, fmt.Errorf("compiling arg %d for %q: %w", i, call.Op, err)
		}
		cmd.Args = append(cmd.Args, op)
		cmd.ArgTypes = append(cmd.ArgTypes, tag)
	}

	for name, value := range call.Kwargs {
		op, err := FromValue(value)
		if err != nil {
			return Command{}, fmt.Errorf("compiling kwarg %q for %q: %w", name, call.Op, err)
		}
		tag, err := TypeTag(value)
		if err != nil {
			return Command{}, fmt.Errorf("compiling kwarg %q for %q: %w", name, call.Op, err)
		}
		cmd.Kwargs[name] = op
		cmd.KwargTypes[name] = tag
	}

	if err := cmd.Validate(); err != nil {
		return Command{}, err
	}
	return cmd, nil
}
