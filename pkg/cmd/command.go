// Package cmd provides a transport-agnostic command core: a command is something
// with a name, description, and Run(ctx, invocation). How it is registered and
// dispatched (slash interaction, prefixed text message, button) is defined by
// adapters that wrap this.
package cmd

import "context"

// Invocation carries the input any command runner can pass: arguments and an
// opaque payload. Adapters set Data to their caller context.
type Invocation struct {
	Args []string
	Data any
}

// Command is the universal contract: identity plus execution.
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}

// Aliased is implemented by commands reachable under extra names
// (e.g. "np" for "nowplaying").
type Aliased interface {
	Aliases() []string
}
