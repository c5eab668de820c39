package cmd

// Middleware wraps a command (e.g. logging, permission check).
type Middleware func(Command) Command

// Apply applies middlewares so that the first in the list is the outermost.
func Apply(c Command, mws ...Middleware) Command {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}
