package builtin

import (
	"log/slog"

	"github.com/df-mc/dragonfly/server/cmd"
)

// Deps holds what the built-in commands operate on.
type Deps struct {
	Server      serverAdapter
	Spy         spyService
	Permissions capabilityChecker
	Store       capabilityStore
	Names       nameResolver
	Log         *slog.Logger
}

// Register registers the built-in command set.
func Register(deps Deps) {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	cmd.Register(newListCommand(deps.Server, deps.Spy, deps.Names))
	cmd.Register(newStopCommand(deps.Server, deps.Log))
	cmd.Register(newSpyAllCommand(deps.Spy, deps.Permissions, deps.Log))
	cmd.Register(newSpyPermCommand(deps.Store))
}
