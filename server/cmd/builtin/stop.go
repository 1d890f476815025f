package builtin

import (
	"log/slog"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/world"
)

type stopCommand struct {
	srv serverAdapter
	log *slog.Logger
}

func newStopCommand(srv serverAdapter, log *slog.Logger) cmd.Command {
	return cmd.New("stop", "Stops the server.", nil, stopCommand{srv: srv, log: log})
}

func (s stopCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	o.Print("Stopping server...")
	// Closing the server waits for the world this command runs in.
	go func() {
		if err := s.srv.Close(); err != nil {
			s.log.Error("Stop server.", "error", err)
		}
	}()
}

func (stopCommand) Allow(src cmd.Source) bool {
	return consoleOnly(src)
}
