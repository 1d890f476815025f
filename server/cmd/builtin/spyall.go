package builtin

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/autospy/server/autospy"
	"github.com/dm-vev/autospy/server/internal/recovery"
	"github.com/google/uuid"
	"github.com/sandertv/gophertunnel/minecraft/text"
)

const playerOnlyMessage = "Sorry, but only a player can execute that command!"

// maxSeconds is the largest interval accepted by /spyall, in seconds.
const maxSeconds = int64(autospy.MaxInterval / time.Second)

type spyAllCommand struct {
	spy   spyService
	perms capabilityChecker
	log   *slog.Logger

	Seconds      cmd.Optional[int] `cmd:"seconds"`
	LoadInterval cmd.Optional[int] `cmd:"loadinterval"`
}

func newSpyAllCommand(spy spyService, perms capabilityChecker, log *slog.Logger) cmd.Command {
	return cmd.New(
		"spyall",
		"Toggles automatic spectating of every online player in turn.",
		[]string{"autospy", "spy"},
		spyAllCommand{spy: spy, perms: perms, log: log},
	)
}

func (c spyAllCommand) Run(src cmd.Source, o *cmd.Output, _ *world.Tx) {
	p, ok := src.(*player.Player)
	if !ok {
		o.Error(text.Colourf("<red>%v</red>", playerOnlyMessage))
		return
	}
	seconds, hasSeconds := c.Seconds.Load()
	loadInterval, hasLoadInterval := c.LoadInterval.Load()
	opts, err := spyOptions(seconds, hasSeconds, loadInterval, hasLoadInterval)
	if err != nil {
		o.Error(err)
		return
	}
	// Toggle updates the player through its world, which is locked while
	// this command runs.
	go c.toggle(p.UUID(), p.Name(), opts)
}

func (c spyAllCommand) toggle(id uuid.UUID, name string, opts autospy.Options) {
	var started bool
	err := recovery.Call(func() {
		var err error
		started, err = c.spy.Toggle(id, opts)
		if err != nil {
			c.log.Warn("Could not toggle autospy.", "player", name, "error", err)
		}
	})
	if err != nil {
		c.log.Error("Autospy toggle panicked.", "player", name, "error", err)
		return
	}
	c.log.Debug("Toggled autospy.", "player", name, "started", started)
}

// Allow lets every non-player source run the command so that it receives the
// player-only message.
func (c spyAllCommand) Allow(src cmd.Source) bool {
	p, isPlayer := src.(*player.Player)
	if !isPlayer {
		return true
	}
	return c.allowPlayer(p.UUID())
}

func (c spyAllCommand) allowPlayer(id uuid.UUID) bool {
	return c.perms.Has(id, autospy.CapabilitySpy)
}

// spyOptions converts the optional command arguments to session options.
// Omitted arguments are left zero so the Manager defaults apply.
func spyOptions(seconds int, hasSeconds bool, loadInterval int, hasLoadInterval bool) (autospy.Options, error) {
	var opts autospy.Options
	if hasSeconds {
		if seconds <= 0 || int64(seconds) > maxSeconds {
			return opts, fmt.Errorf("seconds must be between 1 and %d, got %d", maxSeconds, seconds)
		}
		opts.Interval = time.Duration(seconds) * time.Second
	}
	if hasLoadInterval {
		if loadInterval <= 0 || loadInterval > autospy.MaxLoadTicks {
			return opts, fmt.Errorf("loadinterval must be between 1 and %d, got %d", autospy.MaxLoadTicks, loadInterval)
		}
		opts.LoadTicks = loadInterval
	}
	return opts, nil
}
