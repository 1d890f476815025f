// Package host connects the autospy scheduler to a Dragonfly server. It
// provides the population, permission, view and notification collaborators a
// Manager needs, and the player handler that ends sessions on quit.
package host

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/autospy/server/autospy"
	"github.com/dm-vev/autospy/server/internal/txguard"
	"github.com/dm-vev/autospy/server/permission"
	"github.com/google/uuid"
)

var (
	// ErrOffline is returned by view and notification operations on a player
	// that is no longer connected.
	ErrOffline = errors.New("player is not online")
	// ErrUnknownDimension is returned when teleporting to a dimension the
	// server has no world for.
	ErrUnknownDimension = errors.New("no world for dimension")
)

// Config holds the dependencies of a Host.
type Config struct {
	// Log is used to report failed view operations. If nil, slog.Default() is
	// used.
	Log *slog.Logger
	// Roster tracks connected players. If nil, an empty Roster is created.
	Roster *Roster
	// Permissions holds capability grants. A nil store grants nothing.
	Permissions *permission.Store
	// Worlds are the worlds players may be moved between, usually the
	// overworld, nether and end of the server.
	Worlds []*world.World
}

// Host implements autospy.Population, autospy.Permissions, autospy.Views and
// autospy.Notifier on top of Dragonfly players.
type Host struct {
	log    *slog.Logger
	roster *Roster
	perms  *permission.Store
	worlds map[string]*world.World
}

// New creates a Host using the Config.
func (conf Config) New() *Host {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Roster == nil {
		conf.Roster = NewRoster()
	}
	h := &Host{
		log:    conf.Log,
		roster: conf.Roster,
		perms:  conf.Permissions,
		worlds: make(map[string]*world.World, len(conf.Worlds)),
	}
	for _, w := range conf.Worlds {
		if w != nil {
			h.worlds[dimensionName(w.Dimension())] = w
		}
	}
	return h
}

// Roster returns the Roster backing the Host.
func (h *Host) Roster() *Roster { return h.roster }

// Online returns connected players in join order.
func (h *Host) Online() []uuid.UUID { return h.roster.Online() }

// Connected reports if the player is in the roster.
func (h *Host) Connected(id uuid.UUID) bool { return h.roster.Connected(id) }

func (h *Host) Name(id uuid.UUID) (string, bool) { return h.roster.Name(id) }

// Has reports if the connected player with the UUID passed holds capability.
// Grants are stored by name, so players that are not connected hold nothing.
func (h *Host) Has(id uuid.UUID, capability string) bool {
	name, ok := h.roster.Name(id)
	if !ok {
		return false
	}
	return h.perms.Has(name, capability)
}

// Spectating reports if the player is in spectator mode.
func (h *Host) Spectating(id uuid.UUID) (spectating bool, err error) {
	err = h.withPlayer(id, func(_ *world.Tx, p *player.Player) {
		spectating = p.GameMode() == world.GameModeSpectator
	})
	return spectating, err
}

// SetSpectator puts the player in spectator mode.
func (h *Host) SetSpectator(id uuid.UUID) error {
	return h.withPlayer(id, func(_ *world.Tx, p *player.Player) {
		p.SetGameMode(world.GameModeSpectator)
	})
}

// ClearTarget detaches the player from whoever it is following. Bedrock
// spectators are never attached to an entity, so this only checks that the
// player is still online.
func (h *Host) ClearTarget(id uuid.UUID) error {
	if !h.roster.Connected(id) {
		return ErrOffline
	}
	return nil
}

// Location returns the position and dimension of the player.
func (h *Host) Location(id uuid.UUID) (loc autospy.Location, err error) {
	err = h.withPlayer(id, func(tx *world.Tx, p *player.Player) {
		loc = autospy.Location{Pos: p.Position(), Dimension: dimensionName(tx.World().Dimension())}
	})
	return loc, err
}

// Teleport moves the player to loc, changing worlds if loc is in another
// dimension.
func (h *Host) Teleport(id uuid.UUID, loc autospy.Location) error {
	var (
		moved  bool
		handle *world.EntityHandle
	)
	err := h.withPlayer(id, func(tx *world.Tx, p *player.Player) {
		if dimensionName(tx.World().Dimension()) == loc.Dimension {
			p.Teleport(loc.Pos)
			moved = true
			return
		}
		if _, ok := h.worlds[loc.Dimension]; ok {
			handle = tx.RemoveEntity(p)
		}
	})
	if err != nil || moved {
		return err
	}
	dest, ok := h.worlds[loc.Dimension]
	if !ok || handle == nil {
		return fmt.Errorf("teleport to %v: %w", loc.Dimension, ErrUnknownDimension)
	}
	<-dest.Exec(func(tx *world.Tx) {
		if p, ok := tx.AddEntity(handle).(*player.Player); ok {
			p.Teleport(loc.Pos)
		}
	})
	return nil
}

// SetTarget makes the player follow target. Bedrock clients cannot attach
// their camera to another entity, so the player is moved to the target.
func (h *Host) SetTarget(id, target uuid.UUID) error {
	loc, err := h.Location(target)
	if err != nil {
		return fmt.Errorf("locate target: %w", err)
	}
	return h.Teleport(id, loc)
}

// Message sends a chat message to the player. Messages to players that went
// offline are dropped.
func (h *Host) Message(id uuid.UUID, msg string) {
	h.notify(id, func(p *player.Player) { p.Message(msg) })
}

// ActionBar shows msg above the hotbar of the player.
func (h *Host) ActionBar(id uuid.UUID, msg string) {
	h.notify(id, func(p *player.Player) { p.SendPopup(msg) })
}

func (h *Host) notify(id uuid.UUID, fn func(p *player.Player)) {
	if err := h.withPlayer(id, func(_ *world.Tx, p *player.Player) { fn(p) }); err != nil {
		h.log.Debug("Dropped notification.", "uuid", id, "error", err)
	}
}

// Forget drops the player from the Host. It is called when the player quits.
func (h *Host) Forget(id uuid.UUID) {
	h.roster.Remove(id)
}

func (h *Host) withPlayer(id uuid.UUID, fn func(tx *world.Tx, p *player.Player)) error {
	handle, ok := h.roster.handle(id)
	if !ok {
		return ErrOffline
	}
	executed := false
	var panicked bool
	ok = handle.ExecWorld(func(tx *world.Tx, e world.Entity) {
		p, isPlayer := e.(*player.Player)
		if !isPlayer {
			return
		}
		panicked = !txguard.Run(tx, func() { fn(tx, p) })
		executed = true
	})
	if panicked {
		h.log.Debug("Player transaction closed during view update.", "uuid", id)
		return ErrOffline
	}
	if !ok || !executed {
		return ErrOffline
	}
	return nil
}

func dimensionName(d world.Dimension) string {
	switch d {
	case world.Overworld:
		return "overworld"
	case world.Nether:
		return "nether"
	case world.End:
		return "end"
	}
	return fmt.Sprint(d)
}

var (
	_ autospy.Population  = (*Host)(nil)
	_ autospy.Permissions = (*Host)(nil)
	_ autospy.Views       = (*Host)(nil)
	_ autospy.Notifier    = (*Host)(nil)
)
