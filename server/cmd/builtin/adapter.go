package builtin

import (
	"iter"

	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/autospy/server/autospy"
	"github.com/google/uuid"
)

type serverAdapter interface {
	Players(tx *world.Tx) iter.Seq[*player.Player]
	MaxPlayerCount() int
	Close() error
}

// spyService is the part of *autospy.Manager used by commands.
type spyService interface {
	Toggle(r uuid.UUID, opts autospy.Options) (started bool, err error)
	Active(r uuid.UUID) bool
	Target(r uuid.UUID) (uuid.UUID, bool)
	Sessions() int
}

type capabilityChecker interface {
	Has(id uuid.UUID, capability string) bool
}

type capabilityStore interface {
	Grant(name, capability string) (bool, error)
	Revoke(name, capability string) (bool, error)
	Holders(capability string) []string
	Capabilities() []string
}

type nameResolver interface {
	Name(id uuid.UUID) (string, bool)
}
