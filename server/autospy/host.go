package autospy

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

const (
	// CapabilitySpy allows a player to start spectate rotation. Players with
	// this capability are never chosen as a target.
	CapabilitySpy = "autospy.spyall"
	// CapabilityExempt marks a player as never selectable as a target.
	CapabilityExempt = "autospy.exempt"
)

// Population exposes the players currently connected to the server.
type Population interface {
	// Online returns the UUIDs of all connected players in a stable order.
	// The returned slice is owned by the caller.
	Online() []uuid.UUID
	// Connected reports if the player with the UUID is still online.
	Connected(id uuid.UUID) bool
	// Name returns the display name of an online player.
	Name(id uuid.UUID) (string, bool)
}

// Permissions answers capability checks for online players.
type Permissions interface {
	Has(id uuid.UUID, capability string) bool
}

// Location is a position in a named dimension.
type Location struct {
	Pos       mgl64.Vec3
	Dimension string
}

// Views controls the game mode and viewpoint of players. Implementations may
// block until the server has applied the change.
type Views interface {
	// Spectating reports if the player is currently in spectator mode.
	Spectating(id uuid.UUID) (bool, error)
	// SetSpectator switches the player to spectator mode.
	SetSpectator(id uuid.UUID) error
	// ClearTarget detaches the player's camera from whoever it follows.
	ClearTarget(id uuid.UUID) error
	// Location returns where the player currently is.
	Location(id uuid.UUID) (Location, error)
	// Teleport moves the player to loc.
	Teleport(id uuid.UUID, loc Location) error
	// SetTarget makes the player spectate target.
	SetTarget(id, target uuid.UUID) error
}

// Notifier delivers messages to players.
type Notifier interface {
	// Message sends a chat message.
	Message(id uuid.UUID, msg string)
	// ActionBar shows a short lived message above the hotbar.
	ActionBar(id uuid.UUID, msg string)
}
