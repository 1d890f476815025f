package host

import (
	"github.com/df-mc/dragonfly/server/player"
	"github.com/google/uuid"
)

// Disconnecter ends the autospy session of a player that left.
type Disconnecter interface {
	Disconnect(requester uuid.UUID)
}

// QuitHandler is a player.Handler that removes quitting players from the Host
// and ends their autospy session. It must be attached to every player.
type QuitHandler struct {
	player.NopHandler
	host     *Host
	sessions Disconnecter
}

// NewQuitHandler returns a QuitHandler for the Host and session owner passed.
func NewQuitHandler(h *Host, sessions Disconnecter) *QuitHandler {
	return &QuitHandler{host: h, sessions: sessions}
}

// HandleQuit forgets the player and ends its session without messaging it.
func (q *QuitHandler) HandleQuit(p *player.Player) {
	q.quit(p.UUID())
}

func (q *QuitHandler) quit(id uuid.UUID) {
	q.host.Forget(id)
	q.sessions.Disconnect(id)
}

// Join registers p with the Host and attaches the QuitHandler.
func (q *QuitHandler) Join(p *player.Player) {
	q.host.Roster().Add(p)
	p.Handle(q)
}
