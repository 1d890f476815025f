package builtin

import (
	"github.com/google/uuid"
)

// describe renders a player for the list command, including who it is
// spectating through autospy.
func (l listCommand) describe(id uuid.UUID, name string) string {
	if !l.spy.Active(id) {
		return name
	}
	target, ok := l.spy.Target(id)
	if !ok {
		return name + " (spying)"
	}
	targetName, ok := l.names.Name(target)
	if !ok {
		return name + " (spying)"
	}
	return name + " (spying on " + targetName + ")"
}
