package builtin

import (
	"errors"
	"strings"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/autospy/server/autospy"
	"github.com/dm-vev/autospy/server/permission"
)

// capabilityValue lists the capabilities autospy checks so the client can show
// them as an enum.
type capabilityValue string

func (capabilityValue) Type() string { return "Capability" }

func (capabilityValue) Options(cmd.Source) []string {
	return []string{autospy.CapabilitySpy, autospy.CapabilityExempt}
}

type spyPermGrantCommand struct {
	store      capabilityStore
	Grant      cmd.SubCommand  `cmd:"grant"`
	Name       string          `cmd:"player"`
	Capability capabilityValue `cmd:"capability"`
}

type spyPermRevokeCommand struct {
	store      capabilityStore
	Revoke     cmd.SubCommand  `cmd:"revoke"`
	Name       string          `cmd:"player"`
	Capability capabilityValue `cmd:"capability"`
}

type spyPermListCommand struct {
	store      capabilityStore
	List       cmd.SubCommand                `cmd:"list"`
	Capability cmd.Optional[capabilityValue] `cmd:"capability"`
}

func newSpyPermCommand(store capabilityStore) cmd.Command {
	return cmd.New(
		"spyperm",
		"Manages who may use and who is hidden from autospy.",
		nil,
		spyPermGrantCommand{store: store},
		spyPermRevokeCommand{store: store},
		spyPermListCommand{store: store},
	)
}

func (c spyPermGrantCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	name, capability := strings.TrimSpace(c.Name), string(c.Capability)
	added, err := c.store.Grant(name, capability)
	if err != nil {
		reportStoreError(o, err, name, capability)
		return
	}
	if added {
		o.Printf("Granted %s to %s.", capability, name)
		return
	}
	o.Printf("%s already has %s.", name, capability)
}

func (c spyPermRevokeCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	name, capability := strings.TrimSpace(c.Name), string(c.Capability)
	removed, err := c.store.Revoke(name, capability)
	if err != nil {
		reportStoreError(o, err, name, capability)
		return
	}
	if removed {
		o.Printf("Revoked %s from %s.", capability, name)
		return
	}
	o.Printf("%s does not have %s.", name, capability)
}

func (c spyPermListCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	capabilities := c.store.Capabilities()
	if capability, ok := c.Capability.Load(); ok {
		capabilities = []string{string(capability)}
	}
	if len(capabilities) == 0 {
		o.Print("No capabilities have been granted.")
		return
	}
	for _, capability := range capabilities {
		holders := c.store.Holders(capability)
		o.Printf("%s (%d): %s", capability, len(holders), strings.Join(holders, ", "))
	}
}

func reportStoreError(o *cmd.Output, err error, name, capability string) {
	switch {
	case errors.Is(err, permission.ErrInvalidName):
		o.Errorf("Invalid player name %q.", name)
	case errors.Is(err, permission.ErrInvalidCapability):
		o.Errorf("Invalid capability %q.", capability)
	default:
		o.Error(err)
	}
}

func (spyPermGrantCommand) Allow(src cmd.Source) bool  { return consoleOnly(src) }
func (spyPermRevokeCommand) Allow(src cmd.Source) bool { return consoleOnly(src) }
func (spyPermListCommand) Allow(src cmd.Source) bool   { return consoleOnly(src) }

func consoleOnly(src cmd.Source) bool {
	_, isPlayer := src.(*player.Player)
	return !isPlayer
}
