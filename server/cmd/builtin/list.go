package builtin

import (
	"slices"
	"strings"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/world"
)

type listCommand struct {
	srv   serverAdapter
	spy   spyService
	names nameResolver
}

func newListCommand(srv serverAdapter, spy spyService, names nameResolver) cmd.Command {
	return cmd.New("list", "Lists players currently online and who they are spying on.", []string{"players"}, listCommand{srv: srv, spy: spy, names: names})
}

func (l listCommand) Run(_ cmd.Source, o *cmd.Output, tx *world.Tx) {
	entries := make([]string, 0)
	for p := range l.srv.Players(tx) {
		entries = append(entries, l.describe(p.UUID(), p.Name()))
	}
	slices.SortFunc(entries, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})

	o.Printf("There are %d/%d players online, %d spying.", len(entries), l.srv.MaxPlayerCount(), l.spy.Sessions())
	if len(entries) != 0 {
		o.Print(strings.Join(entries, ", "))
	}
}
