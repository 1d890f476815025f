package autospy

import "github.com/sandertv/gophertunnel/minecraft/text"

var (
	msgNowActive    = text.Colourf("<aqua>Now autospying.</aqua>")
	msgNoLonger     = text.Colourf("<green>No longer autospying.</green>")
	msgLeftManually = text.Colourf("<dark-green>No longer autospying.</dark-green>")
	msgCancelFailed = text.Colourf("<red>Oops! Something went wrong aborting the spying task! Try again?</red>")
)

func spectatingMessage(name string) string {
	return text.Colourf("<grey>Now spectating: </grey><white>%s</white>", name)
}
