// Package console runs server commands typed on standard input. Commands run
// with the console as source, which allows console-only commands such as
// /spyperm and /stop.
package console

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
)

// Console reads command lines from an io.Reader (defaulting to os.Stdin) and
// executes them in a world.
type Console struct {
	w      *world.World
	log    *slog.Logger
	reader io.Reader
}

// New returns a Console that executes commands in w and writes command output
// to log.
func New(w *world.World, log *slog.Logger) *Console {
	if log == nil {
		log = slog.Default()
	}
	return &Console{
		w:      w,
		log:    log,
		reader: os.Stdin,
	}
}

// WithReader sets a custom reader for the console input.
func (c *Console) WithReader(r io.Reader) *Console {
	if r != nil {
		c.reader = r
	}
	return c
}

// Run consumes commands until ctx is cancelled or the reader reaches EOF.
func (c *Console) Run(ctx context.Context) {
	scanner := bufio.NewScanner(c.reader)
	src := &source{log: c.log}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				c.log.Error("Console input error.", "error", err)
			}
			return
		}
		line := normaliseLine(scanner.Text())
		if line == "" {
			continue
		}
		<-c.w.Exec(func(tx *world.Tx) {
			executeLine(src, line, tx)
		})
	}
}

// normaliseLine trims a console line and adds the leading slash commands
// typed on the console usually omit.
func normaliseLine(line string) string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "/") {
		return line
	}
	return "/" + line
}

// executeLine runs commandLine, which must start with a slash, with src as
// source. Unknown commands are reported back to src.
func executeLine(src cmd.Source, commandLine string, tx *world.Tx) {
	name, args, _ := strings.Cut(strings.TrimPrefix(commandLine, "/"), " ")
	if name == "" {
		return
	}
	command, ok := cmd.ByAlias(name)
	if !ok {
		o := &cmd.Output{}
		o.Errorf("Unknown command: %s.", name)
		src.SendCommandOutput(o)
		return
	}
	command.Execute(args, src, tx)
}

type source struct {
	log *slog.Logger
}

func (*source) Position() mgl64.Vec3 { return mgl64.Vec3{} }

func (*source) Name() string { return "Console" }

func (s *source) SendCommandOutput(o *cmd.Output) {
	for _, msg := range o.Messages() {
		s.log.Info(msg.String())
	}
	for _, err := range o.Errors() {
		s.log.Error(err.Error())
	}
}
