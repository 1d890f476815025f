package builtin

import (
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/dm-vev/autospy/server/autospy"
	"github.com/dm-vev/autospy/server/permission"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

func TestSpyOptions(t *testing.T) {
	opts, err := spyOptions(0, false, 0, false)
	if err != nil || opts != (autospy.Options{}) {
		t.Fatalf("no arguments = %+v, %v; want zero options", opts, err)
	}
	opts, err = spyOptions(7, true, 3, true)
	if err != nil {
		t.Fatalf("valid arguments: %v", err)
	}
	if opts.Interval != 7*time.Second || opts.LoadTicks != 3 {
		t.Fatalf("options = %+v, want 7s/3", opts)
	}
	if _, err := spyOptions(0, true, 0, false); err == nil {
		t.Fatalf("zero seconds accepted")
	}
	if _, err := spyOptions(5, true, -2, true); err == nil {
		t.Fatalf("negative load interval accepted")
	}
	// Values whose duration would overflow int64 nanoseconds.
	if _, err := spyOptions(18446744074, true, 0, false); err == nil {
		t.Fatalf("overflowing seconds accepted")
	}
	if _, err := spyOptions(int(maxSeconds)+1, true, 0, false); err == nil {
		t.Fatalf("seconds above the limit accepted")
	}
	if _, err := spyOptions(5, true, 1<<62, true); err == nil {
		t.Fatalf("huge load interval accepted")
	}
	if opts, err := spyOptions(int(maxSeconds), true, autospy.MaxLoadTicks, true); err != nil || opts.Interval != autospy.MaxInterval {
		t.Fatalf("limits rejected: %+v, %v", opts, err)
	}
}

type fakeSpy struct {
	active  map[uuid.UUID]uuid.UUID
	toggled chan uuid.UUID
}

func (f *fakeSpy) Toggle(r uuid.UUID, _ autospy.Options) (bool, error) {
	f.toggled <- r
	return true, nil
}

func (f *fakeSpy) Active(r uuid.UUID) bool {
	_, ok := f.active[r]
	return ok
}

func (f *fakeSpy) Target(r uuid.UUID) (uuid.UUID, bool) {
	target, ok := f.active[r]
	return target, ok && target != uuid.Nil
}

func (f *fakeSpy) Sessions() int { return len(f.active) }

type fakeNames map[uuid.UUID]string

func (f fakeNames) Name(id uuid.UUID) (string, bool) {
	name, ok := f[id]
	return name, ok
}

func TestListDescribe(t *testing.T) {
	spying, waiting, idle, target := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	l := listCommand{
		spy:   &fakeSpy{active: map[uuid.UUID]uuid.UUID{spying: target, waiting: uuid.Nil}},
		names: fakeNames{target: "Bob"},
	}
	cases := map[uuid.UUID]string{
		spying:  "Alice (spying on Bob)",
		waiting: "Alice (spying)",
		idle:    "Alice",
	}
	for id, want := range cases {
		if got := l.describe(id, "Alice"); got != want {
			t.Fatalf("describe = %q, want %q", got, want)
		}
	}
}

func TestSpyAllToggleRecoversPanics(t *testing.T) {
	c := spyAllCommand{spy: panickingSpy{}, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	c.toggle(uuid.New(), "Steve", autospy.Options{})
}

type panickingSpy struct{ *fakeSpy }

func (panickingSpy) Toggle(uuid.UUID, autospy.Options) (bool, error) {
	panic("toggle")
}

type fakeStore struct {
	grants map[string][]string
	err    error
}

func (f *fakeStore) Grant(name, capability string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, n := range f.grants[capability] {
		if n == name {
			return false, nil
		}
	}
	f.grants[capability] = append(f.grants[capability], name)
	return true, nil
}

func (f *fakeStore) Revoke(name, capability string) (bool, error) {
	return false, f.err
}

func (f *fakeStore) Holders(capability string) []string { return f.grants[capability] }

func (f *fakeStore) Capabilities() []string {
	caps := make([]string, 0, len(f.grants))
	for c := range f.grants {
		caps = append(caps, c)
	}
	return caps
}

func TestSpyPermGrantAndList(t *testing.T) {
	store := &fakeStore{grants: map[string][]string{}}

	o := &cmd.Output{}
	spyPermGrantCommand{store: store, Name: " Steve ", Capability: autospy.CapabilitySpy}.Run(nil, o, nil)
	if o.ErrorCount() != 0 || o.MessageCount() != 1 {
		t.Fatalf("grant output: %d errors, %d messages", o.ErrorCount(), o.MessageCount())
	}
	if got := store.Holders(autospy.CapabilitySpy); len(got) != 1 || got[0] != "Steve" {
		t.Fatalf("holders = %v, want trimmed name", got)
	}

	o = &cmd.Output{}
	spyPermListCommand{store: store}.Run(nil, o, nil)
	if o.MessageCount() != 1 {
		t.Fatalf("list printed %d lines, want 1", o.MessageCount())
	}

	o = &cmd.Output{}
	spyPermListCommand{store: &fakeStore{grants: map[string][]string{}}}.Run(nil, o, nil)
	if o.MessageCount() != 1 {
		t.Fatalf("empty list printed %d lines, want 1", o.MessageCount())
	}
}

func TestSpyPermReportsErrors(t *testing.T) {
	for _, err := range []error{permission.ErrInvalidName, permission.ErrInvalidCapability, errors.New("disk full")} {
		o := &cmd.Output{}
		spyPermRevokeCommand{store: &fakeStore{err: err}, Name: "x", Capability: autospy.CapabilityExempt}.Run(nil, o, nil)
		if o.ErrorCount() != 1 {
			t.Fatalf("%v: %d errors reported, want 1", err, o.ErrorCount())
		}
	}
}

type consoleSource struct{ outputs []*cmd.Output }

func (*consoleSource) Position() mgl64.Vec3 { return mgl64.Vec3{} }

func (s *consoleSource) SendCommandOutput(o *cmd.Output) { s.outputs = append(s.outputs, o) }

type fakeChecker map[uuid.UUID][]string

func (f fakeChecker) Has(id uuid.UUID, capability string) bool {
	return slices.Contains(f[id], capability)
}

func TestSpyAllRejectsNonPlayers(t *testing.T) {
	spy := &fakeSpy{toggled: make(chan uuid.UUID, 1)}
	c := spyAllCommand{spy: spy, perms: fakeChecker{}, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	src := &consoleSource{}

	if !c.Allow(src) {
		t.Fatalf("console may not run /spyall, so it would never see the rejection")
	}
	o := &cmd.Output{}
	c.Run(src, o, nil)
	if o.ErrorCount() != 1 || o.MessageCount() != 0 {
		t.Fatalf("output: %d errors, %d messages; want one error", o.ErrorCount(), o.MessageCount())
	}
	if !strings.Contains(o.Errors()[0].Error(), playerOnlyMessage) {
		t.Fatalf("error = %q, want the player-only message", o.Errors()[0])
	}
	select {
	case id := <-spy.toggled:
		t.Fatalf("console source toggled a session for %v", id)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSpyAllRequiresCapability(t *testing.T) {
	granted, denied, exempt := uuid.New(), uuid.New(), uuid.New()
	c := spyAllCommand{perms: fakeChecker{
		granted: {autospy.CapabilitySpy},
		exempt:  {autospy.CapabilityExempt},
	}}
	if !c.allowPlayer(granted) {
		t.Fatalf("player holding %s rejected", autospy.CapabilitySpy)
	}
	if c.allowPlayer(denied) || c.allowPlayer(exempt) {
		t.Fatalf("player without %s allowed", autospy.CapabilitySpy)
	}
}

func TestConsoleOnly(t *testing.T) {
	if !consoleOnly(&consoleSource{}) {
		t.Fatalf("console source rejected")
	}
}
