package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/df-mc/dragonfly/server"
	"github.com/df-mc/dragonfly/server/player/chat"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/autospy/server/autospy"
	"github.com/dm-vev/autospy/server/cmd/builtin"
	"github.com/dm-vev/autospy/server/console"
	"github.com/dm-vev/autospy/server/host"
	"github.com/dm-vev/autospy/server/permission"
	"github.com/jonboulle/clockwork"
	"github.com/pelletier/go-toml"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	chat.Global.Subscribe(chat.StdoutSubscriber{})

	conf, err := readConfig(log)
	if err != nil {
		log.Error("Read server config.", "error", err)
		os.Exit(1)
	}
	spyConf, err := autospy.LoadUserConfig("autospy.toml")
	if err != nil {
		log.Error("Read autospy config.", "error", err)
		os.Exit(1)
	}
	store, err := permission.LoadStore(spyConf.Permissions.File)
	if err != nil {
		log.Error("Load permissions.", "error", err)
		os.Exit(1)
	}
	managerConf, err := spyConf.Config(log)
	if err != nil {
		log.Error("Invalid autospy config.", "error", err)
		os.Exit(1)
	}

	srv := conf.New()
	srv.CloseOnProgramEnd()

	clock := clockwork.NewRealClock()
	metrics := autospy.NewMetrics()
	scheduler := autospy.NewClockScheduler(clock, log, metrics)
	h := host.Config{
		Log:         log,
		Permissions: store,
		Worlds:      []*world.World{srv.World(), srv.Nether(), srv.End()},
	}.New()

	managerConf.Population = h
	managerConf.Permissions = h
	managerConf.Views = h
	managerConf.Notifier = h
	managerConf.Scheduler = scheduler
	managerConf.Clock = clock
	managerConf.Metrics = metrics
	manager := managerConf.New()
	quit := host.NewQuitHandler(h, manager)

	builtin.Register(builtin.Deps{
		Server:      srv,
		Spy:         manager,
		Permissions: h,
		Store:       store,
		Names:       h,
		Log:         log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go console.New(srv.World(), log).Run(ctx)
	if interval := spyConf.MetricsInterval(); interval > 0 {
		go logMetrics(ctx, clock, interval, log, metrics)
	}

	log.Info("AutoSpy enabled.", "interval", managerConf.Interval, "loadTicks", managerConf.LoadTicks)
	srv.Listen()
	for p := range srv.Accept() {
		quit.Join(p)
	}

	manager.Close()
	scheduler.Close()
	log.Info("AutoSpy disabled.", "sessions", metrics.Snapshot().Started)
}

// logMetrics logs a snapshot of metrics every interval until ctx is done.
func logMetrics(ctx context.Context, clock clockwork.Clock, interval time.Duration, log *slog.Logger, metrics *autospy.Metrics) {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s := metrics.Snapshot()
			log.Info("AutoSpy metrics.",
				"active", s.Active(),
				"started", s.Started,
				"ticks", s.Ticks,
				"skipped", s.Skipped,
				"retargets", s.Retargets,
				"cancelFailures", s.CancelFailures,
				"panics", s.Panics)
		}
	}
}

// readConfig reads the configuration from the config.toml file, or creates the
// file if it does not yet exist.
func readConfig(log *slog.Logger) (server.Config, error) {
	c := server.DefaultConfig()
	var zero server.Config
	if _, err := os.Stat("config.toml"); os.IsNotExist(err) {
		data, err := toml.Marshal(c)
		if err != nil {
			return zero, fmt.Errorf("encode default config: %v", err)
		}
		if err := os.WriteFile("config.toml", data, 0644); err != nil {
			return zero, fmt.Errorf("create default config: %v", err)
		}
		return c.Config(log)
	}
	data, err := os.ReadFile("config.toml")
	if err != nil {
		return zero, fmt.Errorf("read config: %v", err)
	}
	if err := toml.Unmarshal(data, &c); err != nil {
		return zero, fmt.Errorf("decode config: %v", err)
	}
	return c.Config(log)
}
