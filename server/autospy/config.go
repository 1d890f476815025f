package autospy

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pelletier/go-toml"
)

const (
	// MaxInterval is the longest interval a session may use.
	MaxInterval = time.Hour
	// MaxLoadTicks is the longest load interval, in ticks, a session may use.
	MaxLoadTicks = 20 * 60
)

const (
	defaultIntervalSeconds = 5
	defaultLoadTicks       = 5
	defaultMoveTicks       = 2
)

// Config holds the dependencies and defaults of a Manager. Population,
// Permissions, Views and Notifier are required; the other fields fall back to
// defaults.
type Config struct {
	// Log is the Logger used for session lifecycle logging. If nil,
	// slog.Default() is used.
	Log *slog.Logger
	// Population, Permissions, Views and Notifier connect the Manager to the
	// server. Population and Permissions are called while the Manager holds
	// its per-player lock, so they must answer without waiting on a world.
	Population  Population
	Permissions Permissions
	Views       Views
	Notifier    Notifier
	// Scheduler runs session ticks and transition phases. If nil, a
	// ClockScheduler on Clock is created.
	Scheduler Scheduler
	// Clock is used for session start times and the default Scheduler. If
	// nil, the real clock is used.
	Clock clockwork.Clock
	// Metrics receives counters. It may be nil.
	Metrics *Metrics
	// Interval is the tick interval of sessions started without one.
	Interval time.Duration
	// LoadTicks is the delay, in server ticks, between moving a requester to
	// its target and spectating the target, for sessions started without one.
	LoadTicks int
	// MoveTicks is the delay, in server ticks, between clearing the current
	// spectator target and moving to the new one. Defaults to 2.
	MoveTicks int
	// Shards is the number of registry shards and lock stripes.
	Shards int
}

func (conf Config) withDefaults() Config {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Clock == nil {
		conf.Clock = clockwork.NewRealClock()
	}
	if conf.Scheduler == nil {
		conf.Scheduler = NewClockScheduler(conf.Clock, conf.Log, conf.Metrics)
	}
	if conf.Interval <= 0 {
		conf.Interval = defaultIntervalSeconds * time.Second
	}
	if conf.LoadTicks <= 0 {
		conf.LoadTicks = defaultLoadTicks
	}
	if conf.MoveTicks <= 0 {
		conf.MoveTicks = defaultMoveTicks
	}
	if conf.Shards <= 0 {
		conf.Shards = 64
	}
	return conf
}

// UserConfig is the user facing configuration of autospy, stored as TOML.
type UserConfig struct {
	AutoSpy struct {
		// IntervalSeconds is the default number of seconds between target
		// changes.
		IntervalSeconds int
		// LoadIntervalTicks is the default number of ticks to wait at the
		// target's position before spectating it.
		LoadIntervalTicks int
		// MoveDelayTicks is the number of ticks between clearing the current
		// target and moving to the next.
		MoveDelayTicks int
	}
	Permissions struct {
		// File is the path of the TOML file holding capability grants.
		File string
	}
	Metrics struct {
		// LogIntervalSeconds is how often metrics are logged. Zero disables
		// the metrics log.
		LogIntervalSeconds int
	}
}

// DefaultUserConfig returns the configuration written when none exists.
func DefaultUserConfig() UserConfig {
	uc := UserConfig{}
	uc.AutoSpy.IntervalSeconds = defaultIntervalSeconds
	uc.AutoSpy.LoadIntervalTicks = defaultLoadTicks
	uc.AutoSpy.MoveDelayTicks = defaultMoveTicks
	uc.Permissions.File = "permissions.toml"
	uc.Metrics.LogIntervalSeconds = 300
	return uc
}

// Config converts the UserConfig to a Config. Collaborators still have to be
// set on the result.
func (uc UserConfig) Config(log *slog.Logger) (Config, error) {
	if uc.AutoSpy.IntervalSeconds <= 0 {
		return Config{}, fmt.Errorf("autospy interval must be positive, got %d", uc.AutoSpy.IntervalSeconds)
	}
	if uc.AutoSpy.LoadIntervalTicks <= 0 {
		return Config{}, fmt.Errorf("autospy load interval must be positive, got %d", uc.AutoSpy.LoadIntervalTicks)
	}
	if uc.AutoSpy.MoveDelayTicks <= 0 {
		return Config{}, fmt.Errorf("autospy move delay must be positive, got %d", uc.AutoSpy.MoveDelayTicks)
	}
	if int64(uc.AutoSpy.IntervalSeconds) > int64(MaxInterval/time.Second) {
		return Config{}, fmt.Errorf("autospy interval must be at most %d seconds, got %d", int64(MaxInterval/time.Second), uc.AutoSpy.IntervalSeconds)
	}
	if uc.AutoSpy.LoadIntervalTicks > MaxLoadTicks || uc.AutoSpy.MoveDelayTicks > MaxLoadTicks {
		return Config{}, fmt.Errorf("autospy tick delays must be at most %d ticks", MaxLoadTicks)
	}
	return Config{
		Log:       log,
		Interval:  time.Duration(uc.AutoSpy.IntervalSeconds) * time.Second,
		LoadTicks: uc.AutoSpy.LoadIntervalTicks,
		MoveTicks: uc.AutoSpy.MoveDelayTicks,
	}, nil
}

// MetricsInterval returns how often metrics should be logged.
func (uc UserConfig) MetricsInterval() time.Duration {
	return time.Duration(uc.Metrics.LogIntervalSeconds) * time.Second
}

// LoadUserConfig reads the UserConfig at path. If the file does not exist, it
// is created with DefaultUserConfig.
func LoadUserConfig(path string) (UserConfig, error) {
	c := DefaultUserConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		encoded, err := toml.Marshal(c)
		if err != nil {
			return c, fmt.Errorf("encode default autospy config: %w", err)
		}
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return c, fmt.Errorf("create autospy config directory: %w", err)
			}
		}
		if err := os.WriteFile(path, encoded, 0o644); err != nil {
			return c, fmt.Errorf("write default autospy config: %w", err)
		}
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("read autospy config: %w", err)
	}
	if err := toml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("decode autospy config: %w", err)
	}
	return c, nil
}
