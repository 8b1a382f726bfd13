package logger

import (
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kbukum/foundation/config"
	"github.com/kbukum/foundation/errors"
	"github.com/kbukum/foundation/provider"
)

// Concern is the registry concern name for logging.
const Concern = "log"

// Channel drivers.
const (
	DriverErrorLog = "errorlog"
	DriverStdout   = "stdout"
	DriverSingle   = "single"
	DriverNull     = "null"
)

// DefaultFile is the single channel path used when log.file is unset.
var DefaultFile = filepath.Join(os.TempDir(), "logs", "foundation.log")

// Register defines the log concern on r with its built-in channel drivers.
func Register(r *provider.Registry) {
	r.Define(provider.Concern{Name: Concern, Defaults: channelDefaults, Select: selectChannel})
	for _, driver := range []string{DriverErrorLog, DriverStdout, DriverSingle, DriverNull} {
		r.RegisterBuiltin(Concern, driver, channelFactory)
	}
}

// Build creates a logger for a named channel.
func Build(name string, cfg Config) (*Logger, error) {
	if cfg.Driver == "" {
		cfg.Driver = name
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.InvalidConfig("log.channels."+name, err)
	}

	var w io.Writer
	switch cfg.Driver {
	case DriverErrorLog:
		w = os.Stderr
	case DriverStdout:
		w = os.Stdout
	case DriverSingle:
		w = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
			LocalTime:  cfg.LocalTime,
		}
	case DriverNull:
		l := Nop()
		l.channel = name
		return l, nil
	default:
		return nil, errors.UnsupportedDriver(Concern, cfg.Driver)
	}
	return New(&cfg, name, w), nil
}

func channelFactory(_ provider.Host, dc provider.DriverConfig) (any, error) {
	var cfg Config
	if err := dc.Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.Driver = dc.Driver
	return Build(dc.String("channel", dc.Driver), cfg)
}

// channelDefaults derives a channel when log.channels is not configured:
// no log section at all selects errorlog, otherwise a single file channel
// is built from log.file and log.level.
func channelDefaults(store *config.Store) map[string]any {
	if len(store.GetStringMap("log.channels")) > 0 {
		if store.GetString("log.default", "") != "" {
			return nil
		}
		return map[string]any{"log": map[string]any{"default": DriverSingle}}
	}
	if len(store.GetStringMap(Concern)) == 0 {
		return map[string]any{"log": map[string]any{
			"default": DriverErrorLog,
			"channels": map[string]any{
				DriverErrorLog: map[string]any{"driver": DriverErrorLog, "level": "debug"},
			},
		}}
	}
	return map[string]any{"log": map[string]any{
		"default": DriverSingle,
		"channels": map[string]any{
			DriverSingle: map[string]any{
				"driver": DriverSingle,
				"path":   store.GetString("log.file", DefaultFile),
				"level":  store.GetString("log.level", "debug"),
			},
		},
	}}
}

func selectChannel(store *config.Store) (provider.DriverConfig, error) {
	name := store.GetString("log.default", "")
	opts := store.GetStringMap("log.channels." + name)
	if name == "" || opts == nil {
		return provider.DriverConfig{}, errors.InvalidConfig("log.default",
			fmt.Errorf("channel %q is not configured", name))
	}
	options := maps.Clone(opts)
	options["channel"] = name
	driver, _ := options["driver"].(string)
	if driver == "" {
		driver = name
	}
	return provider.DriverConfig{Concern: Concern, Driver: driver, Options: options}, nil
}
