package main

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// runOptions are the flags that do not live in the config file.
type runOptions struct {
	ConfigDir string
	Realtime  bool
}

// viperFlags maps command-line flags onto config keys. Unset flags leave
// the config file and defaults in charge.
var viperFlags = []struct {
	flag, key, usage string
	kind             string
}{
	{"log-level", "logLevel", "log level (debug|info|warn|error)", "string"},
	{"logs-dir", "logsDir", "directory for session logs", "string"},
	{"duration", "sim.duration", "simulated time to fly, e.g. 90s", "duration"},
	{"seed", "sim.seed", "random seed", "uint64"},
	{"tick-rate", "sim.tickRate", "ticks per simulated second", "int"},
	{"difficulty", "sim.difficulty", "easy|normal|hard|ace", "string"},
	{"aircraft", "sim.aircraft", "player plane id", "string"},
	{"data", "sim.dataFile", "YAML weapon/plane tables (built-in when empty)", "string"},
	{"chaff-model", "sim.chaffBreakModel", "linear|exact", "string"},
	{"mission", "mission.name", "mission name", "string"},
	{"enemies", "mission.enemies", "air enemies in the wave", "int"},
	{"ground-enemies", "mission.groundEnemies", "ground enemies in the wave", "int"},
	{"terrain", "terrain.type", "flat|rolling", "string"},
	{"storage", "storage.type", "memory|sqlite|postgres|websocket|none", "string"},
	{"output", "storage.memory.outputDir", "directory for JSON recordings", "string"},
	{"sqlite-path", "storage.sqlite.dumpPath", "file the sqlite backend dumps to", "string"},
	{"ws-url", "storage.websocket.url", "websocket stream endpoint", "string"},
}

func newRunFlags(output io.Writer) (*pflag.FlagSet, *runOptions) {
	opts := &runOptions{}
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.SortFlags = false

	fs.StringVarP(&opts.ConfigDir, "config-dir", "c", ".", "directory containing combatsim.cfg.json")
	fs.BoolVar(&opts.Realtime, "realtime", false, "pace ticks to the wall clock")

	for _, f := range viperFlags {
		switch f.kind {
		case "string":
			fs.String(f.flag, "", f.usage)
		case "int":
			fs.Int(f.flag, 0, f.usage)
		case "uint64":
			fs.Uint64(f.flag, 0, f.usage)
		case "duration":
			fs.Duration(f.flag, 0, f.usage)
		}
	}
	return fs, opts
}

// bindFlags registers every config flag with viper.
func bindFlags(fs *pflag.FlagSet) error {
	for _, f := range viperFlags {
		if err := viper.BindPFlag(f.key, fs.Lookup(f.flag)); err != nil {
			return fmt.Errorf("binding --%s: %w", f.flag, err)
		}
	}
	return nil
}
