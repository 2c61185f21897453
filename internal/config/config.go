package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "combatsim.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds settings for the in-memory SQLite backend that is
// periodically dumped to disk.
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// WebSocketConfig holds settings for the live streaming backend.
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the recording backend.
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// DBConfig holds postgres connection settings.
type DBConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// InfluxConfig holds settings for the telemetry writer.
type InfluxConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Protocol string
	Token    string
	Org      string
	Bucket   string
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// SimConfig holds the simulation settings for a headless run.
type SimConfig struct {
	TickRate      int
	Duration      time.Duration
	Seed          uint64
	Difficulty    string
	Aircraft      string
	DataFile      string
	ChaffModel    string
	FrameInterval time.Duration
	MonitorEvery  time.Duration
	MissionName   string
	OriginLat     float64
	OriginLon     float64
	Enemies       int
	GroundEnemies int
	TerrainType   string
	BaseHeight    float64
	Amplitude     float64
	Wavelength    float64
	BoundsRadius  float64
	BoundsCeiling float64
	BoundsLimit   time.Duration
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// SetDefaults registers every default. Load calls it; the CLI calls it directly
// when no config file is present.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./simlogs")

	viper.SetDefault("sim.tickRate", 60)
	viper.SetDefault("sim.duration", "2m")
	viper.SetDefault("sim.seed", 1)
	viper.SetDefault("sim.difficulty", "normal")
	viper.SetDefault("sim.aircraft", "viper")
	viper.SetDefault("sim.dataFile", "")
	viper.SetDefault("sim.chaffBreakModel", "linear")

	viper.SetDefault("recorder.frameInterval", "500ms")
	viper.SetDefault("monitor.interval", "10s")

	viper.SetDefault("mission.name", "Training Sortie")
	viper.SetDefault("mission.originLat", 46.95)
	viper.SetDefault("mission.originLon", 7.45)
	viper.SetDefault("mission.enemies", 4)
	viper.SetDefault("mission.groundEnemies", 2)
	viper.SetDefault("mission.boundsRadius", 20000)
	viper.SetDefault("mission.boundsCeiling", 15000)
	viper.SetDefault("mission.boundsLimit", "10s")

	viper.SetDefault("terrain.type", "rolling")
	viper.SetDefault("terrain.baseHeight", 0)
	viper.SetDefault("terrain.amplitude", 300)
	viper.SetDefault("terrain.wavelength", 6000)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "combatsim")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "combatsim")
	viper.SetDefault("influx.bucket", "telemetry")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "combatsim")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat64 returns a float config value.
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}

// GetDuration returns a duration config value such as "500ms" or "3m".
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetStorageConfig returns the storage section.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetDBConfig returns the postgres section.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetInfluxConfig returns the influx section.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetOTelConfig returns the otel section.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetSimConfig returns the sim, mission and terrain sections.
func GetSimConfig() SimConfig {
	return SimConfig{
		TickRate:      viper.GetInt("sim.tickRate"),
		Duration:      viper.GetDuration("sim.duration"),
		Seed:          viper.GetUint64("sim.seed"),
		Difficulty:    viper.GetString("sim.difficulty"),
		Aircraft:      viper.GetString("sim.aircraft"),
		DataFile:      viper.GetString("sim.dataFile"),
		ChaffModel:    viper.GetString("sim.chaffBreakModel"),
		FrameInterval: viper.GetDuration("recorder.frameInterval"),
		MonitorEvery:  viper.GetDuration("monitor.interval"),
		MissionName:   viper.GetString("mission.name"),
		OriginLat:     viper.GetFloat64("mission.originLat"),
		OriginLon:     viper.GetFloat64("mission.originLon"),
		Enemies:       viper.GetInt("mission.enemies"),
		GroundEnemies: viper.GetInt("mission.groundEnemies"),
		TerrainType:   viper.GetString("terrain.type"),
		BaseHeight:    viper.GetFloat64("terrain.baseHeight"),
		Amplitude:     viper.GetFloat64("terrain.amplitude"),
		Wavelength:    viper.GetFloat64("terrain.wavelength"),
		BoundsRadius:  viper.GetFloat64("mission.boundsRadius"),
		BoundsCeiling: viper.GetFloat64("mission.boundsCeiling"),
		BoundsLimit:   viper.GetDuration("mission.boundsLimit"),
	}
}
