// Package config loads the channel server's startup configuration
// (spec.md §6 "Config file channel/config.json").
package config

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Database holds the MySQL connection parameters the channel dials at
// startup (spec.md §6 "database": host/port/user/password/db).
type Database struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DB       string `json:"db"`
}

// Identity names which channel/world this process serves, carried
// through into metrics.NewCollector's dimension labels.
type Identity struct {
	Channel string `json:"channel"`
	World   string `json:"world"`
}

// Workers sizes the simulation substrate (internal/worker.ThreadPool,
// internal/coordinator.Coordinator).
type Workers struct {
	Count      int `json:"count"`
	QueueDepth int `json:"queue_depth"`
}

// Resources points at the on-disk fixture tree spec.md §6 treats as
// external to core ("consumed read-only ... loaded at startup").
type Resources struct {
	FixturePath string `json:"fixture_path"`
	ScriptsDir  string `json:"scripts_dir"`
	SpawnMapID  int32  `json:"spawn_map_id"`
}

// LoginControl addresses the separate login-control endpoint (spec.md
// §6 "a single connection from the login server").
type LoginControl struct {
	Listen string `json:"listen"`
}

// Audit configures CharacterFlush's cold-storage trail (SPEC_FULL.md
// §4.14). An empty Dir disables the trail.
type Audit struct {
	Dir string `json:"dir"`
}

// EventSink optionally mirrors EventManager transitions to an external
// system (SPEC_FULL.md §4.15). An empty Type disables it.
type EventSink struct {
	// Type selects the adapter: "webhook" or "redis". Empty disables
	// external publishing.
	Type string `json:"type"`
	URL  string `json:"url"`
	// Channel is the Redis pub/sub channel name, used when Type is "redis".
	Channel string `json:"channel"`
}

// Debug addresses the read-only introspection endpoint cmd/channelctl
// polls (SPEC_FULL.md §4.16). An empty Listen disables it.
type Debug struct {
	Listen string `json:"listen"`
}

// BoatRoute configures the dock-map transport listener EventManager's
// boat event drives (spec.md §4.8, §10 S2): DockMapID hosts the boat
// and receives dock_undock_boat/start_sailing/end_sailing, DestMapID/
// DestPortal name where end_sailing warps every member still aboard.
// A zero DockMapID disables the route.
type BoatRoute struct {
	DockMapID  int32  `json:"dock_map_id"`
	DestMapID  int32  `json:"dest_map_id"`
	DestPortal string `json:"dest_portal"`
}

// AreaBoss enables the area-boss reset listener (spec.md §4.8).
type AreaBoss struct {
	Enabled bool `json:"enabled"`
}

// Config is the parsed contents of channel/config.json (spec.md §6,
// expanded with the ambient sections every running process needs).
type Config struct {
	Database Database `json:"database"`
	// Listen is an ip:port or AF_UNIX path for the client-facing listener.
	Listen string `json:"listen"`

	Identity     Identity     `json:"identity"`
	Workers      Workers      `json:"workers"`
	Resources    Resources    `json:"resources"`
	LoginControl LoginControl `json:"login_control"`
	Audit        Audit        `json:"audit"`
	EventSink    EventSink    `json:"event_sink"`
	Debug        Debug        `json:"debug"`
	BoatRoute    BoatRoute    `json:"boat_route"`
	AreaBoss     AreaBoss     `json:"area_boss"`
}

const (
	defaultWorkerCount = 4
	defaultQueueDepth  = 256
)

// Load reads and parses path into a Config. A missing host, empty
// listen address, or malformed JSON is a fatal startup failure (spec.md
// §6 "Exit codes: -1 fatal startup failure (config, server create,
// listener bind)"); Load only reports the error, leaving the exit-code
// decision to the caller in cmd/channeld.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills in zero-valued ambient settings a minimal
// config.json omits, so the database/listen contract spec.md §6 names
// stays the only required portion of the file.
func (c *Config) applyDefaults() {
	if c.Workers.Count <= 0 {
		c.Workers.Count = defaultWorkerCount
	}
	if c.Workers.QueueDepth <= 0 {
		c.Workers.QueueDepth = defaultQueueDepth
	}
	if c.Identity.Channel == "" {
		c.Identity.Channel = "ch-1"
	}
	if c.Identity.World == "" {
		c.Identity.World = "world-1"
	}
}

func (c *Config) validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port < 0 || c.Database.Port > 65535 {
		return fmt.Errorf("database.port %d out of range", c.Database.Port)
	}
	if c.Database.DB == "" {
		return fmt.Errorf("database.db is required")
	}
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	return nil
}

// DSN renders the database config as a go-sql-driver/mysql data source
// name, the form sqladapter's sql.Open call expects.
func (d Database) DSN() string {
	if d.Port == 0 {
		return fmt.Sprintf("%s:%s@unix(%s)/%s?parseTime=true", d.User, d.Password, d.Host, d.DB)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", d.User, d.Password, d.Host, d.Port, d.DB)
}
