// Package simconfig holds the subset of configuration relevant to the
// simulation core. It produces a populated Config from an optional TOML
// file plus a few SENTINEL_* environment overrides; CLI flags live in
// cmd/sentinel, and the engine packages do not import this package.
package simconfig

import (
	"os"
	"strconv"

	"github.com/naoina/toml"
)

// Simulation holds the simulation.* fields.
type Simulation struct {
	DefaultAgents        int  `toml:",omitempty"`
	UseParallelThreshold int  `toml:",omitempty"`
	StopOnError          bool `toml:",omitempty"`
}

// Database holds the database.* fields.
type Database struct {
	Path        string `toml:",omitempty"`
	TimeoutSecs int    `toml:",omitempty"`
	MaxConns    int    `toml:",omitempty"`
	JournalMode string `toml:",omitempty"`
	CacheSizeKB int    `toml:",omitempty"`
}

// Agent holds the agent.* fields.
type Agent struct {
	AnomalyThreshold      float64 `toml:",omitempty"`
	ValidationFailureRate float64 `toml:",omitempty"`
	MinDataPoints         int     `toml:",omitempty"`
	CacheMaxSize          int     `toml:",omitempty"`
	RecentDataCapacity    int     `toml:",omitempty"`
}

// Ledger holds the ledger.* fields.
type Ledger struct {
	CacheTTLSeconds int `toml:",omitempty"`
}

// Config is the full document; all fields optional with stated defaults.
type Config struct {
	Simulation Simulation
	Database   Database
	Agent      Agent
	Ledger     Ledger
}

// Default mirrors the teacher's DefaultConfig/Defaults package-level value
// pattern (metrics/config.go, tos/tosconfig/config.go).
var Default = Config{
	Simulation: Simulation{
		DefaultAgents:        100,
		UseParallelThreshold: 50,
		StopOnError:          false,
	},
	Database: Database{
		Path:        "ledger.db",
		TimeoutSecs: 5,
		MaxConns:    10,
		JournalMode: "WAL",
		CacheSizeKB: 10000,
	},
	Agent: Agent{
		AnomalyThreshold:      -0.05,
		ValidationFailureRate: 0.2,
		MinDataPoints:         10,
		CacheMaxSize:          100,
		RecentDataCapacity:    100,
	},
	Ledger: Ledger{
		CacheTTLSeconds: 300,
	},
}

// Load reads a TOML file at path into a copy of Default and applies the
// narrow SENTINEL_* environment overrides. An empty path skips the file and
// starts from Default; the environment overrides still apply.
func Load(path string) (Config, error) {
	cfg := Default
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, err
		}
		defer f.Close()
		if err := toml.NewDecoder(f).Decode(&cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides implements the "environment-variable overrides" external
// collaborator, restricted to the fields operators most often
// need to flip without editing a file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SENTINEL_DEFAULT_AGENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Simulation.DefaultAgents = n
		}
	}
	if v := os.Getenv("SENTINEL_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SENTINEL_ANOMALY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Agent.AnomalyThreshold = f
		}
	}
}
