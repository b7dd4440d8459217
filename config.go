package lineage

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the .lineage.yaml configuration file.
type Config struct {
	Store  StoreConfig  `yaml:"store,omitempty"`
	Graph  GraphConfig  `yaml:"graph,omitempty"`
	Import ImportConfig `yaml:"import,omitempty"`
	Export ExportConfig `yaml:"export,omitempty"`
	Log    LogConfig    `yaml:"log,omitempty"`
}

// StoreConfig selects and configures the store backend. Only one backend
// should be set; the presence of its section selects it.
type StoreConfig struct {
	Memory *MemoryConfig `yaml:"memory,omitempty"`
	SQLite *SQLiteConfig `yaml:"sqlite,omitempty"`
	Badger *BadgerConfig `yaml:"badger,omitempty"`
	Neo4j  *Neo4jConfig  `yaml:"neo4j,omitempty"`
}

// MemoryConfig configures the in-process store. It has no settings.
type MemoryConfig struct{}

// SQLiteConfig holds SQLite settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// BadgerConfig holds BadgerDB settings.
type BadgerConfig struct {
	Path       string `yaml:"path,omitempty"`
	InMemory   bool   `yaml:"in_memory,omitempty"`
	SyncWrites bool   `yaml:"sync_writes,omitempty"`
}

// Neo4jConfig holds Neo4j connection settings.
type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Database string `yaml:"database,omitempty"`
}

// Backend returns the name of the configured backend. With nothing
// configured it returns the SQLite backend.
func (c *StoreConfig) Backend() string {
	switch {
	case c.Memory != nil:
		return StoreMemory
	case c.Badger != nil:
		return StoreBadger
	case c.Neo4j != nil:
		return StoreNeo4j
	default:
		return StoreSQLite
	}
}

// GraphConfig tunes the graph engine.
type GraphConfig struct {
	// MaxGenerations caps the depth of any traversal.
	MaxGenerations int `yaml:"max_generations,omitempty"`
	// MaxBiologicalParents caps biological parents per child. Zero disables
	// the cap.
	MaxBiologicalParents *int `yaml:"max_biological_parents,omitempty"`
	// Concurrency bounds parallel branch expansion during traversal.
	Concurrency int `yaml:"concurrency,omitempty"`
}

// ImportConfig tunes GEDCOM import.
type ImportConfig struct {
	RolePolicy  string `yaml:"role_policy,omitempty"`
	Concurrency int    `yaml:"concurrency,omitempty"`
}

// ExportConfig tunes GEDCOM export.
type ExportConfig struct {
	Source    string `yaml:"source,omitempty"`
	Submitter string `yaml:"submitter,omitempty"`
	// Exclude is a boolean expression; matching people are left out.
	Exclude string `yaml:"exclude,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
}

// Defaults for unset configuration values.
const (
	DefaultMaxGenerations       = 25
	DefaultMaxBiologicalParents = 2
	DefaultConcurrency          = 4
	DefaultSQLitePath           = ".lineage.db"
	DefaultSource               = "LINEAGE"
)

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()

	return cfg
}

func (c *Config) applyDefaults() {
	if c.Store.Backend() == StoreSQLite && c.Store.SQLite == nil {
		c.Store.SQLite = &SQLiteConfig{}
	}

	if c.Store.SQLite != nil && c.Store.SQLite.Path == "" {
		c.Store.SQLite.Path = DefaultSQLitePath
	}

	if c.Graph.MaxGenerations <= 0 {
		c.Graph.MaxGenerations = DefaultMaxGenerations
	}

	if c.Graph.MaxBiologicalParents == nil {
		n := DefaultMaxBiologicalParents
		c.Graph.MaxBiologicalParents = &n
	}

	if c.Graph.Concurrency <= 0 {
		c.Graph.Concurrency = DefaultConcurrency
	}

	if c.Import.RolePolicy == "" {
		c.Import.RolePolicy = PolicyFamilyFirst
	}

	if c.Import.Concurrency <= 0 {
		c.Import.Concurrency = 1
	}

	if c.Export.Source == "" {
		c.Export.Source = DefaultSource
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".lineage.yaml", ".lineage.yml", "lineage.yaml", "lineage.yml"}

// LoadConfig finds and loads the nearest .lineage.yaml walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path and fills defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	return &cfg, nil
}
