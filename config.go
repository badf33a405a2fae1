package propgrid

import (
	"time"
)

// Storage backends accepted by StorageConfig.Backend.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendSQL      = "sql"
	BackendS3       = "s3"
)

// Document formats accepted by BuilderConfig.Format.
const (
	FormatAuto       = "auto"
	FormatYAML       = "yaml"
	FormatTOML       = "toml"
	FormatJSON       = "json"
	FormatJSONSchema = "jsonschema"
)

// Config consolidates the settings of the projection, the tree builders and
// the collapse-state stores.
type Config struct {
	Projection ProjectionConfig `json:"projection"`
	Builder    BuilderConfig    `json:"builder"`
	Storage    StorageConfig    `json:"storage"`
	Logging    LoggingConfig    `json:"logging"`
}

// ProjectionConfig contains row model settings
type ProjectionConfig struct {
	CollapsedNames        []string `json:"collapsedNames"`
	SnapshotCompositeFlag bool     `json:"snapshotCompositeFlag"`
	// LeafIndentShift moves leaf rows relative to composite rows; clamped to -1..1.
	LeafIndentShift int `json:"leafIndentShift"`
}

// BuilderConfig contains tree builder settings
type BuilderConfig struct {
	Format           string        `json:"format"`
	ValueComposition bool          `json:"valueComposition"`
	TypedObjects     bool          `json:"typedObjects"`
	WatchDebounce    time.Duration `json:"watchDebounce"`
}

// StorageConfig selects and configures the collapse-state backend.
type StorageConfig struct {
	Backend    string           `json:"backend"`
	Key        string           `json:"key"`
	Timeout    time.Duration    `json:"timeout"`
	FilePath   string           `json:"filePath"`
	Postgres   PostgresConfig   `json:"postgres"`
	SQL        SQLConfig        `json:"sql"`
	S3         S3Config         `json:"s3"`
	Resilience ResilienceConfig `json:"resilience"`
}

// PostgresConfig configures the pgx backed store. When IAMAuth is set the
// password is replaced by a DSQL IAM token generated for Endpoint/Region.
type PostgresConfig struct {
	DSN      string `json:"dsn"`
	Table    string `json:"table"`
	IAMAuth  bool   `json:"iamAuth"`
	Endpoint string `json:"endpoint"`
	Region   string `json:"region"`
	User     string `json:"user"`
	Database string `json:"database"`
	Port     int    `json:"port"`
}

// SQLConfig configures the database/sql store.
type SQLConfig struct {
	Driver string `json:"driver"` // postgres or duckdb
	DSN    string `json:"dsn"`
	Table  string `json:"table"`
}

// S3Config configures the object store backend.
type S3Config struct {
	Bucket          string `json:"bucket"`
	Prefix          string `json:"prefix"`
	Region          string `json:"region"`
	Endpoint        string `json:"endpoint"`
	UsePathStyle    bool   `json:"usePathStyle"`
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
}

// ResilienceConfig contains circuit breaker settings for remote stores
type ResilienceConfig struct {
	Enabled          bool          `json:"enabled"`
	FailureThreshold int           `json:"failureThreshold"`
	FailureWindow    time.Duration `json:"failureWindow"`
	OpenDuration     time.Duration `json:"openDuration"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `json:"level"`
	Format      string `json:"format"`
	Development bool   `json:"development"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Projection: ProjectionConfig{
			LeafIndentShift: 0,
		},
		Builder: BuilderConfig{
			Format:        FormatAuto,
			WatchDebounce: 100 * time.Millisecond,
		},
		Storage: StorageConfig{
			Backend:  BackendMemory,
			Key:      "default",
			Timeout:  5 * time.Second,
			FilePath: "propgrid-state.json",
			Postgres: PostgresConfig{
				Table: "propgrid_collapse_state",
				Port:  5432,
			},
			SQL: SQLConfig{
				Driver: "duckdb",
				Table:  "propgrid_collapse_state",
			},
			S3: S3Config{
				Prefix: "propgrid/",
			},
			Resilience: ResilienceConfig{
				Enabled:          true,
				FailureThreshold: 3,
				FailureWindow:    30 * time.Second,
				OpenDuration:     10 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Builder.Format {
	case FormatAuto, FormatYAML, FormatTOML, FormatJSON, FormatJSONSchema:
	default:
		return &ConfigError{Field: "builder.format", Message: "must be one of auto, yaml, toml, json, jsonschema"}
	}

	if c.Storage.Key == "" {
		return &ConfigError{Field: "storage.key", Message: "must not be empty"}
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Storage.FilePath == "" {
			return &ConfigError{Field: "storage.filePath", Message: "is required for the file backend"}
		}
	case BackendPostgres:
		pg := c.Storage.Postgres
		if pg.IAMAuth {
			if pg.Endpoint == "" || pg.Region == "" {
				return &ConfigError{Field: "storage.postgres.endpoint", Message: "endpoint and region are required for IAM auth"}
			}
		} else if pg.DSN == "" {
			return &ConfigError{Field: "storage.postgres.dsn", Message: "is required"}
		}
		if pg.Table == "" {
			return &ConfigError{Field: "storage.postgres.table", Message: "must not be empty"}
		}
	case BackendSQL:
		if c.Storage.SQL.Driver != "postgres" && c.Storage.SQL.Driver != "duckdb" {
			return &ConfigError{Field: "storage.sql.driver", Message: "must be postgres or duckdb"}
		}
		if c.Storage.SQL.Table == "" {
			return &ConfigError{Field: "storage.sql.table", Message: "must not be empty"}
		}
	case BackendS3:
		if c.Storage.S3.Bucket == "" {
			return &ConfigError{Field: "storage.s3.bucket", Message: "is required for the s3 backend"}
		}
	default:
		return &ConfigError{Field: "storage.backend", Message: "unknown backend " + c.Storage.Backend}
	}

	if c.Storage.Resilience.Enabled && c.Storage.Resilience.FailureThreshold <= 0 {
		return &ConfigError{Field: "storage.resilience.failureThreshold", Message: "must be greater than 0"}
	}

	return nil
}

// ClampIndentShift limits a leaf indentation shift to -1..1.
func ClampIndentShift(shift int) int {
	return max(-1, min(1, shift))
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
