// Package config loads and validates the proxy's YAML configuration.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

// ProxyConfig controls the wire-protocol listener.
type ProxyConfig struct {
	Host            string `yaml:"host" validate:"required"`
	Port            int    `yaml:"port" validate:"required,gt=0,lte=65535"`
	TracingEnabled  bool   `yaml:"tracing_enabled"`
}

// BackendConfig controls the backend connection and its pool.
type BackendConfig struct {
	ConnectionType     string        `yaml:"connection_type" validate:"required,oneof=odbc native"`
	PoolSize           int           `yaml:"pool_size" validate:"required,gt=0"`
	PoolRecycleSeconds int           `yaml:"pool_recycle_seconds" validate:"gte=0"`
	PoolPrePing        bool          `yaml:"pool_pre_ping"`
	QueryTimeoutSecs   int           `yaml:"query_timeout_seconds" validate:"gte=0"`
	Native             NativeConfig  `yaml:"native"`
	ODBC               ODBCConfig    `yaml:"odbc"`
}

// NativeConfig is the connection.type=native dial target.
type NativeConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	Database        string `yaml:"database"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Charset         string `yaml:"charset"`
	ConnectTimeoutS int    `yaml:"connect_timeout"`
}

// ODBCConfig is the connection.type=odbc dial target.
type ODBCConfig struct {
	ConnectionString string `yaml:"connection_string"`
	Driver           string `yaml:"driver"`
	Server           string `yaml:"server"`
	Port             int    `yaml:"port"`
	Database         string `yaml:"database"`
	User             string `yaml:"user"`
	Password         string `yaml:"password"`
	Charset          string `yaml:"charset"`
	Options          string `yaml:"options"`
}

// CapabilitiesConfig lists SQL constructs the backend cannot execute.
type CapabilitiesConfig struct {
	UnsupportedFeatures  []string `yaml:"unsupported_features"`
	UnsupportedFunctions []string `yaml:"unsupported_functions"`
}

// TransformationsConfig controls the rewrite stages.
type TransformationsConfig struct {
	UnwrapSubqueries  bool `yaml:"unwrap_subqueries"`
	MaxSubqueryDepth  int  `yaml:"max_subquery_depth" validate:"gte=0"`
	AutoFixGroupBy    bool `yaml:"auto_fix_group_by"`
}

// BusinessRulesConfig controls the mandatory-date-filter gate and schema policy.
type BusinessRulesConfig struct {
	RequireDateFilter bool     `yaml:"require_date_filter"`
	DateColumns       []string `yaml:"date_columns"`
	AllowedSchemas    []string `yaml:"allowed_schemas"`
	BlockedSchemas    []string `yaml:"blocked_schemas"`
}

// SecurityConfig controls the write gate.
type SecurityConfig struct {
	BlockWrites    bool     `yaml:"block_writes"`
	WriteOperations []string `yaml:"write_operations"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level      string `yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR"`
	Format     string `yaml:"format" validate:"required,oneof=text json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	BackupCount int   `yaml:"backup_count"`
}

// Config is the fully decoded, validated root configuration.
type Config struct {
	Proxy           ProxyConfig            `yaml:"proxy" validate:"required"`
	Backend         BackendConfig          `yaml:"backend" validate:"required"`
	Capabilities    CapabilitiesConfig     `yaml:"capabilities"`
	Transformations TransformationsConfig  `yaml:"transformations"`
	BusinessRules   BusinessRulesConfig    `yaml:"business_rules"`
	Security        SecurityConfig         `yaml:"security"`
	Logging         LoggingConfig          `yaml:"logging" validate:"required"`
}

// Default returns a Config populated with the spec's documented defaults.
func Default() Config {
	return Config{
		Proxy: ProxyConfig{Host: "0.0.0.0", Port: 3307},
		Backend: BackendConfig{
			ConnectionType:     "native",
			PoolSize:           10,
			PoolRecycleSeconds: 3600,
			PoolPrePing:        true,
			QueryTimeoutSecs:   30,
		},
		Transformations: TransformationsConfig{
			UnwrapSubqueries: true,
			MaxSubqueryDepth: 2,
			AutoFixGroupBy:   true,
		},
		BusinessRules: BusinessRulesConfig{
			RequireDateFilter: true,
			DateColumns:       []string{"cob_date", "date_index"},
			BlockedSchemas:    []string{"mysql", "information_schema", "performance_schema", "sys"},
		},
		Security: SecurityConfig{
			BlockWrites: true,
			WriteOperations: []string{
				"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER",
				"TRUNCATE", "REPLACE", "GRANT", "REVOKE",
			},
		},
		Logging: LoggingConfig{
			Level:       "INFO",
			Format:      "text",
			MaxSizeMB:   100,
			BackupCount: 7,
		},
	}
}

// Error wraps a configuration load/validate failure.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %q: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads, substitutes, decodes, and validates the config file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	substituted, err := substituteEnv(string(raw))
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(substituted), &cfg); err != nil {
		return nil, &Error{Path: path, Err: fmt.Errorf("parsing yaml: %w", err)}
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, &Error{Path: path, Err: fmt.Errorf("validating config: %w", err)}
	}

	return &cfg, nil
}

func substituteEnv(content string) (string, error) {
	var firstErr error
	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		if firstErr != nil {
			return match
		}
		name := envVarPattern.FindStringSubmatch(match)[1]
		value, ok := os.LookupEnv(name)
		if ok {
			return value
		}
		if strings.HasSuffix(strings.ToUpper(name), "PASSWORD") {
			return ""
		}
		firstErr = fmt.Errorf("environment variable %q not found; set it before starting the proxy", name)
		return match
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// IsWriteOperation reports whether keyword (already upper-cased) is a blocked write op.
func (c *Config) IsWriteOperation(keyword string) bool {
	for _, op := range c.Security.WriteOperations {
		if strings.EqualFold(op, keyword) {
			return true
		}
	}
	return false
}

// IsUnsupportedFeature reports whether feature (e.g. "joins") is disabled.
func (c *Config) IsUnsupportedFeature(feature string) bool {
	for _, f := range c.Capabilities.UnsupportedFeatures {
		if strings.EqualFold(f, feature) {
			return true
		}
	}
	return false
}

// IsUnsupportedFunction reports whether a function name is on the configured blocklist.
func (c *Config) IsUnsupportedFunction(name string) bool {
	for _, f := range c.Capabilities.UnsupportedFunctions {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

// IsSchemaAllowed applies the blocked-then-allowed precedence from the business rules.
func (c *Config) IsSchemaAllowed(schema string) bool {
	for _, b := range c.BusinessRules.BlockedSchemas {
		if strings.EqualFold(b, schema) {
			return false
		}
	}
	if len(c.BusinessRules.AllowedSchemas) == 0 {
		return true
	}
	for _, a := range c.BusinessRules.AllowedSchemas {
		if strings.EqualFold(a, schema) {
			return true
		}
	}
	return false
}
