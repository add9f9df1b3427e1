// Package guardianconfig provides Guardian's configuration schema and
// loading, built on viper for layered YAML/env decoding and
// go-playground/validator for struct validation.
package guardianconfig

// Config is the top-level Guardian configuration.
type Config struct {
	// ServerName identifies the MCP server being proxied; used as the
	// first component of approval ids and the session context.
	ServerName string `yaml:"server_name" mapstructure:"server_name" validate:"required"`

	// GuardProfile is a "{namespace}.{profile_name}" reference, defaulting
	// to "mcp-guardian.default".
	GuardProfile string `yaml:"guard_profile" mapstructure:"guard_profile" validate:"required"`

	// HostSessionID is an optional identifier supplied by the host
	// application (or via --host-session-id). It is decoded and stored
	// here only; the run command does not pass it to the pump session.
	HostSessionID string `yaml:"host_session_id" mapstructure:"host_session_id"`

	// Catalogs configures where on-disk guard-profile and approval
	// directories live.
	Catalogs CatalogsConfig `yaml:"catalogs" mapstructure:"catalogs"`

	// Telemetry configures the ambient observability stack.
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`

	// Log configures the structured logger.
	Log LogConfig `yaml:"log" mapstructure:"log"`
}

// CatalogsConfig configures the on-disk directories for guard-profile,
// MCP-server, and approval state catalogs.
type CatalogsConfig struct {
	// GuardProfilesDir holds namespaced guard-profile JSON documents.
	GuardProfilesDir string `yaml:"guard_profiles_dir" mapstructure:"guard_profiles_dir" validate:"required"`
	// McpServersDir holds namespaced MCP-server definition JSON documents.
	McpServersDir string `yaml:"mcp_servers_dir" mapstructure:"mcp_servers_dir" validate:"required"`
	// ApprovalsDir is the root of the pending/approved/denied tree.
	ApprovalsDir string `yaml:"approvals_dir" mapstructure:"approvals_dir" validate:"required"`
}

// TelemetryConfig configures Prometheus metrics and OpenTelemetry tracing.
type TelemetryConfig struct {
	// MetricsAddr is decoded from configuration but not used: no /metrics
	// listener is started for any value. Metrics are collected in-process
	// only and are not exported over HTTP.
	MetricsAddr string `yaml:"metrics_addr" mapstructure:"metrics_addr"`
	// Tracing enables OpenTelemetry span export via the stdout exporter.
	Tracing bool `yaml:"tracing" mapstructure:"tracing"`
}

// LogConfig configures the slog logger.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level" mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	// Format is "json" or "text".
	Format string `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=json text"`
}

// Default returns a Config with sensible out-of-the-box defaults:
// guard_profile "mcp-guardian.default", json logging at info level.
func Default() Config {
	return Config{
		GuardProfile: "mcp-guardian.default",
		Catalogs: CatalogsConfig{
			GuardProfilesDir: defaultGuardProfilesDir(),
			McpServersDir:    defaultMcpServersDir(),
			ApprovalsDir:     defaultApprovalsDir(),
		},
		Telemetry: TelemetryConfig{
			Tracing: false,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
