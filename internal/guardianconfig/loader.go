package guardianconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix for config overlay
// (e.g. GUARDIAN_CATALOGS_GUARD_PROFILES_DIR).
const EnvPrefix = "GUARDIAN"

// Load reads configFile (or searches standard locations if empty),
// overlays GUARDIAN_* environment variables, decodes into a Config
// seeded with Default(), and validates it.
func Load(configFile string) (Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		v.SetConfigFile(found)
	} else {
		v.SetConfigName("guardian")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only applies to keys viper already knows; bind every
	// key so the overlay works even when the file omits it (or is absent).
	for _, k := range []string{"server_name", "guard_profile", "host_session_id",
		"catalogs.guard_profiles_dir", "catalogs.mcp_servers_dir", "catalogs.approvals_dir",
		"telemetry.metrics_addr", "telemetry.tracing", "log.level", "log.format"} {
		_ = v.BindEnv(k)
	}

	cfg := Default()
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("guardianconfig: read config: %w", err)
		}
		// No config file: proceed with defaults + env overlay only.
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("guardianconfig: decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("guardianconfig: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	home, _ := os.UserHomeDir()
	candidates := []string{
		".",
		filepath.Join(home, ".guardian"),
		"/etc/guardian",
	}
	for _, dir := range candidates {
		for _, ext := range []string{"yaml", "yml"} {
			path := filepath.Join(dir, "guardian."+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

func defaultGuardProfilesDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".guardian", "guard-profiles")
}

func defaultMcpServersDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".guardian", "mcp-servers")
}

func defaultApprovalsDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".guardian", "approvals")
}
