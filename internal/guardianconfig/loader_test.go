package guardianconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_FromExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guardian.yaml")
	yaml := `
server_name: my-server
guard_profile: mcp-guardian.default
catalogs:
  guard_profiles_dir: /tmp/profiles
  mcp_servers_dir: /tmp/servers
  approvals_dir: /tmp/approvals
log:
  level: debug
  format: text
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerName != "my-server" {
		t.Fatalf("ServerName = %q, want my-server", cfg.ServerName)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Fatalf("Log = %+v, want debug/text", cfg.Log)
	}
	if cfg.Catalogs.GuardProfilesDir != "/tmp/profiles" {
		t.Fatalf("GuardProfilesDir = %q", cfg.Catalogs.GuardProfilesDir)
	}
}

func TestLoad_MissingFileUsesDefaultsAndFailsValidation(t *testing.T) {
	// No server_name is set anywhere, so a config file that doesn't exist
	// and supplies no env overlay must fail validation (server_name is
	// required and has no default).
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("expected Load to fail validation without a server_name")
	}
}

func TestLoad_EnvOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guardian.yaml")
	yaml := `
server_name: my-server
guard_profile: mcp-guardian.default
catalogs:
  guard_profiles_dir: /tmp/profiles
  mcp_servers_dir: /tmp/servers
  approvals_dir: /tmp/approvals
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("GUARDIAN_SERVER_NAME", "overridden-server")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerName != "overridden-server" {
		t.Fatalf("ServerName = %q, want env override \"overridden-server\"", cfg.ServerName)
	}
}
