package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcp-guardian/guardian/internal/approval"
	"github.com/mcp-guardian/guardian/internal/guardianconfig"
	"github.com/mcp-guardian/guardian/internal/guardprofile"
	"github.com/mcp-guardian/guardian/internal/mcpserver"
	"github.com/mcp-guardian/guardian/internal/pump"
	"github.com/mcp-guardian/guardian/internal/telemetry"
)

// ErrConfiguration is returned for any problem detected before the
// pump starts: a bad flag combination, an unloadable guard profile, or
// a malformed config file.
var ErrConfiguration = errors.New("guardian: configuration error")

var (
	runServerRef     string
	runName          string
	runHostSessionID string
	runGuardProfile  string
)

var runCmd = &cobra.Command{
	Use:   "run -- <command> [args...]",
	Short: "Run an MCP server under Guardian's policy enforcement",
	Long: `Run spawns an MCP server (either an inline command given after "--",
or a named entry from the MCP-server catalog via --server) and proxies
stdio between it and the host process (this command's own stdin/stdout),
routing every message through the compiled guard profile.

Examples:
  guardian run --guard-profile mcp-guardian.default -- npx my-mcp-server
  guardian run --server teamcatalog.filesystem --name fs-guard`,
	RunE:               runGuardian,
	Args:               cobra.ArbitraryArgs,
	DisableFlagParsing: false,
}

func init() {
	runCmd.Flags().StringVar(&runServerRef, "server", "", "MCP-server catalog reference \"namespace.name\" (alternative to an inline command)")
	runCmd.Flags().StringVar(&runName, "name", "", "display name for this session (defaults to the catalog entry name, else the configured server_name)")
	runCmd.Flags().StringVar(&runHostSessionID, "host-session-id", "", "optional host-supplied session identifier")
	runCmd.Flags().StringVar(&runGuardProfile, "guard-profile", "", "guard-profile reference \"namespace.name\" (overrides config)")
	rootCmd.AddCommand(runCmd)
}

func runGuardian(c *cobra.Command, args []string) error {
	cfg, err := guardianconfig.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	command, cmdArgs, name, err := resolveServerCommand(args, cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	if runName != "" {
		name = runName
	}
	if runGuardProfile != "" {
		cfg.GuardProfile = runGuardProfile
	}
	if runHostSessionID != "" {
		cfg.HostSessionID = runHostSessionID
	}
	if name == "" {
		name = cfg.ServerName
	}
	if name == "" {
		name = command
	}

	logger := newLogger(cfg.Log)

	namespace, profileName, ok := guardianconfig.ParseGuardProfileRef(cfg.GuardProfile)
	if !ok {
		return fmt.Errorf("%w: guard_profile %q must be \"namespace.profile_name\"", ErrConfiguration, cfg.GuardProfile)
	}

	profiles := guardprofile.NewCatalog(cfg.Catalogs.GuardProfilesDir)
	doc, found, err := profiles.Load(namespace, profileName)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if !found {
		return fmt.Errorf("%w: guard profile %q not found", ErrConfiguration, cfg.GuardProfile)
	}

	approvalStore, err := approval.NewStore(cfg.Catalogs.ApprovalsDir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	registry := telemetry.NewRegistry()
	metrics := telemetry.NewMetrics(registry)

	tracer := telemetry.NoopTracer()
	if cfg.Telemetry.Tracing {
		tp, err := telemetry.NewTracerProvider(c.Context(), os.Stderr, name)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		defer func() { _ = tp.Shutdown(context.Background()) }()
		tracer = tp.Tracer("mcp-guardian")
	}

	compiled, err := guardprofile.Compile(doc, guardprofile.CompileDeps{
		ServerName:    name,
		ApprovalStore: approvalStore,
		Logger:        logger,
		Metrics:       metrics,
		Tracer:        tracer,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := &pump.Session{
		Command:     command,
		Args:        cmdArgs,
		Interceptor: compiled,
		Logger:      logger,
		Metrics:     metrics,
		Tracer:      tracer,
		ServerName:  name,
	}

	logger.Info("starting session", "server_name", name, "guard_profile", cfg.GuardProfile, "command", command)

	if err := session.Run(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("session ended with error", "error", err)
		os.Exit(2)
		return err
	}

	return nil
}

// resolveServerCommand enforces "exactly one of {inline command, catalog
// reference}": args (after "--") is the inline command, or --server
// names a catalog entry, never both and never neither.
func resolveServerCommand(args []string, cfg guardianconfig.Config) (command string, cmdArgs []string, name string, err error) {
	hasInline := len(args) > 0
	hasCatalog := runServerRef != ""

	switch {
	case hasInline && hasCatalog:
		return "", nil, "", errors.New("specify either an inline command or --server, not both")
	case hasInline:
		return args[0], args[1:], "", nil
	case hasCatalog:
		namespace, serverName, ok := strings.Cut(runServerRef, ".")
		if !ok || namespace == "" || serverName == "" {
			return "", nil, "", fmt.Errorf("--server %q must be \"namespace.name\"", runServerRef)
		}
		catalog := mcpserver.NewCatalog(cfg.Catalogs.McpServersDir)
		doc, found, loadErr := catalog.Load(namespace, serverName)
		if loadErr != nil {
			return "", nil, "", loadErr
		}
		if !found {
			return "", nil, "", fmt.Errorf("mcp-server %q not found in catalog", runServerRef)
		}
		return doc.Command, doc.Args, serverName, nil
	default:
		return "", nil, "", errors.New("no command specified; usage: guardian run -- <command> [args...] or --server <namespace.name>")
	}
}

func newLogger(cfg guardianconfig.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
