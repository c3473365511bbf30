// Command mcp-amr runs the MCP tool server for Azure Managed Redis. It
// loads configuration from the environment (optionally layered over a
// YAML/JSON file named by MCP_CONFIG_FILE), connects to the Redis
// deployment, registers the Redis tool set, and serves the HTTP+SSE
// transport behind the configured authentication gateway.
//
// Configuration is read through the layered loader in pkg/config; see
// the Config types in pkg/mcp, pkg/auth, and pkg/clients/redis for the
// full list of environment variables.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/AzureManagedRedis/mcp-amr/pkg/auth"
	"github.com/AzureManagedRedis/mcp-amr/pkg/clients/redis"
	"github.com/AzureManagedRedis/mcp-amr/pkg/config"
	"github.com/AzureManagedRedis/mcp-amr/pkg/mcp"
	"github.com/AzureManagedRedis/mcp-amr/pkg/tools"
)

// AppConfig aggregates the server, auth, and Redis sections. Each
// section's env tags already carry a subsystem prefix (MCP_, AUTH_,
// REDIS_), so the loader runs without a global prefix.
type AppConfig struct {
	LogLevel string       `json:"log_level" yaml:"log_level" env:"MCP_LOG_LEVEL" envDefault:"info"`
	Server   mcp.Config   `json:"server" yaml:"server"`
	Auth     auth.Config  `json:"auth" yaml:"auth"`
	Redis    redis.Config `json:"redis" yaml:"redis"`
}

// Validate implements the config.Validator interface.
func (c *AppConfig) Validate() error {
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Redis.Validate()
}

func main() {
	loader := config.New()
	if path := os.Getenv("MCP_CONFIG_FILE"); path != "" {
		loader = loader.WithFile(path)
	}
	cfg := config.MustLoad[AppConfig](loader)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err, "addr", cfg.Redis.Addr())
		os.Exit(1)
	}
	defer client.Close()
	logger.Info("connected to redis",
		"addr", cfg.Redis.Addr(),
		"tls", cfg.Redis.TLSEnabled,
		"cluster", cfg.Redis.ClusterEnabled)

	gateway, err := auth.NewGateway(cfg.Auth)
	if err != nil {
		logger.Error("failed to build auth gateway", "error", err)
		os.Exit(1)
	}
	logAuthSummary(logger, cfg.Auth)

	registry := mcp.NewRegistry()
	if err := tools.Register(registry, client); err != nil {
		logger.Error("failed to register tools", "error", err)
		os.Exit(1)
	}

	toolNames := make([]string, 0, registry.Len())
	for _, tool := range registry.List() {
		toolNames = append(toolNames, tool.Name)
	}
	logger.Info("registered tools", "count", registry.Len(), "tools", strings.Join(toolNames, ", "))

	srv, err := mcp.NewServer(cfg.Server, gateway, registry, logger)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	if err := srv.Serve(ctx); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// logAuthSummary reports how the gateway will treat incoming requests,
// without ever logging credential material.
func logAuthSummary(logger *slog.Logger, cfg auth.Config) {
	switch cfg.Mode {
	case auth.ModeAPIKey:
		logger.Info("authentication enabled",
			"mode", string(cfg.Mode),
			"api_keys", len(cfg.APIKeys),
			"header", auth.HeaderAPIKey)
	case auth.ModeEntraID:
		logger.Info("authentication enabled",
			"mode", string(cfg.Mode),
			"tenant_id", cfg.TenantID,
			"client_id", cfg.ClientID,
			"required_scopes", strings.Join(cfg.RequiredScopes, ", "))
	default:
		logger.Warn("authentication disabled, all requests accepted",
			"mode", string(cfg.Mode))
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
