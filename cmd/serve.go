package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	mcptools "github.com/giantswarm/persona-gepa/internal/mcp"
	"github.com/giantswarm/persona-gepa/internal/optimizer"
	"github.com/giantswarm/persona-gepa/internal/server"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

func newServeCmd() *cobra.Command {
	var (
		transport    string
		httpAddr     string
		httpEndpoint string
		dataDir      string

		enableOAuth bool
		oauthCfg    server.OAuthConfig
	)
	flags := newConfigFlags()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server to expose persona optimization, answering, judging and
artifact tools via the Model Context Protocol.

Supports multiple transport types:
  - stdio: Standard input/output (default, for IDE integration)
  - streamable-http: HTTP with streaming support (for remote access)

When using streamable-http transport, OAuth 2.1 authentication can be enabled.
The HTTP transport also serves /healthz and Prometheus metrics on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			client, closeClient, err := newLLMClient(cfg)
			if err != nil {
				return err
			}
			defer closeClient()

			sc := &server.ServerContext{
				LLMClient: client,
				Optimizer: optimizer.NewGEPA(client, cfg.Persona, cfg.Reflection),
				Config:    cfg,
				OutputDir: cfg.OutputDir,
				DataDir:   dataDir,
			}

			mcpSrv := mcpserver.NewMCPServer("persona-gepa", rootCmd.Version,
				mcpserver.WithToolCapabilities(true),
			)
			if err := mcptools.RegisterTools(mcpSrv, sc); err != nil {
				return fmt.Errorf("failed to register MCP tools: %w", err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			switch transport {
			case transportStdio:
				return runStdioServer(mcpSrv)
			case transportStreamableHTTP:
				return runHTTPServer(ctx, mcpSrv, httpAddr, httpEndpoint, enableOAuth, oauthCfg)
			default:
				return fmt.Errorf("unsupported transport: %s (supported: %s, %s)", transport, transportStdio, transportStreamableHTTP)
			}
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	fs.StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http)")
	fs.StringVar(&httpEndpoint, "http-endpoint", "/mcp", "HTTP endpoint path (for streamable-http)")
	fs.StringVar(&dataDir, "data-dir", "data", "Directory holding the interview files tools may read")
	flags.addConfigFile(fs)
	flags.addPersona(fs)
	flags.addJudge(fs)
	flags.addReflection(fs)
	flags.addOptimize(fs)
	flags.addThreads(fs)
	flags.addWeights(fs)
	flags.addAPI(fs)

	fs.BoolVar(&enableOAuth, "enable-oauth", false, "Enable OAuth 2.1 authentication (for HTTP transport)")
	fs.StringVar(&oauthCfg.BaseURL, "oauth-base-url", "", "OAuth base URL (e.g. https://persona-gepa.example.com)")
	fs.StringVar(&oauthCfg.Provider, "oauth-provider", server.OAuthProviderDex, "OAuth provider: dex")
	fs.StringVar(&oauthCfg.DexIssuerURL, "dex-issuer-url", "", "Dex OIDC issuer URL (or set DEX_ISSUER_URL)")
	fs.StringVar(&oauthCfg.DexClientID, "dex-client-id", "", "Dex OAuth client ID (or set DEX_CLIENT_ID)")
	fs.StringVar(&oauthCfg.DexClientSecret, "dex-client-secret", "", "Dex OAuth client secret (or set DEX_CLIENT_SECRET)")

	return cmd
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, addr, endpoint string, enableOAuth bool, oauthCfg server.OAuthConfig) error {
	if !enableOAuth {
		slog.Info("starting MCP server", "transport", transportStreamableHTTP, "addr", addr, "endpoint", endpoint)
		return server.Run(ctx, server.NewHTTPServer(mcpSrv, addr, endpoint))
	}

	if oauthCfg.BaseURL == "" {
		return fmt.Errorf("--oauth-base-url is required when --enable-oauth is set")
	}
	if oauthCfg.DexIssuerURL == "" {
		oauthCfg.DexIssuerURL = os.Getenv("DEX_ISSUER_URL")
	}
	if oauthCfg.DexClientID == "" {
		oauthCfg.DexClientID = os.Getenv("DEX_CLIENT_ID")
	}
	if oauthCfg.DexClientSecret == "" {
		oauthCfg.DexClientSecret = os.Getenv("DEX_CLIENT_SECRET")
	}

	srv, err := server.NewOAuthHTTPServer(mcpSrv, addr, endpoint, oauthCfg)
	if err != nil {
		return fmt.Errorf("failed to create OAuth HTTP server: %w", err)
	}

	slog.Info("starting OAuth-protected MCP server",
		"addr", addr,
		"endpoint", endpoint,
		"base_url", oauthCfg.BaseURL,
		"provider", oauthCfg.Provider,
	)
	return server.Run(ctx, srv)
}
