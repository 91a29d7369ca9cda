package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	oauth "github.com/giantswarm/mcp-oauth"
	"github.com/giantswarm/mcp-oauth/providers/dex"
	oauthserver "github.com/giantswarm/mcp-oauth/server"
	"github.com/giantswarm/mcp-oauth/storage/memory"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// OAuthProviderDex is the Dex OIDC provider.
const OAuthProviderDex = "dex"

// OAuthConfig holds configuration for the OAuth-enabled HTTP server.
type OAuthConfig struct {
	// BaseURL is the server's public base URL (e.g. https://persona-gepa.example.com).
	BaseURL string

	// Provider is the OAuth provider name. Only "dex" is supported.
	Provider string

	DexIssuerURL    string
	DexClientID     string
	DexClientSecret string
}

// Validate checks that the configuration is complete and that the base URL
// satisfies the OAuth 2.1 HTTPS requirement.
func (c OAuthConfig) Validate() error {
	if c.Provider != "" && c.Provider != OAuthProviderDex {
		return fmt.Errorf("unsupported OAuth provider %q (supported: %s)", c.Provider, OAuthProviderDex)
	}
	if err := validateHTTPSRequirement(c.BaseURL); err != nil {
		return fmt.Errorf("OAuth base URL validation failed: %w", err)
	}
	switch {
	case c.DexIssuerURL == "":
		return fmt.Errorf("dex issuer URL is required")
	case c.DexClientID == "":
		return fmt.Errorf("dex client ID is required")
	case c.DexClientSecret == "":
		return fmt.Errorf("dex client secret is required")
	}
	return nil
}

// OAuthHTTPServer serves MCP over streamable HTTP behind OAuth 2.1 bearer
// token validation.
type OAuthHTTPServer struct {
	*HTTPServer
	oauthServer *oauth.Server
}

// NewOAuthHTTPServer creates an OAuth-protected HTTP server for mcpSrv.
func NewOAuthHTTPServer(mcpSrv *mcpserver.MCPServer, addr, endpoint string, cfg OAuthConfig) (*OAuthHTTPServer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dexProvider, err := dex.NewProvider(&dex.Config{
		IssuerURL:    cfg.DexIssuerURL,
		ClientID:     cfg.DexClientID,
		ClientSecret: cfg.DexClientSecret,
		RedirectURL:  cfg.BaseURL + "/oauth/callback",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Dex provider: %w", err)
	}

	// Single-instance deployment, so tokens and clients stay in memory.
	store := memory.New()
	logger := slog.Default()

	oauthSrv, err := oauth.NewServer(
		dexProvider,
		store,
		store,
		store,
		&oauthserver.Config{
			Issuer:                    cfg.BaseURL,
			AllowRefreshTokenRotation: true,
			MaxClientsPerIP:           10,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OAuth server: %w", err)
	}
	handler := oauth.NewHandler(oauthSrv, logger)

	mux := NewMux(mcpSrv, endpoint, func(next http.Handler) http.Handler {
		return handler.ValidateToken(next)
	})
	handler.RegisterAuthorizationServerMetadataRoutes(mux)
	handler.RegisterProtectedResourceMetadataRoutes(mux, endpoint)
	mux.HandleFunc("/oauth/authorize", handler.ServeAuthorization)
	mux.HandleFunc("/oauth/token", handler.ServeToken)
	mux.HandleFunc("/oauth/callback", handler.ServeCallback)
	mux.HandleFunc("/oauth/register", handler.ServeClientRegistration)
	mux.HandleFunc("/oauth/revoke", handler.ServeTokenRevocation)
	mux.HandleFunc("/oauth/introspect", handler.ServeTokenIntrospection)

	return &OAuthHTTPServer{
		HTTPServer:  &HTTPServer{httpServer: newHTTPServer(addr, mux)},
		oauthServer: oauthSrv,
	}, nil
}

// Shutdown stops the OAuth server and then the HTTP server.
func (s *OAuthHTTPServer) Shutdown(ctx context.Context) error {
	if err := s.oauthServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown OAuth server", "error", err)
	}
	return s.HTTPServer.Shutdown(ctx)
}

// validateHTTPSRequirement allows plain HTTP only for loopback hosts.
func validateHTTPSRequirement(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		switch u.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			return nil
		}
		return fmt.Errorf("OAuth 2.1 requires HTTPS for production (got: %s). Use HTTPS or localhost for development", baseURL)
	default:
		return fmt.Errorf("invalid URL scheme: %s (must be http for localhost or https)", u.Scheme)
	}
}
