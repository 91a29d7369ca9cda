package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateHTTPSRequirement(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{name: "https is valid", baseURL: "https://persona-gepa.example.com"},
		{name: "localhost http is valid", baseURL: "http://localhost:8080"},
		{name: "127.0.0.1 http is valid", baseURL: "http://127.0.0.1:8080"},
		{name: "ipv6 loopback http is valid", baseURL: "http://[::1]:8080"},
		{name: "non-localhost http is invalid", baseURL: "http://example.com", wantErr: true},
		{name: "empty URL is invalid", baseURL: "", wantErr: true},
		{name: "ftp scheme is invalid", baseURL: "ftp://example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateHTTPSRequirement(tt.baseURL)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOAuthConfigValidate(t *testing.T) {
	valid := OAuthConfig{
		BaseURL:         "https://persona-gepa.example.com",
		Provider:        OAuthProviderDex,
		DexIssuerURL:    "https://dex.example.com",
		DexClientID:     "persona-gepa",
		DexClientSecret: "secret",
	}

	tests := []struct {
		name    string
		mutate  func(*OAuthConfig)
		wantErr string
	}{
		{name: "complete config", mutate: func(*OAuthConfig) {}},
		{name: "empty provider defaults to dex", mutate: func(c *OAuthConfig) { c.Provider = "" }},
		{name: "unknown provider", mutate: func(c *OAuthConfig) { c.Provider = "okta" }, wantErr: `unsupported OAuth provider "okta"`},
		{name: "insecure base url", mutate: func(c *OAuthConfig) { c.BaseURL = "http://example.com" }, wantErr: "OAuth base URL validation failed"},
		{name: "missing issuer", mutate: func(c *OAuthConfig) { c.DexIssuerURL = "" }, wantErr: "dex issuer URL is required"},
		{name: "missing client id", mutate: func(c *OAuthConfig) { c.DexClientID = "" }, wantErr: "dex client ID is required"},
		{name: "missing client secret", mutate: func(c *OAuthConfig) { c.DexClientSecret = "" }, wantErr: "dex client secret is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
