package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/gopherctl/gopherctl/internal/logging"
)

// wwwAuthenticatePatterns extracts the parameters MCP servers advertise on
// a 401/403 response, tried in order until one matches.
var wwwAuthenticatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`resource_metadata="([^"]+)"`),
	regexp.MustCompile(`resource_metadata=([^,\s]+)`),
	regexp.MustCompile(`realm="([^"]+)"`),
}

// resourceMetadata is the subset of RFC 9728 OAuth Protected Resource
// Metadata this client needs to locate the authorization server.
type resourceMetadata struct {
	AuthorizationServers []string `json:"authorization_servers"`
	Resource              string   `json:"resource"`
}

// authServerMetadata is the subset of RFC 8414 Authorization Server
// Metadata needed to run the authorization-code flow.
type authServerMetadata struct {
	AuthorizationEndpoint string   `json:"authorization_endpoint"`
	TokenEndpoint         string   `json:"token_endpoint"`
	RegistrationEndpoint  string   `json:"registration_endpoint,omitempty"`
	ScopesSupported       []string `json:"scopes_supported,omitempty"`
}

// OAuthTokenStore persists bearer tokens across process restarts, keyed by
// MCP server name. Implementations live alongside the rest of this app's
// persisted state (settings directory).
type OAuthTokenStore interface {
	Load(serverName string) (*oauth2.Token, error)
	Save(serverName string, token *oauth2.Token) error
}

// OAuthFlow drives the MCP OAuth fallback: parse the WWW-Authenticate
// challenge, discover the resource and authorization server metadata,
// run an authorization-code exchange, and persist the resulting token.
type OAuthFlow struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Store        OAuthTokenStore

	// PromptForCode is invoked with the authorization URL to visit; it
	// must return the authorization code the user pastes back.
	PromptForCode func(ctx context.Context, authURL string) (string, error)

	httpClient *http.Client
}

// NewOAuthFlow constructs a flow with a default HTTP client.
func NewOAuthFlow(clientID, clientSecret, redirectURL string, store OAuthTokenStore, promptForCode func(ctx context.Context, authURL string) (string, error)) *OAuthFlow {
	return &OAuthFlow{
		ClientID:      clientID,
		ClientSecret:  clientSecret,
		RedirectURL:   redirectURL,
		Store:         store,
		PromptForCode: promptForCode,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
	}
}

// ParseResourceMetadataURL extracts the resource_metadata (or realm) URL
// from a WWW-Authenticate header value.
func ParseResourceMetadataURL(wwwAuthenticate string) string {
	for _, pat := range wwwAuthenticatePatterns {
		if m := pat.FindStringSubmatch(wwwAuthenticate); len(m) == 2 {
			return strings.Trim(m[1], `"`)
		}
	}
	return ""
}

// Resolve runs the full fallback flow for a server that returned a 401/403
// with the given WWW-Authenticate header and base server URL, returning a
// usable bearer token.
func (f *OAuthFlow) Resolve(ctx context.Context, serverName, serverURL, wwwAuthenticate string) (*oauth2.Token, error) {
	if tok, err := f.Store.Load(serverName); err == nil && tok != nil && tok.Valid() {
		return tok, nil
	}

	metadataURL := ParseResourceMetadataURL(wwwAuthenticate)
	if metadataURL == "" {
		// Fall back to the well-known path derived from the server's base URL.
		metadataURL = f.wellKnownResourceMetadataURL(serverURL)
	}

	resMeta, err := f.fetchResourceMetadata(ctx, metadataURL)
	if err != nil {
		logging.Warn("MCP OAuth resource metadata discovery failed, probing base URL", "error", err)
		resMeta = &resourceMetadata{AuthorizationServers: []string{f.wellKnownAuthServerURL(serverURL)}}
	}

	if len(resMeta.AuthorizationServers) == 0 {
		return nil, fmt.Errorf("no authorization servers advertised for %s", serverName)
	}

	authMeta, err := f.fetchAuthServerMetadata(ctx, resMeta.AuthorizationServers[0])
	if err != nil {
		return nil, fmt.Errorf("authorization server metadata discovery failed: %w", err)
	}

	conf := &oauth2.Config{
		ClientID:     f.ClientID,
		ClientSecret: f.ClientSecret,
		RedirectURL:  f.RedirectURL,
		Scopes:       authMeta.ScopesSupported,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authMeta.AuthorizationEndpoint,
			TokenURL: authMeta.TokenEndpoint,
		},
	}

	state := serverName
	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline)

	code, err := f.PromptForCode(ctx, authURL)
	if err != nil {
		return nil, fmt.Errorf("authorization code prompt failed: %w", err)
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	if err := f.Store.Save(serverName, token); err != nil {
		logging.Warn("failed to persist MCP OAuth token", "server", serverName, "error", err)
	}

	return token, nil
}

func (f *OAuthFlow) wellKnownResourceMetadataURL(serverURL string) string {
	u, err := url.Parse(serverURL)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s://%s/.well-known/oauth-protected-resource", u.Scheme, u.Host)
}

func (f *OAuthFlow) wellKnownAuthServerURL(serverURL string) string {
	u, err := url.Parse(serverURL)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host)
}

func (f *OAuthFlow) fetchResourceMetadata(ctx context.Context, metadataURL string) (*resourceMetadata, error) {
	if metadataURL == "" {
		return nil, fmt.Errorf("empty resource metadata URL")
	}
	var meta resourceMetadata
	if err := f.fetchJSON(ctx, metadataURL, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (f *OAuthFlow) fetchAuthServerMetadata(ctx context.Context, authServerBase string) (*authServerMetadata, error) {
	wellKnown := strings.TrimRight(authServerBase, "/") + "/.well-known/oauth-authorization-server"
	var meta authServerMetadata
	if err := f.fetchJSON(ctx, wellKnown, &meta); err == nil && meta.TokenEndpoint != "" {
		return &meta, nil
	}

	// RFC 8414 also permits discovery under /.well-known/openid-configuration.
	oidcWellKnown := strings.TrimRight(authServerBase, "/") + "/.well-known/openid-configuration"
	if err := f.fetchJSON(ctx, oidcWellKnown, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (f *OAuthFlow) fetchJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: HTTP %d", u, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
