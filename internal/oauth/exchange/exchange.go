// Package exchange implements the provider-specific code-for-token exchange
// and the follow-up identity lookup that yields a stable provider-side
// account id.
package exchange

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/postpilothq/postpilot/internal/observability/logger"
	"github.com/postpilothq/postpilot/internal/providers"
)

// maxErrorBody caps how much of a provider error body we keep for
// diagnostics.
const maxErrorBody = 2048

// PlaceholderAccountID marks a credential whose identity call failed after a
// successful token exchange. Flagged, never silently treated as
// authoritative.
const PlaceholderAccountID = "unverified"

// Error is a failed exchange or identity call, carrying the provider's raw
// error body (size-capped).
type Error struct {
	Provider string
	Status   int
	Body     string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("exchange: %s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("exchange: %s: status %d: %s", e.Provider, e.Status, e.Body)
}

func (e *Error) Unwrap() error { return e.Err }

// Result of a successful exchange.
type Result struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int

	// AccountID is the provider-side stable account identifier.
	AccountID string

	// IdentityUnverified is set when the identity call failed independently
	// of a successful token exchange; AccountID then holds a placeholder and
	// the caller must surface the condition.
	IdentityUnverified bool
}

// Adapter performs token exchanges against the provider registry table.
type Adapter struct {
	registry *providers.Registry
	baseURL  string
	http     *http.Client
}

// New creates the exchange adapter. baseURL is the public service URL used
// to reproduce the redirect_uri sent during authorization.
func New(registry *providers.Registry, baseURL string) *Adapter {
	return &Adapter{
		registry: registry,
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Error        string `json:"error,omitempty"`
	ErrorDesc    string `json:"error_description,omitempty"`
}

// Exchange performs the code-for-token POST using the provider's
// credential-transmission method, then resolves the provider-side account
// identifier. A failed identity call after a successful exchange yields the
// tokens with a flagged placeholder id; a failed exchange aborts outright.
func (a *Adapter) Exchange(ctx context.Context, platform providers.Platform, code, verifier string) (*Result, error) {
	spec, err := a.registry.Spec(platform)
	if err != nil {
		return nil, err
	}
	creds, err := a.registry.Credentials(platform)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", fmt.Sprintf("%s/oauth/%s/callback", a.baseURL, spec.Name))
	if spec.RequiresPKCE {
		form.Set("code_verifier", verifier)
	}
	if !spec.AuthViaBasic {
		// Credenciales embebidas en el body (dialecto linkedin/facebook/...)
		form.Set(spec.ClientIDParamName(), creds.ClientID)
		form.Set("client_secret", creds.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, spec.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if spec.AuthViaBasic {
		basic := base64.StdEncoding.EncodeToString([]byte(creds.ClientID + ":" + creds.ClientSecret))
		req.Header.Set("Authorization", "Basic "+basic)
	}
	for k, v := range spec.ExtraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, &Error{Provider: spec.Name, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode/100 != 2 {
		return nil, &Error{Provider: spec.Name, Status: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, &Error{Provider: spec.Name, Status: resp.StatusCode, Body: string(body), Err: err}
	}
	if tr.Error != "" {
		return nil, &Error{Provider: spec.Name, Status: resp.StatusCode, Body: tr.Error + ": " + tr.ErrorDesc}
	}
	if tr.AccessToken == "" {
		return nil, &Error{Provider: spec.Name, Status: resp.StatusCode, Body: "no access_token in response"}
	}

	res := &Result{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresIn:    tr.ExpiresIn,
	}

	accountID, err := a.fetchAccountID(ctx, spec, tr.AccessToken)
	if err != nil {
		// Tokens válidos pero identidad no confirmada: placeholder flaggeado.
		logger.From(ctx).Warn("identity lookup failed after successful exchange",
			logger.Provider(spec.Name), logger.Err(err))
		res.AccountID = PlaceholderAccountID
		res.IdentityUnverified = true
		return res, nil
	}
	res.AccountID = accountID
	return res, nil
}

// Refresh exchanges a refresh token for a new access token.
func (a *Adapter) Refresh(ctx context.Context, platform providers.Platform, refreshToken string) (*Result, error) {
	spec, err := a.registry.Spec(platform)
	if err != nil {
		return nil, err
	}
	creds, err := a.registry.Credentials(platform)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	if !spec.AuthViaBasic {
		form.Set(spec.ClientIDParamName(), creds.ClientID)
		form.Set("client_secret", creds.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, spec.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if spec.AuthViaBasic {
		basic := base64.StdEncoding.EncodeToString([]byte(creds.ClientID + ":" + creds.ClientSecret))
		req.Header.Set("Authorization", "Basic "+basic)
	}
	for k, v := range spec.ExtraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, &Error{Provider: spec.Name, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode/100 != 2 {
		return nil, &Error{Provider: spec.Name, Status: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, &Error{Provider: spec.Name, Status: resp.StatusCode, Body: string(body), Err: err}
	}
	if tr.AccessToken == "" {
		return nil, &Error{Provider: spec.Name, Status: resp.StatusCode, Body: "no access_token in refresh response"}
	}

	return &Result{
		AccessToken: tr.AccessToken,
		// Algunos proveedores rotan el refresh token; si no, conservamos
		// el anterior en la capa de credenciales.
		RefreshToken: tr.RefreshToken,
		ExpiresIn:    tr.ExpiresIn,
	}, nil
}
