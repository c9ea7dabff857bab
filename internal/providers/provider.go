// Package providers defines the multi-platform OAuth provider registry.
//
// Each of the nine publishing platforms is described by a static Spec: its
// authorization/token/identity endpoints, scopes, and the small set of
// exchange quirks (PKCE, HTTP Basic client auth, extra headers/params) that
// differentiate the dialects. Every other component is written against this
// table; only identity-response parsing and publishing are per-provider code.
//
// Two logical platforms (instagram, threads) ride the Meta OAuth app: they
// share the facebook provider's client credentials and callback. The
// authorization flow resolves the logical platform from the stored state,
// never from the callback URL alone.
package providers

import (
	"errors"
	"fmt"
)

// Platform is a logical publishing destination.
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformThreads   Platform = "threads"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformPinterest Platform = "pinterest"
	PlatformReddit    Platform = "reddit"
)

// All lists every supported logical platform.
var All = []Platform{
	PlatformTwitter, PlatformLinkedIn, PlatformFacebook, PlatformInstagram,
	PlatformThreads, PlatformTikTok, PlatformYouTube, PlatformPinterest,
	PlatformReddit,
}

var (
	ErrUnknownPlatform       = errors.New("providers: unknown platform")
	ErrProviderNotConfigured = errors.New("providers: provider not configured")
)

// Spec describes one OAuth provider (one registered app).
type Spec struct {
	// Name is the provider key: the OAuth app this spec belongs to.
	Name string

	AuthURL     string
	TokenURL    string
	IdentityURL string
	Scopes      []string

	// RequiresPKCE: the provider mandates code_challenge/code_verifier (S256).
	RequiresPKCE bool

	// AuthViaBasic: client id/secret go in an Authorization: Basic header on
	// the token exchange instead of the form body.
	AuthViaBasic bool

	// ExtraHeaders are sent on every token-endpoint and identity call.
	// Reddit rejects requests without a descriptive User-Agent.
	ExtraHeaders map[string]string

	// ExtraAuthParams are appended to the authorization URL.
	ExtraAuthParams map[string]string

	// ClientIDParam overrides the query-parameter name used for the client
	// id on the authorization URL. TikTok calls it client_key.
	ClientIDParam string
}

// ClientIDParamName returns the provider's parameter name for the client id.
func (s Spec) ClientIDParamName() string {
	if s.ClientIDParam != "" {
		return s.ClientIDParam
	}
	return "client_id"
}

// Provider returns the OAuth provider key backing a logical platform.
// Instagram and Threads publish through the Meta (facebook) app.
func (p Platform) Provider() (string, error) {
	switch p {
	case PlatformInstagram, PlatformThreads:
		return string(PlatformFacebook), nil
	case PlatformTwitter, PlatformLinkedIn, PlatformFacebook, PlatformTikTok,
		PlatformYouTube, PlatformPinterest, PlatformReddit:
		return string(p), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, p)
	}
}

// ParsePlatform validates a platform name from user input.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(s)
	if _, err := p.Provider(); err != nil {
		return "", err
	}
	return p, nil
}
