package providers

import (
	"fmt"
	"sort"
)

// Credentials is the client id/secret pair for one provider, supplied
// out-of-band via environment configuration.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Registry is the read-only provider table plus the configured credentials.
// A provider with no credentials stays in the table but is reported as not
// configured; authorization against it fails cleanly instead of crashing.
type Registry struct {
	specs map[string]Spec
	creds map[string]Credentials
}

// NewRegistry builds the registry from the static spec table and the
// credentials loaded from the environment.
func NewRegistry(creds map[string]Credentials) *Registry {
	return NewRegistryWithSpecs(specTable, creds)
}

// NewRegistryWithSpecs builds a registry over an explicit spec table. Used by
// tests to point provider endpoints at local servers.
func NewRegistryWithSpecs(specs []Spec, creds map[string]Credentials) *Registry {
	r := &Registry{
		specs: make(map[string]Spec, len(specs)),
		creds: make(map[string]Credentials, len(creds)),
	}
	for _, s := range specs {
		r.specs[s.Name] = s
	}
	for name, c := range creds {
		r.creds[name] = c
	}
	return r
}

// Spec returns the provider spec for a logical platform.
func (r *Registry) Spec(platform Platform) (Spec, error) {
	name, err := platform.Provider()
	if err != nil {
		return Spec{}, err
	}
	s, ok := r.specs[name]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrUnknownPlatform, platform)
	}
	return s, nil
}

// Credentials returns the configured client credentials for a platform's
// provider, or ErrProviderNotConfigured.
func (r *Registry) Credentials(platform Platform) (Credentials, error) {
	name, err := platform.Provider()
	if err != nil {
		return Credentials{}, err
	}
	c, ok := r.creds[name]
	if !ok || c.ClientID == "" || c.ClientSecret == "" {
		return Credentials{}, fmt.Errorf("%w: %q", ErrProviderNotConfigured, name)
	}
	return c, nil
}

// Configured lists the logical platforms whose backing provider has
// credentials, sorted for stable output.
func (r *Registry) Configured() []Platform {
	out := make([]Platform, 0, len(All))
	for _, p := range All {
		if _, err := r.Credentials(p); err == nil {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// specTable is the single point of per-provider OAuth polymorphism.
var specTable = []Spec{
	{
		Name:         "twitter",
		AuthURL:      "https://twitter.com/i/oauth2/authorize",
		TokenURL:     "https://api.twitter.com/2/oauth2/token",
		IdentityURL:  "https://api.twitter.com/2/users/me",
		Scopes:       []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
		RequiresPKCE: true,
		AuthViaBasic: true,
	},
	{
		Name:        "linkedin",
		AuthURL:     "https://www.linkedin.com/oauth/v2/authorization",
		TokenURL:    "https://www.linkedin.com/oauth/v2/accessToken",
		IdentityURL: "https://api.linkedin.com/v2/userinfo",
		Scopes:      []string{"openid", "profile", "w_member_social"},
	},
	{
		Name:        "facebook",
		AuthURL:     "https://www.facebook.com/v19.0/dialog/oauth",
		TokenURL:    "https://graph.facebook.com/v19.0/oauth/access_token",
		IdentityURL: "https://graph.facebook.com/v19.0/me",
		Scopes: []string{
			"pages_manage_posts", "pages_read_engagement",
			"instagram_basic", "instagram_content_publish",
		},
	},
	{
		Name:        "tiktok",
		AuthURL:     "https://www.tiktok.com/v2/auth/authorize/",
		TokenURL:    "https://open.tiktokapis.com/v2/oauth/token/",
		IdentityURL: "https://open.tiktokapis.com/v2/user/info/",
		Scopes:      []string{"user.info.basic", "video.publish"},
		// TikTok llama client_key al client_id en la URL de autorización.
		ClientIDParam: "client_key",
	},
	{
		Name:        "youtube",
		AuthURL:     "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:    "https://oauth2.googleapis.com/token",
		IdentityURL: "https://www.googleapis.com/youtube/v3/channels?part=id&mine=true",
		Scopes:      []string{"https://www.googleapis.com/auth/youtube.upload"},
		// Sin access_type=offline Google no emite refresh_token.
		ExtraAuthParams: map[string]string{"access_type": "offline", "prompt": "consent"},
	},
	{
		Name:         "pinterest",
		AuthURL:      "https://www.pinterest.com/oauth/",
		TokenURL:     "https://api.pinterest.com/v5/oauth/token",
		IdentityURL:  "https://api.pinterest.com/v5/user_account",
		Scopes:       []string{"boards:read", "pins:create", "pins:read"},
		AuthViaBasic: true,
	},
	{
		Name:         "reddit",
		AuthURL:      "https://www.reddit.com/api/v1/authorize",
		TokenURL:     "https://www.reddit.com/api/v1/access_token",
		IdentityURL:  "https://oauth.reddit.com/api/v1/me",
		Scopes:       []string{"identity", "submit"},
		AuthViaBasic: true,
		ExtraHeaders: map[string]string{
			"User-Agent": "web:postpilot:v1.0 (by /u/postpilot)",
		},
		ExtraAuthParams: map[string]string{"duration": "permanent"},
	},
}
