package providers

import (
	"errors"
	"testing"
)

func TestProviderMapping(t *testing.T) {
	tests := []struct {
		platform Platform
		provider string
	}{
		{PlatformTwitter, "twitter"},
		{PlatformLinkedIn, "linkedin"},
		{PlatformFacebook, "facebook"},
		{PlatformInstagram, "facebook"},
		{PlatformThreads, "facebook"},
		{PlatformTikTok, "tiktok"},
		{PlatformYouTube, "youtube"},
		{PlatformPinterest, "pinterest"},
		{PlatformReddit, "reddit"},
	}
	for _, tc := range tests {
		got, err := tc.platform.Provider()
		if err != nil {
			t.Fatalf("%s: %v", tc.platform, err)
		}
		if got != tc.provider {
			t.Errorf("%s -> %q, want %q", tc.platform, got, tc.provider)
		}
	}
}

func TestParsePlatform_RejectsUnknown(t *testing.T) {
	if _, err := ParsePlatform("myspace"); !errors.Is(err, ErrUnknownPlatform) {
		t.Fatalf("want ErrUnknownPlatform, got %v", err)
	}
	if _, err := ParsePlatform(""); err == nil {
		t.Fatal("empty platform accepted")
	}
}

func TestRegistry_SharedMetaApp(t *testing.T) {
	r := NewRegistry(map[string]Credentials{
		"facebook": {ClientID: "fb-id", ClientSecret: "fb-secret"},
	})

	// Instagram y threads usan la app de facebook.
	for _, p := range []Platform{PlatformFacebook, PlatformInstagram, PlatformThreads} {
		c, err := r.Credentials(p)
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		if c.ClientID != "fb-id" {
			t.Errorf("%s: client id = %q", p, c.ClientID)
		}
	}

	if _, err := r.Credentials(PlatformTwitter); !errors.Is(err, ErrProviderNotConfigured) {
		t.Fatalf("want ErrProviderNotConfigured, got %v", err)
	}

	configured := r.Configured()
	if len(configured) != 3 {
		t.Fatalf("Configured() = %v, want the three Meta platforms", configured)
	}
}

func TestRegistry_SpecQuirks(t *testing.T) {
	r := NewRegistry(nil)

	tw, err := r.Spec(PlatformTwitter)
	if err != nil {
		t.Fatal(err)
	}
	if !tw.RequiresPKCE || !tw.AuthViaBasic {
		t.Errorf("twitter quirks = %+v", tw)
	}

	tk, err := r.Spec(PlatformTikTok)
	if err != nil {
		t.Fatal(err)
	}
	if tk.ClientIDParamName() != "client_key" {
		t.Errorf("tiktok client id param = %q", tk.ClientIDParamName())
	}

	yt, err := r.Spec(PlatformYouTube)
	if err != nil {
		t.Fatal(err)
	}
	if yt.ExtraAuthParams["access_type"] != "offline" {
		t.Errorf("youtube auth params = %v", yt.ExtraAuthParams)
	}

	rd, err := r.Spec(PlatformReddit)
	if err != nil {
		t.Fatal(err)
	}
	if rd.ExtraHeaders["User-Agent"] == "" {
		t.Error("reddit spec has no User-Agent")
	}
}
