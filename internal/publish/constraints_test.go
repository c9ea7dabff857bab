package publish

import (
	"errors"
	"strings"
	"testing"

	"github.com/postpilothq/postpilot/internal/posts"
	"github.com/postpilothq/postpilot/internal/providers"
)

func TestValidate(t *testing.T) {
	video := []string{"https://cdn.example.com/clip.mp4"}

	tests := []struct {
		name     string
		platform providers.Platform
		content  posts.Content
		wantErr  bool
	}{
		{
			name:     "twitter within limit",
			platform: providers.PlatformTwitter,
			content:  posts.Content{Body: strings.Repeat("a", 280)},
		},
		{
			name:     "twitter over limit",
			platform: providers.PlatformTwitter,
			content:  posts.Content{Body: strings.Repeat("a", 281)},
			wantErr:  true,
		},
		{
			// Los límites son de caracteres, no de bytes.
			name:     "twitter counts runes not bytes",
			platform: providers.PlatformTwitter,
			content:  posts.Content{Body: strings.Repeat("ñ", 280)},
		},
		{
			name:     "twitter too many media",
			platform: providers.PlatformTwitter,
			content:  posts.Content{Body: "pics", MediaURLs: []string{"1", "2", "3", "4", "5"}},
			wantErr:  true,
		},
		{
			name:     "instagram requires media",
			platform: providers.PlatformInstagram,
			content:  posts.Content{Body: "no photo"},
			wantErr:  true,
		},
		{
			name:     "instagram with media",
			platform: providers.PlatformInstagram,
			content:  posts.Content{Body: "photo", MediaURLs: []string{"https://cdn.example.com/p.jpg"}},
		},
		{
			name:     "youtube requires title",
			platform: providers.PlatformYouTube,
			content:  posts.Content{Body: "desc", MediaURLs: video},
			wantErr:  true,
		},
		{
			name:     "youtube complete",
			platform: providers.PlatformYouTube,
			content:  posts.Content{Body: "desc", Title: "My video", MediaURLs: video},
		},
		{
			name:     "pinterest requires title",
			platform: providers.PlatformPinterest,
			content:  posts.Content{MediaURLs: []string{"https://cdn.example.com/pin.jpg"}},
			wantErr:  true,
		},
		{
			name:     "reddit requires subreddit",
			platform: providers.PlatformReddit,
			content:  posts.Content{Body: "text", Title: "A title"},
			wantErr:  true,
		},
		{
			name:     "reddit complete",
			platform: providers.PlatformReddit,
			content:  posts.Content{Body: "text", Title: "A title", Subreddit: "golang"},
		},
		{
			name:     "empty content",
			platform: providers.PlatformTwitter,
			content:  posts.Content{},
			wantErr:  true,
		},
		{
			name:     "link only is content",
			platform: providers.PlatformTwitter,
			content:  posts.Content{LinkURL: "https://example.com"},
		},
		{
			name:     "unknown platform",
			platform: providers.Platform("myspace"),
			content:  posts.Content{Body: "hi"},
			wantErr:  true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.platform, tc.content)
			if tc.wantErr {
				var perr *Error
				if !errors.As(err, &perr) {
					t.Fatalf("want *Error, got %v", err)
				}
				if perr.Class != ClassContentInvalid {
					t.Fatalf("class = %s, want content_invalid", perr.Class)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Class
	}{
		{401, ClassCredentialInvalid},
		{403, ClassCredentialInvalid},
		{429, ClassTransient},
		{500, ClassTransient},
		{503, ClassTransient},
		{400, ClassPermanent},
		{404, ClassPermanent},
		{422, ClassPermanent},
	}
	for _, tc := range tests {
		if got := classifyStatus(tc.status, "body").Class; got != tc.want {
			t.Errorf("classifyStatus(%d) = %s, want %s", tc.status, got, tc.want)
		}
	}
}

func TestClassOf_DefaultsToTransient(t *testing.T) {
	if got := ClassOf(errors.New("opaque")); got != ClassTransient {
		t.Errorf("ClassOf(opaque) = %s", got)
	}
	if got := ClassOf(&Error{Class: ClassPermanent}); got != ClassPermanent {
		t.Errorf("ClassOf(*Error) = %s", got)
	}
}
