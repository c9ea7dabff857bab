package publish

import (
	"github.com/postpilothq/postpilot/internal/posts"
	"github.com/postpilothq/postpilot/internal/providers"
)

// constraint captura las reglas de contenido de cada plataforma. Los límites
// vienen de la documentación pública de cada una.
type constraint struct {
	MaxBody  int
	MaxMedia int

	RequiresMedia     bool // instagram/tiktok/youtube/pinterest no aceptan solo texto
	RequiresTitle     bool
	RequiresSubreddit bool
	VideoOnly         bool
}

var constraints = map[providers.Platform]constraint{
	providers.PlatformTwitter:   {MaxBody: 280, MaxMedia: 4},
	providers.PlatformLinkedIn:  {MaxBody: 3000, MaxMedia: 9},
	providers.PlatformFacebook:  {MaxBody: 63206, MaxMedia: 10},
	providers.PlatformInstagram: {MaxBody: 2200, MaxMedia: 10, RequiresMedia: true},
	providers.PlatformThreads:   {MaxBody: 500, MaxMedia: 10},
	providers.PlatformTikTok:    {MaxBody: 2200, MaxMedia: 1, RequiresMedia: true, VideoOnly: true},
	providers.PlatformYouTube:   {MaxBody: 5000, MaxMedia: 1, RequiresMedia: true, VideoOnly: true, RequiresTitle: true},
	providers.PlatformPinterest: {MaxBody: 500, MaxMedia: 1, RequiresMedia: true, RequiresTitle: true},
	providers.PlatformReddit:    {MaxBody: 40000, MaxMedia: 1, RequiresTitle: true, RequiresSubreddit: true},
}

// Validate checks content against the platform's constraints before any
// network call. A violation is a terminal content_invalid failure.
func Validate(platform providers.Platform, c posts.Content) error {
	rules, ok := constraints[platform]
	if !ok {
		return contentErr("unsupported platform %q", platform)
	}

	if len([]rune(c.Body)) > rules.MaxBody {
		return contentErr("body exceeds %d characters for %s", rules.MaxBody, platform)
	}
	if len(c.MediaURLs) > rules.MaxMedia {
		return contentErr("%s accepts at most %d media items", platform, rules.MaxMedia)
	}
	if rules.RequiresMedia && len(c.MediaURLs) == 0 {
		return contentErr("%s requires at least one media item", platform)
	}
	if rules.RequiresTitle && c.Title == "" {
		return contentErr("%s requires a title", platform)
	}
	if rules.RequiresSubreddit && c.Subreddit == "" {
		return contentErr("reddit requires a target subreddit")
	}
	if c.Body == "" && len(c.MediaURLs) == 0 && c.LinkURL == "" {
		return contentErr("post has no content")
	}
	return nil
}
