package publish

import (
	"net/url"

	"github.com/postpilothq/postpilot/internal/posts"
	"github.com/postpilothq/postpilot/internal/providers"
)

// NewPublishers builds the per-platform publisher set. Each entry is the
// create-post call of that platform's public API.
func NewPublishers() map[providers.Platform]Publisher {
	return map[providers.Platform]Publisher{
		providers.PlatformTwitter:   newRESTPublisher(providers.PlatformTwitter, buildTwitter),
		providers.PlatformLinkedIn:  newRESTPublisher(providers.PlatformLinkedIn, buildLinkedIn),
		providers.PlatformFacebook:  newRESTPublisher(providers.PlatformFacebook, buildFacebook),
		providers.PlatformInstagram: newRESTPublisher(providers.PlatformInstagram, buildInstagram),
		providers.PlatformThreads:   newRESTPublisher(providers.PlatformThreads, buildThreads),
		providers.PlatformTikTok:    newRESTPublisher(providers.PlatformTikTok, buildTikTok),
		providers.PlatformYouTube:   newRESTPublisher(providers.PlatformYouTube, buildYouTube),
		providers.PlatformPinterest: newRESTPublisher(providers.PlatformPinterest, buildPinterest),
		providers.PlatformReddit:    newRESTPublisher(providers.PlatformReddit, buildReddit),
	}
}

func buildTwitter(_ string, p posts.Post) (request, error) {
	payload := map[string]any{"text": p.Content.Body}
	return request{
		Method: "POST",
		URL:    "https://api.twitter.com/2/tweets",
		JSON:   payload,
		IDPath: "data.id",
	}, nil
}

func buildLinkedIn(_ string, p posts.Post) (request, error) {
	payload := map[string]any{
		"commentary":     p.Content.Body,
		"visibility":     "PUBLIC",
		"lifecycleState": "PUBLISHED",
		"distribution": map[string]any{
			"feedDistribution": "MAIN_FEED",
		},
	}
	return request{
		Method:  "POST",
		URL:     "https://api.linkedin.com/rest/posts",
		JSON:    payload,
		Headers: map[string]string{"X-Restli-Protocol-Version": "2.0.0"},
		IDPath:  "id",
	}, nil
}

func buildFacebook(token string, p posts.Post) (request, error) {
	form := url.Values{}
	form.Set("message", p.Content.Body)
	if p.Content.LinkURL != "" {
		form.Set("link", p.Content.LinkURL)
	}
	form.Set("access_token", token)
	return request{
		Method: "POST",
		URL:    "https://graph.facebook.com/v19.0/me/feed",
		Form:   form,
		IDPath: "id",
	}, nil
}

func buildInstagram(token string, p posts.Post) (request, error) {
	// El flujo real de IG es en dos pasos (container + publish); aquí usamos
	// el endpoint de publicación directa de containers ya listos.
	form := url.Values{}
	form.Set("caption", p.Content.Body)
	if len(p.Content.MediaURLs) > 0 {
		form.Set("image_url", p.Content.MediaURLs[0])
	}
	form.Set("access_token", token)
	return request{
		Method: "POST",
		URL:    "https://graph.facebook.com/v19.0/me/media_publish",
		Form:   form,
		IDPath: "id",
	}, nil
}

func buildThreads(_ string, p posts.Post) (request, error) {
	payload := map[string]any{
		"media_type": "TEXT",
		"text":       p.Content.Body,
	}
	return request{
		Method: "POST",
		URL:    "https://graph.threads.net/v1.0/me/threads_publish",
		JSON:   payload,
		IDPath: "id",
	}, nil
}

func buildTikTok(_ string, p posts.Post) (request, error) {
	if len(p.Content.MediaURLs) == 0 {
		return request{}, contentErr("tiktok requires a video url")
	}
	payload := map[string]any{
		"post_info": map[string]any{
			"title":         p.Content.Body,
			"privacy_level": "PUBLIC_TO_EVERYONE",
		},
		"source_info": map[string]any{
			"source":    "PULL_FROM_URL",
			"video_url": p.Content.MediaURLs[0],
		},
	}
	return request{
		Method: "POST",
		URL:    "https://open.tiktokapis.com/v2/post/publish/video/init/",
		JSON:   payload,
		IDPath: "data.publish_id",
	}, nil
}

func buildYouTube(_ string, p posts.Post) (request, error) {
	payload := map[string]any{
		"snippet": map[string]any{
			"title":       p.Content.Title,
			"description": p.Content.Body,
		},
		"status": map[string]any{"privacyStatus": "public"},
	}
	return request{
		Method: "POST",
		URL:    "https://www.googleapis.com/youtube/v3/videos?part=snippet,status",
		JSON:   payload,
		IDPath: "id",
	}, nil
}

func buildPinterest(_ string, p posts.Post) (request, error) {
	if len(p.Content.MediaURLs) == 0 {
		return request{}, contentErr("pinterest requires an image url")
	}
	payload := map[string]any{
		"title":       p.Content.Title,
		"description": p.Content.Body,
		"media_source": map[string]any{
			"source_type": "image_url",
			"url":         p.Content.MediaURLs[0],
		},
	}
	if p.Content.LinkURL != "" {
		payload["link"] = p.Content.LinkURL
	}
	return request{
		Method: "POST",
		URL:    "https://api.pinterest.com/v5/pins",
		JSON:   payload,
		IDPath: "id",
	}, nil
}

func buildReddit(_ string, p posts.Post) (request, error) {
	form := url.Values{}
	form.Set("sr", p.Content.Subreddit)
	form.Set("title", p.Content.Title)
	form.Set("api_type", "json")
	if p.Content.LinkURL != "" {
		form.Set("kind", "link")
		form.Set("url", p.Content.LinkURL)
	} else {
		form.Set("kind", "self")
		form.Set("text", p.Content.Body)
	}
	return request{
		Method:  "POST",
		URL:     "https://oauth.reddit.com/api/submit",
		Form:    form,
		Headers: map[string]string{"User-Agent": "web:postpilot:v1.0 (by /u/postpilot)"},
		IDPath:  "json.data.id",
	}, nil
}
