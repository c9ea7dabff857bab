// Package posts models scheduled posts and their lifecycle: a post is
// created as scheduled (or as publishing, when it goes out immediately),
// picked up by the scheduler when due, and ends in published or failed.
// Terminal states never re-enter the queue.
package posts

import (
	"errors"
	"time"

	"github.com/postpilothq/postpilot/internal/providers"
)

// Status of a scheduled post.
type Status string

const (
	StatusScheduled Status = "scheduled"

	// StatusPublishing: el post está reclamado por un dispatch en vuelo
	// (publicación inmediata). Due nunca lo devuelve, así un tick concurrente
	// del scheduler no puede despacharlo por segunda vez.
	StatusPublishing Status = "publishing"

	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

var (
	ErrNotFound = errors.New("posts: not found")

	// ErrNotClaimable: the post already reached a terminal state; someone else
	// moved it. The caller must skip it, never re-publish.
	ErrNotClaimable = errors.New("posts: not claimable")
)

// Content is the platform-agnostic payload of a post. Platform constraints
// (length, media counts, required fields) are validated at publish time.
type Content struct {
	Body      string   `json:"body"`
	MediaURLs []string `json:"media_urls,omitempty"`
	LinkURL   string   `json:"link_url,omitempty"`

	// Title is required by some platforms (reddit, pinterest, youtube).
	Title string `json:"title,omitempty"`

	// Subreddit is the reddit target community, without the r/ prefix.
	Subreddit string `json:"subreddit,omitempty"`
}

// Post is one scheduled publication for one platform.
type Post struct {
	ID       string
	TenantID string
	OrgID    string
	Platform providers.Platform
	Content  Content

	ScheduledAt time.Time
	Status      Status

	// Attempts counts transient publish failures. The post stays scheduled
	// and is retried on later ticks until the attempt budget runs out.
	Attempts int

	FailureReason string
	PublishedAt   time.Time

	// ProviderPostID is the platform-side id of the published post.
	ProviderPostID string

	CreatedAt time.Time
	UpdatedAt time.Time
}
