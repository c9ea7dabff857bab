// Package dto define los request/response JSON del API.
package dto

import (
	"time"

	"github.com/postpilothq/postpilot/internal/posts"
)

// AuthorizeResponse es la respuesta de GET /oauth/{platform}/authorize.
type AuthorizeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

// CallbackResponse confirma una conexión completada.
type CallbackResponse struct {
	Provider           string `json:"provider"`
	Platform           string `json:"platform"`
	AccountID          string `json:"account_id"`
	IdentityUnverified bool   `json:"identity_unverified,omitempty"`
}

// ProviderInfo describe un proveedor configurado.
type ProviderInfo struct {
	Name      string   `json:"name"`
	Platforms []string `json:"platforms"`
	Scopes    []string `json:"scopes"`
}

// PublishRequest programa o publica contenido. Con scheduled_at en el futuro
// el post queda en cola; sin él (o en el pasado) se publica inmediatamente.
type PublishRequest struct {
	Platform    string        `json:"platform"`
	Content     posts.Content `json:"content"`
	ScheduledAt *time.Time    `json:"scheduled_at,omitempty"`
}

// PostResponse es la vista JSON de un scheduled post.
type PostResponse struct {
	ID             string     `json:"id"`
	Platform       string     `json:"platform"`
	Status         string     `json:"status"`
	ScheduledAt    time.Time  `json:"scheduled_at"`
	Attempts       int        `json:"attempts,omitempty"`
	FailureReason  string     `json:"failure_reason,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	ProviderPostID string     `json:"provider_post_id,omitempty"`
}

// FromPost arma el PostResponse de un post.
func FromPost(p posts.Post) PostResponse {
	out := PostResponse{
		ID:             p.ID,
		Platform:       string(p.Platform),
		Status:         string(p.Status),
		ScheduledAt:    p.ScheduledAt,
		Attempts:       p.Attempts,
		FailureReason:  p.FailureReason,
		ProviderPostID: p.ProviderPostID,
	}
	if !p.PublishedAt.IsZero() {
		t := p.PublishedAt
		out.PublishedAt = &t
	}
	return out
}
