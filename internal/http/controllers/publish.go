package controllers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/postpilothq/postpilot/internal/credentials"
	"github.com/postpilothq/postpilot/internal/credits"
	"github.com/postpilothq/postpilot/internal/http/dto"
	"github.com/postpilothq/postpilot/internal/http/errors"
	"github.com/postpilothq/postpilot/internal/http/middlewares"
	"github.com/postpilothq/postpilot/internal/observability/logger"
	"github.com/postpilothq/postpilot/internal/posts"
	"github.com/postpilothq/postpilot/internal/providers"
	"github.com/postpilothq/postpilot/internal/publish"
)

// PublishController maneja la publicación inmediata y programada.
type PublishController struct {
	posts      posts.Store
	dispatcher *publish.Dispatcher
	gate       credits.Gate
}

// Publish programa contenido (scheduled_at futuro) o lo publica ya mismo.
func (c *PublishController) Publish(w http.ResponseWriter, r *http.Request) {
	var req dto.PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, errors.ErrBadRequest.WithDetail("invalid JSON body"))
		return
	}

	platform, err := providers.ParsePlatform(req.Platform)
	if err != nil {
		errors.WriteError(w, errors.ErrBadRequest.WithDetail("unknown platform"))
		return
	}

	// Validación temprana: el contenido inválido no consume créditos ni
	// entra a la cola.
	if err := publish.Validate(platform, req.Content); err != nil {
		errors.WriteError(w, errors.ErrContentInvalid.WithDetail(err.Error()))
		return
	}

	ctx := r.Context()
	tenantID := middlewares.GetTenantID(ctx)

	if err := c.gate.Reserve(ctx, tenantID, "publish"); err != nil {
		if stderrors.Is(err, credits.ErrInsufficient) {
			errors.WriteError(w, errors.ErrInsufficientCredits)
			return
		}
		logger.From(ctx).Error("credit gate failed", logger.Err(err))
		errors.WriteError(w, errors.ErrInternal)
		return
	}

	now := time.Now()
	post := posts.Post{
		TenantID:    tenantID,
		OrgID:       middlewares.GetOrgID(ctx),
		Platform:    platform,
		Content:     req.Content,
		ScheduledAt: now,
	}

	if req.ScheduledAt != nil && req.ScheduledAt.After(now) {
		post.ScheduledAt = *req.ScheduledAt
		created, err := c.posts.Create(ctx, post)
		if err != nil {
			logger.From(ctx).Error("schedule post failed", logger.Err(err))
			errors.WriteError(w, errors.ErrInternal)
			return
		}
		writeJSON(w, http.StatusAccepted, dto.FromPost(created))
		return
	}

	// El post nace reclamado: en publishing no aparece en la cola de vencidos,
	// así un tick del scheduler no lo despacha mientras el dispatch está en
	// vuelo.
	post.Status = posts.StatusPublishing
	created, err := c.posts.Create(ctx, post)
	if err != nil {
		logger.From(ctx).Error("create post failed", logger.Err(err))
		errors.WriteError(w, errors.ErrInternal)
		return
	}

	providerPostID, err := c.dispatcher.Dispatch(ctx, created)
	if err != nil {
		_ = c.posts.MarkFailed(ctx, created.ID, err.Error())
		writePublishError(w, err)
		return
	}
	if err := c.posts.MarkPublished(ctx, created.ID, providerPostID, time.Now()); err != nil {
		logger.From(ctx).Error("mark published failed", logger.Err(err))
	}

	done, err := c.posts.Get(ctx, created.ID)
	if err != nil {
		done = created
	}
	writeJSON(w, http.StatusOK, dto.FromPost(done))
}

// GetPost devuelve el estado de un post del tenant autenticado.
func (c *PublishController) GetPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := c.posts.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		if stderrors.Is(err, posts.ErrNotFound) {
			errors.WriteError(w, errors.ErrNotFound)
			return
		}
		logger.From(ctx).Error("get post failed", logger.Err(err))
		errors.WriteError(w, errors.ErrInternal)
		return
	}

	// Aislamiento de tenant: un post ajeno es indistinguible de inexistente.
	if p.TenantID != middlewares.GetTenantID(ctx) {
		errors.WriteError(w, errors.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromPost(p))
}

// writePublishError mapea un fallo de publicación clasificado al catálogo.
func writePublishError(w http.ResponseWriter, err error) {
	if stderrors.Is(err, credentials.ErrNoActiveCredential) {
		errors.WriteError(w, errors.ErrNoActiveCredential)
		return
	}
	switch publish.ClassOf(err) {
	case publish.ClassContentInvalid:
		errors.WriteError(w, errors.ErrContentInvalid.WithDetail(err.Error()))
	case publish.ClassCredentialInvalid:
		errors.WriteError(w, errors.ErrCredentialInvalid)
	case publish.ClassTransient:
		errors.WriteError(w, errors.ErrTransientProvider)
	default:
		errors.WriteError(w, errors.ErrProviderRejected.WithDetail(err.Error()))
	}
}
