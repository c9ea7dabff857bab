package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/postpilothq/postpilot/internal/credentials"
	"github.com/postpilothq/postpilot/internal/observability/logger"
	"github.com/postpilothq/postpilot/internal/posts"
	"github.com/postpilothq/postpilot/internal/providers"
)

// DispatcherDeps agrupa las dependencias del dispatcher, al estilo del resto
// de servicios.
type DispatcherDeps struct {
	Resolver   *credentials.Resolver
	Refresher  *credentials.Refresher
	Publishers map[providers.Platform]Publisher
}

// Dispatcher resolves the credential for a post, makes sure its token is
// fresh and hands the post to the platform publisher. Every failure comes
// back classified.
type Dispatcher struct {
	deps DispatcherDeps
}

func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	return &Dispatcher{deps: deps}
}

// Dispatch publishes one post. On success it returns the provider-side post
// id. Errors are always *Error (classified) except infrastructure failures.
func (d *Dispatcher) Dispatch(ctx context.Context, p posts.Post) (string, error) {
	if err := Validate(p.Platform, p.Content); err != nil {
		return "", err
	}

	provider, err := p.Platform.Provider()
	if err != nil {
		return "", &Error{Class: ClassPermanent, Reason: "unknown platform", Err: err}
	}
	rec, err := d.deps.Resolver.Resolve(ctx, p.TenantID, p.OrgID, provider)
	if err != nil {
		if errors.Is(err, credentials.ErrNoActiveCredential) {
			return "", &Error{Class: ClassCredentialInvalid, Reason: fmt.Sprintf("no active credential for %s", provider), Err: err}
		}
		return "", err
	}

	rec, err = d.deps.Refresher.EnsureFresh(ctx, rec)
	if err != nil {
		if errors.Is(err, credentials.ErrCredentialInvalid) {
			return "", &Error{Class: ClassCredentialInvalid, Reason: "credential refresh rejected", Err: err}
		}
		// Fallo de red durante el refresh: reintentable.
		return "", &Error{Class: ClassTransient, Reason: "token refresh failed", Err: err}
	}

	pub, ok := d.deps.Publishers[p.Platform]
	if !ok {
		return "", &Error{Class: ClassPermanent, Reason: fmt.Sprintf("no publisher for platform %q", p.Platform)}
	}

	providerPostID, err := pub.Publish(ctx, rec.AccessToken, p)
	if err != nil {
		var perr *Error
		if errors.As(err, &perr) && perr.Class == ClassCredentialInvalid {
			// El token fue rechazado al publicar: desactivamos para forzar
			// reconexión en vez de fallar cada post siguiente.
			if derr := d.deps.Refresher.Deactivate(ctx, rec); derr != nil {
				logger.From(ctx).Error("deactivate after token rejection failed",
					logger.Provider(provider), logger.Err(derr))
			}
		}
		return "", err
	}

	logger.From(ctx).Info("post published",
		logger.Platform(string(p.Platform)), logger.PostID(p.ID))
	return providerPostID, nil
}
