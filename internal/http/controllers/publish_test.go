package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/postpilothq/postpilot/internal/credentials"
	"github.com/postpilothq/postpilot/internal/credits"
	"github.com/postpilothq/postpilot/internal/http/dto"
	"github.com/postpilothq/postpilot/internal/http/middlewares"
	"github.com/postpilothq/postpilot/internal/oauth/exchange"
	"github.com/postpilothq/postpilot/internal/posts"
	"github.com/postpilothq/postpilot/internal/providers"
	"github.com/postpilothq/postpilot/internal/publish"
	"github.com/postpilothq/postpilot/internal/scheduler"
)

// slowPublisher cuenta los envíos al proveedor y se demora en cada uno para
// dejar la ventana abierta a un tick concurrente.
type slowPublisher struct {
	calls int32
	delay time.Duration
}

func (p *slowPublisher) Publish(context.Context, string, posts.Post) (string, error) {
	atomic.AddInt32(&p.calls, 1)
	time.Sleep(p.delay)
	return "prov-1", nil
}

type stubTokens struct{}

func (stubTokens) Refresh(context.Context, providers.Platform, string) (*exchange.Result, error) {
	return nil, errors.New("refresh not expected")
}

// Un publish inmediato con un tick del scheduler en plena ventana del
// dispatch: el proveedor tiene que recibir el post exactamente una vez.
func TestPublish_ImmediateNotVisibleToConcurrentTick(t *testing.T) {
	ctx := context.Background()

	creds := credentials.NewMemoryStore()
	if _, err := creds.Save(ctx, credentials.Record{
		OwnerScope:  credentials.ScopeUser,
		OwnerID:     "tenant-1",
		Provider:    "twitter",
		AccessToken: "at-1",
		ExpiresAt:   time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	pub := &slowPublisher{delay: 80 * time.Millisecond}
	dispatcher := publish.NewDispatcher(publish.DispatcherDeps{
		Resolver:   credentials.NewResolver(creds),
		Refresher:  credentials.NewRefresher(creds, stubTokens{}, 5*time.Minute),
		Publishers: map[providers.Platform]publish.Publisher{providers.PlatformTwitter: pub},
	})
	store := posts.NewMemoryStore()
	svc := scheduler.New(scheduler.Deps{Store: store, Dispatcher: dispatcher})

	ctrl := New(Deps{
		Posts:      store,
		Dispatcher: dispatcher,
		Gate:       credits.AllowAll{},
		Scheduler:  svc,
	})

	body, _ := json.Marshal(dto.PublishRequest{Platform: "twitter", Content: posts.Content{Body: "hola"}})
	req := httptest.NewRequest(http.MethodPost, "/publish", bytes.NewReader(body))
	req = req.WithContext(middlewares.WithTenant(req.Context(), "tenant-1", ""))
	rec := httptest.NewRecorder()

	tickDone := make(chan struct{})
	go func() {
		defer close(tickDone)
		time.Sleep(30 * time.Millisecond)
		svc.Tick(ctx)
	}()

	ctrl.Publish.Publish(rec, req)
	<-tickDone

	if n := atomic.LoadInt32(&pub.calls); n != 1 {
		t.Fatalf("provider hit %d times, want 1", n)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var resp dto.PostResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != string(posts.StatusPublished) {
		t.Errorf("post status = %q, want published", resp.Status)
	}
}
