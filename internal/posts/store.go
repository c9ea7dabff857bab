package posts

import (
	"context"
	"time"
)

// Store persists scheduled posts.
//
// The Mark* operations are conditional on the post still being in flight
// (scheduled or publishing): they compare-and-set on status so a post moved
// by another path (cancelled, already published) is skipped instead of
// double-published.
type Store interface {
	// Create persists p. An empty Status defaults to scheduled; immediate
	// publishes pass StatusPublishing so the post never enters the due queue.
	Create(ctx context.Context, p Post) (Post, error)

	Get(ctx context.Context, id string) (Post, error)

	// Due returns up to limit posts with status=scheduled and
	// scheduled_at <= now, oldest first.
	Due(ctx context.Context, now time.Time, limit int) ([]Post, error)

	// MarkPublished moves an in-flight post to published. Returns
	// ErrNotClaimable when the post already reached a terminal state.
	MarkPublished(ctx context.Context, id, providerPostID string, at time.Time) error

	// MarkFailed moves an in-flight post to failed with a reason. Returns
	// ErrNotClaimable when the post already reached a terminal state.
	MarkFailed(ctx context.Context, id, reason string) error

	// RecordAttempt increments the attempt counter of a still-scheduled post
	// after a transient failure, leaving it in the queue for a later tick.
	RecordAttempt(ctx context.Context, id, reason string) error
}
