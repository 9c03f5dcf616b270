package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Keys live under assessly:progress:<user>:<assessment>. A generous TTL
// keeps abandoned accounts from accumulating forever; active learners
// refresh it on every graded attempt.
const defaultTTL = 90 * 24 * time.Hour

// RedisTracker stores progress as a hash per user and assessment.
type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTracker creates a tracker over an existing client.
func NewRedisTracker(client *redis.Client) *RedisTracker {
	return &RedisTracker{client: client, ttl: defaultTTL}
}

func progressKey(userID, assessmentID string) string {
	return fmt.Sprintf("assessly:progress:%s:%s", userID, assessmentID)
}

// UpdateAssessmentProgress writes the update hash and refreshes its TTL.
func (t *RedisTracker) UpdateAssessmentProgress(ctx context.Context, userID, assessmentID string, u Update) error {
	key := progressKey(userID, assessmentID)
	pipe := t.client.TxPipeline()
	pipe.HSet(ctx, key,
		"status", string(u.Status),
		"progress_percentage", u.ProgressPercentage,
		"last_position", u.LastPosition,
		"updated_at", time.Now().UTC().Format(time.RFC3339),
	)
	pipe.Expire(ctx, key, t.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update progress %s: %w", key, err)
	}
	return nil
}
