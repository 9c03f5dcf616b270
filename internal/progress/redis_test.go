package progress

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisTracker_UpdateAssessmentProgress(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	tracker := NewRedisTracker(client)
	err := tracker.UpdateAssessmentProgress(context.Background(), "user-1", "assess-1", Update{
		Status:             StatusPassed,
		ProgressPercentage: 87.5,
		LastPosition:       "assess-1",
	})
	require.NoError(t, err)

	key := progressKey("user-1", "assess-1")
	require.Equal(t, "passed", mr.HGet(key, "status"))
	require.Equal(t, "87.5", mr.HGet(key, "progress_percentage"))
	require.Positive(t, mr.TTL(key), "key must carry a TTL")
}

func TestRedisTracker_RefreshesExistingKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	tracker := NewRedisTracker(client)
	ctx := context.Background()
	require.NoError(t, tracker.UpdateAssessmentProgress(ctx, "u", "a", Update{Status: StatusFailed, ProgressPercentage: 40}))
	require.NoError(t, tracker.UpdateAssessmentProgress(ctx, "u", "a", Update{Status: StatusPassed, ProgressPercentage: 80}))

	key := progressKey("u", "a")
	require.Equal(t, "passed", mr.HGet(key, "status"))
	require.Equal(t, "80", mr.HGet(key, "progress_percentage"))
}

func TestRedisTracker_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	err := NewRedisTracker(client).UpdateAssessmentProgress(context.Background(), "u", "a", Update{Status: StatusFailed})
	require.Error(t, err, "tracker must surface the outage to the caller, who logs and moves on")
}
