package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core/placement"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, ttl), mr
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	st, mr := newTestStore(t, time.Hour)

	sess := placement.NewSession(placement.SessionID(7))
	sess.Init(1, 2)
	sess.AddPendingPlacement(10, 100)
	sess.Push(placement.BulkAssign{StudentIDs: []int{10}, TargetClassID: 100})
	sess.Push(placement.IndividualAssign{StudentID: 11, NewClassID: 101})
	sess.AddPendingPlacement(11, 101)
	require.NoError(t, st.Save(ctx, sess))

	assert.Equal(t, time.Hour, mr.TTL(keyPrefix+sess.ID))

	got, err := st.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.SourceYearID)
	assert.Equal(t, 2, got.TargetYearID)
	assert.Equal(t, map[int]int{10: 100, 11: 101}, got.Assignments)
	require.Len(t, got.UndoStack, 2)
	assert.Equal(t, placement.IndividualAssign{StudentID: 11, NewClassID: 101}, got.UndoStack[1])

	res := got.UndoLast()
	assert.True(t, res.Success)
	_, staged := got.PendingPlacement(11)
	assert.False(t, staged)
}

func TestStore_LoadMissingOrExpired(t *testing.T) {
	ctx := context.Background()
	st, mr := newTestStore(t, time.Minute)

	got, err := st.Load(ctx, "placement:1")
	require.NoError(t, err)
	assert.Equal(t, "placement:1", got.ID)
	assert.Empty(t, got.Assignments)

	sess := placement.NewSession("placement:1")
	sess.AddPendingPlacement(1, 2)
	require.NoError(t, st.Save(ctx, sess))

	mr.FastForward(2 * time.Minute)
	got, err = st.Load(ctx, "placement:1")
	require.NoError(t, err)
	assert.Empty(t, got.Assignments)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	st, mr := newTestStore(t, time.Minute)

	sess := placement.NewSession("placement:3")
	require.NoError(t, st.Save(ctx, sess))
	require.True(t, mr.Exists(keyPrefix+"placement:3"))

	require.NoError(t, st.Delete(ctx, "placement:3"))
	assert.False(t, mr.Exists(keyPrefix+"placement:3"))
}
