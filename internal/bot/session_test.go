package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehedi-exx/Hr/internal/domain"
	"github.com/mehedi-exx/Hr/internal/store"
)

func newRedisSessions(t *testing.T, ttl time.Duration) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionStore(store.NewRedisKV(client), ttl), mr
}

func TestSessionStore_Redis(t *testing.T) {
	ctx := context.Background()
	sessions, mr := newRedisSessions(t, time.Minute)

	got, err := sessions.Load(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, got)

	sess := newSession(flowAddEmployee)
	sess.Step = 3
	sess.Data["code"] = "E1"
	require.NoError(t, sessions.Save(ctx, 7, sess))
	assert.True(t, mr.Exists("hrbot:session:7"))
	assert.Equal(t, time.Minute, mr.TTL("hrbot:session:7"))

	got, err = sessions.Load(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, flowAddEmployee, got.Flow)
	assert.Equal(t, 3, got.Step)
	assert.Equal(t, "E1", got.Data["code"])
	assert.False(t, got.UpdatedAt.IsZero())

	n, err := sessions.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, sessions.Clear(ctx, 7))
	got, err = sessions.Load(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionStore_IdleExpiry(t *testing.T) {
	ctx := context.Background()
	sessions, mr := newRedisSessions(t, time.Minute)

	require.NoError(t, sessions.Save(ctx, 7, newSession(flowSupport)))
	mr.FastForward(40 * time.Second)
	// saving again refreshes the idle window
	require.NoError(t, sessions.Save(ctx, 7, newSession(flowSupport)))
	mr.FastForward(40 * time.Second)

	got, err := sessions.Load(ctx, 7)
	require.NoError(t, err)
	assert.NotNil(t, got)

	mr.FastForward(time.Minute)
	got, err = sessions.Load(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionStore_DropsCorruptState(t *testing.T) {
	ctx := context.Background()
	sessions, mr := newRedisSessions(t, time.Minute)

	require.NoError(t, mr.Set("hrbot:session:9", "{not json"))
	got, err := sessions.Load(ctx, 9)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, mr.Exists("hrbot:session:9"))
}

func TestSessionStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	sessions, mr := newRedisSessions(t, time.Minute)
	mr.Close()

	_, err := sessions.Load(ctx, 1)
	assert.True(t, errors.Is(err, domain.ErrUnavailable))
	err = sessions.Save(ctx, 1, newSession(flowSupport))
	assert.True(t, errors.Is(err, domain.ErrUnavailable))
}

func TestCallerLocks(t *testing.T) {
	locks := newCallerLocks()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock(5)
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, locks.size())
}

func TestCallerLocks_IndependentCallers(t *testing.T) {
	locks := newCallerLocks()
	unlockA := locks.lock(1)

	done := make(chan struct{})
	go func() {
		unlock := locks.lock(2)
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("caller 2 blocked behind caller 1")
	}
	assert.Equal(t, 1, locks.size())
	unlockA()
	assert.Equal(t, 0, locks.size())
}
