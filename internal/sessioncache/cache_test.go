package sessioncache

import (
	"sync"
	"testing"
	"time"

	"elms-extractor/internal/components/chrono"
	"elms-extractor/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	sesskey string
}

func newTestCache(ttl time.Duration) (*Cache[fakeSession], *chrono.ManualClock) {
	clock := chrono.NewManualClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	return New[fakeSession](ttl, clock, telemetry.NewRecorder()), clock
}

func TestCreateGet(t *testing.T) {
	cache, _ := newTestCache(time.Minute * 30)

	token, err := cache.Create(fakeSession{sesskey: "abc"})
	require.NoError(t, err)
	require.Len(t, token, tokenLength)

	session, err := cache.Get(token)
	require.NoError(t, err)
	require.Equal(t, "abc", session.sesskey)

	other, err := cache.Create(fakeSession{sesskey: "def"})
	require.NoError(t, err)
	require.NotEqual(t, token, other)
	require.Equal(t, 2, cache.Len())

	_, err = cache.Get("not-a-token")
	require.ErrorIs(t, err, ErrInvalidSession)
	require.ErrorIs(t, err, ErrSessionUnknown)
}

func TestExpiry(t *testing.T) {
	cache, clock := newTestCache(time.Minute * 30)

	token, err := cache.Create(fakeSession{sesskey: "abc"})
	require.NoError(t, err)

	// exactly at the expiry time the entry is still valid
	clock.Advance(time.Minute * 30)
	_, err = cache.Get(token)
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = cache.Get(token)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.ErrorIs(t, err, ErrInvalidSession)

	// the entry is gone, not just reported as expired
	_, err = cache.Get(token)
	require.ErrorIs(t, err, ErrSessionUnknown)
	require.Equal(t, 0, cache.Len())
}

func TestTouch(t *testing.T) {
	cache, clock := newTestCache(time.Minute * 30)

	token, err := cache.Create(fakeSession{})
	require.NoError(t, err)

	clock.Advance(time.Minute * 20)
	cache.Touch(token)
	clock.Advance(time.Minute * 20)

	_, err = cache.Get(token)
	require.NoError(t, err)

	cache.Touch("not-a-token")
	require.Equal(t, 1, cache.Len())
}

func TestRemove(t *testing.T) {
	cache, _ := newTestCache(time.Minute)

	token, err := cache.Create(fakeSession{})
	require.NoError(t, err)
	cache.Remove(token)
	cache.Remove(token)

	_, err = cache.Get(token)
	require.ErrorIs(t, err, ErrInvalidSession)
}

func TestCleanup(t *testing.T) {
	cache, clock := newTestCache(time.Minute * 10)

	old, err := cache.Create(fakeSession{sesskey: "old"})
	require.NoError(t, err)
	clock.Advance(time.Minute * 5)
	fresh, err := cache.Create(fakeSession{sesskey: "fresh"})
	require.NoError(t, err)

	clock.Advance(time.Minute*5 + time.Second)
	require.Equal(t, 1, cache.Cleanup())
	require.Equal(t, 1, cache.Len())

	_, err = cache.Get(old)
	require.ErrorIs(t, err, ErrSessionUnknown)
	session, err := cache.Get(fresh)
	require.NoError(t, err)
	require.Equal(t, "fresh", session.sesskey)

	require.Equal(t, 0, cache.Cleanup())
}

func TestConcurrentAccess(t *testing.T) {
	cache, clock := newTestCache(time.Minute)

	wg := sync.WaitGroup{}
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				token, err := cache.Create(fakeSession{})
				if err != nil {
					t.Error(err)
					return
				}
				cache.Touch(token)
				cache.Get(token)
				clock.Advance(time.Millisecond)
				cache.Cleanup()
				if j%2 == 0 {
					cache.Remove(token)
				}
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 16*25, cache.Len())
}

func TestScheduleCleanup(t *testing.T) {
	cache, clock := newTestCache(time.Minute)
	cron := &chrono.ManualCron{}

	err := cache.ScheduleCleanup(cron, time.Minute)
	require.NoError(t, err)
	require.Equal(t, []string{"@every 1m0s"}, cron.Specs())

	_, err = cache.Create(fakeSession{})
	require.NoError(t, err)
	clock.Advance(time.Minute * 2)

	cron.Run()
	require.Equal(t, 0, cache.Len())
}

func TestScheduleCleanupStandardCron(t *testing.T) {
	cache, clock := newTestCache(time.Minute)
	cron := chrono.NewStandardCron(telemetry.NewRecorder())
	defer cron.Stop()

	err := cache.ScheduleCleanup(cron, time.Second)
	require.NoError(t, err)

	_, err = cache.Create(fakeSession{})
	require.NoError(t, err)
	clock.Advance(time.Minute * 2)

	require.Eventually(t, func() bool {
		return cache.Len() == 0
	}, time.Second*5, time.Millisecond*100)
}
