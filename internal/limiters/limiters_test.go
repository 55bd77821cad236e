package limiters

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/zestpay/rampguard/store"
	"github.com/zestpay/rampguard/store/redisstore"
)

func newLimiterStore(t *testing.T) (*miniredis.Miniredis, store.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	done := func() {
		_ = client.Close()
		mr.Close()
	}
	return mr, redisstore.New(client, redisstore.Options{}), done
}

// testClock is a manually advanced clock. Limiter timestamps have
// microsecond precision, so tests advance it between checks instead of
// relying on wall time.
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0).UTC()}
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
