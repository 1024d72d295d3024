package ratelimit

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/require"
)

func TestLimitAndReset(t *testing.T) {
	counter, err := NewCacheCounter(context.Background(), 300*time.Millisecond)
	require.NoError(t, err)
	defer counter.Close()
	testLimitAndReset(t, counter)
}

func TestLimitAndResetWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	testLimitAndReset(t, NewRedisCounter(client, "puente:test:"))
}

func testLimitAndReset(t *testing.T, counter httprate.LimitCounter) {
	var calls int32
	rule := Rule{Name: "login", Limit: 2, Window: 300 * time.Millisecond}
	handler := Middleware(rule, Options{Counter: counter})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))

	// start right after a window boundary so the burst stays in one window
	time.Sleep(time.Until(time.Now().Truncate(rule.Window).Add(rule.Window)))
	first := time.Now()
	apitest.Handler(handler).Post("/login").Expect(t).Status(http.StatusOK).End()
	apitest.Handler(handler).Post("/login").Expect(t).Status(http.StatusOK).End()
	apitest.Handler(handler).Post("/login").
		Expect(t).
		Status(http.StatusTooManyRequests).
		HeaderPresent("Retry-After").
		Assert(jsonpath.Equal("$.success", false)).
		Assert(jsonpath.Equal("$.message", TooManyRequestsMessage)).
		End()
	require.Equal(t, int32(2), atomic.LoadInt32(&calls), "rejected requests must not reach the handler")

	// a single elapsed window is enough, the previous window is not weighted in
	time.Sleep(time.Until(first.Add(rule.Window + 10*time.Millisecond)))
	apitest.Handler(handler).Post("/login").Expect(t).Status(http.StatusOK).End()
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestLimitIsPerAddress(t *testing.T) {
	counter, err := NewCacheCounter(context.Background(), time.Minute)
	require.NoError(t, err)
	defer counter.Close()
	handler := Middleware(Rule{Name: "register", Limit: 1, Window: time.Minute}, Options{TrustProxy: true, Counter: counter})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	apitest.Handler(handler).Post("/register").Header("X-Real-IP", "10.0.0.1").Expect(t).Status(http.StatusOK).End()
	apitest.Handler(handler).Post("/register").Header("X-Real-IP", "10.0.0.1").Expect(t).Status(http.StatusTooManyRequests).End()
	apitest.Handler(handler).Post("/register").Header("X-Real-IP", "10.0.0.2").Expect(t).Status(http.StatusOK).End()
}

func TestLimitIsPerRoute(t *testing.T) {
	counter, err := NewCacheCounter(context.Background(), time.Minute)
	require.NoError(t, err)
	defer counter.Close()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	login := Middleware(Rule{Name: "login", Limit: 1, Window: time.Minute}, Options{Counter: counter})(ok)
	register := Middleware(Rule{Name: "register", Limit: 1, Window: time.Minute}, Options{Counter: counter})(ok)

	apitest.Handler(login).Post("/login").Expect(t).Status(http.StatusOK).End()
	apitest.Handler(login).Post("/login").Expect(t).Status(http.StatusTooManyRequests).End()
	apitest.Handler(register).Post("/register").Expect(t).Status(http.StatusOK).End()
}

func TestCacheCounter(t *testing.T) {
	counter, err := NewCacheCounter(context.Background(), time.Minute)
	require.NoError(t, err)
	defer counter.Close()
	now := time.Now().UTC().Truncate(time.Minute)
	prev := now.Add(-time.Minute)

	require.NoError(t, counter.Increment("k", prev))
	require.NoError(t, counter.IncrementBy("k", now, 3))
	curr, before, err := counter.Get("k", now, prev)
	require.NoError(t, err)
	require.Equal(t, 3, curr)
	require.Zero(t, before, "previous windows never count against the current one")

	curr, before, err = counter.Get("other", now, prev)
	require.NoError(t, err)
	require.Zero(t, curr)
	require.Zero(t, before)
}

func TestRedisCounterExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	counter := NewRedisCounter(client, "rl:")
	counter.Config(10, time.Minute)
	now := time.Now().UTC().Truncate(time.Minute)

	require.NoError(t, counter.IncrementBy("k", now, 2))
	key := "rl:" + windowKey("k", now)
	require.Equal(t, 2*time.Minute, mr.TTL(key))

	require.NoError(t, counter.Increment("k", now.Add(-time.Minute)))
	curr, prev, err := counter.Get("k", now, now.Add(-time.Minute))
	require.NoError(t, err)
	require.Equal(t, 2, curr)
	require.Zero(t, prev)

	mr.FastForward(3 * time.Minute)
	curr, _, err = counter.Get("k", now, now.Add(-time.Minute))
	require.NoError(t, err)
	require.Zero(t, curr)
}

func TestRedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	counter := NewRedisCounter(client, "rl:")
	handler := Middleware(Rule{Name: "login", Limit: 5, Window: time.Minute}, Options{Counter: counter})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not run when counters are unavailable")
		}))
	mr.Close()
	apitest.Handler(handler).Post("/login").Expect(t).Status(http.StatusServiceUnavailable).End()
}

func TestRedisFromURL(t *testing.T) {
	client, err := RedisFromURL("redis://localhost:6379/2")
	require.NoError(t, err)
	require.Equal(t, 2, client.Options().DB)
	client.Close()

	_, err = RedisFromURL("http://nope")
	require.Error(t, err)
}

func TestExhaustedWindowResetsAtNextWindow(t *testing.T) {
	counter, err := NewCacheCounter(context.Background(), time.Second)
	require.NoError(t, err)
	defer counter.Close()
	rule := Rule{Name: "login", Limit: 2, Window: time.Second}
	handler := Middleware(rule, Options{Counter: counter})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	time.Sleep(time.Until(time.Now().Truncate(rule.Window).Add(rule.Window)))
	first := time.Now()
	apitest.Handler(handler).Post("/login").Expect(t).Status(http.StatusOK).End()
	apitest.Handler(handler).Post("/login").Expect(t).Status(http.StatusOK).End()
	apitest.Handler(handler).Post("/login").Expect(t).Status(http.StatusTooManyRequests).End()

	time.Sleep(time.Until(first.Add(1050 * time.Millisecond)))
	apitest.Handler(handler).Post("/login").Expect(t).Status(http.StatusOK).End()
	apitest.Handler(handler).Post("/login").Expect(t).Status(http.StatusOK).End()
	apitest.Handler(handler).Post("/login").Expect(t).Status(http.StatusTooManyRequests).End()
}
