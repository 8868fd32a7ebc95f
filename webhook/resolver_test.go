package webhook_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KosherKev/centralized-webhook-dispatcher/subscriber"
	"github.com/KosherKev/centralized-webhook-dispatcher/webhook"
)

// verifyServer fakes a subscriber app. It answers the ticket verification
// endpoint with the configured status and body for the given reference and
// 404 for anything else, counting every hit it receives.
func verifyServer(t *testing.T, reference string, status int, body string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/api/tickets/verify/"+reference {
			w.WriteHeader(status)
			fmt.Fprint(w, body)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"status":false,"message":"ticket not found"}`)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func testSubscriber(id, name, baseURL string) subscriber.Subscriber {
	sub := subscriber.Subscriber{ID: id, Name: name, BaseURL: baseURL, Enabled: true}
	sub.Normalize()
	return sub
}

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("success - single owner among several subscribers", func(t *testing.T) {
		owner, ownerHits := verifyServer(t, "T1000", http.StatusOK, `{"status":true,"data":{"ticket":{"id":42}}}`)
		other1, _ := verifyServer(t, "OTHER", http.StatusOK, `{}`)
		other2, _ := verifyServer(t, "OTHER", http.StatusOK, `{}`)

		subs := []subscriber.Subscriber{
			testSubscriber("alpha", "Alpha", other1.URL),
			testSubscriber("cbs-ticketing", "CBS Ticketing", owner.URL),
			testSubscriber("gamma", "Gamma", other2.URL),
		}

		resolver := webhook.NewResolver(nil, time.Second, logger)
		got := resolver.Resolve(ctx, "T1000", subs)

		require.NotNil(t, got)
		assert.Equal(t, "cbs-ticketing", got.ID)
		assert.Equal(t, int64(1), ownerHits.Load())
	})

	t.Run("success - 400 with ticket object still confirms ownership", func(t *testing.T) {
		owner, _ := verifyServer(t, "T2000", http.StatusBadRequest, `{"status":false,"message":"ticket already paid","ticket":{"id":7,"status":"paid"}}`)
		other, _ := verifyServer(t, "OTHER", http.StatusOK, `{}`)

		subs := []subscriber.Subscriber{
			testSubscriber("alpha", "Alpha", other.URL),
			testSubscriber("beta", "Beta", owner.URL),
		}

		resolver := webhook.NewResolver(nil, time.Second, logger)
		got := resolver.Resolve(ctx, "T2000", subs)

		require.NotNil(t, got)
		assert.Equal(t, "beta", got.ID)
	})

	t.Run("success - 400 with nested data.ticket confirms ownership", func(t *testing.T) {
		owner, _ := verifyServer(t, "T2001", http.StatusBadRequest, `{"status":false,"data":{"ticket":{"id":9}}}`)

		subs := []subscriber.Subscriber{testSubscriber("beta", "Beta", owner.URL)}

		resolver := webhook.NewResolver(nil, time.Second, logger)
		require.NotNil(t, resolver.Resolve(ctx, "T2001", subs))
	})

	t.Run("no owner - 400 without ticket object does not confirm", func(t *testing.T) {
		srv, _ := verifyServer(t, "T3000", http.StatusBadRequest, `{"status":false,"message":"invalid reference format"}`)

		subs := []subscriber.Subscriber{testSubscriber("alpha", "Alpha", srv.URL)}

		resolver := webhook.NewResolver(nil, time.Second, logger)
		assert.Nil(t, resolver.Resolve(ctx, "T3000", subs))
	})

	t.Run("no owner - null ticket does not confirm", func(t *testing.T) {
		srv, _ := verifyServer(t, "T3001", http.StatusBadRequest, `{"status":false,"ticket":null,"data":{"ticket":null}}`)

		subs := []subscriber.Subscriber{testSubscriber("alpha", "Alpha", srv.URL)}

		resolver := webhook.NewResolver(nil, time.Second, logger)
		assert.Nil(t, resolver.Resolve(ctx, "T3001", subs))
	})

	t.Run("no owner - nobody recognizes the reference", func(t *testing.T) {
		srv1, _ := verifyServer(t, "OTHER", http.StatusOK, `{}`)
		srv2, _ := verifyServer(t, "OTHER", http.StatusOK, `{}`)

		subs := []subscriber.Subscriber{
			testSubscriber("alpha", "Alpha", srv1.URL),
			testSubscriber("beta", "Beta", srv2.URL),
		}

		resolver := webhook.NewResolver(nil, time.Second, logger)
		assert.Nil(t, resolver.Resolve(ctx, "T4000", subs))
	})

	t.Run("no owner - empty subscriber list", func(t *testing.T) {
		resolver := webhook.NewResolver(nil, time.Second, logger)
		assert.Nil(t, resolver.Resolve(ctx, "T5000", nil))
	})

	t.Run("disabled subscribers are never queried", func(t *testing.T) {
		srv, hits := verifyServer(t, "T6000", http.StatusOK, `{"status":true}`)

		sub := testSubscriber("alpha", "Alpha", srv.URL)
		sub.Enabled = false

		resolver := webhook.NewResolver(nil, time.Second, logger)
		assert.Nil(t, resolver.Resolve(ctx, "T6000", []subscriber.Subscriber{sub}))
		assert.Equal(t, int64(0), hits.Load())
	})

	t.Run("lookups run concurrently, not sequentially", func(t *testing.T) {
		slow := func() *httptest.Server {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(300 * time.Millisecond)
				w.WriteHeader(http.StatusNotFound)
			}))
			t.Cleanup(srv.Close)
			return srv
		}

		subs := []subscriber.Subscriber{
			testSubscriber("s1", "S1", slow().URL),
			testSubscriber("s2", "S2", slow().URL),
			testSubscriber("s3", "S3", slow().URL),
		}

		resolver := webhook.NewResolver(nil, 2*time.Second, logger)
		start := time.Now()
		got := resolver.Resolve(ctx, "T7000", subs)
		elapsed := time.Since(start)

		assert.Nil(t, got)
		// three sequential lookups would take at least 900ms
		assert.Less(t, elapsed, 750*time.Millisecond)
	})

	t.Run("registration order breaks ties between multiple confirmations", func(t *testing.T) {
		first, _ := verifyServer(t, "T8000", http.StatusOK, `{"status":true}`)
		second, _ := verifyServer(t, "T8000", http.StatusOK, `{"status":true}`)

		a := testSubscriber("first", "First", first.URL)
		b := testSubscriber("second", "Second", second.URL)

		resolver := webhook.NewResolver(nil, time.Second, logger)

		got := resolver.Resolve(ctx, "T8000", []subscriber.Subscriber{a, b})
		require.NotNil(t, got)
		assert.Equal(t, "first", got.ID)

		got = resolver.Resolve(ctx, "T8000", []subscriber.Subscriber{b, a})
		require.NotNil(t, got)
		assert.Equal(t, "second", got.ID)
	})

	t.Run("slow subscriber is cut off at its timeout", func(t *testing.T) {
		stalled := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(2 * time.Second)
		}))
		t.Cleanup(stalled.Close)
		owner, _ := verifyServer(t, "T9000", http.StatusOK, `{"status":true}`)

		slowSub := testSubscriber("slow", "Slow", stalled.URL)
		slowSub.Timeout = 100 * time.Millisecond

		subs := []subscriber.Subscriber{
			slowSub,
			testSubscriber("owner", "Owner", owner.URL),
		}

		resolver := webhook.NewResolver(nil, time.Second, logger)
		start := time.Now()
		got := resolver.Resolve(ctx, "T9000", subs)
		elapsed := time.Since(start)

		require.NotNil(t, got)
		assert.Equal(t, "owner", got.ID)
		assert.Less(t, elapsed, time.Second)
	})

	t.Run("unreachable subscriber does not abort resolution", func(t *testing.T) {
		dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		dead.Close()
		owner, _ := verifyServer(t, "T9500", http.StatusOK, `{"status":true}`)

		subs := []subscriber.Subscriber{
			testSubscriber("dead", "Dead", dead.URL),
			testSubscriber("owner", "Owner", owner.URL),
		}

		resolver := webhook.NewResolver(nil, time.Second, logger)
		got := resolver.Resolve(ctx, "T9500", subs)

		require.NotNil(t, got)
		assert.Equal(t, "owner", got.ID)
	})
}
