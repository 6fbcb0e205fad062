package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_GetWithHeaders(t *testing.T) {
	var gotAuth, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(5*time.Second, "")
	body, err := c.Request(context.Background(), srv.URL, Options{
		Headers: map[string]string{"Authorization": "Bearer abc"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Equal(t, http.MethodGet, gotMethod, "empty method defaults to GET")
}

func TestHTTPClient_PostBody(t *testing.T) {
	var gotBody, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotType = r.Header.Get("Content-Type")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(0, "").Request(context.Background(), srv.URL, Options{
		Method: http.MethodPost,
		Body:   []byte(`{"username":"ada"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"username":"ada"}`, gotBody)
	assert.Equal(t, "application/json", gotType)
}

func TestHTTPClient_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(time.Second, "").Request(context.Background(), srv.URL, Options{})
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Contains(t, se.Body, "nope")
}

func TestHTTPClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPClient(time.Second, "").Request(context.Background(), url, Options{})
	assert.Error(t, err)
}

func TestDedupe_SharesInFlightRequest(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	next := ClientFunc(func(ctx context.Context, url string, opts Options) ([]byte, error) {
		calls.Add(1)
		started <- struct{}{}
		<-release
		return []byte("shared"), nil
	})
	c := Dedupe(next)

	var wg sync.WaitGroup
	results := make([]string, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		b, _ := c.Request(context.Background(), "http://x/strategies", Options{Method: "GET"})
		results[0] = string(b)
	}()
	<-started

	wg.Add(1)
	go func() {
		defer wg.Done()
		b, _ := c.Request(context.Background(), "http://x/strategies", Options{Method: "GET"})
		results[1] = string(b)
	}()

	// Give the second caller time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []string{"shared", "shared"}, results)
}

func TestDedupe_DistinctTokensNotShared(t *testing.T) {
	assert.NotEqual(t,
		requestKey("http://x/user/1", Options{Method: "GET", Headers: map[string]string{"Authorization": "Bearer a"}}),
		requestKey("http://x/user/1", Options{Method: "GET", Headers: map[string]string{"Authorization": "Bearer b"}}),
	)
	assert.Equal(t,
		requestKey("http://x/strategies", Options{Method: "get"}),
		requestKey("http://x/strategies", Options{Method: "GET"}),
	)
}

func TestDedupe_CancelledCallerDoesNotFailOthers(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	next := ClientFunc(func(ctx context.Context, url string, opts Options) ([]byte, error) {
		calls.Add(1)
		started <- struct{}{}
		select {
		case <-release:
			return []byte("shared"), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	c := Dedupe(next)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Request(firstCtx, "http://x/strategies", Options{Method: "GET"})
		firstErr <- err
	}()
	<-started

	type result struct {
		body string
		err  error
	}
	second := make(chan result, 1)
	go func() {
		b, err := c.Request(context.Background(), "http://x/strategies", Options{Method: "GET"})
		second <- result{string(b), err}
	}()

	// Let the second caller join before the first gives up.
	time.Sleep(30 * time.Millisecond)
	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "shared", got.body)
	assert.Equal(t, int32(1), calls.Load())
}
