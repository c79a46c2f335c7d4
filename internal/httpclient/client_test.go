package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/everstacklabs/blocksmith/internal/cache"
)

func TestGetCachesResponses(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("body"))
	}))
	defer srv.Close()

	store, err := cache.Open(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	c := New(WithCache(store))

	first, err := c.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first.FromCache {
		t.Error("first request served from cache")
	}

	second, err := c.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !second.FromCache {
		t.Error("second request not served from cache")
	}
	if string(second.Body) != "body" {
		t.Errorf("cached body = %q", second.Body)
	}
	if hits != 1 {
		t.Errorf("server hit %d times, want 1", hits)
	}
}

func TestGetConditionalRefresh(t *testing.T) {
	var sawConditional bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			sawConditional = true
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("body"))
	}))
	defer srv.Close()

	// Zero TTL: every entry is stale immediately, forcing revalidation.
	store, err := cache.Open(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	c := New(WithCache(store))

	if _, err := c.Get(context.Background(), srv.URL, nil); err != nil {
		t.Fatal(err)
	}
	resp, err := c.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}

	if !sawConditional {
		t.Error("second request did not revalidate with If-None-Match")
	}
	if !resp.FromCache {
		t.Error("304 response should reuse the cached body")
	}
	if string(resp.Body) != "body" {
		t.Errorf("body after 304 = %q", resp.Body)
	}
}

func TestGetNoCacheBypassesStore(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("body"))
	}))
	defer srv.Close()

	store, err := cache.Open(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	c := New(WithCache(store), WithNoCache())

	for i := 0; i < 2; i++ {
		resp, err := c.Get(context.Background(), srv.URL, nil)
		if err != nil {
			t.Fatal(err)
		}
		if resp.FromCache {
			t.Error("no-cache request served from cache")
		}
	}
	if hits != 2 {
		t.Errorf("server hit %d times, want 2", hits)
	}
}

func TestGetErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such page", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New().Get(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !strings.Contains(err.Error(), "status 404") {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(err.Error(), "no such page") {
		t.Errorf("error should carry the body snippet: %v", err)
	}
}

func TestGetSendsHeaders(t *testing.T) {
	var gotUA, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(WithUserAgent("blocksmith-test"))
	if _, err := c.Get(context.Background(), srv.URL, map[string]string{"Authorization": "Bearer k"}); err != nil {
		t.Fatal(err)
	}
	if gotUA != "blocksmith-test" {
		t.Errorf("user-agent = %q", gotUA)
	}
	if gotAuth != "Bearer k" {
		t.Errorf("authorization = %q", gotAuth)
	}
}
