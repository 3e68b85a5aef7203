// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestOllamaGenerate(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/generate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(generateResponse{Model: got.Model, Response: "  hello  ", Done: true})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL+"/", "llama3.2", time.Second)

	tests := []struct {
		name      string
		req       Request
		wantModel string
	}{
		{"default model", Request{Prompt: "hi", Context: "be brief"}, "llama3.2"},
		{"override model", Request{Prompt: "hi", Model: "mistral"}, "mistral"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = generateRequest{}
			res, err := c.Generate(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if res.Response != "hello" || res.Model != tt.wantModel {
				t.Errorf("Generate() = %+v", res)
			}
			if got.Stream || got.Prompt != "hi" || got.System != tt.req.Context {
				t.Errorf("upstream request = %+v", got)
			}
		})
	}
}

func TestOllamaUpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{not json"))
		}},
		{"error field", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":"out of memory"}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewOllamaClient(srv.URL, "m", time.Second).Generate(context.Background(), Request{Prompt: "x"})
			if !errors.Is(err, ErrUpstream) {
				t.Errorf("Generate() error = %v, want ErrUpstream", err)
			}
		})
	}

	// Unreachable upstream
	_, err := NewOllamaClient("http://127.0.0.1:1", "m", time.Second).Generate(context.Background(), Request{Prompt: "x"})
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("Generate(unreachable) error = %v, want ErrUpstream", err)
	}
}

func TestMemoryLimiter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(10, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		if ok, _ := l.Allow(ctx, "1.2.3.4"); !ok {
			t.Fatalf("request %d denied", i+1)
		}
	}
	if ok, _ := l.Allow(ctx, "1.2.3.4"); ok {
		t.Error("11th request allowed")
	}
	if ok, _ := l.Allow(ctx, "5.6.7.8"); !ok {
		t.Error("other client denied")
	}

	// One token refills every 6s.
	now = now.Add(6 * time.Second)
	if ok, _ := l.Allow(ctx, "1.2.3.4"); !ok {
		t.Error("request after refill denied")
	}

	now = now.Add(5 * time.Minute)
	if n := l.Sweep(); n != 2 {
		t.Errorf("Sweep() = %d, want 2", n)
	}
}

func TestMemoryLimiterConcurrent(t *testing.T) {
	l := NewMemoryLimiter(10, time.Hour)
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow(context.Background(), "client"); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != 10 {
		t.Errorf("allowed %d of 50, want 10", got)
	}
}

func TestRedisLimiterKey(t *testing.T) {
	l := NewRedisLimiter(nil, 10, time.Minute)
	l.now = func() time.Time { return time.Unix(125, 0) }
	if got := l.key("ip"); got != "deck:rate:generate:ip:120" {
		t.Errorf("key() = %q", got)
	}
	l.now = func() time.Time { return time.Unix(179, 0) }
	if got := l.key("ip"); got != "deck:rate:generate:ip:120" {
		t.Errorf("key() in same window = %q", got)
	}
}

func TestRedisLimiterUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	l := NewRedisLimiter(client, 10, time.Minute)
	if _, err := l.Allow(context.Background(), "ip"); err == nil {
		t.Error("Allow() with unreachable redis should fail")
	}
}
