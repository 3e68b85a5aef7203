// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jpenzell/deck-live/models"
	"github.com/jpenzell/deck-live/testutil"
	"github.com/jpenzell/deck-live/textgen"
)

type fakeGenerator struct {
	calls atomic.Int32
	err   error
}

func (g *fakeGenerator) Generate(_ context.Context, req textgen.Request) (textgen.Result, error) {
	g.calls.Add(1)
	if g.err != nil {
		return textgen.Result{}, g.err
	}
	model := req.Model
	if model == "" {
		model = "test-model"
	}
	return textgen.Result{Response: "echo: " + req.Prompt, Model: model}, nil
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func generate(h *GenerateHandler, body any, remote string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("POST", "/generate", body, nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	w := httptest.NewRecorder()
	h.Generate(w, req)
	return w
}

func TestGenerate(t *testing.T) {
	gen := &fakeGenerator{}
	h := NewGenerateHandler(gen, textgen.NewMemoryLimiter(10, time.Minute))

	w := generate(h, models.GenerateRequest{Prompt: "Name three rivers", Context: "geography talk"}, "")
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.GenerateResponse
	testutil.AssertJSON(t, w, &resp)
	if !resp.Success || resp.Response != "echo: Name three rivers" || resp.Model != "test-model" {
		t.Errorf("Unexpected response %+v", resp)
	}
}

func TestGenerateValidation(t *testing.T) {
	gen := &fakeGenerator{}
	h := NewGenerateHandler(gen, textgen.NewMemoryLimiter(10, time.Minute))

	tests := []struct {
		name string
		body any
	}{
		{"empty prompt", models.GenerateRequest{Prompt: ""}},
		{"blank prompt", models.GenerateRequest{Prompt: "   "}},
		{"prompt too long", models.GenerateRequest{Prompt: strings.Repeat("a", models.MaxPromptLength+1)}},
		{"model too long", models.GenerateRequest{Prompt: "hi", Model: strings.Repeat("m", 101)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := generate(h, tt.body, "")
			testutil.AssertStatus(t, w, http.StatusBadRequest)

			var resp models.GenerateResponse
			testutil.AssertJSON(t, w, &resp)
			if resp.Success || resp.Code != models.CodeInvalidInput || resp.Error == "" {
				t.Errorf("Unexpected response %+v", resp)
			}
		})
	}

	if n := gen.calls.Load(); n != 0 {
		t.Errorf("Invalid requests reached the generator %d times", n)
	}
}

func TestGenerateCountsCharacters(t *testing.T) {
	gen := &fakeGenerator{}
	h := NewGenerateHandler(gen, textgen.NewMemoryLimiter(10, time.Minute))

	// 1500 characters, 3000 bytes
	w := generate(h, models.GenerateRequest{Prompt: strings.Repeat("é", 1500)}, "")
	testutil.AssertStatus(t, w, http.StatusOK)
	if n := gen.calls.Load(); n != 1 {
		t.Errorf("Expected the prompt to reach the generator, got %d calls", n)
	}
}

func TestGenerateRateLimited(t *testing.T) {
	gen := &fakeGenerator{}
	h := NewGenerateHandler(gen, textgen.NewMemoryLimiter(2, time.Minute))
	body := models.GenerateRequest{Prompt: "hi"}

	for i := 0; i < 2; i++ {
		testutil.AssertStatus(t, generate(h, body, "10.0.0.1:1234"), http.StatusOK)
	}

	w := generate(h, body, "10.0.0.1:5678")
	testutil.AssertStatus(t, w, http.StatusTooManyRequests)
	var resp models.GenerateResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Code != models.CodeRateLimited {
		t.Errorf("Expected rate_limited, got %q", resp.Code)
	}

	// Other clients keep their own budget
	testutil.AssertStatus(t, generate(h, body, "10.0.0.2:1234"), http.StatusOK)

	if n := gen.calls.Load(); n != 3 {
		t.Errorf("Expected 3 generator calls, got %d", n)
	}
}

func TestGenerateLimiterUnavailable(t *testing.T) {
	h := NewGenerateHandler(&fakeGenerator{}, brokenLimiter{})
	testutil.AssertStatus(t, generate(h, models.GenerateRequest{Prompt: "hi"}, ""), http.StatusOK)
}

func TestGenerateUpstreamError(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("%w: status 500", textgen.ErrUpstream)}
	h := NewGenerateHandler(gen, textgen.NewMemoryLimiter(10, time.Minute))

	w := generate(h, models.GenerateRequest{Prompt: "hi"}, "")
	testutil.AssertStatus(t, w, http.StatusBadGateway)

	var resp models.GenerateResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Success || resp.Response != "" {
		t.Errorf("Unexpected response %+v", resp)
	}
}
