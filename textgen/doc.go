// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package textgen provides the text-generation collaborator used by some
slides. The session and poll core never calls it.

# Generator

OllamaClient posts non-streaming requests to an Ollama-compatible
/api/generate endpoint:

	gen := textgen.NewOllamaClient(cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMTimeout)
	res, err := gen.Generate(ctx, textgen.Request{Prompt: "Summarize the poll"})

Upstream failures wrap ErrUpstream. Prompts longer than models.MaxPromptLength
are rejected by the HTTP handler before any call is made.

# Rate Limiting

A Limiter is constructed in main and passed to the handler, never held in
package state:

  - MemoryLimiter: one golang.org/x/time/rate token bucket per client,
    for a single instance. Run sweeps idle buckets.
  - RedisLimiter: a fixed-window INCR + EXPIRE counter shared by every
    instance behind the same Redis.
*/
package textgen
