// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package aggregate

import (
	"math"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/jpenzell/deck-live/models"
)

// Summary represents the numeric aggregates of one poll
type Summary struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P10    float64 `json:"p10"`
	P90    float64 `json:"p90"`
	Spread float64 `json:"spread"` // max - min
	StdDev float64 `json:"stddev"`

	// Skipped counts responses whose value had no number at the path.
	Skipped int `json:"skipped"`
}

// Choice is one tallied option
type Choice struct {
	Value string  `json:"value"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// Tally represents the distribution of choice answers
type Tally struct {
	Total   int      `json:"total"`
	Choices []Choice `json:"choices"`
}

// Numeric summarizes the number found at path in each response value.
// An empty path reads the value itself, so both {"slider":42} with path
// "slider" and a bare 42 work. Order of responses does not matter.
func Numeric(responses []models.Response, path string) Summary {
	values := make([]float64, 0, len(responses))
	var s Summary
	for _, r := range responses {
		res := lookup(r.Value, path)
		if res.Type != gjson.Number {
			s.Skipped++
			continue
		}
		values = append(values, res.Float())
	}

	s.Count = len(values)
	if s.Count == 0 {
		return s
	}

	sort.Float64s(values)
	s.Min = values[0]
	s.Max = values[len(values)-1]
	s.Spread = s.Max - s.Min
	s.Mean = mean(values)
	s.Median = percentile(values, 0.5)
	s.P10 = percentile(values, 0.1)
	s.P90 = percentile(values, 0.9)
	s.StdDev = stddev(values, s.Mean)
	return s
}

// Count tallies the answers found at path. A string answer counts once, an
// array answer counts each distinct element once (multi-select). Choices are
// ordered by count, then value.
func Count(responses []models.Response, path string) Tally {
	counts := make(map[string]int)
	var t Tally
	for _, r := range responses {
		res := lookup(r.Value, path)
		picked := choices(res)
		if len(picked) == 0 {
			continue
		}
		t.Total++
		for _, c := range picked {
			counts[c]++
		}
	}

	t.Choices = make([]Choice, 0, len(counts))
	for value, n := range counts {
		c := Choice{Value: value, Count: n}
		if t.Total > 0 {
			c.Share = float64(n) / float64(t.Total)
		}
		t.Choices = append(t.Choices, c)
	}
	sort.Slice(t.Choices, func(i, j int) bool {
		a, b := t.Choices[i], t.Choices[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Value < b.Value
	})
	return t
}

// Texts returns the non-blank strings at path, sorted.
func Texts(responses []models.Response, path string) []string {
	out := make([]string, 0, len(responses))
	for _, r := range responses {
		res := lookup(r.Value, path)
		if res.Type != gjson.String {
			continue
		}
		if s := strings.TrimSpace(res.String()); s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func lookup(value []byte, path string) gjson.Result {
	if path == "" {
		return gjson.ParseBytes(value)
	}
	return gjson.GetBytes(value, path)
}

func choices(res gjson.Result) []string {
	switch {
	case res.Type == gjson.String:
		if s := strings.TrimSpace(res.String()); s != "" {
			return []string{s}
		}
	case res.Type == gjson.Number:
		return []string{res.Raw}
	case res.IsArray():
		seen := make(map[string]bool)
		var out []string
		for _, el := range res.Array() {
			for _, c := range choices(el) {
				if !seen[c] {
					seen[c] = true
					out = append(out, c)
				}
			}
		}
		return out
	}
	return nil
}

// percentile calculates the p-th percentile of sorted data
// p should be in range [0, 1]
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0.0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	// Linear interpolation between closest ranks
	rank := p * float64(len(sorted)-1)
	lower := int(rank)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := rank - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the population standard deviation
func stddev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
