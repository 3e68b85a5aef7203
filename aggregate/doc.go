// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package aggregate computes display statistics from a poll's responses.

Everything here is a pure function of the response list returned by the
poll engine, and the result is the same for any order of that list. The
engine itself stores response values as opaque JSON; this is the only
package that reads inside them.

# Paths

Values are read with gjson paths, so a slider answer {"slider": 42} is
summarized with path "slider" and a nested {"answer": {"pick": "b"}} with
"answer.pick". An empty path reads the whole value.

# Numeric Polls

	s := aggregate.Numeric(responses, "slider")
	// s.Min, s.Max, s.Mean, s.Median, s.Spread ...

Percentiles use linear interpolation between closest ranks. Responses
without a number at the path are counted in Skipped.

# Choice Polls

	t := aggregate.Count(responses, "choice")

Array answers count each distinct element once; Share is relative to the
number of responses that picked anything.
*/
package aggregate
