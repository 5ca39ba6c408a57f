package profiling

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Lightweight cumulative CPU profiler for tick-level insights.

// Sample accumulates the calls recorded under one name.
type Sample struct {
	Count int64
	Total time.Duration
}

var (
	mu     sync.Mutex
	totals = make(map[string]Sample)
)

// Track returns a stop function that records the elapsed time under the given name.
// Usage: defer profiling.Track("subsystem.Operation")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		s := totals[name]
		s.Count++
		s.Total += d
		totals[name] = s
		mu.Unlock()
	}
}

// Reset clears accumulated samples. Call at the start of each reporting interval.
func Reset() {
	mu.Lock()
	clear(totals)
	mu.Unlock()
}

// Snapshot returns a copy of the accumulated samples.
func Snapshot() map[string]Sample {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]Sample, len(totals))
	for k, v := range totals {
		out[k] = v
	}
	return out
}

// SumWithPrefix totals every sample whose name starts with prefix,
// e.g. "meshing." for all mesher work.
func SumWithPrefix(prefix string) time.Duration {
	mu.Lock()
	defer mu.Unlock()
	var d time.Duration
	for k, v := range totals {
		if strings.HasPrefix(k, prefix) {
			d += v.Total
		}
	}
	return d
}

// TopN formats the n largest totals, largest first.
// Example: "meshing.BuildMesh:4.2ms, engine.Tick:2.1ms"
func TopN(n int) string {
	ss := Snapshot()
	type pair struct {
		name string
		dur  time.Duration
	}
	list := make([]pair, 0, len(ss))
	for k, v := range ss {
		list = append(list, pair{name: k, dur: v.Total})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].dur > list[j].dur })
	if n > len(list) {
		n = len(list)
	}
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ms := float64(list[i].dur.Microseconds()) / 1000.0
		parts = append(parts, list[i].name+":"+formatMs(ms))
	}
	return strings.Join(parts, ", ")
}

// formatMs keeps one decimal for readability, dropping .0 for whole numbers.
func formatMs(ms float64) string {
	s := strconv.FormatFloat(ms, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0") + "ms"
}
