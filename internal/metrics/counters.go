// Package metrics holds the process-local monitoring counters. Components
// increment named counters on protocol observations (nondeterminism, missing
// idempotency keys, gating denials); a flush loop emits the accumulated state
// as one structured log line and clears it. Best-effort only: increments never
// fail and never block the request path.
package metrics

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// aliases maps call-site names to canonical emitted names.
var aliases = map[string]string{
	"nondeterminism":   "nondeterminism_detected",
	"contract_invalid": "today_contract_invalid",
	"gating_violation": "bootstrap_denied",
	"missing_key":      "idempotency_key_missing",
}

// allowedLabels bounds label cardinality; unknown label keys are dropped.
var allowedLabels = map[string]bool{
	"route":       true,
	"status":      true,
	"date_key":    true,
	"user_bucket": true,
}

// maxSeriesPerCounter caps labeled series per counter. Past the cap the
// increment falls back to the unlabeled counter instead of growing the map.
const maxSeriesPerCounter = 64

type Counters struct {
	mu      sync.Mutex
	counts  map[string]int64
	labeled map[string]map[string]int64
	ticker  *time.Ticker
	done    chan struct{}
	once    sync.Once
}

// New constructs a counter set and starts its periodic flush loop.
func New(interval time.Duration) *Counters {
	if interval <= 0 {
		interval = time.Minute
	}
	c := &Counters{
		counts:  make(map[string]int64),
		labeled: make(map[string]map[string]int64),
		ticker:  time.NewTicker(interval),
		done:    make(chan struct{}),
	}
	go c.flushLoop()
	return c
}

func (c *Counters) flushLoop() {
	for {
		select {
		case <-c.ticker.C:
			c.Flush("interval")
		case <-c.done:
			c.Flush("shutdown")
			return
		}
	}
}

// Increment adds amount to the named counter. A nil receiver, unknown labels
// or a non-positive amount are tolerated rather than rejected.
func (c *Counters) Increment(name string, labels map[string]string, amount int64) {
	if c == nil || name == "" {
		return
	}
	if amount <= 0 {
		amount = 1
	}
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	series := labelSeries(labels)

	c.mu.Lock()
	defer c.mu.Unlock()
	if series == "" {
		c.counts[name] += amount
		return
	}
	byLabel := c.labeled[name]
	if byLabel == nil {
		byLabel = make(map[string]int64)
		c.labeled[name] = byLabel
	}
	if _, exists := byLabel[series]; !exists && len(byLabel) >= maxSeriesPerCounter {
		c.counts[name] += amount
		return
	}
	byLabel[series] += amount
	c.counts[name] += amount
}

// Snapshot returns the current unlabeled totals without clearing them.
func (c *Counters) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Flush emits all non-zero counters as one log line and clears state.
func (c *Counters) Flush(reason string) {
	c.mu.Lock()
	counts := c.counts
	labeled := c.labeled
	c.counts = make(map[string]int64)
	c.labeled = make(map[string]map[string]int64)
	c.mu.Unlock()

	if len(counts) == 0 {
		return
	}

	attrs := []any{"reason", reason}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		attrs = append(attrs, name, counts[name])
		if byLabel := labeled[name]; len(byLabel) > 0 {
			attrs = append(attrs, name+"_series", compactSeries(byLabel))
		}
	}
	slog.Info("monitoring counters", attrs...)
}

func (c *Counters) Stop() {
	c.once.Do(func() {
		c.ticker.Stop()
		close(c.done)
	})
}

// labelSeries canonicalizes a label set to "k=v,k=v" in sorted key order.
func labelSeries(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		if allowedLabels[k] && labels[k] != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+labels[k])
	}
	return strings.Join(parts, ",")
}

func compactSeries(byLabel map[string]int64) string {
	keys := make([]string, 0, len(byLabel))
	for k := range byLabel {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(strconv.FormatInt(byLabel[k], 10))
	}
	return b.String()
}
