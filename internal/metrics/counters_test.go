package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestCounters(t *testing.T) *Counters {
	t.Helper()
	c := New(time.Hour)
	t.Cleanup(c.Stop)
	return c
}

func TestIncrementAccumulates(t *testing.T) {
	c := newTestCounters(t)

	c.Increment("write_storm_limited", nil, 1)
	c.Increment("write_storm_limited", nil, 2)

	assert.Equal(t, int64(3), c.Snapshot()["write_storm_limited"])
}

func TestAliasMapsToCanonicalName(t *testing.T) {
	c := newTestCounters(t)

	c.Increment("nondeterminism", nil, 1)
	c.Increment("missing_key", nil, 1)

	snap := c.Snapshot()
	assert.Equal(t, int64(1), snap["nondeterminism_detected"])
	assert.Equal(t, int64(1), snap["idempotency_key_missing"])
	assert.NotContains(t, snap, "nondeterminism")
}

func TestUnknownLabelsDropped(t *testing.T) {
	c := newTestCounters(t)

	c.Increment("bootstrap_denied", map[string]string{"secret": "x", "route": "/v1/checkin"}, 1)

	assert.Equal(t, int64(1), c.Snapshot()["bootstrap_denied"])
}

func TestNonPositiveAmountCountsAsOne(t *testing.T) {
	c := newTestCounters(t)

	c.Increment("idempotent_replay", nil, 0)
	c.Increment("idempotent_replay", nil, -5)

	assert.Equal(t, int64(2), c.Snapshot()["idempotent_replay"])
}

func TestSeriesCapFallsBackToUnlabeled(t *testing.T) {
	c := newTestCounters(t)

	for i := 0; i < maxSeriesPerCounter+10; i++ {
		c.Increment("bootstrap_denied", map[string]string{"date_key": time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i).Format("2006-01-02")}, 1)
	}

	assert.Equal(t, int64(maxSeriesPerCounter+10), c.Snapshot()["bootstrap_denied"])
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Len(t, c.labeled["bootstrap_denied"], maxSeriesPerCounter)
}

func TestFlushClearsState(t *testing.T) {
	c := newTestCounters(t)

	c.Increment("today_contract_invalid", nil, 1)
	c.Flush("test")

	assert.Empty(t, c.Snapshot())
}

func TestNilReceiverIsSafe(t *testing.T) {
	var c *Counters
	c.Increment("anything", nil, 1)
}
