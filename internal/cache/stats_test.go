package cache

import (
	"sync"
	"testing"
	"time"
)

// fakeSink counts notifications so instrumentation hooks can be asserted.
type fakeSink struct {
	mu         sync.Mutex
	hits       int
	misses     int
	evictions  int
	entries    int
	memory     int64
	usageCalls int
}

func (f *fakeSink) ObservePrediction(d time.Duration, fallback bool) {}
func (f *fakeSink) ObserveModelLoad(d time.Duration, err error)      {}

func (f *fakeSink) ObserveCacheLookup(hit bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if hit {
		f.hits++
	} else {
		f.misses++
	}
}

func (f *fakeSink) ObserveEviction() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evictions++
}

func (f *fakeSink) SetCacheUsage(entries int, memoryBytes int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = entries
	f.memory = memoryBytes
	f.usageCalls++
}

func (f *fakeSink) usageSampled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usageCalls > 0
}

func TestStatsRatesSumToHundred(t *testing.T) {
	c := New(Config{})
	m, _ := testModel("org-1", "v1", nil, 0)
	c.Put("org-1", m, false)

	for i := 0; i < 3; i++ {
		if _, ok := c.Get("org-1"); !ok {
			t.Fatalf("expected hit")
		}
	}
	if _, ok := c.Get("org-absent"); ok {
		t.Fatalf("expected miss")
	}

	stats := c.Stats()
	if stats.HitRate != 75 || stats.MissRate != 25 {
		t.Fatalf("rates = %.2f/%.2f, want 75/25", stats.HitRate, stats.MissRate)
	}
	if stats.HitRate+stats.MissRate != 100 {
		t.Fatalf("rates do not sum to 100: %.6f", stats.HitRate+stats.MissRate)
	}
}

func TestStatsZeroLookups(t *testing.T) {
	c := New(Config{})
	stats := c.Stats()
	if stats.HitRate != 0 || stats.MissRate != 0 {
		t.Fatalf("rates without traffic = %.2f/%.2f, want 0/0", stats.HitRate, stats.MissRate)
	}
	if stats.TotalEntries != 0 || stats.MemoryUsedBytes != 0 {
		t.Fatalf("empty cache reported residents: %+v", stats)
	}
}

func TestStatsActiveEntries(t *testing.T) {
	c := New(Config{})
	mA, _ := testModel("org-a", "v1", nil, 0)
	mB, _ := testModel("org-b", "v1", nil, 0)
	mC, _ := testModel("org-c", "v1", nil, 0)

	c.Put("org-a", mA, false) // organic: active immediately
	c.Put("org-b", mB, true)  // preloaded, untouched: not active
	c.Put("org-c", mC, true)  // preloaded, then served once: active
	if _, ok := c.Get("org-c"); !ok {
		t.Fatalf("expected hit")
	}

	stats := c.Stats()
	if stats.TotalEntries != 3 {
		t.Fatalf("total = %d, want 3", stats.TotalEntries)
	}
	if stats.ActiveEntries != 2 {
		t.Fatalf("active = %d, want 2", stats.ActiveEntries)
	}
	want := []string{"org-a", "org-b", "org-c"}
	if len(stats.KnownOrganizations) != 3 {
		t.Fatalf("orgs = %v", stats.KnownOrganizations)
	}
	for i, org := range want {
		if stats.KnownOrganizations[i] != org {
			t.Fatalf("orgs not sorted: %v", stats.KnownOrganizations)
		}
	}
}

func TestStatsMemoryFields(t *testing.T) {
	c := New(Config{MaxMemoryBytes: 100 << 20})
	m, _ := testModel("org-1", "v1", nil, 0)
	c.Put("org-1", m, false)

	stats := c.Stats()
	if stats.MemoryUsedBytes != baseModelBytes {
		t.Fatalf("used = %d, want %d", stats.MemoryUsedBytes, baseModelBytes)
	}
	if stats.MemoryTotalBytes != 100<<20 {
		t.Fatalf("total = %d", stats.MemoryTotalBytes)
	}
	if stats.MemoryPercent != 10 {
		t.Fatalf("percent = %.2f, want 10", stats.MemoryPercent)
	}
}

func TestMetricsSinkNotifications(t *testing.T) {
	sink := &fakeSink{}
	c := New(Config{MaxEntries: 1, Metrics: sink})

	m1, _ := testModel("org-a", "v1", nil, 0)
	c.Put("org-a", m1, false)
	c.Get("org-a")
	c.Get("org-missing")

	m2, _ := testModel("org-b", "v1", nil, 0)
	c.Put("org-b", m2, false) // capacity eviction of org-a

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.hits != 1 || sink.misses != 1 {
		t.Fatalf("lookups = %d/%d, want 1/1", sink.hits, sink.misses)
	}
	if sink.evictions != 1 {
		t.Fatalf("evictions = %d, want 1", sink.evictions)
	}
}
